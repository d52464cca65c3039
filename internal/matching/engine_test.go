package matching

import (
	"testing"

	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/nathanyu/stock-exchange/internal/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(id domain.OrderId, symbol domain.SymbolId, side domain.Side, typ domain.OrderType, tif domain.TimeInForce, price, qty int64) domain.NewOrder {
	return domain.NewOrder{
		ID:     id,
		Trader: 1,
		Symbol: symbol,
		Side:   side,
		Type:   typ,
		TIF:    tif,
		Price:  domain.Price(price),
		Qty:    domain.Quantity(qty),
	}
}

func newTestEngine() (*Engine, *[]domain.Trade, *[]domain.TopOfBook) {
	pub := publisher.New()
	var trades []domain.Trade
	var tobs []domain.TopOfBook
	pub.OnTrade(func(t domain.Trade) { trades = append(trades, t) })
	pub.OnTopOfBook(func(tob domain.TopOfBook) { tobs = append(tobs, tob) })

	e := NewEngine(pub)
	e.AddSymbol("AAPL")
	e.AddSymbol("GOOG")
	return e, &trades, &tobs
}

func TestOnNewOrder_RestsWhenNoMatch(t *testing.T) {
	e, trades, _ := newTestEngine()

	order := newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 1000)
	require.NoError(t, e.OnNewOrder(order, 1))

	assert.Empty(t, *trades)
	ask, ok := e.Book("AAPL").BestAsk()
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(1000), ask.Qty)
}

func TestOnNewOrder_PublishesTradeOnMatch(t *testing.T) {
	e, trades, _ := newTestEngine()

	sell := newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 1000)
	require.NoError(t, e.OnNewOrder(sell, 1))

	buy := newOrder(2, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 200)
	require.NoError(t, e.OnNewOrder(buy, 2))

	require.Len(t, *trades, 1)
	assert.Equal(t, domain.Quantity(200), (*trades)[0].Qty)
	assert.Equal(t, domain.Price(10010), (*trades)[0].Price)

	ask, ok := e.Book("AAPL").BestAsk()
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(800), ask.Qty)
}

func TestOnNewOrder_UnknownSymbolRejected(t *testing.T) {
	e, _, _ := newTestEngine()
	order := newOrder(1, "MSFT", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 100, 10)
	assert.ErrorIs(t, e.OnNewOrder(order, 1), ErrUnknownSymbol)
}

func TestOnNewOrder_DuplicateIDRejected(t *testing.T) {
	e, _, _ := newTestEngine()
	order := newOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 100, 10)
	require.NoError(t, e.OnNewOrder(order, 1))

	dup := newOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 200, 5)
	assert.ErrorIs(t, e.OnNewOrder(dup, 2), ErrDuplicateOrderID)
}

func TestOnNewOrder_InvalidQuantityRejected(t *testing.T) {
	e, _, _ := newTestEngine()
	order := newOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 100, 0)
	assert.ErrorIs(t, e.OnNewOrder(order, 1), ErrInvalidOrder)
}

func TestOnNewOrder_NonPositiveLimitPriceRejected(t *testing.T) {
	e, _, _ := newTestEngine()
	order := newOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 0, 10)
	assert.ErrorIs(t, e.OnNewOrder(order, 1), ErrInvalidOrder)
}

func TestOnNewOrder_MarketBuyRewritesToMaxPrice(t *testing.T) {
	e, trades, _ := newTestEngine()

	sell := newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 100)
	require.NoError(t, e.OnNewOrder(sell, 1))

	marketBuy := domain.NewOrder{ID: 2, Symbol: "AAPL", Side: domain.SideBuy, Type: domain.OrderTypeMarket, TIF: domain.TIFIOC, Qty: 100}
	require.NoError(t, e.OnNewOrder(marketBuy, 2))

	require.Len(t, *trades, 1)
	assert.Equal(t, domain.Price(10010), (*trades)[0].Price) // fills at resting price, not MaxPrice
}

func TestOnNewOrder_DayResidualRests(t *testing.T) {
	e, _, _ := newTestEngine()

	buy := newOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 1000)
	require.NoError(t, e.OnNewOrder(buy, 1))

	bid, ok := e.Book("AAPL").BestBid()
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(1000), bid.Qty)
}

func TestOnNewOrder_IOCDiscardsResidual(t *testing.T) {
	e, trades, _ := newTestEngine()

	sell := newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 100)
	require.NoError(t, e.OnNewOrder(sell, 1))

	buy := newOrder(2, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFIOC, 10010, 500)
	require.NoError(t, e.OnNewOrder(buy, 2))

	require.Len(t, *trades, 1)
	assert.Equal(t, domain.Quantity(100), (*trades)[0].Qty)
	_, ok := e.Book("AAPL").BestBid()
	assert.False(t, ok) // residual 400 discarded, never rests
}

func TestOnNewOrder_FOKNoFillIsNotAnError(t *testing.T) {
	e, trades, tobs := newTestEngine()

	sell := newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 100)
	require.NoError(t, e.OnNewOrder(sell, 1))
	tobsBefore := len(*tobs) // the resting sell publishes its own TopOfBook

	buy := newOrder(2, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFFOK, 10010, 500)
	require.NoError(t, e.OnNewOrder(buy, 2))

	assert.Empty(t, *trades)
	assert.Len(t, *tobs, tobsBefore) // no book change published for a no-fill FOK
	ask, ok := e.Book("AAPL").BestAsk()
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(100), ask.Qty) // resting sell untouched
}

func TestOnNewOrder_FOKFillsWhenLiquiditySufficient(t *testing.T) {
	e, trades, _ := newTestEngine()

	sell := newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 500)
	require.NoError(t, e.OnNewOrder(sell, 1))

	buy := newOrder(2, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFFOK, 10010, 500)
	require.NoError(t, e.OnNewOrder(buy, 2))

	require.Len(t, *trades, 1)
	assert.Equal(t, domain.Quantity(500), (*trades)[0].Qty)
}

func TestOnCancel_RemovesRestingOrder(t *testing.T) {
	e, _, _ := newTestEngine()

	order := newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 100)
	require.NoError(t, e.OnNewOrder(order, 1))

	e.OnCancel(domain.CancelOrder{ID: 1})

	_, ok := e.Book("AAPL").BestAsk()
	assert.False(t, ok)
}

func TestOnCancel_PartiallyFilledRestingOrderStaysCancellable(t *testing.T) {
	e, trades, _ := newTestEngine()

	require.NoError(t, e.OnNewOrder(newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 100), 1))
	require.NoError(t, e.OnNewOrder(newOrder(2, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 200), 2))

	// id=3 only partially fills id=2 (100 from id=1, 50 from id=2),
	// leaving id=2 resting with QtyRemaining=150.
	require.NoError(t, e.OnNewOrder(newOrder(3, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 150), 3))
	require.Len(t, *trades, 2)

	ask, ok := e.Book("AAPL").BestAsk()
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(150), ask.Qty)

	e.OnCancel(domain.CancelOrder{ID: 2})

	_, ok = e.Book("AAPL").BestAsk()
	assert.False(t, ok, "id=2 should still have been resting and cancellable after its partial fill")
}

func TestOnCancel_UnknownIDIsNoop(t *testing.T) {
	e, _, tobs := newTestEngine()
	e.OnCancel(domain.CancelOrder{ID: 999})
	assert.Empty(t, *tobs)
}

func TestMultipleSymbolsAreIndependent(t *testing.T) {
	e, _, _ := newTestEngine()

	require.NoError(t, e.OnNewOrder(newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 100), 1))
	require.NoError(t, e.OnNewOrder(newOrder(2, "GOOG", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 20000, 50), 2))

	aaplAsk, ok := e.Book("AAPL").BestAsk()
	require.True(t, ok)
	googAsk, ok := e.Book("GOOG").BestAsk()
	require.True(t, ok)

	assert.Equal(t, domain.Price(10010), aaplAsk.Price)
	assert.Equal(t, domain.Price(20000), googAsk.Price)
}

func TestDeterminism_SameInputsSameTrades(t *testing.T) {
	run := func() []domain.Trade {
		e, trades, _ := newTestEngine()
		require.NoError(t, e.OnNewOrder(newOrder(1, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 100), 1))
		require.NoError(t, e.OnNewOrder(newOrder(2, "AAPL", domain.SideSell, domain.OrderTypeLimit, domain.TIFDay, 10010, 200), 2))
		require.NoError(t, e.OnNewOrder(newOrder(3, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 150), 3))
		return *trades
	}

	first := run()
	second := run()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Qty, second[i].Qty)
		assert.Equal(t, first[i].Price, second[i].Price)
		assert.Equal(t, first[i].RestingID, second[i].RestingID)
	}
}
