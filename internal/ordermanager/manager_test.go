package ordermanager

import (
	"testing"

	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/nathanyu/stock-exchange/internal/eventloop"
	"github.com/nathanyu/stock-exchange/internal/matching"
	"github.com/nathanyu/stock-exchange/internal/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *eventloop.Pipeline) {
	engine := matching.NewEngine(publisher.New())
	engine.AddSymbol("AAPL")
	pipe := eventloop.NewPipeline(engine, 64)
	t.Cleanup(pipe.Shutdown)
	return NewManager(pipe), pipe
}

func TestSubmitOrder_AssignsIncreasingIDs(t *testing.T) {
	m, _ := newTestManager(t)

	first, err := m.SubmitOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 100)
	require.NoError(t, err)
	second, err := m.SubmitOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 50)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderId(1), first.ID)
	assert.Equal(t, domain.OrderId(2), second.ID)
	assert.NotEmpty(t, first.CorrelationID)
	assert.NotEqual(t, first.CorrelationID, second.CorrelationID)
}

func TestSubmitOrder_RejectsNonPositiveQuantity(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.SubmitOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 0)
	assert.Error(t, err)
}

func TestSubmitOrder_RejectsNonPositiveLimitPrice(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.SubmitOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 0, 100)
	assert.Error(t, err)
}

func TestSubmitOrder_MarketOrderIgnoresPrice(t *testing.T) {
	m, _ := newTestManager(t)

	state, err := m.SubmitOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeMarket, domain.TIFIOC, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Price(0), state.Price)
}

func TestGetOrder_UnknownReturnsNil(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Nil(t, m.GetOrder(999))
}

func TestGetOrder_ReturnsSubmittedReceipt(t *testing.T) {
	m, _ := newTestManager(t)

	state, err := m.SubmitOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 100)
	require.NoError(t, err)

	got := m.GetOrder(state.ID)
	require.NotNil(t, got)
	assert.Equal(t, state.ID, got.ID)
	assert.False(t, got.Canceled)
}

func TestCancelOrder_UnknownIDIsAnError(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.CancelOrder(999)
	assert.Error(t, err)
}

func TestCancelOrder_MarksReceiptCanceled(t *testing.T) {
	m, _ := newTestManager(t)

	state, err := m.SubmitOrder(1, "AAPL", domain.SideBuy, domain.OrderTypeLimit, domain.TIFDay, 10010, 100)
	require.NoError(t, err)

	require.NoError(t, m.CancelOrder(state.ID))
	got := m.GetOrder(state.ID)
	require.NotNil(t, got)
	assert.True(t, got.Canceled)
}
