// Package marketdata builds derived market-data views — currently
// per-symbol candlesticks and a queryable trade log — on top of the
// trades the matching engine publishes. It is a Publisher subscriber,
// not a hot-path participant: OnTrade here never blocks and never
// calls back into the engine.
//
// This is the teacher's internal/marketdata package with its wallet-
// execution plumbing replaced by a direct subscription to
// publisher.Publisher.OnTrade — the ring-buffer-of-candles idiom is
// unchanged.
package marketdata

import (
	"sync"
	"time"

	"github.com/nathanyu/stock-exchange/internal/domain"
)

const (
	ringBufferCapacity = 100
	defaultInterval    = time.Minute
)

// Candlestick is OHLCV data for one symbol over one interval.
type Candlestick struct {
	Symbol    domain.SymbolId
	Open      domain.Price
	High      domain.Price
	Low       domain.Price
	Close     domain.Price
	Volume    domain.Quantity
	Timestamp time.Time
}

type candleState struct {
	current *Candlestick
	hasData bool
}

// RingBuffer is a fixed-size circular buffer of completed candlesticks.
type RingBuffer struct {
	data  [ringBufferCapacity]*Candlestick
	head  int // next write position
	count int
}

// Push adds a candlestick, overwriting the oldest entry once full.
func (rb *RingBuffer) Push(c *Candlestick) {
	rb.data[rb.head] = c
	rb.head = (rb.head + 1) % ringBufferCapacity
	if rb.count < ringBufferCapacity {
		rb.count++
	}
}

// GetAll returns every buffered candlestick, oldest first.
func (rb *RingBuffer) GetAll() []*Candlestick {
	return rb.GetRecent(rb.count)
}

// GetRecent returns the n most recent candlesticks, oldest first.
func (rb *RingBuffer) GetRecent(n int) []*Candlestick {
	if n <= 0 || rb.count == 0 {
		return nil
	}
	if n > rb.count {
		n = rb.count
	}

	result := make([]*Candlestick, n)
	start := (rb.head - n + ringBufferCapacity) % ringBufferCapacity
	for i := range n {
		idx := (start + i) % ringBufferCapacity
		result[i] = rb.data[idx]
	}
	return result
}

// Aggregator maintains per-symbol candlestick state and a trade log.
// Register Aggregator.OnTrade with a publisher.Publisher to feed it
// from the matching engine's consumer thread.
type Aggregator struct {
	mu sync.RWMutex

	candles map[domain.SymbolId]*RingBuffer
	states  map[domain.SymbolId]*candleState
	trades  []domain.Trade

	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

// NewAggregator creates an Aggregator that rotates candles every
// interval (<=0 uses the default one-minute bucket).
func NewAggregator(interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Aggregator{
		candles:  make(map[domain.SymbolId]*RingBuffer),
		states:   make(map[domain.SymbolId]*candleState),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// StartRotation begins a background goroutine that closes the current
// candle and starts a new one every interval. Call Stop to end it.
func (a *Aggregator) StartRotation() {
	a.ticker = time.NewTicker(a.interval)
	go func() {
		for {
			select {
			case <-a.ticker.C:
				a.rotate()
			case <-a.done:
				return
			}
		}
	}()
}

// Stop ends the rotation goroutine, if one was started.
func (a *Aggregator) Stop() {
	if a.ticker != nil {
		a.ticker.Stop()
	}
	close(a.done)
}

// OnTrade is a publisher.TradeHandler: register it on the Publisher the
// matching engine writes to.
func (a *Aggregator) OnTrade(t domain.Trade) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.trades = append(a.trades, t)
	a.updateCandle(t)
}

func (a *Aggregator) updateCandle(t domain.Trade) {
	now := time.Unix(0, int64(t.MatchTsNs))
	state, ok := a.states[t.Symbol]
	if !ok {
		state = &candleState{}
		a.states[t.Symbol] = state
	}

	if !state.hasData {
		state.current = &Candlestick{
			Symbol:    t.Symbol,
			Open:      t.Price,
			High:      t.Price,
			Low:       t.Price,
			Close:     t.Price,
			Volume:    t.Qty,
			Timestamp: now.Truncate(a.interval),
		}
		state.hasData = true
		return
	}

	c := state.current
	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume += t.Qty
}

func (a *Aggregator) rotate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for symbol, state := range a.states {
		if !state.hasData {
			continue
		}
		rb, ok := a.candles[symbol]
		if !ok {
			rb = &RingBuffer{}
			a.candles[symbol] = rb
		}
		rb.Push(state.current)
		state.hasData = false
		state.current = nil
	}
}

// GetCandles returns up to count recent candlesticks for symbol,
// including the in-progress candle if it has data, oldest first.
func (a *Aggregator) GetCandles(symbol domain.SymbolId, count int) []*Candlestick {
	a.mu.RLock()
	defer a.mu.RUnlock()

	state, ok := a.states[symbol]
	building := ok && state.hasData && count > 0
	completed := count
	if building {
		completed--
	}

	var result []*Candlestick
	if rb, ok := a.candles[symbol]; ok {
		result = rb.GetRecent(completed)
	}
	if building {
		result = append(result, state.current)
	}
	return result
}

// GetTrades returns trades matching the filter criteria. Empty symbol
// or orderID means "any"; a zero since means "since the beginning".
func (a *Aggregator) GetTrades(symbol domain.SymbolId, orderID domain.OrderId, since time.Time) []domain.Trade {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []domain.Trade
	for _, t := range a.trades {
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		if orderID != 0 && t.RestingID != orderID && t.IncomingID != orderID {
			continue
		}
		if !since.IsZero() && time.Unix(0, int64(t.MatchTsNs)).Before(since) {
			continue
		}
		result = append(result, t)
	}
	return result
}
