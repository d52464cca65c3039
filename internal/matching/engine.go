// Package matching is the per-symbol dispatcher: it owns one order book
// per registered symbol, maintains the engine-wide id->symbol index
// used for O(1) cancellation, applies time-in-force semantics, and
// publishes market data through a publisher.Publisher.
package matching

import (
	"errors"

	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/nathanyu/stock-exchange/internal/orderbook"
	"github.com/nathanyu/stock-exchange/internal/publisher"
	"github.com/nathanyu/stock-exchange/internal/telemetry"
)

// Error kinds surfaced on new-order validation failures. Cancel of an
// unknown or already-consumed id is deliberately not an error — it is
// a no-op, matching exchange convention for idempotent producers.
var (
	ErrUnknownSymbol    = errors.New("matching: unknown symbol")
	ErrDuplicateOrderID = errors.New("matching: duplicate order id")
	ErrInvalidOrder     = errors.New("matching: invalid order")
)

// Engine owns every symbol's order book plus the cross-symbol id index
// that makes Cancel O(1). It is meant to be driven by a single
// goroutine (the event loop's consumer); nothing here takes a lock.
type Engine struct {
	books map[domain.SymbolId]*orderbook.OrderBook
	index map[domain.OrderId]domain.SymbolId
	pub   *publisher.Publisher
}

// NewEngine creates a matching engine that publishes through pub.
func NewEngine(pub *publisher.Publisher) *Engine {
	return &Engine{
		books: make(map[domain.SymbolId]*orderbook.OrderBook),
		index: make(map[domain.OrderId]domain.SymbolId),
		pub:   pub,
	}
}

// AddSymbol idempotently registers a symbol, creating its (empty) book
// if one does not already exist.
func (e *Engine) AddSymbol(symbol domain.SymbolId) {
	if _, ok := e.books[symbol]; !ok {
		e.books[symbol] = orderbook.New(symbol)
	}
}

// Book returns the order book for symbol, or nil if it is unregistered.
// Intended for explicit depth/top-of-book queries, not the hot path.
func (e *Engine) Book(symbol domain.SymbolId) *orderbook.OrderBook {
	return e.books[symbol]
}

// Publisher returns the publisher this engine emits through, so the
// explicit depth-query path can fan a snapshot out to side-channel
// subscribers (e.g. the Redis feed) without the core importing them.
func (e *Engine) Publisher() *publisher.Publisher {
	return e.pub
}

// OnNewOrder validates and dispatches a new-order event: it rewrites
// market-order prices to the crossing sentinel, runs a FOK liquidity
// pre-check when required, matches against the book, publishes trades,
// deposits any Day residual, and publishes a TopOfBook update whenever
// either side of the book changed.
func (e *Engine) OnNewOrder(o domain.NewOrder, tsNs uint64) error {
	book, ok := e.books[o.Symbol]
	if !ok {
		return ErrUnknownSymbol
	}
	if o.Qty <= 0 {
		return ErrInvalidOrder
	}
	if o.Type == domain.OrderTypeLimit && o.Price <= 0 {
		return ErrInvalidOrder
	}
	if _, exists := e.index[o.ID]; exists {
		return ErrDuplicateOrderID
	}

	incoming := &domain.BookOrder{
		ID:           o.ID,
		Trader:       o.Trader,
		QtyRemaining: o.Qty,
		Price:        o.Price,
		Side:         o.Side,
		ArrivalTsNs:  tsNs,
	}
	if o.Type == domain.OrderTypeMarket {
		if o.Side == domain.SideBuy {
			incoming.Price = domain.MaxPrice
		} else {
			incoming.Price = domain.MinPrice
		}
	}

	if o.TIF == domain.TIFFOK {
		if !book.PeekLiquidity(incoming.Side, incoming.Price, incoming.QtyRemaining) {
			// FOKNoFill: a normal outcome, not an error. No trades or
			// TopOfBook changes are emitted.
			return nil
		}
	}

	trades, remaining := book.Match(incoming, tsNs)
	for _, t := range trades {
		// A trade does not imply its resting side is gone: the last
		// trade against a level can be a partial fill, leaving the
		// resting order in the book with QtyRemaining > 0. Only drop it
		// from the engine index once the book itself has let it go,
		// otherwise a later OnCancel for that id silently no-ops against
		// an order that is still resting.
		if !book.Resting(t.RestingID) {
			delete(e.index, t.RestingID)
		}
		telemetry.TradesTotal.WithLabelValues(string(t.Symbol)).Inc()
		e.pub.PublishTrade(t)
	}

	changed := len(trades) > 0

	if o.Type == domain.OrderTypeLimit && remaining > 0 {
		switch o.TIF {
		case domain.TIFDay:
			incoming.QtyRemaining = remaining
			if err := book.Add(incoming); err == nil {
				e.index[o.ID] = o.Symbol
				changed = true
			}
		case domain.TIFIOC, domain.TIFFOK:
			// Residual is discarded silently.
		}
	}

	if changed {
		e.pub.PublishTopOfBook(book.TopOfBook())
	}
	return nil
}

// OnCancel resolves the symbol via the engine index, removes the
// resting order from its book in O(1), drops it from the index, and
// publishes an updated TopOfBook. An unknown or already-consumed id is
// a no-op, not an error.
func (e *Engine) OnCancel(c domain.CancelOrder) {
	symbol, ok := e.index[c.ID]
	if !ok {
		return
	}
	book := e.books[symbol]

	book.Cancel(c.ID)
	delete(e.index, c.ID)
	e.pub.PublishTopOfBook(book.TopOfBook())
}
