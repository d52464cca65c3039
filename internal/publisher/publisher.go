// Package publisher is a thin demux of the three market-data callbacks
// the core invokes: trades, top-of-book, and (on the explicit-query
// path only) depth snapshots. It never appears in the original source's
// handler chain as a struct holding std::function members; this is the
// same shape ported to Go.
package publisher

import "github.com/nathanyu/stock-exchange/internal/domain"

// TradeHandler, TopOfBookHandler, and DepthSnapshotHandler match the
// abstract signatures of the sink contract. Each registration point
// accepts at most one handler; an unset handler makes the matching
// publish a no-op.
type (
	TradeHandler         func(domain.Trade)
	TopOfBookHandler      func(domain.TopOfBook)
	DepthSnapshotHandler func(symbol domain.SymbolId, bids, asks []domain.BookLevel)
)

// Publisher holds the registered handlers and fans incoming calls out
// to whichever is set. Handlers are invoked on the caller's goroutine —
// for the hot path that is the matching engine's consumer thread, so
// every handler must be non-blocking and must not call back into the
// engine or book.
type Publisher struct {
	onTrade         TradeHandler
	onTopOfBook     TopOfBookHandler
	onDepthSnapshot DepthSnapshotHandler
}

// New returns a Publisher with no handlers registered.
func New() *Publisher {
	return &Publisher{}
}

// OnTrade registers the trade handler, replacing any previous one.
func (p *Publisher) OnTrade(h TradeHandler) { p.onTrade = h }

// OnTopOfBook registers the top-of-book handler, replacing any previous one.
func (p *Publisher) OnTopOfBook(h TopOfBookHandler) { p.onTopOfBook = h }

// OnDepthSnapshot registers the depth-snapshot handler, replacing any
// previous one. The core never calls this on the event path; it is
// reserved for an explicit depth-query interface.
func (p *Publisher) OnDepthSnapshot(h DepthSnapshotHandler) { p.onDepthSnapshot = h }

// PublishTrade invokes the trade handler if one is registered.
func (p *Publisher) PublishTrade(t domain.Trade) {
	if p.onTrade != nil {
		p.onTrade(t)
	}
}

// PublishTopOfBook invokes the top-of-book handler if one is registered.
func (p *Publisher) PublishTopOfBook(tob domain.TopOfBook) {
	if p.onTopOfBook != nil {
		p.onTopOfBook(tob)
	}
}

// PublishDepthSnapshot invokes the depth-snapshot handler if one is
// registered. Callers use this from the explicit depth-query path, not
// from the matching hot path.
func (p *Publisher) PublishDepthSnapshot(symbol domain.SymbolId, bids, asks []domain.BookLevel) {
	if p.onDepthSnapshot != nil {
		p.onDepthSnapshot(symbol, bids, asks)
	}
}
