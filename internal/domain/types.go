// Package domain holds the core value types shared by the order book,
// matching engine, and event pipeline. Nothing in this package touches
// I/O, JSON, or persistence — those concerns live at the harness boundary.
package domain

import "math"

// SymbolId identifies a trading instrument. It is treated as an opaque
// value by the core; nothing here interprets its contents.
type SymbolId string

// OrderId and TraderId are opaque identifiers. OrderId is assumed
// globally unique across the engine's lifetime — a producer contract,
// not something the core enforces by construction.
type (
	OrderId  uint64
	TraderId uint64
)

// Price is a signed fixed-point integer in ticks. MinPrice/MaxPrice are
// sentinels that make a market order unconditionally marketable: a buy
// is rewritten to MaxPrice, a sell to MinPrice, so the crossing test in
// OrderBook.Match accepts every resting level.
type Price int64

const (
	MinPrice Price = math.MinInt64
	MaxPrice Price = math.MaxInt64
)

// Quantity is a signed 64-bit unit count. Every resting or incoming
// order has Qty > 0; a Trade has Qty > 0.
type Quantity int64

// Side is which side of the book an order sits on or aggresses against.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType distinguishes resting-price orders from sweep orders.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
)

// TimeInForce controls what happens to residual quantity after matching.
type TimeInForce uint8

const (
	TIFDay TimeInForce = iota // rest any residual
	TIFIOC                    // discard any residual
	TIFFOK                    // all-or-nothing; no partial resting
)

func (t TimeInForce) String() string {
	switch t {
	case TIFDay:
		return "day"
	case TIFIOC:
		return "ioc"
	case TIFFOK:
		return "fok"
	default:
		return "unknown"
	}
}

// NewOrder is a submission intent. Price is ignored for Market orders.
type NewOrder struct {
	ID     OrderId
	Trader TraderId
	Symbol SymbolId
	Side   Side
	Type   OrderType
	TIF    TimeInForce
	Price  Price
	Qty    Quantity
}

// CancelOrder carries only the id; the engine resolves the symbol via
// its id->symbol index.
type CancelOrder struct {
	ID OrderId
}

// BookOrder is a resting record owned by exactly one Book. It is
// mutated only by matching (qty decrement) or cancellation (removal).
type BookOrder struct {
	ID           OrderId
	Trader       TraderId
	QtyRemaining Quantity
	Price        Price
	Side         Side
	ArrivalTsNs  uint64
}

// Trade records one fill. Price always equals the resting (maker)
// order's price, per the maker-price rule.
type Trade struct {
	RestingID     OrderId
	IncomingID    OrderId
	Symbol        SymbolId
	AggressorSide Side
	Price         Price
	Qty           Quantity
	MatchTsNs     uint64
}

// BookLevel is an aggregated price level: price plus the sum of
// QtyRemaining across every resting order at that price.
type BookLevel struct {
	Price Price
	Qty   Quantity
}

// TopOfBook reports the best level on each side. A nil pointer means
// that side is empty.
type TopOfBook struct {
	Symbol  SymbolId
	BestBid *BookLevel
	BestAsk *BookLevel
}

// EventKind tags the ingress union carried across the SPSC channel.
type EventKind uint8

const (
	EventKindNew EventKind = iota
	EventKindCancel
)

// Event is the tagged-union record that crosses the SPSC channel.
// Exactly one of New/Cancel is set, matching Kind. TsNs is an opaque
// producer-assigned arrival timestamp used as ArrivalTsNs for resting
// orders and MatchTsNs for trades.
type Event struct {
	Kind   EventKind
	New    *NewOrder
	Cancel *CancelOrder
	TsNs   uint64
}

// NewOrderEvent wraps a NewOrder for the channel.
func NewOrderEvent(o *NewOrder, tsNs uint64) Event {
	return Event{Kind: EventKindNew, New: o, TsNs: tsNs}
}

// NewCancelEvent wraps a CancelOrder for the channel.
func NewCancelEvent(c *CancelOrder, tsNs uint64) Event {
	return Event{Kind: EventKindCancel, Cancel: c, TsNs: tsNs}
}
