// Package orderbook holds the price-indexed, time-ordered resting-order
// structure for a single symbol and its matching algorithm. A book owns
// its resting orders exclusively; nothing outside this package mutates
// a *domain.BookOrder once it is resting.
//
// Cancellation is O(1): a per-book id->location index (this package's
// orderLocation, holding a container/list.Element handle) replaces the
// linear scan across price levels that the C++ original used. That scan
// is the bug called out for the reimplementation — see DESIGN.md.
package orderbook

import (
	"container/list"
	"errors"
	"sort"

	"github.com/nathanyu/stock-exchange/internal/domain"
)

// ErrDuplicateOrder is returned by Add when the order's id is already
// resting in this book.
var ErrDuplicateOrder = errors.New("orderbook: duplicate order id")

// ErrInvalidQuantity is returned by Add when the order's remaining
// quantity is not positive.
var ErrInvalidQuantity = errors.New("orderbook: quantity must be positive")

// level is one price level: a FIFO queue of resting orders plus their
// aggregated remaining quantity.
type level struct {
	price    domain.Price
	totalQty domain.Quantity
	orders   *list.List // of *domain.BookOrder, oldest at Front
}

// orderLocation is the O(1) handle an id resolves to: which side, which
// level, and the exact list element, so cancellation never scans.
type orderLocation struct {
	side *bookSide
	lvl  *level
	elem *list.Element
}

// bookSide is one side (bids or asks) of an OrderBook. Price levels are
// kept in an explicitly maintained best-first order, mirroring the
// ordered std::map the original C++ book used (std::greater for bids,
// std::less for asks) — Go's stdlib has no ordered map, so this package
// maintains the ordering itself with a sorted slice of active prices.
type bookSide struct {
	which  domain.Side
	levels map[domain.Price]*level
	order  []domain.Price // best price first
}

func newBookSide(which domain.Side) *bookSide {
	return &bookSide{which: which, levels: make(map[domain.Price]*level)}
}

// better reports whether price a outranks price b on this side: higher
// wins for bids, lower wins for asks.
func (s *bookSide) better(a, b domain.Price) bool {
	if s.which == domain.SideBuy {
		return a > b
	}
	return a < b
}

func (s *bookSide) hasOrders() bool {
	return len(s.order) > 0
}

func (s *bookSide) bestLevel() (*level, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	return s.levels[s.order[0]], true
}

// getOrCreate returns the level for price, creating and inserting it
// into the sorted order slice if this is the first order at that price.
func (s *bookSide) getOrCreate(price domain.Price) *level {
	if lvl, ok := s.levels[price]; ok {
		return lvl
	}
	lvl := &level{price: price, orders: list.New()}
	s.levels[price] = lvl

	idx := sort.Search(len(s.order), func(i int) bool {
		return !s.better(s.order[i], price)
	})
	s.order = append(s.order, 0)
	copy(s.order[idx+1:], s.order[idx:])
	s.order[idx] = price
	return lvl
}

// removePrice prunes an emptied level from both the map and the sorted
// order slice. No price level exists with an empty queue afterward.
func (s *bookSide) removePrice(price domain.Price) {
	idx := sort.Search(len(s.order), func(i int) bool {
		return !s.better(s.order[i], price)
	})
	if idx < len(s.order) && s.order[idx] == price {
		s.order = append(s.order[:idx], s.order[idx+1:]...)
	}
	delete(s.levels, price)
}

// OrderBook holds the full two-sided book for one symbol.
type OrderBook struct {
	symbol domain.SymbolId
	bids   *bookSide
	asks   *bookSide
	index  map[domain.OrderId]*orderLocation
}

// New creates an empty order book for symbol.
func New(symbol domain.SymbolId) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newBookSide(domain.SideBuy),
		asks:   newBookSide(domain.SideSell),
		index:  make(map[domain.OrderId]*orderLocation),
	}
}

// Symbol returns the symbol this book holds resting orders for.
func (b *OrderBook) Symbol() domain.SymbolId { return b.symbol }

// Resting reports whether id is currently resting in this book. Match
// removes a resting order from the book the moment its QtyRemaining
// reaches zero, so this is the authoritative answer to "is the order
// from this trade still here" after a partial fill.
func (b *OrderBook) Resting(id domain.OrderId) bool {
	_, ok := b.index[id]
	return ok
}

func (b *OrderBook) sideFor(s domain.Side) *bookSide {
	if s == domain.SideBuy {
		return b.bids
	}
	return b.asks
}

// Add inserts a resting order at the tail of its price level's queue.
// Precondition: order.QtyRemaining > 0 and order.ID is not already
// resting in this book; either violation is rejected without mutation.
func (b *OrderBook) Add(order *domain.BookOrder) error {
	if order.QtyRemaining <= 0 {
		return ErrInvalidQuantity
	}
	if _, exists := b.index[order.ID]; exists {
		return ErrDuplicateOrder
	}

	side := b.sideFor(order.Side)
	lvl := side.getOrCreate(order.Price)
	elem := lvl.orders.PushBack(order)
	lvl.totalQty += order.QtyRemaining

	b.index[order.ID] = &orderLocation{side: side, lvl: lvl, elem: elem}
	return nil
}

// Cancel removes the resting order with the given id via its O(1)
// location handle. Returns whether a removal occurred.
func (b *OrderBook) Cancel(id domain.OrderId) bool {
	loc, ok := b.index[id]
	if !ok {
		return false
	}
	b.cancelAt(id, loc)
	return true
}

func (b *OrderBook) cancelAt(id domain.OrderId, loc *orderLocation) {
	order := loc.elem.Value.(*domain.BookOrder)
	loc.lvl.orders.Remove(loc.elem)
	loc.lvl.totalQty -= order.QtyRemaining

	if loc.lvl.orders.Len() == 0 {
		loc.side.removePrice(loc.lvl.price)
	}
	delete(b.index, id)
}

// Match runs price-time matching for incoming against the opposite
// side. It produces trades and the unmatched residual quantity, and
// never adds the residual back into the book — that is the caller's
// decision (see the engine's TIF handling).
func (b *OrderBook) Match(incoming *domain.BookOrder, tsNs uint64) ([]domain.Trade, domain.Quantity) {
	opposite := b.sideFor(incoming.Side.Opposite())
	var trades []domain.Trade
	remaining := incoming.QtyRemaining

	for remaining > 0 {
		lvl, ok := opposite.bestLevel()
		if !ok {
			break
		}
		if !crosses(incoming.Side, incoming.Price, lvl.price) {
			break
		}

		for remaining > 0 && lvl.orders.Len() > 0 {
			front := lvl.orders.Front()
			resting := front.Value.(*domain.BookOrder)
			fill := min(remaining, resting.QtyRemaining)

			trades = append(trades, domain.Trade{
				RestingID:     resting.ID,
				IncomingID:    incoming.ID,
				Symbol:        b.symbol,
				AggressorSide: incoming.Side,
				Price:         lvl.price,
				Qty:           fill,
				MatchTsNs:     tsNs,
			})

			remaining -= fill
			resting.QtyRemaining -= fill
			lvl.totalQty -= fill

			if resting.QtyRemaining == 0 {
				lvl.orders.Remove(front)
				delete(b.index, resting.ID)
			}
		}

		if lvl.orders.Len() == 0 {
			opposite.removePrice(lvl.price)
		}
	}

	incoming.QtyRemaining = remaining
	return trades, remaining
}

// crosses implements the price-time crossing test of the matching
// algorithm: a buy crosses iff its price is at least the resting
// price; a sell crosses iff its price is at most the resting price.
func crosses(side domain.Side, incomingPrice, restingPrice domain.Price) bool {
	if side == domain.SideBuy {
		return incomingPrice >= restingPrice
	}
	return incomingPrice <= restingPrice
}

// PeekLiquidity is the non-mutating dry-run liquidity check FOK orders
// need: it sums quantity on the opposite side at prices that would
// cross, in best-first order, stopping as soon as needed is reached or
// a non-crossing level is hit. It never mutates the book.
func (b *OrderBook) PeekLiquidity(side domain.Side, limitPrice domain.Price, needed domain.Quantity) bool {
	opposite := b.sideFor(side.Opposite())
	var available domain.Quantity
	for _, price := range opposite.order {
		if !crosses(side, limitPrice, price) {
			break
		}
		available += opposite.levels[price].totalQty
		if available >= needed {
			return true
		}
	}
	return available >= needed
}

// BestBid returns the best bid level, or false if the bid side is empty.
func (b *OrderBook) BestBid() (domain.BookLevel, bool) { return bestOf(b.bids) }

// BestAsk returns the best ask level, or false if the ask side is empty.
func (b *OrderBook) BestAsk() (domain.BookLevel, bool) { return bestOf(b.asks) }

func bestOf(s *bookSide) (domain.BookLevel, bool) {
	lvl, ok := s.bestLevel()
	if !ok {
		return domain.BookLevel{}, false
	}
	return domain.BookLevel{Price: lvl.price, Qty: lvl.totalQty}, true
}

// Depth returns up to k best levels on the requested side, best-first.
// k <= 0 means "all levels".
func (b *OrderBook) Depth(side domain.Side, k int) []domain.BookLevel {
	s := b.sideFor(side)
	n := len(s.order)
	if k > 0 && k < n {
		n = k
	}
	out := make([]domain.BookLevel, n)
	for i := 0; i < n; i++ {
		lvl := s.levels[s.order[i]]
		out[i] = domain.BookLevel{Price: lvl.price, Qty: lvl.totalQty}
	}
	return out
}

// TopOfBook builds a TopOfBook snapshot for this book's symbol.
func (b *OrderBook) TopOfBook() domain.TopOfBook {
	tob := domain.TopOfBook{Symbol: b.symbol}
	if bid, ok := b.BestBid(); ok {
		tob.BestBid = &bid
	}
	if ask, ok := b.BestAsk(); ok {
		tob.BestAsk = &ask
	}
	return tob
}

// HasBids reports whether the bid side currently holds any resting orders.
func (b *OrderBook) HasBids() bool { return b.bids.hasOrders() }

// HasAsks reports whether the ask side currently holds any resting orders.
func (b *OrderBook) HasAsks() bool { return b.asks.hasOrders() }
