// Package ordermanager is the intake bridge between the HTTP boundary
// and the matching core's event pipeline. Everything the teacher's
// Manager did around wallets, withheld funds, and daily volume limits
// is risk/settlement territory the spec places out of scope; what
// survives here is its other half — id assignment, order-state
// tracking for query endpoints, and hand-off to the sequencer (now
// eventloop.Pipeline, whose Push retries while the ring is full).
package ordermanager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/nathanyu/stock-exchange/internal/eventloop"
	"github.com/nathanyu/stock-exchange/internal/telemetry"
)

// OrderState is what the intake bridge remembers about a submission so
// GET /order/:id has something to answer before any TopOfBook/trade
// callback has come back around. The matching core is the source of
// truth for whether the order is still resting; this is a submission
// receipt, not a live order-book mirror.
type OrderState struct {
	ID            domain.OrderId
	CorrelationID string
	Trader        domain.TraderId
	Symbol        domain.SymbolId
	Side          domain.Side
	Type          domain.OrderType
	TIF           domain.TimeInForce
	Price         domain.Price
	Qty           domain.Quantity
	SubmittedAt   time.Time
	Canceled      bool
}

// Manager assigns order ids, keeps submission receipts for querying,
// and forwards validated intents into the matching pipeline.
type Manager struct {
	mu     sync.RWMutex
	orders map[domain.OrderId]*OrderState
	nextID atomic.Uint64
	pipe   *eventloop.Pipeline
}

// NewManager creates an intake bridge feeding pipe. Order ids are
// assigned starting at 1, strictly increasing.
func NewManager(pipe *eventloop.Pipeline) *Manager {
	return &Manager{
		orders: make(map[domain.OrderId]*OrderState),
		pipe:   pipe,
	}
}

// SubmitOrder validates basic shape, assigns an id and a client-facing
// correlation token, records a submission receipt, and pushes a new-
// order event into the pipeline. It returns the receipt immediately —
// fills and book changes arrive later through the engine's publisher
// callbacks, not synchronously from this call.
func (m *Manager) SubmitOrder(trader domain.TraderId, symbol domain.SymbolId, side domain.Side, typ domain.OrderType, tif domain.TimeInForce, price domain.Price, qty domain.Quantity) (*OrderState, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("ordermanager: quantity must be positive")
	}
	if typ == domain.OrderTypeLimit && price <= 0 {
		return nil, fmt.Errorf("ordermanager: limit order requires a positive price")
	}

	id := domain.OrderId(m.nextID.Add(1))
	state := &OrderState{
		ID:            id,
		CorrelationID: uuid.New().String(),
		Trader:        trader,
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		TIF:           tif,
		Price:         price,
		Qty:           qty,
		SubmittedAt:   time.Now(),
	}

	m.mu.Lock()
	m.orders[id] = state
	m.mu.Unlock()

	order := &domain.NewOrder{
		ID:     id,
		Trader: trader,
		Symbol: symbol,
		Side:   side,
		Type:   typ,
		TIF:    tif,
		Price:  price,
		Qty:    qty,
	}
	ev := domain.NewOrderEvent(order, uint64(state.SubmittedAt.UnixNano()))
	if err := m.pipe.Push(context.Background(), &ev); err != nil {
		m.mu.Lock()
		delete(m.orders, id)
		m.mu.Unlock()
		return nil, fmt.Errorf("ordermanager: submit rejected: %w", err)
	}

	telemetry.OrdersTotal.WithLabelValues("new", string(symbol)).Inc()
	return state, nil
}

// CancelOrder pushes a cancel event for a previously submitted id. An
// unknown id is reported back to the caller, but the underlying engine
// treats cancel-of-unknown as a no-op rather than an error — the
// distinction is only meaningful for giving the HTTP caller a sane
// 404 instead of silently acking a typo'd id.
func (m *Manager) CancelOrder(id domain.OrderId) error {
	m.mu.Lock()
	state, exists := m.orders[id]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("ordermanager: order %d not found", id)
	}
	state.Canceled = true
	m.mu.Unlock()

	ev := domain.NewCancelEvent(&domain.CancelOrder{ID: id}, uint64(time.Now().UnixNano()))
	if err := m.pipe.Push(context.Background(), &ev); err != nil {
		return err
	}
	telemetry.OrdersTotal.WithLabelValues("cancel", string(state.Symbol)).Inc()
	return nil
}

// GetOrder returns the submission receipt for id, or nil if unknown.
func (m *Manager) GetOrder(id domain.OrderId) *OrderState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}
