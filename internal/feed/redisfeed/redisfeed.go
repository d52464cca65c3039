// Package redisfeed mirrors depth snapshots to a Redis pub/sub channel
// for a downstream dashboard. §6.2 reserves OnDepthSnapshot for the
// explicit-query path, never the hot matching path, so this publishes
// from whatever goroutine calls the query handler — it is not invoked
// per-trade and never runs on the event loop's consumer goroutine.
//
// Grounded on the *redis.Client wrapper style of ch10_leader_board's
// internal/repository/redis.go: a thin struct holding the client, one
// method per operation, context-first signatures, errors wrapped with
// fmt.Errorf.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Sink publishes depth snapshots to a Redis channel named
// "depth.<symbol>".
type Sink struct {
	client *redis.Client
}

// New wraps an existing Redis client. The caller owns the client's
// lifecycle (creation and Close).
func New(client *redis.Client) *Sink {
	return &Sink{client: client}
}

type snapshotPayload struct {
	Symbol domain.SymbolId    `json:"symbol"`
	Bids   []domain.BookLevel `json:"bids"`
	Asks   []domain.BookLevel `json:"asks"`
}

// OnDepthSnapshot is a publisher.DepthSnapshotHandler: register it via
// matching.Engine.Publisher().OnDepthSnapshot if a Redis client is
// configured. A publish failure is logged, not propagated — the
// handler contract has no error return, and a side-channel failure
// must never fail the HTTP query it rode in on.
func (s *Sink) OnDepthSnapshot(symbol domain.SymbolId, bids, asks []domain.BookLevel) {
	if err := s.Publish(context.Background(), symbol, bids, asks); err != nil {
		log.Printf("[redisfeed] %v", err)
	}
}

// Publish marshals and publishes a depth snapshot to "depth.<symbol>".
func (s *Sink) Publish(ctx context.Context, symbol domain.SymbolId, bids, asks []domain.BookLevel) error {
	payload, err := json.Marshal(snapshotPayload{Symbol: symbol, Bids: bids, Asks: asks})
	if err != nil {
		return fmt.Errorf("redisfeed: marshal snapshot: %w", err)
	}

	channel := fmt.Sprintf("depth.%s", symbol)
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redisfeed: publish to %s: %w", channel, err)
	}
	return nil
}
