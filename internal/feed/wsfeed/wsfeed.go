// Package wsfeed streams trades and top-of-book updates to connected
// websocket clients. It is a Publisher subscriber like marketdata.Aggregator
// — OnTrade/OnTopOfBook enqueue onto a fan-out hub and return immediately,
// never blocking the matching engine's consumer goroutine on a slow client.
//
// Grounded on the hub/broadcast pattern in realmfikri-Limitless's
// server/server.go (tradeHub/bookHub over gorilla/websocket), generalized
// from a single fixed symbol to the full domain.Trade/domain.TopOfBook
// record set this core publishes.
package wsfeed

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nathanyu/stock-exchange/internal/domain"
)

type message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// subscriber is one connected client's outbound queue.
type subscriber struct {
	ch chan message
}

// Feed fans trades and top-of-book updates out to any number of
// websocket subscribers. A slow subscriber misses messages rather than
// back-pressuring the broadcaster; a disconnected one is removed.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	upgrader    websocket.Upgrader
}

// New creates an empty Feed. CheckOrigin always allows — this is a
// dashboard feed, not an authenticated API; callers fronting it with
// stricter CORS should wrap ServeWS accordingly.
func New() *Feed {
	return &Feed{
		subscribers: make(map[*subscriber]struct{}),
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// OnTrade is a publisher.TradeHandler.
func (f *Feed) OnTrade(t domain.Trade) {
	f.broadcast(message{Type: "trade", Data: t})
}

// OnTopOfBook is a publisher.TopOfBookHandler.
func (f *Feed) OnTopOfBook(tob domain.TopOfBook) {
	f.broadcast(message{Type: "top_of_book", Data: tob})
}

func (f *Feed) broadcast(msg message) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subscribers {
		select {
		case sub.ch <- msg:
		default:
			// Subscriber's buffer is full; drop the message rather than
			// block the broadcaster. The client will catch up on the
			// next snapshot it queries explicitly.
		}
	}
}

func (f *Feed) subscribe() *subscriber {
	sub := &subscriber{ch: make(chan message, 32)}
	f.mu.Lock()
	f.subscribers[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *Feed) unsubscribe(sub *subscriber) {
	f.mu.Lock()
	delete(f.subscribers, sub)
	f.mu.Unlock()
	close(sub.ch)
}

// ServeWS upgrades the request to a websocket connection and streams
// every subsequent trade/top-of-book message to it until the client
// disconnects or a write fails.
func (f *Feed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[wsfeed] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := f.subscribe()
	defer f.unsubscribe(sub)

	// A client that closes while nothing is being written to it is only
	// noticed through a failed read.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-sub.ch:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
