package wsfeed

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestServeWS_StreamsTrades(t *testing.T) {
	feed := New()
	server := httptest.NewServer(http.HandlerFunc(feed.ServeWS))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the subscriber before publishing.
	require.Eventually(t, func() bool {
		feed.mu.RLock()
		defer feed.mu.RUnlock()
		return len(feed.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	feed.OnTrade(domain.Trade{Symbol: "AAPL", Price: 100, Qty: 10})

	var got message
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "trade", got.Type)
}

func TestServeWS_UnsubscribesOnDisconnect(t *testing.T) {
	feed := New()
	server := httptest.NewServer(http.HandlerFunc(feed.ServeWS))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		feed.mu.RLock()
		defer feed.mu.RUnlock()
		return len(feed.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		feed.mu.RLock()
		defer feed.mu.RUnlock()
		return len(feed.subscribers) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcast_DropsWhenSubscriberBufferFull(t *testing.T) {
	feed := New()
	sub := feed.subscribe()
	defer feed.unsubscribe(sub)

	for range 100 {
		feed.OnTopOfBook(domain.TopOfBook{Symbol: "AAPL"})
	}
	// Must not block or panic even though the subscriber never drains.
}
