package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
)

type hubMetrics struct {
	mu      sync.Mutex
	dropped []string
	errors  []string
}

func (m *hubMetrics) RecordSignal(string, string) {}

func (m *hubMetrics) RecordConfidence(string, float64) {}

func (m *hubMetrics) RecordDrift(string, string, float64) {}

func (m *hubMetrics) RecordSignalTime(string, float64) {}

func (m *hubMetrics) RecordLatency(string, float64) {}

func (m *hubMetrics) RecordDropped(symbol, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, symbol+"|"+reason)
}

func (m *hubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *hubMetrics) droppedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dropped)
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func streamServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.Attach(conn, r.URL.Query().Get("symbol"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialStream(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func streamSignal(symbol string) *models.TradingSignalResult {
	return &models.TradingSignalResult{
		Symbol:     symbol,
		Timestamp:  time.Now().UTC(),
		SignalType: models.SignalBuy,
		Confidence: 0.8,
		EntryPrice: 21500,
	}
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	h := NewHub(&hubMetrics{}, nil)
	h.Run(context.Background())
	defer h.Stop()

	srv := streamServer(t, h)
	conn := dialStream(t, srv, "")

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast(streamSignal("NIFTY"))

	var got models.TradingSignalResult
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "NIFTY", got.Symbol)
	assert.Equal(t, models.SignalBuy, got.SignalType)
}

func TestHubFiltersBySymbol(t *testing.T) {
	h := NewHub(&hubMetrics{}, nil)
	h.Run(context.Background())
	defer h.Stop()

	srv := streamServer(t, h)
	conn := dialStream(t, srv, "?symbol=BANKNIFTY")

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The non-matching broadcast is filtered out, so the first frame this
	// subscriber sees is the matching one.
	h.Broadcast(streamSignal("NIFTY"))
	h.Broadcast(streamSignal("BANKNIFTY"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got models.TradingSignalResult
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "BANKNIFTY", got.Symbol)
}

func TestHubCountsDetachedSubscribers(t *testing.T) {
	h := NewHub(&hubMetrics{}, nil)
	h.Run(context.Background())
	defer h.Stop()

	srv := streamServer(t, h)
	conn := dialStream(t, srv, "")
	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEmitNeverBlocksWithoutSubscribers(t *testing.T) {
	metrics := &hubMetrics{}
	h := NewHub(metrics, nil) // loop intentionally not running

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < broadcastBuffer+50; i++ {
			_ = h.Emit(context.Background(), streamSignal("NIFTY"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a stalled hub")
	}
	assert.Equal(t, 50, metrics.droppedCount())
}
