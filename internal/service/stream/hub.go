package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	applogger "ShareWise/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBuffer      = 64
	broadcastBuffer = 256
)

// Hub fans every emitted signal out to WebSocket subscribers. Slow
// subscribers skip signals instead of stalling the pipeline.
type Hub struct {
	metrics domrepo.Metrics
	l       *applogger.Logger

	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan *models.TradingSignalResult
	stopCh     chan struct{}

	mu      sync.Mutex
	started bool
	subs    map[*Subscriber]struct{}
}

// Subscriber is one attached WebSocket connection, optionally filtered to a
// single symbol.
type Subscriber struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan *models.TradingSignalResult
	symbol string
}

func NewHub(metrics domrepo.Metrics, l *applogger.Logger) *Hub {
	return &Hub{
		metrics:    metrics,
		l:          l,
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan *models.TradingSignalResult, broadcastBuffer),
		stopCh:     make(chan struct{}),
		subs:       make(map[*Subscriber]struct{}),
	}
}

// Run owns the subscriber set until Stop. Safe to call once.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				h.closeAll()
				return
			case <-h.stopCh:
				h.closeAll()
				return
			case sub := <-h.register:
				h.mu.Lock()
				h.subs[sub] = struct{}{}
				n := len(h.subs)
				h.mu.Unlock()
				if h.l != nil {
					h.l.Debug("stream subscriber attached",
						applogger.String("symbol", sub.symbol),
						applogger.Int("subscribers", n),
					)
				}
			case sub := <-h.unregister:
				h.drop(sub)
			case sig := <-h.broadcast:
				h.mu.Lock()
				for sub := range h.subs {
					if sub.symbol != "" && sub.symbol != sig.Symbol {
						continue
					}
					select {
					case sub.send <- sig:
					default:
						h.metrics.RecordDropped(sig.Symbol, "stream_slow")
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

// Stop detaches all subscribers and halts the loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	h.mu.Unlock()
	close(h.stopCh)
}

// Broadcast queues a signal for fan-out without blocking the caller.
func (h *Hub) Broadcast(sig *models.TradingSignalResult) {
	select {
	case h.broadcast <- sig:
	default:
		h.metrics.RecordDropped(sig.Symbol, "stream_backlog")
	}
}

// Emit lets the hub sit behind the pipeline as one of its emitters.
func (h *Hub) Emit(_ context.Context, sig *models.TradingSignalResult) error {
	h.Broadcast(sig)
	return nil
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Attach adopts an upgraded connection and starts its pumps. The caller
// must not use conn afterwards.
func (h *Hub) Attach(conn *websocket.Conn, symbol string) {
	sub := &Subscriber{
		hub:    h,
		conn:   conn,
		send:   make(chan *models.TradingSignalResult, sendBuffer),
		symbol: symbol,
	}
	select {
	case h.register <- sub:
	case <-h.stopCh:
		_ = conn.Close()
		return
	}
	go sub.writePump()
	go sub.readPump()
}

func (h *Hub) drop(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
		close(sub.send)
	}
	n := len(h.subs)
	h.mu.Unlock()
	if ok && h.l != nil {
		h.l.Debug("stream subscriber detached", applogger.Int("subscribers", n))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for sub := range h.subs {
		close(sub.send)
		delete(h.subs, sub)
	}
	h.mu.Unlock()
}

// writePump serializes signals to the socket and keeps it alive with pings.
func (s *Subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case sig, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteJSON(sig); err != nil {
				s.hub.metrics.RecordError("stream_write")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; its job is pong handling and noticing
// the peer going away.
func (s *Subscriber) readPump() {
	defer func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.stopCh:
		}
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
