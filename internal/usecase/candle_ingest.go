package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	pkgkafka "ShareWise/pkg/kafka"
	applogger "ShareWise/pkg/logger"
)

const (
	defaultFlushSize     = 200
	defaultFlushInterval = 2 * time.Second
)

// CandleIngest consumes bar events from Kafka and batch-inserts them into
// ClickHouse. Bars arrive already normalized from the feed side; this is
// platform plumbing, not feed normalization.
type CandleIngest struct {
	topic   string
	store   domrepo.CandleWriter
	metrics domrepo.Metrics
	l       *applogger.Logger

	flushSize int
	mu        sync.Mutex
	buf       []models.Candle
}

func NewCandleIngest(topic string, store domrepo.CandleWriter, metrics domrepo.Metrics, l *applogger.Logger) *CandleIngest {
	return &CandleIngest{
		topic:     topic,
		store:     store,
		metrics:   metrics,
		l:         l,
		flushSize: defaultFlushSize,
		buf:       make([]models.Candle, 0, defaultFlushSize),
	}
}

func (h *CandleIngest) Topic() string { return h.topic }

// incoming bar schema: {symbol, tf, t, o, h, l, c, v}
func (h *CandleIngest) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		TF     string  `json:"tf"`
		T      int64   `json:"t"`
		O      float64 `json:"o"`
		H      float64 `json:"h"`
		L      float64 `json:"l"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Symbol == "" || m.T <= 0 || m.C <= 0 {
		h.metrics.RecordError("consumer_validate")
		return fmt.Errorf("bad bar event: symbol=%q t=%d c=%f", m.Symbol, m.T, m.C)
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	tf := domrepo.Timeframe(m.TF)
	if !domrepo.IsValidTimeframe(tf) {
		tf = domrepo.TF5m
	}
	m.TF = string(tf)
	// Event-time to arrival lag. Clock skew makes this approximate.
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	bucket := tf.Align(time.Unix(m.T, 0).UTC())

	h.mu.Lock()
	h.buf = append(h.buf, models.Candle{
		Bucket:    bucket,
		Symbol:    m.Symbol,
		Timeframe: m.TF,
		Open:      m.O,
		High:      m.H,
		Low:       m.L,
		Close:     m.C,
		Volume:    m.V,
	})
	var batch []models.Candle
	if len(h.buf) >= h.flushSize {
		batch = h.buf
		h.buf = make([]models.Candle, 0, h.flushSize)
	}
	h.mu.Unlock()

	if batch == nil {
		return nil
	}
	return h.write(ctx, batch)
}

// Flush drains whatever is buffered. Called by the interval flusher and on
// shutdown so a quiet feed cannot strand bars.
func (h *CandleIngest) Flush(ctx context.Context) error {
	h.mu.Lock()
	if len(h.buf) == 0 {
		h.mu.Unlock()
		return nil
	}
	batch := h.buf
	h.buf = make([]models.Candle, 0, h.flushSize)
	h.mu.Unlock()
	return h.write(ctx, batch)
}

// StartFlusher flushes on a timer until ctx is cancelled, then drains once.
func (h *CandleIngest) StartFlusher(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = defaultFlushInterval
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = h.Flush(drainCtx)
				cancel()
				return
			case <-t.C:
				if err := h.Flush(ctx); err != nil && h.l != nil {
					h.l.Error("candle flush failed", applogger.Error(err))
				}
			}
		}
	}()
}

func (h *CandleIngest) write(ctx context.Context, batch []models.Candle) error {
	start := time.Now()
	err := h.store.StoreBatch(ctx, batch)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*CandleIngest)(nil)
