package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
)

// Downstream is the minimal publisher surface the relay needs.
type Downstream interface {
	PublishSignal(ctx context.Context, sig *models.TradingSignalResult) error
}

// SignalRelay sits between the signal pipeline and the Kafka publisher.
// It validates, throttles per symbol, and buffers with retry when the
// broker is unavailable; a full buffer drops with a metric rather than
// blocking signal generation.
type SignalRelay struct {
	down    Downstream
	metrics domrepo.Metrics

	maxPerSec int
	bufSize   int
	bufCh     chan *models.TradingSignalResult
	stopCh    chan struct{}
	started   bool

	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time

	// optional enrichment hook applied before publish
	transform func(*models.TradingSignalResult) *models.TradingSignalResult
}

type RelayOption func(*SignalRelay)

// WithMaxPerSecond caps accepted signals per symbol per second.
func WithMaxPerSecond(n int) RelayOption {
	return func(r *SignalRelay) {
		if n > 0 {
			r.maxPerSec = n
		}
	}
}

// WithBufferSize sets the retry buffer capacity.
func WithBufferSize(n int) RelayOption {
	return func(r *SignalRelay) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

// WithTransform sets an enrichment hook run before validation of the
// outgoing signal.
func WithTransform(fn func(*models.TradingSignalResult) *models.TradingSignalResult) RelayOption {
	return func(r *SignalRelay) { r.transform = fn }
}

func NewSignalRelay(down Downstream, metrics domrepo.Metrics, opts ...RelayOption) *SignalRelay {
	r := &SignalRelay{
		down:      down,
		metrics:   metrics,
		maxPerSec: 5,
		bufSize:   1000,
		stopCh:    make(chan struct{}),
		lastSeen:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bufCh = make(chan *models.TradingSignalResult, r.bufSize)
	return r
}

// Start launches background flushing of buffered signals.
func (r *SignalRelay) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-r.stopCh:
				return
			case sig := <-r.bufCh:
				if sig == nil {
					continue
				}
				if err := r.down.PublishSignal(ctx, sig); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					r.metrics.RecordError("relay_flush")
					time.Sleep(backoff)
					// Put it back if the buffer has room; a full buffer
					// means newer signals win.
					select {
					case r.bufCh <- sig:
					default:
						r.metrics.RecordDropped(sig.Symbol, "buffer_full")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts the background flusher. Buffered signals are abandoned.
func (r *SignalRelay) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.mu.Unlock()
	close(r.stopCh)
}

// Emit validates, throttles, and forwards a signal downstream, buffering
// on publish failure.
func (r *SignalRelay) Emit(ctx context.Context, sig *models.TradingSignalResult) error {
	start := time.Now()
	if r.transform != nil {
		sig = r.transform(sig)
	}
	if err := validateSignal(sig); err != nil {
		r.metrics.RecordError("relay_validate")
		return err
	}
	if !r.allow(sig.Symbol, start) {
		// throttled; count and drop silently
		r.metrics.RecordDropped(sig.Symbol, "throttled")
		return nil
	}

	if err := r.down.PublishSignal(ctx, sig); err != nil {
		r.metrics.RecordError("relay_publish")
		// Hand the signal to the retry flusher without blocking the caller.
		select {
		case r.bufCh <- sig:
		default:
			r.metrics.RecordDropped(sig.Symbol, "buffer_full")
		}
		return fmt.Errorf("relay downstream: %w", err)
	}
	r.metrics.RecordLatency("relay_publish_seconds", time.Since(start).Seconds())
	return nil
}

func validateSignal(sig *models.TradingSignalResult) error {
	if sig == nil {
		return fmt.Errorf("signal nil")
	}
	if sig.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	switch sig.SignalType {
	case models.SignalBuy, models.SignalSell, models.SignalHold, models.SignalShort, models.SignalCover:
	default:
		return fmt.Errorf("unknown signal type %q", sig.SignalType)
	}
	if sig.Confidence < 0 || sig.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %f", sig.Confidence)
	}
	if sig.EntryPrice <= 0 {
		return fmt.Errorf("entry price invalid: %f", sig.EntryPrice)
	}
	return nil
}

// allow admits at most maxPerSec signals per symbol per second.
func (r *SignalRelay) allow(symbol string, now time.Time) bool {
	if r.maxPerSec <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	last := r.lastSeen[symbol]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(r.maxPerSec) {
		r.lastSeen[symbol] = now
		return true
	}
	return false
}
