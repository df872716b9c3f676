package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	"ShareWise/internal/domain/service"
	"ShareWise/internal/services/indicators"
	applogger "ShareWise/pkg/logger"
)

// ErrSuppressed marks a signal withheld by product policy (HOLD or low
// confidence), as opposed to a pipeline failure.
var ErrSuppressed = errors.New("signal suppressed by policy")

// Emitter pushes an accepted signal toward subscribers and the event bus.
// The relay in front of the publisher implements this.
type Emitter interface {
	Emit(ctx context.Context, sig *models.TradingSignalResult) error
}

// Emitters fans one signal out to several sinks. Every sink is tried; the
// first error is reported.
type Emitters []Emitter

func (es Emitters) Emit(ctx context.Context, sig *models.TradingSignalResult) error {
	var first error
	for _, e := range es {
		if err := e.Emit(ctx, sig); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PipelineConfig carries the serving policy for signal generation.
type PipelineConfig struct {
	Timeframe     domrepo.Timeframe
	LookbackBars  int
	MinConfidence float64
	BatchTimeout  time.Duration
}

// DefaultPipelineConfig returns the documented serving defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Timeframe:     domrepo.TF5m,
		LookbackBars:  200,
		MinConfidence: 0.6,
		BatchTimeout:  10 * time.Second,
	}
}

// SignalPipeline runs candles → indicators → engine → policy filter →
// persist + emit for one symbol at a time. Symbols are independent; the
// batch path fans out one goroutine per symbol.
type SignalPipeline struct {
	cfg        PipelineConfig
	candles    domrepo.CandleStore
	indicators *indicators.Engine
	engine     service.SignalEngine
	store      domrepo.SignalStore
	emitter    Emitter
	metrics    domrepo.Metrics
	l          *applogger.Logger
}

// NewSignalPipeline wires the pipeline. Zero config fields fall back to
// the documented defaults.
func NewSignalPipeline(
	cfg PipelineConfig,
	candles domrepo.CandleStore,
	ind *indicators.Engine,
	engine service.SignalEngine,
	store domrepo.SignalStore,
	emitter Emitter,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *SignalPipeline {
	def := DefaultPipelineConfig()
	if cfg.Timeframe == "" {
		cfg.Timeframe = def.Timeframe
	}
	if cfg.LookbackBars <= 0 {
		cfg.LookbackBars = def.LookbackBars
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	return &SignalPipeline{
		cfg:        cfg,
		candles:    candles,
		indicators: ind,
		engine:     engine,
		store:      store,
		emitter:    emitter,
		metrics:    metrics,
		l:          l,
	}
}

// Generate produces, persists, and emits one signal for the symbol.
// Policy-suppressed signals return ErrSuppressed with a nil result.
func (p *SignalPipeline) Generate(ctx context.Context, symbol string) (*models.TradingSignalResult, error) {
	return p.generate(ctx, symbol, p.cfg.Timeframe, p.cfg.LookbackBars)
}

func (p *SignalPipeline) generate(ctx context.Context, symbol string, tf domrepo.Timeframe, lookback int) (*models.TradingSignalResult, error) {
	start := time.Now()

	series, err := p.candles.GetLatestNCandles(ctx, symbol, lookback, tf)
	if err != nil {
		p.metrics.RecordError("candle_load")
		return nil, fmt.Errorf("load candles %s: %w", symbol, err)
	}
	if series.Len() == 0 {
		p.metrics.RecordDropped(symbol, "no_data")
		return nil, fmt.Errorf("no candles for %s", symbol)
	}

	ind, err := p.indicators.Compute(series)
	if err != nil {
		p.metrics.RecordError("indicators")
		return nil, fmt.Errorf("indicators %s: %w", symbol, err)
	}

	entry := series.Last().Close
	sig, err := p.engine.GenerateSignal(ctx, symbol, ind, entry)
	if err != nil {
		p.metrics.RecordError("engine")
		return nil, fmt.Errorf("engine %s: %w", symbol, err)
	}

	// Product policy: HOLD and weak signals are not emitted.
	if sig.SignalType == models.SignalHold {
		p.metrics.RecordDropped(symbol, "hold")
		return nil, ErrSuppressed
	}
	if sig.Confidence < p.cfg.MinConfidence {
		p.metrics.RecordDropped(symbol, "low_confidence")
		return nil, ErrSuppressed
	}

	p.metrics.RecordSignal(symbol, string(sig.SignalType))
	p.metrics.RecordConfidence(symbol, sig.Confidence)
	p.metrics.RecordSignalTime(symbol, float64(sig.Timestamp.Unix()))

	// Persistence and emission are best-effort: a dead store or full relay
	// must not cost the caller the signal it asked for.
	if p.store != nil {
		if err := p.store.Insert(ctx, sig); err != nil {
			p.metrics.RecordError("signal_store")
			if p.l != nil {
				p.l.Error("signal store insert failed",
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
		}
	}
	if p.emitter != nil {
		if err := p.emitter.Emit(ctx, sig); err != nil {
			if p.l != nil {
				p.l.Warn("signal emit failed",
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
		}
	}

	p.metrics.RecordLatency("signal_pipeline", time.Since(start).Seconds())
	return sig, nil
}

// BatchRequest selects the symbols for a fan-out pass, with optional
// per-request overrides of the configured timeframe and lookback.
type BatchRequest struct {
	Symbols   []string
	Timeframe domrepo.Timeframe
	Lookback  int
}

// BatchOutcome is the per-symbol result of a fan-out generation pass.
type BatchOutcome struct {
	Signals    []models.TradingSignalResult `json:"signals"`
	Suppressed []string                     `json:"suppressed,omitempty"`
	Errors     map[string]string            `json:"errors,omitempty"`
}

// GenerateBatch fans out generation across symbols, one goroutine each,
// under a shared timeout. There is no cross-symbol ordering; all outcomes
// are reported, none aborts the batch.
func (p *SignalPipeline) GenerateBatch(ctx context.Context, req BatchRequest) *BatchOutcome {
	tf := req.Timeframe
	if tf == "" {
		tf = p.cfg.Timeframe
	}
	lookback := req.Lookback
	if lookback <= 0 {
		lookback = p.cfg.LookbackBars
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.BatchTimeout)
	defer cancel()

	type item struct {
		symbol string
		sig    *models.TradingSignalResult
		err    error
	}
	ch := make(chan item, len(req.Symbols))
	var wg sync.WaitGroup

	for _, symbol := range req.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sig, err := p.generate(ctx, symbol, tf, lookback)
			ch <- item{symbol: symbol, sig: sig, err: err}
		}(symbol)
	}

	go func() { wg.Wait(); close(ch) }()

	out := &BatchOutcome{Errors: map[string]string{}}
	for it := range ch {
		switch {
		case errors.Is(it.err, ErrSuppressed):
			out.Suppressed = append(out.Suppressed, it.symbol)
		case it.err != nil:
			out.Errors[it.symbol] = it.err.Error()
		default:
			out.Signals = append(out.Signals, *it.sig)
		}
	}
	if len(out.Errors) == 0 {
		out.Errors = nil
	}
	return out
}
