package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	"ShareWise/internal/services/indicators"
)

// --- shared doubles -------------------------------------------------------

type recordingMetrics struct {
	mu         sync.Mutex
	signals    []string
	dropped    []string
	errors     []string
	drift      []string
	latencyOps []string
}

func (m *recordingMetrics) RecordSignal(symbol, signalType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, symbol+"|"+signalType)
}

func (m *recordingMetrics) RecordDropped(symbol, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, symbol+"|"+reason)
}

func (m *recordingMetrics) RecordConfidence(string, float64) {}

func (m *recordingMetrics) RecordDrift(model, kind string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drift = append(m.drift, model+"|"+kind)
}

func (m *recordingMetrics) RecordSignalTime(string, float64) {}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *recordingMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyOps = append(m.latencyOps, op)
}

func (m *recordingMetrics) snapshot() (signals, dropped, errs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.signals...),
		append([]string(nil), m.dropped...),
		append([]string(nil), m.errors...)
}

type stubCandles struct {
	series models.OHLCVSeries
	err    error

	mu    sync.Mutex
	gotTF domrepo.Timeframe
	gotN  int
}

func (s *stubCandles) GetCandles(context.Context, string, time.Time, time.Time, domrepo.Timeframe) (models.OHLCVSeries, error) {
	return s.series, s.err
}

func (s *stubCandles) GetLatestNCandles(_ context.Context, _ string, n int, tf domrepo.Timeframe) (models.OHLCVSeries, error) {
	s.mu.Lock()
	s.gotTF, s.gotN = tf, n
	s.mu.Unlock()
	return s.series, s.err
}

func (s *stubCandles) Health(context.Context) error { return nil }

// fnEngine routes GenerateSignal through a per-test function.
type fnEngine struct {
	fn func(symbol string, entry float64) (*models.TradingSignalResult, error)
}

func (e *fnEngine) Name() string { return "test" }

func (e *fnEngine) GenerateSignal(_ context.Context, symbol string, _ *models.IndicatorSet, entry float64) (*models.TradingSignalResult, error) {
	return e.fn(symbol, entry)
}

type memSignalStore struct {
	mu       sync.Mutex
	inserted []*models.TradingSignalResult
	err      error
}

func (s *memSignalStore) Insert(_ context.Context, sig *models.TradingSignalResult) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, sig)
	return nil
}

func (s *memSignalStore) Latest(context.Context, string, int) ([]models.TradingSignalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TradingSignalResult, 0, len(s.inserted))
	for i := len(s.inserted) - 1; i >= 0; i-- {
		out = append(out, *s.inserted[i])
	}
	return out, nil
}

type memEmitter struct {
	mu      sync.Mutex
	emitted []*models.TradingSignalResult
	err     error
}

func (e *memEmitter) Emit(_ context.Context, sig *models.TradingSignalResult) error {
	if e.err != nil {
		return e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitted = append(e.emitted, sig)
	return nil
}

func barSeries(n int, lastClose float64) models.OHLCVSeries {
	base := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	series := make(models.OHLCVSeries, n)
	for i := range series {
		c := lastClose - float64(n-1-i)*5
		series[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * 5 * time.Minute),
			Symbol: "NIFTY",
			Open:   c - 2,
			High:   c + 10,
			Low:    c - 10,
			Close:  c,
			Volume: 100000,
		}
	}
	return series
}

func buySignal(symbol string, entry, confidence float64) *models.TradingSignalResult {
	return &models.TradingSignalResult{
		Symbol:      symbol,
		Timestamp:   time.Now().UTC(),
		SignalType:  models.SignalBuy,
		Confidence:  confidence,
		EntryPrice:  entry,
		TargetPrice: entry + 200,
		StopLoss:    entry - 100,
		Engine:      "test",
	}
}

func newTestPipeline(candles domrepo.CandleStore, engine *fnEngine, store *memSignalStore, emitter *memEmitter, metrics *recordingMetrics) *SignalPipeline {
	return NewSignalPipeline(
		PipelineConfig{LookbackBars: 50, MinConfidence: 0.6, BatchTimeout: 2 * time.Second},
		candles,
		indicators.NewEngine(indicators.Config{}),
		engine,
		store,
		emitter,
		metrics,
		nil,
	)
}

// --- tests ----------------------------------------------------------------

func TestGenerateEmitsPersistsAndCounts(t *testing.T) {
	store := &memSignalStore{}
	emitter := &memEmitter{}
	metrics := &recordingMetrics{}
	engine := &fnEngine{fn: func(symbol string, entry float64) (*models.TradingSignalResult, error) {
		return buySignal(symbol, entry, 0.8), nil
	}}

	p := newTestPipeline(&stubCandles{series: barSeries(60, 21500)}, engine, store, emitter, metrics)

	sig, err := p.Generate(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, sig.SignalType)
	assert.InDelta(t, 21500.0, sig.EntryPrice, 1e-9)

	require.Len(t, store.inserted, 1)
	require.Len(t, emitter.emitted, 1)
	assert.Same(t, sig, store.inserted[0])

	signals, dropped, errs := metrics.snapshot()
	assert.Equal(t, []string{"NIFTY|BUY"}, signals)
	assert.Empty(t, dropped)
	assert.Empty(t, errs)
}

func TestGenerateSuppressesHold(t *testing.T) {
	store := &memSignalStore{}
	metrics := &recordingMetrics{}
	engine := &fnEngine{fn: func(symbol string, entry float64) (*models.TradingSignalResult, error) {
		sig := buySignal(symbol, entry, 0.9)
		sig.SignalType = models.SignalHold
		return sig, nil
	}}

	p := newTestPipeline(&stubCandles{series: barSeries(60, 21500)}, engine, store, &memEmitter{}, metrics)

	sig, err := p.Generate(context.Background(), "NIFTY")
	require.ErrorIs(t, err, ErrSuppressed)
	assert.Nil(t, sig)
	assert.Empty(t, store.inserted)

	_, dropped, _ := metrics.snapshot()
	assert.Equal(t, []string{"NIFTY|hold"}, dropped)
}

func TestGenerateSuppressesLowConfidence(t *testing.T) {
	metrics := &recordingMetrics{}
	engine := &fnEngine{fn: func(symbol string, entry float64) (*models.TradingSignalResult, error) {
		return buySignal(symbol, entry, 0.45), nil
	}}

	p := newTestPipeline(&stubCandles{series: barSeries(60, 21500)}, engine, &memSignalStore{}, &memEmitter{}, metrics)

	_, err := p.Generate(context.Background(), "NIFTY")
	require.ErrorIs(t, err, ErrSuppressed)

	_, dropped, _ := metrics.snapshot()
	assert.Equal(t, []string{"NIFTY|low_confidence"}, dropped)
}

func TestGenerateSurvivesStoreAndEmitFailure(t *testing.T) {
	store := &memSignalStore{err: errors.New("clickhouse down")}
	emitter := &memEmitter{err: errors.New("relay full")}
	metrics := &recordingMetrics{}
	engine := &fnEngine{fn: func(symbol string, entry float64) (*models.TradingSignalResult, error) {
		return buySignal(symbol, entry, 0.75), nil
	}}

	p := newTestPipeline(&stubCandles{series: barSeries(60, 21500)}, engine, store, emitter, metrics)

	sig, err := p.Generate(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.NotNil(t, sig)

	_, _, errs := metrics.snapshot()
	assert.Contains(t, errs, "signal_store")
}

func TestGenerateFailsWithoutData(t *testing.T) {
	metrics := &recordingMetrics{}
	p := newTestPipeline(&stubCandles{}, &fnEngine{}, &memSignalStore{}, &memEmitter{}, metrics)

	_, err := p.Generate(context.Background(), "NIFTY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candles")

	_, dropped, _ := metrics.snapshot()
	assert.Equal(t, []string{"NIFTY|no_data"}, dropped)
}

func TestGenerateBatchPartitionsOutcomes(t *testing.T) {
	metrics := &recordingMetrics{}
	engine := &fnEngine{fn: func(symbol string, entry float64) (*models.TradingSignalResult, error) {
		switch symbol {
		case "NIFTY":
			return buySignal(symbol, entry, 0.8), nil
		case "BANKNIFTY":
			sig := buySignal(symbol, entry, 0.9)
			sig.SignalType = models.SignalHold
			return sig, nil
		default:
			return nil, fmt.Errorf("model offline")
		}
	}}

	p := newTestPipeline(&stubCandles{series: barSeries(60, 21500)}, engine, &memSignalStore{}, &memEmitter{}, metrics)

	out := p.GenerateBatch(context.Background(), BatchRequest{Symbols: []string{"NIFTY", "BANKNIFTY", "FINNIFTY"}})
	require.NotNil(t, out)

	require.Len(t, out.Signals, 1)
	assert.Equal(t, "NIFTY", out.Signals[0].Symbol)
	assert.Equal(t, []string{"BANKNIFTY"}, out.Suppressed)
	require.Contains(t, out.Errors, "FINNIFTY")
	assert.Contains(t, out.Errors["FINNIFTY"], "model offline")
}

func TestGenerateBatchHonorsOverrides(t *testing.T) {
	candles := &stubCandles{series: barSeries(60, 21500)}
	engine := &fnEngine{fn: func(symbol string, entry float64) (*models.TradingSignalResult, error) {
		return buySignal(symbol, entry, 0.8), nil
	}}
	p := newTestPipeline(candles, engine, &memSignalStore{}, &memEmitter{}, &recordingMetrics{})

	out := p.GenerateBatch(context.Background(), BatchRequest{
		Symbols:   []string{"NIFTY"},
		Timeframe: domrepo.TF1h,
		Lookback:  33,
	})
	require.Len(t, out.Signals, 1)

	candles.mu.Lock()
	defer candles.mu.Unlock()
	assert.Equal(t, domrepo.TF1h, candles.gotTF)
	assert.Equal(t, 33, candles.gotN)
}

func TestGenerateBatchEmptySymbolList(t *testing.T) {
	p := newTestPipeline(&stubCandles{series: barSeries(60, 21500)}, &fnEngine{}, &memSignalStore{}, &memEmitter{}, &recordingMetrics{})

	out := p.GenerateBatch(context.Background(), BatchRequest{})
	require.NotNil(t, out)
	assert.Empty(t, out.Signals)
	assert.Empty(t, out.Suppressed)
	assert.Nil(t, out.Errors)
}
