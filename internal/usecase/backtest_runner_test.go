package usecase

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	"ShareWise/internal/services/backtest"
	"ShareWise/internal/services/performance"
	"ShareWise/pkg/cache"
)

type memReportStore struct {
	mu       sync.Mutex
	runIDs   []string
	reports  []*models.BacktestReport
	drift    []*models.DriftReport
	err      error
	driftErr error
}

func (s *memReportStore) InsertBacktestReport(_ context.Context, runID string, report *models.BacktestReport) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runIDs = append(s.runIDs, runID)
	s.reports = append(s.reports, report)
	return nil
}

func (s *memReportStore) InsertDriftReport(_ context.Context, report *models.DriftReport) error {
	if s.driftErr != nil {
		return s.driftErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drift = append(s.drift, report)
	return nil
}

func quietDailySeries(days int) models.OHLCVSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.OHLCVSeries, days+1)
	c := 21500.0
	for i := range series {
		series[i] = models.Candle{
			Bucket: base.AddDate(0, 0, i),
			Symbol: "NIFTY",
			Open:   c - 2,
			High:   c + 5,
			Low:    c - 5,
			Close:  c,
			Volume: 50000,
		}
		c += 1.0
	}
	return series
}

func newTestRunner(candles domrepo.CandleStore, reports *memReportStore, cacheSvc cache.Service, metrics *recordingMetrics) *BacktestRunner {
	return NewBacktestRunner(
		candles,
		backtest.NewEngine(),
		performance.NewEngine(performance.Config{}),
		reports,
		cacheSvc,
		nil,
		metrics,
		nil,
	)
}

func TestRunProducesReportAndPortfolioMetrics(t *testing.T) {
	reports := &memReportStore{}
	metrics := &recordingMetrics{}
	r := newTestRunner(&stubCandles{series: quietDailySeries(30)}, reports, nil, metrics)

	out, err := r.Run(context.Background(), BacktestRequest{
		Config: models.BacktestConfig{
			Symbol:         "NIFTY",
			StrategyType:   models.StrategyIronCondor,
			InitialCapital: 100000,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Report)

	assert.Contains(t, out.RunID, "nifty-iron_condor-")
	assert.Equal(t, 30, out.Report.TotalTrades)
	require.NotNil(t, out.Metrics)

	// One return per trade day; the capital seed at the head of the curve
	// must not show up as an extra flat day.
	assert.Equal(t, len(out.Report.PortfolioCurve)-1, len(out.Metrics.Returns))
	assert.InDelta(t, 1.0, out.Metrics.WinRate, 1e-9)
	assert.True(t, math.IsInf(float64(out.Metrics.SortinoRatio), 1))

	require.Len(t, reports.runIDs, 1)
	assert.Equal(t, out.RunID, reports.runIDs[0])
}

func TestRunRejectsEmptyRange(t *testing.T) {
	r := newTestRunner(&stubCandles{}, &memReportStore{}, nil, &recordingMetrics{})

	_, err := r.Run(context.Background(), BacktestRequest{
		Config: models.BacktestConfig{
			Symbol:         "NIFTY",
			StrategyType:   models.StrategyStraddle,
			InitialCapital: 100000,
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candles")
}

func TestRunRejectsInvertedRange(t *testing.T) {
	r := newTestRunner(&stubCandles{series: quietDailySeries(10)}, &memReportStore{}, nil, &recordingMetrics{})

	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := r.Run(context.Background(), BacktestRequest{
		Config: models.BacktestConfig{Symbol: "NIFTY", StrategyType: models.StrategyStraddle, InitialCapital: 100000},
		From:   to.AddDate(0, 1, 0),
		To:     to,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not before")
}

func TestRunSurvivesReportStoreFailure(t *testing.T) {
	reports := &memReportStore{err: assert.AnError}
	metrics := &recordingMetrics{}
	r := newTestRunner(&stubCandles{series: quietDailySeries(15)}, reports, nil, metrics)

	out, err := r.Run(context.Background(), BacktestRequest{
		Config: models.BacktestConfig{Symbol: "NIFTY", StrategyType: models.StrategyIronCondor, InitialCapital: 100000},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Report)

	_, _, errs := metrics.snapshot()
	assert.Contains(t, errs, "report_store")
}

func TestSubmitRequiresQueue(t *testing.T) {
	r := newTestRunner(&stubCandles{series: quietDailySeries(10)}, &memReportStore{}, nil, &recordingMetrics{})

	_, err := r.Submit(context.Background(), BacktestRequest{
		Config: models.BacktestConfig{Symbol: "NIFTY", StrategyType: models.StrategyStraddle, InitialCapital: 100000},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestJobLifecycleThroughWorker(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	reports := &memReportStore{}
	r := newTestRunner(&stubCandles{series: quietDailySeries(20)}, reports, mem, &recordingMetrics{})

	req := BacktestRequest{
		Config: models.BacktestConfig{Symbol: "NIFTY", StrategyType: models.StrategyIronCondor, InitialCapital: 100000},
	}

	// Deliver the payload the way the queue does: decoded JSON map.
	raw, err := json.Marshal(backtestJobPayload{RunID: "nifty-iron_condor-42", Request: req})
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	require.NoError(t, r.Job().Handle(context.Background(), payload))

	state, err := r.Result(context.Background(), "nifty-iron_condor-42")
	require.NoError(t, err)
	assert.Equal(t, JobDone, state.Status)
	require.NotNil(t, state.Outcome)
	assert.Equal(t, "nifty-iron_condor-42", state.Outcome.RunID)
	assert.Equal(t, 20, state.Outcome.Report.TotalTrades)

	// The worker persisted under the submitted run ID, not a fresh one.
	require.Len(t, reports.runIDs, 1)
	assert.Equal(t, "nifty-iron_condor-42", reports.runIDs[0])
}

func TestJobFailureIsRecorded(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	metrics := &recordingMetrics{}
	r := newTestRunner(&stubCandles{}, &memReportStore{}, mem, metrics)

	payload := map[string]interface{}{
		"run_id": "nifty-straddle-7",
		"request": map[string]interface{}{
			"config": map[string]interface{}{
				"symbol":          "NIFTY",
				"strategy_type":   "STRADDLE",
				"initial_capital": 100000,
			},
		},
	}
	require.Error(t, r.Job().Handle(context.Background(), payload))

	state, err := r.Result(context.Background(), "nifty-straddle-7")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, state.Status)
	assert.Contains(t, state.Error, "no candles")

	_, _, errs := metrics.snapshot()
	assert.Contains(t, errs, "backtest_job")
}

func TestResultUnknownRunID(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	r := newTestRunner(&stubCandles{}, &memReportStore{}, mem, &recordingMetrics{})

	_, err := r.Result(context.Background(), "nope")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestReturnsFromCurve(t *testing.T) {
	rets := returnsFromCurve([]float64{100000, 101000, 100500})
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.01, rets[0], 1e-9)
	assert.InDelta(t, -0.00495049505, rets[1], 1e-9)

	// The seed point alone produces no returns.
	assert.Nil(t, returnsFromCurve([]float64{100000}))
	assert.Nil(t, returnsFromCurve(nil))
}
