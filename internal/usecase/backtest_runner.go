package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	"ShareWise/internal/services/backtest"
	"ShareWise/internal/services/performance"
	"ShareWise/pkg/cache"
	applogger "ShareWise/pkg/logger"
	"ShareWise/pkg/queue"
)

// JobTypeBacktestRun is the queue message type for async backtest jobs.
const JobTypeBacktestRun = "backtest.run"

const (
	backtestJobKeyPrefix = "backtest:job"
	defaultReportTTL     = 24 * time.Hour
)

// ErrJobNotFound is returned when a run ID has no cached job state, either
// because it never existed or the report TTL expired.
var ErrJobNotFound = errors.New("backtest job not found")

// JobStatus is the lifecycle of an async backtest job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// BacktestRequest is one backtest run over a stored candle range.
type BacktestRequest struct {
	Config    models.BacktestConfig `json:"config"`
	From      time.Time             `json:"from"`
	To        time.Time             `json:"to"`
	Timeframe domrepo.Timeframe     `json:"timeframe"`
}

// BacktestOutcome bundles the report with portfolio-level risk metrics.
type BacktestOutcome struct {
	RunID   string                     `json:"run_id"`
	Report  *models.BacktestReport     `json:"report"`
	Metrics *models.PerformanceMetrics `json:"metrics,omitempty"`
}

// BacktestJobState is the cached view of an async job, polled by run ID.
type BacktestJobState struct {
	RunID     string           `json:"run_id"`
	Status    JobStatus        `json:"status"`
	Error     string           `json:"error,omitempty"`
	Outcome   *BacktestOutcome `json:"outcome,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// BacktestRunner serves the sync run path and the Redis-queued async path.
// Job state lives in the cache under the run ID; completed reports also go
// to ClickHouse for history.
type BacktestRunner struct {
	candles    domrepo.CandleStore
	backtester *backtest.Engine
	perf       *performance.Engine
	reports    domrepo.ReportStore
	cache      cache.Service
	jobs       *queue.RedisQueue
	metrics    domrepo.Metrics
	l          *applogger.Logger
	reportTTL  time.Duration
}

func NewBacktestRunner(
	candles domrepo.CandleStore,
	backtester *backtest.Engine,
	perf *performance.Engine,
	reports domrepo.ReportStore,
	cacheSvc cache.Service,
	jobs *queue.RedisQueue,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *BacktestRunner {
	return &BacktestRunner{
		candles:    candles,
		backtester: backtester,
		perf:       perf,
		reports:    reports,
		cache:      cacheSvc,
		jobs:       jobs,
		metrics:    metrics,
		l:          l,
		reportTTL:  defaultReportTTL,
	}
}

// Run executes a backtest synchronously: load the candle range, simulate,
// derive portfolio metrics from the equity curve, persist the report.
func (r *BacktestRunner) Run(ctx context.Context, req BacktestRequest) (*BacktestOutcome, error) {
	return r.run(ctx, req, newRunID(req.Config))
}

func (r *BacktestRunner) run(ctx context.Context, req BacktestRequest, runID string) (*BacktestOutcome, error) {
	start := time.Now()
	if req.Timeframe == "" {
		req.Timeframe = domrepo.TF1d
	}
	if req.To.IsZero() {
		req.To = time.Now().UTC()
	}
	if req.From.IsZero() {
		req.From = req.To.AddDate(0, -6, 0)
	}
	if !req.From.Before(req.To) {
		return nil, fmt.Errorf("backtest range: from %s not before to %s", req.From.Format(time.RFC3339), req.To.Format(time.RFC3339))
	}

	series, err := r.candles.GetCandles(ctx, req.Config.Symbol, req.From, req.To, req.Timeframe)
	if err != nil {
		r.metrics.RecordError("candle_load")
		return nil, fmt.Errorf("load candles %s: %w", req.Config.Symbol, err)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("no candles for %s in range", req.Config.Symbol)
	}

	report, err := r.backtester.Run(req.Config, series)
	if err != nil {
		r.metrics.RecordError("backtest")
		return nil, fmt.Errorf("backtest %s: %w", req.Config.Symbol, err)
	}

	out := &BacktestOutcome{
		RunID:  runID,
		Report: report,
	}
	if rets := returnsFromCurve(report.PortfolioCurve); len(rets) > 0 {
		pm, err := r.perf.Compute(rets, req.Config.InitialCapital)
		if err != nil {
			if r.l != nil {
				r.l.Warn("performance metrics failed",
					applogger.String("symbol", req.Config.Symbol),
					applogger.Error(err),
				)
			}
		} else {
			out.Metrics = pm
		}
	}

	// Report history is best-effort; the caller still gets the result.
	if r.reports != nil {
		if err := r.reports.InsertBacktestReport(ctx, out.RunID, report); err != nil {
			r.metrics.RecordError("report_store")
			if r.l != nil {
				r.l.Error("backtest report store failed",
					applogger.String("run_id", out.RunID),
					applogger.Error(err),
				)
			}
		}
	}

	r.metrics.RecordLatency("backtest_run", time.Since(start).Seconds())
	return out, nil
}

// Submit enqueues an async run and returns its run ID immediately.
func (r *BacktestRunner) Submit(ctx context.Context, req BacktestRequest) (string, error) {
	if r.jobs == nil || r.cache == nil {
		return "", errors.New("backtest job queue not configured")
	}
	runID := newRunID(req.Config)
	if err := r.setState(ctx, &BacktestJobState{RunID: runID, Status: JobQueued, UpdatedAt: time.Now().UTC()}); err != nil {
		return "", fmt.Errorf("record job state: %w", err)
	}
	payload := backtestJobPayload{RunID: runID, Request: req}
	if err := r.jobs.Enqueue(ctx, JobTypeBacktestRun, payload); err != nil {
		return "", fmt.Errorf("enqueue backtest job: %w", err)
	}
	return runID, nil
}

// Result returns the cached job state for a run ID.
func (r *BacktestRunner) Result(ctx context.Context, runID string) (*BacktestJobState, error) {
	if r.cache == nil {
		return nil, ErrJobNotFound
	}
	var state BacktestJobState
	err := r.cache.Get(ctx, cache.GenerateKey(backtestJobKeyPrefix, runID), &state)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read job state: %w", err)
	}
	return &state, nil
}

// Job exposes the queue handler for consumer registration.
func (r *BacktestRunner) Job() queue.Job { return &backtestJob{runner: r} }

func (r *BacktestRunner) setState(ctx context.Context, state *BacktestJobState) error {
	return r.cache.Set(ctx, cache.GenerateKey(backtestJobKeyPrefix, state.RunID), state, r.reportTTL)
}

type backtestJobPayload struct {
	RunID   string          `json:"run_id"`
	Request BacktestRequest `json:"request"`
}

// backtestJob adapts the runner to the queue worker contract.
type backtestJob struct {
	runner *BacktestRunner
}

func (j *backtestJob) Name() string { return "backtest-runner" }
func (j *backtestJob) Type() string { return JobTypeBacktestRun }

func (j *backtestJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[backtestJobPayload](payload)
	if err != nil {
		return fmt.Errorf("backtest payload: %w", err)
	}

	r := j.runner
	_ = r.setState(ctx, &BacktestJobState{RunID: p.RunID, Status: JobRunning, UpdatedAt: time.Now().UTC()})

	out, err := r.run(ctx, p.Request, p.RunID)
	if err != nil {
		r.metrics.RecordError("backtest_job")
		_ = r.setState(ctx, &BacktestJobState{RunID: p.RunID, Status: JobFailed, Error: err.Error(), UpdatedAt: time.Now().UTC()})
		return err
	}
	return r.setState(ctx, &BacktestJobState{RunID: p.RunID, Status: JobDone, Outcome: out, UpdatedAt: time.Now().UTC()})
}

var _ queue.Job = (*backtestJob)(nil)

// newRunID builds a sortable, human-readable run identifier.
func newRunID(cfg models.BacktestConfig) string {
	return fmt.Sprintf("%s-%s-%d",
		strings.ToLower(cfg.Symbol),
		strings.ToLower(string(cfg.StrategyType)),
		time.Now().UnixNano(),
	)
}

// returnsFromCurve converts an equity curve into simple period returns.
// The first curve point is the starting capital; it seeds the first ratio
// and yields no return of its own.
func returnsFromCurve(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(curve)-1)
	prev := curve[0]
	for _, v := range curve[1:] {
		if prev != 0 {
			rets = append(rets, (v-prev)/prev)
		}
		prev = v
	}
	return rets
}
