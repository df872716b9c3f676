package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domrepo "ShareWise/internal/domain/repository"
	icache "ShareWise/internal/service/cache"
	"ShareWise/internal/service/ratelimit"
	"ShareWise/internal/service/stream"
	"ShareWise/internal/services/options"
	"ShareWise/internal/services/performance"
	"ShareWise/internal/usecase"
	applogger "ShareWise/pkg/logger"
)

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler serves the /api/v1 signal platform surface.
type Handler struct {
	l *applogger.Logger

	pipeline  *usecase.SignalPipeline
	signals   domrepo.SignalStore
	backtests *usecase.BacktestRunner
	monitor   *usecase.Monitoring
	greeks    *options.Calculator
	perf      *performance.Engine
	hub       *stream.Hub

	symbols []string // default generation universe

	readCache icache.BytesCache
	rl        *ratelimit.Limiter
	deps      map[string]HealthChecker
}

type Option func(*Handler)

// WithDefaultSymbols sets the universe used when a generate request names
// no symbols.
func WithDefaultSymbols(symbols []string) Option {
	return func(h *Handler) { h.symbols = symbols }
}

// WithReadCache guards hot read endpoints with a short-TTL byte cache.
func WithReadCache(c icache.BytesCache) Option {
	return func(h *Handler) { h.readCache = c }
}

// WithHealthDep registers a named dependency for /healthz.
func WithHealthDep(name string, hc HealthChecker) Option {
	return func(h *Handler) { h.deps[name] = hc }
}

func New(
	l *applogger.Logger,
	pipeline *usecase.SignalPipeline,
	signals domrepo.SignalStore,
	backtests *usecase.BacktestRunner,
	monitor *usecase.Monitoring,
	greeks *options.Calculator,
	perf *performance.Engine,
	hub *stream.Hub,
	opts ...Option,
) *Handler {
	h := &Handler{
		l:         l,
		pipeline:  pipeline,
		signals:   signals,
		backtests: backtests,
		monitor:   monitor,
		greeks:    greeks,
		perf:      perf,
		hub:       hub,
		rl:        ratelimit.New(),
		deps:      make(map[string]HealthChecker),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api/v1")
	g.POST("/signals/generate", h.GenerateSignals)
	g.GET("/signals/latest", h.LatestSignals)
	g.GET("/signals/stream", h.StreamSignals)
	g.POST("/options/greeks", h.Greeks)
	g.POST("/backtest/run", h.RunBacktest)
	g.POST("/backtest/jobs", h.SubmitBacktestJob)
	g.GET("/backtest/jobs/:id", h.BacktestJobStatus)
	g.POST("/performance/metrics", h.PerformanceMetrics)
	g.POST("/monitoring/drift", h.EvaluateDrift)
}

// Healthz pings every registered dependency with a short deadline. Unlike
// the API envelope, probes get the real HTTP status.
func (h *Handler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for name, dep := range h.deps {
		if err := dep.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	return c.JSON(status, checks)
}
