package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "ShareWise/internal/domain/repository"
	mid "ShareWise/internal/middleware"
	"ShareWise/internal/service/stream"
	"ShareWise/internal/usecase"
	pkgcache "ShareWise/pkg/cache"
	pkgch "ShareWise/pkg/clickhouse"
	"ShareWise/pkg/config"
	xhttp "ShareWise/pkg/http"
	pkgkafka "ShareWise/pkg/kafka"
	applogger "ShareWise/pkg/logger"
	"ShareWise/pkg/queue"
)

const candleFlushInterval = 2 * time.Second

// App owns the process lifecycle: it starts the hub, relay, candle consumer,
// backtest workers, scheduled generation, and the HTTP server, then tears
// them down in reverse order on SIGINT/SIGTERM.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	handler   xhttp.Handler
	consumer  *pkgkafka.Consumer
	ingest    *usecase.CandleIngest
	pipeline  *usecase.SignalPipeline
	runner    *usecase.BacktestRunner
	relay     *mid.SignalRelay
	hub       *stream.Hub
	jobs      *queue.RedisQueue
	publisher domrepo.SignalPublisher
	ch        *pkgch.Client
	rc        *pkgcache.RedisCache

	httpServer *xhttp.Server
}

// New bundles the wired components. Nil consumer, queue or cache arguments
// simply disable the corresponding subsystem at Run time.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	ingest *usecase.CandleIngest,
	pipeline *usecase.SignalPipeline,
	runner *usecase.BacktestRunner,
	relay *mid.SignalRelay,
	hub *stream.Hub,
	jobs *queue.RedisQueue,
	publisher domrepo.SignalPublisher,
	ch *pkgch.Client,
	rc *pkgcache.RedisCache,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		handler:   handler,
		consumer:  consumer,
		ingest:    ingest,
		pipeline:  pipeline,
		runner:    runner,
		relay:     relay,
		hub:       hub,
		jobs:      jobs,
		publisher: publisher,
		ch:        ch,
		rc:        rc,
	}
}

// Run brings every subsystem up and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsLogger(a.l),
	)

	a.hub.Run(ctx)
	a.relay.Start(ctx)

	if a.consumer != nil && a.ingest != nil {
		a.consumer.RegisterHandler(a.ingest)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.ingest.StartFlusher(ctx, candleFlushInterval)
		a.l.Info("candle consumer started", applogger.String("topic", a.ingest.Topic()))
	}

	if a.jobs != nil && a.runner != nil {
		a.jobs.RegisterJob(a.runner.Job())
		if err := a.jobs.Start(); err != nil {
			a.l.Error("job queue start failed", applogger.Error(err))
		} else {
			a.jobs.StartRetryProcessor()
			a.l.Info("backtest workers started", applogger.Int("workers", a.cfg.Backtest.Workers))
		}
	}

	go a.generateLoop(ctx)

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.l.Info("http server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("engine", a.cfg.Signals.Engine),
		applogger.Strings("symbols", a.cfg.Signals.Symbols),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// generateLoop re-scores the configured universe once per timeframe bucket.
func (a *App) generateLoop(ctx context.Context) {
	if a.pipeline == nil || len(a.cfg.Signals.Symbols) == 0 {
		return
	}
	tf := domrepo.NormalizeTimeframe(a.cfg.Signals.Timeframe)
	ticker := time.NewTicker(tf.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out := a.pipeline.GenerateBatch(ctx, usecase.BatchRequest{Symbols: a.cfg.Signals.Symbols})
			a.l.Info("scheduled generation pass",
				applogger.Int("signals", len(out.Signals)),
				applogger.Int("suppressed", len(out.Suppressed)),
				applogger.Int("failed", len(out.Errors)),
			)
		}
	}
}

// shutdown stops services in reverse start order: stop accepting work,
// drain buffers, then close clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.ingest != nil {
		if err := a.ingest.Flush(ctx); err != nil {
			a.l.Warn("candle flush error", applogger.Error(err))
		}
	}

	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	a.relay.Stop()
	a.hub.Stop()

	// Flush the error-log collector while the producer is still open.
	a.l.RemoveCollector()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
