package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"ShareWise/internal/domain/repository"
	"ShareWise/internal/domain/service"
	"ShareWise/internal/handler/api"
	mid "ShareWise/internal/middleware"
	internalrepo "ShareWise/internal/repository"
	icache "ShareWise/internal/service/cache"
	"ShareWise/internal/service/stream"
	"ShareWise/internal/services/backtest"
	"ShareWise/internal/services/drift"
	"ShareWise/internal/services/explain"
	"ShareWise/internal/services/indicators"
	"ShareWise/internal/services/mlengine"
	"ShareWise/internal/services/options"
	"ShareWise/internal/services/performance"
	"ShareWise/internal/services/scoring"
	"ShareWise/internal/usecase"
	pkgcache "ShareWise/pkg/cache"
	pkgch "ShareWise/pkg/clickhouse"
	"ShareWise/pkg/config"
	pkgkafka "ShareWise/pkg/kafka"
	applogger "ShareWise/pkg/logger"
	"ShareWise/pkg/metrics"
	"ShareWise/pkg/queue"
	"ShareWise/pkg/server"
)

// ProvideLogger creates the application logger. Production gets JSON,
// everything else console output.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "debug", Format: "console", Output: "stdout"}
	if cfg.Environment == "production" {
		lc.Level = "info"
		lc.Format = "json"
	}
	return applogger.New(lc)
}

// ProvideMetrics registers the Prometheus families once and hands the
// recorder out behind the domain Metrics interface.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaDDL); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer builds the shared writer used for signals, alerts
// and aggregated logs. Hash balancing keeps per-symbol ordering.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates the candle consumer with tracing and latency
// hooks attached.
func ProvideKafkaConsumer(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	// Tracing runs first so the observability hook sees the enriched context.
	tracing := pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafkago.Message, data []byte) (context.Context, kafkago.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return ctx, km, data, nil
		},
	}
	observe := pkgkafka.HookFuncs{
		After: func(ctx context.Context, _ string, _ kafkago.Message, _ []byte, err error) {
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok && err == nil {
				m.RecordLatency("consumer_handle_seconds", time.Since(start).Seconds())
			}
		},
		Err: func(ctx context.Context, topic string, _ kafkago.Message, _ []byte, err error) {
			m.RecordError("consumer_handle")
			fields := []applogger.Field{applogger.String("topic", topic), applogger.Error(err)}
			if tid := pkgkafka.TraceID(ctx); tid != "" {
				fields = append(fields, applogger.String("trace_id", tid))
			}
			l.Error("kafka message failed", fields...)
		},
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(tracing, observe))
	return consumer, nil
}

// ProvideRedisCache connects to Redis when enabled. A nil cache disables
// async backtest jobs; the rest of the app keeps running.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port, err := splitAddr(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(host, port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideJobCache exposes the job cache behind the generic cache Service.
// Returning the interface keeps the nil check meaningful downstream when
// Redis is disabled.
func ProvideJobCache(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return nil
	}
	// Job status is polled repeatedly while a backtest runs, so front the
	// Redis cache with a small in-process layer.
	return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(256))
}

// ProvideJobQueue builds the Redis-backed backtest job queue.
func ProvideJobQueue(rc *pkgcache.RedisCache, cfg *config.Config, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Backtest.Workers,
		RetryLimit: cfg.Backtest.RetryMax,
		RetryDelay: cfg.Backtest.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer)
}

// ProvideCandleStore creates the ClickHouse candle repository.
func ProvideCandleStore(ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHCandleStore {
	s := internalrepo.NewCHCandleStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideSignalStore creates the ClickHouse signal repository.
func ProvideSignalStore(ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHSignalStore {
	s := internalrepo.NewCHSignalStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideReportStore creates the ClickHouse report repository.
func ProvideReportStore(ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHReportStore {
	s := internalrepo.NewCHReportStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideSignalPublisher creates the Kafka publisher for signals and alerts.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) *internalrepo.KafkaSignalPublisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic, cfg.Kafka.AlertsTopic)
}

// ProvideSignalEngine selects the configured engine variant. ML variants get
// the rule-based scorer as a fallback; a kind without its backend configured
// fails here, at wiring time.
func ProvideSignalEngine(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (service.SignalEngine, error) {
	explainer := explain.NewExplainer()
	traditional := scoring.NewTraditionalEngine(scoring.NewScorer(scoring.Config{}), explainer)

	switch service.EngineKind(cfg.Signals.Engine) {
	case service.EngineTraditional:
		return traditional, nil
	case service.EngineEnsemble:
		return mlengine.NewFallbackEngine(mlengine.NewEnsembleEngine(cfg, explainer), traditional, m, l), nil
	case service.EngineDeepLearning:
		return mlengine.NewFallbackEngine(mlengine.NewDeepLearningEngine(cfg, explainer), traditional, m, l), nil
	case service.EngineAutoML:
		return mlengine.NewFallbackEngine(mlengine.NewAutoMLEngine(cfg, explainer), traditional, m, l), nil
	default:
		return nil, fmt.Errorf("unknown signal engine %q", cfg.Signals.Engine)
	}
}

// ProvideSignalRelay builds the throttling relay in front of the publisher.
func ProvideSignalRelay(pub repository.SignalPublisher, m repository.Metrics, cfg *config.Config) *mid.SignalRelay {
	var opts []mid.RelayOption
	if cfg.Stream.MaxPerSecond > 0 {
		opts = append(opts, mid.WithMaxPerSecond(cfg.Stream.MaxPerSecond))
	}
	if cfg.Stream.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Stream.BufferSize))
	}
	return mid.NewSignalRelay(pub, m, opts...)
}

// ProvideStreamHub creates the WebSocket fan-out hub.
func ProvideStreamHub(m repository.Metrics, l *applogger.Logger) *stream.Hub {
	return stream.NewHub(m, l)
}

// ProvideEmitter fans accepted signals to the Kafka relay and the hub.
func ProvideEmitter(relay *mid.SignalRelay, hub *stream.Hub) usecase.Emitter {
	return usecase.Emitters{relay, hub}
}

// ProvideSignalPipeline wires the generation pipeline.
func ProvideSignalPipeline(
	cfg *config.Config,
	candles repository.CandleStore,
	engine service.SignalEngine,
	store repository.SignalStore,
	emitter usecase.Emitter,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SignalPipeline {
	return usecase.NewSignalPipeline(
		usecase.PipelineConfig{
			Timeframe:     repository.Timeframe(cfg.Signals.Timeframe),
			LookbackBars:  cfg.Signals.LookbackBars,
			MinConfidence: cfg.Signals.MinConfidence,
			BatchTimeout:  cfg.Signals.BatchTimeout,
		},
		candles,
		indicators.NewEngine(indicators.Config{}),
		engine,
		store,
		emitter,
		m,
		l,
	)
}

// ProvideCandleIngest registers the handler for the candles topic.
func ProvideCandleIngest(cfg *config.Config, store repository.CandleWriter, m repository.Metrics, l *applogger.Logger) *usecase.CandleIngest {
	return usecase.NewCandleIngest(cfg.Kafka.CandlesTopic, store, m, l)
}

// ProvidePerformanceEngine creates the portfolio metrics engine.
func ProvidePerformanceEngine(cfg *config.Config) *performance.Engine {
	return performance.NewEngine(performance.Config{RiskFreeRate: cfg.Pricing.RiskFreeRate})
}

// ProvideGreeksCalculator creates the options pricing calculator.
func ProvideGreeksCalculator(cfg *config.Config) *options.Calculator {
	return options.NewCalculator(options.Config{RiskFreeRate: cfg.Pricing.RiskFreeRate})
}

// ProvideBacktestRunner wires the sync runner and its async job plumbing.
func ProvideBacktestRunner(
	candles repository.CandleStore,
	perf *performance.Engine,
	reports repository.ReportStore,
	cacheSvc pkgcache.Service,
	jobs *queue.RedisQueue,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.BacktestRunner {
	return usecase.NewBacktestRunner(candles, backtest.NewEngine(), perf, reports, cacheSvc, jobs, m, l)
}

// ProvideMonitoring wires drift evaluation with persistence and alerting.
func ProvideMonitoring(reports repository.ReportStore, pub repository.SignalPublisher, m repository.Metrics, l *applogger.Logger) *usecase.Monitoring {
	return usecase.NewMonitoring(drift.NewDetector(drift.Config{}), reports, pub, m, l)
}

// ProvideAPIHandler assembles the HTTP surface.
func ProvideAPIHandler(
	l *applogger.Logger,
	pipeline *usecase.SignalPipeline,
	signals repository.SignalStore,
	backtests *usecase.BacktestRunner,
	monitor *usecase.Monitoring,
	greeks *options.Calculator,
	perf *performance.Engine,
	hub *stream.Hub,
	cfg *config.Config,
	ch *pkgch.Client,
	rc *pkgcache.RedisCache,
) *api.Handler {
	opts := []api.Option{
		api.WithDefaultSymbols(cfg.Signals.Symbols),
		api.WithReadCache(icache.NewTTLCache()),
		api.WithHealthDep("clickhouse", ch),
	}
	if rc != nil {
		opts = append(opts, api.WithHealthDep("redis", redisHealth{rc}))
	}
	return api.New(l, pipeline, signals, backtests, monitor, greeks, perf, hub, opts...)
}

// ProvideApp assembles the process-level App and attaches the aggregated
// log collector, which needs the producer and so cannot be set up earlier.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.Handler,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	ingest *usecase.CandleIngest,
	pipeline *usecase.SignalPipeline,
	runner *usecase.BacktestRunner,
	relay *mid.SignalRelay,
	hub *stream.Hub,
	jobs *queue.RedisQueue,
	publisher repository.SignalPublisher,
	ch *pkgch.Client,
	rc *pkgcache.RedisCache,
) *server.App {
	if cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producerLogSink{producer: producer},
		})
	}
	return server.New(cfg, l, handler, consumer, ingest, pipeline, runner, relay, hub, jobs, publisher, ch, rc)
}

// producerLogSink ships aggregated error logs through the shared Kafka producer.
type producerLogSink struct {
	producer *pkgkafka.Producer
}

func (s producerLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

// redisHealth adapts the cache client to the health probe interface.
type redisHealth struct {
	rc *pkgcache.RedisCache
}

func (h redisHealth) Health(ctx context.Context) error {
	return h.rc.Client().Ping(ctx).Err()
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("port %q: %w", portStr, err)
	}
	return host, port, nil
}
