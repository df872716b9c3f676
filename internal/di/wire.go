//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ShareWise/internal/domain/repository"
	internalrepo "ShareWise/internal/repository"
	"ShareWise/pkg/config"
	"ShareWise/pkg/server"
)

// InitializeApp builds the full object graph from config. The body is
// replaced by the generated implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Storage, messaging and cache clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideJobCache,
		ProvideJobQueue,

		// Repositories
		ProvideCandleStore,
		ProvideSignalStore,
		ProvideReportStore,
		ProvideSignalPublisher,
		wire.Bind(new(repository.CandleStore), new(*internalrepo.CHCandleStore)),
		wire.Bind(new(repository.CandleWriter), new(*internalrepo.CHCandleStore)),
		wire.Bind(new(repository.SignalStore), new(*internalrepo.CHSignalStore)),
		wire.Bind(new(repository.ReportStore), new(*internalrepo.CHReportStore)),
		wire.Bind(new(repository.SignalPublisher), new(*internalrepo.KafkaSignalPublisher)),

		// Domain engines
		ProvideSignalEngine,
		ProvidePerformanceEngine,
		ProvideGreeksCalculator,

		// Use cases
		ProvideSignalRelay,
		ProvideStreamHub,
		ProvideEmitter,
		ProvideSignalPipeline,
		ProvideCandleIngest,
		ProvideBacktestRunner,
		ProvideMonitoring,

		// HTTP surface and application server
		ProvideAPIHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
