//go:build wireinject
// +build wireinject

package di

import (
	"LevRecon/pkg/config"
	"LevRecon/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegisterer,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,

		// Repositories and sinks
		ProvideSnapshotStore,
		ProvidePriceBook,
		ProvideReportStore,
		ProvideClickHouseSink,
		ProvideLiveHub,
		ProvideResultSink,
		ProvideRuntimeCollector,

		// Domain services
		ProvideClassifier,
		ProvideAggregator,
		ProvideSynthesizer,
		ProvideNormalizer,

		// Use cases
		ProvideReconciler,
		ProvideTiersHandler,
		ProvideUniverseHandler,
		ProvideIngestHandlers,

		// HTTP
		ProvideRateLimiter,
		ProvideAPIHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
