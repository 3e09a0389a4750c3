//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"GlucoPlot/pkg/config"
	"GlucoPlot/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideEventStore,
		ProvideRedisClient,
		ProvideCacheStore,
		ProvideBlobStore,
		ProvideKafkaProducer,
		ProvidePublisher,
		ProvideKafkaConsumer,
		ProvideRenderer,

		// Use cases
		ProvidePlotterConfig,
		ProvidePlotter,
		ProvideReport,
		ProvideQueue,
		ProvideScheduler,

		// Transport
		ProvideLimiter,
		ProvideLiveHub,
		ProvideLivePipeline,
		ProvideEventsHandler,
		ProvideHealthChecks,
		ProvideHTTPServer,

		wire.Struct(new(server.Components), "*"),
		ProvideApp,
	)
	return nil, nil, nil
}
