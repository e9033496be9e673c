//go:build wireinject
// +build wireinject

package di

import (
	"StockCharts/pkg/config"
	"StockCharts/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideHistoryStore,
		ProvideHistorySource,
		ProvideHistoryCache,
		ProvideEventPublisher,

		// Use cases
		ProvidePipeline,
		ProvideChartsUseCase,

		// Transport and background jobs
		ProvideLimiter,
		ProvideResources,
		ProvideHTTPServer,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
