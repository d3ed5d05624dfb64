//go:build wireinject
// +build wireinject

package di

import (
	"OilScope/pkg/config"
	"OilScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Data stores
		ProvidePriceStore,
		ProvideEventStore,

		// Optional infrastructure
		ProvideRedisCache,
		ProvideCacheService,
		ProvideClickHouseSink,
		ProvideResultsPublisher,

		// Pipeline
		ProvideAnalysisUseCase,
		ProvideJobQueue,

		// HTTP surface
		ProvideProgressHub,
		ProvideAnalysisHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
