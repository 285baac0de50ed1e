//go:build wireinject
// +build wireinject

package di

import (
	"CandleQuery/pkg/config"
	"CandleQuery/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideObjStoreClient,
		ProvideObjectStore,
		ProvideCacheService,

		// Engine and planning
		ProvideQueryEngine,
		ProvidePathPlanner,

		// Services
		ProvideMarketDataCache,
		ProvideMonitor,
		ProvideMetadataService,
		ProvideCatalogService,

		// Use cases
		ProvideGovernor,
		ProvideBoundaryResolver,
		ProvideMarketDataUseCase,

		// HTTP surface
		ProvideSystemHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
