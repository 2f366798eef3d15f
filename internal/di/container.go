// Package di provides dependency injection configuration for the Kidobra server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/kidobra/kidobra-server/internal/auth"
	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/config"
	"github.com/kidobra/kidobra-server/internal/di/providers"
	"github.com/kidobra/kidobra-server/internal/export"
	"github.com/kidobra/kidobra-server/internal/logger"
	"github.com/kidobra/kidobra-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Catalog and search layer
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideCatalogWatcher)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Export layer
	do.Provide(injector, providers.ProvideExporter)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideEbookService)
	do.Provide(injector, providers.ProvideCatalogService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*catalog.Catalog](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.CatalogWatcherHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*export.Exporter](injector)

	// Business services
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.EbookService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
