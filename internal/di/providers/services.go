package providers

import (
	"github.com/samber/do/v2"

	"github.com/kidobra/kidobra-server/internal/auth"
	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/logger"
	"github.com/kidobra/kidobra-server/internal/service"
)

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, log.Logger), nil
}

// ProvideEbookService provides the ebook curation service.
func ProvideEbookService(i do.Injector) (*service.EbookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEbookService(storeHandle.Store, cat, log.Logger), nil
}

// ProvideCatalogService provides the catalog browsing and search service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	cat := do.MustInvoke[*catalog.Catalog](i)
	idxHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(cat, idxHandle.Index, log.Logger), nil
}
