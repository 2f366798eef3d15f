package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/kidobra/kidobra-server/internal/api"
	"github.com/kidobra/kidobra-server/internal/config"
	"github.com/kidobra/kidobra-server/internal/export"
	"github.com/kidobra/kidobra-server/internal/logger"
	"github.com/kidobra/kidobra-server/internal/service"
)

// ProvideExporter provides the PDF exporter.
func ProvideExporter(i do.Injector) (*export.Exporter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	fetcher := export.NewImageFetcher(cfg.Export.ImageProxyURL, cfg.Export.FetchTimeout)
	return export.NewExporter(fetcher, log.Logger), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	authService := do.MustInvoke[*service.AuthService](i)
	ebookService := do.MustInvoke[*service.EbookService](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	exporter := do.MustInvoke[*export.Exporter](i)

	handler := api.NewServer(
		storeHandle.Store,
		authService,
		ebookService,
		catalogService,
		exporter,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
