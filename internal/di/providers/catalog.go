package providers

import (
	"github.com/samber/do/v2"

	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/config"
	"github.com/kidobra/kidobra-server/internal/logger"
	"github.com/kidobra/kidobra-server/internal/search"
)

// ProvideCatalog loads the activity catalog from the manifest file.
// A missing or broken manifest is not fatal: the server starts with an
// empty catalog and picks up the manifest once the watcher sees it.
func ProvideCatalog(i do.Injector) (*catalog.Catalog, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	m, err := catalog.LoadManifest(cfg.Catalog.ManifestPath)
	if err != nil {
		log.Warn("Catalog manifest not loaded, starting with empty catalog",
			"path", cfg.Catalog.ManifestPath,
			"error", err,
		)
		m = &catalog.Manifest{}
	}

	cat := catalog.New(m)

	log.Info("Catalog loaded",
		"path", cfg.Catalog.ManifestPath,
		"categories", len(m.Categories),
		"activities", cat.ActivityCount(),
	)

	return cat, nil
}

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex builds the in-memory search index from the catalog.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cat := do.MustInvoke[*catalog.Catalog](i)
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := search.New(log.Logger)
	if err != nil {
		return nil, err
	}

	if err := rebuildIndex(idx, cat); err != nil {
		_ = idx.Close()
		return nil, err
	}

	docs, _ := idx.DocumentCount()
	log.Info("Search index built", "documents", docs)

	return &SearchIndexHandle{Index: idx}, nil
}

// CatalogWatcherHandle wraps the manifest watcher with shutdown capability.
// The watcher is nil when hot reload is disabled.
type CatalogWatcherHandle struct {
	*catalog.Watcher
	watching bool
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.watching && h.Watcher != nil {
		return h.Close()
	}
	return nil
}

// ProvideCatalogWatcher starts the manifest hot-reload watcher and wires
// it to rebuild the search index after each catalog swap.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	idxHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Catalog.Watch {
		log.Info("Catalog hot reload disabled")
		return &CatalogWatcherHandle{}, nil
	}

	w, err := catalog.NewWatcher(cat, cfg.Catalog.ManifestPath, log.Logger)
	if err != nil {
		return nil, err
	}

	w.SetOnReload(func() {
		if err := rebuildIndex(idxHandle.Index, cat); err != nil {
			log.Error("Search index rebuild after catalog reload failed", "error", err)
			return
		}
		docs, _ := idxHandle.DocumentCount()
		log.Info("Search index rebuilt", "documents", docs)
	})

	log.Info("Catalog watcher started", "path", cfg.Catalog.ManifestPath)

	return &CatalogWatcherHandle{Watcher: w, watching: true}, nil
}

// rebuildIndex reindexes the current catalog snapshot.
func rebuildIndex(idx *search.Index, cat *catalog.Catalog) error {
	categoryNames := make(map[string]string)
	for _, c := range cat.Categories() {
		categoryNames[c.ID] = c.Name
	}
	return idx.Rebuild(cat.Activities(), categoryNames)
}
