package catalog

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the catalog when the manifest file changes on disk.
// The ingestion job replaces the manifest atomically (write + rename),
// so a short debounce is enough to avoid reading half-written files.
type Watcher struct {
	catalog      *Catalog
	manifestPath string
	logger       *slog.Logger
	fsw          *fsnotify.Watcher
	done         chan struct{}
	onReload     func()
}

const reloadDebounce = 500 * time.Millisecond

// NewWatcher starts watching the manifest file and reloading the catalog.
func NewWatcher(catalog *Catalog, manifestPath string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors and the ingest job replace the file,
	// which would drop a watch on the file itself.
	if err := fsw.Add(filepath.Dir(manifestPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		catalog:      catalog,
		manifestPath: manifestPath,
		logger:       logger,
		fsw:          fsw,
		done:         make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// SetOnReload registers a callback invoked after each successful catalog
// reload. Used to rebuild the search index alongside the catalog.
func (w *Watcher) SetOnReload(fn func()) {
	w.onReload = fn
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.manifestPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Debounce rapid successive events into one reload.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

// reload loads the manifest and swaps the catalog. A broken manifest is
// logged and skipped; the previous catalog stays live.
func (w *Watcher) reload() {
	m, err := LoadManifest(w.manifestPath)
	if err != nil {
		w.logger.Error("catalog reload failed, keeping previous catalog",
			"path", w.manifestPath,
			"error", err,
		)
		return
	}

	w.catalog.Replace(m)
	w.logger.Info("catalog reloaded",
		"categories", len(m.Categories),
		"activities", len(m.Activities),
	)

	if w.onReload != nil {
		w.onReload()
	}
}
