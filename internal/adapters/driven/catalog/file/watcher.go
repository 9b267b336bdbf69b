package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/driveroute/internal/core/ports/driving"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-hydrates the catalog when its file changes.
// It watches the parent directory so atomic renames are seen, and ignores
// writes that leave the content identical to what the source last read or
// wrote, including the source's own Save.
type Watcher struct {
	source   *Source
	catalog  driving.CatalogService
	debounce time.Duration
}

// NewWatcher creates a watcher. A non-positive debounce selects DefaultDebounce.
func NewWatcher(source *Source, catalog driving.CatalogService, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{source: source, catalog: catalog, debounce: debounce}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	target, err := filepath.Abs(w.source.Location())
	if err != nil {
		return fmt.Errorf("resolve catalog path: %w", err)
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Debug("[CATALOG] watching %s", target)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("[CATALOG] watcher error: %v", err)

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if !w.source.Modified() {
		logger.Debug("[CATALOG] %s unchanged; skipping", w.source.Location())
		return
	}
	if _, err := w.catalog.Hydrate(ctx); err != nil {
		logger.Warn("[CATALOG] reload of %s failed, keeping previous labels: %v", w.source.Location(), err)
		return
	}
	logger.Info("[CATALOG] reloaded %s", w.source.Location())
}
