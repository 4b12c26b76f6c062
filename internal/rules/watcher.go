package rules

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/planwright/planwright/internal/logger"
)

var log = logger.ForComponent("rules")

// WatcherConfig tunes the catalog hot-reload watcher.
type WatcherConfig struct {
	Enabled        bool          `yaml:"enabled"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
}

func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Enabled:        true,
		DebounceWindow: 300 * time.Millisecond,
	}
}

// Watcher keeps a catalog directory and a live *Catalog in sync. Edits
// are debounced, reloaded as a whole, and swapped in atomically; a
// malformed file keeps the previous catalog in place.
type Watcher struct {
	dir       string
	config    WatcherConfig
	fsWatcher *fsnotify.Watcher

	mu         sync.RWMutex
	current    *Catalog
	generation uint64

	timerMu sync.Mutex
	timer   *time.Timer

	cancel context.CancelFunc
}

// NewWatcher loads the catalog from dir and prepares the watcher. Call
// Start to begin receiving updates.
func NewWatcher(dir string, config WatcherConfig) (*Watcher, error) {
	catalog, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:       dir,
		config:    config,
		fsWatcher: fsw,
		current:   catalog,
	}, nil
}

// Catalog returns the current catalog. The returned value is never
// mutated; a reload swaps in a fresh one.
func (w *Watcher) Catalog() *Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// CatalogGeneration returns the current catalog together with its
// reload generation. The generation only advances on a successful
// reload, so it is a stable identity for cache keys.
func (w *Watcher) CatalogGeneration() (*Catalog, uint64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current, w.generation
}

// Start begins watching the catalog directory. No-op when disabled or
// the directory does not exist.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.config.Enabled {
		return nil
	}
	if err := w.fsWatcher.Add(w.dir); err != nil {
		log.Warn("catalog directory not watchable, hot reload disabled", "dir", w.dir, "error", err)
		return nil
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.handleEvents(ctx)
	log.Info("watching rule catalog", "dir", w.dir)
	return nil
}

func (w *Watcher) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isCatalogFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				log.Debug("catalog file event", "path", event.Name, "op", event.Op.String())
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("catalog watcher error", "error", err)
		}
	}
}

func (w *Watcher) isCatalogFile(path string) bool {
	ok, _ := doublestar.Match(CatalogPattern, filepath.Base(path))
	return ok
}

// scheduleReload debounces bursts of writes (editors save in several
// events) into a single reload.
func (w *Watcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceWindow, w.reload)
}

func (w *Watcher) reload() {
	catalog, err := LoadDir(w.dir)
	if err != nil {
		log.Error("catalog reload failed, keeping previous catalog", "error", err)
		return
	}

	w.mu.Lock()
	w.current = catalog
	w.generation++
	w.mu.Unlock()

	log.Info("rule catalog reloaded", "jurisdiction", catalog.Jurisdiction)
}

// Stop halts the watcher.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerMu.Unlock()
	return w.fsWatcher.Close()
}
