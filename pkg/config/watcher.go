package config

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// Watcher hot-reloads the configuration file and exposes the current
// validated snapshot. A reload that fails to parse or validate is logged
// and discarded; the previous snapshot stays in effect.
type Watcher struct {
	path    string
	log     *telemetry.Logger
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
	onSwap  func(*Config)
}

// NewWatcher creates a watcher seeded with the given snapshot. onSwap,
// if non-nil, is called with each new snapshot after it is published.
func NewWatcher(path string, initial *Config, log *telemetry.Logger, onSwap func(*Config)) *Watcher {
	if log == nil {
		log = telemetry.NopLogger()
	}
	w := &Watcher{
		path:   path,
		log:    log.NewComponentLogger("config-watcher"),
		onSwap: onSwap,
	}
	w.current.Store(initial)
	return w
}

// Current returns the latest validated configuration snapshot.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Watch observes the configuration file until ctx is cancelled.
// Events are debounced so editors that write in several steps trigger
// a single reload.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher

	if err := watcher.Add(w.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	go w.processEvents(ctx)

	w.log.WithField("path", w.path).Info("Started watching configuration file")
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	var reloadTimer *time.Timer
	reloadDelay := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.log.WithField("op", event.Op.String()).Debug("Configuration file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Configuration watcher error")
		}
	}
}

// reload loads, validates and publishes a new snapshot.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.WithError(err).Error("Configuration reload failed, keeping previous snapshot")
		return
	}

	w.current.Store(cfg)
	w.log.Info("Configuration reloaded")

	if w.onSwap != nil {
		w.onSwap(cfg)
	}
}
