package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeHandler receives the configuration after a successful reload
type ChangeHandler func(cfg *Config)

// Watcher reloads the configuration file when it changes on disk and hands
// the result to registered handlers. Invalid edits are logged and ignored so
// the running configuration stays in effect.
type Watcher struct {
	path     string
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	handlers []ChangeHandler
	mu       sync.Mutex
	timer    *time.Timer
	closed   bool

	debounceDelay time.Duration
}

// NewWatcher creates a watcher for the file cfg was loaded from
func NewWatcher(cfg *Config, logger *zap.Logger) (*Watcher, error) {
	if cfg.Source() == "" {
		return nil, fmt.Errorf("configuration was not loaded from a file")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Editors replace files on save, so watch the directory rather than the file
	if err := fw.Add(filepath.Dir(cfg.Source())); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Source(), err)
	}

	return &Watcher{
		path:          filepath.Clean(cfg.Source()),
		logger:        logger.Named("config-watcher"),
		watcher:       fw,
		debounceDelay: 250 * time.Millisecond,
	}, nil
}

// OnChange registers a handler for reloaded configurations
func (w *Watcher) OnChange(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Run processes file events until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// schedule debounces bursts of events from a single save
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDelay, w.reload)
}

// reload may still run after Close when the timer had already fired, so it
// checks closed before loading and again before calling handlers
func (w *Watcher) reload() {
	if w.isClosed() {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("ignoring invalid configuration change", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	handlers := append([]ChangeHandler(nil), w.handlers...)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded", zap.String("path", w.path))
	for _, handler := range handlers {
		handler(cfg)
	}
}

func (w *Watcher) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
