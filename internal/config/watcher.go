package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-reads a config file when it changes and notifies subscribers.
// Only settings that are safe to change at runtime should be applied by
// subscribers; the mapping registry is built once at start-up.
type Watcher struct {
	path string

	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
	onError  func(error)
}

// NewWatcher creates a Watcher seeded with the already loaded config.
func NewWatcher(path string, current *Config) *Watcher {
	return &Watcher{path: filepath.Clean(path), current: current, onError: func(error) {}}
}

// Config returns the latest successfully loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// OnError registers the callback for reload and watcher errors.
func (w *Watcher) OnError(fn func(error)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// kubeDataLink is the symlink a mounted ConfigMap swaps on every update.
const kubeDataLink = "..data"

// Watch starts watching the file until ctx is done. The parent directory is
// watched so that atomic replacement (rename over the file, or a ConfigMap
// symlink swap) keeps triggering reloads.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatchConfig, err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("%w: add %s: %w", ErrWatchConfig, dir, err)
	}

	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if w.affects(ev) {
					if _, err := w.Reload(ctx); err != nil {
						w.reportError(err)
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.reportError(fmt.Errorf("%w: %w", ErrWatchConfig, err))
			}
		}
	}()
	return nil
}

// Reload forces an immediate re-read. On failure the previous config is kept.
func (w *Watcher) Reload(ctx context.Context) (*Config, error) {
	cfg, err := LoadFile(ctx, w.path)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.current = cfg
	callbacks := make([]func(*Config), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

// affects reports whether ev may have changed the watched file's content.
func (w *Watcher) affects(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Clean(ev.Name)
	return name == w.path || filepath.Base(name) == kubeDataLink
}

func (w *Watcher) reportError(err error) {
	w.mu.RLock()
	fn := w.onError
	w.mu.RUnlock()
	fn(err)
}
