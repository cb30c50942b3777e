package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"breathe/internal/logging"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file when it changes on disk and hands the new value
// to a callback. It watches the parent directory because editors usually replace the
// file rather than writing it in place.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	debounceDur time.Duration
	timer       *time.Timer
	onChange    func(*Config)
	doneCh      chan struct{}
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        filepath.Clean(path),
		debounceDur: 250 * time.Millisecond,
		onChange:    onChange,
		doneCh:      make(chan struct{}),
	}, nil
}

// Run blocks until ctx is cancelled, reloading on every settled change.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryConfig)
	defer close(w.doneCh)
	defer w.watcher.Close()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	log.Debug("watching config", zap.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Done is closed once Run has returned.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDur, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("config reload failed", zap.Error(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		logging.Get(logging.CategoryConfig).Warn("reloaded config invalid", zap.Error(err))
		return
	}
	logging.Get(logging.CategoryConfig).Info("config reloaded", zap.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
