package theme

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a user theme when a stylesheet in its directory changes.
// The whole directory is watched because themes import partials that live
// next to them.
type Watcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	theme  *Theme

	onChangeCallback func(css string)

	fs      *fsnotify.Watcher
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a new theme watcher.
func NewWatcher(theme *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger: logger,
		theme:  theme,
	}
}

// SetChangeCallback sets the function receiving the reloaded CSS.
func (w *Watcher) SetChangeCallback(callback func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChangeCallback = callback
}

// Start begins watching until ctx is done or Stop is called. Bundled
// themes have no file and are not watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if w.theme == nil || w.theme.Path == "" {
		w.logger.Debug("not watching bundled theme")
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(w.theme.Path)
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return err
	}

	w.fs = fs
	w.running = true
	w.doneCh = make(chan struct{})
	go w.watchLoop(ctx, fs, w.doneCh)

	w.logger.Debug("theme watcher started", "dir", dir)
	return nil
}

// Stop stops watching the theme directory.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	fs, done := w.fs, w.doneCh
	w.fs = nil
	w.mu.Unlock()

	_ = fs.Close()
	<-done
	w.logger.Debug("theme watcher stopped")
}

// UpdateTheme switches to a different theme in the same directory.
func (w *Watcher) UpdateTheme(theme *Theme) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.theme = theme
}

func (w *Watcher) watchLoop(ctx context.Context, fs *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".css" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.checkForChanges()
			}
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("theme watcher error", "error", err)
		}
	}
}

func (w *Watcher) checkForChanges() {
	w.mu.RLock()
	theme := w.theme
	callback := w.onChangeCallback
	w.mu.RUnlock()

	if theme == nil {
		return
	}

	changed, err := theme.Refresh()
	if err != nil {
		w.logger.Warn("failed to reload theme", "path", theme.Path, "error", err)
		return
	}
	if changed {
		w.logger.Info("theme file changed, reloading", "path", theme.Path)
		if callback != nil {
			callback(theme.CSS)
		}
	}
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
