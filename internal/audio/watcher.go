package audio

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// invalidator drops a cached sound.
type invalidator interface {
	InvalidateCache(path string)
}

// Watcher invalidates cached sounds when their files change. Parent
// directories are watched so editors that replace files atomically are
// seen too.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	cache  invalidator

	fs    *fsnotify.Watcher
	paths map[string]bool
	dirs  map[string]bool

	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a new audio file watcher.
func NewWatcher(cache invalidator, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		logger: logger,
		cache:  cache,
		paths:  make(map[string]bool),
		dirs:   make(map[string]bool),
	}
}

// Watch adds a path to the watch list.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}

	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths[path] = true
	dir := filepath.Dir(path)
	if w.dirs[dir] {
		return
	}
	w.dirs[dir] = true
	if w.fs != nil {
		if err := w.fs.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}
}

// Unwatch removes a path from the watch list.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.paths, filepath.Clean(path))
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for dir := range w.dirs {
		if err := fs.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}

	w.fs = fs
	w.running = true
	w.doneCh = make(chan struct{})
	go w.watchLoop(ctx, fs, w.doneCh)

	w.logger.Debug("audio watcher started", "dirs", len(w.dirs))
	return nil
}

// Stop stops watching audio files.
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
	w.logger.Debug("audio watcher stopped")
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
			w.handle(event)
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("audio watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	watched := w.paths[event.Name]
	w.mu.Unlock()
	if !watched {
		return
	}

	w.logger.Debug("sound file changed, invalidating cache", "path", event.Name)
	w.cache.InvalidateCache(event.Name)
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
