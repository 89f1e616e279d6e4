package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/store"
)

// reloadDelay coalesces the bursts of events editors produce on save.
const reloadDelay = 150 * time.Millisecond

// fileWatcher calls onChange once a file has settled after a change. The
// parent directory is watched so atomic replaces are seen too.
type fileWatcher struct {
	path     string
	logger   *slog.Logger
	delay    time.Duration
	onChange func()
}

// Run watches until ctx is done.
func (w *fileWatcher) Run(ctx context.Context) error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fs.Close() }()

	dir := filepath.Dir(w.path)
	if err := fs.Add(dir); err != nil {
		w.logger.Warn("hot reload disabled", "dir", dir, "error", err)
		<-ctx.Done()
		return nil
	}
	w.logger.Debug("watching file", "path", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.delay, w.onChange)
			mu.Unlock()
		case err, ok := <-fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "path", w.path, "error", err)
		}
	}
}

// ConfigWatcher reloads the daemon configuration when its file changes.
// A configuration that fails to load or validate is reported and the
// previous one stays active.
type ConfigWatcher struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	current  *config.DaemonConfig
	onReload func(cfg *config.DaemonConfig)
	onError  func(err error)
}

// NewConfigWatcher watches the configuration at path.
func NewConfigWatcher(path string, current *config.DaemonConfig, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{path: path, current: current, logger: logger}
}

// SetReloadCallback sets the function receiving each accepted configuration.
func (w *ConfigWatcher) SetReloadCallback(fn func(cfg *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// SetErrorCallback sets the function receiving rejected reloads.
func (w *ConfigWatcher) SetErrorCallback(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Current returns the active configuration.
func (w *ConfigWatcher) Current() *config.DaemonConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run watches until ctx is done.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	fw := &fileWatcher{path: w.path, logger: w.logger, delay: reloadDelay, onChange: w.Reload}
	return fw.Run(ctx)
}

// Reload reads the configuration file now.
func (w *ConfigWatcher) Reload() {
	cfg, err := config.LoadDaemonConfigFrom(w.path)

	w.mu.Lock()
	onReload, onError := w.onReload, w.onError
	if err == nil {
		w.current = cfg
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("configuration rejected", "path", w.path, "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}
	w.logger.Info("configuration reloaded", "path", w.path)
	if onReload != nil {
		onReload(cfg)
	}
}

// StateWatcher follows the state file shared with the CLI and reports
// mute changes.
type StateWatcher struct {
	path   string
	logger *slog.Logger
	load   func() (*store.SharedState, error)

	mu       sync.Mutex
	muted    bool
	onChange func(state *store.SharedState)
}

// NewStateWatcher watches the shared state at path. initial is the state
// the daemon started with.
func NewStateWatcher(path string, initial *store.SharedState, logger *slog.Logger) *StateWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateWatcher{
		path:   path,
		logger: logger,
		load:   store.LoadSharedState,
		muted:  initial != nil && initial.Muted,
	}
}

// SetChangeCallback sets the function receiving a state whose mute flag
// changed.
func (w *StateWatcher) SetChangeCallback(fn func(state *store.SharedState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Run watches until ctx is done.
func (w *StateWatcher) Run(ctx context.Context) error {
	fw := &fileWatcher{path: w.path, logger: w.logger, delay: reloadDelay, onChange: w.check}
	return fw.Run(ctx)
}

func (w *StateWatcher) check() {
	state, err := w.load()
	if err != nil {
		w.logger.Warn("failed to reload shared state", "error", err)
		return
	}

	w.mu.Lock()
	changed := state.Muted != w.muted
	w.muted = state.Muted
	onChange := w.onChange
	w.mu.Unlock()

	if changed && onChange != nil {
		w.logger.Info("mute changed", "muted", state.Muted, "by", state.MutedBy)
		onChange(state)
	}
}
