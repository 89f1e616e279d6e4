package audio

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/notify"
)

// ErrRateLimited is returned when a sound is dropped because too many
// widgets were created in a short time.
var ErrRateLimited = errors.New("sound rate limited")

// sink plays and caches decoded sounds. *Player is the real one.
type sink interface {
	Play(path string) error
	Preload(path string) error
	InvalidateCache(path string)
	ClearCache()
	SetVolume(volume float64)
	Close()
}

// Manager maps widget kinds to sound files and plays them. It implements
// notify.SoundPlayer.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  sink
	watcher *Watcher
	config  *config.DaemonConfig
	limiter *rate.Limiter
	muted   atomic.Bool

	sounds map[notify.Kind]string
}

var _ notify.SoundPlayer = (*Manager)(nil)

// NewManager creates a new audio manager backed by the system speaker.
func NewManager(cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	return newManager(cfg, NewPlayer(logger), logger)
}

func newManager(cfg *config.DaemonConfig, player sink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}

	m := &Manager{
		logger:  logger,
		player:  player,
		watcher: NewWatcher(player, logger),
		config:  cfg,
		sounds:  make(map[notify.Kind]string),
	}
	m.loadSoundConfig()
	return m
}

// loadSoundConfig resolves the per-kind sound files and limiter.
func (m *Manager) loadSoundConfig() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.player.SetVolume(float64(m.config.Audio.Volume) / 100.0)

	limit := rate.Inf
	if m.config.Audio.RateLimit > 0 {
		limit = rate.Limit(m.config.Audio.RateLimit)
	}
	burst := max(m.config.Audio.Burst, 1)
	m.limiter = rate.NewLimiter(limit, burst)

	m.sounds = make(map[notify.Kind]string)
	for _, kind := range notify.Kinds() {
		path := resolveSound(m.config.SoundFor(kind))
		if path == "" {
			continue
		}
		m.sounds[kind] = path
		m.logger.Debug("loaded sound", "kind", kind.String(), "path", path)
	}
}

// resolveSound returns path if it exists, otherwise the same file with
// the other supported compressed extension ("x.ogg" <-> "x.mp3"), or "".
func resolveSound(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}

	ext := strings.ToLower(filepath.Ext(path))
	var alt string
	switch ext {
	case ".ogg":
		alt = strings.TrimSuffix(path, filepath.Ext(path)) + ".mp3"
	case ".mp3":
		alt = strings.TrimSuffix(path, filepath.Ext(path)) + ".ogg"
	default:
		return ""
	}
	if _, err := os.Stat(alt); err == nil {
		return alt
	}
	return ""
}

// Start preloads the sounds and starts the file watcher.
func (m *Manager) Start(ctx context.Context) error {
	m.preloadAndWatch()

	if err := m.watcher.Start(ctx); err != nil {
		return err
	}

	m.mu.RLock()
	n := len(m.sounds)
	m.mu.RUnlock()
	m.logger.Info("audio manager started", "sounds", n)
	return nil
}

func (m *Manager) preloadAndWatch() {
	m.mu.RLock()
	paths := make([]string, 0, len(m.sounds))
	for _, path := range m.sounds {
		paths = append(paths, path)
	}
	m.mu.RUnlock()

	for _, path := range paths {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
		m.watcher.Watch(path)
	}
}

// Stop shuts down the audio manager.
func (m *Manager) Stop() {
	m.watcher.Stop()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// PlaySound plays the sound of kind. Missing files, mute and rate limiting
// are not errors the caller has to act on, but are reported so they can
// be logged.
func (m *Manager) PlaySound(kind notify.Kind) error {
	m.mu.RLock()
	enabled := m.config.Audio.Enabled
	path, ok := m.sounds[kind]
	limiter := m.limiter
	m.mu.RUnlock()

	if !enabled || m.muted.Load() {
		return nil
	}
	if !ok {
		m.logger.Debug("no sound configured for kind", "kind", kind.String())
		return nil
	}
	if !limiter.Allow() {
		return ErrRateLimited
	}
	return m.player.Play(path)
}

// SetMuted silences or restores sounds.
func (m *Manager) SetMuted(muted bool) {
	if m.muted.Swap(muted) != muted {
		m.logger.Info("sound mute changed", "muted", muted)
	}
}

// Muted reports whether sounds are muted.
func (m *Manager) Muted() bool {
	return m.muted.Load()
}

// SoundPath returns the resolved sound file of kind, "" when none.
func (m *Manager) SoundPath(kind notify.Kind) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sounds[kind]
}

// UpdateConfig applies a hot-reloaded configuration and reloads sounds.
func (m *Manager) UpdateConfig(cfg *config.DaemonConfig) {
	m.mu.Lock()
	m.config = cfg
	old := make([]string, 0, len(m.sounds))
	for _, path := range m.sounds {
		old = append(old, path)
	}
	m.mu.Unlock()

	m.player.ClearCache()
	m.loadSoundConfig()

	m.mu.RLock()
	current := make(map[string]bool, len(m.sounds))
	for _, path := range m.sounds {
		current[path] = true
	}
	m.mu.RUnlock()
	for _, path := range old {
		if !current[path] {
			m.watcher.Unwatch(path)
		}
	}
	m.preloadAndWatch()
	m.logger.Debug("audio manager config updated")
}
