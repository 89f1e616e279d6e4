package audio

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/notify"
)

type fakeSink struct {
	mu          sync.Mutex
	played      []string
	preloaded   []string
	invalidated []string
	volume      float64
	cleared     int
}

func (f *fakeSink) Play(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, path)
	return nil
}

func (f *fakeSink) Preload(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloaded = append(f.preloaded, path)
	return nil
}

func (f *fakeSink) InvalidateCache(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, path)
}

func (f *fakeSink) ClearCache()              { f.cleared++ }
func (f *fakeSink) SetVolume(volume float64) { f.volume = volume }
func (f *fakeSink) Close()                   {}

func (f *fakeSink) invalidatedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invalidated...)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("sound"), 0o644))
}

func soundConfig(t *testing.T) (*config.DaemonConfig, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Dir = dir
	cfg.Audio.RateLimit = 0
	return cfg, dir
}

func TestPlaySoundPerKind(t *testing.T) {
	cfg, dir := soundConfig(t)
	touch(t, filepath.Join(dir, "smallbox.ogg"))
	touch(t, filepath.Join(dir, "bigbox.mp3"))
	explicit := filepath.Join(dir, "custom.wav")
	touch(t, explicit)
	cfg.Audio.Sounds.MessageBox = explicit

	sink := &fakeSink{}
	m := newManager(cfg, sink, nil)

	for _, kind := range notify.Kinds() {
		require.NoError(t, m.PlaySound(kind))
	}

	assert.Equal(t, []string{
		explicit,
		filepath.Join(dir, "bigbox.mp3"),
		filepath.Join(dir, "smallbox.ogg"),
	}, sink.played, "bigbox.ogg is missing so the mp3 is used")
	assert.InDelta(t, 0.8, sink.volume, 1e-9)
}

func TestPlaySoundSkipsMissingDisabledAndMuted(t *testing.T) {
	cfg, dir := soundConfig(t)
	touch(t, filepath.Join(dir, "smallbox.ogg"))

	sink := &fakeSink{}
	m := newManager(cfg, sink, nil)

	require.NoError(t, m.PlaySound(notify.KindBigBox))
	assert.Empty(t, m.SoundPath(notify.KindBigBox))

	m.SetMuted(true)
	assert.True(t, m.Muted())
	require.NoError(t, m.PlaySound(notify.KindSmallBox))

	m.SetMuted(false)
	disabled := *cfg
	disabled.Audio.Enabled = false
	m.UpdateConfig(&disabled)
	require.NoError(t, m.PlaySound(notify.KindSmallBox))

	assert.Empty(t, sink.played)
	assert.Equal(t, 1, sink.cleared)
}

func TestPlaySoundRateLimited(t *testing.T) {
	cfg, dir := soundConfig(t)
	touch(t, filepath.Join(dir, "smallbox.ogg"))
	cfg.Audio.RateLimit = 0.001
	cfg.Audio.Burst = 2

	sink := &fakeSink{}
	m := newManager(cfg, sink, nil)

	require.NoError(t, m.PlaySound(notify.KindSmallBox))
	require.NoError(t, m.PlaySound(notify.KindSmallBox))
	assert.ErrorIs(t, m.PlaySound(notify.KindSmallBox), ErrRateLimited)
	assert.Len(t, sink.played, 2)
}

func TestResolveSound(t *testing.T) {
	dir := t.TempDir()
	ogg := filepath.Join(dir, "a.ogg")
	touch(t, ogg)

	assert.Equal(t, ogg, resolveSound(ogg))
	assert.Equal(t, ogg, resolveSound(filepath.Join(dir, "a.mp3")))
	assert.Empty(t, resolveSound(filepath.Join(dir, "b.ogg")))
	assert.Empty(t, resolveSound(filepath.Join(dir, "a.wav")))
	assert.Empty(t, resolveSound(""))
}

func TestWatcherInvalidatesChangedSound(t *testing.T) {
	cfg, dir := soundConfig(t)
	path := filepath.Join(dir, "smallbox.ogg")
	touch(t, path)

	sink := &fakeSink{}
	m := newManager(cfg, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	assert.Equal(t, []string{path}, sink.preloaded)
	assert.True(t, m.watcher.IsRunning())

	touch(t, filepath.Join(dir, "unrelated.txt"))
	touch(t, path)

	assert.Eventually(t, func() bool {
		return len(sink.invalidatedPaths()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	for _, p := range sink.invalidatedPaths() {
		assert.Equal(t, path, p)
	}
}
