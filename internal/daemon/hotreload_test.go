package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/store"
)

func TestConfigWatcherReload(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		accepted bool
	}{
		{name: "valid", contents: "[display]\ngap = 8\n", accepted: true},
		{name: "unparsable", contents: "[display\n", accepted: false},
		{name: "invalid", contents: "[display]\ngap = -1\n", accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stackboxd.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o644))

			initial := config.DefaultDaemonConfig()
			w := NewConfigWatcher(path, initial, discardLogger())

			var reloaded *config.DaemonConfig
			var rejected error
			w.SetReloadCallback(func(cfg *config.DaemonConfig) { reloaded = cfg })
			w.SetErrorCallback(func(err error) { rejected = err })

			w.Reload()

			if tt.accepted {
				require.NotNil(t, reloaded)
				assert.Equal(t, 8, reloaded.Display.Gap)
				assert.Same(t, reloaded, w.Current())
				assert.NoError(t, rejected)
			} else {
				assert.Nil(t, reloaded)
				assert.Error(t, rejected)
				assert.Same(t, initial, w.Current(), "the previous configuration stays active")
			}
		})
	}
}

func TestStateWatcherReportsMuteChanges(t *testing.T) {
	states := []*store.SharedState{
		{Muted: false},
		{Muted: true, MutedBy: "cli"},
		{Muted: true, MutedBy: "cli"},
		{Muted: false},
	}
	var loadErr error

	w := NewStateWatcher("state.json", store.DefaultSharedState(), discardLogger())
	i := 0
	w.load = func() (*store.SharedState, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		s := states[i]
		i++
		return s, nil
	}

	var changes []bool
	w.SetChangeCallback(func(s *store.SharedState) { changes = append(changes, s.Muted) })

	for range states {
		w.check()
	}
	loadErr = errors.New("unreadable")
	w.check()

	assert.Equal(t, []bool{true, false}, changes)
}

func TestFileWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.toml")

	var mu sync.Mutex
	calls := 0
	fired := make(chan struct{}, 10)
	fw := &fileWatcher{
		path:   path,
		logger: discardLogger(),
		delay:  50 * time.Millisecond,
		onChange: func() {
			mu.Lock()
			calls++
			mu.Unlock()
			fired <- struct{}{}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("y"), 0o644))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	time.Sleep(150 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}
