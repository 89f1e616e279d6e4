package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackbox/internal/notify"
	"github.com/jmylchreest/stackbox/internal/store"
)

func newRecordingManager(t *testing.T) (*notify.Manager, *Recorder, *store.Store) {
	t.Helper()
	clock := notify.NewManualClock(epoch)
	st := store.NewStore(nil)
	rec := NewRecorder(st, discardLogger())
	rec.now = clock.Now

	m, err := notify.NewManager(
		notify.WithClock(clock),
		notify.WithLogger(discardLogger()),
		notify.WithListener(rec.Listen),
	)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, rec, st
}

func TestRecorderWritesLifetime(t *testing.T) {
	m, rec, st := newRecordingManager(t)

	ref, err := m.Show(notify.Request{
		Kind:    notify.KindSmallBox,
		Title:   "Backup complete",
		Content: "home stored",
		Color:   "#27ae60",
		Origin:  notify.Origin{Source: "cli", App: "stackbox"},
	}, rec.Closed)
	require.NoError(t, err)

	view, ok := m.Get(ref)
	require.True(t, ok)
	require.Equal(t, 1, st.Count())
	assert.Equal(t, 1, rec.Open())

	r := st.GetByUID(view.UID)
	require.NotNil(t, r)
	assert.Equal(t, "cli", r.Source)
	assert.Equal(t, "stackbox", r.AppName)
	assert.Equal(t, "small", r.Kind)
	assert.Equal(t, ref.ID, r.WidgetID)
	assert.Equal(t, "Backup complete", r.Title)
	assert.Equal(t, "#27ae60", r.Color)
	assert.False(t, r.IsClosed())

	require.NoError(t, m.Click(ref))

	r = st.GetByUID(view.UID)
	require.NotNil(t, r)
	assert.True(t, r.IsClosed())
	assert.Equal(t, "clicked", r.Reason)
	assert.Zero(t, rec.Open())
}

func TestRecorderInputValues(t *testing.T) {
	tests := []struct {
		name      string
		inputType notify.InputType
		value     string
		stored    string
	}{
		{name: "text kept", inputType: notify.InputText, value: "ada", stored: "ada"},
		{name: "password dropped", inputType: notify.InputPassword, value: "hunter2", stored: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, rec, st := newRecordingManager(t)

			ref, err := m.Show(notify.Request{
				Kind:    notify.KindMessageBox,
				Title:   "Who?",
				Buttons: []string{"OK", "Cancel"},
				Input:   &notify.Input{Type: tt.inputType},
			}, rec.Closed)
			require.NoError(t, err)
			view, _ := m.Get(ref)

			require.NoError(t, m.PressButton(ref, "OK", tt.value))

			r := st.GetByUID(view.UID)
			require.NotNil(t, r)
			assert.Equal(t, "button", r.Reason)
			assert.Equal(t, "OK", r.Button)
			assert.Equal(t, tt.stored, r.Value)
			assert.Equal(t, "dbus", r.Source, "missing sources default to dbus")
		})
	}
}

func TestRecorderIgnoresUnknownResults(t *testing.T) {
	_, rec, st := newRecordingManager(t)
	rec.Closed(notify.Result{Ref: notify.Ref{Kind: notify.KindBigBox, ID: 9}, Reason: notify.CloseReasonClicked})
	assert.Zero(t, st.Count())
}
