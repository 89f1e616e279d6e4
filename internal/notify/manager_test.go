package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []Event
	fail   func(View) error
}

func (r *recorder) Mount(v View) error {
	if r.fail != nil {
		return r.fail(v)
	}
	return nil
}

func (r *recorder) Render(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) lastLayout() []Slot {
	layouts := r.ofType(EventLayoutChanged)
	if len(layouts) == 0 {
		return nil
	}
	return layouts[len(layouts)-1].Layout
}

type fakeSound struct {
	played []Kind
	err    error
}

func (f *fakeSound) PlaySound(kind Kind) error {
	f.played = append(f.played, kind)
	return f.err
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *ManualClock, *recorder) {
	t.Helper()
	clock := NewManualClock(epoch)
	rec := &recorder{}
	m, err := NewManager(append([]Option{WithClock(clock), WithRenderer(rec)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, clock, rec
}

func small(id int) Ref { return Ref{Kind: KindSmallBox, ID: id} }
func big(id int) Ref   { return Ref{Kind: KindBigBox, ID: id} }
func modal(id int) Ref { return Ref{Kind: KindMessageBox, ID: id} }

func tops(slots []Slot) []int {
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Top)
	}
	return out
}

func TestSmallBoxColumnOffsets(t *testing.T) {
	m, _, rec := newTestManager(t)

	for i := 0; i < 3; i++ {
		_, err := m.SmallBox(SmallBoxOptions{Title: "T"}, nil)
		require.NoError(t, err)
	}
	require.NoError(t, m.ReportHeight(small(1), 50))
	require.NoError(t, m.ReportHeight(small(2), 70))
	require.NoError(t, m.ReportHeight(small(3), 30))

	assert.Equal(t, []int{20, 90, 180}, tops(rec.lastLayout()))

	// A closing box keeps its slot until the exit animation ends.
	require.NoError(t, m.Dismiss(small(2)))
	assert.Equal(t, []int{20, 90, 180}, tops(m.Snapshot().Layout))

	require.NoError(t, m.AnimationDone(small(2)))
	layout := rec.lastLayout()
	require.Len(t, layout, 2)
	assert.Equal(t, Slot{ID: 1, Top: 20, Height: 50}, layout[0])
	assert.Equal(t, Slot{ID: 3, Top: 90, Height: 30}, layout[1])

	v, ok := m.Get(small(3))
	require.True(t, ok)
	assert.Equal(t, 90, v.Top)
}

func TestSmallBoxMountSeesNextOffset(t *testing.T) {
	var mountedTops []int
	rec := &recorder{}
	rec.fail = func(v View) error {
		mountedTops = append(mountedTops, v.Top)
		return nil
	}
	clock := NewManualClock(epoch)
	m, err := NewManager(WithClock(clock), WithRenderer(rec))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	_, err = m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{20, 120}, mountedTops)
}

func TestDismissalIsIdempotent(t *testing.T) {
	m, clock, _ := newTestManager(t)

	var results []Result
	_, err := m.SmallBox(SmallBoxOptions{Title: "once", Timeout: time.Second}, func(r Result) {
		results = append(results, r)
	})
	require.NoError(t, err)

	require.NoError(t, m.Click(small(1)))
	require.NoError(t, m.Click(small(1)))
	require.NoError(t, m.Dismiss(small(1)))
	clock.Advance(2 * time.Second)

	require.Len(t, results, 1)
	assert.Equal(t, CloseReasonClicked, results[0].Reason)
	assert.Equal(t, small(1), results[0].Ref)

	err = m.Click(small(1))
	assert.ErrorIs(t, err, ErrUnknownWidget)
	err = m.Dismiss(small(42))
	assert.ErrorIs(t, err, ErrUnknownWidget)
}

func TestStateTransitionsAreOrdered(t *testing.T) {
	m, clock, rec := newTestManager(t)

	_, err := m.BigBox(BigBoxOptions{Title: "B", Timeout: time.Second}, nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	clock.Advance(300 * time.Millisecond)

	var states []State
	for _, e := range rec.ofType(EventStateChanged) {
		states = append(states, e.State)
	}
	assert.Equal(t, []State{StateClosing, StateRemoved}, states)
	require.Len(t, rec.ofType(EventRemoved), 1)
	assert.Equal(t, CloseReasonExpired, rec.ofType(EventRemoved)[0].Reason)
}

func TestTimersCancelledOnClose(t *testing.T) {
	m, clock, rec := newTestManager(t)

	calls := 0
	_, err := m.SmallBox(SmallBoxOptions{
		Timeout:   time.Second,
		Colors:    []ColorStop{{Color: "#111"}, {Color: "#222"}},
		ColorTime: 100 * time.Millisecond,
	}, func(Result) { calls++ })
	require.NoError(t, err)

	clock.Advance(150 * time.Millisecond)
	require.Len(t, rec.ofType(EventColorChanged), 1)

	require.NoError(t, m.Click(small(1)))
	require.NoError(t, m.AnimationDone(small(1)))
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(5 * time.Second)
	assert.Equal(t, 1, calls)
	assert.Len(t, rec.ofType(EventColorChanged), 1)
}

func TestExitAnimationFallback(t *testing.T) {
	m, clock, _ := newTestManager(t)

	_, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Click(small(1)))

	clock.Advance(299 * time.Millisecond)
	v, ok := m.Get(small(1))
	require.True(t, ok)
	assert.Equal(t, StateClosing, v.State)

	clock.Advance(time.Millisecond)
	_, ok = m.Get(small(1))
	assert.False(t, ok)
}

func TestHoverDefersSmallBoxTimeout(t *testing.T) {
	m, clock, _ := newTestManager(t)

	var closedAt time.Time
	var reason CloseReason
	_, err := m.SmallBox(SmallBoxOptions{Title: "T1", Timeout: 1000 * time.Millisecond}, func(r Result) {
		closedAt = clock.Now()
		reason = r.Reason
	})
	require.NoError(t, err)

	clock.Advance(500 * time.Millisecond)
	require.NoError(t, m.PointerEnter(small(1)))

	clock.Advance(500 * time.Millisecond)
	v, ok := m.Get(small(1))
	require.True(t, ok)
	assert.Equal(t, StateActive, v.State, "box under the pointer must stay")
	assert.True(t, closedAt.IsZero())

	clock.Advance(500 * time.Millisecond)
	require.NoError(t, m.PointerLeave(small(1)))

	assert.Equal(t, epoch.Add(1500*time.Millisecond), closedAt)
	assert.Equal(t, CloseReasonExpired, reason)
}

func TestHoverWithoutExpiryKeepsBox(t *testing.T) {
	m, clock, _ := newTestManager(t)

	_, err := m.SmallBox(SmallBoxOptions{Timeout: time.Second}, nil)
	require.NoError(t, err)

	require.NoError(t, m.PointerEnter(small(1)))
	require.NoError(t, m.PointerLeave(small(1)))
	clock.Advance(500 * time.Millisecond)

	v, ok := m.Get(small(1))
	require.True(t, ok)
	assert.Equal(t, StateActive, v.State)
}

func TestHoverDoesNotDeferBigBox(t *testing.T) {
	m, clock, _ := newTestManager(t)

	_, err := m.BigBox(BigBoxOptions{Timeout: time.Second}, nil)
	require.NoError(t, err)
	require.NoError(t, m.PointerEnter(big(1)))

	clock.Advance(time.Second)
	v, ok := m.Get(big(1))
	require.True(t, ok)
	assert.Equal(t, StateClosing, v.State)
}

func TestModalQueueIsFIFO(t *testing.T) {
	m, clock, rec := newTestManager(t)

	var pressed []string
	for _, title := range []string{"A", "B", "C"} {
		title := title
		_, err := m.MessageBox(MessageBoxOptions{Title: title}, func(r Result) {
			pressed = append(pressed, title+":"+r.Button)
		})
		require.NoError(t, err)
	}

	s := m.Snapshot()
	assert.Equal(t, 1, s.VisibleModal)
	assert.Equal(t, []int{2, 3}, s.QueuedModals)
	assert.True(t, s.Backdrop)

	for want := 1; want <= 3; want++ {
		assert.Equal(t, want, m.Snapshot().VisibleModal)
		require.NoError(t, m.PressButton(modal(want), "Accept", ""))
		clock.Advance(300 * time.Millisecond)
	}

	assert.Equal(t, []string{"A:Accept", "B:Accept", "C:Accept"}, pressed)
	assert.False(t, m.Snapshot().Backdrop)

	shown := rec.ofType(EventVisibilityChanged)
	require.Len(t, shown, 2)
	assert.Equal(t, modal(2), shown[0].Ref)
	assert.Equal(t, modal(3), shown[1].Ref)

	backdrop := rec.ofType(EventBackdropChanged)
	require.Len(t, backdrop, 2)
	assert.True(t, backdrop[0].Visible)
	assert.False(t, backdrop[1].Visible)
}

func TestQueuedModalDismissedIsSkipped(t *testing.T) {
	m, clock, _ := newTestManager(t)

	for i := 0; i < 3; i++ {
		_, err := m.MessageBox(MessageBoxOptions{}, nil)
		require.NoError(t, err)
	}

	require.NoError(t, m.Dismiss(modal(2)))
	assert.Equal(t, 1, m.Snapshot().VisibleModal)

	require.NoError(t, m.PressButton(modal(1), "Accept", ""))
	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, 3, m.Snapshot().VisibleModal)
}

func TestPromotedModalIsRaised(t *testing.T) {
	m, clock, _ := newTestManager(t)

	_, err := m.MessageBox(MessageBoxOptions{}, nil)
	require.NoError(t, err)
	_, err = m.MessageBox(MessageBoxOptions{}, nil)
	require.NoError(t, err)
	_, err = m.BigBox(BigBoxOptions{}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Click(modal(1)))
	clock.Advance(300 * time.Millisecond)

	promoted, ok := m.Get(modal(2))
	require.True(t, ok)
	other, ok := m.Get(big(1))
	require.True(t, ok)
	assert.True(t, promoted.Visible)
	assert.Greater(t, promoted.ZIndex, other.ZIndex)
}

func TestPressButtonWithInput(t *testing.T) {
	m, _, _ := newTestManager(t)

	var got Result
	_, err := m.MessageBox(MessageBoxOptions{
		Title:   "Login",
		Buttons: ParseBracketList("[OK][Cancel]"),
		Input:   &Input{Type: InputText, Placeholder: "name", Value: "guest"},
	}, func(r Result) { got = r })
	require.NoError(t, err)

	err = m.PressButton(modal(1), "Maybe", "x")
	assert.ErrorIs(t, err, ErrUnknownButton)

	require.NoError(t, m.PressButton(modal(1), "OK", "alice"))
	assert.Equal(t, "OK", got.Button)
	assert.Equal(t, "alice", got.Value)
	assert.True(t, got.HasInput)
	assert.Equal(t, CloseReasonButton, got.Reason)
}

func TestKeyPress(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"enter presses first", KeyEnter, "OK"},
		{"escape presses last", KeyEscape, "Cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestManager(t)

			var got Result
			_, err := m.MessageBox(MessageBoxOptions{Buttons: []string{"OK", "Cancel"}}, func(r Result) { got = r })
			require.NoError(t, err)

			require.NoError(t, m.KeyPress(tt.key, ""))
			assert.Equal(t, tt.want, got.Button)
			assert.False(t, got.HasInput)
		})
	}
}

func TestDefaultButton(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.MessageBox(MessageBoxOptions{Title: "hi"}, nil)
	require.NoError(t, err)

	v, ok := m.Get(modal(1))
	require.True(t, ok)
	assert.Equal(t, []string{"Accept"}, v.Buttons)
}

func TestColorCycleWrapsAndSyncsBigBoxTargets(t *testing.T) {
	m, clock, rec := newTestManager(t)

	_, err := m.BigBox(BigBoxOptions{
		Colors:    []ColorStop{{Color: "#aaa"}, {Color: "#bbb"}, {Color: "#ccc"}},
		ColorTime: 100 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	v, _ := m.Get(big(1))
	assert.Equal(t, "#004d60", v.Color)

	clock.Advance(400 * time.Millisecond)

	changes := rec.ofType(EventColorChanged)
	require.Len(t, changes, 4)
	var colors []string
	for _, c := range changes {
		colors = append(colors, c.Color)
		assert.ElementsMatch(t, []ColorTarget{TargetBody, TargetMiniIcon, TargetCloseIcon}, c.Targets)
	}
	assert.Equal(t, []string{"#aaa", "#bbb", "#ccc", "#aaa"}, colors)

	v, _ = m.Get(big(1))
	assert.Equal(t, "#aaa", v.Color)
}

func TestMiniIconRaisesOnlyItsPair(t *testing.T) {
	m, _, rec := newTestManager(t)

	_, err := m.BigBox(BigBoxOptions{Title: "one"}, nil)
	require.NoError(t, err)
	_, err = m.BigBox(BigBoxOptions{Title: "two"}, nil)
	require.NoError(t, err)

	before, _ := m.Get(big(2))
	require.NoError(t, m.ClickMiniIcon(big(1)))

	first, _ := m.Get(big(1))
	second, _ := m.Get(big(2))
	assert.Greater(t, first.ZIndex, second.ZIndex)
	assert.Equal(t, before, second)
	assert.True(t, first.MiniIcon)
	assert.Equal(t, StateActive, first.State)

	raised := rec.ofType(EventZOrderChanged)
	require.Len(t, raised, 1)
	assert.Equal(t, big(1), raised[0].Ref)

	assert.ErrorIs(t, m.ClickMiniIcon(small(1)), ErrUnknownWidget)
}

func TestBigBoxBodyClickIgnored(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.BigBox(BigBoxOptions{}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Click(big(1)))
	v, _ := m.Get(big(1))
	assert.Equal(t, StateActive, v.State)

	require.NoError(t, m.ClickCloseIcon(big(1)))
	v, _ = m.Get(big(1))
	assert.Equal(t, StateClosing, v.State)
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"select without options", &Input{Type: InputSelect}},
		{"unknown input type", &Input{Type: "checkbox"}},
		{"missing input type", &Input{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, rec := newTestManager(t)

			_, err := m.MessageBox(MessageBoxOptions{Input: tt.input}, nil)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, KindMessageBox, cfgErr.Kind)

			alerts := rec.ofType(EventAlert)
			require.Len(t, alerts, 1)
			assert.Contains(t, alerts[0].Message, "message box configuration")
			assert.Empty(t, rec.ofType(EventCreated))
			assert.Equal(t, 0, m.Snapshot().Counters[KindMessageBox])
		})
	}
}

func TestBadColorRejected(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.SmallBox(SmallBoxOptions{Color: "not a color!"}, nil)
	assert.True(t, IsConfigurationError(err))

	_, err = m.BigBox(BigBoxOptions{Colors: []ColorStop{{Color: ""}}}, nil)
	assert.True(t, IsConfigurationError(err))
}

func TestMountFailureIsIsolated(t *testing.T) {
	m, _, rec := newTestManager(t)
	rec.fail = func(v View) error {
		if v.Ref == small(2) {
			return errors.New("no surface")
		}
		return nil
	}

	_, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	_, err = m.SmallBox(SmallBoxOptions{}, nil)
	assert.ErrorIs(t, err, ErrRenderTargetMissing)
	id, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	layout := rec.lastLayout()
	require.Len(t, layout, 2)
	assert.Equal(t, 1, layout[0].ID)
	assert.Equal(t, 3, layout[1].ID)
	assert.Equal(t, 120, layout[1].Top)
}

func TestRendererPanicIsRecovered(t *testing.T) {
	clock := NewManualClock(epoch)
	m, err := NewManager(WithClock(clock), WithListener(func(e Event) {
		if e.Type == EventCreated {
			panic("boom")
		}
	}))
	require.NoError(t, err)
	defer m.Close()

	id, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.NoError(t, m.Click(small(1)))
}

func TestReentrantCallback(t *testing.T) {
	m, _, rec := newTestManager(t)

	followUp := 0
	_, err := m.SmallBox(SmallBoxOptions{Title: "first"}, func(Result) {
		id, err := m.SmallBox(SmallBoxOptions{Title: "second"}, nil)
		assert.NoError(t, err)
		followUp = id
	})
	require.NoError(t, err)

	require.NoError(t, m.Click(small(1)))
	assert.Equal(t, 2, followUp)
	assert.Len(t, rec.ofType(EventCreated), 2)
}

func TestCloseAllMessageBoxes(t *testing.T) {
	m, clock, _ := newTestManager(t)

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := m.MessageBox(MessageBoxOptions{}, func(Result) { calls++ })
		require.NoError(t, err)
	}
	_, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)

	m.CloseAllMessageBoxes()
	clock.Advance(300 * time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, s.VisibleModal)
	assert.Empty(t, s.QueuedModals)
	assert.False(t, s.Backdrop)
	require.Len(t, s.Widgets, 1)
	assert.Equal(t, small(1), s.Widgets[0].Ref)
}

func TestCloseDestroysEverything(t *testing.T) {
	m, clock, rec := newTestManager(t)

	calls := 0
	cb := func(Result) { calls++ }
	_, err := m.SmallBox(SmallBoxOptions{Timeout: time.Second}, cb)
	require.NoError(t, err)
	_, err = m.BigBox(BigBoxOptions{Colors: []ColorStop{{Color: "red"}}}, cb)
	require.NoError(t, err)
	_, err = m.MessageBox(MessageBoxOptions{}, cb)
	require.NoError(t, err)

	m.Close()
	clock.Advance(time.Minute)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, clock.Pending())
	assert.Len(t, rec.ofType(EventRemoved), 3)
	assert.Empty(t, m.Snapshot().Widgets)

	_, err = m.SmallBox(SmallBoxOptions{}, nil)
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.ErrorIs(t, m.Dismiss(small(1)), ErrManagerClosed)
}

func TestIDsAreNotReused(t *testing.T) {
	m, clock, _ := newTestManager(t)

	for i := 1; i <= 3; i++ {
		id, err := m.SmallBox(SmallBoxOptions{}, nil)
		require.NoError(t, err)
		assert.Equal(t, i, id)
		require.NoError(t, m.Click(small(id)))
		clock.Advance(time.Second)
	}

	id, err := m.BigBox(BigBoxOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, id, "counters are per kind")
}

func TestSoundFailuresAreSwallowed(t *testing.T) {
	player := &fakeSound{err: errors.New("unsupported codec")}
	m, _, _ := newTestManager(t, WithSoundPlayer(player))

	_, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	_, err = m.BigBox(BigBoxOptions{Silent: true}, nil)
	require.NoError(t, err)
	_, err = m.MessageBox(MessageBoxOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Kind{KindSmallBox, KindMessageBox}, player.played)
}

func TestDefaultsApplied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmallBoxTimeout = 2 * time.Second
	m, clock, _ := newTestManager(t, WithConfig(cfg))

	_, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	_, err = m.SmallBox(SmallBoxOptions{Timeout: NoTimeout}, nil)
	require.NoError(t, err)
	_, err = m.BigBox(BigBoxOptions{}, nil)
	require.NoError(t, err)

	b, _ := m.Get(big(1))
	assert.Equal(t, "fa fa-cloud", b.Icon)
	assert.Equal(t, "#004d60", b.Color)
	assert.Equal(t, time.Duration(0), b.Timeout)

	clock.Advance(2 * time.Second)
	first, _ := m.Get(small(1))
	second, _ := m.Get(small(2))
	assert.Equal(t, StateClosing, first.State)
	assert.Equal(t, StateActive, second.State)
}

func TestUpdateConfigRepacks(t *testing.T) {
	m, _, rec := newTestManager(t)

	_, err := m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)
	_, err = m.SmallBox(SmallBoxOptions{}, nil)
	require.NoError(t, err)

	cfg := m.Config()
	cfg.TopMargin = 10
	cfg.Gap = 5
	require.NoError(t, m.UpdateConfig(cfg))
	assert.Equal(t, []int{10, 95}, tops(rec.lastLayout()))

	cfg.ColorCyclePeriod = 0
	assert.Error(t, m.UpdateConfig(cfg))
}

func TestShowDispatchesByKind(t *testing.T) {
	m, _, _ := newTestManager(t)

	ref, err := m.Show(Request{Kind: KindBigBox, Title: "Build", Number: "3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, big(1), ref)

	ref, err = m.Show(Request{Kind: KindMessageBox, Buttons: []string{"Yes", "No"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, modal(1), ref)
	v, ok := m.Get(ref)
	require.True(t, ok)
	assert.Equal(t, []string{"Yes", "No"}, v.Buttons)

	_, err = m.Show(Request{Kind: KindSmallBox, Colors: []ColorStop{{Color: "nope!"}}}, nil)
	assert.True(t, IsConfigurationError(err))

	_, err = m.Show(Request{Kind: Kind(42)}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
