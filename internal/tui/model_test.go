package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// fakeManager records the calls the demo makes.
type fakeManager struct {
	mu    sync.Mutex
	calls []string
	shown []notify.Request
	next  int
	err   error
}

func (f *fakeManager) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeManager) Show(req notify.Request, _ notify.Callback) (notify.Ref, error) {
	f.mu.Lock()
	f.shown = append(f.shown, req)
	f.next++
	id := f.next
	f.mu.Unlock()
	return notify.Ref{Kind: req.Kind, ID: id}, f.record("show " + req.Kind.String())
}

func (f *fakeManager) Click(ref notify.Ref) error          { return f.record("click " + ref.String()) }
func (f *fakeManager) ClickCloseIcon(ref notify.Ref) error { return f.record("close " + ref.String()) }
func (f *fakeManager) ClickMiniIcon(ref notify.Ref) error  { return f.record("mini " + ref.String()) }
func (f *fakeManager) PressButton(ref notify.Ref, label, value string) error {
	return f.record("press " + ref.String() + " " + label + " " + value)
}
func (f *fakeManager) KeyPress(k notify.Key, value string) error {
	name := "enter"
	if k == notify.KeyEscape {
		name = "escape"
	}
	return f.record("key " + name + " " + value)
}
func (f *fakeManager) PointerEnter(ref notify.Ref) error { return f.record("enter " + ref.String()) }
func (f *fakeManager) PointerLeave(ref notify.Ref) error { return f.record("leave " + ref.String()) }
func (f *fakeManager) ReportHeight(ref notify.Ref, height int) error {
	return f.record("height " + ref.String())
}
func (f *fakeManager) AnimationDone(ref notify.Ref) error { return f.record("done " + ref.String()) }
func (f *fakeManager) CloseAllMessageBoxes()              { _ = f.record("closeall") }

func (f *fakeManager) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestModel(t *testing.T) (Model, *fakeManager) {
	t.Helper()
	f := &fakeManager{}
	m := New(nil, f, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), f
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func created(v notify.View) eventMsg {
	return eventMsg{event: notify.Event{Type: notify.EventCreated, Ref: v.Ref, View: v}}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

var (
	small1 = notify.Ref{Kind: notify.KindSmallBox, ID: 1}
	small2 = notify.Ref{Kind: notify.KindSmallBox, ID: 2}
	big1   = notify.Ref{Kind: notify.KindBigBox, ID: 1}
	msg1   = notify.Ref{Kind: notify.KindMessageBox, ID: 1}
)

func TestApplyEventCreatedSmallBoxReportsHeight(t *testing.T) {
	m, f := newTestModel(t)

	m, cmd := send(t, m, created(notify.View{Ref: small1, Title: "hello", Content: "world", Color: "#004d60"}))
	require.NotNil(t, cmd)
	assert.Equal(t, errMsg{}, run(cmd))
	assert.Equal(t, []string{"height small#1"}, f.Calls())
	assert.Contains(t, m.widgets, small1)
}

func TestApplyEventLifecycle(t *testing.T) {
	m, f := newTestModel(t)
	m, _ = send(t, m, created(notify.View{Ref: small1, Title: "a"}))

	m, cmd := send(t, m, eventMsg{event: notify.Event{
		Type:  notify.EventStateChanged,
		Ref:   small1,
		State: notify.StateClosing,
		View:  notify.View{Ref: small1, Title: "a", State: notify.StateClosing},
	}})
	require.NotNil(t, cmd)
	assert.True(t, m.widgets[small1].closing)

	// The fade tick acknowledges the animation.
	assert.Equal(t, errMsg{}, run(cmd))
	assert.Contains(t, f.Calls(), "done small#1")

	m, _ = send(t, m, eventMsg{event: notify.Event{Type: notify.EventRemoved, Ref: small1}})
	assert.NotContains(t, m.widgets, small1)
}

func TestApplyEventColorTargets(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(t, m, created(notify.View{Ref: big1, Color: "#111111"}))

	m, _ = send(t, m, eventMsg{event: notify.Event{
		Type:    notify.EventColorChanged,
		Ref:     big1,
		Color:   "#222222",
		Targets: []notify.ColorTarget{notify.TargetBody, notify.TargetMiniIcon, notify.TargetCloseIcon},
	}})
	assert.Equal(t, "#222222", m.widgets[big1].color)
	assert.Equal(t, "#222222", m.widgets[big1].miniColor)

	m, _ = send(t, m, eventMsg{event: notify.Event{
		Type:    notify.EventColorChanged,
		Ref:     big1,
		Color:   "#333333",
		Targets: []notify.ColorTarget{notify.TargetMiniIcon},
	}})
	assert.Equal(t, "#222222", m.widgets[big1].color)
	assert.Equal(t, "#333333", m.widgets[big1].miniColor)
}

func TestApplyEventLayoutOrdersSmallColumn(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(t, m, created(notify.View{Ref: small1, Title: "first"}))
	m, _ = send(t, m, created(notify.View{Ref: small2, Title: "second"}))

	m, _ = send(t, m, eventMsg{event: notify.Event{
		Type:   notify.EventLayoutChanged,
		Layout: []notify.Slot{{ID: 2, Top: 0, Height: 4}, {ID: 1, Top: 5, Height: 4}},
	}})
	assert.Equal(t, []notify.Ref{small2, small1}, m.smallOrder())

	column := m.viewSmallColumn()
	assert.Less(t, strings.Index(column, "second"), strings.Index(column, "first"))
}

func TestModalVisibilityAndButtons(t *testing.T) {
	m, f := newTestModel(t)

	m, _ = send(t, m, created(notify.View{
		Ref:     msg1,
		Title:   "Save?",
		Buttons: []string{"Save", "Discard", "Cancel"},
		Visible: true,
	}))
	m, _ = send(t, m, eventMsg{event: notify.Event{Type: notify.EventBackdropChanged, Visible: true}})
	require.NotNil(t, m.modal)
	assert.True(t, m.backdrop)
	assert.Equal(t, "modal", m.mode())
	assert.Contains(t, m.View(), "Save?")

	// Enter on the first button goes through the keyboard path.
	_, cmd := send(t, m, keyMsg("enter"))
	run(cmd)
	assert.Equal(t, []string{"key enter "}, f.Calls())

	m, _ = send(t, m, keyMsg("tab"))
	assert.Equal(t, 1, m.modal.button)
	_, cmd = send(t, m, keyMsg("enter"))
	run(cmd)
	assert.Contains(t, f.Calls(), "press message#1 Discard ")

	_, cmd = send(t, m, keyMsg("esc"))
	run(cmd)
	assert.Contains(t, f.Calls(), "key escape ")

	m, _ = send(t, m, eventMsg{event: notify.Event{Type: notify.EventRemoved, Ref: msg1}})
	assert.Nil(t, m.modal)
}

func TestModalTextInputValue(t *testing.T) {
	m, f := newTestModel(t)

	m, _ = send(t, m, created(notify.View{
		Ref:     msg1,
		Title:   "Who?",
		Buttons: []string{"OK", "Cancel"},
		Input:   &notify.Input{Type: notify.InputText, Placeholder: "Name"},
		Visible: true,
	}))
	require.True(t, m.modalTextInput())

	for _, r := range "ada" {
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "ada", m.modalValue())

	// "q" is text while the input has focus.
	m, _ = send(t, m, keyMsg("q"))
	assert.Equal(t, "adaq", m.modalValue())

	_, cmd := send(t, m, keyMsg("enter"))
	run(cmd)
	assert.Equal(t, []string{"key enter adaq"}, f.Calls())
}

func TestModalSelectInput(t *testing.T) {
	m, f := newTestModel(t)

	m, _ = send(t, m, created(notify.View{
		Ref:     msg1,
		Buttons: []string{"OK"},
		Input:   &notify.Input{Type: notify.InputSelect, Options: []string{"teal", "orange"}},
		Visible: true,
	}))
	assert.False(t, m.modalTextInput())
	assert.Equal(t, "teal", m.modalValue())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "orange", m.modalValue())

	_, cmd := send(t, m, keyMsg("enter"))
	run(cmd)
	assert.Equal(t, []string{"key enter orange"}, f.Calls())
}

func TestQueuedModalIsShownOnVisibility(t *testing.T) {
	m, _ := newTestModel(t)
	msg2 := notify.Ref{Kind: notify.KindMessageBox, ID: 2}

	m, _ = send(t, m, created(notify.View{Ref: msg1, Buttons: []string{"OK"}, Visible: true}))
	m, _ = send(t, m, created(notify.View{Ref: msg2, Buttons: []string{"OK"}}))
	assert.Equal(t, msg1, m.modal.ref)
	assert.Equal(t, 1, m.queuedModals())

	m, _ = send(t, m, eventMsg{event: notify.Event{Type: notify.EventRemoved, Ref: msg1}})
	m, _ = send(t, m, eventMsg{event: notify.Event{Type: notify.EventVisibilityChanged, Ref: msg2, Visible: true}})
	require.NotNil(t, m.modal)
	assert.Equal(t, msg2, m.modal.ref)
	assert.Equal(t, 0, m.queuedModals())
}

func TestDeskKeys(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		want  string
		setup func(m Model) Model
	}{
		{name: "small", key: "s", want: "show small"},
		{name: "big", key: "b", want: "show big"},
		{name: "message", key: "m", want: "show message"},
		{name: "prompt", key: "p", want: "show message"},
		{name: "close all", key: "ctrl+x", want: "closeall"},
		{name: "click", key: "enter", want: "click small#1", setup: selectSmall},
		{name: "close icon", key: "x", want: "close small#1", setup: selectSmall},
		{name: "mini icon", key: " ", want: "mini big#1", setup: selectBig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, f := newTestModel(t)
			if tt.setup != nil {
				m = tt.setup(m)
			}
			_, cmd := send(t, m, keyMsg(tt.key))
			require.NotNil(t, cmd)
			run(cmd)
			assert.Contains(t, f.Calls(), tt.want)
		})
	}
}

func selectSmall(m Model) Model {
	m.widgets[small1] = &entry{view: notify.View{Ref: small1}}
	m.selected, m.hasSel = small1, true
	return m
}

func selectBig(m Model) Model {
	m.widgets[big1] = &entry{view: notify.View{Ref: big1}}
	m.selected, m.hasSel = big1, true
	return m
}

func TestMoveSelectionHovers(t *testing.T) {
	m, _ := newTestModel(t)
	m.widgets[small1] = &entry{view: notify.View{Ref: small1}}
	m.widgets[small2] = &entry{view: notify.View{Ref: small2}}
	m.widgets[big1] = &entry{view: notify.View{Ref: big1}}
	m.layout = []notify.Slot{{ID: 1, Top: 0}, {ID: 2, Top: 5}}

	assert.Equal(t, []notify.Ref{small1, small2, big1}, m.selectable())

	require.NotNil(t, m.moveSelection(1))
	assert.Equal(t, small1, m.selected)
	m.moveSelection(1)
	assert.Equal(t, small2, m.selected)
	m.moveSelection(1)
	assert.Equal(t, big1, m.selected)
	m.moveSelection(1)
	assert.Equal(t, small1, m.selected)
	m.moveSelection(-1)
	assert.Equal(t, big1, m.selected)

	// Closing widgets are skipped.
	m.widgets[small2].closing = true
	assert.Equal(t, []notify.Ref{small1, big1}, m.selectable())
}

func TestSelectRefSameWidgetIsNoop(t *testing.T) {
	m, _ := newTestModel(t)
	require.NotNil(t, m.selectRef(small1))
	require.NotNil(t, m.selectRef(small2))
	assert.Nil(t, m.selectRef(small2))
	assert.Equal(t, small2, m.selected)
	assert.True(t, m.hasSel)
}

func TestAlertBlocksDeskUntilDismissed(t *testing.T) {
	m, f := newTestModel(t)
	m, _ = send(t, m, eventMsg{event: notify.Event{Type: notify.EventAlert, Message: "small box configuration: bad color"}})
	assert.Equal(t, "alert", m.mode())
	assert.Contains(t, m.View(), "bad color")

	m, cmd := send(t, m, keyMsg("s"))
	assert.Nil(t, cmd)
	assert.Empty(t, f.Calls())

	m, _ = send(t, m, keyMsg("enter"))
	assert.Empty(t, m.alerts)
	assert.Equal(t, "desk", m.mode())
}

func TestErrMsgStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status bool
	}{
		{"nil", nil, false},
		{"unknown widget", notify.ErrUnknownWidget, false},
		{"closed", notify.ErrManagerClosed, false},
		{"configuration", &notify.ConfigurationError{Kind: notify.KindSmallBox, Err: errors.New("bad")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t)
			_, cmd := send(t, m, errMsg{err: tt.err})
			if !tt.status {
				assert.Nil(t, cmd)
				return
			}
			require.NotNil(t, cmd)
			msg, ok := cmd().(statusMsg)
			require.True(t, ok)
			assert.True(t, msg.isErr)
		})
	}
}

func TestDescribeResult(t *testing.T) {
	assert.Equal(t, "small#1 closed (expired)",
		describeResult(notify.Result{Ref: small1, Reason: notify.CloseReasonExpired}))
	assert.Equal(t, `message#1 closed (button): OK value="ada"`,
		describeResult(notify.Result{Ref: msg1, Reason: notify.CloseReasonButton, Button: "OK", Value: "ada", HasInput: true}))
}

func TestGlyphAndTermColor(t *testing.T) {
	assert.Equal(t, "☁", glyph("fa fa-cloud"))
	assert.Equal(t, "✉", glyph("envelope"))
	assert.Equal(t, "•", glyph("/usr/share/icons/x.png"))

	tests := []struct {
		in   string
		want lipgloss.Color
		ok   bool
	}{
		{"#004d60", "#004d60", true},
		{"#abc", "#abc", true},
		{"#004d60ff", "#004d60", true},
		{"red", "", false},
		{"rgb(1,2,3)", "", false},
		{"#12345", "", false},
	}
	for _, tt := range tests {
		got, ok := termColor(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBuildKeybindBarFitsWidth(t *testing.T) {
	m, _ := newTestModel(t)

	full := m.buildKeybindBar(0, "desk")
	assert.Contains(t, full, "help")

	narrow := m.buildKeybindBar(20, "desk")
	assert.LessOrEqual(t, lipgloss.Width(narrow), 20)
	assert.Contains(t, narrow, "quit")
	assert.NotContains(t, narrow, "help")
}

func TestSampleRequestsAreValid(t *testing.T) {
	mgr, err := notify.NewManager()
	require.NoError(t, err)
	defer mgr.Close()

	for n := 1; n <= 6; n++ {
		for _, kind := range notify.Kinds() {
			_, err := mgr.Show(sampleRequest(kind, n, n%2 == 0), nil)
			require.NoError(t, err, "%s #%d", kind, n)
		}
	}
	assert.NotEmpty(t, sampleRequest(notify.KindBigBox, 3, false).Colors)
}

func TestRendererMountRequiresProgram(t *testing.T) {
	r := NewRenderer()
	err := r.Mount(notify.View{Ref: small1})
	assert.ErrorIs(t, err, notify.ErrRenderTargetMissing)

	// Render and callbacks without a program are dropped.
	r.Render(notify.Event{Type: notify.EventCreated})
	r.Callback()(notify.Result{Ref: small1})
}

func TestRunWithDemoManagerRejectsBadConfig(t *testing.T) {
	cfg := DemoManagerConfig()
	cfg.ColorCyclePeriod = 0

	err := Run(context.Background(), RunOptions{Manager: &cfg})
	assert.Error(t, err)
}

func TestDemoManagerConfigIsValid(t *testing.T) {
	cfg := DemoManagerConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.DefaultHeight)
	assert.Greater(t, cfg.AnimationDuration, fadeDuration)
	assert.Equal(t, 8*time.Second, cfg.SmallBoxTimeout)
}
