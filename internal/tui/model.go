// Package tui is the terminal renderer behind `stackbox demo`. It draws the
// widgets of an in-process notify.Manager with BubbleTea and feeds keyboard
// input back to it as clicks, hovers and button presses.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/stackbox/internal/adapter/input"
	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/notify"
)

// fadeDuration is how long a closing widget stays dimmed before the
// animation is acknowledged.
const fadeDuration = 250 * time.Millisecond

// Manager is the part of *notify.Manager the demo drives.
type Manager interface {
	Show(req notify.Request, cb notify.Callback) (notify.Ref, error)
	Click(ref notify.Ref) error
	ClickCloseIcon(ref notify.Ref) error
	ClickMiniIcon(ref notify.Ref) error
	PressButton(ref notify.Ref, label, value string) error
	KeyPress(k notify.Key, value string) error
	PointerEnter(ref notify.Ref) error
	PointerLeave(ref notify.Ref) error
	ReportHeight(ref notify.Ref, height int) error
	AnimationDone(ref notify.Ref) error
	CloseAllMessageBoxes()
}

// entry mirrors one live widget as last reported by the manager.
type entry struct {
	view      notify.View
	color     string
	miniColor string
	closing   bool
}

// modalState tracks the visible message box.
type modalState struct {
	ref    notify.Ref
	button int
	option int
}

// Model is the demo TUI model.
type Model struct {
	cfg      *config.Config
	mgr      Manager
	callback notify.Callback
	adapter  input.InputAdapter

	keys  KeyMap
	help  help.Model
	input textinput.Model

	widgets  map[notify.Ref]*entry
	layout   []notify.Slot
	modal    *modalState
	backdrop bool
	alerts   []string

	selected notify.Ref
	hasSel   bool
	spawned  int

	showHelp bool
	width    int
	height   int
	ready    bool

	statusMsg string
	statusErr bool
}

// New creates the demo model. cb receives every widget result; it may be nil.
func New(cfg *config.Config, mgr Manager, cb notify.Callback) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	in := textinput.New()
	in.CharLimit = 200
	in.Width = 30

	return Model{
		cfg:      cfg,
		mgr:      mgr,
		callback: cb,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    in,
		widgets:  make(map[notify.Ref]*entry),
	}
}

// Init replays the batch input, if any.
func (m Model) Init() tea.Cmd {
	if m.adapter == nil {
		return nil
	}
	adapter, mgr, cb := m.adapter, m.mgr, m.callback
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n, err := replayFromAdapter(ctx, adapter, func(req notify.Request) error {
			_, err := mgr.Show(req, cb)
			return err
		})
		return replayMsg{shown: n, err: err}
	}
}

type errMsg struct {
	err error
}

type replayMsg struct {
	shown int
	err   error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case eventMsg:
		return m.applyEvent(msg.event)

	case resultMsg:
		return m, status(describeResult(msg.result), false)

	case errMsg:
		if msg.err == nil || errors.Is(msg.err, notify.ErrUnknownWidget) || errors.Is(msg.err, notify.ErrManagerClosed) {
			return m, nil
		}
		return m, status(msg.err.Error(), true)

	case replayMsg:
		if msg.err != nil {
			return m, status(fmt.Sprintf("replayed %d widgets: %v", msg.shown, msg.err), true)
		}
		return m, status(fmt.Sprintf("replayed %d widgets", msg.shown), false)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	if m.modalTextInput() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applyEvent folds one manager event into the mirrored state.
func (m Model) applyEvent(e notify.Event) (Model, tea.Cmd) {
	mgr := m.mgr

	switch e.Type {
	case notify.EventCreated:
		w := &entry{view: e.View, color: e.View.Color, miniColor: e.View.Color}
		m.widgets[e.Ref] = w
		if e.Ref.Kind == notify.KindMessageBox && e.View.Visible {
			m.openModal(e.View)
		}
		if e.Ref.Kind == notify.KindSmallBox {
			ref, height := e.Ref, lipgloss.Height(m.renderSmall(w, false))
			return m, call(func() error { return mgr.ReportHeight(ref, height) })
		}

	case notify.EventStateChanged:
		w, ok := m.widgets[e.Ref]
		if !ok {
			return m, nil
		}
		w.view = e.View
		if e.State == notify.StateClosing {
			w.closing = true
			ref := e.Ref
			return m, tea.Tick(fadeDuration, func(time.Time) tea.Msg {
				return errMsg{err: mgr.AnimationDone(ref)}
			})
		}

	case notify.EventRemoved:
		delete(m.widgets, e.Ref)
		if m.modal != nil && m.modal.ref == e.Ref {
			m.closeModal()
		}
		if m.hasSel && m.selected == e.Ref {
			m.hasSel = false
		}

	case notify.EventLayoutChanged:
		m.layout = append(m.layout[:0:0], e.Layout...)

	case notify.EventZOrderChanged:
		if w, ok := m.widgets[e.Ref]; ok {
			w.view.ZIndex = e.ZIndex
		}

	case notify.EventColorChanged:
		if w, ok := m.widgets[e.Ref]; ok {
			if slices.Contains(e.Targets, notify.TargetBody) {
				w.color = e.Color
			}
			if slices.Contains(e.Targets, notify.TargetMiniIcon) {
				w.miniColor = e.Color
			}
		}

	case notify.EventVisibilityChanged:
		if w, ok := m.widgets[e.Ref]; ok {
			w.view.Visible = e.Visible
			if e.Visible && e.Ref.Kind == notify.KindMessageBox {
				m.openModal(w.view)
			}
		}

	case notify.EventBackdropChanged:
		m.backdrop = e.Visible

	case notify.EventAlert:
		m.alerts = append(m.alerts, e.Message)
	}

	return m, nil
}

func (m *Model) openModal(v notify.View) {
	m.modal = &modalState{ref: v.Ref}
	m.input.Reset()
	m.input.Blur()
	m.input.Placeholder = ""
	m.input.EchoMode = textinput.EchoNormal

	if v.Input == nil {
		return
	}
	switch v.Input.Type {
	case notify.InputText, notify.InputPassword:
		m.input.Placeholder = v.Input.Placeholder
		m.input.SetValue(v.Input.Value)
		if v.Input.Type == notify.InputPassword {
			m.input.EchoMode = textinput.EchoPassword
		}
		m.input.Focus()
	}
}

func (m *Model) closeModal() {
	m.modal = nil
	m.input.Blur()
}

// modalWidget returns the visible message box.
func (m Model) modalWidget() (*entry, bool) {
	if m.modal == nil {
		return nil, false
	}
	w, ok := m.widgets[m.modal.ref]
	return w, ok
}

func (m Model) modalTextInput() bool {
	w, ok := m.modalWidget()
	return ok && w.view.Input != nil && w.view.Input.Type != notify.InputSelect
}

// modalValue is the current input value of the visible message box.
func (m Model) modalValue() string {
	w, ok := m.modalWidget()
	if !ok || w.view.Input == nil {
		return ""
	}
	if w.view.Input.Type == notify.InputSelect {
		if opts := w.view.Input.Options; len(opts) > 0 {
			return opts[m.modal.option%len(opts)]
		}
		return ""
	}
	return m.input.Value()
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if len(m.alerts) > 0 {
		if key.Matches(msg, m.keys.Confirm, m.keys.Cancel) {
			m.alerts = m.alerts[1:]
		}
		return m, nil
	}

	if _, ok := m.modalWidget(); ok {
		return m.handleModalKey(msg)
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Cancel) {
			m.showHelp = false
		}
		return m, nil
	}

	return m.handleDeskKey(msg)
}

// handleDeskKey handles keys while no message box is visible.
func (m Model) handleDeskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mgr := m.mgr

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Small):
		return m, m.spawn(notify.KindSmallBox, false)

	case key.Matches(msg, m.keys.Big):
		return m, m.spawn(notify.KindBigBox, false)

	case key.Matches(msg, m.keys.Modal):
		return m, m.spawn(notify.KindMessageBox, false)

	case key.Matches(msg, m.keys.Prompt):
		return m, m.spawn(notify.KindMessageBox, true)

	case key.Matches(msg, m.keys.Next):
		return m, m.moveSelection(1)

	case key.Matches(msg, m.keys.Prev):
		return m, m.moveSelection(-1)

	case key.Matches(msg, m.keys.CloseModals):
		return m, call(func() error { mgr.CloseAllMessageBoxes(); return nil })
	}

	if !m.hasSel {
		return m, nil
	}
	ref := m.selected

	switch {
	case key.Matches(msg, m.keys.Click):
		return m, call(func() error { return mgr.Click(ref) })

	case key.Matches(msg, m.keys.CloseIcon):
		return m, call(func() error { return mgr.ClickCloseIcon(ref) })

	case key.Matches(msg, m.keys.Raise):
		if ref.Kind != notify.KindBigBox {
			return m, status(ref.String()+" has no mini icon", true)
		}
		return m, call(func() error { return mgr.ClickMiniIcon(ref) })

	case key.Matches(msg, m.keys.Copy):
		if w, ok := m.widgets[ref]; ok {
			return m, m.copyToClipboard(w.view.Content)
		}
	}

	return m, nil
}

// handleModalKey handles keys while a message box is visible.
func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w, _ := m.modalWidget()
	mgr := m.mgr
	ref := m.modal.ref
	value := m.modalValue()
	buttons := w.view.Buttons
	textInput := m.modalTextInput()

	switch {
	case key.Matches(msg, m.keys.Confirm):
		if len(buttons) == 0 {
			return m, nil
		}
		if m.modal.button == 0 {
			return m, call(func() error { return mgr.KeyPress(notify.KeyEnter, value) })
		}
		label := buttons[m.modal.button%len(buttons)]
		return m, call(func() error { return mgr.PressButton(ref, label, value) })

	case key.Matches(msg, m.keys.Cancel):
		return m, call(func() error { return mgr.KeyPress(notify.KeyEscape, value) })

	case key.Matches(msg, m.keys.CloseModals):
		return m, call(func() error { mgr.CloseAllMessageBoxes(); return nil })

	case key.Matches(msg, m.keys.ButtonNext) && (!textInput || msg.Type == tea.KeyTab):
		if n := len(buttons); n > 0 {
			m.modal.button = (m.modal.button + 1) % n
		}
		return m, nil

	case key.Matches(msg, m.keys.ButtonPrev) && (!textInput || msg.Type == tea.KeyShiftTab):
		if n := len(buttons); n > 0 {
			m.modal.button = (m.modal.button + n - 1) % n
		}
		return m, nil
	}

	if textInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if w.view.Input != nil && w.view.Input.Type == notify.InputSelect {
		n := len(w.view.Input.Options)
		switch {
		case n == 0:
		case key.Matches(msg, m.keys.OptionNext):
			m.modal.option = (m.modal.option + 1) % n
		case key.Matches(msg, m.keys.OptionPrev):
			m.modal.option = (m.modal.option + n - 1) % n
		}
	}

	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	return m, nil
}

// spawn creates the next sample widget of kind.
func (m *Model) spawn(kind notify.Kind, withInput bool) tea.Cmd {
	m.spawned++
	req := sampleRequest(kind, m.spawned, withInput)
	mgr, cb := m.mgr, m.callback
	return func() tea.Msg {
		_, err := mgr.Show(req, cb)
		return errMsg{err: err}
	}
}

// selectable lists the widgets the selection cycles through: small boxes
// top to bottom, then big boxes by id.
func (m Model) selectable() []notify.Ref {
	var refs []notify.Ref
	for _, ref := range m.smallOrder() {
		if w := m.widgets[ref]; !w.closing {
			refs = append(refs, ref)
		}
	}
	for _, w := range m.bigBoxes() {
		if !w.closing {
			refs = append(refs, w.view.Ref)
		}
	}
	return refs
}

// moveSelection moves the pointer by delta. The selected widget counts as
// hovered, so a small box keeps its place while selected.
func (m *Model) moveSelection(delta int) tea.Cmd {
	refs := m.selectable()
	if len(refs) == 0 {
		return nil
	}

	next := 0
	if m.hasSel {
		if i := slices.Index(refs, m.selected); i >= 0 {
			next = (i + delta + len(refs)) % len(refs)
		}
	} else if delta < 0 {
		next = len(refs) - 1
	}
	return m.selectRef(refs[next])
}

func (m *Model) selectRef(ref notify.Ref) tea.Cmd {
	mgr := m.mgr
	var cmds []tea.Cmd
	if m.hasSel {
		if m.selected == ref {
			return nil
		}
		old := m.selected
		cmds = append(cmds, call(func() error { return mgr.PointerLeave(old) }))
	}
	m.selected, m.hasSel = ref, true
	cmds = append(cmds, call(func() error { return mgr.PointerEnter(ref) }))
	return tea.Sequence(cmds...)
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	configured := m.cfg.Demo.ClipboardCommand
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, configured)}
	}
}

func call(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return errMsg{err: fn()}
	}
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

func describeResult(res notify.Result) string {
	s := fmt.Sprintf("%s closed (%s)", res.Ref, res.Reason)
	if res.Button != "" {
		s += ": " + res.Button
	}
	if res.HasInput {
		s += fmt.Sprintf(" value=%q", res.Value)
	}
	return s
}

// DemoManagerConfig returns manager metrics measured in terminal rows.
func DemoManagerConfig() notify.Config {
	cfg := notify.DefaultConfig()
	cfg.TopMargin = 0
	cfg.Gap = 1
	cfg.DefaultHeight = 4
	cfg.AnimationDuration = 2 * fadeDuration
	cfg.SmallBoxTimeout = 8 * time.Second
	cfg.Sound = false
	return cfg
}

// RunOptions configures the demo.
type RunOptions struct {
	Config *config.Config
	// Manager overrides DemoManagerConfig.
	Manager *notify.Config
	// Adapter, when set, is replayed into the manager on startup.
	Adapter input.InputAdapter
	Sound   notify.SoundPlayer
	// Logger receives manager logs. The terminal belongs to the demo, so
	// nil discards them.
	Logger *slog.Logger
}

// Run starts the demo and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	mcfg := DemoManagerConfig()
	if opts.Manager != nil {
		mcfg = *opts.Manager
	}

	renderer := NewRenderer()
	mopts := []notify.Option{
		notify.WithConfig(mcfg),
		notify.WithRenderer(renderer),
		notify.WithLogger(logger),
	}
	if opts.Sound != nil {
		mopts = append(mopts, notify.WithSoundPlayer(opts.Sound))
	}
	mgr, err := notify.NewManager(mopts...)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	m := New(opts.Config, mgr, renderer.Callback())
	m.adapter = opts.Adapter

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	renderer.Attach(p)

	_, err = p.Run()

	renderer.Detach()
	mgr.Close()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
