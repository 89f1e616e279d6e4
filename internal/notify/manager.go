package notify

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklog/ulid/v2"
)

// Config holds the manager's layout metrics, durations and defaults.
type Config struct {
	// TopMargin is the offset of the first small box.
	TopMargin int
	// Gap separates consecutive small boxes.
	Gap int
	// DefaultHeight is assumed for small boxes whose height was not reported.
	DefaultHeight int

	// AnimationDuration bounds the exit animation when the renderer does
	// not acknowledge it first.
	AnimationDuration time.Duration
	// ColorCyclePeriod is used when a box has colors but no period.
	ColorCyclePeriod time.Duration

	SmallBoxColor   string
	BigBoxColor     string
	BigBoxIcon      string
	SmallBoxTimeout time.Duration
	BigBoxTimeout   time.Duration

	// Sound plays a creation sound unless the call is silent.
	Sound bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		TopMargin:         20,
		Gap:               20,
		DefaultHeight:     80,
		AnimationDuration: 300 * time.Millisecond,
		ColorCyclePeriod:  1500 * time.Millisecond,
		SmallBoxColor:     "#004d60",
		BigBoxColor:       "#004d60",
		BigBoxIcon:        "fa fa-cloud",
		Sound:             true,
	}
}

// Validate implements validation.Validatable.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TopMargin, validation.Min(0)),
		validation.Field(&c.Gap, validation.Min(0)),
		validation.Field(&c.DefaultHeight, validation.Min(0)),
		validation.Field(&c.AnimationDuration, validation.Min(time.Duration(0))),
		validation.Field(&c.ColorCyclePeriod, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.SmallBoxColor, validation.Required, validation.Match(colorPattern)),
		validation.Field(&c.BigBoxColor, validation.Required, validation.Match(colorPattern)),
		validation.Field(&c.SmallBoxTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.BigBoxTimeout, validation.Min(time.Duration(0))),
	)
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithClock injects the time source. Tests pass a ManualClock.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithRenderer sets the renderer. Without one widgets are tracked but not drawn.
func WithRenderer(r Renderer) Option {
	return func(m *Manager) { m.renderer = r }
}

// WithListener adds an event listener. Listeners run after the renderer.
func WithListener(l Listener) Option {
	return func(m *Manager) { m.listeners = append(m.listeners, l) }
}

// WithSoundPlayer sets the audio collaborator.
func WithSoundPlayer(p SoundPlayer) Option {
	return func(m *Manager) { m.sound = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Key is a keyboard key forwarded by a renderer.
type Key int

const (
	// KeyEnter presses the first button of the visible message box.
	KeyEnter Key = iota
	// KeyEscape presses the last button of the visible message box.
	KeyEscape
)

// Snapshot is a consistent copy of the manager state.
type Snapshot struct {
	Widgets      []View
	Layout       []Slot
	VisibleModal int
	QueuedModals []int
	Backdrop     bool
	Counters     map[Kind]int
}

// Manager creates, stacks, recolors and dismisses widgets.
// All state changes happen under one mutex; renderer events, listeners,
// callbacks and sounds are delivered afterwards, in order, outside it.
type Manager struct {
	mu sync.Mutex

	cfg       Config
	clock     Clock
	renderer  Renderer
	listeners []Listener
	sound     SoundPlayer
	logger    *slog.Logger

	registry *Registry
	packer   *Packer
	modals   *ModalQueue
	zTop     int
	backdrop bool
	closed   bool

	out outbox
}

// NewManager creates a Manager. The configuration is validated.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:      DefaultConfig(),
		registry: NewRegistry(),
		modals:   NewModalQueue(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manager config: %w", err)
	}
	if m.clock == nil {
		m.clock = RealClock()
	}
	if m.renderer == nil {
		m.renderer = NopRenderer{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.packer = NewPacker(m.cfg.TopMargin, m.cfg.Gap, m.cfg.DefaultHeight)
	return m, nil
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// UpdateConfig swaps the configuration. Live widgets keep their colors and
// timeouts; the small-box column is repacked with the new metrics.
func (m *Manager) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid manager config: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	m.cfg = cfg
	m.packer.SetMetrics(cfg.TopMargin, cfg.Gap, cfg.DefaultHeight)
	m.relayoutLocked()
	m.mu.Unlock()

	m.drain()
	return nil
}

// MessageBox queues a modal message box and returns its id.
func (m *Manager) MessageBox(opts MessageBoxOptions, cb Callback) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, m.reject(KindMessageBox, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrManagerClosed
	}

	w := m.newWidgetLocked(KindMessageBox, opts.Title, opts.Content, cb)
	w.Origin = opts.Origin
	w.Buttons = append([]string(nil), opts.Buttons...)
	if len(w.Buttons) == 0 {
		w.Buttons = append([]string(nil), defaultButtons...)
	}
	if opts.Input != nil {
		in := *opts.Input
		in.Options = append([]string(nil), opts.Input.Options...)
		if in.Type != InputText {
			in.Value = ""
		}
		w.Input = &in
	}
	_, busy := m.modals.Visible()
	w.visible = !busy

	if err := m.admitLocked(w); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.modals.Enqueue(w.ID)
	if !m.backdrop {
		m.backdrop = true
		m.emitLocked(Event{Type: EventBackdropChanged, Visible: true})
	}
	m.announceLocked(w, opts.Silent)
	m.mu.Unlock()

	m.drain()
	return w.ID, nil
}

// BigBox shows a corner box with its mini icon and returns its id.
func (m *Manager) BigBox(opts BigBoxOptions, cb Callback) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, m.reject(KindBigBox, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrManagerClosed
	}

	w := m.newWidgetLocked(KindBigBox, opts.Title, opts.Content, cb)
	w.Origin = opts.Origin
	w.Icon = firstNonEmpty(opts.Icon, m.cfg.BigBoxIcon)
	w.Number = opts.Number
	w.Color = firstNonEmpty(opts.Color, m.cfg.BigBoxColor)
	w.Timeout = resolveTimeout(opts.Timeout, m.cfg.BigBoxTimeout)
	w.Cycle = append([]ColorStop(nil), opts.Colors...)
	w.Period = resolvePeriod(opts.ColorTime, m.cfg.ColorCyclePeriod)
	w.visible = true

	if err := m.admitLocked(w); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.announceLocked(w, opts.Silent)
	m.mu.Unlock()

	m.drain()
	return w.ID, nil
}

// SmallBox stacks a small box in the column and returns its id.
func (m *Manager) SmallBox(opts SmallBoxOptions, cb Callback) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, m.reject(KindSmallBox, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrManagerClosed
	}

	w := m.newWidgetLocked(KindSmallBox, opts.Title, opts.Content, cb)
	w.Origin = opts.Origin
	w.Icon = opts.Icon
	w.SmallIcon = opts.SmallIcon
	w.Color = firstNonEmpty(opts.Color, m.cfg.SmallBoxColor)
	w.Timeout = resolveTimeout(opts.Timeout, m.cfg.SmallBoxTimeout)
	w.Cycle = append([]ColorStop(nil), opts.Colors...)
	w.Period = resolvePeriod(opts.ColorTime, m.cfg.ColorCyclePeriod)
	w.visible = true

	if err := m.admitLocked(w); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.relayoutLocked()
	m.announceLocked(w, opts.Silent)
	m.mu.Unlock()

	m.drain()
	return w.ID, nil
}

// Dismiss closes a widget programmatically. The callback runs with
// CloseReasonRequested. Dismissing a widget that is already closing is a no-op.
func (m *Manager) Dismiss(ref Ref) error {
	return m.withWidget(ref, func(w *Widget) error {
		m.beginCloseLocked(w, CloseReasonRequested, Result{})
		return nil
	})
}

// Click handles a click on a widget body. Small boxes and message boxes
// close; big boxes only close through their close icon.
func (m *Manager) Click(ref Ref) error {
	return m.withWidget(ref, func(w *Widget) error {
		if w.Kind == KindBigBox {
			m.logger.Debug("click on big box body ignored", "widget", ref.String())
			return nil
		}
		m.beginCloseLocked(w, CloseReasonClicked, Result{})
		return nil
	})
}

// ClickCloseIcon handles a click on a close icon.
func (m *Manager) ClickCloseIcon(ref Ref) error {
	return m.withWidget(ref, func(w *Widget) error {
		m.beginCloseLocked(w, CloseReasonClicked, Result{})
		return nil
	})
}

// ClickMiniIcon raises the big box paired with the clicked mini icon.
func (m *Manager) ClickMiniIcon(ref Ref) error {
	if ref.Kind != KindBigBox {
		return fmt.Errorf("%s has no mini icon: %w", ref, ErrUnknownWidget)
	}
	return m.withWidget(ref, func(w *Widget) error {
		if w.State != StateActive {
			return nil
		}
		m.raiseLocked(w)
		return nil
	})
}

// PressButton presses a message box button. value is the input value and
// is ignored when the box has no input.
func (m *Manager) PressButton(ref Ref, label, value string) error {
	if ref.Kind != KindMessageBox {
		return fmt.Errorf("%s has no buttons: %w", ref, ErrUnknownWidget)
	}
	return m.withWidget(ref, func(w *Widget) error {
		if !slices.Contains(w.Buttons, label) {
			return fmt.Errorf("%s: %w %q", ref, ErrUnknownButton, label)
		}
		m.pressLocked(w, label, value)
		return nil
	})
}

// KeyPress forwards a key to the visible message box.
func (m *Manager) KeyPress(key Key, value string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	id, ok := m.modals.Visible()
	if !ok {
		m.mu.Unlock()
		return nil
	}
	w, ok := m.registry.Get(Ref{Kind: KindMessageBox, ID: id})
	if !ok || len(w.Buttons) == 0 {
		m.mu.Unlock()
		return nil
	}
	switch key {
	case KeyEnter:
		m.pressLocked(w, w.Buttons[0], value)
	case KeyEscape:
		m.pressLocked(w, w.Buttons[len(w.Buttons)-1], value)
	}
	m.mu.Unlock()

	m.drain()
	return nil
}

// PointerEnter marks the widget as hovered.
func (m *Manager) PointerEnter(ref Ref) error {
	return m.withWidget(ref, func(w *Widget) error {
		w.hovered = true
		return nil
	})
}

// PointerLeave clears the hover mark. A small box whose timeout fired while
// hovered is dismissed now.
func (m *Manager) PointerLeave(ref Ref) error {
	return m.withWidget(ref, func(w *Widget) error {
		w.hovered = false
		if w.expired {
			m.beginCloseLocked(w, CloseReasonExpired, Result{})
		}
		return nil
	})
}

// ReportHeight records the rendered height of a small box. A change
// repacks the column.
func (m *Manager) ReportHeight(ref Ref, height int) error {
	if ref.Kind != KindSmallBox {
		return nil
	}
	return m.withWidget(ref, func(w *Widget) error {
		if m.packer.SetHeight(w.ID, height) {
			m.relayoutLocked()
		}
		return nil
	})
}

// AnimationDone acknowledges the end of a widget's exit animation.
func (m *Manager) AnimationDone(ref Ref) error {
	return m.withWidget(ref, func(w *Widget) error {
		m.finishCloseLocked(w)
		return nil
	})
}

// CloseAllMessageBoxes dismisses every message box, visible or queued,
// without running their callbacks.
func (m *Manager) CloseAllMessageBoxes() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	for _, id := range m.registry.LiveOrdered(KindMessageBox) {
		if w, ok := m.registry.Get(Ref{Kind: KindMessageBox, ID: id}); ok {
			m.beginCloseLocked(w, CloseReasonDestroyed, Result{})
		}
	}
	m.mu.Unlock()

	m.drain()
}

// Snapshot returns a copy of the live state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Layout:       m.packer.Table(),
		QueuedModals: m.modals.Queued(),
		Backdrop:     m.backdrop,
		Counters:     make(map[Kind]int, 3),
	}
	s.VisibleModal, _ = m.modals.Visible()
	for _, w := range m.registry.All() {
		s.Widgets = append(s.Widgets, m.viewLocked(w))
	}
	for _, kind := range Kinds() {
		s.Counters[kind] = m.registry.Counter(kind)
	}
	return s
}

// Get returns a copy of one live widget.
func (m *Manager) Get(ref Ref) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.registry.Get(ref)
	if !ok {
		return View{}, false
	}
	return m.viewLocked(w), true
}

// Close destroys every widget without running callbacks. Pending events
// are still delivered; later calls return ErrManagerClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, w := range m.registry.All() {
		m.destroyLocked(w)
	}
	m.packer.Recompute(nil)
	if m.backdrop {
		m.backdrop = false
		m.emitLocked(Event{Type: EventBackdropChanged, Visible: false})
	}
	m.mu.Unlock()

	m.drain()
}

func (m *Manager) withWidget(ref Ref, fn func(w *Widget) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	w, ok := m.registry.Get(ref)
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", ref, ErrUnknownWidget)
	}
	err := fn(w)
	m.mu.Unlock()

	m.drain()
	return err
}

func (m *Manager) newWidgetLocked(kind Kind, title, content string, cb Callback) *Widget {
	now := m.clock.Now()
	return &Widget{
		Ref:       Ref{Kind: kind, ID: m.registry.Allocate(kind)},
		UID:       ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Title:     title,
		Content:   content,
		State:     StateActive,
		CreatedAt: now,
		callback:  cb,
	}
}

// admitLocked mounts w and records it. A mount failure aborts only this
// widget; its id stays consumed.
func (m *Manager) admitLocked(w *Widget) error {
	m.zTop++
	w.zIndex = m.zTop

	v := m.viewLocked(w)
	if w.Kind == KindSmallBox {
		v.Top = m.packer.Next()
	}
	if err := m.mountLocked(v); err != nil {
		m.logger.Warn("widget mount failed", "widget", w.Ref.String(), "error", err)
		return fmt.Errorf("mount %s: %w: %w", w.Ref, ErrRenderTargetMissing, err)
	}

	m.registry.Add(w)
	return nil
}

func (m *Manager) mountLocked(v View) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	return m.renderer.Mount(v)
}

// announceLocked emits Created and arms the widget's timers.
func (m *Manager) announceLocked(w *Widget, silent bool) {
	m.emitLocked(Event{Type: EventCreated, Ref: w.Ref, View: m.viewLocked(w)})
	m.logger.Debug("widget created", "widget", w.Ref.String(), "uid", w.UID)

	m.armTimeoutLocked(w)
	if len(w.Cycle) > 0 {
		w.cycler = newColorCycler(m.schedule, w.Period, w.Cycle, func(color string) {
			m.applyColorLocked(w, color)
		})
		w.cycler.Start()
	}

	if !silent && m.cfg.Sound && m.sound != nil {
		player, kind := m.sound, w.Kind
		m.out.push(func() {
			if err := player.PlaySound(kind); err != nil {
				m.logger.Debug("sound failed", "kind", kind.String(), "error", err)
			}
		})
	}
}

func (m *Manager) applyColorLocked(w *Widget, color string) {
	if w.State != StateActive {
		return
	}
	w.Color = color
	targets := []ColorTarget{TargetBody}
	if w.Kind == KindBigBox {
		targets = append(targets, TargetMiniIcon, TargetCloseIcon)
	}
	m.emitLocked(Event{Type: EventColorChanged, Ref: w.Ref, Color: color, Targets: targets})
}

func (m *Manager) raiseLocked(w *Widget) {
	m.zTop++
	w.zIndex = m.zTop
	m.emitLocked(Event{Type: EventZOrderChanged, Ref: w.Ref, ZIndex: w.zIndex})
}

func (m *Manager) pressLocked(w *Widget, label, value string) {
	res := Result{Button: label}
	if w.Input != nil {
		res.Value = value
		res.HasInput = true
	}
	m.beginCloseLocked(w, CloseReasonButton, res)
}

// relayoutLocked repacks the small-box column, closing boxes included.
func (m *Manager) relayoutLocked() {
	table := m.packer.Recompute(m.registry.LiveOrdered(KindSmallBox))
	m.emitLocked(Event{Type: EventLayoutChanged, Layout: table})
}

func (m *Manager) promoteLocked() {
	id, ok := m.modals.Promote(func(id int) bool {
		w, ok := m.registry.Get(Ref{Kind: KindMessageBox, ID: id})
		return ok && w.State == StateActive
	})
	if !ok {
		return
	}
	w, _ := m.registry.Get(Ref{Kind: KindMessageBox, ID: id})
	w.visible = true
	m.emitLocked(Event{Type: EventVisibilityChanged, Ref: w.Ref, Visible: true})
	m.raiseLocked(w)
}

func (m *Manager) updateBackdropLocked() {
	live := m.registry.Len(KindMessageBox) > 0
	if live == m.backdrop {
		return
	}
	m.backdrop = live
	m.emitLocked(Event{Type: EventBackdropChanged, Visible: live})
}

// emitLocked queues e for the renderer and listeners.
func (m *Manager) emitLocked(e Event) {
	e.At = m.clock.Now()
	renderer, listeners := m.renderer, m.listeners
	m.out.push(func() {
		m.safeCall("renderer", func() { renderer.Render(e) })
		for _, l := range listeners {
			m.safeCall("listener", func() { l(e) })
		}
	})
}

// schedule arms a timer whose callback runs under the manager lock and is
// dropped once the manager is closed.
func (m *Manager) schedule(d time.Duration, f func()) Timer {
	return m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.safeCall("timer", f)
		m.mu.Unlock()

		m.drain()
	})
}

func (m *Manager) viewLocked(w *Widget) View {
	v := w.view()
	if w.Kind == KindSmallBox {
		if top, ok := m.packer.Offset(w.ID); ok {
			v.Top = top
		}
	}
	return v
}

// reject reports an invalid configuration to the caller and the user.
func (m *Manager) reject(kind Kind, err error) error {
	cfgErr := &ConfigurationError{Kind: kind, Err: err}
	m.logger.Warn("widget rejected", "kind", kind.String(), "error", err)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return cfgErr
	}
	m.emitLocked(Event{Type: EventAlert, Message: cfgErr.Error()})
	m.mu.Unlock()

	m.drain()
	return cfgErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveTimeout(requested, fallback time.Duration) time.Duration {
	switch {
	case requested == NoTimeout:
		return 0
	case requested > 0:
		return requested
	default:
		return fallback
	}
}

func resolvePeriod(requested, fallback time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return fallback
}
