package display

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/notify"
	"github.com/jmylchreest/stackbox/internal/theme"
)

// Input receives what the user does to a widget. *notify.Manager
// implements it.
type Input interface {
	Click(ref notify.Ref) error
	ClickCloseIcon(ref notify.Ref) error
	ClickMiniIcon(ref notify.Ref) error
	PressButton(ref notify.Ref, label, value string) error
	KeyPress(key notify.Key, value string) error
	PointerEnter(ref notify.Ref) error
	PointerLeave(ref notify.Ref) error
	ReportHeight(ref notify.Ref, height int) error
	AnimationDone(ref notify.Ref) error
}

// Renderer implements notify.Renderer on top of GTK. Mount and Render may
// be called from any goroutine; all GTK work is posted to the main loop
// with glib.IdleAdd, which preserves event order.
type Renderer struct {
	app    *gtk.Application
	layout *LayoutManager
	theme  *theme.Loader
	logger *slog.Logger
	input  Input

	mu      sync.RWMutex
	config  *config.DaemonConfig
	started bool

	// Main thread only.
	popups   map[notify.Ref]*Popup
	bigOrder []notify.Ref
	backdrop *gtk.Window
}

// NewRenderer creates a renderer for app. Input must be set before Start.
func NewRenderer(app *gtk.Application, cfg *config.DaemonConfig, loader *theme.Loader, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	return &Renderer{
		app:    app,
		layout: NewLayoutManager(cfg.Display, logger),
		theme:  loader,
		logger: logger,
		config: cfg,
		popups: make(map[notify.Ref]*Popup),
	}
}

// SetInput connects the renderer to the widget manager.
func (r *Renderer) SetInput(in Input) {
	r.input = in
}

// Start checks for a display and accepts widgets from then on. It must be
// called on the main thread, typically from the application's activate
// handler.
func (r *Renderer) Start() error {
	if r.input == nil {
		return &DisplayError{Message: "renderer has no input"}
	}
	display := gdk.DisplayGetDefault()
	if display == nil {
		return &DisplayError{Message: "no display available", Cause: notify.ErrRenderTargetMissing}
	}
	if !layershell.IsSupported() {
		return &DisplayError{Message: "compositor does not support wlr-layer-shell", Cause: notify.ErrRenderTargetMissing}
	}
	if r.theme != nil {
		r.theme.Apply(display)
	}

	monitors := display.Monitors()
	monitors.ConnectItemsChanged(func(position, removed, added uint) {
		r.layout.HandleMonitorChange()
	})

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	r.logger.Info("display renderer started")
	return nil
}

// Stop refuses further widgets and destroys every window.
func (r *Renderer) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.mu.Unlock()

	glib.IdleAdd(func() {
		for ref, p := range r.popups {
			p.Close()
			delete(r.popups, ref)
		}
		r.bigOrder = nil
		r.showBackdrop(false)
	})
	r.logger.Info("display renderer stopped")
}

// UpdateConfig applies new display settings and repositions every window.
func (r *Renderer) UpdateConfig(cfg *config.DaemonConfig) {
	r.mu.Lock()
	r.config = cfg
	r.mu.Unlock()
	r.layout.UpdateConfig(cfg.Display)

	glib.IdleAdd(func() {
		for _, p := range r.popups {
			if p.ref.Kind == notify.KindBigBox {
				r.layout.Apply(p.window, r.layout.BigBox())
			}
		}
		r.placeMiniIcons()
		r.logger.Debug("display config updated", "position", cfg.Display.Position)
	})
}

// Mount accepts a widget while the renderer runs. The window itself is
// built on the main loop when the Created event arrives.
func (r *Renderer) Mount(v notify.View) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started {
		return &DisplayError{Message: "renderer not started", Cause: notify.ErrRenderTargetMissing}
	}
	return nil
}

// Render posts e to the main loop.
func (r *Renderer) Render(e notify.Event) {
	glib.IdleAdd(func() {
		r.mu.RLock()
		started := r.started
		r.mu.RUnlock()
		if started {
			r.apply(e)
		}
	})
}

func (r *Renderer) apply(e notify.Event) {
	switch e.Type {
	case notify.EventCreated:
		r.create(e.View)
	case notify.EventStateChanged:
		if e.State == notify.StateClosing {
			r.closing(e.Ref)
		}
	case notify.EventRemoved:
		r.remove(e.Ref)
	case notify.EventLayoutChanged:
		for _, slot := range e.Layout {
			if p, ok := r.popups[notify.Ref{Kind: notify.KindSmallBox, ID: slot.ID}]; ok {
				r.layout.Apply(p.window, r.layout.SmallBox(slot.Top))
			}
		}
	case notify.EventZOrderChanged:
		if p, ok := r.popups[e.Ref]; ok {
			p.window.Present()
		}
	case notify.EventColorChanged:
		if r.theme != nil {
			r.theme.SetColor(e.Ref, e.Color, e.Targets)
		}
	case notify.EventVisibilityChanged:
		if p, ok := r.popups[e.Ref]; ok {
			p.window.SetVisible(e.Visible)
			if e.Visible {
				p.window.Present()
			}
		}
	case notify.EventBackdropChanged:
		r.showBackdrop(e.Visible)
	case notify.EventAlert:
		r.alert(e.Message)
	}
}

func (r *Renderer) create(v notify.View) {
	r.mu.RLock()
	cfg := r.config.Display
	r.mu.RUnlock()

	var p *Popup
	switch v.Ref.Kind {
	case notify.KindMessageBox:
		p = r.buildMessageBox(v, cfg)
		r.layout.Apply(p.window, r.layout.MessageBox())
	case notify.KindBigBox:
		p = r.buildBigBox(v, cfg)
		r.layout.Apply(p.window, r.layout.BigBox())
		r.bigOrder = append(r.bigOrder, v.Ref)
	default:
		p = r.buildSmallBox(v, cfg)
		r.layout.Apply(p.window, r.layout.SmallBox(v.Top))
	}
	r.popups[v.Ref] = p

	monitor := r.layout.GetMonitor()
	r.layout.SetMonitor(p.window, monitor)
	if p.mini != nil {
		r.layout.SetMonitor(p.mini, monitor)
		r.placeMiniIcons()
		p.mini.Present()
	}

	if v.Color != "" && r.theme != nil {
		targets := []notify.ColorTarget{notify.TargetBody}
		if v.MiniIcon {
			targets = append(targets, notify.TargetMiniIcon, notify.TargetCloseIcon)
		}
		r.theme.SetColor(v.Ref, v.Color, targets)
	}

	if v.Visible || v.Ref.Kind != notify.KindMessageBox {
		p.window.Present()
	} else {
		p.window.SetVisible(false)
	}

	if v.Ref.Kind == notify.KindSmallBox {
		glib.IdleAdd(func() { r.reportHeight(p) })
	}
}

// reportHeight tells the manager the measured height of a small box so the
// column can be repacked.
func (r *Renderer) reportHeight(p *Popup) {
	if p.closing {
		return
	}
	height := p.measure()
	if height <= 0 || height == p.height {
		return
	}
	p.height = height
	r.call("height", func() error { return r.input.ReportHeight(p.ref, height) })
}

func (r *Renderer) closing(ref notify.Ref) {
	p, ok := r.popups[ref]
	if !ok || p.closing {
		return
	}
	r.mu.RLock()
	duration := r.config.Timing.Animation.Duration()
	r.mu.RUnlock()

	p.fadeOut(duration, func() {
		r.call("animation", func() error { return r.input.AnimationDone(ref) })
	})
}

func (r *Renderer) remove(ref notify.Ref) {
	p, ok := r.popups[ref]
	if !ok {
		return
	}
	delete(r.popups, ref)
	p.Close()
	if r.theme != nil {
		r.theme.ForgetWidget(ref)
	}

	if ref.Kind == notify.KindBigBox {
		for i, candidate := range r.bigOrder {
			if candidate == ref {
				r.bigOrder = append(r.bigOrder[:i:i], r.bigOrder[i+1:]...)
				break
			}
		}
		r.placeMiniIcons()
	}
}

func (r *Renderer) placeMiniIcons() {
	for i, ref := range r.bigOrder {
		if p, ok := r.popups[ref]; ok && p.mini != nil {
			r.layout.Apply(p.mini, r.layout.MiniIcon(i))
		}
	}
}

func (r *Renderer) showBackdrop(visible bool) {
	if !visible {
		if r.backdrop != nil {
			r.backdrop.Destroy()
			r.backdrop = nil
		}
		return
	}
	if r.backdrop != nil {
		return
	}

	r.backdrop = newWindow(r.app, layershell.LayerShellLayerTop, "stackbox-backdrop")
	layershell.SetExclusiveZone(r.backdrop, -1)
	r.backdrop.AddCSSClass("backdrop")
	r.layout.Apply(r.backdrop, r.layout.Backdrop())
	r.layout.SetMonitor(r.backdrop, r.layout.GetMonitor())
	r.backdrop.Present()

	for ref, p := range r.popups {
		if ref.Kind == notify.KindMessageBox && p.window.Visible() {
			p.window.Present()
		}
	}
}

// alert shows a notice outside the widget manager, used for rejected
// widget configurations.
func (r *Renderer) alert(message string) {
	window := newWindow(r.app, layershell.LayerShellLayerOverlay, "stackbox-alert")
	layershell.SetKeyboardMode(window, layershell.LayerShellKeyboardModeOnDemand)

	box := gtk.NewBox(gtk.OrientationVertical, 12)
	box.AddCSSClass("stackbox-widget")
	box.AddCSSClass("message-box")
	box.AddCSSClass("alert")
	box.AddCSSClass(r.colorScheme())
	box.Append(newLabel("stackbox", "widget-title", false))
	box.Append(newLabel(message, "widget-content", true))

	ok := gtk.NewButtonWithLabel("OK")
	ok.AddCSSClass("widget-button")
	ok.SetHAlign(gtk.AlignEnd)
	ok.ConnectClicked(window.Destroy)
	box.Append(ok)

	window.SetChild(box)
	r.layout.Apply(window, r.layout.MessageBox())
	window.Present()
}

// call forwards a user action to the manager. Actions on widgets that are
// already closing or gone are expected and only logged at debug level.
func (r *Renderer) call(action string, fn func() error) {
	if err := fn(); err != nil {
		if errors.Is(err, notify.ErrUnknownWidget) {
			r.logger.Debug("input for a closed widget", "action", action, "error", err)
			return
		}
		r.logger.Warn("widget input failed", "action", action, "error", err)
	}
}

// colorScheme returns the "light" or "dark" class for the configured or
// system color scheme.
func (r *Renderer) colorScheme() string {
	r.mu.RLock()
	scheme := config.ColorScheme(r.config.Theme.ColorScheme)
	r.mu.RUnlock()

	switch scheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		if adw.StyleManagerGetDefault().Dark() {
			return "dark"
		}
		return "light"
	}
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
