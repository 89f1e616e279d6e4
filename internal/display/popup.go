package display

import (
	"strings"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/notify"
	"github.com/jmylchreest/stackbox/internal/theme"
)

// Popup is the GTK side of one widget. It lives on the main thread.
type Popup struct {
	ref    notify.Ref
	window *gtk.Window
	box    *gtk.Box
	width  int

	closeBtn *gtk.Button
	// mini is the companion mini icon window of a big box.
	mini *gtk.Window
	// value reads the message box input, nil without one.
	value func() string

	height  int
	closing bool
}

// newWindow creates an undecorated layer-shell window.
func newWindow(app *gtk.Application, layer layershell.Layer, namespace string) *gtk.Window {
	window := gtk.NewWindow()
	window.SetApplication(app)
	window.SetDecorated(false)
	window.SetResizable(false)

	layershell.InitForWindow(window)
	layershell.SetLayer(window, layer)
	layershell.SetExclusiveZone(window, 0)
	layershell.SetKeyboardMode(window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(window, namespace)
	return window
}

// widgetBox is the root container carrying the theme classes of v.
func widgetBox(v notify.View, cfg config.DisplayConfig, scheme string) *gtk.Box {
	box := gtk.NewBox(gtk.OrientationVertical, 6)
	box.AddCSSClass("stackbox-widget")
	box.AddCSSClass(theme.KindClass(v.Ref.Kind))
	box.AddCSSClass(theme.WidgetClass(v.Ref))
	box.AddCSSClass(scheme)
	if cfg.Opacity < 1.0 {
		box.AddCSSClass("translucent")
	}
	return box
}

func newLabel(text, class string, wrap bool) *gtk.Label {
	label := gtk.NewLabel(text)
	label.AddCSSClass(class)
	label.SetXAlign(0)
	if wrap {
		label.SetWrap(true)
		label.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
		label.SetMaxWidthChars(50)
	} else {
		label.SetEllipsize(3) // PANGO_ELLIPSIZE_END
		label.SetHExpand(true)
	}
	return label
}

// newIcon builds an image from an icon name, a file path or a Font
// Awesome class.
func newIcon(icon, class string, size int) *gtk.Image {
	image := gtk.NewImage()
	image.AddCSSClass(class)
	image.SetPixelSize(size)
	if strings.Contains(icon, "/") {
		image.SetFromFile(icon)
	} else {
		image.SetFromIconName(iconName(icon))
	}
	return image
}

// faIcons maps the Font Awesome classes used by callers to symbolic icons.
var faIcons = map[string]string{
	"fa-cloud":                "weather-overcast-symbolic",
	"fa-bell":                 "preferences-system-notifications-symbolic",
	"fa-check":                "object-select-symbolic",
	"fa-times":                "window-close-symbolic",
	"fa-info":                 "dialog-information-symbolic",
	"fa-info-circle":          "dialog-information-symbolic",
	"fa-warning":              "dialog-warning-symbolic",
	"fa-exclamation-triangle": "dialog-warning-symbolic",
	"fa-exclamation":          "dialog-error-symbolic",
	"fa-envelope":             "mail-unread-symbolic",
	"fa-clock-o":              "alarm-symbolic",
	"fa-calendar":             "x-office-calendar-symbolic",
	"fa-user":                 "avatar-default-symbolic",
	"fa-download":             "folder-download-symbolic",
}

// iconName resolves icon to a themed icon name. "fa fa-cloud" style
// classes are translated; anything else is taken as an icon name.
func iconName(icon string) string {
	fields := strings.Fields(icon)
	if len(fields) == 0 {
		return "dialog-information-symbolic"
	}
	if fields[0] != "fa" && !strings.HasPrefix(fields[0], "fa-") {
		return icon
	}
	for _, f := range fields {
		if name, ok := faIcons[f]; ok {
			return name
		}
	}
	return "dialog-information-symbolic"
}

// buildSmallBox lays out icon, title and content, with an optional small
// icon in the corner. The whole box is the click target.
func (r *Renderer) buildSmallBox(v notify.View, cfg config.DisplayConfig) *Popup {
	p := &Popup{ref: v.Ref, width: cfg.SmallWidth}
	p.window = newWindow(r.app, layershell.LayerShellLayerTop, "stackbox-small")
	p.window.SetDefaultSize(cfg.SmallWidth, -1)
	p.window.SetSizeRequest(cfg.SmallWidth, -1)

	p.box = widgetBox(v, cfg, r.colorScheme())
	row := gtk.NewBox(gtk.OrientationHorizontal, 10)
	if v.Icon != "" {
		row.Append(newIcon(v.Icon, "widget-icon", 32))
	}
	text := gtk.NewBox(gtk.OrientationVertical, 2)
	text.SetHExpand(true)
	text.Append(newLabel(v.Title, "widget-title", false))
	if v.Content != "" {
		text.Append(newLabel(v.Content, "widget-content", true))
	}
	row.Append(text)
	if v.SmallIcon != "" {
		row.Append(newIcon(v.SmallIcon, "widget-small-icon", 16))
	}
	p.box.Append(row)
	p.window.SetChild(p.box)

	r.connectClick(p.window, func() { r.call("click", func() error { return r.input.Click(p.ref) }) })
	r.connectHover(p)
	return p
}

// buildBigBox lays out title, number and content with a close icon, plus
// the companion mini icon window.
func (r *Renderer) buildBigBox(v notify.View, cfg config.DisplayConfig) *Popup {
	p := &Popup{ref: v.Ref, width: cfg.BigWidth}
	p.window = newWindow(r.app, layershell.LayerShellLayerTop, "stackbox-big")
	p.window.SetDefaultSize(cfg.BigWidth, -1)
	p.window.SetSizeRequest(cfg.BigWidth, -1)

	p.box = widgetBox(v, cfg, r.colorScheme())
	header := gtk.NewBox(gtk.OrientationHorizontal, 8)
	header.Append(newLabel(v.Title, "widget-title", false))
	p.closeBtn = gtk.NewButtonFromIconName("window-close-symbolic")
	p.closeBtn.AddCSSClass("widget-close")
	p.closeBtn.ConnectClicked(func() {
		r.call("close icon", func() error { return r.input.ClickCloseIcon(p.ref) })
	})
	header.Append(p.closeBtn)
	p.box.Append(header)

	body := gtk.NewBox(gtk.OrientationHorizontal, 12)
	body.Append(newIcon(v.Icon, "widget-icon", 32))
	if v.Number != "" {
		body.Append(newLabel(v.Number, "widget-number", false))
	}
	p.box.Append(body)
	if v.Content != "" {
		p.box.Append(newLabel(v.Content, "widget-content", true))
	}
	p.window.SetChild(p.box)
	r.connectHover(p)

	p.mini = newWindow(r.app, layershell.LayerShellLayerTop, "stackbox-mini")
	p.mini.SetDefaultSize(MiniIconSize, MiniIconSize)
	miniBox := gtk.NewBox(gtk.OrientationVertical, 0)
	miniBox.AddCSSClass("mini-icon")
	miniBox.AddCSSClass(theme.WidgetClass(v.Ref))
	miniBox.Append(newIcon(v.Icon, "widget-icon", MiniIconSize/2))
	p.mini.SetChild(miniBox)
	r.connectClick(p.mini, func() {
		r.call("mini icon", func() error { return r.input.ClickMiniIcon(p.ref) })
	})
	return p
}

// buildMessageBox lays out title, content, the optional input and the
// buttons. Enter presses the first button and Escape the last.
func (r *Renderer) buildMessageBox(v notify.View, cfg config.DisplayConfig) *Popup {
	p := &Popup{ref: v.Ref, width: cfg.MessageWidth}
	p.window = newWindow(r.app, layershell.LayerShellLayerOverlay, "stackbox-message")
	layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeOnDemand)
	p.window.SetDefaultSize(cfg.MessageWidth, -1)

	p.box = widgetBox(v, cfg, r.colorScheme())
	p.box.Append(newLabel(v.Title, "widget-title", false))
	if v.Content != "" {
		p.box.Append(newLabel(v.Content, "widget-content", true))
	}
	if v.Input != nil {
		p.box.Append(r.buildInput(p, v.Input))
	}

	buttons := gtk.NewBox(gtk.OrientationHorizontal, 6)
	buttons.AddCSSClass("widget-buttons")
	buttons.SetHAlign(gtk.AlignEnd)
	for _, label := range v.Buttons {
		btn := gtk.NewButtonWithLabel(label)
		btn.AddCSSClass("widget-button")
		btn.ConnectClicked(func() {
			r.call("button", func() error { return r.input.PressButton(p.ref, label, p.inputValue()) })
		})
		buttons.Append(btn)
	}
	p.box.Append(buttons)
	p.window.SetChild(p.box)

	keys := gtk.NewEventControllerKey()
	keys.ConnectKeyPressed(func(keyval, keycode uint, state gdk.ModifierType) bool {
		switch keyval {
		case gdk.KEY_Return, gdk.KEY_KP_Enter:
			r.call("key", func() error { return r.input.KeyPress(notify.KeyEnter, p.inputValue()) })
			return true
		case gdk.KEY_Escape:
			r.call("key", func() error { return r.input.KeyPress(notify.KeyEscape, p.inputValue()) })
			return true
		}
		return false
	})
	p.window.AddController(keys)
	return p
}

func (r *Renderer) buildInput(p *Popup, in *notify.Input) gtk.Widgetter {
	switch in.Type {
	case notify.InputPassword:
		entry := gtk.NewPasswordEntry()
		entry.AddCSSClass("widget-input")
		entry.SetShowPeekIcon(true)
		entry.SetObjectProperty("placeholder-text", in.Placeholder)
		p.value = entry.Text
		return entry
	case notify.InputSelect:
		dropdown := gtk.NewDropDownFromStrings(in.Options)
		dropdown.AddCSSClass("widget-input")
		options := in.Options
		p.value = func() string {
			if i := int(dropdown.Selected()); i >= 0 && i < len(options) {
				return options[i]
			}
			return ""
		}
		return dropdown
	default:
		entry := gtk.NewEntry()
		entry.AddCSSClass("widget-input")
		entry.SetPlaceholderText(in.Placeholder)
		entry.SetText(in.Value)
		p.value = entry.Text
		return entry
	}
}

func (p *Popup) inputValue() string {
	if p.value == nil {
		return ""
	}
	return p.value()
}

func (r *Renderer) connectClick(window *gtk.Window, onClick func()) {
	click := gtk.NewGestureClick()
	click.SetButton(1)
	click.ConnectReleased(func(nPress int, x, y float64) { onClick() })
	window.AddController(click)
}

func (r *Renderer) connectHover(p *Popup) {
	motion := gtk.NewEventControllerMotion()
	motion.ConnectEnter(func(x, y float64) {
		p.box.AddCSSClass("hovered")
		r.call("pointer enter", func() error { return r.input.PointerEnter(p.ref) })
	})
	motion.ConnectLeave(func() {
		p.box.RemoveCSSClass("hovered")
		r.call("pointer leave", func() error { return r.input.PointerLeave(p.ref) })
	})
	p.window.AddController(motion)
}

// measure returns the natural height of the popup at its width.
func (p *Popup) measure() int {
	_, natural, _, _ := p.box.Measure(gtk.OrientationVertical, p.width)
	return natural
}

// fadeOut runs the exit animation and calls done when it finishes.
func (p *Popup) fadeOut(duration time.Duration, done func()) {
	p.closing = true
	p.box.AddCSSClass("closing")
	if duration <= 0 {
		done()
		return
	}

	target := adw.NewCallbackAnimationTarget(func(value float64) {
		p.window.SetOpacity(value)
		if p.mini != nil {
			p.mini.SetOpacity(value)
		}
	})
	anim := adw.NewTimedAnimation(p.window, 1, 0, uint(duration.Milliseconds()), target)
	anim.ConnectDone(done)
	anim.Play()
}

// Close destroys the popup windows.
func (p *Popup) Close() {
	p.window.Destroy()
	if p.mini != nil {
		p.mini.Destroy()
	}
}
