package theme

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// WidgetClass is the CSS class that scopes a widget's color rules,
// e.g. "sb-big-3".
func WidgetClass(ref notify.Ref) string {
	return "sb-" + ref.Kind.String() + "-" + strconv.Itoa(ref.ID)
}

// KindClass is the CSS class shared by every widget of kind.
func KindClass(kind notify.Kind) string {
	switch kind {
	case notify.KindMessageBox:
		return "message-box"
	case notify.KindBigBox:
		return "big-box"
	default:
		return "small-box"
	}
}

// colorSelector returns the selector of one recolored part.
func colorSelector(class string, target notify.ColorTarget) string {
	switch target {
	case notify.TargetMiniIcon:
		return ".mini-icon." + class
	case notify.TargetCloseIcon:
		return ".stackbox-widget." + class + " .widget-close"
	default:
		return ".stackbox-widget." + class
	}
}

// ColorRule renders the CSS applying color to targets of the widget
// scoped by class. No targets means the body.
func ColorRule(class, color string, targets []notify.ColorTarget) string {
	if len(targets) == 0 {
		targets = []notify.ColorTarget{notify.TargetBody}
	}
	selectors := make([]string, 0, len(targets))
	for _, target := range targets {
		selectors = append(selectors, colorSelector(class, target))
	}
	return strings.Join(selectors, ",\n") + " {\n  background-color: " + color + ";\n}\n"
}

// Overlay holds the current color of every live widget and renders them
// as one stylesheet loaded above the theme.
type Overlay struct {
	mu    sync.Mutex
	rules map[string]string
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{rules: make(map[string]string)}
}

// Set records the color of ref's targets and returns the new stylesheet.
func (o *Overlay) Set(ref notify.Ref, color string, targets []notify.ColorTarget) string {
	class := WidgetClass(ref)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.rules[class] = ColorRule(class, color, targets)
	return o.cssLocked()
}

// Forget drops ref's rules and returns the new stylesheet.
func (o *Overlay) Forget(ref notify.Ref) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.rules, WidgetClass(ref))
	return o.cssLocked()
}

// Len returns the number of widgets with a color rule.
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.rules)
}

// CSS returns the current stylesheet.
func (o *Overlay) CSS() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cssLocked()
}

func (o *Overlay) cssLocked() string {
	classes := make([]string, 0, len(o.rules))
	for class := range o.rules {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var b strings.Builder
	for _, class := range classes {
		b.WriteString(o.rules[class])
	}
	return b.String()
}
