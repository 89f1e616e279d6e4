package display

import (
	"log/slog"
	"sync"
	"unsafe"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/stackbox/internal/config"
)

// MiniIconSize is the edge length of a mini icon window.
const MiniIconSize = 48

// Placement anchors a window to one vertical and one horizontal screen
// edge with the given margins. Centered windows have no anchors.
type Placement struct {
	Bottom   bool // anchored to the bottom edge rather than the top
	Left     bool // anchored to the left edge rather than the right
	VMargin  int
	HMargin  int
	Centered bool
	// Fill anchors all four edges (the backdrop).
	Fill bool
}

// LayoutManager maps widgets to screen placements and picks the monitor.
type LayoutManager struct {
	mu      sync.RWMutex
	config  config.DisplayConfig
	display *gdk.Display
	logger  *slog.Logger
}

// NewLayoutManager creates a new layout manager. The display is looked up
// lazily so placements can be computed without a GTK session.
func NewLayoutManager(cfg config.DisplayConfig, logger *slog.Logger) *LayoutManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LayoutManager{
		config: cfg,
		logger: logger,
	}
}

// UpdateConfig replaces the display settings.
func (l *LayoutManager) UpdateConfig(cfg config.DisplayConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config = cfg
}

// Config returns the current display settings.
func (l *LayoutManager) Config() config.DisplayConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// IsBottom reports whether the small-box column grows up from the bottom.
func (l *LayoutManager) IsBottom() bool {
	pos := config.Position(l.Config().Position)
	return pos == config.PositionBottomLeft || pos == config.PositionBottomRight
}

// IsLeft reports whether the columns sit on the left edge.
func (l *LayoutManager) IsLeft() bool {
	pos := config.Position(l.Config().Position)
	return pos == config.PositionTopLeft || pos == config.PositionBottomLeft
}

// SmallBox places a small box whose column offset is top.
func (l *LayoutManager) SmallBox(top int) Placement {
	cfg := l.Config()
	return Placement{
		Bottom:  l.IsBottom(),
		Left:    l.IsLeft(),
		VMargin: cfg.OffsetY + top,
		HMargin: cfg.OffsetX,
	}
}

// BigBox places a big box in the corner opposite the small-box column on
// the same side. Big boxes share the corner and overlap.
func (l *LayoutManager) BigBox() Placement {
	cfg := l.Config()
	return Placement{
		Bottom:  !l.IsBottom(),
		Left:    l.IsLeft(),
		VMargin: cfg.OffsetY,
		HMargin: cfg.OffsetX,
	}
}

// MiniIcon places the mini icon of the index-th live big box in a row
// beside the big boxes, growing away from the screen edge.
func (l *LayoutManager) MiniIcon(index int) Placement {
	cfg := l.Config()
	p := l.BigBox()
	p.HMargin = cfg.OffsetX + cfg.BigWidth + cfg.Gap + index*(MiniIconSize+cfg.Gap)
	return p
}

// MessageBox places a message box in the middle of the screen.
func (l *LayoutManager) MessageBox() Placement {
	return Placement{Centered: true}
}

// Backdrop covers the whole monitor.
func (l *LayoutManager) Backdrop() Placement {
	return Placement{Fill: true}
}

// Apply sets the layer-shell anchors and margins of window.
func (l *LayoutManager) Apply(window *gtk.Window, p Placement) {
	edges := []layershell.Edge{
		layershell.LayerShellEdgeTop,
		layershell.LayerShellEdgeBottom,
		layershell.LayerShellEdgeLeft,
		layershell.LayerShellEdgeRight,
	}
	for _, edge := range edges {
		layershell.SetAnchor(window, edge, p.Fill)
		layershell.SetMargin(window, edge, 0)
	}
	if p.Fill || p.Centered {
		return
	}

	vertical := layershell.LayerShellEdgeTop
	if p.Bottom {
		vertical = layershell.LayerShellEdgeBottom
	}
	horizontal := layershell.LayerShellEdgeRight
	if p.Left {
		horizontal = layershell.LayerShellEdgeLeft
	}

	layershell.SetAnchor(window, vertical, true)
	layershell.SetAnchor(window, horizontal, true)
	layershell.SetMargin(window, vertical, p.VMargin)
	layershell.SetMargin(window, horizontal, p.HMargin)
}

// GetMonitor returns the configured monitor. Zero means the compositor's
// choice and returns nil; an unavailable monitor falls back to the first.
func (l *LayoutManager) GetMonitor() *gdk.Monitor {
	l.mu.Lock()
	if l.display == nil {
		l.display = gdk.DisplayGetDefault()
	}
	display, monitorNum := l.display, l.config.Monitor
	l.mu.Unlock()

	if display == nil || monitorNum == 0 {
		return nil
	}

	monitors := display.Monitors()
	if monitors == nil {
		l.logger.Warn("no monitors list available")
		return nil
	}

	index := uint(monitorNum - 1)
	if index >= monitors.NItems() {
		l.logger.Warn("configured monitor not available, using first",
			"configured", monitorNum,
			"available", monitors.NItems(),
		)
		index = 0
	}
	if monitors.NItems() == 0 {
		return nil
	}
	return wrapMonitor(monitors.Item(index))
}

// wrapMonitor converts a list item into a gdk.Monitor; gotk4 does not
// export its own wrapper. gdk.Monitor embeds a *glib.Object, so a struct
// with the same layout can be cast.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// SetMonitor pins window to monitor; nil leaves the choice to the compositor.
func (l *LayoutManager) SetMonitor(window *gtk.Window, monitor *gdk.Monitor) {
	if monitor == nil {
		return
	}
	layershell.SetMonitor(window, monitor)
}

// HandleMonitorChange drops the cached display after a monitor hotplug.
func (l *LayoutManager) HandleMonitorChange() {
	l.mu.Lock()
	l.display = gdk.DisplayGetDefault()
	display := l.display
	l.mu.Unlock()

	if display == nil {
		l.logger.Warn("no display available after monitor change")
		return
	}
	if monitors := display.Monitors(); monitors != nil {
		l.logger.Info("monitor configuration changed", "count", monitors.NItems())
	}
}
