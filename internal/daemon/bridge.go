package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/stackbox/internal/dbus"
	"github.com/jmylchreest/stackbox/internal/notify"
)

// Widgets is the part of *notify.Manager the bridge drives.
type Widgets interface {
	Show(req notify.Request, cb notify.Callback) (notify.Ref, error)
	Dismiss(ref notify.Ref) error
	CloseAllMessageBoxes()
	Snapshot() notify.Snapshot
}

// Bus reports widget outcomes to D-Bus clients. *dbus.NotificationServer
// implements it.
type Bus interface {
	CloseWithReason(id uint32, reason dbus.CloseReason) error
	PressButton(id uint32, actionKey, label, value string) error
}

// Bridge connects the freedesktop notification server to the widget
// manager. It also serves the control interface.
type Bridge struct {
	widgets Widgets
	bus     Bus
	ids     *idTable
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	muted    bool
	onClosed []func(notify.Result)
}

// NewBridge creates a Bridge.
func NewBridge(widgets Widgets, bus Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		widgets: widgets,
		bus:     bus,
		ids:     newIDTable(),
		logger:  logger,
		now:     time.Now,
	}
}

// OnClosed registers fn to see every widget result shown through the bridge.
func (b *Bridge) OnClosed(fn func(notify.Result)) {
	b.mu.Lock()
	b.onClosed = append(b.onClosed, fn)
	b.mu.Unlock()
}

// SetMuted makes every later widget silent.
func (b *Bridge) SetMuted(muted bool) {
	b.mu.Lock()
	b.muted = muted
	b.mu.Unlock()
}

// HandleNotify shows a Notify call under id. A call replacing an earlier
// notification dismisses the old widget without a NotificationClosed
// signal for it.
func (b *Bridge) HandleNotify(n *dbus.DBusNotification, id uint32) error {
	req, err := n.Request()
	if err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	b.mu.RLock()
	if b.muted {
		req.Silent = true
	}
	b.mu.RUnlock()

	t := &tracked{CreatedAt: b.now()}
	old := b.ids.Put(id, t)

	ref, err := b.widgets.Show(req, func(res notify.Result) {
		b.closed(n, t, res)
	})
	if err != nil {
		b.ids.Restore(t, old)
		return err
	}
	b.ids.Bind(t, ref)

	if old != nil && old.shown {
		if err := b.widgets.Dismiss(old.Ref); err != nil && !errors.Is(err, notify.ErrUnknownWidget) {
			b.logger.Warn("failed to dismiss replaced widget", "widget", old.Ref.String(), "error", err)
		}
	}

	b.logger.Debug("notification shown", "id", id, "widget", ref.String(), "app", n.AppName)
	return nil
}

func (b *Bridge) closed(n *dbus.DBusNotification, t *tracked, res notify.Result) {
	b.observe(res)

	if !b.ids.Release(t) {
		return
	}
	if res.Reason == notify.CloseReasonButton {
		if err := b.bus.PressButton(t.ID, n.ActionKey(res.Button), res.Button, res.Value); err != nil {
			b.logger.Warn("failed to report button", "id", t.ID, "error", err)
		}
	}
	if err := b.bus.CloseWithReason(t.ID, dbus.CloseReasonFor(res.Reason)); err != nil {
		b.logger.Warn("failed to emit close signal", "id", t.ID, "error", err)
	}
}

func (b *Bridge) observe(res notify.Result) {
	b.mu.RLock()
	observers := append([]func(notify.Result){}, b.onClosed...)
	b.mu.RUnlock()
	for _, fn := range observers {
		fn(res)
	}
}

// Listen closes the notifications of widgets destroyed without a
// callback, e.g. by CloseMessageBoxes or shutdown.
func (b *Bridge) Listen(e notify.Event) {
	if e.Type != notify.EventStateChanged || e.State != notify.StateClosing || e.Reason != notify.CloseReasonDestroyed {
		return
	}
	t, ok := b.ids.ReleaseRef(e.Ref)
	if !ok {
		return
	}
	b.observe(notify.Result{Ref: e.Ref, Reason: notify.CloseReasonDestroyed})
	if err := b.bus.CloseWithReason(t.ID, dbus.CloseReasonClosed); err != nil {
		b.logger.Warn("failed to emit close signal", "id", t.ID, "error", err)
	}
}

// HandleClose serves CloseNotification.
func (b *Bridge) HandleClose(id uint32) {
	ref, ok := b.ids.Lookup(id)
	if !ok {
		b.logger.Debug("close for unknown notification", "id", id)
		return
	}
	if err := b.widgets.Dismiss(ref); err != nil {
		b.logger.Debug("close failed", "id", id, "widget", ref.String(), "error", err)
	}
}

// statusEntry is one widget in the Status reply.
type statusEntry struct {
	Ref       string    `json:"ref"`
	ID        uint32    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Color     string    `json:"color,omitempty"`
	State     string    `json:"state"`
	Source    string    `json:"source,omitempty"`
	App       string    `json:"app,omitempty"`
	Visible   bool      `json:"visible"`
	Top       int       `json:"top,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// statusReply is the JSON document returned by Status.
type statusReply struct {
	Widgets      []statusEntry  `json:"widgets"`
	QueuedModals []int          `json:"queued_modals,omitempty"`
	Backdrop     bool           `json:"backdrop"`
	Counters     map[string]int `json:"counters"`
	Muted        bool           `json:"muted"`
}

// Status implements dbus.Controller.
func (b *Bridge) Status() (string, error) {
	snap := b.widgets.Snapshot()

	reply := statusReply{
		Widgets:      make([]statusEntry, 0, len(snap.Widgets)),
		QueuedModals: snap.QueuedModals,
		Backdrop:     snap.Backdrop,
		Counters:     make(map[string]int, len(snap.Counters)),
	}
	b.mu.RLock()
	reply.Muted = b.muted
	b.mu.RUnlock()

	for kind, n := range snap.Counters {
		reply.Counters[kind.String()] = n
	}
	for _, v := range snap.Widgets {
		id, _ := b.ids.IDFor(v.Ref)
		reply.Widgets = append(reply.Widgets, statusEntry{
			Ref:       v.Ref.String(),
			ID:        id,
			Title:     v.Title,
			Content:   v.Content,
			Color:     v.Color,
			State:     v.State.String(),
			Source:    v.Origin.Source,
			App:       v.Origin.App,
			Visible:   v.Visible,
			Top:       v.Top,
			CreatedAt: v.CreatedAt,
		})
	}
	sort.Slice(reply.Widgets, func(i, j int) bool {
		return reply.Widgets[i].CreatedAt.Before(reply.Widgets[j].CreatedAt)
	})

	data, err := json.Marshal(reply)
	if err != nil {
		return "", fmt.Errorf("failed to encode status: %w", err)
	}
	return string(data), nil
}

// Dismiss implements dbus.Controller.
func (b *Bridge) Dismiss(ref string) error {
	r, err := notify.ParseRef(ref)
	if err != nil {
		return err
	}
	return b.widgets.Dismiss(r)
}

// CloseMessageBoxes implements dbus.Controller.
func (b *Bridge) CloseMessageBoxes() int {
	n := 0
	for _, v := range b.widgets.Snapshot().Widgets {
		if v.Ref.Kind == notify.KindMessageBox && v.State == notify.StateActive {
			n++
		}
	}
	b.widgets.CloseAllMessageBoxes()
	return n
}
