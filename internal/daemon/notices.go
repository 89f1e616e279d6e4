package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/stackbox/internal/dbus"
	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/jmylchreest/stackbox/internal/notify"
)

// NoticeLevel is the severity of an internal notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

const noticeTimeout = 5 * time.Second

// Notices raises small boxes about the daemon itself, such as a rejected
// configuration reload. A notice is not repeated under the same key within
// the minimum interval.
type Notices struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	send func(n *dbus.DBusNotification) (uint32, error)

	last        map[string]time.Time
	minInterval time.Duration
	enabled     bool
	color       string
}

// NewNotices creates a notice sender that hands notifications to send,
// normally NotificationServer.NotifyInternal.
func NewNotices(send func(n *dbus.DBusNotification) (uint32, error), logger *slog.Logger) *Notices {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notices{
		logger:      logger,
		now:         time.Now,
		send:        send,
		last:        make(map[string]time.Time),
		minInterval: 5 * time.Second,
		enabled:     true,
	}
}

// Configure sets whether notices are shown and the color of warnings
// and errors.
func (n *Notices) Configure(enabled bool, color string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
	n.color = color
}

// Notify shows a notice unless notices are off or key was used recently.
func (n *Notices) Notify(key, title, content string, level NoticeLevel) {
	n.mu.Lock()
	if !n.enabled || n.send == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notice skipped", "key", key, "title", title)
		return
	}
	now := n.now()
	if last, ok := n.last[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notice rate-limited", "key", key)
		return
	}
	n.last[key] = now

	req := notify.Request{
		Kind:    notify.KindSmallBox,
		Title:   title,
		Content: content,
		Timeout: noticeTimeout,
		Silent:  level == NoticeInfo,
		Origin:  notify.Origin{Source: model.SourceInternal},
	}
	switch level {
	case NoticeInfo:
		req.Icon = "fa fa-info-circle"
	case NoticeWarning:
		req.Icon = "fa fa-warning"
		req.Color = n.color
	case NoticeError:
		req.Icon = "fa fa-times-circle"
		req.Color = n.color
		req.Timeout = notify.NoTimeout
	}
	send := n.send
	n.mu.Unlock()

	n.logger.Debug("sending internal notice", "key", key, "title", title, "level", level.String())
	if _, err := send(dbus.NewNotification("stackboxd", req)); err != nil {
		n.logger.Warn("internal notice rejected", "key", key, "error", err)
	}
}

// ConfigReloaded reports a successful configuration reload.
func (n *Notices) ConfigReloaded() {
	n.Notify("config-reload", "Configuration reloaded", "stackboxd picked up the new settings.", NoticeInfo)
}

// ConfigError reports a configuration that was rejected on reload.
func (n *Notices) ConfigError(err error) {
	n.Notify("config-error", "Configuration error", "Keeping the previous settings: "+err.Error(), NoticeWarning)
}

// ThemeReloaded reports a theme switch.
func (n *Notices) ThemeReloaded(name string) {
	n.Notify("theme-reload", "Theme reloaded", "Theme '"+name+"' is active.", NoticeInfo)
}

// ThemeError reports a theme that failed to load.
func (n *Notices) ThemeError(err error) {
	n.Notify("theme-error", "Theme error", "Failed to load theme: "+err.Error(), NoticeWarning)
}

// MuteChanged reports a mute toggle made from the CLI.
func (n *Notices) MuteChanged(muted bool, by string) {
	title, content := "Sound on", "Widgets play their sounds again."
	if muted {
		title, content = "Muted", "Widgets appear without sound."
	}
	if by != "" {
		content += " (" + by + ")"
	}
	n.Notify("mute", title, content, NoticeInfo)
}

// ScheduleError reports a schedule entry that could not raise its widget.
func (n *Notices) ScheduleError(name string, err error) {
	n.Notify("schedule-"+name, "Schedule failed", name+": "+err.Error(), NoticeError)
}
