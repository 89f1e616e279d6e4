package dbus

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// CloseReason is the NotificationClosed reason defined by the
// freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved/undefined.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// CloseReasonFor maps a widget close reason to the freedesktop one.
func CloseReasonFor(reason notify.CloseReason) CloseReason {
	switch reason {
	case notify.CloseReasonExpired:
		return CloseReasonExpired
	case notify.CloseReasonClicked, notify.CloseReasonButton:
		return CloseReasonDismissed
	case notify.CloseReasonRequested, notify.CloseReasonDestroyed:
		return CloseReasonClosed
	default:
		return CloseReasonUndefined
	}
}

// Urgency levels of the "urgency" hint.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// Hints understood on top of the standard ones.
const (
	HintKind        = "x-stackbox-kind"
	HintColor       = "x-stackbox-color"
	HintColors      = "x-stackbox-colors"
	HintColorTime   = "x-stackbox-colortime"
	HintNumber      = "x-stackbox-number"
	HintIcon        = "x-stackbox-icon"
	HintSmallIcon   = "x-stackbox-small-icon"
	HintInput       = "x-stackbox-input"
	HintOptions     = "x-stackbox-options"
	HintPlaceholder = "x-stackbox-placeholder"
	HintValue       = "x-stackbox-value"
	HintSource      = "x-stackbox-source"
)

// SourceDBus is the origin of widgets whose caller sent no source hint.
const SourceDBus = "dbus"

// DBusNotification represents an incoming D-Bus Notify call.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Action represents a notification action with key and label.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParsedActions converts the D-Bus action array to structured form.
func (n *DBusNotification) ParsedActions() []Action {
	actions := make([]Action, 0, len(n.Actions)/2)
	for i := 0; i+1 < len(n.Actions); i += 2 {
		actions = append(actions, Action{
			Key:   n.Actions[i],
			Label: n.Actions[i+1],
		})
	}
	return actions
}

// ActionKey returns the action key of a button label, or the label itself
// when no action carries it.
func (n *DBusNotification) ActionKey(label string) string {
	for _, a := range n.ParsedActions() {
		if a.Label == label {
			return a.Key
		}
	}
	return label
}

func (n *DBusNotification) stringHint(key string) string {
	if v, ok := n.Hints[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func (n *DBusNotification) boolHint(key string) bool {
	if v, ok := n.Hints[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// intHint returns an integer hint of any D-Bus integer type, or def.
func (n *DBusNotification) intHint(key string, def int) int {
	if v, ok := n.Hints[key]; ok {
		switch val := v.Value().(type) {
		case int32:
			return int(val)
		case uint32:
			return int(val)
		case int64:
			return int(val)
		case int:
			return val
		case byte:
			return int(val)
		}
	}
	return def
}

// Urgency extracts the urgency hint, UrgencyNormal when absent.
func (n *DBusNotification) Urgency() int {
	return n.intHint("urgency", UrgencyNormal)
}

// Category extracts the category hint.
func (n *DBusNotification) Category() string {
	return n.stringHint("category")
}

// DesktopEntry extracts the desktop-entry hint.
func (n *DBusNotification) DesktopEntry() string {
	return n.stringHint("desktop-entry")
}

// SuppressSound returns true if the suppress-sound hint is set.
func (n *DBusNotification) SuppressSound() bool {
	return n.boolHint("suppress-sound")
}

// Transient returns true if the transient hint is set.
// Transient notifications are not written to history.
func (n *DBusNotification) Transient() bool {
	return n.boolHint("transient")
}

// Resident returns true if the resident hint is set.
func (n *DBusNotification) Resident() bool {
	return n.boolHint("resident")
}

// ImagePath extracts the image-path hint.
func (n *DBusNotification) ImagePath() string {
	return n.stringHint("image-path")
}

// Progress extracts the progress value hint (dunstify -h int:value:N).
// Returns -1 if not present.
func (n *DBusNotification) Progress() int {
	return n.intHint("value", -1)
}

// BackgroundColor extracts the bgcolor hint (dunstify -h string:bgcolor:#RRGGBB).
func (n *DBusNotification) BackgroundColor() string {
	return n.stringHint("bgcolor")
}

// Kind picks the widget kind. An explicit x-stackbox-kind hint wins;
// otherwise critical urgency gives a big box, actions give a message box
// and anything else a small box.
func (n *DBusNotification) Kind() (notify.Kind, error) {
	if s := n.stringHint(HintKind); s != "" {
		return notify.ParseKind(s)
	}
	switch {
	case n.Urgency() == UrgencyCritical:
		return notify.KindBigBox, nil
	case len(n.ParsedActions()) > 0:
		return notify.KindMessageBox, nil
	default:
		return notify.KindSmallBox, nil
	}
}

// Request converts the call into a widget request.
func (n *DBusNotification) Request() (notify.Request, error) {
	kind, err := n.Kind()
	if err != nil {
		return notify.Request{}, err
	}

	req := notify.Request{
		Kind:      kind,
		Title:     n.Summary,
		Content:   n.Body,
		Icon:      firstNonEmpty(n.stringHint(HintIcon), n.AppIcon),
		SmallIcon: n.stringHint(HintSmallIcon),
		Number:    n.stringHint(HintNumber),
		Color:     firstNonEmpty(n.stringHint(HintColor), n.BackgroundColor()),
		Timeout:   expireTimeout(n.ExpireTimeout),
		Silent:    n.SuppressSound(),
		Origin: notify.Origin{
			Source: firstNonEmpty(n.stringHint(HintSource), SourceDBus),
			App:    n.AppName,
		},
	}
	if req.Number == "" && kind == notify.KindBigBox {
		if p := n.Progress(); p >= 0 {
			req.Number = strconv.Itoa(p) + "%"
		}
	}

	for _, c := range splitList(n.stringHint(HintColors)) {
		req.Colors = append(req.Colors, notify.ColorStop{Color: c})
	}
	if ms := n.intHint(HintColorTime, 0); ms > 0 {
		req.ColorTime = time.Duration(ms) * time.Millisecond
	} else if s := n.stringHint(HintColorTime); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return notify.Request{}, fmt.Errorf("invalid %s hint: %w", HintColorTime, err)
		}
		req.ColorTime = d
	}

	if kind == notify.KindMessageBox {
		for _, a := range n.ParsedActions() {
			req.Buttons = append(req.Buttons, firstNonEmpty(a.Label, a.Key))
		}
		if t := n.stringHint(HintInput); t != "" {
			req.Input = &notify.Input{
				Type:        notify.InputType(t),
				Placeholder: n.stringHint(HintPlaceholder),
				Value:       n.stringHint(HintValue),
				Options:     splitList(n.stringHint(HintOptions)),
			}
		}
	}
	return req, nil
}

// expireTimeout maps expire_timeout: -1 is the per-kind default, 0 never
// expires, anything else is milliseconds.
func expireTimeout(ms int32) time.Duration {
	switch {
	case ms < 0:
		return 0
	case ms == 0:
		return notify.NoTimeout
	default:
		return time.Duration(ms) * time.Millisecond
	}
}

// EncodeRequest is the inverse of Request, used by the client.
// Message box buttons become actions whose key is the label.
func EncodeRequest(req notify.Request) (actions []string, hints map[string]dbus.Variant, expire int32) {
	hints = map[string]dbus.Variant{
		HintKind: dbus.MakeVariant(req.Kind.String()),
	}
	setString := func(key, value string) {
		if value != "" {
			hints[key] = dbus.MakeVariant(value)
		}
	}
	setString(HintIcon, req.Icon)
	setString(HintSmallIcon, req.SmallIcon)
	setString(HintNumber, req.Number)
	setString(HintColor, req.Color)
	setString(HintSource, req.Origin.Source)

	if len(req.Colors) > 0 {
		colors := make([]string, 0, len(req.Colors))
		for _, stop := range req.Colors {
			colors = append(colors, stop.Color)
		}
		hints[HintColors] = dbus.MakeVariant(strings.Join(colors, ","))
	}
	if req.ColorTime > 0 {
		hints[HintColorTime] = dbus.MakeVariant(int32(req.ColorTime / time.Millisecond))
	}
	if req.Silent {
		hints["suppress-sound"] = dbus.MakeVariant(true)
	}

	for _, label := range req.Buttons {
		actions = append(actions, label, label)
	}
	if req.Input != nil {
		setString(HintInput, string(req.Input.Type))
		setString(HintPlaceholder, req.Input.Placeholder)
		setString(HintValue, req.Input.Value)
		setString(HintOptions, strings.Join(req.Input.Options, ","))
	}

	switch {
	case req.Timeout == notify.NoTimeout:
		expire = 0
	case req.Timeout > 0:
		expire = int32(req.Timeout / time.Millisecond)
	default:
		expire = -1
	}
	return actions, hints, expire
}

// NewNotification wraps req as a Notify call from appName.
func NewNotification(appName string, req notify.Request) *DBusNotification {
	actions, hints, expire := EncodeRequest(req)
	return &DBusNotification{
		AppName:       appName,
		AppIcon:       req.Icon,
		Summary:       req.Title,
		Body:          req.Content,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expire,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ServerCapabilities lists the capabilities advertised by stackboxd.
var ServerCapabilities = []string{
	"actions",         // message box buttons
	"body",            // widget content
	"icon-static",     // box icons
	"persistence",     // big boxes stay until dismissed
	"sound",           // per-kind creation sounds
	"x-stackbox-kind", // kind selection hint
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "stackboxd",
		Vendor:      "stackbox",
		Version:     "dev",
		SpecVersion: "1.2",
	}
}
