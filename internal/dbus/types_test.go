package dbus

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackbox/internal/notify"
)

func TestCloseReasonString(t *testing.T) {
	tests := []struct {
		reason   CloseReason
		expected string
	}{
		{CloseReasonExpired, "expired"},
		{CloseReasonDismissed, "dismissed"},
		{CloseReasonClosed, "closed"},
		{CloseReasonUndefined, "undefined"},
		{CloseReason(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reason.String())
		})
	}
}

func TestCloseReasonFor(t *testing.T) {
	tests := []struct {
		reason   notify.CloseReason
		expected CloseReason
	}{
		{notify.CloseReasonExpired, CloseReasonExpired},
		{notify.CloseReasonClicked, CloseReasonDismissed},
		{notify.CloseReasonButton, CloseReasonDismissed},
		{notify.CloseReasonRequested, CloseReasonClosed},
		{notify.CloseReasonDestroyed, CloseReasonClosed},
		{notify.CloseReasonNone, CloseReasonUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, CloseReasonFor(tt.reason))
		})
	}
}

func TestParsedActions(t *testing.T) {
	tests := []struct {
		name     string
		actions  []string
		expected []Action
	}{
		{
			name:     "empty",
			actions:  nil,
			expected: []Action{},
		},
		{
			name:     "single action",
			actions:  []string{"default", "Open"},
			expected: []Action{{Key: "default", Label: "Open"}},
		},
		{
			name:    "multiple actions",
			actions: []string{"default", "Open", "dismiss", "Dismiss", "reply", "Reply"},
			expected: []Action{
				{Key: "default", Label: "Open"},
				{Key: "dismiss", Label: "Dismiss"},
				{Key: "reply", Label: "Reply"},
			},
		},
		{
			name:     "odd number (incomplete pair ignored)",
			actions:  []string{"default", "Open", "orphan"},
			expected: []Action{{Key: "default", Label: "Open"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Actions: tt.actions}
			assert.Equal(t, tt.expected, n.ParsedActions())
		})
	}
}

func TestActionKey(t *testing.T) {
	n := &DBusNotification{Actions: []string{"ok", "Accept", "no", "Decline"}}
	assert.Equal(t, "ok", n.ActionKey("Accept"))
	assert.Equal(t, "no", n.ActionKey("Decline"))
	assert.Equal(t, "Other", n.ActionKey("Other"))
}

func TestUrgency(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		expected int
	}{
		{"no hint", nil, UrgencyNormal},
		{"low", map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(0))}, UrgencyLow},
		{"critical", map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))}, UrgencyCritical},
		{"int32", map[string]dbus.Variant{"urgency": dbus.MakeVariant(int32(2))}, UrgencyCritical},
		{"wrong type", map[string]dbus.Variant{"urgency": dbus.MakeVariant("high")}, UrgencyNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Hints: tt.hints}
			assert.Equal(t, tt.expected, n.Urgency())
		})
	}
}

func TestBoolAndStringHints(t *testing.T) {
	n := &DBusNotification{
		Hints: map[string]dbus.Variant{
			"suppress-sound": dbus.MakeVariant(true),
			"transient":      dbus.MakeVariant(true),
			"resident":       dbus.MakeVariant("yes"),
			"category":       dbus.MakeVariant("im.received"),
			"desktop-entry":  dbus.MakeVariant("slack"),
			"image-path":     dbus.MakeVariant("/tmp/a.png"),
			"bgcolor":        dbus.MakeVariant("#000000"),
		},
	}

	assert.True(t, n.SuppressSound())
	assert.True(t, n.Transient())
	assert.False(t, n.Resident(), "wrong type is ignored")
	assert.Equal(t, "im.received", n.Category())
	assert.Equal(t, "slack", n.DesktopEntry())
	assert.Equal(t, "/tmp/a.png", n.ImagePath())
	assert.Equal(t, "#000000", n.BackgroundColor())

	n.Hints = nil
	assert.False(t, n.SuppressSound())
	assert.Equal(t, "", n.Category())
	assert.Equal(t, -1, n.Progress())
}

func TestKindSelection(t *testing.T) {
	tests := []struct {
		name     string
		n        DBusNotification
		expected notify.Kind
		wantErr  bool
	}{
		{
			name:     "plain notification",
			expected: notify.KindSmallBox,
		},
		{
			name:     "critical urgency",
			n:        DBusNotification{Hints: map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))}},
			expected: notify.KindBigBox,
		},
		{
			name:     "actions",
			n:        DBusNotification{Actions: []string{"ok", "OK"}},
			expected: notify.KindMessageBox,
		},
		{
			name: "explicit hint wins",
			n: DBusNotification{
				Actions: []string{"ok", "OK"},
				Hints:   map[string]dbus.Variant{HintKind: dbus.MakeVariant("small")},
			},
			expected: notify.KindSmallBox,
		},
		{
			name:    "unknown hint",
			n:       DBusNotification{Hints: map[string]dbus.Variant{HintKind: dbus.MakeVariant("giant")}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := tt.n.Kind()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestRequestFromHints(t *testing.T) {
	n := &DBusNotification{
		AppName:       "ci",
		AppIcon:       "dialog-warning",
		Summary:       "Build failed",
		Body:          "main is red",
		ExpireTimeout: 0,
		Hints: map[string]dbus.Variant{
			"urgency":       dbus.MakeVariant(byte(2)),
			"value":         dbus.MakeVariant(int32(40)),
			HintColors:      dbus.MakeVariant("#f00, #900 ,"),
			HintColorTime:   dbus.MakeVariant(int32(750)),
			"suppress-sound": dbus.MakeVariant(true),
		},
	}

	req, err := n.Request()
	require.NoError(t, err)

	assert.Equal(t, notify.KindBigBox, req.Kind)
	assert.Equal(t, "Build failed", req.Title)
	assert.Equal(t, "main is red", req.Content)
	assert.Equal(t, "dialog-warning", req.Icon)
	assert.Equal(t, "40%", req.Number, "progress becomes the big box number")
	assert.Equal(t, []notify.ColorStop{{Color: "#f00"}, {Color: "#900"}}, req.Colors)
	assert.Equal(t, 750*time.Millisecond, req.ColorTime)
	assert.Equal(t, notify.NoTimeout, req.Timeout)
	assert.True(t, req.Silent)
}

func TestRequestMessageBox(t *testing.T) {
	n := &DBusNotification{
		Summary:       "Deploy?",
		Actions:       []string{"yes", "Deploy", "no", ""},
		ExpireTimeout: -1,
		Hints: map[string]dbus.Variant{
			HintInput:       dbus.MakeVariant("select"),
			HintOptions:     dbus.MakeVariant("prod,staging"),
			HintPlaceholder: dbus.MakeVariant("target"),
			HintColorTime:   dbus.MakeVariant("2s"),
		},
	}

	req, err := n.Request()
	require.NoError(t, err)

	assert.Equal(t, notify.KindMessageBox, req.Kind)
	assert.Equal(t, []string{"Deploy", "no"}, req.Buttons, "empty labels fall back to the key")
	assert.Equal(t, time.Duration(0), req.Timeout, "-1 uses the kind default")
	assert.Equal(t, 2*time.Second, req.ColorTime)
	require.NotNil(t, req.Input)
	assert.Equal(t, notify.InputSelect, req.Input.Type)
	assert.Equal(t, []string{"prod", "staging"}, req.Input.Options)
	assert.Equal(t, "target", req.Input.Placeholder)

	n.Hints[HintColorTime] = dbus.MakeVariant("soon")
	_, err = n.Request()
	assert.Error(t, err)
}

func TestEncodeRequestRoundTrip(t *testing.T) {
	tests := []notify.Request{
		{
			Kind:      notify.KindSmallBox,
			Title:     "Saved",
			Content:   "file.txt",
			Icon:      "fa fa-check",
			SmallIcon: "fa fa-bell",
			Color:     "#296191",
			Colors:    []notify.ColorStop{{Color: "#f00"}, {Color: "#0f0"}},
			ColorTime: 500 * time.Millisecond,
			Timeout:   4 * time.Second,
			Silent:    true,
			Origin:    notify.Origin{Source: "cli", App: "stackbox"},
		},
		{
			Kind:    notify.KindBigBox,
			Title:   "Disk",
			Number:  "92%",
			Timeout: notify.NoTimeout,
			Origin:  notify.Origin{Source: "schedule", App: "stackbox"},
		},
		{
			Kind:    notify.KindMessageBox,
			Title:   "Name?",
			Buttons: []string{"Save", "Cancel"},
			Input:   &notify.Input{Type: notify.InputText, Placeholder: "name", Value: "draft"},
			Origin:  notify.Origin{Source: SourceDBus, App: "stackbox"},
		},
	}

	for _, want := range tests {
		t.Run(want.Kind.String(), func(t *testing.T) {
			n := NewNotification("stackbox", want)

			got, err := n.Request()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestRequestDefaultsSourceToDBus(t *testing.T) {
	n := &DBusNotification{AppName: "firefox", Summary: "Download finished"}

	req, err := n.Request()
	require.NoError(t, err)
	assert.Equal(t, notify.Origin{Source: SourceDBus, App: "firefox"}, req.Origin)
}

func TestDefaultServerInfo(t *testing.T) {
	info := DefaultServerInfo()
	assert.Equal(t, "stackboxd", info.Name)
	assert.Equal(t, "stackbox", info.Vendor)
	assert.Equal(t, "1.2", info.SpecVersion)
	assert.NotEmpty(t, info.Version)
}

func TestServerCapabilities(t *testing.T) {
	assert.Contains(t, ServerCapabilities, "actions")
	assert.Contains(t, ServerCapabilities, "body")
	assert.Contains(t, ServerCapabilities, "persistence")
	assert.Contains(t, ServerCapabilities, "sound")
}
