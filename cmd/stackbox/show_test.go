package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/jmylchreest/stackbox/internal/notify"
)

func TestBoxRequest(t *testing.T) {
	tests := []struct {
		name string
		kind notify.Kind
		opts boxOpts
		args []string
		want notify.Request
	}{
		{
			name: "title only",
			kind: notify.KindSmallBox,
			args: []string{"Saved"},
			want: notify.Request{Kind: notify.KindSmallBox, Title: "Saved"},
		},
		{
			name: "sticky cycling big box",
			kind: notify.KindBigBox,
			opts: boxOpts{number: "3", colors: []string{"red", " blue ", ""}, colorTime: 2 * time.Second, timeout: time.Minute, sticky: true},
			args: []string{"Release", "v2 is out"},
			want: notify.Request{
				Kind:      notify.KindBigBox,
				Title:     "Release",
				Content:   "v2 is out",
				Number:    "3",
				Colors:    []notify.ColorStop{{Color: "red"}, {Color: "blue"}},
				ColorTime: 2 * time.Second,
				Timeout:   notify.NoTimeout,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want.Origin = notify.Origin{Source: model.SourceCLI}
			assert.Equal(t, tt.want, boxRequest(tt.kind, &tt.opts, tt.args))
		})
	}
}

func TestMessageRequest(t *testing.T) {
	t.Cleanup(func() {
		messageOpts.buttons, messageOpts.bracket, messageOpts.input = nil, "", ""
		messageOpts.options = nil
	})

	messageOpts.buttons = []string{"Deploy"}
	messageOpts.bracket = "[Later][Cancel]"
	messageOpts.input = "Select"
	messageOpts.options = []string{"main", "develop"}

	req, err := messageRequest([]string{"Deploy?"})
	require.NoError(t, err)
	assert.Equal(t, notify.KindMessageBox, req.Kind)
	assert.Equal(t, []string{"Deploy", "Later", "Cancel"}, req.Buttons)
	require.NotNil(t, req.Input)
	assert.Equal(t, notify.InputSelect, req.Input.Type)

	messageOpts.options = nil
	_, err = messageRequest([]string{"Deploy?"})
	assert.Error(t, err, "a select input needs options")

	messageOpts.input = "slider"
	_, err = messageRequest([]string{"Deploy?"})
	assert.Error(t, err)
}

func TestWaybarStatus(t *testing.T) {
	status := func(muted bool, refs ...string) *daemonStatus {
		st := &daemonStatus{Muted: muted}
		for _, ref := range refs {
			st.Widgets = append(st.Widgets, statusWidget{Ref: ref, State: "active"})
		}
		return st
	}

	tests := []struct {
		name      string
		status    *daemonStatus
		wantText  string
		wantClass string
	}{
		{name: "empty", status: status(false), wantClass: "empty"},
		{name: "small only", status: status(false, "small#1", "small#2"), wantText: "2", wantClass: "small"},
		{name: "message wins", status: status(false, "small#1", "big#1", "message#1"), wantText: "3", wantClass: "message"},
		{name: "muted", status: status(true, "big#4"), wantText: "1", wantClass: "big-muted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := waybarStatus(tt.status)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantClass, got.Class)
		})
	}
}
