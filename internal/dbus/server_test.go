package dbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyAssignsIDs(t *testing.T) {
	s := NewNotificationServer(nil)

	var got []*DBusNotification
	s.SetNotifyHandler(func(n *DBusNotification, id uint32) error {
		got = append(got, n)
		return nil
	})

	id1, dbusErr := s.Notify("app", 0, "", "one", "", nil, nil, -1)
	require.Nil(t, dbusErr)
	id2, dbusErr := s.Notify("app", 0, "", "two", "", nil, nil, -1)
	require.Nil(t, dbusErr)

	assert.Equal(t, uint32(1), id1)
	assert.Equal(t, uint32(2), id2)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[1].Summary)
	assert.True(t, s.IsActive(id1))
	assert.Equal(t, 2, s.ActiveCount())

	replaced, dbusErr := s.Notify("app", id1, "", "one again", "", nil, nil, -1)
	require.Nil(t, dbusErr)
	assert.Equal(t, id1, replaced)
	assert.Equal(t, 2, s.ActiveCount())
}

func TestNotifyHandlerError(t *testing.T) {
	s := NewNotificationServer(nil)
	s.SetNotifyHandler(func(*DBusNotification, uint32) error {
		return errors.New("invalid color")
	})

	id, dbusErr := s.Notify("app", 0, "", "bad", "", nil, nil, -1)
	require.NotNil(t, dbusErr)
	assert.Equal(t, uint32(0), id)
	assert.Equal(t, 0, s.ActiveCount(), "rejected ids are not tracked")
}

func TestCloseNotification(t *testing.T) {
	s := NewNotificationServer(nil)

	var closed []uint32
	s.SetCloseHandler(func(id uint32) { closed = append(closed, id) })

	id, _ := s.Notify("app", 0, "", "x", "", nil, nil, -1)

	assert.Nil(t, s.CloseNotification(99), "unknown ids are ignored")
	assert.Nil(t, s.CloseNotification(id))
	assert.Equal(t, []uint32{id}, closed)
	assert.True(t, s.IsActive(id), "the id stays active until the widget reports its close")

	s.MarkClosed(id)
	assert.False(t, s.IsActive(id))
	assert.Nil(t, s.CloseNotification(id))
	assert.Len(t, closed, 1)
}

func TestNotifyInternal(t *testing.T) {
	s := NewNotificationServer(nil)

	var handled uint32
	s.SetNotifyHandler(func(n *DBusNotification, id uint32) error {
		handled = id
		if n.Summary == "" {
			return errors.New("empty")
		}
		return nil
	})

	id, err := s.NotifyInternal(&DBusNotification{AppName: "stackboxd", Summary: "config reloaded"})
	require.NoError(t, err)
	assert.Equal(t, id, handled)
	assert.True(t, s.IsActive(id))

	_, err = s.NotifyInternal(&DBusNotification{AppName: "stackboxd"})
	assert.Error(t, err)
}

func TestServerInformation(t *testing.T) {
	s := NewNotificationServer(nil)

	name, vendor, _, spec, dbusErr := s.GetServerInformation()
	require.Nil(t, dbusErr)
	assert.Equal(t, "stackboxd", name)
	assert.Equal(t, "stackbox", vendor)
	assert.Equal(t, "1.2", spec)

	s.SetServerInfo(ServerInfo{Name: "test", Vendor: "v", Version: "1.0.0", SpecVersion: "1.2"})
	_, _, version, _, _ := s.GetServerInformation()
	assert.Equal(t, "1.0.0", version)

	caps, dbusErr := s.GetCapabilities()
	require.Nil(t, dbusErr)
	assert.Equal(t, ServerCapabilities, caps)
}

func TestEmitWithoutConnection(t *testing.T) {
	s := NewNotificationServer(nil)

	assert.Error(t, s.EmitNotificationClosed(1, CloseReasonExpired))
	assert.Error(t, s.EmitActionInvoked(1, "ok"))
	assert.Error(t, s.EmitButtonPressed(1, "OK", ""))
	assert.Error(t, s.PressButton(1, "ok", "OK", ""))
	assert.Error(t, s.CloseWithReason(1, CloseReasonDismissed))
	assert.NoError(t, s.Stop(), "stopping a server that never started is a no-op")
}

type fakeController struct {
	status    string
	dismissed []string
	closed    int
	err       error
}

func (f *fakeController) Status() (string, error) { return f.status, f.err }

func (f *fakeController) Dismiss(ref string) error {
	if f.err != nil {
		return f.err
	}
	f.dismissed = append(f.dismissed, ref)
	return nil
}

func (f *fakeController) CloseMessageBoxes() int { return f.closed }

func TestControlObject(t *testing.T) {
	c := &fakeController{status: `{"widgets":[]}`, closed: 2}
	obj := &controlObject{c: c}

	status, dbusErr := obj.Status()
	require.Nil(t, dbusErr)
	assert.Equal(t, `{"widgets":[]}`, status)

	assert.Nil(t, obj.Dismiss("small#3"))
	assert.Equal(t, []string{"small#3"}, c.dismissed)

	n, dbusErr := obj.CloseMessageBoxes()
	require.Nil(t, dbusErr)
	assert.Equal(t, uint32(2), n)

	c.err = errors.New("no such widget")
	assert.NotNil(t, obj.Dismiss("big#9"))
	_, dbusErr = obj.Status()
	assert.NotNil(t, dbusErr)
}

func TestWaitFor(t *testing.T) {
	signals := make(chan *dbus.Signal, 4)
	signals <- &dbus.Signal{Name: DBusInterface + ".NotificationClosed", Body: []any{uint32(7), uint32(1)}}
	signals <- &dbus.Signal{Name: ControlInterface + ".ButtonPressed", Body: []any{uint32(3), "Save", "draft"}}
	signals <- &dbus.Signal{Name: DBusInterface + ".ActionInvoked", Body: []any{uint32(3), "Save"}}
	signals <- &dbus.Signal{Name: DBusInterface + ".NotificationClosed", Body: []any{uint32(3), uint32(2)}}

	out, err := waitFor(context.Background(), 3, signals)
	require.NoError(t, err)
	assert.Equal(t, Outcome{ID: 3, Reason: CloseReasonDismissed, Button: "Save", Value: "draft"}, out)
}

func TestWaitForCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := waitFor(ctx, 1, make(chan *dbus.Signal))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	closed := make(chan *dbus.Signal)
	close(closed)
	_, err = waitFor(context.Background(), 1, closed)
	assert.Error(t, err)
}
