package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// Outcome is how a widget sent by the client ended.
type Outcome struct {
	ID     uint32
	Reason CloseReason
	// Button and Value are set when a message box button was pressed.
	Button string
	Value  string
}

// Client sends widgets to a running stackboxd and controls it.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	appName string
}

// NewClient connects to the session bus.
func NewClient(appName string) (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn:    conn,
		obj:     conn.Object(DBusBusName, DBusPath),
		appName: appName,
	}, nil
}

// ServerInfo returns the running server's information, which also tells
// whether stackboxd or another daemon owns the bus name.
func (c *Client) ServerInfo() (ServerInfo, error) {
	var info ServerInfo
	err := c.obj.Call(DBusInterface+".GetServerInformation", 0).
		Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("GetServerInformation failed: %w", err)
	}
	return info, nil
}

// Show sends req and returns the notification id.
func (c *Client) Show(req notify.Request) (uint32, error) {
	actions, hints, expire := EncodeRequest(req)
	if actions == nil {
		actions = []string{}
	}

	var id uint32
	err := c.obj.Call(DBusInterface+".Notify", 0,
		c.appName, uint32(0), req.Icon, req.Title, req.Content, actions, hints, expire,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("Notify failed: %w", err)
	}
	return id, nil
}

// ShowAndWait sends req and blocks until the widget closes or ctx ends.
func (c *Client) ShowAndWait(ctx context.Context, req notify.Request) (Outcome, error) {
	signals, stop, err := c.subscribe()
	if err != nil {
		return Outcome{}, err
	}
	defer stop()

	id, err := c.Show(req)
	if err != nil {
		return Outcome{}, err
	}
	return waitFor(ctx, id, signals)
}

// waitFor consumes signals until NotificationClosed for id arrives.
func waitFor(ctx context.Context, id uint32, signals <-chan *dbus.Signal) (Outcome, error) {
	out := Outcome{ID: id}
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return out, fmt.Errorf("D-Bus connection closed")
			}
			if len(sig.Body) < 2 {
				continue
			}
			sigID, _ := sig.Body[0].(uint32)
			if sigID != id {
				continue
			}
			switch sig.Name {
			case ControlInterface + ".ButtonPressed":
				out.Button, _ = sig.Body[1].(string)
				if len(sig.Body) > 2 {
					out.Value, _ = sig.Body[2].(string)
				}
			case DBusInterface + ".NotificationClosed":
				reason, _ := sig.Body[1].(uint32)
				out.Reason = CloseReason(reason)
				return out, nil
			}
		}
	}
}

func (c *Client) subscribe() (<-chan *dbus.Signal, func(), error) {
	matches := [][]dbus.MatchOption{
		{dbus.WithMatchObjectPath(DBusPath), dbus.WithMatchInterface(DBusInterface), dbus.WithMatchMember("NotificationClosed")},
		{dbus.WithMatchObjectPath(DBusPath), dbus.WithMatchInterface(ControlInterface), dbus.WithMatchMember("ButtonPressed")},
	}
	for _, m := range matches {
		if err := c.conn.AddMatchSignal(m...); err != nil {
			return nil, nil, fmt.Errorf("failed to add match rule: %w", err)
		}
	}

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	stop := func() {
		c.conn.RemoveSignal(ch)
		for _, m := range matches {
			_ = c.conn.RemoveMatchSignal(m...)
		}
	}
	return ch, stop, nil
}

// CloseNotification asks the daemon to close id.
func (c *Client) CloseNotification(id uint32) error {
	if err := c.obj.Call(DBusInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("CloseNotification failed: %w", err)
	}
	return nil
}

// Status returns the daemon's JSON snapshot.
func (c *Client) Status() (string, error) {
	var status string
	if err := c.obj.Call(ControlInterface+".Status", 0).Store(&status); err != nil {
		return "", fmt.Errorf("Status failed: %w", err)
	}
	return status, nil
}

// Dismiss closes the widget named by ref ("big#2").
func (c *Client) Dismiss(ref string) error {
	if err := c.obj.Call(ControlInterface+".Dismiss", 0, ref).Err; err != nil {
		return fmt.Errorf("Dismiss failed: %w", err)
	}
	return nil
}

// CloseMessageBoxes closes every message box and returns how many.
func (c *Client) CloseMessageBoxes() (int, error) {
	var n uint32
	if err := c.obj.Call(ControlInterface+".CloseMessageBoxes", 0).Store(&n); err != nil {
		return 0, fmt.Errorf("CloseMessageBoxes failed: %w", err)
	}
	return int(n), nil
}
