package dbus

import (
	"fmt"
)

// EmitNotificationClosed emits the NotificationClosed signal.
func (s *NotificationServer) EmitNotificationClosed(id uint32, reason CloseReason) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+".NotificationClosed", id, uint32(reason))
	if err != nil {
		return fmt.Errorf("failed to emit NotificationClosed signal: %w", err)
	}

	s.logger.Debug("emitted NotificationClosed signal", "id", id, "reason", reason.String())
	return nil
}

// EmitActionInvoked emits the ActionInvoked signal.
func (s *NotificationServer) EmitActionInvoked(id uint32, actionKey string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+".ActionInvoked", id, actionKey)
	if err != nil {
		return fmt.Errorf("failed to emit ActionInvoked signal: %w", err)
	}

	s.logger.Debug("emitted ActionInvoked signal", "id", id, "action_key", actionKey)
	return nil
}

// EmitButtonPressed emits ButtonPressed on the control interface. Unlike
// ActionInvoked it carries the message box input value.
func (s *NotificationServer) EmitButtonPressed(id uint32, label, value string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, ControlInterface+".ButtonPressed", id, label, value)
	if err != nil {
		return fmt.Errorf("failed to emit ButtonPressed signal: %w", err)
	}

	s.logger.Debug("emitted ButtonPressed signal", "id", id, "label", label)
	return nil
}

// CloseWithReason marks id closed and emits NotificationClosed.
func (s *NotificationServer) CloseWithReason(id uint32, reason CloseReason) error {
	s.MarkClosed(id)
	return s.EmitNotificationClosed(id, reason)
}

// PressButton reports a message box button: ActionInvoked with the action
// key, then ButtonPressed with the label and input value.
func (s *NotificationServer) PressButton(id uint32, actionKey, label, value string) error {
	if err := s.EmitActionInvoked(id, actionKey); err != nil {
		return err
	}
	return s.EmitButtonPressed(id, label, value)
}
