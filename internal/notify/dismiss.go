package notify

// armTimeoutLocked starts the one-shot dismissal timer.
func (m *Manager) armTimeoutLocked(w *Widget) {
	if w.Timeout <= 0 {
		return
	}
	ref := w.Ref
	w.timeout = m.schedule(w.Timeout, func() {
		m.onTimeoutLocked(ref)
	})
}

// onTimeoutLocked dismisses the widget, except for a hovered small box,
// which is marked expired and closes when the pointer leaves.
func (m *Manager) onTimeoutLocked(ref Ref) {
	w, ok := m.registry.Get(ref)
	if !ok || w.State != StateActive {
		m.logger.Debug("timeout ignored", "widget", ref.String(), "error", errTimerRace)
		return
	}
	w.timeout = nil

	if w.Kind == KindSmallBox && w.hovered {
		w.expired = true
		m.logger.Debug("timeout deferred until pointer leaves", "widget", ref.String())
		return
	}
	m.beginCloseLocked(w, CloseReasonExpired, Result{})
}

// beginCloseLocked moves w from Active to Closing. Only the first caller
// wins; later paths are logged and ignored. Timers stop before the state
// change is announced and the callback, if any, runs exactly once.
func (m *Manager) beginCloseLocked(w *Widget, reason CloseReason, res Result) bool {
	if w.State != StateActive {
		m.logger.Debug("dismissal ignored", "widget", w.Ref.String(), "reason", reason.String(),
			"state", w.State.String(), "error", errTimerRace)
		return false
	}

	m.stopTimersLocked(w)
	w.State = StateClosing
	w.reason = reason

	if w.Kind == KindMessageBox && !w.visible {
		m.modals.Remove(w.ID)
	}

	m.emitLocked(Event{
		Type:   EventStateChanged,
		Ref:    w.Ref,
		View:   m.viewLocked(w),
		State:  StateClosing,
		Reason: reason,
	})
	m.logger.Debug("widget closing", "widget", w.Ref.String(), "reason", reason.String())

	if cb := w.callback; cb != nil && reason != CloseReasonDestroyed {
		res.Ref = w.Ref
		res.Reason = reason
		m.out.push(func() { cb(res) })
	}
	w.callback = nil

	ref := w.Ref
	w.exit = m.schedule(m.cfg.AnimationDuration, func() {
		if w, ok := m.registry.Get(ref); ok {
			m.finishCloseLocked(w)
		}
	})
	return true
}

// finishCloseLocked completes the exit animation: Closing -> Removed.
func (m *Manager) finishCloseLocked(w *Widget) {
	if w.State != StateClosing {
		return
	}
	if w.exit != nil {
		w.exit.Stop()
		w.exit = nil
	}
	m.removeLocked(w)

	switch w.Kind {
	case KindSmallBox:
		m.relayoutLocked()
	case KindMessageBox:
		if m.modals.Remove(w.ID) {
			m.promoteLocked()
		}
		m.updateBackdropLocked()
	}
}

// destroyLocked tears w down at once without callbacks, animations or
// promotions. It still passes through Closing.
func (m *Manager) destroyLocked(w *Widget) {
	if w.State == StateActive {
		m.stopTimersLocked(w)
		w.State = StateClosing
		w.reason = CloseReasonDestroyed
		w.callback = nil
		m.emitLocked(Event{
			Type:   EventStateChanged,
			Ref:    w.Ref,
			View:   m.viewLocked(w),
			State:  StateClosing,
			Reason: CloseReasonDestroyed,
		})
	}
	if w.exit != nil {
		w.exit.Stop()
		w.exit = nil
	}
	if w.Kind == KindMessageBox {
		m.modals.Remove(w.ID)
	}
	m.removeLocked(w)
}

func (m *Manager) removeLocked(w *Widget) {
	w.State = StateRemoved
	m.registry.Release(w.Kind, w.ID)
	if w.Kind == KindSmallBox {
		m.packer.Forget(w.ID)
	}

	m.emitLocked(Event{
		Type:   EventStateChanged,
		Ref:    w.Ref,
		View:   w.view(),
		State:  StateRemoved,
		Reason: w.reason,
	})
	m.emitLocked(Event{Type: EventRemoved, Ref: w.Ref, Reason: w.reason})
	m.logger.Debug("widget removed", "widget", w.Ref.String())
}

func (m *Manager) stopTimersLocked(w *Widget) {
	if w.timeout != nil {
		w.timeout.Stop()
		w.timeout = nil
	}
	if w.cycler != nil {
		w.cycler.Stop()
	}
}
