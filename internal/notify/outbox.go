package notify

// outbox holds deliveries (events, callbacks, sounds) queued while the
// manager lock is held. It is only touched under that lock.
type outbox struct {
	items    []func()
	draining bool
}

func (o *outbox) push(fn func()) {
	o.items = append(o.items, fn)
}

func (o *outbox) pop() (func(), bool) {
	if len(o.items) == 0 {
		return nil, false
	}
	fn := o.items[0]
	o.items[0] = nil
	o.items = o.items[1:]
	return fn, true
}

// drain delivers queued items in order without holding the lock while they
// run. A drain started from inside a delivery returns at once; the outer
// drain picks up whatever the nested call queued.
func (m *Manager) drain() {
	m.mu.Lock()
	if m.out.draining {
		m.mu.Unlock()
		return
	}
	m.out.draining = true
	for {
		fn, ok := m.out.pop()
		if !ok {
			break
		}
		m.mu.Unlock()
		m.safeCall("delivery", fn)
		m.mu.Lock()
	}
	m.out.draining = false
	m.mu.Unlock()
}

func (m *Manager) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("recovered panic", "in", what, "panic", r)
		}
	}()
	fn()
}
