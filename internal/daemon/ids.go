package daemon

import (
	"sync"
	"time"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// tracked is one D-Bus notification id bound to a widget. The pointer
// identity distinguishes a notification from a later one that replaced it
// under the same id.
type tracked struct {
	ID        uint32
	Ref       notify.Ref
	CreatedAt time.Time
	shown     bool
}

// idTable maps D-Bus notification ids to widget refs and back.
type idTable struct {
	mu    sync.RWMutex
	byID  map[uint32]*tracked
	byRef map[notify.Ref]uint32
}

func newIDTable() *idTable {
	return &idTable{
		byID:  make(map[uint32]*tracked),
		byRef: make(map[notify.Ref]uint32),
	}
}

// Put binds id to t and returns the entry it replaced, if any.
func (m *idTable) Put(id uint32, t *tracked) *tracked {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.byID[id]
	if old != nil && old.shown {
		delete(m.byRef, old.Ref)
	}
	t.ID = id
	m.byID[id] = t
	return old
}

// Bind records the widget that t became.
func (m *idTable) Bind(t *tracked, ref notify.Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.Ref = ref
	t.shown = true
	if m.byID[t.ID] == t {
		m.byRef[ref] = t.ID
	}
}

// Restore undoes a Put whose widget could not be shown.
func (m *idTable) Restore(t, old *tracked) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byID[t.ID] != t {
		return
	}
	if old == nil {
		delete(m.byID, t.ID)
		return
	}
	m.byID[t.ID] = old
	if old.shown {
		m.byRef[old.Ref] = old.ID
	}
}

// Release unbinds t and reports whether it was still the current entry
// for its id. A replaced entry releases nothing.
func (m *idTable) Release(t *tracked) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byID[t.ID] != t {
		return false
	}
	delete(m.byID, t.ID)
	if t.shown && m.byRef[t.Ref] == t.ID {
		delete(m.byRef, t.Ref)
	}
	return true
}

// ReleaseRef unbinds the notification showing ref.
func (m *idTable) ReleaseRef(ref notify.Ref) (*tracked, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byRef[ref]
	if !ok {
		return nil, false
	}
	t := m.byID[id]
	delete(m.byRef, ref)
	delete(m.byID, id)
	return t, t != nil
}

// Lookup returns the widget shown for id.
func (m *idTable) Lookup(id uint32) (notify.Ref, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.byID[id]
	if !ok || !t.shown {
		return notify.Ref{}, false
	}
	return t.Ref, true
}

// IDFor returns the D-Bus id of a widget.
func (m *idTable) IDFor(ref notify.Ref) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byRef[ref]
	return id, ok
}

// Len returns the number of bound ids.
func (m *idTable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
