package notify

// Registry assigns per-kind sequential ids and tracks live widgets in
// insertion order. Counters belong to the Registry; they reset only when a
// new Manager (and so a new Registry) is built.
type Registry struct {
	counters map[Kind]int
	live     map[Kind][]int
	widgets  map[Ref]*Widget
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[Kind]int),
		live:     make(map[Kind][]int),
		widgets:  make(map[Ref]*Widget),
	}
}

// Allocate returns the next id for kind. It never fails and never reuses an id.
func (r *Registry) Allocate(kind Kind) int {
	r.counters[kind]++
	return r.counters[kind]
}

// Add records w as live. The widget's Ref must come from Allocate.
func (r *Registry) Add(w *Widget) {
	if _, exists := r.widgets[w.Ref]; exists {
		return
	}
	r.widgets[w.Ref] = w
	r.live[w.Kind] = append(r.live[w.Kind], w.ID)
}

// Release drops the widget from the live set. Releasing twice is a no-op.
func (r *Registry) Release(kind Kind, id int) {
	ref := Ref{Kind: kind, ID: id}
	if _, exists := r.widgets[ref]; !exists {
		return
	}
	delete(r.widgets, ref)

	ids := r.live[kind]
	for i, candidate := range ids {
		if candidate == id {
			r.live[kind] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

// Get returns the live widget for ref.
func (r *Registry) Get(ref Ref) (*Widget, bool) {
	w, ok := r.widgets[ref]
	return w, ok
}

// LiveOrdered returns the live ids of kind in insertion order.
func (r *Registry) LiveOrdered(kind Kind) []int {
	return append([]int(nil), r.live[kind]...)
}

// Len returns the number of live widgets of kind.
func (r *Registry) Len(kind Kind) int {
	return len(r.live[kind])
}

// Counter returns the last id allocated for kind.
func (r *Registry) Counter(kind Kind) int {
	return r.counters[kind]
}

// All returns every live widget, grouped by kind in Kinds order and
// ordered by insertion within a kind.
func (r *Registry) All() []*Widget {
	var all []*Widget
	for _, kind := range Kinds() {
		for _, id := range r.live[kind] {
			all = append(all, r.widgets[Ref{Kind: kind, ID: id}])
		}
	}
	return all
}
