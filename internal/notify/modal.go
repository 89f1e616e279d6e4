package notify

// ModalQueue tracks which message box is on screen and which wait behind it.
// At most one box is visible; the rest are promoted first in, first out.
type ModalQueue struct {
	visible int
	queued  []int
}

// NewModalQueue creates an empty queue.
func NewModalQueue() *ModalQueue {
	return &ModalQueue{}
}

// Enqueue adds box id. It reports true when the box became visible at once.
func (q *ModalQueue) Enqueue(id int) bool {
	if q.visible == 0 {
		q.visible = id
		return true
	}
	q.queued = append(q.queued, id)
	return false
}

// Visible returns the id on screen.
func (q *ModalQueue) Visible() (int, bool) {
	return q.visible, q.visible != 0
}

// Queued returns the waiting ids in promotion order.
func (q *ModalQueue) Queued() []int {
	return append([]int(nil), q.queued...)
}

// Len counts the visible box and the waiting ones.
func (q *ModalQueue) Len() int {
	n := len(q.queued)
	if q.visible != 0 {
		n++
	}
	return n
}

// Remove drops id from the queue and reports whether it was the visible box.
// The next box is not promoted until Promote is called.
func (q *ModalQueue) Remove(id int) bool {
	if q.visible == id && id != 0 {
		q.visible = 0
		return true
	}
	for i, candidate := range q.queued {
		if candidate == id {
			q.queued = append(q.queued[:i:i], q.queued[i+1:]...)
			break
		}
	}
	return false
}

// Promote shows the oldest waiting box accepted by eligible, discarding the
// ones it rejects. It does nothing while a box is visible.
func (q *ModalQueue) Promote(eligible func(id int) bool) (int, bool) {
	if q.visible != 0 {
		return 0, false
	}
	for len(q.queued) > 0 {
		id := q.queued[0]
		q.queued = q.queued[1:]
		if eligible == nil || eligible(id) {
			q.visible = id
			return id, true
		}
	}
	return 0, false
}
