package interaction

import "slices"

// FrameQueue is a FrameScheduler driven by the host's frame clock: callbacks
// requested between two RunFrame calls run on the second one.
type FrameQueue struct {
	next    int
	pending map[int]func()
	order   []int
}

// NewFrameQueue returns an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{pending: make(map[int]func())}
}

func (q *FrameQueue) RequestFrame(fn func()) func() {
	id := q.next
	q.next++
	q.pending[id] = fn
	q.order = append(q.order, id)
	return func() {
		if _, ok := q.pending[id]; !ok {
			return
		}
		delete(q.pending, id)
		q.order = slices.DeleteFunc(q.order, func(o int) bool { return o == id })
	}
}

// Pending reports whether any callback is waiting for a frame.
func (q *FrameQueue) Pending() bool { return len(q.pending) > 0 }

// RunFrame runs every callback queued before the call, in request order.
// Callbacks requested while running wait for the next frame.
func (q *FrameQueue) RunFrame() int {
	order := q.order
	q.order = nil
	ran := 0
	for _, id := range order {
		fn, ok := q.pending[id]
		if !ok {
			continue
		}
		delete(q.pending, id)
		fn()
		ran++
	}
	return ran
}
