package activity

import "sync"

// queue is a bounded FIFO ring. When full, Push overwrites the oldest item.
type queue[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // read position
	count int

	dropped int64
}

func newQueue[T any](capacity int) *queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &queue[T]{buf: make([]T, capacity)}
}

// Push appends item and returns the queue length afterwards.
func (q *queue[T]) Push(item T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	tail := (q.head + q.count) % len(q.buf)
	q.buf[tail] = item

	if q.count == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.dropped++
	} else {
		q.count++
	}
	return q.count
}

// DrainTo removes up to max items (all when max <= 0) in FIFO order.
func (q *queue[T]) DrainTo(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]T, n)
	var zero T
	for i := range out {
		out[i] = q.buf[q.head]
		q.buf[q.head] = zero // Clear reference for GC
		q.head = (q.head + 1) % len(q.buf)
	}
	q.count -= n
	return out
}

// Len returns the number of queued items.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns how many items were overwritten before being drained.
func (q *queue[T]) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
