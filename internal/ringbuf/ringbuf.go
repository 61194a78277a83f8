// Package ringbuf provides a generic fixed-capacity ring buffer. The
// buffer itself is not synchronized; the owning component is responsible
// for guarding concurrent access.
package ringbuf

// RingBuffer is a fixed-capacity circular store. When the buffer is full,
// Push overwrites the oldest element. The zero value is not usable; use New.
type RingBuffer[T any] struct {
	items []T
	cap   int
	head  int // index of the oldest element
	count int // number of elements currently stored
}

// New creates a RingBuffer with the given capacity. Capacity below 1 is
// clamped to 1 so that Push always has a slot to write.
func New[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{
		items: make([]T, capacity),
		cap:   capacity,
	}
}

// Push inserts an item. If the buffer is full, the oldest item is
// overwritten and the head advances.
func (rb *RingBuffer[T]) Push(item T) {
	if rb.count == rb.cap {
		rb.items[rb.head] = item
		rb.head = (rb.head + 1) % rb.cap
		return
	}
	rb.items[(rb.head+rb.count)%rb.cap] = item
	rb.count++
}

// Recent returns the most recent min(n, Len) items in chronological order
// (oldest of the selection first). The returned slice is a copy; the
// physical wrap boundary never leaks to the caller. Returns nil when the
// buffer is empty or n < 1.
func (rb *RingBuffer[T]) Recent(n int) []T {
	if n < 1 || rb.count == 0 {
		return nil
	}
	if n > rb.count {
		n = rb.count
	}
	result := make([]T, n)
	start := rb.count - n
	for i := 0; i < n; i++ {
		result[i] = rb.items[(rb.head+start+i)%rb.cap]
	}
	return result
}

// Latest returns the most recent item. The second return value is false
// when nothing has ever been pushed.
func (rb *RingBuffer[T]) Latest() (T, bool) {
	var zero T
	if rb.count == 0 {
		return zero, false
	}
	return rb.items[(rb.head+rb.count-1)%rb.cap], true
}

// Len returns the number of items currently stored.
func (rb *RingBuffer[T]) Len() int {
	return rb.count
}

// Cap returns the fixed capacity of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return rb.cap
}
