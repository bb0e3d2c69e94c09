package buffer

import "github.com/aledsdavies/corelib/internal/corerr"

// RingBuffer is a fixed-capacity circular FIFO queue. Get is
// defined for logical index i < Len and addresses storage[(head+i) mod
// capacity]; pushing past capacity fails rather than growing.
type RingBuffer[T any] struct {
	storage  []T
	capacity int
	used     int
	head     int // next slot to pop
	tail     int // next slot to push
}

// NewRingBuffer returns an empty RingBuffer with the given fixed capacity.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	return &RingBuffer[T]{storage: make([]T, capacity), capacity: capacity}
}

// Push appends t, failing with corerr.CodeNoCapacity if the buffer is full.
func (r *RingBuffer[T]) Push(t T) error {
	if r.used == r.capacity {
		return corerr.New(corerr.CodeNoCapacity, "ring buffer is full")
	}
	r.storage[r.tail] = t
	r.tail = (r.tail + 1) % r.capacity
	r.used++
	return nil
}

// Pop removes and returns the oldest element, or ok=false if empty.
func (r *RingBuffer[T]) Pop() (v T, ok bool) {
	if r.used == 0 {
		return v, false
	}
	v = r.storage[r.head]
	var zero T
	r.storage[r.head] = zero // release reference for GC
	r.head = (r.head + 1) % r.capacity
	r.used--
	return v, true
}

// Peek returns the oldest element without removing it, or ok=false if empty.
func (r *RingBuffer[T]) Peek() (v T, ok bool) {
	if r.used == 0 {
		return v, false
	}
	return r.storage[r.head], true
}

// Get returns the element at logical index i (0 is the oldest). It fails
// with corerr.CodeOutOfBounds when i >= capacity, and returns ok=false
// (no error) when i is within capacity but beyond the currently used
// range.
func (r *RingBuffer[T]) Get(i int) (v T, ok bool, err error) {
	if i < 0 || i >= r.capacity {
		return v, false, corerr.New(corerr.CodeOutOfBounds, "ring buffer index out of bounds")
	}
	if i >= r.used {
		return v, false, nil
	}
	return r.storage[(r.head+i)%r.capacity], true, nil
}

// Len returns the number of elements currently queued.
func (r *RingBuffer[T]) Len() int { return r.used }

// Cap returns the fixed capacity.
func (r *RingBuffer[T]) Cap() int { return r.capacity }

// FreeSpace returns how many more elements can be pushed before Push fails.
func (r *RingBuffer[T]) FreeSpace() int { return r.capacity - r.used }

// IsEmpty reports whether the buffer holds no elements.
func (r *RingBuffer[T]) IsEmpty() bool { return r.used == 0 }
