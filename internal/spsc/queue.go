// Package spsc implements the bounded single-producer/single-consumer
// ring buffer that hands domain.Event records from the ingress
// producer to the matching engine's consumer goroutine.
//
// There is no ordered-map or lock-free-ring library anywhere in the
// retrieved pack to ground this on (see DESIGN.md) — this is the one
// piece of genuinely new infrastructure the spec requires that the
// teacher repo never needed, since the teacher decouples its
// producer/consumer with a plain buffered channel. A buffered channel
// cannot express the non-blocking try_push/try_pop contract of §4.3 (a
// full channel send blocks; this queue's TryPush must return false
// instead), so it is built directly on sync/atomic the way the spec's
// "no locks on the hot path" requirement demands.
package spsc

import "sync/atomic"

// Queue is a fixed-capacity ring buffer. Exactly one goroutine may call
// TryPush; exactly one goroutine may call TryPop. Capacity is rounded
// up to the next power of two so slot lookup is a mask, not a modulo.
type Queue[T any] struct {
	buf  []T
	mask uint64

	// head is owned by the consumer; tail is owned by the producer.
	// Go's sync/atomic load/store on uint64 give sequential
	// consistency, which is strictly stronger than the
	// release/acquire pairing the spec requires between a push and
	// the pop that observes it.
	head atomic.Uint64
	tail atomic.Uint64
}

// New creates a queue with capacity at least minCapacity, rounded up to
// a power of two. minCapacity <= 0 falls back to 8192, the spec's
// recommended default.
func New[T any](minCapacity int) *Queue[T] {
	if minCapacity <= 0 {
		minCapacity = 8192
	}
	capacity := nextPowerOfTwo(uint64(minCapacity))
	return &Queue[T]{
		buf:  make([]T, capacity),
		mask: capacity - 1,
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Cap reports the queue's fixed capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// TryPush attempts a non-blocking enqueue. It returns false when the
// queue is full; ownership of v transfers to the queue on success.
func (q *Queue[T]) TryPush(v T) bool {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail-head >= uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = v
	q.tail.Store(tail + 1)
	return true
}

// TryPop attempts a non-blocking dequeue. It returns the zero value and
// false when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	head := q.head.Load()
	tail := q.tail.Load()
	if head == tail {
		var zero T
		return zero, false
	}
	v := q.buf[head&q.mask]
	q.head.Store(head + 1)
	return v, true
}

// Empty reports whether the queue currently holds no elements. It is
// purely observational — by the time the caller acts on the result,
// the producer may have pushed again.
func (q *Queue[T]) Empty() bool {
	return q.head.Load() == q.tail.Load()
}

// Len reports the queue's current occupancy. Like Empty, this is a
// snapshot for metrics/diagnostics, not something either side should
// branch on for correctness.
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}
