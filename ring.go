package fastlane

import "sync/atomic"

// cacheLine is the assumed cache line size used to pad the ring cursors so
// the producer's head and the consumer's tail never share a line.
const cacheLine = 64

// SpscRing is a lock-free fixed-capacity FIFO shared by exactly one producer
// goroutine and one consumer goroutine.
//
// Each cursor is a monotonically increasing sequence number with a single
// writer: the producer owns head, the consumer owns tail. Because no cursor
// ever has two writers, plain atomic loads and stores are sufficient and no
// compare-and-swap loop exists anywhere. The store of head after a slot
// write publishes that slot to the consumer; the store of tail after a slot
// read publishes the freed slot to the producer. Extending this structure to
// multiple producers or consumers breaks that protocol and is not supported.
//
// Push and Pop never block. Full and Empty are expected steady-state
// conditions under backpressure; callers retry with whatever spin, yield, or
// backoff policy suits them.
type SpscRing[T any] struct {
	head atomic.Uint64 // next write sequence, producer-owned
	_    [cacheLine - 8]byte
	tail atomic.Uint64 // next read sequence, consumer-owned
	_    [cacheLine - 8]byte

	slots    []T
	capacity uint64
}

// NewSpscRing constructs a ring holding up to capacity elements. A zero or
// negative capacity is a contract breach by the caller and panics rather
// than being coerced to a default.
func NewSpscRing[T any](capacity int) *SpscRing[T] {
	if capacity < 1 {
		panic("fastlane: ring capacity must be positive")
	}
	return &SpscRing[T]{
		slots:    make([]T, capacity),
		capacity: uint64(capacity),
	}
}

// Push stores v at the head of the ring. It returns ErrRingFull, with no
// side effects, if the ring is at capacity. Producer goroutine only.
func (r *SpscRing[T]) Push(v T) error {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail == r.capacity {
		return ErrRingFull
	}
	r.slots[head%r.capacity] = v
	r.head.Store(head + 1)
	return nil
}

// Pop removes and returns the element at the tail of the ring. It returns
// ErrRingEmpty, with no side effects, if no element is resident. Consumer
// goroutine only.
func (r *SpscRing[T]) Pop() (T, error) {
	var zero T
	tail := r.tail.Load()
	head := r.head.Load()
	if tail == head {
		return zero, ErrRingEmpty
	}
	idx := tail % r.capacity
	v := r.slots[idx]
	r.slots[idx] = zero // release the slot's reference for GC
	r.tail.Store(tail + 1)
	return v, nil
}

// Len returns the number of resident elements. Under concurrent access this
// is a best-effort snapshot, not a transactional read. Loading tail before
// head keeps the snapshot non-negative: head only grows between the two
// loads, while a pop between them in the other order would drive the
// difference negative.
func (r *SpscRing[T]) Len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	return int(head - tail)
}

// IsEmpty reports whether a Pop at the time of the call would fail with
// ErrRingEmpty.
func (r *SpscRing[T]) IsEmpty() bool {
	return r.Len() == 0
}

// Capacity returns the fixed capacity the ring was constructed with.
func (r *SpscRing[T]) Capacity() int {
	return int(r.capacity)
}

// Drain removes every resident element in FIFO order, invoking release once
// per element, and returns the number of elements released. It exists so
// teardown destroys undelivered descriptors deterministically instead of
// leaking their completion handles.
//
// Drain reuses the consumer-side protocol and must only be called after both
// the producer and the consumer have stopped touching the ring.
func (r *SpscRing[T]) Drain(release func(T)) int {
	n := 0
	for {
		v, err := r.Pop()
		if err != nil {
			return n
		}
		if release != nil {
			release(v)
		}
		n++
	}
}
