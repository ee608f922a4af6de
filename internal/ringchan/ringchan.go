// Package ringchan provides a bounded, channel-backed queue that never blocks
// its producer: when full, the oldest element is discarded to make room.
package ringchan

import (
	"context"
	"sync/atomic"
)

// Ring is a bounded channel-like buffer with overwrite-oldest semantics.
//
//	r := ringchan.New[[]byte](4)
//	r.Push(frame)                  // never blocks, may evict the oldest
//	v, err := r.Pop(ctx)           // blocks until a value or ctx is done
//
// Any number of producers may call Push concurrently. Reading straight from
// C() works too but is not counted in Metrics.Processed.
type Ring[T any] struct {
	ch      chan T
	metrics counters
}

// New creates a Ring holding at most capacity values.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// C returns the receive side.
func (r *Ring[T]) C() <-chan T {
	return r.ch
}

// Push enqueues v, evicting the oldest buffered values until it fits.
// It returns the number of values evicted.
func (r *Ring[T]) Push(v T) int {
	evicted := 0
	for {
		select {
		case r.ch <- v:
			r.metrics.written.Add(1)
			return evicted
		default:
		}

		select {
		case <-r.ch:
			evicted++
			r.metrics.overwritten.Add(1)
		default:
			// a consumer drained it between the two selects; retry the send
		}
	}
}

// TryPush enqueues v only if there is room.
func (r *Ring[T]) TryPush(v T) bool {
	select {
	case r.ch <- v:
		r.metrics.written.Add(1)
		return true
	default:
		return false
	}
}

// Pop waits for the next value. It returns ctx.Err() once ctx is done.
func (r *Ring[T]) Pop(ctx context.Context) (T, error) {
	select {
	case v := <-r.ch:
		r.metrics.processed.Add(1)
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryPop returns the next value if one is buffered.
func (r *Ring[T]) TryPop() (T, bool) {
	select {
	case v := <-r.ch:
		r.metrics.processed.Add(1)
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of buffered values.
func (r *Ring[T]) Len() int { return len(r.ch) }

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return cap(r.ch) }

// Metrics is a point-in-time copy of the ring counters.
type Metrics struct {
	Written     int64 `json:"written"`
	Overwritten int64 `json:"overwritten"`
	Processed   int64 `json:"processed"`
}

// Metrics returns the current counters.
func (r *Ring[T]) Metrics() Metrics {
	return Metrics{
		Written:     r.metrics.written.Load(),
		Overwritten: r.metrics.overwritten.Load(),
		Processed:   r.metrics.processed.Load(),
	}
}

type counters struct {
	written     atomic.Int64
	overwritten atomic.Int64
	processed   atomic.Int64
}
