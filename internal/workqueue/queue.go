// Package workqueue provides an unbounded multi-producer, multi-consumer FIFO
// queue whose consumers can be cancelled through a context.
//
// Producers never block. This matters for pools whose workers are also the
// producers: with a bounded channel, every worker can end up blocked on a send
// with nobody left to receive.
package workqueue

import (
	"context"
	"sync"

	kderrors "github.com/tamirms/kdsplit/errors"
)

// Queue is an unbounded FIFO. The zero value is not usable; use New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool

	// ready carries at most one wakeup token. A consumer that takes an item
	// and leaves more behind passes the token on.
	ready chan struct{}
	done  chan struct{}
}

// New returns an empty queue with room for capacity items before growing.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0, capacity),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends v. It returns ErrQueueClosed after Close.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return kderrors.ErrQueueClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Pop removes and returns the oldest item, blocking until one is available,
// ctx is done, or the queue is closed and empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok, err := q.TryPop(); ok || err != nil {
			return v, err
		}
		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop removes the oldest item without blocking. ok is false when the queue
// is empty; err is ErrQueueClosed when it is also closed.
func (q *Queue[T]) TryPop() (v T, ok bool, err error) {
	q.mu.Lock()
	n := len(q.items) - q.head
	if n == 0 {
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return v, false, kderrors.ErrQueueClosed
		}
		return v, false, nil
	}
	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > cap(q.items)/2 {
		// Compact once the consumed prefix dominates the backing array.
		m := copy(q.items, q.items[q.head:])
		clear(q.items[m:])
		q.items = q.items[:m]
		q.head = 0
	}
	q.mu.Unlock()
	if n > 1 {
		q.signal()
	}
	return v, true, nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close stops further pushes and wakes every blocked consumer. Items already
// queued can still be popped. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
