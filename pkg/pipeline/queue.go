package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Pop once the queue is closed and drained.
var ErrQueueClosed = errors.New("queue closed")

// Queue is an unbounded FIFO. Push never blocks, so it is safe to call from
// the capture thread; Pop blocks until an item arrives.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

// Push appends item. It reports false when the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.notify()
	return true
}

// Pop removes the oldest item, waiting for one if the queue is empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Pass the wakeup on in case several items arrived at once.
				q.notify()
			}
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			q.notify()
			return zero, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further pushes and wakes waiting consumers. Items already
// queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()
}

func (q *Queue[T]) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
