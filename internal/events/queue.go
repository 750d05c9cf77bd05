// Package events provides the bounded typed notification queues that carry
// lifecycle notifications from the bridges to the coordinator. Consumers pull
// from the queue's channel; producers never block, so a slow consumer sheds
// the oldest pending notifications instead of stalling a bridge.
package events

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue is a bounded, non-blocking notification queue.
type Queue[T any] struct {
	ch     chan T
	mu     sync.Mutex
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

// NewQueue creates a queue with the given capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Publish enqueues a notification without blocking. When the queue is full,
// the oldest pending notification is dropped to make room.
func (q *Queue[T]) Publish(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	for {
		select {
		case q.ch <- v:
			q.published.Add(1)
			return
		default:
			select {
			case <-q.ch:
				q.dropped.Add(1)
			default:
			}
		}
	}
}

// Receive blocks until a notification is available or the context is done.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	select {
	case v, ok := <-q.ch:
		if !ok {
			var zero T
			return zero, context.Canceled
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Chan returns the underlying channel for select statements.
func (q *Queue[T]) Chan() <-chan T {
	return q.ch
}

// Len returns the number of pending notifications.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Pending:   len(q.ch),
		Published: q.published.Load(),
		Dropped:   q.dropped.Load(),
	}
}

// Close closes the queue. Publish after Close counts as dropped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Stats contains queue statistics.
type Stats struct {
	Pending   int   `json:"pending"`
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
}
