// Package queue provides the bounded in-memory queue between rating intake
// and the worker pool.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/metrics"
)

const defaultQueueCapacity = 100_000

// Event is the unit carried by the queue.
type Event = model.RatingEvent

// Queue is a bounded FIFO of rating events. Enqueue never blocks.
type Queue interface {
	// Enqueue adds e, returning ErrFull on backpressure and ErrClosed after Close.
	Enqueue(ctx context.Context, e Event) error

	// Events returns the receive side. It is closed once the queue is closed
	// and drained.
	Events() <-chan Event

	Len() int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue is a Queue backed by a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	// mu guards closed; senders hold the read lock so Close cannot race a send.
	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		q.recordError("context_cancelled")
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.recordError("closed")
		return ErrClosed
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		q.publishSize()
		return nil
	default:
		q.recordError("queue_full")
		return ErrFull
	}
}

// Events implements Queue.
func (q *InMemoryQueue) Events() <-chan Event {
	return q.events
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int {
	return q.publishSize()
}

// Cap implements Queue.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops intake. Buffered events remain readable. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) publishSize() int {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

func (q *InMemoryQueue) recordError(kind string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", kind)
}
