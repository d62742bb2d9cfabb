// Package queue buffers observed network exchanges between the browser
// session that produces them and the hub that dispatches them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an exchange to the queue.
	// Returns false if the queue is full or closed and the exchange was dropped.
	Enqueue(ctx context.Context, e *model.Exchange) bool

	// Dequeue returns the channel exchanges are delivered on, in enqueue order.
	// The channel is closed when the queue is closed and drained.
	Dequeue() <-chan *model.Exchange

	// Len returns the current number of queued exchanges.
	Len() int

	// Close stops accepting exchanges.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan *model.Exchange
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan *model.Exchange, q.capacity)

	metrics.UpdateHubQueueCapacity(q.capacity)
	metrics.UpdateHubQueueSize(0)
	return q
}

// Enqueue adds an exchange to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e *model.Exchange) bool {
	if e == nil {
		return false
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordExchangeDropped("closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordExchangeDropped("context_cancelled")
		return false
	default:
	}

	select {
	case q.events <- e:
		metrics.UpdateHubQueueSize(len(q.events))
		return true
	default:
		metrics.RecordExchangeDropped("queue_full")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns the receive side of the buffer.
func (q *InMemoryQueue) Dequeue() <-chan *model.Exchange {
	return q.events
}

// Len returns the current number of queued exchanges.
func (q *InMemoryQueue) Len() int {
	size := len(q.events)
	metrics.UpdateHubQueueSize(size)
	return size
}

// Close gracefully shuts down the queue. Exchanges already buffered remain
// readable from Dequeue.
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

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
