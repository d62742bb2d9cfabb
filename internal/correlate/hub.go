// Package correlate matches observed API responses to the requests a caller
// is waiting on.
//
// The Hub is the push source: a browser session publishes every finished
// response, and a single dispatch goroutine broadcasts each one, in arrival
// order, to the subscribers registered at that moment. The Correlator turns
// subscriptions into Waits with timeout, cancellation and partial results.
package correlate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/sofascout/internal/adapters/mq/queue"
	"github.com/okian/sofascout/internal/adapters/mq/worker"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// Listener receives exchanges from a Hub.
type Listener func(ctx context.Context, e *model.Exchange)

// Source is anything that can deliver exchanges to listeners.
type Source interface {
	Subscribe(l Listener) (unsubscribe func())
}

type subscriber struct {
	id uint64
	fn Listener
}

// Hub fans observed exchanges out to subscribers.
type Hub struct {
	queue  *queue.InMemoryQueue
	worker *worker.InMemoryWorker
	logger logger.Logger

	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64

	startOnce sync.Once
	started   atomic.Bool
}

var _ Source = (*Hub)(nil)

// NewHub creates a hub. Call Start before publishing.
func NewHub(opts ...HubOption) *Hub {
	cfg := hubConfig{capacity: 4096, logger: logger.Get().Named("hub")}
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &Hub{
		queue:  queue.NewInMemoryQueue(queue.WithCapacity(cfg.capacity)),
		logger: cfg.logger,
	}
	h.worker = worker.NewInMemoryWorker(h.queue, h, worker.WithName("hub"), worker.WithLogger(cfg.logger))
	return h
}

// Start launches the dispatch goroutine. Later calls are no-ops.
func (h *Hub) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		h.started.Store(true)
		go h.worker.Run(ctx)
	})
}

// Publish enqueues e for dispatch. It never blocks; false means the exchange
// was dropped.
func (h *Hub) Publish(ctx context.Context, e *model.Exchange) bool {
	ok := h.queue.Enqueue(ctx, e)
	if !ok && e != nil {
		h.logger.Debug(ctx, "exchange dropped", logger.String("url", e.URL))
	}
	return ok
}

// Subscribe registers l. The returned function removes it and is safe to
// call more than once, including from inside a listener.
func (h *Hub) Subscribe(l Listener) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber{id: id, fn: l})
	n := len(h.subs)
	h.mu.Unlock()
	metrics.UpdateHubSubscribers(n)

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

// Subscribers returns the number of registered listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dispatch delivers e to a snapshot of the current subscribers. The hub lock
// is not held while listeners run.
func (h *Hub) Dispatch(ctx context.Context, e *model.Exchange) {
	h.mu.RLock()
	snapshot := make([]subscriber, len(h.subs))
	copy(snapshot, h.subs)
	h.mu.RUnlock()

	for _, s := range snapshot {
		s.fn(ctx, e)
	}
}

// Close stops accepting exchanges and waits for the dispatcher to drain
// what was already queued.
func (h *Hub) Close(ctx context.Context) error {
	if err := h.queue.Close(); err != nil {
		return fmt.Errorf("close hub queue: %w", err)
	}
	h.startOnce.Do(func() {}) // a Start after Close must not run
	if !h.started.Load() {
		return nil
	}
	select {
	case <-h.worker.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close hub: %w", ctx.Err())
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			break
		}
	}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.UpdateHubSubscribers(n)
}
