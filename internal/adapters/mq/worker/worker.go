// Package worker runs the single dispatch loop that hands queued exchanges to
// the hub in arrival order.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// Handler receives every exchange, one at a time.
type Handler interface {
	Dispatch(ctx context.Context, e *model.Exchange)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e *model.Exchange)

// Dispatch calls f.
func (f HandlerFunc) Dispatch(ctx context.Context, e *model.Exchange) { f(ctx, e) }

// Queue defines how the worker receives exchanges.
type Queue interface {
	Dequeue() <-chan *model.Exchange
}

// Worker drains a queue into a handler.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called or
	// the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker is the only consumer of its queue, so handlers observe
// exchanges in exactly the order they were enqueued.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "dispatcher" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			w.dispatch(ctx, e)
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker. It is safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) dispatch(ctx context.Context, e *model.Exchange) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("dispatcher", "handler_panic")
			w.logger.Error(ctx, "handler panicked",
				logger.String("url", e.URL),
				logger.Any("panic", r),
			)
		}
		metrics.RecordHubDispatchLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	metrics.RecordExchangeObserved()
	w.handler.Dispatch(ctx, e)
}
