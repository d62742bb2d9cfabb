package correlate

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/domain/payload"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

var errTimedOut = errors.New("wait window elapsed")

// Wait is a pending correlation. It resolves exactly once.
type Wait struct {
	id       string
	c        *Correlator
	ctx      context.Context
	timeout  time.Duration
	started  time.Time
	patterns []string

	mu          sync.Mutex
	closed      bool
	remaining   []string // caller order
	got         map[string]payload.Value
	timer       *time.Timer
	stopWatch   func() bool
	unsubscribe func()

	once sync.Once
	done chan struct{}
	res  Result
	err  error
}

// ID identifies the wait in logs.
func (w *Wait) ID() string { return w.id }

// Done is closed once the wait has resolved.
func (w *Wait) Done() <-chan struct{} { return w.done }

// Result blocks until the wait resolves.
func (w *Wait) Result() (Result, error) {
	<-w.done
	return w.res, w.err
}

// Cancel resolves the wait with context.Canceled unless it already resolved.
func (w *Wait) Cancel() { w.finish(context.Canceled) }

// observe runs on the hub dispatch goroutine.
func (w *Wait) observe(ctx context.Context, e *model.Exchange) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	candidate, found := "", false
	for _, p := range w.remaining {
		if e.Matches(w.c.apiRoot, p) {
			candidate, found = p, true
			break
		}
	}
	w.mu.Unlock()
	if !found {
		return
	}

	body, err := e.Body()
	if err != nil {
		metrics.RecordPayloadError()
		w.c.logger.Debug(ctx, "response body unavailable, still listening",
			logger.String("wait_id", w.id),
			logger.String("url", e.URL),
			logger.Error(err),
		)
		return
	}
	v, err := payload.Parse(body)
	if err != nil {
		metrics.RecordPayloadError()
		w.c.logger.Debug(ctx, "response is not JSON, still listening",
			logger.String("wait_id", w.id),
			logger.String("url", e.URL),
			logger.Error(err),
		)
		return
	}

	w.mu.Lock()
	idx := slices.Index(w.remaining, candidate)
	if w.closed || idx < 0 {
		w.mu.Unlock()
		return
	}
	w.remaining = slices.Delete(w.remaining, idx, idx+1)
	w.got[candidate] = v
	complete := len(w.remaining) == 0
	w.mu.Unlock()

	if complete {
		w.finish(nil)
	}
}

// finish resolves the wait. cause is nil when every pattern was satisfied,
// errTimedOut when the timer fired, and the cancellation error otherwise.
func (w *Wait) finish(cause error) {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		got := w.got
		missing := append([]string(nil), w.remaining...)
		timer, stopWatch, unsubscribe := w.timer, w.stopWatch, w.unsubscribe
		w.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		if stopWatch != nil {
			stopWatch()
		}
		if unsubscribe != nil {
			unsubscribe()
		}

		elapsed := time.Since(w.started)
		ms := float64(elapsed.Milliseconds())
		fields := []logger.Field{
			logger.String("wait_id", w.id),
			logger.Duration("elapsed", elapsed),
		}

		switch {
		case cause == nil:
			w.res = Result{Payloads: got}
			metrics.RecordWait("matched", ms)
		case errors.Is(cause, errTimedOut) && len(got) > 0:
			w.res = Result{Payloads: got, Missing: missing, Partial: true}
			metrics.RecordWait("partial", ms)
			w.c.logger.Warn(w.ctx, "partial capture",
				append(fields, logger.Any("missing", missing), logger.Int("captured", len(got)))...)
		case errors.Is(cause, errTimedOut):
			w.err = &TimeoutError{Patterns: missing, After: w.timeout}
			metrics.RecordWait("timeout", ms)
			w.c.logger.Debug(w.ctx, "capture timed out", append(fields, logger.Any("patterns", missing))...)
		default:
			w.err = cause
			metrics.RecordWait("cancelled", ms)
		}
		close(w.done)
	})
}
