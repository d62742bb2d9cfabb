package correlate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sofascout/internal/domain/payload"
	"github.com/okian/sofascout/pkg/logger"
)

const defaultTimeout = 15 * time.Second

// Result is the outcome of a wait. A pattern is either in Payloads or in
// Missing, never both. Partial is set when the wait timed out with at least
// one pattern satisfied.
type Result struct {
	Payloads map[string]payload.Value
	Missing  []string
	Partial  bool
}

// Correlator creates waits against a Source.
type Correlator struct {
	src            Source
	apiRoot        string
	defaultTimeout time.Duration
	logger         logger.Logger
}

// New creates a Correlator listening on src.
func New(src Source, opts ...Option) *Correlator {
	c := &Correlator{
		src:            src,
		apiRoot:        DefaultAPIRoot,
		defaultTimeout: defaultTimeout,
		logger:         logger.Get().Named("correlator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Expect registers a wait for patterns and returns immediately, so that the
// caller can trigger the traffic afterwards. Duplicate patterns are collapsed.
// The wait ends when every pattern is satisfied, the timeout elapses, ctx is
// done or Cancel is called, whichever happens first.
func (c *Correlator) Expect(ctx context.Context, timeout time.Duration, patterns ...string) *Wait {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	w := &Wait{
		id:        uuid.NewString(),
		c:         c,
		timeout:   timeout,
		started:   time.Now(),
		remaining: dedupePatterns(patterns),
		got:       make(map[string]payload.Value, len(patterns)),
		done:      make(chan struct{}),
		ctx:       ctx,
	}
	w.patterns = append([]string(nil), w.remaining...)
	if len(w.remaining) == 0 {
		w.finish(nil)
		return w
	}

	// observe blocks on w.mu until registration is complete
	w.mu.Lock()
	w.unsubscribe = c.src.Subscribe(w.observe)
	w.timer = time.AfterFunc(timeout, func() { w.finish(errTimedOut) })
	w.stopWatch = context.AfterFunc(ctx, func() { w.finish(context.Cause(ctx)) })
	w.mu.Unlock()

	c.logger.Debug(ctx, "waiting for responses",
		logger.String("wait_id", w.id),
		logger.Any("patterns", w.patterns),
		logger.Duration("timeout", timeout),
	)
	return w
}

// AwaitOne blocks until a response for pattern arrives and returns its
// decoded body. It fails with *TimeoutError when nothing qualifies in time.
func (c *Correlator) AwaitOne(ctx context.Context, pattern string, timeout time.Duration) (payload.Value, error) {
	res, err := c.Expect(ctx, timeout, pattern).Result()
	if err != nil {
		return payload.Value{}, err
	}
	return res.Payloads[pattern], nil
}

// AwaitAll blocks until every pattern is satisfied or the timeout elapses.
// A timeout with some patterns satisfied is a partial success, not an error.
func (c *Correlator) AwaitAll(ctx context.Context, patterns []string, timeout time.Duration) (Result, error) {
	return c.Expect(ctx, timeout, patterns...).Result()
}

// Capture registers a wait, runs trigger and then blocks on the wait. A
// failing trigger cancels the wait and its error is returned.
func (c *Correlator) Capture(ctx context.Context, timeout time.Duration, trigger func(context.Context) error, patterns ...string) (Result, error) {
	w := c.Expect(ctx, timeout, patterns...)
	if trigger != nil {
		if err := trigger(ctx); err != nil {
			w.Cancel()
			return Result{}, fmt.Errorf("trigger for %v: %w", patterns, err)
		}
	}
	return w.Result()
}

func dedupePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	seen := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
