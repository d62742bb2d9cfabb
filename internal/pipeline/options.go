package pipeline

import (
	"context"
	"time"

	"github.com/okian/sofascout/internal/domain/dedupe"
	"github.com/okian/sofascout/pkg/logger"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type options struct {
	pacing time.Duration
	seen   dedupe.Deduper
	logger logger.Logger
	sleep  Sleeper
	retry  *Policy
}

// Option configures Retry and Run.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{sleep: sleepCtx}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("pipeline")
	}
	return o
}

// WithPacing sets the delay inserted after each successful item except the last.
func WithPacing(d time.Duration) Option {
	return func(o *options) { o.pacing = d }
}

// WithSeen shares a seen set between runs, so nested loops process each key
// at most once.
func WithSeen(seen dedupe.Deduper) Option {
	return func(o *options) { o.seen = seen }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSleeper replaces the delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(o *options) {
		if s != nil {
			o.sleep = s
		}
	}
}

// WithRetry makes Run wrap every item in Retry with policy p.
func WithRetry(p Policy) Option {
	return func(o *options) { o.retry = &p }
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
