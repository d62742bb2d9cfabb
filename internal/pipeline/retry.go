// Package pipeline sequences work items through a unit of work with bounded
// retries, pacing between items, de-duplication by key and per-item failure
// tolerance.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// Policy bounds retries. Delay is fixed between attempts.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
}

// Retry runs op up to 1+MaxRetries times and returns the first success. When
// every attempt fails, the last error is returned as is. Errors matching
// ErrSkip end the loop at once, and so does cancellation of ctx.
func Retry[T any](ctx context.Context, label string, p Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := newOptions(opts)
	attempts := 1 + max(p.MaxRetries, 0)

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if errors.Is(err, ErrSkip) || attempt == attempts {
			break
		}

		metrics.RecordRetry()
		o.logger.Warn(ctx, "attempt failed, retrying",
			logger.String("op", label),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", attempts),
			logger.Duration("delay", p.Delay),
			logger.Error(err),
		)
		if err := o.sleep(ctx, p.Delay); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}
