package collect

import (
	"context"
	"time"

	"github.com/okian/sofascout/pkg/logger"
)

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSleeper replaces the context-aware sleep used for page delays.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(c *Collector) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithClock sets the time source used for collection dates.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}
