package correlate

import (
	"time"

	"github.com/okian/sofascout/pkg/logger"
)

// DefaultAPIRoot marks the URLs a wait may consider.
const DefaultAPIRoot = "www.sofascore.com/api/v1"

type hubConfig struct {
	capacity int
	logger   logger.Logger
}

// HubOption configures a Hub.
type HubOption func(*hubConfig)

// WithCapacity bounds the number of exchanges waiting for dispatch.
func WithCapacity(n int) HubOption {
	return func(c *hubConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithHubLogger sets the hub logger.
func WithHubLogger(l logger.Logger) HubOption {
	return func(c *hubConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithAPIRoot sets the substring every qualifying URL must contain.
func WithAPIRoot(root string) Option {
	return func(c *Correlator) {
		if root != "" {
			c.apiRoot = root
		}
	}
}

// WithDefaultTimeout is used when a wait is started with a non-positive timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithLogger sets the correlator logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Correlator) {
		if l != nil {
			c.logger = l
		}
	}
}
