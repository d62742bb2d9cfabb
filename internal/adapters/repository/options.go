package repository

import "github.com/okian/sofascout/pkg/logger"

type options struct {
	maxConns int32
	logger   logger.Logger
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithMaxConns bounds the pool size.
func WithMaxConns(n int32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
