package service

import (
	"context"
	"time"

	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/collect"
	"github.com/okian/sofascout/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDryRun keeps every record in memory instead of writing to PostgreSQL.
func WithDryRun(dry bool) Option {
	return func(s *Service) {
		s.dryRun = dry
	}
}

// WithStore uses store instead of opening one from the configuration.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPage drives page instead of launching a browser. The page must publish
// the responses it observes to the hub returned by Service.Hub.
func WithPage(page collect.Page) Option {
	return func(s *Service) {
		s.page = page
	}
}

// WithCollector replaces the whole collection layer; Start then opens
// nothing.
func WithCollector(c Collector) Option {
	return func(s *Service) {
		s.collector = c
	}
}

// WithSleeper replaces the context-aware sleep used for every delay.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithLeagueGap sets the pause between leagues of a multi-league reconcile.
func WithLeagueGap(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.leagueGap = d
		}
	}
}
