// Package collect turns pages and API responses of the data source into
// persisted records. Each exported method handles one work item and is meant
// to be driven by pipeline.Run.
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/config"
	"github.com/okian/sofascout/internal/correlate"
	"github.com/okian/sofascout/internal/domain/matcher"
	"github.com/okian/sofascout/internal/domain/payload"
	"github.com/okian/sofascout/pkg/logger"
)

// Page is the browser surface the collectors drive.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// ClickTab reports false when no tab with that label is visible.
	ClickTab(ctx context.Context, label string) (bool, error)
	// Fetch runs an in-page request so that it carries the session cookies.
	Fetch(ctx context.Context, url string) (payload.Value, error)
	HTML(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
}

// Responses registers waits for API responses the page emits.
type Responses interface {
	Expect(ctx context.Context, timeout time.Duration, patterns ...string) *correlate.Wait
}

// Collector gathers records for one browser session.
type Collector struct {
	page    Page
	resp    Responses
	store   repository.Store
	cfg     *config.Config
	aliases matcher.AliasTable
	logger  logger.Logger
	sleep   func(context.Context, time.Duration) error
	now     func() time.Time
}

// New creates a Collector.
func New(page Page, resp Responses, store repository.Store, cfg *config.Config, opts ...Option) *Collector {
	c := &Collector{
		page:    page,
		resp:    resp,
		store:   store,
		cfg:     cfg,
		aliases: matcher.NewAliasTable(cfg.TeamAliases),
		logger:  logger.Get().Named("collect"),
		sleep:   sleepCtx,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collector) siteURL(format string, args ...any) string {
	return strings.TrimRight(c.cfg.SiteRoot, "/") + fmt.Sprintf(format, args...)
}

func (c *Collector) apiURL(format string, args ...any) string {
	return "https://" + strings.Trim(c.cfg.APIRoot, "/") + fmt.Sprintf(format, args...)
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
