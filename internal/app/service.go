// Package service runs crawl and reconcile commands over the configured
// leagues and keeps the totals of the current run for monitoring.
package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sofascout/internal/adapters/browser"
	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/collect"
	"github.com/okian/sofascout/internal/config"
	"github.com/okian/sofascout/internal/correlate"
	"github.com/okian/sofascout/internal/domain/matcher"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// Commands.
const (
	CommandAll            = "all"
	CommandTeamStats      = "team-stats"
	CommandTeamPlayers    = "team-players"
	CommandPlayerProfiles = "player-profiles"
	CommandPlayerStats    = "player-stats"
	CommandReconcile      = "reconcile-team-stats"
)

// Commands lists every command in help order.
func Commands() []string {
	return []string{CommandAll, CommandTeamStats, CommandTeamPlayers, CommandPlayerProfiles, CommandPlayerStats, CommandReconcile}
}

// Collector is the collection layer the service drives, one item at a time.
type Collector interface {
	Discover(ctx context.Context, league model.League) (model.Season, *matcher.Catalog, error)
	FetchCatalog(ctx context.Context, league model.League) (model.Season, *matcher.Catalog, error)
	TeamStats(ctx context.Context, league model.League, season model.Season, team model.Team) error
	TeamPlayers(ctx context.Context, team model.Team) ([]model.Player, error)
	PlayerProfile(ctx context.Context, player model.Player) error
	PlayerSeasonStats(ctx context.Context, league model.League, season model.Season, player model.Player) error
	SourceRows(ctx context.Context, league, team string) ([]repository.TeamStatRow, error)
	Pair(ctx context.Context, rows []repository.TeamStatRow, cat *matcher.Catalog) []collect.Pairing
	Reconciled(ctx context.Context, league model.League) (map[int64]struct{}, error)
	ReconcileTeam(ctx context.Context, league model.League, season model.Season, p collect.Pairing, existing map[int64]struct{}) error
}

// Request selects what one run does.
type Request struct {
	Command string
	// League restricts the run to one league (name, slug or source name).
	League string
	// TeamID restricts crawl commands to one team of each league.
	TeamID int64
	// TeamName selects team_statistics rows for reconcile.
	TeamName string
}

// Summary holds the totals of a run.
type Summary struct {
	RunID         string                    `json:"run_id"`
	Command       string                    `json:"command"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at,omitzero"`
	Leagues       int                       `json:"leagues"`
	ScopeFailures int                       `json:"scope_failures"`
	Teams         int                       `json:"teams"`
	Players       int                       `json:"players"`
	Profiles      int                       `json:"profiles"`
	SeasonStats   int                       `json:"season_stats"`
	Stages        map[string]pipeline.Stats `json:"stages"`
}

func (s *Summary) addStage(label string, st pipeline.Stats) {
	cur := s.Stages[label]
	cur.Add(st)
	s.Stages[label] = cur
}

// Service owns the browser session, the response hub and the store for the
// lifetime of the process and runs one command at a time.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	hub       *correlate.Hub
	session   *browser.Session
	page      collect.Page
	store     repository.Store
	collector Collector

	dryRun    bool
	leagueGap time.Duration
	sleep     func(context.Context, time.Duration) error

	// State
	started bool
	running bool
	runs    int
	current Summary

	logger logger.Logger
}

// New constructs a Service. Components are opened by Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		leagueGap: 10 * time.Second,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("crawler")
	}
	s.hub = correlate.NewHub(correlate.WithCapacity(cfg.HubCapacity), correlate.WithHubLogger(s.logger.Named("hub")))
	return s
}

// Hub is the hub observed responses must be published to.
func (s *Service) Hub() *correlate.Hub { return s.hub }

// Start opens the store, starts the hub and launches the browser, unless
// replacements were supplied as options.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting crawler service", logger.Bool("dry_run", s.dryRun))

	if s.collector == nil {
		if err := s.open(ctx); err != nil {
			s.closeLocked(ctx)
			return err
		}
	}

	s.started = true
	s.logger.Info(ctx, "crawler service started")
	return nil
}

func (s *Service) open(ctx context.Context) error {
	if s.store == nil {
		if s.dryRun || s.cfg.DatabaseURL == "" {
			s.logger.Warn(ctx, "no database configured, records stay in memory")
			s.store = repository.NewMemoryStore(s.logger.Named("dry-run"))
		} else {
			store, err := repository.NewPostgresStore(ctx, s.cfg.DatabaseURL, repository.WithLogger(s.logger.Named("repository")))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			s.store = store
		}
	}

	s.hub.Start(ctx)

	if s.page == nil {
		session, err := browser.Open(ctx, browser.Options{
			Headless:          s.cfg.Headless,
			Bin:               s.cfg.BrowserBin,
			UserAgent:         s.cfg.UserAgent,
			APIRoot:           s.cfg.APIRoot,
			Home:              s.cfg.SiteRoot + "/football",
			NavigationTimeout: s.cfg.NavigationTimeout(),
			FetchRate:         s.cfg.FetchRatePerSec,
			Logger:            s.logger.Named("browser"),
		}, s.hub)
		if err != nil {
			return err
		}
		s.session = session
		s.page = session
	}

	resp := correlate.New(s.hub,
		correlate.WithAPIRoot(s.cfg.APIRoot),
		correlate.WithDefaultTimeout(s.cfg.CaptureTimeout()),
		correlate.WithLogger(s.logger.Named("correlator")),
	)
	s.collector = collect.New(s.page, resp, s.store, s.cfg,
		collect.WithLogger(s.logger.Named("collect")),
		collect.WithSleeper(s.sleep),
	)
	return nil
}

// Stop closes the browser, the hub and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping crawler service...")
	s.closeLocked(ctx)
	s.started = false
	s.logger.Info(ctx, "crawler service stopped")
}

func (s *Service) closeLocked(ctx context.Context) {
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.hub.Close(closeCtx); err != nil {
		s.logger.Warn(ctx, "hub did not drain", logger.Error(err))
	}
	if s.store != nil {
		s.store.Close()
	}
}

// Run executes one command. Failures of single items are counted, not
// returned; a league whose scope cannot be set up is counted and skipped. The
// returned error is reserved for invalid requests and cancellation.
func (s *Service) Run(ctx context.Context, req Request) (Summary, error) {
	leagues, err := s.leagues(req)
	if err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	switch {
	case !s.started:
		s.mu.Unlock()
		return Summary{}, ErrNotStarted
	case s.running:
		s.mu.Unlock()
		return Summary{}, ErrBusy
	}
	s.running = true
	s.runs++
	s.current = Summary{
		RunID:     uuid.NewString(),
		Command:   req.Command,
		StartedAt: time.Now(),
		Stages:    map[string]pipeline.Stats{},
	}
	runID := s.current.RunID
	s.mu.Unlock()

	log := s.logger.With(logger.String("run_id", runID), logger.String("command", req.Command))
	log.Info(ctx, "run started", logger.Int("leagues", len(leagues)))

	if req.Command == CommandReconcile {
		err = s.reconcile(ctx, log, req, leagues)
	} else {
		err = s.crawl(ctx, log, req, leagues)
	}

	s.mu.Lock()
	s.running = false
	s.current.FinishedAt = time.Now()
	sum := s.snapshotLocked()
	s.mu.Unlock()

	fields := []logger.Field{
		logger.Int("leagues", sum.Leagues),
		logger.Int("scope_failures", sum.ScopeFailures),
		logger.Int("teams", sum.Teams),
		logger.Int("players", sum.Players),
		logger.Int("profiles", sum.Profiles),
		logger.Int("season_stats", sum.SeasonStats),
		logger.Duration("elapsed", sum.FinishedAt.Sub(sum.StartedAt).Round(time.Second)),
	}
	for label, st := range sum.Stages {
		fields = append(fields, logger.Any(label, st))
	}
	if err != nil {
		log.Error(ctx, "run interrupted", append(fields, logger.Error(err))...)
		return sum, err
	}
	log.Info(ctx, "run complete", fields...)
	return sum, nil
}

// Validate checks the command and league of req. It needs no started
// service, so callers can reject a request before the browser opens.
func (s *Service) Validate(req Request) error {
	_, err := s.leagues(req)
	return err
}

func (s *Service) leagues(req Request) ([]model.League, error) {
	known := false
	for _, c := range Commands() {
		known = known || c == req.Command
	}
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
	if req.League == "" {
		out := make([]model.League, len(s.cfg.Leagues))
		for i, l := range s.cfg.Leagues {
			out[i] = l.Model()
		}
		return out, nil
	}
	l, ok := s.cfg.FindLeague(req.League)
	if !ok {
		return nil, fmt.Errorf("%w: %q, available: %v", ErrUnknownLeague, req.League, s.cfg.LeagueNames())
	}
	return []model.League{l.Model()}, nil
}

func (s *Service) update(fn func(*Summary)) {
	s.mu.Lock()
	fn(&s.current)
	s.mu.Unlock()
}

// scopeFailed counts a league that could not be set up. It reports false for
// any other error, which the caller returns.
func (s *Service) scopeFailed(ctx context.Context, log logger.Logger, err error) bool {
	if !errors.Is(err, pipeline.ErrScope) {
		return false
	}
	metrics.RecordScopeFailure()
	log.Error(ctx, "league skipped", logger.Error(err))
	s.update(func(sum *Summary) { sum.ScopeFailures++ })
	return true
}

func (s *Service) snapshotLocked() Summary {
	sum := s.current
	sum.Stages = maps.Clone(s.current.Stages)
	return sum
}

// Current returns a copy of the totals of the current or last run.
func (s *Service) Current() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Ping checks the store of a started service.
func (s *Service) Ping(ctx context.Context) error {
	s.mu.RLock()
	started, store := s.started, s.store
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if store == nil {
		return nil
	}
	return store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"running":     s.running,
		"runs":        s.runs,
		"dryRun":      s.dryRun,
		"subscribers": s.hub.Subscribers(),
	}
	if s.runs > 0 {
		stats["current"] = s.snapshotLocked()
	}
	return stats
}

func (s *Service) stageOptions(label string, pacing time.Duration, retries int) []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithPacing(pacing),
		pipeline.WithRetry(pipeline.Policy{MaxRetries: retries, Delay: s.cfg.RetryDelay()}),
		pipeline.WithSleeper(s.sleep),
		pipeline.WithLogger(s.logger.Named(label)),
	}
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
