package service

import (
	"context"
	"fmt"

	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/collect"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
)

type reconcileTask struct {
	league   model.League
	season   model.Season
	pair     collect.Pairing
	existing map[int64]struct{}
}

func (t reconcileTask) key() string { return t.pair.Key() }

// reconcile merges team_statistics rows with freshly fetched season
// statistics. With a team name it follows that team through every league it
// is listed in; otherwise it walks the leagues.
func (s *Service) reconcile(ctx context.Context, log logger.Logger, req Request, leagues []model.League) error {
	if req.TeamName != "" {
		return s.reconcileTeam(ctx, log, req)
	}
	for i, league := range leagues {
		if err := s.reconcileLeague(ctx, log.With(logger.String("league", league.Name)), league); err != nil {
			if !s.scopeFailed(ctx, log, err) {
				return err
			}
		}
		if i < len(leagues)-1 {
			log.Info(ctx, "league done, waiting before the next one", logger.Duration("gap", s.leagueGap))
			if err := s.sleep(ctx, s.leagueGap); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) reconcileLeague(ctx context.Context, log logger.Logger, league model.League) error {
	c := s.collector
	rows, err := c.SourceRows(ctx, league.SourceName, "")
	if err != nil {
		return &pipeline.ScopeError{Scope: league.Name, Err: err}
	}
	if len(rows) == 0 {
		log.Warn(ctx, "no team_statistics rows", logger.String("source_name", league.SourceName))
		return nil
	}

	season, cat, err := c.FetchCatalog(ctx, league)
	if err != nil {
		return err
	}
	s.update(func(sum *Summary) {
		sum.Leagues++
		sum.Teams += len(rows)
	})
	if err := s.sleep(ctx, s.cfg.TabDelay()); err != nil {
		return err
	}

	pairs := c.Pair(ctx, rows, cat)
	existing, err := c.Reconciled(ctx, league)
	if err != nil {
		return &pipeline.ScopeError{Scope: league.Name, Err: err}
	}

	tasks := make([]reconcileTask, len(pairs))
	for i, p := range pairs {
		tasks[i] = reconcileTask{league: league, season: season, pair: p, existing: existing}
	}
	st, err := s.runReconcile(ctx, tasks)
	log.Info(ctx, "league complete",
		logger.Int("rows", len(rows)),
		logger.Int("succeeded", st.Succeeded),
		logger.Int("failed", st.Failed),
		logger.Int("skipped", st.Skipped),
	)
	return err
}

// reconcileTeam discovers each league the team is listed in before any
// statistics are fetched. Rows in leagues that are not configured, or whose
// catalog is unavailable, count as failed.
func (s *Service) reconcileTeam(ctx context.Context, log logger.Logger, req Request) error {
	c := s.collector
	var leagueFilter string
	if req.League != "" {
		if l, ok := s.cfg.FindLeague(req.League); ok {
			leagueFilter = l.Model().SourceName
		}
	}
	rows, err := c.SourceRows(ctx, leagueFilter, req.TeamName)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %q in team_statistics", ErrTeamNotFound, req.TeamName)
	}
	s.update(func(sum *Summary) { sum.Teams += len(rows) })

	var (
		tasks  []reconcileTask
		failed pipeline.Stats
	)
	for _, row := range rows {
		l, ok := s.cfg.FindLeague(row.LeagueName)
		if !ok {
			log.Warn(ctx, "league not configured, row skipped", logger.String("league", row.LeagueName))
			failed.Failed++
			continue
		}
		league := l.Model()
		season, cat, err := c.FetchCatalog(ctx, league)
		if err != nil {
			if !s.scopeFailed(ctx, log, err) {
				return err
			}
			failed.Failed++
			continue
		}
		s.update(func(sum *Summary) { sum.Leagues++ })
		if err := s.sleep(ctx, s.cfg.TabDelay()); err != nil {
			return err
		}
		for _, p := range c.Pair(ctx, []repository.TeamStatRow{row}, cat) {
			tasks = append(tasks, reconcileTask{league: league, season: season, pair: p})
		}
	}
	s.update(func(sum *Summary) { sum.addStage(CommandReconcile, failed) })

	st, err := s.runReconcile(ctx, tasks)
	st.Add(failed)
	log.Info(ctx, "team complete",
		logger.String("team", req.TeamName),
		logger.Int("leagues", len(rows)),
		logger.Int("succeeded", st.Succeeded),
		logger.Int("failed", st.Failed),
	)
	return err
}

func (s *Service) runReconcile(ctx context.Context, tasks []reconcileTask) (pipeline.Stats, error) {
	c := s.collector
	st, err := pipeline.Run(ctx, CommandReconcile, tasks, reconcileTask.key,
		func(ctx context.Context, t reconcileTask) error {
			return c.ReconcileTeam(ctx, t.league, t.season, t.pair, t.existing)
		},
		s.stageOptions(CommandReconcile, s.cfg.PageDelay(), s.cfg.MaxRetries)...)
	s.update(func(sum *Summary) { sum.addStage(CommandReconcile, st) })
	return st, err
}
