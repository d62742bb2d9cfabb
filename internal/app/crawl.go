package service

import (
	"context"

	"github.com/okian/sofascout/internal/collect"
	"github.com/okian/sofascout/internal/domain/dedupe"
	"github.com/okian/sofascout/internal/domain/matcher"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
)

func wants(cmd string, stages ...string) bool {
	if cmd == CommandAll {
		return true
	}
	for _, s := range stages {
		if s == cmd {
			return true
		}
	}
	return false
}

// collectTeams lists the teams of cat, or only the one with id when id is set.
func collectTeams(cat *matcher.Catalog, id int64) []model.Team {
	teams := collect.Teams(cat)
	if id == 0 {
		return teams
	}
	for _, t := range teams {
		if t.ID == id {
			return []model.Team{t}
		}
	}
	return nil
}

// crawl walks leagues in order. A profile is collected once per run even when
// the player appears in several leagues.
func (s *Service) crawl(ctx context.Context, log logger.Logger, req Request, leagues []model.League) error {
	profilesSeen := dedupe.NewSet()
	for _, league := range leagues {
		if err := s.crawlLeague(ctx, log.With(logger.String("league", league.Name)), req, league, profilesSeen); err != nil {
			if s.scopeFailed(ctx, log, err) {
				continue
			}
			return err
		}
	}
	if wants(req.Command, CommandPlayerProfiles) {
		log.Info(ctx, "distinct players handled", logger.Int64("players", profilesSeen.Size()))
	}
	return nil
}

func (s *Service) crawlLeague(ctx context.Context, log logger.Logger, req Request, league model.League, profilesSeen dedupe.Deduper) error {
	log.Info(ctx, "processing league")
	c := s.collector

	season, cat, err := c.Discover(ctx, league)
	if err != nil {
		return err
	}
	s.update(func(sum *Summary) { sum.Leagues++ })
	if err := s.sleep(ctx, s.cfg.PageDelay()); err != nil {
		return err
	}

	teams := collectTeams(cat, req.TeamID)
	if len(teams) == 0 {
		log.Warn(ctx, "no teams to process", logger.Int64("team_id", req.TeamID))
		return nil
	}
	s.update(func(sum *Summary) { sum.Teams += len(teams) })

	var total pipeline.Stats
	record := func(label string, st pipeline.Stats) {
		total.Add(st)
		s.update(func(sum *Summary) { sum.addStage(label, st) })
	}

	if wants(req.Command, CommandTeamStats) {
		st, err := pipeline.Run(ctx, CommandTeamStats, teams, model.Team.Key,
			func(ctx context.Context, t model.Team) error { return c.TeamStats(ctx, league, season, t) },
			s.stageOptions(CommandTeamStats, s.cfg.PageDelay(), s.cfg.MaxRetries)...)
		record(CommandTeamStats, st)
		if err != nil {
			return err
		}
	}

	var players []model.Player
	if wants(req.Command, CommandTeamPlayers, CommandPlayerProfiles, CommandPlayerStats) {
		st, err := pipeline.Run(ctx, CommandTeamPlayers, teams, model.Team.Key,
			func(ctx context.Context, t model.Team) error {
				found, err := c.TeamPlayers(ctx, t)
				players = append(players, found...)
				return err
			},
			s.stageOptions(CommandTeamPlayers, s.cfg.PageDelay(), s.cfg.MaxRetries)...)
		record(CommandTeamPlayers, st)
		s.update(func(sum *Summary) { sum.Players += len(players) })
		if err != nil {
			return err
		}
	}

	if wants(req.Command, CommandPlayerProfiles) {
		opts := append(s.stageOptions(CommandPlayerProfiles, s.cfg.PlayerDelay(), s.cfg.MaxRetries), pipeline.WithSeen(profilesSeen))
		st, err := pipeline.Run(ctx, CommandPlayerProfiles, players, model.Player.Key, c.PlayerProfile, opts...)
		record(CommandPlayerProfiles, st)
		s.update(func(sum *Summary) { sum.Profiles += st.Succeeded })
		if err != nil {
			return err
		}
	}

	if wants(req.Command, CommandPlayerStats) {
		// season statistics are a single cheap fetch, retried once
		st, err := pipeline.Run(ctx, CommandPlayerStats, players, model.Player.Key,
			func(ctx context.Context, p model.Player) error { return c.PlayerSeasonStats(ctx, league, season, p) },
			s.stageOptions(CommandPlayerStats, s.cfg.PlayerDelay(), 1)...)
		record(CommandPlayerStats, st)
		s.update(func(sum *Summary) { sum.SeasonStats += st.Succeeded })
		if err != nil {
			return err
		}
	}

	log.Info(ctx, "league complete",
		logger.String("season", season.Name),
		logger.Int("teams", len(teams)),
		logger.Int("players", len(players)),
		logger.Int("attempted", total.Attempted),
		logger.Int("succeeded", total.Succeeded),
		logger.Int("failed", total.Failed),
		logger.Int("skipped", total.Skipped),
	)
	return nil
}
