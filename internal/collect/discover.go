package collect

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/sofascout/internal/domain/matcher"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/domain/payload"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
)

const (
	patternSeasons   = "standings/seasons"
	patternStandings = "standings/total"
)

// Discover loads the tournament page of league and reads the current season
// and its standings from the responses the page emits. Whatever the page did
// not deliver is fetched directly. A league without a season fails with a
// *pipeline.ScopeError.
func (c *Collector) Discover(ctx context.Context, league model.League) (model.Season, *matcher.Catalog, error) {
	log := c.logger.With(logger.String("league", league.Name))
	log.Info(ctx, "discovering season and teams")

	w := c.resp.Expect(ctx, c.cfg.MultiCaptureTimeout(), patternSeasons, patternStandings)
	url := c.siteURL("/football/tournament/%s/%d", league.Slug, league.TournamentID)
	if err := c.page.Navigate(ctx, url); err != nil {
		w.Cancel()
		return model.Season{}, nil, &pipeline.ScopeError{Scope: league.Name, Err: err}
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay()); err != nil {
		w.Cancel()
		return model.Season{}, nil, err
	}

	res, err := w.Result()
	if err != nil {
		if ctx.Err() != nil {
			return model.Season{}, nil, ctx.Err()
		}
		log.Debug(ctx, "standings not observed, fetching instead", logger.Error(err))
	}

	season, ok := seasonFrom(res.Payloads[patternSeasons].Get("uniqueTournamentSeasons").Index(0).Get("seasons"))
	if !ok {
		season, ok = c.fetchSeason(ctx, league)
	}
	if !ok {
		return model.Season{}, nil, &pipeline.ScopeError{Scope: league.Name, Err: ErrNoSeason}
	}
	log.Info(ctx, "current season", logger.String("season", season.Name), logger.Int64("season_id", season.ID))

	entries := teamsFrom(res.Payloads[patternStandings])
	if len(entries) == 0 {
		entries = c.fetchTeams(ctx, league, season)
	}
	if len(entries) == 0 {
		log.Warn(ctx, "standings list no teams")
	}
	log.Info(ctx, "teams discovered", logger.Int("teams", len(entries)))
	return season, matcher.NewCatalog(season.ID, entries), nil
}

// FetchCatalog discovers the season and teams of league through in-page
// fetches only, without loading the tournament page.
func (c *Collector) FetchCatalog(ctx context.Context, league model.League) (model.Season, *matcher.Catalog, error) {
	season, ok := c.fetchSeason(ctx, league)
	if !ok {
		if err := ctx.Err(); err != nil {
			return model.Season{}, nil, err
		}
		return model.Season{}, nil, &pipeline.ScopeError{Scope: league.Name, Err: ErrNoSeason}
	}
	entries := c.fetchTeams(ctx, league, season)
	c.logger.Info(ctx, "teams discovered",
		logger.String("league", league.Name),
		logger.Int64("season_id", season.ID),
		logger.Int("teams", len(entries)),
	)
	return season, matcher.NewCatalog(season.ID, entries), nil
}

// Teams lists the catalog entries as teams, in standings order.
func Teams(cat *matcher.Catalog) []model.Team {
	if cat == nil {
		return nil
	}
	entries := cat.Entries()
	teams := make([]model.Team, len(entries))
	for i, e := range entries {
		teams[i] = model.Team{ID: e.ID, Slug: e.Slug, Name: e.Name}
	}
	return teams
}

func (c *Collector) fetchSeason(ctx context.Context, league model.League) (model.Season, bool) {
	v, err := c.page.Fetch(ctx, c.apiURL("/unique-tournament/%d/seasons", league.TournamentID))
	if err != nil {
		c.logger.Warn(ctx, "season list unavailable", logger.String("league", league.Name), logger.Error(err))
		return model.Season{}, false
	}
	return seasonFrom(v.Get("seasons"))
}

func (c *Collector) fetchTeams(ctx context.Context, league model.League, season model.Season) []matcher.Entry {
	v, err := c.page.Fetch(ctx, c.apiURL("/unique-tournament/%d/season/%d/standings/total", league.TournamentID, season.ID))
	if err != nil {
		c.logger.Warn(ctx, "standings unavailable", logger.String("league", league.Name), logger.Error(err))
		return nil
	}
	return teamsFrom(v)
}

// seasonFrom reads the first (current) season of a season list.
func seasonFrom(list payload.Value) (model.Season, bool) {
	s := list.Index(0)
	id, ok := s.Get("id").Int()
	if !ok {
		return model.Season{}, false
	}
	name := s.Get("name").StringOr("")
	if name == "" {
		if y := s.Get("year").Raw(); y != nil {
			name = fmt.Sprint(y)
		}
	}
	return model.Season{ID: id, Name: name}, true
}

// teamsFrom walks standings[].rows[].team. Teams listed in several groups are
// kept once.
func teamsFrom(standings payload.Value) []matcher.Entry {
	var out []matcher.Entry
	seen := make(map[int64]struct{})
	for _, group := range standings.Get("standings").Array() {
		for _, row := range group.Get("rows").Array() {
			team := row.Get("team")
			id, ok := team.Get("id").Int()
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			name := team.Get("name").StringOr(team.Get("shortName").StringOr(""))
			out = append(out, matcher.Entry{
				ID:   id,
				Slug: team.Get("slug").StringOr(slugify(name)),
				Name: name,
			})
		}
	}
	return out
}

func slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
