package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/sofascout/internal/adapters/browser"
	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/domain/payload"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
)

// PlayerProfile loads the page of player and stores the profile built from
// the server-rendered page data, the rendered strengths and weaknesses, and
// the attribute, characteristics and national team responses the page
// requests. Missing responses leave their columns empty.
func (c *Collector) PlayerProfile(ctx context.Context, player model.Player) error {
	var (
		attributes      = fmt.Sprintf("player/%d/attribute-overviews", player.ID)
		characteristics = fmt.Sprintf("player/%d/characteristics", player.ID)
		nationalTeam    = fmt.Sprintf("player/%d/national-team-statistics", player.ID)
	)
	log := c.logger.With(logger.String("player", player.Name), logger.Int64("player_id", player.ID))
	log.Info(ctx, "collecting profile")

	w := c.resp.Expect(ctx, c.cfg.MultiCaptureTimeout(), attributes, characteristics, nationalTeam)
	if err := c.page.Navigate(ctx, c.siteURL("/football/player/%s/%d", player.Slug, player.ID)); err != nil {
		w.Cancel()
		return err
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay()); err != nil {
		w.Cancel()
		return err
	}

	html, err := c.page.HTML(ctx)
	if err != nil {
		w.Cancel()
		return err
	}
	next, err := nextData(html)
	if err != nil {
		log.Warn(ctx, "page data unavailable", logger.Error(err))
	}
	text, err := c.page.Text(ctx)
	if err != nil {
		log.Warn(ctx, "page text unavailable", logger.Error(err))
	}

	res, err := w.Result()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn(ctx, "no profile responses captured", logger.Error(err))
	}

	rec := profileRecord(player, profile{
		next:            next,
		attributes:      res.Payloads[attributes],
		characteristics: res.Payloads[characteristics],
		nationalTeam:    res.Payloads[nationalTeam],
		traits:          ParseTraits(text),
	})
	if err := c.store.Upsert(ctx, repository.TablePlayerProfiles, repository.ConflictPlayerProfiles, rec); err != nil {
		return err
	}
	log.Info(ctx, "profile stored", logger.Bool("partial", res.Partial), logger.Int("responses", len(res.Payloads)))
	return nil
}

// PlayerSeasonStats fetches the overall statistics of player in the league
// season and stores them. A player without statistics there is a skip.
func (c *Collector) PlayerSeasonStats(ctx context.Context, league model.League, season model.Season, player model.Player) error {
	url := c.apiURL("/player/%d/unique-tournament/%d/season/%d/statistics/overall", player.ID, league.TournamentID, season.ID)
	log := c.logger.With(logger.String("player", player.Name), logger.String("league", league.Name))
	log.Debug(ctx, "collecting season statistics")

	body, err := c.page.Fetch(ctx, url)
	switch {
	case errors.Is(err, browser.ErrNotFound):
		log.Debug(ctx, "no season statistics")
		return pipeline.Skip("season statistics not found")
	case err != nil:
		return &pipeline.TransientError{Op: "fetch season statistics", Err: err}
	}
	if !body.Get("statistics").Exists() {
		log.Debug(ctx, "no season statistics")
		return pipeline.Skip(ErrNoStatistics.Error())
	}

	return c.store.Upsert(ctx, repository.TablePlayerSeasonStats, repository.ConflictPlayerSeasonStats,
		playerSeasonRecord(league, season, player, body))
}

// nextData decodes the server-rendered page state of a Next.js page.
func nextData(html string) (payload.Value, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return payload.Value{}, fmt.Errorf("parse page: %w", err)
	}
	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return payload.Value{}, errors.New("no __NEXT_DATA__ script")
	}
	return payload.Parse([]byte(script.Text()))
}
