package collect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
)

var playerHref = regexp.MustCompile(`/football/player/([^/]+)/(\d+)`)

func (c *Collector) teamURL(t model.Team) string {
	return c.siteURL("/football/team/%s/%d", t.Slug, t.ID)
}

// TeamStats opens the statistics tab of team and stores the overall season
// statistics the tab requests. A response without statistics is a skip.
func (c *Collector) TeamStats(ctx context.Context, league model.League, season model.Season, team model.Team) error {
	pattern := fmt.Sprintf("/team/%d/unique-tournament/%d/season/%d/statistics/overall", team.ID, league.TournamentID, season.ID)
	log := c.logger.With(logger.String("team", team.Name), logger.String("league", league.Name))
	log.Info(ctx, "collecting team statistics")

	if err := c.page.Navigate(ctx, c.teamURL(team)); err != nil {
		return err
	}
	if err := c.sleep(ctx, c.cfg.TabDelay()); err != nil {
		return err
	}

	w := c.resp.Expect(ctx, c.cfg.CaptureTimeout(), pattern)
	clicked, err := c.page.ClickTab(ctx, "Statistics")
	if err != nil || !clicked {
		w.Cancel()
		if err == nil {
			err = ErrTabMissing
		}
		return fmt.Errorf("statistics tab of %s: %w", team.Name, err)
	}
	if err := c.sleep(ctx, c.cfg.TabDelay()); err != nil {
		w.Cancel()
		return err
	}

	res, err := w.Result()
	if err != nil {
		return err
	}
	body := res.Payloads[pattern]
	if !body.Get("statistics").Exists() {
		log.Warn(ctx, "no statistics data")
		return pipeline.Skip(ErrNoStatistics.Error())
	}

	if err := c.store.Upsert(ctx, repository.TableTeamStatistics, repository.ConflictTeamStatistics,
		teamStatsRecord(league, season, team, body)); err != nil {
		return err
	}
	log.Info(ctx, "team statistics stored")
	return nil
}

// TeamPlayers reads the squad of team from the player links of its page and
// stores one membership row per player.
func (c *Collector) TeamPlayers(ctx context.Context, team model.Team) ([]model.Player, error) {
	log := c.logger.With(logger.String("team", team.Name))
	log.Info(ctx, "collecting players")

	if err := c.page.Navigate(ctx, c.teamURL(team)); err != nil {
		return nil, err
	}
	if err := c.sleep(ctx, c.cfg.TabDelay()); err != nil {
		return nil, err
	}
	if ok, err := c.page.ClickTab(ctx, "Players"); err != nil || !ok {
		log.Debug(ctx, "players tab not clicked", logger.Error(err))
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay()); err != nil {
		return nil, err
	}

	html, err := c.page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	players, hrefs, err := playerLinks(html, team.ID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		log.Warn(ctx, "no players found")
		return nil, pipeline.Skip(ErrNoPlayers.Error())
	}

	recs := make([]repository.Record, len(players))
	for i, p := range players {
		recs[i] = teamPlayerRecord(p, hrefs[i])
	}
	if err := c.store.UpsertMany(ctx, repository.TableTeamPlayers, repository.ConflictTeamPlayers, recs); err != nil {
		return nil, err
	}
	log.Info(ctx, "players stored", logger.Int("players", len(players)))
	return players, nil
}

// playerLinks extracts players from anchors pointing at player pages. The
// link text is the name; the slug stands in when the anchor has no text.
func playerLinks(html string, teamID int64) ([]model.Player, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse team page: %w", err)
	}

	var (
		players []model.Player
		hrefs   []string
	)
	seen := make(map[int64]struct{})
	doc.Find(`a[href*="/player/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := playerHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(a.Text())
		if name == "" {
			name = strings.ReplaceAll(m[1], "-", " ")
		}
		players = append(players, model.Player{ID: id, Slug: m[1], Name: name, TeamID: teamID})
		hrefs = append(hrefs, href)
	})
	return players, hrefs, nil
}
