package collect_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/sofascout/internal/adapters/browser"
	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/collect"
	"github.com/okian/sofascout/internal/config"
	"github.com/okian/sofascout/internal/correlate"
	"github.com/okian/sofascout/internal/domain/matcher"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/domain/payload"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	site = "https://www.sofascore.com"
	api  = "https://www.sofascore.com/api/v1"
)

var (
	premierLeague = model.League{Name: "Premier League", Slug: "premier-league", TournamentID: 17, SourceName: "Premier League"}
	season        = model.Season{ID: 76986, Name: "Premier League 25/26"}
	arsenal       = model.Team{ID: 42, Slug: "arsenal", Name: "Arsenal"}
	saka          = model.Player{ID: 934235, Slug: "bukayo-saka", Name: "Bukayo Saka", TeamID: 42}
)

// fakePage publishes canned responses to the hub when the collector navigates
// or clicks, and answers fetches from a table.
type fakePage struct {
	hub *correlate.Hub

	mu         sync.Mutex
	onNavigate map[string][]string // page url -> api paths
	onClick    map[string][]string // tab label -> api paths
	bodies     map[string]string   // api path -> body
	fetches    map[string]string   // full url -> body
	fetchErr   error
	html       string
	text       string
	navigated  []string
	fetched    []string
}

func newFakePage(hub *correlate.Hub) *fakePage {
	return &fakePage{
		hub:        hub,
		onNavigate: map[string][]string{},
		onClick:    map[string][]string{},
		bodies:     map[string]string{},
		fetches:    map[string]string{},
	}
}

func (f *fakePage) publish(ctx context.Context, paths []string) {
	for _, p := range paths {
		body := f.bodies[p]
		f.hub.Publish(ctx, model.NewExchange(p, api+p, 200, func() ([]byte, error) {
			return []byte(body), nil
		}))
	}
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	f.navigated = append(f.navigated, url)
	paths := f.onNavigate[url]
	f.mu.Unlock()
	f.publish(ctx, paths)
	return nil
}

func (f *fakePage) ClickTab(ctx context.Context, label string) (bool, error) {
	f.mu.Lock()
	paths, ok := f.onClick[label]
	f.mu.Unlock()
	if !ok {
		return false, nil
	}
	f.publish(ctx, paths)
	return true, nil
}

func (f *fakePage) Fetch(_ context.Context, url string) (payload.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	if f.fetchErr != nil {
		return payload.Value{}, f.fetchErr
	}
	body, ok := f.fetches[url]
	if !ok {
		return payload.Value{}, &browser.StatusError{URL: url, Status: 404}
	}
	return payload.Parse([]byte(body))
}

func (f *fakePage) HTML(context.Context) (string, error) { return f.html, nil }
func (f *fakePage) Text(context.Context) (string, error) { return f.text, nil }

type fixture struct {
	page  *fakePage
	store *repository.MemoryStore
	c     *collect.Collector
}

func setup(ctx context.Context, seed ...repository.TeamStatRow) fixture {
	_ = logger.Init()
	hub := correlate.NewHub(correlate.WithCapacity(64), correlate.WithHubLogger(logger.Nop()))
	hub.Start(ctx)

	cfg := config.New(ctx)
	cfg.CaptureTimeoutMS = 300
	cfg.MultiCaptureTimeoutMS = 300

	page := newFakePage(hub)
	store := repository.NewMemoryStore(logger.Nop(), seed...)
	c := collect.New(page, correlate.New(hub, correlate.WithLogger(logger.Nop())), store, cfg,
		collect.WithLogger(logger.Nop()),
		collect.WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		collect.WithClock(func() time.Time { return time.Date(2025, 11, 3, 18, 30, 0, 0, time.UTC) }),
	)
	return fixture{page: page, store: store, c: c}
}

const seasonsBody = `{"uniqueTournamentSeasons":[{"uniqueTournament":{"id":17},"seasons":[{"id":76986,"name":"Premier League 25/26","year":"25/26"}]}]}`

const standingsBody = `{"standings":[{"rows":[
  {"position":1,"team":{"id":42,"slug":"arsenal","name":"Arsenal"}},
  {"position":2,"team":{"id":17,"name":"Manchester City"}},
  {"position":3,"team":{"id":39,"slug":"newcastle-united","shortName":"Newcastle United"}},
  {"position":4,"team":{"slug":"broken"}}
]}]}`

func TestDiscover(t *testing.T) {
	Convey("Given a tournament page", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fx := setup(ctx)
		tournament := site + "/football/tournament/premier-league/17"

		Convey("When the page emits seasons and standings", func() {
			fx.page.bodies["/unique-tournament/17/standings/seasons"] = seasonsBody
			fx.page.bodies["/unique-tournament/17/season/76986/standings/total"] = standingsBody
			fx.page.onNavigate[tournament] = []string{
				"/unique-tournament/17/standings/seasons",
				"/unique-tournament/17/season/76986/standings/total",
			}

			s, cat, err := fx.c.Discover(ctx, premierLeague)

			Convey("Then season and teams come from the observed responses", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, season)
				So(cat.SeasonID(), ShouldEqual, 76986)
				So(fx.page.fetched, ShouldBeEmpty)

				teams := collect.Teams(cat)
				So(teams, ShouldHaveLength, 3)
				So(teams[0], ShouldResemble, arsenal)
				So(teams[1].Slug, ShouldEqual, "manchester-city")
				So(teams[2].Name, ShouldEqual, "Newcastle United")
			})
		})

		Convey("When nothing is observed", func() {
			fx.page.fetches[api+"/unique-tournament/17/seasons"] = `{"seasons":[{"id":76986,"year":"25/26"}]}`
			fx.page.fetches[api+"/unique-tournament/17/season/76986/standings/total"] = standingsBody

			s, cat, err := fx.c.Discover(ctx, premierLeague)

			Convey("Then both are fetched in-page", func() {
				So(err, ShouldBeNil)
				So(s.ID, ShouldEqual, 76986)
				So(s.Name, ShouldEqual, "25/26")
				So(cat.Len(), ShouldEqual, 3)
				So(fx.page.fetched, ShouldHaveLength, 2)
			})
		})

		Convey("When no season can be found", func() {
			_, _, err := fx.c.Discover(ctx, premierLeague)

			Convey("Then the league scope fails", func() {
				So(errors.Is(err, pipeline.ErrScope), ShouldBeTrue)
				So(errors.Is(err, collect.ErrNoSeason), ShouldBeTrue)
				var scope *pipeline.ScopeError
				So(errors.As(err, &scope), ShouldBeTrue)
				So(scope.Scope, ShouldEqual, "Premier League")
			})
		})

		Convey("When the catalog is fetched directly", func() {
			fx.page.fetches[api+"/unique-tournament/17/seasons"] = `{"seasons":[{"id":76986,"name":"Premier League 25/26"}]}`
			fx.page.fetches[api+"/unique-tournament/17/season/76986/standings/total"] = standingsBody

			s, cat, err := fx.c.FetchCatalog(ctx, premierLeague)

			Convey("Then the tournament page is not loaded", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, season)
				So(cat.Len(), ShouldEqual, 3)
				So(fx.page.navigated, ShouldBeEmpty)
			})
		})
	})
}

const teamStatsBody = `{"statistics":{
  "goalsScored":70,"goalsConceded":28,"shots":620,"shotsOnTarget":220,"shotsOffTarget":250,
  "blockedScoringAttempt":150,"corners":260,"offsides":45,"totalPasses":21000,
  "accuratePassesPercentage":86.4,"averageBallPossession":58.3,"tackles":600,
  "interceptions":320,"clearances":500,"yellowCards":60,"redCards":2,"fouls":380,
  "matches":38,"wins":26,"draws":8,"losses":4
}}`

func TestTeamStats(t *testing.T) {
	Convey("Given a team page with a statistics tab", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fx := setup(ctx)
		path := "/team/42/unique-tournament/17/season/76986/statistics/overall"
		fx.page.bodies[path] = teamStatsBody
		fx.page.onClick["Statistics"] = []string{path}

		Convey("When the tab emits the statistics response", func() {
			err := fx.c.TeamStats(ctx, premierLeague, season, arsenal)

			Convey("Then the mapped row is stored", func() {
				So(err, ShouldBeNil)
				So(fx.page.navigated, ShouldResemble, []string{site + "/football/team/arsenal/42"})

				rows := fx.store.Rows(repository.TableTeamStatistics)
				So(rows, ShouldHaveLength, 1)
				row := rows[0]
				So(row["team_id"], ShouldEqual, int64(42))
				So(row["tournament_name"], ShouldEqual, "Premier League")
				So(row["season_name"], ShouldEqual, "Premier League 25/26")
				So(row["goals_scored"], ShouldEqual, int64(70))
				So(row["shots_total"], ShouldEqual, int64(620))
				So(row["blocked_shots"], ShouldEqual, int64(150))
				So(row["corner_kicks"], ShouldEqual, int64(260))
				So(row["possession_pct"], ShouldEqual, 58.3)
				So(row["matches_played"], ShouldEqual, int64(38))
				So(row["raw_data"], ShouldNotBeNil)
			})
		})

		Convey("When the tab is missing", func() {
			delete(fx.page.onClick, "Statistics")
			err := fx.c.TeamStats(ctx, premierLeague, season, arsenal)

			Convey("Then the item fails", func() {
				So(errors.Is(err, collect.ErrTabMissing), ShouldBeTrue)
				So(fx.store.Rows(repository.TableTeamStatistics), ShouldBeEmpty)
			})
		})

		Convey("When the response has no statistics", func() {
			fx.page.bodies[path] = `{"error":{"code":404}}`
			err := fx.c.TeamStats(ctx, premierLeague, season, arsenal)

			Convey("Then the item is skipped", func() {
				So(errors.Is(err, pipeline.ErrSkip), ShouldBeTrue)
				So(fx.store.Rows(repository.TableTeamStatistics), ShouldBeEmpty)
			})
		})

		Convey("When the response never arrives", func() {
			fx.page.onClick["Statistics"] = nil
			err := fx.c.TeamStats(ctx, premierLeague, season, arsenal)

			Convey("Then the wait times out", func() {
				So(errors.Is(err, correlate.ErrTimeout), ShouldBeTrue)
			})
		})
	})
}

func TestTeamPlayers(t *testing.T) {
	Convey("Given a team page listing players", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fx := setup(ctx)
		fx.page.html = `<html><body>
<a href="/football/player/bukayo-saka/934235"> Bukayo Saka </a>
<a href="/football/player/bukayo-saka/934235">Saka</a>
<a href="/football/player/martin-odegaard/859025"></a>
<a href="/football/player/compare">Compare players</a>
<a href="/football/team/arsenal/42">Arsenal</a>
</body></html>`

		Convey("When players are collected", func() {
			players, err := fx.c.TeamPlayers(ctx, arsenal)

			Convey("Then each player is stored once", func() {
				So(err, ShouldBeNil)
				So(players, ShouldResemble, []model.Player{
					saka,
					{ID: 859025, Slug: "martin-odegaard", Name: "martin odegaard", TeamID: 42},
				})

				rows := fx.store.Rows(repository.TableTeamPlayers)
				So(rows, ShouldHaveLength, 2)
				So(rows[0]["team_id"], ShouldEqual, int64(42))
				So(rows[0]["raw_data"], ShouldContainKey, "href")
			})
		})

		Convey("When the page has no player links", func() {
			fx.page.html = `<html><body><p>Squad unavailable</p></body></html>`
			_, err := fx.c.TeamPlayers(ctx, arsenal)

			Convey("Then the team is skipped", func() {
				So(errors.Is(err, pipeline.ErrSkip), ShouldBeTrue)
			})
		})
	})
}

const nextDataHTML = `<html><head>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"initialProps":{
  "player":{"name":"Bukayo Saka","position":"F","height":178,"preferredFoot":"Left",
    "country":{"name":"England"},"team":{"id":42,"name":"Arsenal"},
    "proposedMarketValue":130000000,"proposedMarketValueRaw":{"value":130000000,"currency":"EUR"}},
  "transfers":[{"transferFrom":{"id":1,"name":"Arsenal U21"},"toTeamName":"Arsenal",
    "transferFee":0,"transferFeeDescription":"-","type":3,"transferDateTimestamp":1546300800}]
}}}}</script></head><body></body></html>`

const pageText = `Bukayo Saka
Strengths
Finishing
Key passes
Weaknesses
No outstanding weaknesses
Aerial duels
Player positions
RW
Attribute Overview`

func TestPlayerProfile(t *testing.T) {
	Convey("Given a player page", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fx := setup(ctx)
		url := site + "/football/player/bukayo-saka/934235"
		fx.page.html = nextDataHTML
		fx.page.text = pageText
		fx.page.bodies["/player/934235/attribute-overviews"] = `{"playerAttributeOverviews":[
  {"yearShift":1,"attacking":60,"creativity":55,"defending":30,"technical":58,"tactical":50},
  {"yearShift":0,"attacking":78,"creativity":74,"defending":38,"technical":80,"tactical":65}]}`
		fx.page.bodies["/player/934235/characteristics"] = `{"positions":["RW","AM"],"positive":[{"type":3}]}`

		Convey("When only two of three responses arrive", func() {
			fx.page.onNavigate[url] = []string{"/player/934235/attribute-overviews", "/player/934235/characteristics"}
			err := fx.c.PlayerProfile(ctx, saka)

			Convey("Then the partial profile is stored", func() {
				So(err, ShouldBeNil)
				rows := fx.store.Rows(repository.TablePlayerProfiles)
				So(rows, ShouldHaveLength, 1)
				row := rows[0]
				So(row["player_name"], ShouldEqual, "Bukayo Saka")
				So(*row["primary_position"].(*string), ShouldEqual, "F")
				So(*row["current_team_id"].(*int64), ShouldEqual, int64(42))
				So(*row["market_value_currency"].(*string), ShouldEqual, "EUR")
				So(row["height"], ShouldEqual, int64(178))
				So(row["attacking_rating"], ShouldEqual, int64(78))
				So(row["creative_rating"], ShouldEqual, int64(74))
				So(row["strengths"], ShouldResemble, []string{"Finishing", "Key passes"})
				So(row["weaknesses"], ShouldResemble, []string{"Aerial duels"})
				So(row["national_team_stats"], ShouldBeNil)

				history := row["transfer_history"].([]map[string]any)
				So(history, ShouldHaveLength, 1)
				So(history[0]["fromTeam"], ShouldEqual, "Arsenal U21")
				So(history[0]["toTeam"], ShouldEqual, "Arsenal")
			})
		})

		Convey("When the national team response arrives as well", func() {
			fx.page.bodies["/player/934235/national-team-statistics"] = `{"statistics":[
  {"team":{"id":4713,"name":"England"},"appearances":40,"goals":12,"debutTimestamp":1599609600}]}`
			fx.page.onNavigate[url] = []string{
				"/player/934235/national-team-statistics",
				"/player/934235/attribute-overviews",
				"/player/934235/characteristics",
			}
			err := fx.c.PlayerProfile(ctx, saka)

			Convey("Then the summary is stored", func() {
				So(err, ShouldBeNil)
				row := fx.store.Rows(repository.TablePlayerProfiles)[0]
				nt := row["national_team_stats"].(map[string]any)
				So(nt["team"], ShouldEqual, "England")
				So(nt["appearances"], ShouldEqual, int64(40))
			})
		})

		Convey("When nothing arrives and the page has no data", func() {
			fx.page.html = `<html></html>`
			fx.page.text = ""
			err := fx.c.PlayerProfile(ctx, saka)

			Convey("Then a minimal profile is still stored", func() {
				So(err, ShouldBeNil)
				row := fx.store.Rows(repository.TablePlayerProfiles)[0]
				So(row["player_name"], ShouldEqual, "Bukayo Saka")
				So(row["attacking_rating"], ShouldBeNil)
				So(row["strengths"], ShouldResemble, []string{})
			})
		})
	})
}

func TestPlayerSeasonStats(t *testing.T) {
	Convey("Given the season statistics endpoint", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fx := setup(ctx)
		url := api + "/player/934235/unique-tournament/17/season/76986/statistics/overall"

		Convey("When the player has statistics", func() {
			fx.page.fetches[url] = `{"statistics":{"appearances":12,"goals":5,"expectedGoals":4.3,"rating":7.61,"penaltyConceded":1}}`
			err := fx.c.PlayerSeasonStats(ctx, premierLeague, season, saka)

			Convey("Then they are stored", func() {
				So(err, ShouldBeNil)
				row := fx.store.Rows(repository.TablePlayerSeasonStats)[0]
				So(row["appearances"], ShouldEqual, int64(12))
				So(row["expected_goals"], ShouldEqual, 4.3)
				So(*row["rating"].(*float64), ShouldEqual, 7.61)
				So(row["penalty_committed"], ShouldEqual, int64(1))
				So(row["assists"], ShouldBeNil)
			})
		})

		Convey("When the rating is a whole number", func() {
			fx.page.fetches[url] = `{"statistics":{"appearances":1,"rating":7}}`
			So(fx.c.PlayerSeasonStats(ctx, premierLeague, season, saka), ShouldBeNil)
			rating, ok := fx.store.Rows(repository.TablePlayerSeasonStats)[0]["rating"].(*float64)

			Convey("Then it is stored as a decimal", func() {
				So(ok, ShouldBeTrue)
				So(*rating, ShouldEqual, 7.0)
			})

			Convey("And a later answer without a rating stores NULL", func() {
				fx.page.fetches[url] = `{"statistics":{"appearances":2}}`
				So(fx.c.PlayerSeasonStats(ctx, premierLeague, season, saka), ShouldBeNil)
				rows := fx.store.Rows(repository.TablePlayerSeasonStats)
				So(rows, ShouldHaveLength, 1)
				So(rows[0]["rating"], ShouldBeNil)
			})
		})

		Convey("When the endpoint answers 404", func() {
			err := fx.c.PlayerSeasonStats(ctx, premierLeague, season, saka)

			Convey("Then the player is skipped", func() {
				So(errors.Is(err, pipeline.ErrSkip), ShouldBeTrue)
			})
		})

		Convey("When the fetch fails otherwise", func() {
			fx.page.fetchErr = &browser.StatusError{URL: url, Status: 403}
			err := fx.c.PlayerSeasonStats(ctx, premierLeague, season, saka)

			Convey("Then the failure is transient", func() {
				So(errors.Is(err, pipeline.ErrTransient), ShouldBeTrue)
				So(errors.Is(err, pipeline.ErrSkip), ShouldBeFalse)
			})
		})
	})
}

func TestReconcile(t *testing.T) {
	Convey("Given team_statistics rows and a discovered catalog", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		rows := []repository.TeamStatRow{
			{TeamID: 1, TeamName: "Arsenal", LeagueName: "Premier League", Raw: map[string]any{"team_id": 1}},
			{TeamID: 2, TeamName: "Newcastle", LeagueName: "Premier League", Raw: map[string]any{"team_id": 2}},
			{TeamID: 3, TeamName: "Hamburg Freezers", LeagueName: "Premier League", Raw: map[string]any{"team_id": 3}},
		}
		fx := setup(ctx, rows...)
		cat := matcher.NewCatalog(76986, []matcher.Entry{
			{ID: 42, Slug: "arsenal", Name: "Arsenal"},
			{ID: 39, Slug: "newcastle-united", Name: "Newcastle United"},
		})
		fx.page.fetches[api+"/team/42/unique-tournament/17/season/76986/statistics/overall"] = `{"statistics":{"goalsScored":70}}`

		source, err := fx.c.SourceRows(ctx, "Premier League", "")
		So(err, ShouldBeNil)
		pairs := fx.c.Pair(ctx, source, cat)

		Convey("Then every row is paired or marked unmatched", func() {
			So(pairs, ShouldHaveLength, 3)
			So(pairs[0].Matched, ShouldBeTrue)
			So(pairs[0].Entry.ID, ShouldEqual, 42)
			So(pairs[1].Strategy, ShouldEqual, matcher.StrategyAlias)
			So(pairs[2].Matched, ShouldBeFalse)
			So(pairs[0].Key(), ShouldEqual, "1@Premier League")
		})

		Convey("When a matched row is reconciled", func() {
			err := fx.c.ReconcileTeam(ctx, premierLeague, season, pairs[0], nil)

			Convey("Then the merged row is stored under the source id", func() {
				So(err, ShouldBeNil)
				stored := fx.store.Rows(repository.TableReconciledTeamStats)
				So(stored, ShouldHaveLength, 1)
				So(stored[0]["team_id"], ShouldEqual, int64(1))
				So(stored[0]["season"], ShouldEqual, int64(76986))
				So(stored[0]["data_collection_date"], ShouldEqual, time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC))

				existing, err := fx.c.Reconciled(ctx, premierLeague)
				So(err, ShouldBeNil)
				So(existing, ShouldContainKey, int64(1))

				Convey("And a rerun skips it", func() {
					err := fx.c.ReconcileTeam(ctx, premierLeague, season, pairs[0], existing)
					So(errors.Is(err, pipeline.ErrSkip), ShouldBeTrue)
				})
			})
		})

		Convey("When the row has no match", func() {
			err := fx.c.ReconcileTeam(ctx, premierLeague, season, pairs[2], nil)
			So(errors.Is(err, pipeline.ErrSkip), ShouldBeTrue)
			So(fx.page.fetched, ShouldBeEmpty)
		})

		Convey("When the statistics fetch fails", func() {
			err := fx.c.ReconcileTeam(ctx, premierLeague, season, pairs[1], nil)
			So(errors.Is(err, pipeline.ErrTransient), ShouldBeTrue)
			So(errors.Is(err, browser.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestParseTraits(t *testing.T) {
	Convey("Given the rendered text of a player page", t, func() {
		Convey("Then lists end at headings and position codes", func() {
			tr := collect.ParseTraits("Strengths\n  Ball control \nGK\nPassing\nWeaknesses\nSearch to compare players\nDefending")
			So(tr.Strengths, ShouldResemble, []string{"Ball control"})
			So(tr.Weaknesses, ShouldBeEmpty)
		})

		Convey("Then short lines and placeholders are not traits", func() {
			tr := collect.ParseTraits("Strengths\nNo outstanding strengths\nAbc\nLong shots\nTransfer history\nAerial")
			So(tr.Strengths, ShouldResemble, []string{"Long shots"})
		})

		Convey("Then text without headers has no traits", func() {
			tr := collect.ParseTraits("Finishing\nPassing")
			So(tr.Strengths, ShouldBeEmpty)
			So(tr.Weaknesses, ShouldBeEmpty)
		})
	})
}
