package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildUpsert(t *testing.T) {
	Convey("Given a team statistics record", t, func() {
		rec := Record{
			"team_id":       int64(42),
			"tournament_id": int64(17),
			"season_id":     int64(61627),
			"goals_scored":  int64(71),
			"team_name":     "Arsenal",
		}

		Convey("When the upsert is rendered", func() {
			query, args, err := buildUpsert(TableTeamStatistics, ConflictTeamStatistics, rec)

			Convey("Then columns are sorted, quoted and updated from EXCLUDED", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual, `INSERT INTO "sofascore_team_statistics" `+
					`("goals_scored", "season_id", "team_id", "team_name", "tournament_id") `+
					`VALUES ($1, $2, $3, $4, $5) `+
					`ON CONFLICT ("team_id", "tournament_id", "season_id") `+
					`DO UPDATE SET "goals_scored" = EXCLUDED."goals_scored", "team_name" = EXCLUDED."team_name"`)
				So(args, ShouldResemble, []any{int64(71), int64(61627), int64(42), "Arsenal", int64(17)})
			})

			Convey("Then rendering twice yields the same text", func() {
				again, _, _ := buildUpsert(TableTeamStatistics, ConflictTeamStatistics, rec)
				So(again, ShouldEqual, query)
			})
		})

		Convey("When every column is part of the key", func() {
			query, _, err := buildUpsert(TableTeamPlayers, ConflictTeamPlayers, Record{"player_id": 1, "team_id": 2})

			Convey("Then conflicts are ignored", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEndWith, "DO NOTHING")
			})
		})

		Convey("When a column name carries a quote", func() {
			query, _, err := buildUpsert("t", []string{"id"}, Record{"id": 1, `bad"col`: 2})

			Convey("Then it is escaped", func() {
				So(err, ShouldBeNil)
				So(query, ShouldContainSubstring, `"bad""col"`)
			})
		})

		Convey("When the record is invalid", func() {
			_, _, err := buildUpsert("t", []string{"id"}, Record{})
			So(errors.Is(err, ErrEmptyRecord), ShouldBeTrue)

			_, _, err = buildUpsert("t", nil, Record{"id": 1})
			So(errors.Is(err, ErrNoConflict), ShouldBeTrue)

			_, _, err = buildUpsert("t", []string{"id"}, Record{"name": "x"})
			So(errors.Is(err, ErrMissingKey), ShouldBeTrue)
		})
	})
}

func TestTeamStatQuery(t *testing.T) {
	Convey("Given the three lookup modes", t, func() {
		q, args := teamStatQuery("Premier League", "")
		So(q, ShouldContainSubstring, "league_name = $1")
		So(args, ShouldResemble, []any{"Premier League"})

		q, args = teamStatQuery("", "arsenal")
		So(q, ShouldContainSubstring, "team_name ILIKE $1")
		So(q, ShouldNotContainSubstring, "$2")
		So(args, ShouldResemble, []any{"arsenal"})

		q, args = teamStatQuery("La Liga", "barcelona")
		So(q, ShouldContainSubstring, "team_name ILIKE $1 AND league_name = $2")
		So(args, ShouldResemble, []any{"barcelona", "La Liga"})
	})
}

func TestRowConversion(t *testing.T) {
	Convey("Given rows read as maps", t, func() {
		row, ok := toTeamStatRow(map[string]any{"team_id": int32(33), "team_name": "Manchester United", "league_name": "Premier League"})
		So(ok, ShouldBeTrue)
		So(row.TeamID, ShouldEqual, 33)
		So(row.TeamName, ShouldEqual, "Manchester United")

		_, ok = toTeamStatRow(map[string]any{"team_name": "No Id"})
		So(ok, ShouldBeFalse)

		var n pgtype.Numeric
		So(n.Scan("529"), ShouldBeNil)
		id, ok := asInt64(n)
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, 529)

		_, ok = asInt64(1.5)
		So(ok, ShouldBeFalse)
		id, ok = asInt64("85")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, 85)
	})

	Convey("CollectionDate truncates to the UTC day", t, func() {
		d := CollectionDate(time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("x", -3*3600)))
		So(d, ShouldEqual, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store seeded with team_statistics rows", t, func() {
		s := NewMemoryStore(nil,
			TeamStatRow{TeamID: 1, TeamName: "Arsenal", LeagueName: "Premier League"},
			TeamStatRow{TeamID: 2, TeamName: "Chelsea", LeagueName: "Premier League"},
			TeamStatRow{TeamID: 3, TeamName: "Arsenal", LeagueName: "UEFA Champions League"},
		)

		Convey("When rows are read by league or team", func() {
			byLeague, _ := s.TeamStatRows(ctx, "Premier League", "")
			byTeam, _ := s.TeamStatRows(ctx, "", "arsenal")
			both, _ := s.TeamStatRows(ctx, "UEFA Champions League", "ARSENAL")

			Convey("Then the filters match the SQL lookups", func() {
				So(len(byLeague), ShouldEqual, 2)
				So(len(byTeam), ShouldEqual, 2)
				So(len(both), ShouldEqual, 1)
				So(both[0].TeamID, ShouldEqual, 3)
			})
		})

		Convey("When the same key is upserted twice", func() {
			So(s.Upsert(ctx, TableReconciledTeamStats, ConflictReconciledTeamStats,
				Record{"team_id": int64(1), "league_name": "Premier League", "season": int64(1)}), ShouldBeNil)
			So(s.Upsert(ctx, TableReconciledTeamStats, ConflictReconciledTeamStats,
				Record{"team_id": int64(1), "league_name": "Premier League", "season": int64(2)}), ShouldBeNil)

			Convey("Then one merged row remains and it counts as existing", func() {
				rows := s.Rows(TableReconciledTeamStats)
				So(len(rows), ShouldEqual, 1)
				So(rows[0]["season"], ShouldEqual, int64(2))

				ids, err := s.ExistingTeamIDs(ctx, "Premier League")
				So(err, ShouldBeNil)
				_, ok := ids[1]
				So(ok, ShouldBeTrue)

				other, _ := s.ExistingTeamIDs(ctx, "La Liga")
				So(other, ShouldBeEmpty)
			})
		})

		Convey("When a batch contains an invalid record", func() {
			err := s.UpsertMany(ctx, TableTeamPlayers, ConflictTeamPlayers, []Record{
				{"player_id": int64(1), "team_id": int64(2)},
				{"player_id": int64(3)},
			})

			Convey("Then nothing is written", func() {
				So(errors.Is(err, ErrUpsert), ShouldBeTrue)
				So(errors.Is(err, ErrMissingKey), ShouldBeTrue)
				So(s.Rows(TableTeamPlayers), ShouldBeEmpty)
			})
		})
	})
}
