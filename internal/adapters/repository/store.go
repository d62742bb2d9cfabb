// Package repository persists crawled records.
//
// Conventions:
//   - Records are column-to-value maps; a nil value writes NULL.
//   - Writes are upserts keyed by a conflict column set, so reruns converge.
//   - Values of json/jsonb columns are encoded with encoding/json by pgx.
package repository

import (
	"context"
	"time"
)

// Table names.
const (
	TableTeamStatistics      = "sofascore_team_statistics"
	TableTeamPlayers         = "sofascore_team_players"
	TablePlayerProfiles      = "sofascore_player_profiles"
	TablePlayerSeasonStats   = "sofascore_player_season_stats"
	TableSourceTeamStats     = "team_statistics"
	TableReconciledTeamStats = "oddsflow_team_statistics"
)

// Conflict keys of the upsert targets.
var (
	ConflictTeamStatistics      = []string{"team_id", "tournament_id", "season_id"}
	ConflictTeamPlayers         = []string{"player_id", "team_id"}
	ConflictPlayerProfiles      = []string{"player_id"}
	ConflictPlayerSeasonStats   = []string{"player_id", "tournament_id", "season_id"}
	ConflictReconciledTeamStats = []string{"team_id", "league_name"}
)

// Record is one row to write.
type Record map[string]any

// TeamStatRow is a row of the externally maintained team_statistics table.
// Raw holds every column as read.
type TeamStatRow struct {
	TeamID     int64
	TeamName   string
	LeagueName string
	Raw        map[string]any
}

// Store is the persistence collaborator of the collectors.
type Store interface {
	// Upsert inserts rec into table or updates the row that conflicts on conflict.
	Upsert(ctx context.Context, table string, conflict []string, rec Record) error
	// UpsertMany writes every record in one transaction.
	UpsertMany(ctx context.Context, table string, conflict []string, recs []Record) error
	// TeamStatRows reads team_statistics for a league, or for a team name
	// (case-insensitive) optionally narrowed to a league.
	TeamStatRows(ctx context.Context, league, team string) ([]TeamStatRow, error)
	// ExistingTeamIDs returns the team ids already reconciled for league.
	ExistingTeamIDs(ctx context.Context, league string) (map[int64]struct{}, error)
	Ping(ctx context.Context) error
	Close()
}

// CollectionDate is the value written to data_collection_date columns.
func CollectionDate(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
