package collect

import (
	"context"
	"fmt"
	"strconv"

	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/domain/matcher"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/pipeline"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// Pairing is a team_statistics row and the catalog entry chosen for it.
type Pairing struct {
	Row      repository.TeamStatRow
	Entry    matcher.Entry
	Strategy matcher.Strategy
	Matched  bool
}

// Key identifies the row within a reconcile run.
func (p Pairing) Key() string {
	return strconv.FormatInt(p.Row.TeamID, 10) + "@" + p.Row.LeagueName
}

// SourceRows reads team_statistics rows for a league or, when team is set,
// for that team name across leagues (narrowed to league when it is set too).
func (c *Collector) SourceRows(ctx context.Context, league, team string) ([]repository.TeamStatRow, error) {
	rows, err := c.store.TeamStatRows(ctx, league, team)
	if err != nil {
		return nil, err
	}
	c.logger.Info(ctx, "team_statistics rows read",
		logger.String("league", league),
		logger.String("team", team),
		logger.Int("rows", len(rows)),
	)
	return rows, nil
}

// Pair matches every row against cat and logs the resulting match table.
func (c *Collector) Pair(ctx context.Context, rows []repository.TeamStatRow, cat *matcher.Catalog) []Pairing {
	out := make([]Pairing, len(rows))
	matched := 0
	for i, row := range rows {
		res, ok := matcher.Match(row.TeamName, cat, c.aliases)
		out[i] = Pairing{Row: row, Entry: res.Entry, Strategy: res.Strategy, Matched: ok}
		metrics.RecordMatch(res.Strategy.String())
		if !ok {
			c.logger.Warn(ctx, fmt.Sprintf("✗ %s → NO MATCH (will skip)", row.TeamName))
			continue
		}
		matched++
		c.logger.Info(ctx, fmt.Sprintf("✓ %s → %s (ID: %d)", row.TeamName, res.Entry.Name, res.Entry.ID),
			logger.String("strategy", res.Strategy.String()))
	}
	c.logger.Info(ctx, fmt.Sprintf("Matched: %d/%d", matched, len(rows)))
	return out
}

// Reconciled returns the team ids already stored for league. Rows with these
// ids are skipped so that an interrupted run can resume.
func (c *Collector) Reconciled(ctx context.Context, league model.League) (map[int64]struct{}, error) {
	ids, err := c.store.ExistingTeamIDs(ctx, league.SourceName)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		c.logger.Info(ctx, "already reconciled teams will be skipped",
			logger.String("league", league.SourceName), logger.Int("teams", len(ids)))
	}
	return ids, nil
}

// ReconcileTeam fetches the season statistics of the matched team and stores
// them next to the original row.
func (c *Collector) ReconcileTeam(ctx context.Context, league model.League, season model.Season, p Pairing, existing map[int64]struct{}) error {
	if !p.Matched {
		return pipeline.Skip("no catalog match for " + p.Row.TeamName)
	}
	if _, ok := existing[p.Row.TeamID]; ok {
		return pipeline.Skip(p.Row.TeamName + " already reconciled")
	}

	c.logger.Info(ctx, fmt.Sprintf("%s → %s", p.Row.TeamName, p.Entry.Name), logger.Int64("team_id", p.Entry.ID))
	url := c.apiURL("/team/%d/unique-tournament/%d/season/%d/statistics/overall", p.Entry.ID, league.TournamentID, season.ID)
	body, err := c.page.Fetch(ctx, url)
	if err != nil {
		return &pipeline.TransientError{Op: "fetch team statistics", Err: err}
	}

	rec := reconciledRecord(p.Row, season, body, repository.CollectionDate(c.now()))
	if err := c.store.Upsert(ctx, repository.TableReconciledTeamStats, repository.ConflictReconciledTeamStats, rec); err != nil {
		return err
	}
	c.logger.Info(ctx, "reconciled", logger.String("team", p.Row.TeamName), logger.String("league", p.Row.LeagueName))
	return nil
}
