package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	if dsn == "" {
		return nil, ErrNoConnection
	}
	o := options{maxConns: 4, logger: logger.Get().Named("repository")}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = o.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool, logger: o.logger}, nil
}

// Upsert writes one record.
func (s *PostgresStore) Upsert(ctx context.Context, table string, conflict []string, rec Record) error {
	query, args, err := buildUpsert(table, conflict, rec)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpsert, table, err)
	}

	start := time.Now()
	_, err = s.pool.Exec(ctx, query, args...)
	ms := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpsert(table, "error", ms)
		metrics.RecordErrorByComponent("repository", "upsert")
		return fmt.Errorf("%w: %s: %w", ErrUpsert, table, err)
	}
	metrics.RecordUpsert(table, "ok", ms)
	s.logger.Debug(ctx, "upserted", logger.String("table", table), logger.Any("key", keyOf(conflict, rec)))
	return nil
}

// UpsertMany writes recs in one transaction using a batch.
func (s *PostgresStore) UpsertMany(ctx context.Context, table string, conflict []string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		query, args, err := buildUpsert(table, conflict, rec)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUpsert, table, err)
		}
		batch.Queue(query, args...)
	}

	start := time.Now()
	err := s.sendBatch(ctx, batch)
	ms := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpsert(table, "error", ms)
		metrics.RecordErrorByComponent("repository", "upsert_batch")
		return fmt.Errorf("%w: %s: %w", ErrUpsert, table, err)
	}
	metrics.RecordUpsert(table, "ok", ms)
	s.logger.Debug(ctx, "upserted batch", logger.String("table", table), logger.Int("rows", len(recs)))
	return nil
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch exec %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return tx.Commit(ctx)
}

// TeamStatRows reads rows of team_statistics.
func (s *PostgresStore) TeamStatRows(ctx context.Context, league, team string) ([]TeamStatRow, error) {
	query, args := teamStatQuery(league, team)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, TableSourceTeamStats, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, TableSourceTeamStats, err)
	}

	out := make([]TeamStatRow, 0, len(maps))
	for _, m := range maps {
		row, ok := toTeamStatRow(m)
		if !ok {
			s.logger.Warn(ctx, "team_statistics row without team_id", logger.Any("team_name", m["team_name"]))
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// ExistingTeamIDs returns the team ids already present in oddsflow_team_statistics.
func (s *PostgresStore) ExistingTeamIDs(ctx context.Context, league string) (map[int64]struct{}, error) {
	query := "SELECT team_id FROM " + ident(TableReconciledTeamStats) + " WHERE league_name = $1"
	rows, err := s.pool.Query(ctx, query, league)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, TableReconciledTeamStats, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, TableReconciledTeamStats, err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func toTeamStatRow(m map[string]any) (TeamStatRow, bool) {
	id, ok := asInt64(m["team_id"])
	if !ok {
		return TeamStatRow{}, false
	}
	name, _ := m["team_name"].(string)
	league, _ := m["league_name"].(string)
	return TeamStatRow{TeamID: id, TeamName: name, LeagueName: league, Raw: m}, true
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	case pgtype.Numeric:
		i, err := n.Int64Value()
		return i.Int64, err == nil && i.Valid
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func keyOf(conflict []string, rec Record) map[string]any {
	k := make(map[string]any, len(conflict))
	for _, c := range conflict {
		k[c] = rec[c]
	}
	return k
}
