package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// MemoryStore keeps upserted records in memory. It backs dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
	source []TeamStatRow
	logger logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. seed provides team_statistics rows.
func NewMemoryStore(l logger.Logger, seed ...TeamStatRow) *MemoryStore {
	if l == nil {
		l = logger.Nop()
	}
	return &MemoryStore{
		tables: make(map[string]map[string]Record),
		source: append([]TeamStatRow(nil), seed...),
		logger: l,
	}
}

// Upsert stores a copy of rec, merging it into the row with the same key.
func (m *MemoryStore) Upsert(ctx context.Context, table string, conflict []string, rec Record) error {
	if _, _, err := buildUpsert(table, conflict, rec); err != nil {
		metrics.RecordUpsert(table, "error", 0)
		return fmt.Errorf("%w: %s: %w", ErrUpsert, table, err)
	}
	key := fmt.Sprint(keyOf(conflict, rec))

	m.mu.Lock()
	rows, ok := m.tables[table]
	if !ok {
		rows = make(map[string]Record)
		m.tables[table] = rows
	}
	row, ok := rows[key]
	if !ok {
		row = make(Record, len(rec))
		rows[key] = row
	}
	for c, v := range rec {
		row[c] = v
	}
	m.mu.Unlock()

	metrics.RecordUpsert(table, "ok", 0)
	m.logger.Info(ctx, "dry-run upsert", logger.String("table", table), logger.Any("key", keyOf(conflict, rec)),
		logger.Int("columns", len(rec)))
	return nil
}

// UpsertMany validates every record before storing any of them.
func (m *MemoryStore) UpsertMany(ctx context.Context, table string, conflict []string, recs []Record) error {
	for _, rec := range recs {
		if _, _, err := buildUpsert(table, conflict, rec); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUpsert, table, err)
		}
	}
	for _, rec := range recs {
		if err := m.Upsert(ctx, table, conflict, rec); err != nil {
			return err
		}
	}
	return nil
}

// TeamStatRows filters the seeded rows like the SQL query does.
func (m *MemoryStore) TeamStatRows(_ context.Context, league, team string) ([]TeamStatRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TeamStatRow
	for _, r := range m.source {
		if team != "" && !strings.EqualFold(r.TeamName, team) {
			continue
		}
		if league != "" && r.LeagueName != league {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ExistingTeamIDs reads the team ids of reconciled rows for league.
func (m *MemoryStore) ExistingTeamIDs(_ context.Context, league string) (map[int64]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[int64]struct{})
	for _, row := range m.tables[TableReconciledTeamStats] {
		if row["league_name"] != league {
			continue
		}
		if id, ok := asInt64(row["team_id"]); ok {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// Rows returns copies of the records stored in table, ordered by key.
func (m *MemoryStore) Rows(table string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.tables[table]))
	for k := range m.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		cp := make(Record, len(m.tables[table][k]))
		for c, v := range m.tables[table][k] {
			cp[c] = v
		}
		out = append(out, cp)
	}
	return out
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() {}
