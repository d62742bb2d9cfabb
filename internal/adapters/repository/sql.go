package repository

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// buildUpsert renders an INSERT ... ON CONFLICT statement for rec. Columns
// are sorted so the statement text is stable for the same column set.
func buildUpsert(table string, conflict []string, rec Record) (string, []any, error) {
	if len(rec) == 0 {
		return "", nil, ErrEmptyRecord
	}
	if len(conflict) == 0 {
		return "", nil, ErrNoConflict
	}
	for _, c := range conflict {
		if _, ok := rec[c]; !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrMissingKey, c)
		}
	}

	cols := make([]string, 0, len(rec))
	for c := range rec {
		cols = append(cols, c)
	}
	slices.Sort(cols)

	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	var updates []string
	for i, c := range cols {
		quoted[i] = ident(c)
		params[i] = "$" + strconv.Itoa(i+1)
		args[i] = rec[c]
		if !slices.Contains(conflict, c) {
			updates = append(updates, quoted[i]+" = EXCLUDED."+quoted[i])
		}
	}

	keys := make([]string, len(conflict))
	for i, c := range conflict {
		keys[i] = ident(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		ident(table), strings.Join(quoted, ", "), strings.Join(params, ", "), strings.Join(keys, ", "))
	if len(updates) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET ")
		b.WriteString(strings.Join(updates, ", "))
	}
	return b.String(), args, nil
}

func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// teamStatQuery selects team_statistics rows by league, or by team name with
// an optional league.
func teamStatQuery(league, team string) (string, []any) {
	base := "SELECT * FROM " + ident(TableSourceTeamStats) + " WHERE "
	switch {
	case team != "" && league != "":
		return base + "team_name ILIKE $1 AND league_name = $2 ORDER BY team_id", []any{team, league}
	case team != "":
		return base + "team_name ILIKE $1 ORDER BY league_name, team_id", []any{team}
	default:
		return base + "league_name = $1 ORDER BY team_id", []any{league}
	}
}
