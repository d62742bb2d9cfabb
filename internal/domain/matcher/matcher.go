package matcher

import (
	"strings"
)

// Strategy identifies which rule produced a match.
type Strategy int

// Strategies, numbered by their rank in the cascade definition.
const (
	StrategyNone Strategy = iota
	StrategyExact
	StrategyNormalized
	StrategyContainment
	StrategyAlias
	StrategyTokenOverlap
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyNormalized:
		return "normalized"
	case StrategyContainment:
		return "containment"
	case StrategyAlias:
		return "alias"
	case StrategyTokenOverlap:
		return "token_overlap"
	default:
		return "none"
	}
}

// Result is a successful match.
type Result struct {
	Entry    Entry
	Strategy Strategy
}

// Match resolves query against the catalog. The cascade returns on the first
// hit, in this order:
//
//	exact (case-insensitive), normalized exact, alias table,
//	containment, token overlap
//
// The alias table is consulted before the two heuristics so that a configured
// mapping always wins over a guess. A false second return means no entry was
// acceptable; callers skip the item.
func Match(query string, catalog *Catalog, aliases AliasTable) (Result, bool) {
	if catalog == nil || catalog.Len() == 0 || strings.TrimSpace(query) == "" {
		return Result{}, false
	}
	nq := Normalize(query)

	// 1. exact, case-insensitive
	for _, e := range catalog.entries {
		if strings.EqualFold(e.Name, query) {
			return Result{Entry: e, Strategy: StrategyExact}, true
		}
	}

	// 2. normalized exact
	if nq != "" {
		for i, e := range catalog.entries {
			if catalog.norm[i] == nq {
				return Result{Entry: e, Strategy: StrategyNormalized}, true
			}
		}
	}

	// 4. alias variants, each by equality or gated containment
	for _, variant := range aliases.Variants(query) {
		nv := Normalize(variant)
		if nv == "" {
			continue
		}
		for i, e := range catalog.entries {
			if catalog.norm[i] == nv || contains(catalog.norm[i], nv) {
				return Result{Entry: e, Strategy: StrategyAlias}, true
			}
		}
	}

	// 3. containment, gated on the contained side
	for i, e := range catalog.entries {
		if contains(catalog.norm[i], nq) {
			return Result{Entry: e, Strategy: StrategyContainment}, true
		}
	}

	// 5. significant token overlap of at least half the smaller set
	qt := Tokens(nq)
	if len(qt) == 0 {
		return Result{}, false
	}
	for i, e := range catalog.entries {
		et := Tokens(catalog.norm[i])
		if overlaps(qt, et) {
			return Result{Entry: e, Strategy: StrategyTokenOverlap}, true
		}
	}
	return Result{}, false
}

func overlaps(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	common := 0
	for _, t := range a {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			common++
		}
	}
	smaller := len(seen)
	if len(set) < smaller {
		smaller = len(set)
	}
	return common > 0 && 2*common >= smaller
}
