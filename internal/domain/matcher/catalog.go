// Package matcher resolves a free-text team name from one source to a
// canonical entry of an independently sourced catalog.
package matcher

import (
	"slices"
)

// Entry is one canonical catalog record.
type Entry struct {
	ID   int64
	Slug string
	Name string
}

// Catalog is an immutable, ordered set of entries for one discovery cycle
// (one tournament and season). Build a new one when the context changes.
type Catalog struct {
	seasonID int64
	entries  []Entry
	norm     []string
}

// NewCatalog copies entries and precomputes their normalized names.
// Entries keep the order they were discovered in.
func NewCatalog(seasonID int64, entries []Entry) *Catalog {
	c := &Catalog{
		seasonID: seasonID,
		entries:  make([]Entry, len(entries)),
		norm:     make([]string, len(entries)),
	}
	copy(c.entries, entries)
	for i, e := range c.entries {
		c.norm[i] = Normalize(e.Name)
	}
	return c
}

// SeasonID is the season the catalog was discovered for.
func (c *Catalog) SeasonID() int64 { return c.seasonID }

// Len is the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ByID finds an entry by id.
func (c *Catalog) ByID(id int64) (Entry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// AliasTable maps a normalized source-side name to the ordered catalog name
// variants accepted for it. It is read-only once built.
type AliasTable map[string][]string

// NewAliasTable normalizes the keys of raw. Raw keys that normalize to the same
// key have their variants concatenated in sorted raw-key order.
func NewAliasTable(raw map[string][]string) AliasTable {
	t := make(AliasTable, len(raw))
	for _, k := range sortedKeys(raw) {
		nk := Normalize(k)
		if nk == "" {
			continue
		}
		t[nk] = append(t[nk], raw[k]...)
	}
	return t
}

// Variants returns the alias variants for name, or nil.
func (t AliasTable) Variants(name string) []string {
	if t == nil {
		return nil
	}
	return t[Normalize(name)]
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
