// Package records models one row of a performance-set track listing and the
// light preprocessing applied before entity resolution.
package records

import (
	"sort"
	"strings"
)

// Record is one track played in one set. Slots maps a performer column such
// as "DJ0" or "RemixOrEdit1" to a name; an empty name is a null slot.
type Record struct {
	ID        string            `json:"id"`
	TrackName string            `json:"track_name"`
	Date      string            `json:"date"`
	Genre     string            `json:"genre,omitempty"`
	Slots     map[string]string `json:"slots"`
}

// Columns returns the record's slot columns in sorted order.
func (r Record) Columns() []string {
	cols := make([]string, 0, len(r.Slots))
	for c := range r.Slots {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Malformed reports why a record cannot contribute, or "" if it can.
func (r Record) Malformed() string {
	if NormalizeName(r.TrackName) == "" {
		return "missing track name"
	}
	for _, name := range r.Slots {
		if NormalizeName(name) != "" {
			return ""
		}
	}
	return "all performer slots are null"
}

// NormalizeName trims a mention and collapses internal whitespace runs to a
// single space. Case is preserved.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// FoldName is the comparison key of a normalized name when matching is case
// insensitive.
func FoldName(name string) string {
	return strings.ToLower(name)
}

// Normalize returns a copy of r with every slot name normalized. Slots that
// normalize to nothing are dropped.
func Normalize(r Record) Record {
	out := r
	out.TrackName = NormalizeName(r.TrackName)
	out.Slots = make(map[string]string, len(r.Slots))
	for col, name := range r.Slots {
		if n := NormalizeName(name); n != "" {
			out.Slots[col] = n
		}
	}
	return out
}

// ColumnMatcher decides which slot columns take part in a computation.
// Patterns match a column exactly, or as a prefix when they end in "*".
type ColumnMatcher struct {
	exact    map[string]bool
	prefixes []string
}

// NewColumnMatcher builds a matcher from column patterns.
func NewColumnMatcher(patterns []string) ColumnMatcher {
	m := ColumnMatcher{exact: make(map[string]bool)}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "*") {
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		m.exact[p] = true
	}
	return m
}

// Match reports whether column is selected.
func (m ColumnMatcher) Match(column string) bool {
	if m.exact[column] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(column, p) {
			return true
		}
	}
	return false
}

// DistinctNames returns every distinct normalized name found in the selected
// columns across recs, sorted, along with the number of mentions of each.
func DistinctNames(recs []Record, m ColumnMatcher) ([]string, map[string]int) {
	counts := make(map[string]int)
	for _, r := range recs {
		for col, name := range r.Slots {
			if !m.Match(col) {
				continue
			}
			if n := NormalizeName(name); n != "" {
				counts[n]++
			}
		}
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, counts
}
