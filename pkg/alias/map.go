package alias

import "sort"

// Map sends every observed variant to its canonical name. Canonical names
// map to themselves, so applying the map twice changes nothing.
type Map struct {
	canonical map[string]string
	clusters  map[string][]string
}

// Row is one line of the flat variant -> canonical table.
type Row struct {
	Variant   string `json:"variant"`
	Canonical string `json:"canonical"`
}

// NewMap builds a map from explicit variant -> canonical entries. Every
// canonical name is added as its own variant. Chains are not followed, so
// entries must already point at final canonical names.
func NewMap(entries map[string]string) *Map {
	m := &Map{canonical: make(map[string]string), clusters: make(map[string][]string)}
	for variant, canon := range entries {
		m.canonical[variant] = canon
		m.canonical[canon] = canon
	}
	for variant, canon := range m.canonical {
		m.clusters[canon] = append(m.clusters[canon], variant)
	}
	for _, members := range m.clusters {
		sort.Strings(members)
	}
	return m
}

// Resolve returns the canonical name for name. Unknown names resolve to
// themselves.
func (m *Map) Resolve(name string) string {
	if m == nil {
		return name
	}
	if c, ok := m.canonical[name]; ok {
		return c
	}
	return name
}

// Len is the number of variants known to the map.
func (m *Map) Len() int {
	return len(m.canonical)
}

// Canonicals returns the sorted canonical names.
func (m *Map) Canonicals() []string {
	out := make([]string, 0, len(m.clusters))
	for c := range m.clusters {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Cluster returns the sorted variants that resolve to canonical.
func (m *Map) Cluster(canonical string) []string {
	return append([]string(nil), m.clusters[canonical]...)
}

// Table returns the flat variant -> canonical table sorted by variant.
func (m *Map) Table() []Row {
	rows := make([]Row, 0, len(m.canonical))
	for v, c := range m.canonical {
		rows = append(rows, Row{Variant: v, Canonical: c})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Variant < rows[j].Variant })
	return rows
}
