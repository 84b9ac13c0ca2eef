// Package collab derives the artist collaboration graph from alias-resolved
// records and annotates it with a community partition.
package collab

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/setlist-graph/pkg/alias"
	"github.com/gilchrisn/setlist-graph/pkg/records"
)

// Contribution is the provenance of one edge occurrence: the record that put
// both artists on the same track and the columns they appeared in.
type Contribution struct {
	RecordID  string    `json:"record_id"`
	TrackName string    `json:"track_name"`
	Date      string    `json:"date,omitempty"`
	Genre     string    `json:"genre,omitempty"`
	Columns   [2]string `json:"columns"`
}

// Edge is an undirected collaboration between canonical names A < B.
type Edge struct {
	A             string         `json:"a"`
	B             string         `json:"b"`
	Contributions []Contribution `json:"contributions"`
}

// Weight is the number of contributing records.
func (e *Edge) Weight() int {
	return len(e.Contributions)
}

// RecordIDs lists the contributing record ids in contribution order.
func (e *Edge) RecordIDs() []string {
	ids := make([]string, len(e.Contributions))
	for i, c := range e.Contributions {
		ids[i] = c.RecordID
	}
	return ids
}

type edgeKey [2]string

func keyFor(a, b string) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Graph is a simple undirected collaboration graph. It is not modified after
// Build returns.
type Graph struct {
	nodes []string
	edges []*Edge
	index map[edgeKey]*Edge
}

// Nodes returns the sorted canonical names that appear in at least one edge.
func (g *Graph) Nodes() []string { return g.nodes }

// Edges returns the edges sorted by (A, B).
func (g *Graph) Edges() []*Edge { return g.edges }

// NumNodes is the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges is the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Edge looks up the edge between a and b in either order.
func (g *Graph) Edge(a, b string) (*Edge, bool) {
	e, ok := g.index[keyFor(a, b)]
	return e, ok
}

// Filter returns a new graph keeping only edges with at least
// minContributions contributions. Nodes left without edges are dropped.
func (g *Graph) Filter(minContributions int) *Graph {
	kept := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.Weight() >= minContributions {
			kept = append(kept, e)
		}
	}
	return newGraph(kept)
}

func newGraph(edges []*Edge) *Graph {
	g := &Graph{
		edges: edges,
		index: make(map[edgeKey]*Edge, len(edges)),
	}
	seen := make(map[string]bool)
	for _, e := range edges {
		g.index[edgeKey{e.A, e.B}] = e
		for _, n := range []string{e.A, e.B} {
			if !seen[n] {
				seen[n] = true
				g.nodes = append(g.nodes, n)
			}
		}
	}
	sort.Strings(g.nodes)
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].A != g.edges[j].A {
			return g.edges[i].A < g.edges[j].A
		}
		return g.edges[i].B < g.edges[j].B
	})
	return g
}

// Options configures a Builder.
type Options struct {
	// Columns selects the contributing performer columns.
	Columns records.ColumnMatcher
	// Protected names are treated as null slots.
	Protected records.TokenSet
}

// Builder turns records into a collaboration graph.
type Builder struct {
	opts   Options
	logger zerolog.Logger
}

// NewBuilder creates a builder.
func NewBuilder(opts Options, logger zerolog.Logger) *Builder {
	return &Builder{opts: opts, logger: logger.With().Str("component", "collab").Logger()}
}

type mention struct {
	name   string
	column string
}

// Build resolves every contributing slot through aliases and links each
// unordered pair of distinct canonical names in a record. Repeated pairs
// append provenance to the existing edge; slots that collapse to the same
// canonical name never form a self-loop.
func (b *Builder) Build(recs []records.Record, aliases *alias.Map) *Graph {
	index := make(map[edgeKey]*Edge)
	var edges []*Edge

	for _, r := range recs {
		mentions := b.mentions(r, aliases)
		for i := 0; i < len(mentions); i++ {
			for j := i + 1; j < len(mentions); j++ {
				m1, m2 := mentions[i], mentions[j]
				if m1.name > m2.name {
					m1, m2 = m2, m1
				}
				key := edgeKey{m1.name, m2.name}
				e, ok := index[key]
				if !ok {
					e = &Edge{A: m1.name, B: m2.name}
					index[key] = e
					edges = append(edges, e)
				}
				e.Contributions = append(e.Contributions, Contribution{
					RecordID:  r.ID,
					TrackName: r.TrackName,
					Date:      r.Date,
					Genre:     r.Genre,
					Columns:   [2]string{m1.column, m2.column},
				})
			}
		}
	}

	g := newGraph(edges)
	b.logger.Info().
		Int("records", len(recs)).
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Msg("Collaboration graph built")
	return g
}

// mentions returns the distinct canonical names in r's contributing columns,
// each with the first column (in sorted column order) it appeared in.
func (b *Builder) mentions(r records.Record, aliases *alias.Map) []mention {
	var out []mention
	seen := make(map[string]bool)
	for _, col := range r.Columns() {
		if !b.opts.Columns.Match(col) {
			continue
		}
		name := records.NormalizeName(r.Slots[col])
		if name == "" || b.opts.Protected.Contains(name) {
			continue
		}
		canon := aliases.Resolve(name)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, mention{name: canon, column: col})
	}
	return out
}
