// Package alias collapses name variants whose similarity clears a threshold
// into one canonical artist name.
//
// Variants are merged transitively: if a~b and b~c clear the threshold, a, b
// and c share a canonical name even when a~c does not. Clusters are the
// connected components of the merge-candidate graph, so the result depends
// only on the set of qualifying pairs and not on the order they arrive in.
// A first-seen-wins dictionary merge gets chains of three or more variants
// wrong, which is why components are computed explicitly.
package alias

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gilchrisn/setlist-graph/pkg/diagnostics"
	"github.com/gilchrisn/setlist-graph/pkg/records"
	"github.com/gilchrisn/setlist-graph/pkg/similarity"
)

// DefaultThreshold is the similarity a pair must strictly exceed to merge.
const DefaultThreshold = 80.0

// Rule picks the canonical member of a cluster.
type Rule string

const (
	// RuleLexicographic picks the byte-wise smallest member.
	RuleLexicographic Rule = "lexicographic"
	// RuleMostFrequent picks the member with the most mentions; ties fall
	// back to RuleLexicographic.
	RuleMostFrequent Rule = "most_frequent"
)

// Options configures a Resolver.
type Options struct {
	Threshold float64
	Rule      Rule
	Protected records.TokenSet
	// Mentions counts occurrences per name, used by RuleMostFrequent.
	Mentions map[string]int
}

// Resolver builds an alias Map from scored pairs.
type Resolver struct {
	opts   Options
	logger zerolog.Logger
}

// NewResolver validates opts and returns a resolver.
func NewResolver(opts Options, logger zerolog.Logger) (*Resolver, error) {
	if opts.Threshold < 0 || opts.Threshold > 100 {
		return nil, fmt.Errorf("%w: similarity threshold %.2f outside [0,100]",
			diagnostics.ErrInvalidConfiguration, opts.Threshold)
	}
	switch opts.Rule {
	case "":
		opts.Rule = RuleLexicographic
	case RuleLexicographic, RuleMostFrequent:
	default:
		return nil, fmt.Errorf("%w: unknown canonical rule %q", diagnostics.ErrInvalidConfiguration, opts.Rule)
	}
	return &Resolver{opts: opts, logger: logger.With().Str("component", "alias").Logger()}, nil
}

// Resolve maps every name in names, and every name mentioned by pairs, to its
// canonical representative. Pairs touching a protected token are rejected and
// recorded in report as AmbiguousMergeConflict.
func (r *Resolver) Resolve(names []string, pairs []similarity.Pair, report *diagnostics.Report) *Map {
	g := simple.NewUndirectedGraph()
	index := make(map[string]int64)
	var byID []string

	nodeFor := func(name string) int64 {
		if id, ok := index[name]; ok {
			return id
		}
		id := int64(len(byID))
		index[name] = id
		byID = append(byID, name)
		g.AddNode(simple.Node(id))
		return id
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		if name != "" {
			nodeFor(name)
		}
	}

	candidates := 0
	for _, p := range pairs {
		if p.Score <= r.opts.Threshold || p.A == p.B {
			continue
		}
		if r.opts.Protected.Contains(p.A) || r.opts.Protected.Contains(p.B) {
			if report != nil {
				report.Add(diagnostics.AmbiguousMergeConflict,
					"rejected merge of %q and %q (score %.1f): protected token", p.A, p.B, p.Score)
			}
			continue
		}
		a, b := nodeFor(p.A), nodeFor(p.B)
		g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
		candidates++
	}

	m := &Map{
		canonical: make(map[string]string, len(byID)),
		clusters:  make(map[string][]string),
	}
	merged := 0
	for _, comp := range topo.ConnectedComponents(g) {
		members := make([]string, len(comp))
		for i, n := range comp {
			members[i] = byID[n.ID()]
		}
		sort.Strings(members)
		canon := r.pick(members)
		for _, name := range members {
			m.canonical[name] = canon
		}
		m.clusters[canon] = members
		if len(members) > 1 {
			merged += len(members) - 1
			r.logger.Debug().Str("canonical", canon).Strs("variants", members).Msg("Merged alias cluster")
		}
	}

	r.logger.Info().
		Int("names", len(byID)).
		Int("merge_candidates", candidates).
		Int("canonical_names", len(m.clusters)).
		Int("merged_variants", merged).
		Float64("threshold", r.opts.Threshold).
		Msg("Alias resolution completed")

	return m
}

// pick applies the canonical rule to sorted members.
func (r *Resolver) pick(members []string) string {
	best := members[0]
	if r.opts.Rule != RuleMostFrequent {
		return best
	}
	for _, name := range members[1:] {
		if r.opts.Mentions[name] > r.opts.Mentions[best] {
			best = name
		}
	}
	return best
}
