// Package pipeline runs one batch over a corpus of records:
// normalize, generate and score candidate pairs, resolve aliases, build the
// collaboration graph, detect communities.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/setlist-graph/pkg/alias"
	"github.com/gilchrisn/setlist-graph/pkg/collab"
	"github.com/gilchrisn/setlist-graph/pkg/config"
	"github.com/gilchrisn/setlist-graph/pkg/diagnostics"
	"github.com/gilchrisn/setlist-graph/pkg/metrics"
	"github.com/gilchrisn/setlist-graph/pkg/records"
	"github.com/gilchrisn/setlist-graph/pkg/similarity"
)

// HistogramBins is the number of buckets in the similarity histogram.
const HistogramBins = 10

// Phase names as they appear in the report and the phase duration metric.
const (
	PhaseNormalize = "normalize"
	PhaseScore     = "score"
	PhaseResolve   = "resolve"
	PhaseBuild     = "build_graph"
	PhaseDetect    = "detect_communities"
)

// Pipeline holds the validated configuration for batch runs.
type Pipeline struct {
	cfg     *config.Config
	scorer  similarity.Scorer
	columns records.ColumnMatcher
	protect records.TokenSet
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Result is everything one run produces.
type Result struct {
	// Records are the normalized records that passed validation.
	Records []records.Record
	// Names are the distinct names found in contributing columns.
	Names    []string
	Mentions map[string]int

	PairsScored int
	// Similar holds pairs above the diagnostic lower bound, best first.
	Similar   []similarity.Pair
	Histogram []similarity.Bin

	Aliases   *alias.Map
	Graph     *collab.Graph
	Partition *collab.Partition

	Report *diagnostics.Report

	// pairs kept above min(threshold, lower bound), in enumeration order
	pairs []similarity.Pair
}

// New validates cfg and prepares a pipeline. m may be nil.
func New(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scorer, err := similarity.ByName(cfg.Scorer, cfg.CaseSensitive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", diagnostics.ErrInvalidConfiguration, err)
	}
	if _, err := alias.NewResolver(alias.Options{
		Threshold: cfg.SimilarityThreshold,
		Rule:      alias.Rule(cfg.CanonicalRule),
	}, logger); err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:     cfg,
		scorer:  scorer,
		columns: records.NewColumnMatcher(cfg.ContributingRoleColumns),
		protect: records.NewTokenSet(cfg.ProtectedTokens),
		logger:  logger.With().Str("component", "pipeline").Logger(),
		metrics: m,
	}, nil
}

// Run executes every phase over recs.
func (p *Pipeline) Run(ctx context.Context, recs []records.Record) (*Result, error) {
	start := time.Now()
	res, err := p.score(ctx, recs)
	if err != nil {
		return nil, err
	}

	var resolveErr error
	p.phase(res.Report, PhaseResolve, func() {
		var resolver *alias.Resolver
		resolver, resolveErr = alias.NewResolver(alias.Options{
			Threshold: p.cfg.SimilarityThreshold,
			Rule:      alias.Rule(p.cfg.CanonicalRule),
			Protected: p.protect,
			Mentions:  res.Mentions,
		}, p.logger)
		if resolveErr == nil {
			res.Aliases = resolver.Resolve(res.Names, res.pairs, res.Report)
		}
	})
	if resolveErr != nil {
		return nil, resolveErr
	}

	p.phase(res.Report, PhaseBuild, func() {
		builder := collab.NewBuilder(collab.Options{Columns: p.columns, Protected: p.protect}, p.logger)
		res.Graph = builder.Build(res.Records, res.Aliases)
		if p.cfg.MinEdgeWeight > 1 {
			res.Graph = res.Graph.Filter(p.cfg.MinEdgeWeight)
		}
	})

	var detectErr error
	p.phase(res.Report, PhaseDetect, func() {
		lc := p.cfg.LouvainAlgorithm(p.logger)
		if path := p.cfg.Louvain.MovesFile; path != "" {
			f, err := os.Create(path)
			if err != nil {
				detectErr = fmt.Errorf("failed to open moves file: %w", err)
				return
			}
			defer f.Close()
			lc.TrackMoves(f)
		}
		res.Partition, detectErr = collab.DetectCommunities(ctx, res.Graph, lc)
	})
	if detectErr != nil {
		return nil, detectErr
	}

	merged := 0
	for _, row := range res.Aliases.Table() {
		if row.Variant != row.Canonical {
			merged++
		}
	}
	res.Report.SetStat("variants_merged", float64(merged))
	res.Report.SetStat("graph_nodes", float64(res.Graph.NumNodes()))
	res.Report.SetStat("graph_edges", float64(res.Graph.NumEdges()))
	res.Report.SetStat("communities", float64(len(res.Partition.Communities)))
	res.Report.SetStat("modularity", res.Partition.Modularity)

	if p.metrics != nil {
		p.metrics.VariantsMerged.Add(float64(merged))
		p.metrics.GraphNodes.Set(float64(res.Graph.NumNodes()))
		p.metrics.GraphEdges.Set(float64(res.Graph.NumEdges()))
		p.metrics.Communities.Set(float64(len(res.Partition.Communities)))
		p.metrics.Modularity.Set(res.Partition.Modularity)
	}
	p.countFindings(res.Report)

	p.logger.Info().
		Int("records", len(res.Records)).
		Int("names", len(res.Names)).
		Int("canonical_names", len(res.Aliases.Canonicals())).
		Int("nodes", res.Graph.NumNodes()).
		Int("edges", res.Graph.NumEdges()).
		Int("communities", len(res.Partition.Communities)).
		Float64("modularity", res.Partition.Modularity).
		Dur("elapsed", time.Since(start)).
		Msg("Pipeline completed")
	res.Report.Summary()

	return res, nil
}

// Score runs normalization and pair scoring only. The result carries the
// similarity diagnostics but no aliases, graph or partition.
func (p *Pipeline) Score(ctx context.Context, recs []records.Record) (*Result, error) {
	res, err := p.score(ctx, recs)
	if err != nil {
		return nil, err
	}
	p.countFindings(res.Report)
	res.Report.Summary()
	return res, nil
}

func (p *Pipeline) score(ctx context.Context, recs []records.Record) (*Result, error) {
	report := diagnostics.NewReport(p.logger)
	res := &Result{Report: report}
	if p.metrics != nil {
		p.metrics.RecordsLoaded.Add(float64(len(recs)))
	}

	p.phase(report, PhaseNormalize, func() {
		res.Records = p.normalize(recs, report)
		res.Names, res.Mentions = records.DistinctNames(res.Records, p.columns)
	})

	candidates := 0
	for _, n := range res.Names {
		if !p.protect.Contains(n) {
			candidates++
		}
	}
	if candidates == 0 {
		p.countFindings(report)
		return nil, fmt.Errorf("%w: no performer names in %d records (%d valid)",
			diagnostics.ErrEmptyCorpus, len(recs), len(res.Records))
	}

	var scoreErr error
	p.phase(report, PhaseScore, func() {
		gen := similarity.NewGenerator(similarity.Options{
			Scorer:   p.scorer,
			Workers:  p.cfg.Workers,
			Keep:     p.cfg.Keep(),
			MaxNames: p.cfg.MaxDistinctNames,
			Exclude:  p.protect,
		}, p.logger)
		var scored *similarity.Result
		scored, scoreErr = gen.Generate(ctx, res.Names, report)
		if scoreErr != nil {
			return
		}
		res.pairs = scored.Pairs
		res.PairsScored = scored.Scored
		res.Similar = similarity.Above(scored.Pairs, p.cfg.DiagnosticLowerBound)
		res.Histogram = similarity.Histogram(scored.Pairs, p.cfg.DiagnosticLowerBound, HistogramBins)
	})
	if scoreErr != nil {
		return nil, scoreErr
	}

	report.SetStat("records_valid", float64(len(res.Records)))
	report.SetStat("distinct_names", float64(len(res.Names)))
	report.SetStat("pairs_scored", float64(res.PairsScored))
	if p.metrics != nil {
		p.metrics.DistinctNames.Set(float64(candidates))
		p.metrics.PairsScored.Add(float64(res.PairsScored))
		p.metrics.PairsKept.Add(float64(len(res.pairs)))
	}
	return res, nil
}

func (p *Pipeline) normalize(recs []records.Record, report *diagnostics.Report) []records.Record {
	valid := make([]records.Record, 0, len(recs))
	for _, r := range recs {
		if p.cfg.SplitCollaborations {
			r = records.SplitCollaborations(r)
		}
		if p.cfg.ExtractRemixers {
			r = records.ExtractRemixers(r)
		}
		r = records.Normalize(r)
		if reason := r.Malformed(); reason != "" {
			report.Add(diagnostics.MalformedRecord, "record %s skipped: %s", r.ID, reason)
			continue
		}
		valid = append(valid, r)
	}
	return valid
}

func (p *Pipeline) phase(report *diagnostics.Report, name string, fn func()) {
	start := time.Now()
	fn()
	d := time.Since(start)
	report.Phase(name, d)
	p.metrics.ObservePhase(name, d)
}

func (p *Pipeline) countFindings(report *diagnostics.Report) {
	if p.metrics == nil {
		return
	}
	for _, k := range report.Kinds() {
		p.metrics.Findings.WithLabelValues(string(k)).Add(float64(report.Count(k)))
	}
}
