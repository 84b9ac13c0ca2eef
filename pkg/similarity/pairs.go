package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/setlist-graph/pkg/diagnostics"
	"github.com/gilchrisn/setlist-graph/pkg/records"
)

// Pair is an unordered name pair with A <= B and its similarity score.
type Pair struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// NumPairs is the number of unordered pairs of n distinct items.
func NumPairs(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// rowStart is the index of pair (i, i+1) in the enumeration.
func rowStart(i, n int) int {
	return i * (2*n - i - 1) / 2
}

// PairAt maps k in [0, NumPairs(n)) to the pair (i, j), i < j, it denotes.
// Pairs are enumerated row by row: (0,1), (0,2), ..., (0,n-1), (1,2), ...
func PairAt(k, n int) (int, int) {
	m := float64(2*n - 1)
	i := int((m - math.Sqrt(m*m-8*float64(k))) / 2)
	for i > 0 && rowStart(i, n) > k {
		i--
	}
	for i+1 < n-1 && rowStart(i+1, n) <= k {
		i++
	}
	return i, i + 1 + k - rowStart(i, n)
}

// Options configures a Generator.
type Options struct {
	Scorer Scorer
	// Workers is the number of scoring goroutines; <= 0 means runtime.NumCPU.
	Workers int
	// ChunkSize is the number of consecutive pair indexes per task.
	ChunkSize int
	// Keep retains only pairs scoring strictly above this value.
	Keep float64
	// MaxNames is the distinct-name count above which a warning is raised.
	// 0 disables the check.
	MaxNames int
	// Exclude lists protected tokens that never enter candidate generation.
	Exclude records.TokenSet
}

// Result is the output of one generation run.
type Result struct {
	Names  []string `json:"-"`
	Pairs  []Pair   `json:"pairs"`
	Scored int      `json:"scored"`
}

// Generator enumerates and scores all candidate pairs.
//
// The work is O(N^2) in the number of distinct names. That is fine for a
// point-in-time corpus where distinct names are far fewer than records; past
// MaxNames a blocking index to prune candidates is the intended fix.
type Generator struct {
	opts   Options
	logger zerolog.Logger
}

// NewGenerator creates a generator.
func NewGenerator(opts Options, logger zerolog.Logger) *Generator {
	if opts.Scorer == nil {
		opts.Scorer = Ratio
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 4096
	}
	return &Generator{opts: opts, logger: logger.With().Str("component", "similarity").Logger()}
}

// Generate scores every unordered pair of distinct, non-protected names.
// The returned pairs are in enumeration order regardless of worker count.
func (g *Generator) Generate(ctx context.Context, names []string, report *diagnostics.Report) (*Result, error) {
	start := time.Now()
	candidates := g.candidates(names)
	n := len(candidates)
	total := NumPairs(n)

	if g.opts.MaxNames > 0 && n > g.opts.MaxNames && report != nil {
		report.Add(diagnostics.CandidateSpaceWarning,
			"%d distinct names exceed max_distinct_names=%d; scoring %d pairs", n, g.opts.MaxNames, total)
	}

	g.logger.Info().
		Int("names", n).
		Int("pairs", total).
		Int("workers", g.opts.Workers).
		Msg("Starting pair scoring")

	numChunks := (total + g.opts.ChunkSize - 1) / g.opts.ChunkSize
	chunks := make([][]Pair, numChunks)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for c := 0; c < numChunks; c++ {
		c := c
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			lo := c * g.opts.ChunkSize
			hi := min(lo+g.opts.ChunkSize, total)
			chunks[c] = g.scoreRange(candidates, lo, hi)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("pair scoring aborted: %w", err)
	}

	kept := 0
	for _, ch := range chunks {
		kept += len(ch)
	}
	pairs := make([]Pair, 0, kept)
	for _, ch := range chunks {
		pairs = append(pairs, ch...)
	}

	g.logger.Info().
		Int("scored", total).
		Int("kept", kept).
		Dur("elapsed", time.Since(start)).
		Msg("Pair scoring completed")

	return &Result{Names: candidates, Pairs: pairs, Scored: total}, nil
}

// candidates returns the sorted distinct names minus protected tokens.
func (g *Generator) candidates(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] || g.opts.Exclude.Contains(name) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (g *Generator) scoreRange(names []string, lo, hi int) []Pair {
	if lo >= hi {
		return nil
	}
	n := len(names)
	var out []Pair
	i, j := PairAt(lo, n)
	for k := lo; k < hi; k++ {
		if s := g.opts.Scorer.Score(names[i], names[j]); s > g.opts.Keep {
			out = append(out, Pair{A: names[i], B: names[j], Score: s})
		}
		j++
		if j == n {
			i++
			j = i + 1
		}
	}
	return out
}
