package similarity

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/setlist-graph/pkg/diagnostics"
	"github.com/gilchrisn/setlist-graph/pkg/records"
)

func TestRatioKnownValues(t *testing.T) {
	assert.InDelta(t, 100.0, Ratio.Score("Four Tet", "Four Tet"), 1e-9)
	// LCS("abc","abd") = 2 -> 200*2/6
	assert.InDelta(t, 66.6666, Ratio.Score("abc", "abd"), 1e-3)
	assert.InDelta(t, 0.0, Ratio.Score("abc", "xyz"), 1e-9)
	// AZtek vs Aztek: LCS 4 of 10 runes
	assert.InDelta(t, 80.0, Ratio.Score("AZtek", "Aztek"), 1e-9)
	assert.InDelta(t, 100.0, Ratio.Score("", ""), 1e-9)
}

func TestLevenshteinKnownValues(t *testing.T) {
	assert.InDelta(t, 100.0, Levenshtein.Score("Bicep", "Bicep"), 1e-9)
	assert.InDelta(t, 80.0, Levenshtein.Score("AZtek", "Aztek"), 1e-9)
	assert.InDelta(t, 0.0, Levenshtein.Score("ab", "cd"), 1e-9)
	assert.InDelta(t, 75.0, Levenshtein.Score("Røda", "Roda"), 1e-9)
}

func TestByName(t *testing.T) {
	s, err := ByName("ratio", true)
	require.NoError(t, err)
	assert.Less(t, s.Score("AZtek", "Aztek"), 100.0)

	s, err = ByName("levenshtein", false)
	require.NoError(t, err)
	assert.Equal(t, 100.0, s.Score("AZtek", "Aztek"))

	_, err = ByName("jaro", true)
	assert.Error(t, err)
}

func TestScorerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	for _, sc := range []struct {
		name string
		s    Scorer
	}{
		{"ratio", Ratio},
		{"levenshtein", Levenshtein},
		{"ratio-folded", CaseInsensitive(Ratio)},
	} {
		s := sc.s
		properties.Property(sc.name+" is symmetric", prop.ForAll(
			func(a, b string) bool {
				return s.Score(a, b) == s.Score(b, a)
			},
			gen.AnyString(),
			gen.AnyString(),
		))
		properties.Property(sc.name+" scores identical strings 100", prop.ForAll(
			func(a string) bool {
				return s.Score(a, a) == 100
			},
			gen.AlphaString().SuchThat(func(v string) bool { return v != "" }),
		))
		properties.Property(sc.name+" stays within [0,100]", prop.ForAll(
			func(a, b string) bool {
				v := s.Score(a, b)
				return v >= 0 && v <= 100
			},
			gen.AnyString(),
			gen.AnyString(),
		))
	}

	properties.TestingRun(t)
}

func TestPairAtEnumeratesEveryPairOnce(t *testing.T) {
	for _, n := range []int{2, 3, 7, 50, 301} {
		seen := make(map[[2]int]bool)
		for k := 0; k < NumPairs(n); k++ {
			i, j := PairAt(k, n)
			require.True(t, i < j && j < n, "n=%d k=%d gave (%d,%d)", n, k, i, j)
			require.False(t, seen[[2]int{i, j}], "n=%d duplicate (%d,%d)", n, i, j)
			seen[[2]int{i, j}] = true
		}
		assert.Len(t, seen, n*(n-1)/2)
	}
	assert.Equal(t, 0, NumPairs(1))
	assert.Equal(t, 0, NumPairs(0))
}

func testNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("artist %03d", (i*37)%n)
	}
	return names
}

func TestGenerateParallelMatchesSequential(t *testing.T) {
	names := testNames(120)
	seq := NewGenerator(Options{Workers: 1, ChunkSize: 1 << 20, Keep: -1}, zerolog.Nop())
	par := NewGenerator(Options{Workers: 8, ChunkSize: 97, Keep: -1}, zerolog.Nop())

	a, err := seq.Generate(context.Background(), names, nil)
	require.NoError(t, err)
	b, err := par.Generate(context.Background(), names, nil)
	require.NoError(t, err)

	assert.Equal(t, NumPairs(120), a.Scored)
	assert.Len(t, a.Pairs, NumPairs(120))
	assert.Equal(t, a.Pairs, b.Pairs)
	for _, p := range a.Pairs {
		assert.Less(t, p.A, p.B)
	}
}

func TestGenerateKeepAndExclude(t *testing.T) {
	names := []string{"Aztek", "AZtek", "Az-tek", "ID", "Four Tet", "Aztek"}
	g := NewGenerator(Options{
		Keep:    65,
		Exclude: records.NewTokenSet([]string{"id"}),
	}, zerolog.Nop())

	res, err := g.Generate(context.Background(), names, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZtek", "Az-tek", "Aztek", "Four Tet"}, res.Names)
	assert.Equal(t, 6, res.Scored)
	for _, p := range res.Pairs {
		assert.Greater(t, p.Score, 65.0)
		assert.NotEqual(t, "ID", p.A)
		assert.NotEqual(t, "ID", p.B)
	}
}

func TestGenerateWarnsOnLargeCandidateSpace(t *testing.T) {
	report := diagnostics.NewReport(zerolog.Nop())
	g := NewGenerator(Options{MaxNames: 3, Keep: 100}, zerolog.Nop())
	_, err := g.Generate(context.Background(), testNames(10), report)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(diagnostics.CandidateSpaceWarning))
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGenerator(Options{Workers: 2, ChunkSize: 5}, zerolog.Nop())
	_, err := g.Generate(ctx, testNames(20), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAboveAndHistogram(t *testing.T) {
	pairs := []Pair{
		{A: "a", B: "b", Score: 64},
		{A: "a", B: "c", Score: 70},
		{A: "b", B: "c", Score: 100},
		{A: "c", B: "d", Score: 90},
	}
	above := Above(pairs, 65)
	require.Len(t, above, 3)
	assert.Equal(t, 100.0, above[0].Score)
	assert.Equal(t, 70.0, above[2].Score)

	bins := Histogram(pairs, 60, 4)
	require.Len(t, bins, 4)
	counts := []int{bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count}
	assert.Equal(t, []int{1, 1, 0, 2}, counts)
	assert.Equal(t, 60.0, bins[0].Low)
	assert.Equal(t, 100.0, bins[3].High)

	empty := Histogram(nil, 65, 7)
	assert.Len(t, empty, 7)
}
