// Package similarity enumerates every unordered pair of distinct artist names
// and scores how alike the two strings are on a 0-100 scale.
package similarity

import (
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/gilchrisn/setlist-graph/pkg/records"
)

// Scorer returns a similarity in [0,100] for two names. Implementations must
// be symmetric and return 100 for identical non-empty strings.
type Scorer interface {
	Score(a, b string) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(a, b string) float64

func (f ScorerFunc) Score(a, b string) float64 { return f(a, b) }

// Scorer names accepted by ByName.
const (
	ScorerRatio       = "ratio"
	ScorerLevenshtein = "levenshtein"
)

var (
	// Ratio is the indel-normalized similarity 200*LCS/(|a|+|b|), measured
	// in runes.
	Ratio Scorer = ScorerFunc(ratio)

	// Levenshtein is 100*(1 - d/max(|a|,|b|)) with unit edit costs.
	Levenshtein Scorer = ScorerFunc(levenshteinRatio)
)

// ByName resolves a configured scorer, optionally folding case before
// comparison.
func ByName(name string, caseSensitive bool) (Scorer, error) {
	var s Scorer
	switch name {
	case "", ScorerRatio:
		s = Ratio
	case ScorerLevenshtein:
		s = Levenshtein
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
	if !caseSensitive {
		s = CaseInsensitive(s)
	}
	return s, nil
}

// CaseInsensitive wraps s so both names are case-folded before scoring.
func CaseInsensitive(s Scorer) Scorer {
	return ScorerFunc(func(a, b string) float64 {
		return s.Score(records.FoldName(a), records.FoldName(b))
	})
}

func ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcsLength(ra, rb)) / float64(total)
}

// lcsLength is the longest common subsequence length using two rolling rows.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 100
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}
