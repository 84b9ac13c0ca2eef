package similarity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Above returns the pairs scoring strictly above bound, highest first. This
// is the table used to calibrate the merge threshold by eye.
func Above(pairs []Pair, bound float64) []Pair {
	out := make([]Pair, 0)
	for _, p := range pairs {
		if p.Score > bound {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Bin is one histogram bucket [Low, High).
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Histogram buckets the scores of pairs above bound into equal-width bins
// spanning (bound, 100].
func Histogram(pairs []Pair, bound float64, bins int) []Bin {
	if bins <= 0 {
		bins = 1
	}
	bound = math.Max(0, math.Min(bound, 100))

	scores := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		if p.Score > bound {
			scores = append(scores, p.Score)
		}
	}
	sort.Float64s(scores)

	width := (100 - bound) / float64(bins)
	dividers := make([]float64, bins+1)
	for i := range dividers {
		dividers[i] = bound + float64(i)*width
	}
	// The top edge is exclusive in stat.Histogram; nudge it so 100 lands in
	// the last bin.
	dividers[bins] = math.Nextafter(100, math.Inf(1))

	out := make([]Bin, bins)
	var counts []float64
	if len(scores) > 0 {
		counts = stat.Histogram(nil, dividers, scores, nil)
	}
	for i := range out {
		out[i] = Bin{Low: dividers[i], High: math.Min(dividers[i+1], 100)}
		if counts != nil {
			out[i].Count = int(counts[i])
		}
	}
	return out
}
