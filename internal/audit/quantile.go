package audit

import (
	"math"
	"sort"
)

// quantile returns the q-quantile of sorted by linear interpolation between
// closest ranks at position (n-1)q, the pandas and numpy default.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// quartiles returns Q1 and Q3 of values, ignoring missing cells
func quartiles(values []float64) (q1, q3 float64) {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	return quantile(sorted, 0.25), quantile(sorted, 0.75)
}
