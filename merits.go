package canopy

import (
	"math"

	"github.com/pbanos/canopy/distribution"
)

// Optimization goals for Merits
const (
	GoalMin = "min"
	GoalMax = "max"
)

/*
Merits takes prediction results, the optimization goal ("min" or "max"),
a beta factor and whether to normalize, and returns the robust merit of
each result: mean + beta*std when minimizing and mean - beta*std when
maximizing, so that larger uncertainty is always penalized for positive
betas. With normalize the merits are rescaled to [0, 1] by their minimum
and maximum; when all are equal they normalize to 0.

Results with an error and no estimate get a NaN merit, which is ignored by
normalization. An unknown goal or a non-finite beta yield a
*distribution.ConfigurationError.
*/
func Merits(results []Result, goal string, beta float64, normalize bool) ([]float64, error) {
	var sign float64
	switch goal {
	case GoalMin:
		sign = 1
	case GoalMax:
		sign = -1
	default:
		return nil, distribution.ConfigurationErrorf("unknown goal %q, expected %q or %q", goal, GoalMin, GoalMax)
	}
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil, distribution.ConfigurationErrorf("beta must be finite, got %v", beta)
	}
	merits := make([]float64, len(results))
	low, high := math.Inf(1), math.Inf(-1)
	for i, r := range results {
		if r.Estimate == nil {
			merits[i] = math.NaN()
			continue
		}
		m := r.Estimate.Mean + sign*beta*r.Estimate.Std()
		merits[i] = m
		low, high = math.Min(low, m), math.Max(high, m)
	}
	if !normalize {
		return merits, nil
	}
	for i, m := range merits {
		switch {
		case math.IsNaN(m):
		case high > low:
			merits[i] = (m - low) / (high - low)
		default:
			merits[i] = 0
		}
	}
	return merits, nil
}
