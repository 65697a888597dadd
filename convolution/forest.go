package convolution

import (
	"errors"

	"github.com/pbanos/canopy/distribution"
	"github.com/pbanos/canopy/partition"
	"gonum.org/v1/gonum/floats"
)

/*
Combine takes the estimates of the trees of a forest and their weights
(nil for uniform weights) and returns the forest's estimate by the law of
total variance: the mean is the weighted mean of the tree means, Within is
the weighted mean of the tree variances, Between is the weighted variance
of the tree means around the forest mean, and Variance is their sum.

A *partition.StructuralError is returned for no estimates and a
*distribution.ConfigurationError for invalid weights.
*/
func Combine(estimates []*Estimate, weights []float64) (*Estimate, error) {
	if len(estimates) == 0 {
		return nil, &partition.StructuralError{Reason: "no estimates to combine"}
	}
	w, err := partition.NormalizeWeights(weights, len(estimates))
	if err != nil {
		return nil, err
	}
	means := make([]float64, len(estimates))
	variances := make([]float64, len(estimates))
	masses := make([]float64, len(estimates))
	for i, e := range estimates {
		means[i], variances[i], masses[i] = e.Mean, e.Variance, e.Mass
	}
	c := &Estimate{
		Mean:   floats.Dot(w, means),
		Within: floats.Dot(w, variances),
		Mass:   floats.Dot(w, masses),
	}
	deviations := make([]float64, len(means))
	copy(deviations, means)
	floats.AddConst(-c.Mean, deviations)
	floats.Mul(deviations, deviations)
	c.Between = floats.Dot(w, deviations)
	c.Variance = c.Within + c.Between
	return c, nil
}

/*
ConvolveForest takes a forest, a query point and one distribution per
dimension, convolves every tree and combines the estimates with the
forest's weights. A *NumericAnomaly in any tree is returned along with the
combined estimate, the first one found when several trees have it.
*/
func ConvolveForest(f *partition.Forest, x []float64, dists []distribution.Distribution, opts ...Option) (*Estimate, error) {
	if err := Check(f.Dimensions(), x, dists); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	estimates := make([]*Estimate, 0, f.Len())
	var anomaly error
	for i, idx := range f.Indexes() {
		e, err := convolve(idx, x, dists, o, i)
		var na *NumericAnomaly
		if errors.As(err, &na) {
			if anomaly == nil {
				anomaly = err
			}
		} else if err != nil {
			return nil, err
		}
		estimates = append(estimates, e)
	}
	c, err := Combine(estimates, f.Weights())
	if err != nil {
		return nil, err
	}
	if o.breakdown {
		c.Trees = estimates
	}
	return c, anomaly
}
