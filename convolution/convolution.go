/*
Package convolution computes the expectation and variance of a tree's
output when its inputs are perturbed by uncertainty distributions, and
combines those estimates across the trees of a forest.

For a single tree the computation is exact: the tree is piecewise
constant, so the output distribution is discrete over the leaf values and
the probability of each leaf is the probability that the perturbed input
lands inside its hyper-rectangle. That probability is the product of the
per-dimension masses of the leaf's intervals. This assumes the input
dimensions are perturbed independently; correlated uncertainty across
dimensions is not modelled and will be silently treated as independent.
*/
package convolution

import (
	"fmt"
	"math"

	"github.com/pbanos/canopy/distribution"
	"github.com/pbanos/canopy/partition"
	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the largest deviation from 1 accepted for the total
// probability of the leaves of a tree
const DefaultTolerance = 1e-6

/*
Estimate is the robust estimate of the output at a query point.

Mean and Variance are the expectation and variance of the output under
the input uncertainty. Within is the part of the variance due to the
uncertainty inside each tree and Between the part due to disagreement
among the trees of a forest (0 for single trees). Mass is the total
probability of the leaves, 1 up to rounding for valid models.
Probabilities holds the probability of each leaf and Trees the estimate
of each tree of a forest; both are only kept when requested with
WithBreakdown.
*/
type Estimate struct {
	Mean          float64     `json:"mean"`
	Variance      float64     `json:"variance"`
	Within        float64     `json:"within"`
	Between       float64     `json:"between"`
	Mass          float64     `json:"mass"`
	Probabilities []float64   `json:"probabilities,omitempty"`
	Trees         []*Estimate `json:"trees,omitempty"`
}

// Std returns the standard deviation of the estimate
func (e *Estimate) Std() float64 {
	return math.Sqrt(e.Variance)
}

/*
NumericAnomaly is returned, together with the estimate, when the
probabilities of the leaves of a tree do not add up to 1 within the
tolerance. It points at a malformed partition or a distribution bug, so the
estimate is not renormalized.
*/
type NumericAnomaly struct {
	Mass      float64
	Tolerance float64
	// Tree is the number of the offending tree in a forest, 0 for single trees
	Tree int
}

func (na *NumericAnomaly) Error() string {
	return fmt.Sprintf("numeric anomaly: leaf probabilities of tree %d add up to %v (tolerance %v)", na.Tree, na.Mass, na.Tolerance)
}

type options struct {
	tolerance float64
	breakdown bool
}

// Option configures Convolve and ConvolveForest
type Option func(*options)

// WithTolerance sets the accepted deviation of the total leaf probability from 1
func WithTolerance(t float64) Option {
	return func(o *options) {
		o.tolerance = t
	}
}

// WithBreakdown keeps the per-leaf probabilities and per-tree estimates
func WithBreakdown() Option {
	return func(o *options) {
		o.breakdown = true
	}
}

func newOptions(opts []Option) *options {
	o := &options{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

/*
Check takes the number of dimensions of a model, a query point and its
distributions and returns a *distribution.ConfigurationError if the point
or the distributions do not have one entry per dimension, a distribution is
missing, a coordinate is NaN or falls outside its distribution's support.
*/
func Check(dims int, x []float64, dists []distribution.Distribution) error {
	if len(x) != dims {
		return distribution.ConfigurationErrorf("point has %d coordinates, model has %d features", len(x), dims)
	}
	if len(dists) != dims {
		return distribution.ConfigurationErrorf("%d distributions given, model has %d features", len(dists), dims)
	}
	for d, dist := range dists {
		if dist == nil {
			return distribution.ConfigurationErrorf("no distribution for dimension %d", d)
		}
		if math.IsNaN(x[d]) {
			return distribution.ConfigurationErrorf("coordinate %d is NaN", d)
		}
		if !distribution.InSupport(dist, x[d]) {
			low, high := dist.Support()
			return distribution.ConfigurationErrorf("coordinate %d is %v, outside its distribution support [%v, %v]", d, x[d], low, high)
		}
	}
	return nil
}

/*
Convolve takes the index of a tree, a query point and one distribution per
dimension and returns the estimate of the tree's output at the point.

A *distribution.ConfigurationError is returned when the point or the
distributions do not match the index. When the leaf probabilities do not
add up to 1 within the tolerance the estimate is returned along with a
*NumericAnomaly.
*/
func Convolve(idx *partition.Index, x []float64, dists []distribution.Distribution, opts ...Option) (*Estimate, error) {
	if err := Check(idx.Dimensions(), x, dists); err != nil {
		return nil, err
	}
	return convolve(idx, x, dists, newOptions(opts), 0)
}

func convolve(idx *partition.Index, x []float64, dists []distribution.Distribution, o *options, tree int) (*Estimate, error) {
	leaves := idx.Leaves()
	p := make([]float64, len(leaves))
	for i := range p {
		p[i] = 1
	}
	m := make([]float64, len(leaves))
	for d, dist := range dists {
		constrained := false
		for i := range leaves {
			low, high := leaves[i].Low[d], leaves[i].High[d]
			if math.IsInf(low, -1) && math.IsInf(high, 1) {
				m[i] = 1
				continue
			}
			constrained = true
			m[i] = dist.Mass(x[d], low, high)
		}
		if constrained {
			floats.Mul(p, m)
		}
	}
	est := &Estimate{Mass: floats.Sum(p)}
	est.Mean = floats.Dot(p, idx.Values())
	// centred second moment, m is free scratch from here on
	copy(m, idx.Values())
	floats.AddConst(-est.Mean, m)
	floats.Mul(m, m)
	est.Variance = math.Max(0, floats.Dot(p, m))
	est.Within = est.Variance
	if o.breakdown {
		est.Probabilities = p
	}
	if !(math.Abs(est.Mass-1) <= o.tolerance) {
		return est, &NumericAnomaly{Mass: est.Mass, Tolerance: o.tolerance, Tree: tree}
	}
	return est, nil
}
