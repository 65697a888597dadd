/*
Package distribution defines the uncertainty models that can be attached
to an input dimension and the probability mass each one assigns to a
half-open interval [low, high) of that dimension.

Every distribution is located at a nominal value supplied by the caller
on each Mass call (the coordinate of the query point on that dimension),
so a single Distribution is built once from configuration and reused
for every query.

Distributions describe a single dimension. Joint probabilities over
several dimensions are obtained by multiplying per-dimension masses,
which is only exact when the uncertainties of different dimensions are
independent. Dependent, multivariate uncertainty cannot be expressed.
*/
package distribution

import (
	"fmt"
	"math"
)

// Kind identifies the family of a distribution
type Kind string

// Supported distribution kinds
const (
	KindDelta           Kind = "delta"
	KindUniform         Kind = "uniform"
	KindNormal          Kind = "normal"
	KindGamma           Kind = "gamma"
	KindExponential     Kind = "exponential"
	KindDiscreteUniform Kind = "discrete_uniform"
	KindPoisson         Kind = "poisson"
	KindCategorical     Kind = "categorical"
)

/*
Distribution is the uncertainty model for one input dimension.

Mass takes the nominal value loc and the bounds of a half-open interval
[low, high), either of which may be infinite, and returns the probability
in [0, 1] that the perturbed value lands inside the interval. Intervals
with high <= low have zero mass.

Support returns the range of nominal values the distribution accepts
(-Inf and +Inf when unrestricted).

Implementations are immutable and safe for concurrent use.
*/
type Distribution interface {
	Mass(loc, low, high float64) float64
	Support() (float64, float64)
	Kind() Kind
}

/*
ConfigurationError is returned when distributions, weights or query
dimensions are not valid. It is always returned before any computation
takes place.
*/
type ConfigurationError struct {
	Reason string
	Err    error
}

func (ce *ConfigurationError) Error() string {
	if ce.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", ce.Reason, ce.Err)
	}
	return fmt.Sprintf("configuration error: %s", ce.Reason)
}

func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

/*
ConfigurationErrorf builds a *ConfigurationError with a formatted reason.
*/
func ConfigurationErrorf(format string, a ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, a...)}
}

/*
InSupport takes a distribution and a nominal value and returns whether the
value lies within the distribution's support (bounds included).
*/
func InSupport(d Distribution, loc float64) bool {
	low, high := d.Support()
	return low <= loc && loc <= high
}

// cdfMass returns F(high) - F(low) with the limits of F at the
// infinities enforced, clamped to [0, 1].
func cdfMass(cdf func(float64) float64, low, high float64) float64 {
	if !(high > low) {
		return 0
	}
	var fh, fl float64
	if math.IsInf(high, 1) {
		fh = 1
	} else {
		fh = cdf(high)
	}
	if !math.IsInf(low, -1) {
		fl = cdf(low)
	}
	return clamp01(fh - fl)
}

func clamp01(p float64) float64 {
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// integerRange returns the first and last integer k with low <= k < high.
// The result is empty (first > last) when no integer qualifies.
func integerRange(low, high float64) (float64, float64) {
	return math.Ceil(low), math.Ceil(high) - 1
}

func unbounded() (float64, float64) {
	return math.Inf(-1), math.Inf(1)
}
