package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

/*
DiscreteUniform spreads its mass evenly over the integers in
[round(loc) - HalfWidth, round(loc) + HalfWidth].
*/
type DiscreteUniform struct {
	HalfWidth int
}

/*
NewDiscreteUniform takes a non-negative integer half width and returns a
DiscreteUniform distribution.
*/
func NewDiscreteUniform(halfWidth int) (Distribution, error) {
	if halfWidth < 0 {
		return nil, ConfigurationErrorf("half width must not be negative, got %d", halfWidth)
	}
	return DiscreteUniform{halfWidth}, nil
}

func (du DiscreteUniform) Mass(loc, low, high float64) float64 {
	c := math.Round(loc)
	h := float64(du.HalfWidth)
	first, last := integerRange(low, high)
	first = math.Max(first, c-h)
	last = math.Min(last, c+h)
	if last < first {
		return 0
	}
	return clamp01((last - first + 1) / (2*h + 1))
}

func (du DiscreteUniform) Support() (float64, float64) { return unbounded() }
func (du DiscreteUniform) Kind() Kind                  { return KindDiscreteUniform }
func (du DiscreteUniform) String() string              { return fmt.Sprintf("discrete_uniform(±%d)", du.HalfWidth) }

/*
Poisson models a count that cannot go below Bound: the distance from
Bound is Poisson distributed with mean loc - Bound.
*/
type Poisson struct {
	Bound float64
}

/*
NewPoisson takes a finite lower bound and returns a Poisson distribution
anchored on it.
*/
func NewPoisson(bound float64) (Distribution, error) {
	if math.IsInf(bound, 0) || math.IsNaN(bound) {
		return nil, ConfigurationErrorf("poisson distribution requires a finite lower bound, got %v", bound)
	}
	return Poisson{bound}, nil
}

func (p Poisson) Mass(loc, low, high float64) float64 {
	if !(high > low) {
		return 0
	}
	lambda := loc - p.Bound
	first, last := integerRange(low-p.Bound, high-p.Bound)
	first = math.Max(first, 0)
	if last < first {
		return 0
	}
	if lambda <= 0 {
		// all the mass sits on the bound itself
		if first == 0 {
			return 1
		}
		return 0
	}
	d := distuv.Poisson{Lambda: lambda}
	var upper, lower float64
	if math.IsInf(last, 1) {
		upper = 1
	} else {
		upper = d.CDF(last)
	}
	if first > 0 {
		lower = d.CDF(first - 1)
	}
	return clamp01(upper - lower)
}

func (p Poisson) Support() (float64, float64) { return p.Bound, math.Inf(1) }
func (p Poisson) Kind() Kind                  { return KindPoisson }
func (p Poisson) String() string              { return fmt.Sprintf("poisson(x>=%g)", p.Bound) }

/*
Categorical models an ordinal-coded categorical input with categories
0, 1, ... Categories-1. The nominal category keeps probability 1 - Unc
and each of the others gets Unc / (Categories - 1).
*/
type Categorical struct {
	Categories int
	Unc        float64
}

/*
NewCategorical takes the number of categories (at least 2) and the
probability in [0, 1] of the value being any category but the nominal
one, and returns a Categorical distribution.
*/
func NewCategorical(categories int, unc float64) (Distribution, error) {
	if categories < 2 {
		return nil, ConfigurationErrorf("categorical distribution requires at least 2 categories, got %d", categories)
	}
	if !(unc >= 0 && unc <= 1) {
		return nil, ConfigurationErrorf("categorical uncertainty must be in [0, 1], got %v", unc)
	}
	return Categorical{categories, unc}, nil
}

func (c Categorical) Mass(loc, low, high float64) float64 {
	first, last := integerRange(low, high)
	first = math.Max(first, 0)
	last = math.Min(last, float64(c.Categories-1))
	if last < first {
		return 0
	}
	other := c.Unc / float64(c.Categories-1)
	mass := (last - first + 1) * other
	nominal := math.Round(loc)
	if first <= nominal && nominal <= last {
		mass += 1 - c.Unc - other
	}
	return clamp01(mass)
}

func (c Categorical) Support() (float64, float64) { return 0, float64(c.Categories - 1) }
func (c Categorical) Kind() Kind                  { return KindCategorical }

func (c Categorical) String() string {
	return fmt.Sprintf("categorical(n=%d, unc=%g)", c.Categories, c.Unc)
}
