package distribution

import (
	"fmt"
	"math"
)

/*
Truncated restricts a distribution to [Low, High] and renormalizes its
mass within it. For discrete bases the upper bound is inclusive. Its
support is [Low, High] intersected with the support of the base.
*/
type Truncated struct {
	Base     Distribution
	Low      float64
	High     float64
	Discrete bool
}

/*
NewTruncated takes a base distribution, the support bounds (infinite when
absent) and whether the base is discrete, and returns the truncated
distribution. The bounds must delimit a non-empty range that overlaps the
base's support.
*/
func NewTruncated(base Distribution, low, high float64, discrete bool) (Distribution, error) {
	if math.IsNaN(low) || math.IsNaN(high) || !(high > low) {
		return nil, ConfigurationErrorf("truncation bounds [%v, %v] are empty", low, high)
	}
	if math.IsInf(low, -1) && math.IsInf(high, 1) {
		return base, nil
	}
	t := &Truncated{base, low, high, discrete}
	if lo, hi := t.Support(); !(hi >= lo) {
		blo, bhi := base.Support()
		return nil, ConfigurationErrorf("truncation bounds [%v, %v] miss support [%v, %v]", low, high, blo, bhi)
	}
	return t, nil
}

func (t *Truncated) upper() float64 {
	if t.Discrete && !math.IsInf(t.High, 1) {
		return math.Nextafter(t.High, math.Inf(1))
	}
	return t.High
}

/*
Mass returns the base mass of [low, high) intersected with the support,
divided by the base mass of the whole support. When the support holds no
base mass at all for the given nominal value, it returns 0.
*/
func (t *Truncated) Mass(loc, low, high float64) float64 {
	upper := t.upper()
	z := t.Base.Mass(loc, t.Low, upper)
	if z <= 0 {
		return 0
	}
	return clamp01(t.Base.Mass(loc, math.Max(low, t.Low), math.Min(high, upper)) / z)
}

func (t *Truncated) Support() (float64, float64) {
	low, high := t.Base.Support()
	return math.Max(low, t.Low), math.Min(high, t.High)
}

func (t *Truncated) Kind() Kind { return t.Base.Kind() }

func (t *Truncated) String() string {
	return fmt.Sprintf("%v in [%g, %g]", t.Base, t.Low, t.High)
}

/*
Relative scales a distribution with the nominal value: its scale
parameter is Fraction times the absolute nominal value, so a fraction of
0.1 means a 10% uncertainty. A nominal value of 0 yields a point mass.
Its support is that of the distribution built with a unit scale.
*/
type Relative struct {
	Fraction  float64
	kind      Kind
	build     func(scale float64) (Distribution, error)
	low, high float64
}

/*
NewRelative takes a non-negative fraction, the kind of the scaled
distribution and a function building it from an absolute scale, and
returns the Relative distribution. The build function is checked once
with a unit scale.
*/
func NewRelative(fraction float64, kind Kind, build func(scale float64) (Distribution, error)) (Distribution, error) {
	if err := checkScale("relative fraction", fraction); err != nil {
		return nil, err
	}
	unit, err := build(1)
	if err != nil {
		return nil, err
	}
	low, high := unit.Support()
	return &Relative{fraction, kind, build, low, high}, nil
}

func (r *Relative) at(loc float64) Distribution {
	scale := r.Fraction * math.Abs(loc)
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Delta{}
	}
	d, err := r.build(scale)
	if err != nil {
		return Delta{}
	}
	return d
}

func (r *Relative) Mass(loc, low, high float64) float64 {
	return r.at(loc).Mass(loc, low, high)
}

func (r *Relative) Support() (float64, float64) { return r.low, r.high }
func (r *Relative) Kind() Kind                  { return r.kind }

func (r *Relative) String() string {
	return fmt.Sprintf("%s(%g%%)", r.kind, r.Fraction*100)
}

/*
Frozen pins a distribution to a fixed location: the coordinate of the
query point is ignored. It models inputs that cannot be controlled, such
as ambient conditions, whose uncertainty does not depend on where the
query is made.
*/
type Frozen struct {
	Base Distribution
	Loc  float64
}

/*
NewFrozen takes a base distribution and a finite location and returns the
Frozen distribution. The location must be within the base's support.
*/
func NewFrozen(base Distribution, loc float64) (Distribution, error) {
	if math.IsNaN(loc) || math.IsInf(loc, 0) {
		return nil, ConfigurationErrorf("frozen location must be finite, got %v", loc)
	}
	if !InSupport(base, loc) {
		low, high := base.Support()
		return nil, ConfigurationErrorf("frozen location %v outside support [%v, %v]", loc, low, high)
	}
	return &Frozen{base, loc}, nil
}

func (f *Frozen) Mass(_, low, high float64) float64 {
	return f.Base.Mass(f.Loc, low, high)
}

func (f *Frozen) Support() (float64, float64) { return unbounded() }
func (f *Frozen) Kind() Kind                  { return f.Base.Kind() }
func (f *Frozen) String() string              { return fmt.Sprintf("%v at %g", f.Base, f.Loc) }
