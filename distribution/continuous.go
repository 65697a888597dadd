package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

/*
Delta is the point mass: the distribution of a dimension with no
uncertainty. All of its mass lies on the nominal value.
*/
type Delta struct{}

// Mass returns 1 if low <= loc < high and 0 otherwise. An infinite nominal
// value belongs to the interval that extends to that infinity.
func (Delta) Mass(loc, low, high float64) float64 {
	if !(high > low) {
		return 0
	}
	if (low <= loc || math.IsInf(low, -1)) && (loc < high || math.IsInf(high, 1)) {
		return 1
	}
	return 0
}

func (Delta) Support() (float64, float64) { return unbounded() }
func (Delta) Kind() Kind                  { return KindDelta }
func (Delta) String() string              { return "delta" }

/*
Uniform spreads its mass evenly over [loc - HalfWidth, loc + HalfWidth].
*/
type Uniform struct {
	HalfWidth float64
}

/*
NewUniform takes a half width and returns a uniform distribution, or a
Delta if the half width is 0. Negative or non-finite half widths yield a
*ConfigurationError.
*/
func NewUniform(halfWidth float64) (Distribution, error) {
	if err := checkScale("half width", halfWidth); err != nil {
		return nil, err
	}
	if halfWidth == 0 {
		return Delta{}, nil
	}
	return Uniform{halfWidth}, nil
}

func (u Uniform) Mass(loc, low, high float64) float64 {
	d := distuv.Uniform{Min: loc - u.HalfWidth, Max: loc + u.HalfWidth}
	return cdfMass(d.CDF, low, high)
}

func (u Uniform) Support() (float64, float64) { return unbounded() }
func (u Uniform) Kind() Kind                  { return KindUniform }
func (u Uniform) String() string              { return fmt.Sprintf("uniform(±%g)", u.HalfWidth) }

/*
Normal is a gaussian centred on the nominal value with standard
deviation Std.
*/
type Normal struct {
	Std float64
}

/*
NewNormal takes a standard deviation and returns a normal distribution,
or a Delta if it is 0. Negative or non-finite values yield a
*ConfigurationError.
*/
func NewNormal(std float64) (Distribution, error) {
	if err := checkScale("standard deviation", std); err != nil {
		return nil, err
	}
	if std == 0 {
		return Delta{}, nil
	}
	return Normal{std}, nil
}

func (n Normal) Mass(loc, low, high float64) float64 {
	d := distuv.Normal{Mu: loc, Sigma: n.Std}
	return cdfMass(d.CDF, low, high)
}

func (n Normal) Support() (float64, float64) { return unbounded() }
func (n Normal) Kind() Kind                  { return KindNormal }
func (n Normal) String() string              { return fmt.Sprintf("normal(σ=%g)", n.Std) }

/*
Gamma models a variable that cannot cross Bound. Its mode is the nominal
value and its standard deviation is Std. When Upper is false the variable
lives above Bound; when true it is mirrored and lives below it.
*/
type Gamma struct {
	Std   float64
	Bound float64
	Upper bool
}

/*
NewGamma takes a standard deviation, a bound and whether the bound is an
upper one, and returns a Gamma distribution. The standard deviation must
be positive and the bound finite.
*/
func NewGamma(std, bound float64, upper bool) (Distribution, error) {
	if err := checkScale("standard deviation", std); err != nil {
		return nil, err
	}
	if std == 0 {
		return nil, ConfigurationErrorf("gamma distribution requires a positive standard deviation")
	}
	if math.IsInf(bound, 0) || math.IsNaN(bound) {
		return nil, ConfigurationErrorf("gamma distribution requires a finite bound, got %v", bound)
	}
	return Gamma{std, bound, upper}, nil
}

// shape returns the gamma distribution of the distance to the bound for
// the given nominal value: mode at the nominal distance, variance Std².
func (g Gamma) shape(loc float64) distuv.Gamma {
	m := loc - g.Bound
	if g.Upper {
		m = g.Bound - loc
	}
	if m < 0 {
		m = 0
	}
	v := g.Std * g.Std
	theta := (math.Sqrt(m*m+4*v) - m) / 2
	k := m/theta + 1
	return distuv.Gamma{Alpha: k, Beta: 1 / theta}
}

func (g Gamma) Mass(loc, low, high float64) float64 {
	if !(high > low) {
		return 0
	}
	d := g.shape(loc)
	if g.Upper {
		// X in [low, high) <=> Bound - X in (Bound - high, Bound - low]
		return cdfMass(d.CDF, g.Bound-high, g.Bound-low)
	}
	return cdfMass(d.CDF, low-g.Bound, high-g.Bound)
}

func (g Gamma) Support() (float64, float64) {
	if g.Upper {
		return math.Inf(-1), g.Bound
	}
	return g.Bound, math.Inf(1)
}

func (g Gamma) Kind() Kind { return KindGamma }

func (g Gamma) String() string {
	if g.Upper {
		return fmt.Sprintf("gamma(σ=%g, x<=%g)", g.Std, g.Bound)
	}
	return fmt.Sprintf("gamma(σ=%g, x>=%g)", g.Std, g.Bound)
}

/*
Exponential adds to the nominal value an exponentially distributed
perturbation with mean Scale, or subtracts it when Downward is true.
Bounds restrict the nominal values that are accepted.
*/
type Exponential struct {
	Scale    float64
	Downward bool
	Low      float64
	High     float64
}

/*
NewExponential takes a positive mean scale, the support bounds (use
infinities when absent) and whether the perturbation is subtracted from
the nominal value, and returns an Exponential distribution.
*/
func NewExponential(scale, low, high float64, downward bool) (Distribution, error) {
	if err := checkScale("scale", scale); err != nil {
		return nil, err
	}
	if scale == 0 {
		return nil, ConfigurationErrorf("exponential distribution requires a positive scale")
	}
	if !(high > low) {
		return nil, ConfigurationErrorf("exponential distribution bounds [%v, %v] are empty", low, high)
	}
	return Exponential{scale, downward, low, high}, nil
}

func (e Exponential) Mass(loc, low, high float64) float64 {
	if !(high > low) {
		return 0
	}
	d := distuv.Exponential{Rate: 1 / e.Scale}
	if e.Downward {
		return cdfMass(d.CDF, loc-high, loc-low)
	}
	return cdfMass(d.CDF, low-loc, high-loc)
}

func (e Exponential) Support() (float64, float64) { return e.Low, e.High }
func (e Exponential) Kind() Kind                  { return KindExponential }

func (e Exponential) String() string {
	if e.Downward {
		return fmt.Sprintf("exponential(-%g)", e.Scale)
	}
	return fmt.Sprintf("exponential(+%g)", e.Scale)
}

func checkScale(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ConfigurationErrorf("%s must be finite, got %v", name, v)
	}
	if v < 0 {
		return ConfigurationErrorf("%s must not be negative, got %v", name, v)
	}
	return nil
}
