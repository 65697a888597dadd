package distribution

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

func mustParse(t *testing.T, raw map[string]interface{}) Distribution {
	t.Helper()
	d, err := Parse(raw)
	require.NoError(t, err)
	return d
}

func catalog(t *testing.T) map[string]Distribution {
	return map[string]Distribution{
		"delta":            Delta{},
		"uniform":          mustParse(t, map[string]interface{}{"kind": "uniform", "half_width": 0.5}),
		"normal":           mustParse(t, map[string]interface{}{"kind": "normal", "std": 1.5}),
		"truncated normal": mustParse(t, map[string]interface{}{"kind": "normal", "std": 1, "low": 0, "high": 4}),
		"gamma":            mustParse(t, map[string]interface{}{"kind": "gamma", "std": 0.7}),
		"upper gamma":      mustParse(t, map[string]interface{}{"kind": "gamma", "std": 0.7, "high": 5}),
		"exponential":      mustParse(t, map[string]interface{}{"kind": "exponential", "scale": 2}),
		"discrete uniform": mustParse(t, map[string]interface{}{"kind": "discrete_uniform", "half_width": 2}),
		"poisson":          mustParse(t, map[string]interface{}{"kind": "poisson"}),
		"categorical":      mustParse(t, map[string]interface{}{"kind": "categorical", "categories": 4, "unc": 0.3}),
		"relative normal":  mustParse(t, map[string]interface{}{"kind": "normal", "std": 0.1, "relative": true}),
		"frozen uniform":   mustParse(t, map[string]interface{}{"kind": "uniform", "width": 2, "frozen": 3}),
	}
}

func TestMassLimits(t *testing.T) {
	for name, d := range catalog(t) {
		t.Run(name, func(t *testing.T) {
			for _, loc := range []float64{0.5, 1, 2, 3.2} {
				assert.InDelta(t, 1, d.Mass(loc, negInf, posInf), 1e-9, "whole line at %v", loc)
				assert.Zero(t, d.Mass(loc, 2, 2), "empty interval at %v", loc)
				assert.Zero(t, d.Mass(loc, 3, 1), "inverted interval at %v", loc)
			}
		})
	}
}

func TestMassMonotone(t *testing.T) {
	bounds := []float64{negInf, -1, 0, 0.5, 1, 1.7, 2, 3, 4.5, posInf}
	for name, d := range catalog(t) {
		t.Run(name, func(t *testing.T) {
			for _, loc := range []float64{0.5, 1, 2.2} {
				for i := range bounds {
					for j := i + 1; j < len(bounds); j++ {
						inner := d.Mass(loc, bounds[i], bounds[j])
						assert.GreaterOrEqual(t, inner, 0.0)
						assert.LessOrEqual(t, inner, 1.0)
						if j+1 < len(bounds) {
							assert.GreaterOrEqual(t, d.Mass(loc, bounds[i], bounds[j+1])+1e-12, inner)
						}
						if i > 0 {
							assert.GreaterOrEqual(t, d.Mass(loc, bounds[i-1], bounds[j])+1e-12, inner)
						}
					}
				}
			}
		})
	}
}

func TestMassAdditive(t *testing.T) {
	cuts := []float64{negInf, -0.3, 0, 0.7, 1, 1.5, 2, 3, posInf}
	for name, d := range catalog(t) {
		t.Run(name, func(t *testing.T) {
			sum := 0.0
			for i := 0; i+1 < len(cuts); i++ {
				sum += d.Mass(1.2, cuts[i], cuts[i+1])
			}
			assert.InDelta(t, 1, sum, 1e-9)
		})
	}
}

func TestDelta(t *testing.T) {
	d := Delta{}
	assert.Equal(t, 1.0, d.Mass(0.5, 0.5, 1))
	assert.Equal(t, 0.0, d.Mass(1, 0.5, 1))
	assert.Equal(t, 1.0, d.Mass(-1e300, negInf, 0))
}

func TestUniformHalves(t *testing.T) {
	d, err := NewUniform(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d.Mass(0.5, negInf, 0.5), 1e-12)
	assert.InDelta(t, 0.5, d.Mass(0.5, 0.5, posInf), 1e-12)
	assert.InDelta(t, 0.25, d.Mass(0.5, 0.25, 0.5), 1e-12)
}

func TestZeroScaleIsPointMass(t *testing.T) {
	for _, raw := range []map[string]interface{}{
		{"kind": "uniform", "half_width": 0},
		{"kind": "normal", "std": 0},
		{"kind": "normal", "std": 0.2, "relative": true},
	} {
		d := mustParse(t, raw)
		assert.Equal(t, 1.0, d.Mass(0, 0, 1e-9), "%v", raw)
		assert.Equal(t, 0.0, d.Mass(0, 1e-9, 1), "%v", raw)
	}
}

func TestNormal(t *testing.T) {
	d, err := NewNormal(2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d.Mass(3, negInf, 3), 1e-12)
	assert.InDelta(t, 0.682689492, d.Mass(3, 1, 5), 1e-8)
}

func TestTruncatedRenormalizes(t *testing.T) {
	base, err := NewUniform(1)
	require.NoError(t, err)
	d, err := NewTruncated(base, 0, posInf, false)
	require.NoError(t, err)
	// uniform on [-0.5, 1.5] keeps [0, 1.5]
	assert.InDelta(t, 1, d.Mass(0.5, negInf, posInf), 1e-12)
	assert.InDelta(t, 0, d.Mass(0.5, negInf, 0), 1e-12)
	assert.InDelta(t, 1.0/3, d.Mass(0.5, 0, 0.5), 1e-12)
	low, high := d.Support()
	assert.Equal(t, 0.0, low)
	assert.True(t, math.IsInf(high, 1))

	same, err := NewTruncated(base, negInf, posInf, false)
	require.NoError(t, err)
	assert.Equal(t, base, same)

	_, err = NewTruncated(base, 1, 1, false)
	assert.Error(t, err)
}

func TestDiscreteUniform(t *testing.T) {
	d, err := NewDiscreteUniform(1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, d.Mass(2.2, 1, 2), 1e-12)
	assert.InDelta(t, 2.0/3, d.Mass(2.2, 1.5, 3.5), 1e-12)
	assert.InDelta(t, 0, d.Mass(2.2, 3.5, 10), 1e-12)

	// truncated to [2, 3] with an inclusive upper bound
	tr := mustParse(t, map[string]interface{}{"kind": "discrete_uniform", "half_width": 1, "low": 2, "high": 3})
	assert.InDelta(t, 0.5, tr.Mass(2, 3, 4), 1e-12)
	assert.InDelta(t, 0, tr.Mass(2, 1, 2), 1e-12)
}

func TestPoisson(t *testing.T) {
	d, err := NewPoisson(0)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-2), d.Mass(2, 0, 1), 1e-12)
	assert.InDelta(t, 2*math.Exp(-2), d.Mass(2, 1, 2), 1e-12)
	assert.Equal(t, 1.0, d.Mass(0, 0, 0.5))
	assert.Equal(t, 0.0, d.Mass(0, 1, posInf))

	shifted, err := NewPoisson(10)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-2), shifted.Mass(12, 9.5, 10.5), 1e-12)
}

func TestCategorical(t *testing.T) {
	d, err := NewCategorical(3, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, d.Mass(1, 0.5, 1.5), 1e-12)
	assert.InDelta(t, 0.1, d.Mass(1, 2, 3), 1e-12)
	assert.InDelta(t, 0.9, d.Mass(1, negInf, 1.5), 1e-12)
	assert.True(t, InSupport(d, 2))
	assert.False(t, InSupport(d, 3))
}

func TestGammaMode(t *testing.T) {
	d, err := NewGamma(0.5, 0, false)
	require.NoError(t, err)
	assert.Zero(t, d.Mass(2, negInf, 0))
	g := d.(Gamma).shape(2)
	assert.InDelta(t, 2, g.Mode(), 1e-9)
	assert.InDelta(t, 0.5, g.StdDev(), 1e-9)

	up, err := NewGamma(0.5, 5, true)
	require.NoError(t, err)
	assert.Zero(t, up.Mass(3, 5, posInf))
	assert.InDelta(t, 1, up.Mass(3, negInf, 5), 1e-12)
}

func TestExponentialDirection(t *testing.T) {
	d := mustParse(t, map[string]interface{}{"kind": "exponential", "scale": 1, "high": 10})
	assert.Zero(t, d.Mass(4, 4.0001, posInf))
	assert.InDelta(t, 1-math.Exp(-1), d.Mass(4, 3, 4.0001), 1e-3)

	up := mustParse(t, map[string]interface{}{"kind": "exponential", "scale": 1})
	assert.Zero(t, up.Mass(4, negInf, 4))
	assert.InDelta(t, 1-math.Exp(-1), up.Mass(4, 4, 5), 1e-12)
}

func TestRelative(t *testing.T) {
	d := mustParse(t, map[string]interface{}{"kind": "uniform", "half_width": 0.1, "relative": true})
	// at 10 the half width is 1
	assert.InDelta(t, 0.5, d.Mass(10, 9, 10), 1e-12)
	// at -100 it is 10
	assert.InDelta(t, 0.25, d.Mass(-100, -95, -90), 1e-12)
}

func TestComposedSupport(t *testing.T) {
	cases := []struct {
		name      string
		raw       map[string]interface{}
		low, high float64
	}{
		{"relative gamma", map[string]interface{}{"kind": "gamma", "std": 0.1, "low": 0, "relative": true}, 0, posInf},
		{"relative truncated uniform", map[string]interface{}{"kind": "uniform", "half_width": 0.2, "low": 0, "high": 1, "relative": true}, 0, 1},
		{"poisson with high", map[string]interface{}{"kind": "poisson", "low": 0, "high": 10}, 0, 10},
		{"poisson with only high", map[string]interface{}{"kind": "poisson", "high": 10}, 0, 10},
		{"categorical truncated below zero", map[string]interface{}{"kind": "categorical", "categories": 4, "low": -5, "high": 2}, 0, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := mustParse(t, c.raw)
			low, high := d.Support()
			assert.Equal(t, c.low, low)
			assert.Equal(t, c.high, high)
			assert.False(t, InSupport(d, -5))
			assert.True(t, InSupport(d, 0))
		})
	}
}

func TestFrozen(t *testing.T) {
	d := mustParse(t, map[string]interface{}{"kind": "normal", "std": 1, "frozen": 5})
	assert.InDelta(t, 0.5, d.Mass(-42, negInf, 5), 1e-12)
	assert.InDelta(t, 0.5, d.Mass(42, negInf, 5), 1e-12)

	_, err := Parse(map[string]interface{}{"kind": "normal", "std": 1, "low": 0, "frozen": -1})
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"unknown kind":            {"kind": "cauchy"},
		"missing kind":            {"std": 1},
		"negative std":            {"kind": "normal", "std": -1},
		"missing std":             {"kind": "normal"},
		"unknown key":             {"kind": "normal", "std": 1, "sigma": 1},
		"empty bounds":            {"kind": "normal", "std": 1, "low": 2, "high": 2},
		"both widths":             {"kind": "uniform", "width": 1, "half_width": 1},
		"zero gamma std":          {"kind": "gamma", "std": 0},
		"gamma with both bounds":  {"kind": "gamma", "std": 1, "low": 0, "high": 3},
		"zero exponential scale":  {"kind": "exponential", "scale": 0},
		"fractional half width":   {"kind": "discrete_uniform", "half_width": 1.5},
		"one category":            {"kind": "categorical", "categories": 1},
		"unc above one":           {"kind": "categorical", "categories": 3, "unc": 1.5},
		"relative poisson":        {"kind": "poisson", "relative": true},
		"categories out of range": {"kind": "categorical", "categories": 3, "low": 5, "high": 8},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			var ce *ConfigurationError
			assert.True(t, errors.As(err, &ce), "%v", err)
		})
	}
}

func TestParseSet(t *testing.T) {
	specs := map[string]interface{}{
		"b": map[string]interface{}{"kind": "normal", "std": 1},
	}
	dists, err := ParseSet(specs, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, dists, 3)
	assert.Equal(t, KindDelta, dists[0].Kind())
	assert.Equal(t, KindNormal, dists[1].Kind())
	assert.Equal(t, KindDelta, dists[2].Kind())

	_, err = ParseSet(specs, []string{"a"})
	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))

	_, err = ParseSet(map[string]interface{}{"a": map[string]interface{}{"kind": "normal"}}, []string{"a"})
	assert.True(t, errors.As(err, &ce))
}
