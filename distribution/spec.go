package distribution

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

/*
Spec is the configuration of a distribution as found in YAML or JSON
documents, for instance {"kind": "normal", "std": 0.1} or
{"kind": "uniform", "half_width": 0.5, "low": 0, "high": 1}.

Which parameters apply depends on the kind:
  - delta (or none): no parameters, no uncertainty
  - uniform: half_width, or width as the full width
  - normal: std
  - gamma: std, with low (default 0) or high as the bound
  - exponential: scale, with low and/or high bounds. With only high the
    perturbation is subtracted from the nominal value
  - discrete_uniform: integer half_width
  - poisson: low (default 0) as the bound, optional inclusive high
  - categorical: categories and unc

low and high truncate uniform, normal, discrete_uniform and categorical
distributions. relative turns the scale parameter (std, half_width or
scale) into a fraction of the absolute nominal value. frozen pins the
distribution to a fixed location.
*/
type Spec struct {
	Kind       string   `mapstructure:"kind" validate:"required,oneof=delta none uniform normal gamma exponential discrete_uniform poisson categorical"`
	Std        *float64 `mapstructure:"std" validate:"omitempty,gte=0"`
	HalfWidth  *float64 `mapstructure:"half_width" validate:"omitempty,gte=0"`
	Width      *float64 `mapstructure:"width" validate:"omitempty,gte=0"`
	Scale      *float64 `mapstructure:"scale" validate:"omitempty,gte=0"`
	Low        *float64 `mapstructure:"low"`
	High       *float64 `mapstructure:"high"`
	Categories int      `mapstructure:"categories" validate:"omitempty,gte=2"`
	Unc        float64  `mapstructure:"unc" validate:"gte=0,lte=1"`
	Relative   bool     `mapstructure:"relative"`
	Frozen     *float64 `mapstructure:"frozen"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
}

/*
DecodeSpec takes a raw map (as produced by YAML or JSON decoders) and
decodes and validates a Spec from it. Unknown keys are rejected.
*/
func DecodeSpec(raw interface{}) (*Spec, error) {
	spec := &Spec{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           spec,
	})
	if err != nil {
		return nil, err
	}
	if err = dec.Decode(raw); err != nil {
		return nil, &ConfigurationError{Reason: "decoding distribution spec", Err: err}
	}
	if err = validate.Struct(spec); err != nil {
		return nil, &ConfigurationError{Reason: "validating distribution spec", Err: err}
	}
	return spec, nil
}

/*
Parse takes a raw distribution spec and returns the Distribution it
describes or a *ConfigurationError.
*/
func Parse(raw interface{}) (Distribution, error) {
	spec, err := DecodeSpec(raw)
	if err != nil {
		return nil, err
	}
	return spec.Distribution()
}

/*
ParseSet takes a map from feature names to raw distribution specs and
the ordered names of the features of a model, and returns a slice with
one distribution per feature in that order. Features without a spec get
a Delta: no uncertainty. Specs for unknown features yield a
*ConfigurationError.
*/
func ParseSet(specs map[string]interface{}, features []string) ([]Distribution, error) {
	known := make(map[string]bool, len(features))
	for _, f := range features {
		known[f] = true
	}
	var unknown []string
	for name := range specs {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, ConfigurationErrorf("distributions given for unknown features %v", unknown)
	}
	dists := make([]Distribution, 0, len(features))
	for _, f := range features {
		raw, ok := specs[f]
		if !ok {
			dists = append(dists, Delta{})
			continue
		}
		d, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("distribution for feature %s: %w", f, err)
		}
		dists = append(dists, d)
	}
	return dists, nil
}

/*
Distribution builds the distribution described by the spec or returns a
*ConfigurationError if its parameters are missing or inconsistent.
*/
func (s *Spec) Distribution() (Distribution, error) {
	low, high := math.Inf(-1), math.Inf(1)
	if s.Low != nil {
		low = *s.Low
	}
	if s.High != nil {
		high = *s.High
	}
	if !(high > low) {
		return nil, ConfigurationErrorf("%s distribution bounds [%v, %v] are empty", s.Kind, low, high)
	}
	kind := Kind(s.Kind)
	var scale float64
	var build func(float64) (Distribution, error)
	var err error
	switch kind {
	case KindDelta, "none":
		kind = KindDelta
		build = func(float64) (Distribution, error) { return Delta{}, nil }
	case KindUniform:
		scale, err = s.halfWidth()
		build = func(sc float64) (Distribution, error) {
			d, err := NewUniform(sc)
			if err != nil {
				return nil, err
			}
			return NewTruncated(d, low, high, false)
		}
	case KindNormal:
		scale, err = s.required("std", s.Std)
		build = func(sc float64) (Distribution, error) {
			d, err := NewNormal(sc)
			if err != nil {
				return nil, err
			}
			return NewTruncated(d, low, high, false)
		}
	case KindGamma:
		if s.Low != nil && s.High != nil {
			return nil, ConfigurationErrorf("gamma distribution accepts either a low or a high bound, not both")
		}
		scale, err = s.required("std", s.Std)
		bound, upper := 0.0, false
		if s.Low != nil {
			bound = *s.Low
		} else if s.High != nil {
			bound, upper = *s.High, true
		}
		build = func(sc float64) (Distribution, error) { return NewGamma(sc, bound, upper) }
	case KindExponential:
		scale, err = s.required("scale", s.Scale)
		downward := s.High != nil && s.Low == nil
		build = func(sc float64) (Distribution, error) { return NewExponential(sc, low, high, downward) }
	case KindDiscreteUniform:
		var hw float64
		hw, err = s.halfWidth()
		if err == nil && hw != math.Trunc(hw) {
			err = ConfigurationErrorf("discrete_uniform half width must be an integer, got %v", hw)
		}
		build = func(float64) (Distribution, error) {
			d, err := NewDiscreteUniform(int(hw))
			if err != nil {
				return nil, err
			}
			return NewTruncated(d, low, high, true)
		}
	case KindPoisson:
		bound := 0.0
		if s.Low != nil {
			bound = *s.Low
		}
		build = func(float64) (Distribution, error) {
			d, err := NewPoisson(bound)
			if err != nil || math.IsInf(high, 1) {
				return d, err
			}
			return NewTruncated(d, bound, high, true)
		}
	case KindCategorical:
		build = func(float64) (Distribution, error) {
			d, err := NewCategorical(s.Categories, s.Unc)
			if err != nil {
				return nil, err
			}
			return NewTruncated(d, low, high, true)
		}
	default:
		return nil, ConfigurationErrorf("unknown distribution kind %q", s.Kind)
	}
	if err != nil {
		return nil, err
	}
	var d Distribution
	if s.Relative {
		switch kind {
		case KindUniform, KindNormal, KindGamma, KindExponential:
			d, err = NewRelative(scale, kind, build)
		default:
			err = ConfigurationErrorf("%s distribution has no scale to make relative", kind)
		}
	} else {
		d, err = build(scale)
	}
	if err != nil {
		return nil, err
	}
	if s.Frozen != nil {
		return NewFrozen(d, *s.Frozen)
	}
	return d, nil
}

func (s *Spec) halfWidth() (float64, error) {
	switch {
	case s.HalfWidth != nil && s.Width != nil:
		return 0, ConfigurationErrorf("%s distribution accepts either half_width or width, not both", s.Kind)
	case s.HalfWidth != nil:
		return *s.HalfWidth, nil
	case s.Width != nil:
		return *s.Width / 2, nil
	}
	return 0, ConfigurationErrorf("%s distribution requires a half_width or width", s.Kind)
}

func (s *Spec) required(name string, v *float64) (float64, error) {
	if v == nil {
		return 0, ConfigurationErrorf("%s distribution requires %s", s.Kind, name)
	}
	return *v, nil
}
