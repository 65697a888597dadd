package feature

import (
	"context"
	"fmt"
)

/*
Sample is an interface for something that can satisfy a Criterion.

Its ValueFor method returns the value corresponding to the feature
passed as parameter, or nil if the sample does not define it.
*/
type Sample interface {
	ValueFor(context.Context, Feature) (interface{}, error)
}

type pointSample struct {
	values map[string]float64
}

/*
NewPointSample takes a slice of features and a slice of float64 values
with the same length and returns a Sample with the i-th value for the
i-th feature, or an error if the lengths differ.
*/
func NewPointSample(features []Feature, values []float64) (Sample, error) {
	if len(features) != len(values) {
		return nil, fmt.Errorf("building sample: %d values for %d features", len(values), len(features))
	}
	ps := &pointSample{make(map[string]float64, len(values))}
	for i, f := range features {
		ps.values[f.Name()] = values[i]
	}
	return ps, nil
}

func (ps *pointSample) ValueFor(_ context.Context, f Feature) (interface{}, error) {
	v, ok := ps.values[f.Name()]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (ps *pointSample) String() string {
	return fmt.Sprintf("[%v]", ps.values)
}
