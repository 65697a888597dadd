package feature

import (
	"fmt"
	"math"
)

/*
Feature represents an input dimension of the modelled objective
*/
type Feature interface {
	Name() string
	Valid(interface{}) (bool, error)
}

/*
ContinuousFeature represents an input dimension that can take any real
value. Ordinal-coded categorical inputs are continuous features too: their
categories are the integer codes 0, 1, ... n-1.
*/
type ContinuousFeature struct {
	name string
}

/*
NewContinuousFeature takes a name string and returns a continuous feature with
the given name.
*/
func NewContinuousFeature(name string) *ContinuousFeature {
	return &ContinuousFeature{name}
}

/*
NewContinuousFeatures takes a slice of names and returns a slice with a
continuous feature for each of them, in the same order.
*/
func NewContinuousFeatures(names []string) []Feature {
	features := make([]Feature, 0, len(names))
	for _, n := range names {
		features = append(features, NewContinuousFeature(n))
	}
	return features
}

/*
Names takes a slice of features and returns a slice with their names.
*/
func Names(features []Feature) []string {
	names := make([]string, 0, len(features))
	for _, f := range features {
		names = append(names, f.Name())
	}
	return names
}

/*
Name returns a string with the name of the feature
*/
func (cf *ContinuousFeature) Name() string {
	return cf.name
}

/*
Valid receives an interface value and returns a boolean and an error. When the
value parameter is a float64 that is not NaN it returns true and nil, otherwise
it returns false and an error describing the reason.
*/
func (cf *ContinuousFeature) Valid(value interface{}) (bool, error) {
	if value == nil {
		return true, nil
	}
	v, ok := value.(float64)
	if !ok {
		return false, fmt.Errorf("continuous feature %s expects float64 value, got %T value", cf.Name(), value)
	}
	if math.IsNaN(v) {
		return false, fmt.Errorf("continuous feature %s got NaN value", cf.Name())
	}
	return true, nil
}

func (cf *ContinuousFeature) String() string {
	return cf.name
}
