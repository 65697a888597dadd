package json

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/pbanos/canopy/feature"
)

/*
CriteriaEncodeDecoder is an interface for objects
that allow encoding criteria into slices of
bytes and decoding them back to criteria.
*/
type CriteriaEncodeDecoder interface {

	//Encode receives a feature.Criterion
	//and returns a slice of bytes with the criterion
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(feature.Criterion) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a feature.Criterion decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (feature.Criterion, error)
}

type jsonCriteriaEncodeDecoder []feature.Feature

type jsonCriterion struct {
	Type    string `json:"t"`
	Feature string `json:"f"`
	A       string `json:"a,omitempty"`
	B       string `json:"b,omitempty"`
}

// NewCriteriaEncodeDecoder takes a slice of feature.Feature and returns a
// CriteriaEncodeDecoder that marshals and unmarshals
// criteria into/from slices of bytes as JSON.
// Specifically, criteria are encoded as a JSON object
// with an "f" property set to the name of the feature
// of the criteria and a "t" property that can be either
// "continuous" or "undefined":
//   - If the criteria is continuous it will have "a" and "b"
//     properties defining the start and end of the interval for
//     the feature, as strings with the shortest representation that
//     parses back to the same float64, or "-Inf" and "+Inf"
//   - If the criteria is undefined it will have no additional
//     properties
func NewCriteriaEncodeDecoder(features []feature.Feature) CriteriaEncodeDecoder {
	return jsonCriteriaEncodeDecoder(features)
}

func (jced jsonCriteriaEncodeDecoder) Encode(fc feature.Criterion) ([]byte, error) {
	switch c := fc.(type) {
	case feature.ContinuousCriterion:
		a, b := c.Interval()
		return json.Marshal(&jsonCriterion{
			Type:    "continuous",
			Feature: c.Feature().Name(),
			A:       formatBound(a),
			B:       formatBound(b),
		})
	case feature.UndefinedCriterion:
		return json.Marshal(&jsonCriterion{
			Type:    "undefined",
			Feature: c.Feature().Name(),
		})
	default:
		return nil, fmt.Errorf("unknown type of feature.Criterion %T", fc)
	}
}

func (jced jsonCriteriaEncodeDecoder) Decode(data []byte) (feature.Criterion, error) {
	jc := &jsonCriterion{}
	err := json.Unmarshal(data, jc)
	if err != nil {
		return nil, err
	}
	return jc.Criterion(jced)
}

func (jc *jsonCriterion) Criterion(features []feature.Feature) (feature.Criterion, error) {
	f := findFeature(features, jc.Feature)
	if f == nil {
		return nil, fmt.Errorf("unknown feature '%s'", jc.Feature)
	}
	switch jc.Type {
	case "continuous":
		a, err := parseBound(jc.A, math.Inf(-1))
		if err != nil {
			return nil, err
		}
		b, err := parseBound(jc.B, math.Inf(1))
		if err != nil {
			return nil, err
		}
		return feature.NewContinuousCriterion(f, a, b), nil
	case "undefined":
		return feature.NewUndefinedCriterion(f), nil
	}
	return nil, fmt.Errorf("unknown feature criterion type '%s'", jc.Type)
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsInf(v, 1):
		return "+Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseBound parses an interval bound, taking an empty one as the given
// infinity
func parseBound(s string, missing float64) (float64, error) {
	switch s {
	case "":
		return missing, nil
	case "-Inf":
		return math.Inf(-1), nil
	case "+Inf", "Inf":
		return math.Inf(1), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing interval bound %q: %v", s, err)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("interval bound is NaN")
	}
	return v, nil
}

func findFeature(features []feature.Feature, name string) feature.Feature {
	for _, f := range features {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
