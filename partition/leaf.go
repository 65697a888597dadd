package partition

import (
	"encoding/json"
	"math"

	"github.com/pbanos/canopy/feature"
)

/*
Leaf is the region of the input space covered by one terminal node of a
tree: on every dimension d it spans the half-open interval
[Low[d], High[d]), with infinite ends where the tree imposes no bound.
Value is the prediction of the terminal node and Weight the number of
training samples behind it.
*/
type Leaf struct {
	Low    []float64
	High   []float64
	Value  float64
	Weight int
}

/*
Contains takes a point and returns whether it lies within the leaf. The
point must have one coordinate per dimension.
*/
func (l *Leaf) Contains(x []float64) bool {
	for d, v := range x {
		if !feature.Contains(l.Low[d], l.High[d], v) {
			return false
		}
	}
	return true
}

/*
Empty returns whether the leaf covers no point at all because one of its
intervals is empty.
*/
func (l *Leaf) Empty() bool {
	for d := range l.Low {
		if !(l.High[d] > l.Low[d]) {
			return true
		}
	}
	return false
}

/*
Interval is a half-open range [Low, High) of one dimension. Infinite ends
are encoded in JSON as the strings "-Inf" and "+Inf".
*/
type Interval struct {
	Low  float64
	High float64
}

func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Low  interface{} `json:"low"`
		High interface{} `json:"high"`
	}{jsonFloat(i.Low), jsonFloat(i.High)})
}

func jsonFloat(v float64) interface{} {
	switch {
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsInf(v, 1):
		return "+Inf"
	}
	return v
}

/*
Tile describes a leaf for inspection: the interval it spans on each named
feature and its predicted value.
*/
type Tile struct {
	Bounds map[string]Interval `json:"bounds"`
	Value  float64             `json:"value"`
	Weight int                 `json:"weight"`
}
