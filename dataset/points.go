/*
Package dataset holds the query points read from external sources and the
predictions written back to them. Points are ordered by the features of a
model; undefined values are kept as NaN so that they surface as errors of
the queries holding them.
*/
package dataset

import (
	"fmt"
	"math"

	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/feature"
)

// Undefined is the textual representation of an undefined value
const Undefined = "?"

/*
Points is a set of query points with one coordinate per feature, in the
order of Features.
*/
type Points struct {
	Features []feature.Feature
	Rows     [][]float64
}

// Len returns the number of points
func (p *Points) Len() int {
	return len(p.Rows)
}

/*
Prediction is a point along with its prediction: the moments of its
estimate and its merit, or the error that prevented computing them.
*/
type Prediction struct {
	Point    []float64
	Mean     float64
	Variance float64
	Std      float64
	Merit    float64
	Err      error
}

/*
ResultColumns are the columns that follow the features of a point in
written predictions.
*/
var ResultColumns = []string{"mean", "variance", "std", "merit", "error"}

/*
Predictions takes points, their prediction results and merits (nil when
not computed) and returns the predictions to write. The three slices must
have the same length.
*/
func Predictions(points *Points, results []canopy.Result, merits []float64) ([]Prediction, error) {
	if len(results) != points.Len() || (merits != nil && len(merits) != points.Len()) {
		return nil, fmt.Errorf("%d points, %d results and %d merits do not match", points.Len(), len(results), len(merits))
	}
	predictions := make([]Prediction, len(results))
	for i, r := range results {
		p := Prediction{Point: points.Rows[i], Mean: math.NaN(), Variance: math.NaN(), Std: math.NaN(), Merit: math.NaN(), Err: r.Err}
		if r.Estimate != nil {
			p.Mean, p.Variance, p.Std = r.Estimate.Mean, r.Estimate.Variance, r.Estimate.Std()
		}
		if merits != nil {
			p.Merit = merits[i]
		}
		predictions[i] = p
	}
	return predictions, nil
}

/*
CheckColumns takes the names of the columns of a source and the features
of a model and returns the position of every feature among the columns.
Columns not naming a feature are ignored, and an error is returned if a
feature has no column.
*/
func CheckColumns(columns []string, features []feature.Feature) ([]int, error) {
	byName := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := byName[c]; dup {
			return nil, fmt.Errorf("column %s appears twice", c)
		}
		byName[c] = i
	}
	positions := make([]int, len(features))
	for d, f := range features {
		i, ok := byName[f.Name()]
		if !ok {
			return nil, fmt.Errorf("no column for feature %s", f.Name())
		}
		positions[d] = i
	}
	return positions, nil
}
