package tree

import (
	"fmt"
)

/*
Prediction represents the output value a regression Tree predicts for
the samples that reach one of its terminal nodes
*/
type Prediction struct {
	value  float64
	weight int
}

// PredictionError represents an error related with predictions
type PredictionError string

/*
ErrCannotPredictFromSample is the error returned by the Predict method of a tree
when the prediction cannot be made because the tree itself cannot make
a prediction for that kind of sample, as opposed to cases where values
for a feature cannot be obtained for example.
*/
const ErrCannotPredictFromSample = PredictionError("no prediction available for this kind of sample")

func (pe PredictionError) Error() string {
	return string(pe)
}

/*
NewPrediction takes the predicted float64 value and an integer with the
number of training samples from which it was computed and returns a
prediction representing them.
*/
func NewPrediction(value float64, weight int) *Prediction {
	return &Prediction{value: value, weight: weight}
}

/*
Value returns the predicted value
*/
func (p *Prediction) Value() float64 {
	return p.value
}

/*
Weight returns the weight of the prediction: an
int equal to the number of samples in the dataset from which
the prediction was made. It is informative only.
*/
func (p *Prediction) Weight() int {
	return p.weight
}

func (p *Prediction) String() string {
	return fmt.Sprintf("%g (n=%d)", p.value, p.weight)
}
