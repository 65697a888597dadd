/*
Package sklearn imports regression trees and random forests fitted by
scikit-learn, exported as JSON dumps of the arrays of each estimator's
tree_ attribute:

	{
	  "features": ["x", "z"],
	  "label": "y",
	  "weights": [1, 1],
	  "estimators": [
	    {
	      "children_left": [1, -1, -1],
	      "children_right": [2, -1, -1],
	      "feature": [0, -2, -2],
	      "threshold": [0.5, -2, -2],
	      "value": [[[3]], [[1]], [[5]]],
	      "n_node_samples": [10, 5, 5]
	    }
	  ]
	}

A single DecisionTreeRegressor is a forest with one estimator. Only the
first output of multi-output trees is imported. Weights are optional.

scikit-learn sends samples with x <= threshold to the left child. Trees
here use half-open intervals [a, b), so the stored boundary is the next
float64 above the threshold, which keeps every float64 input on the same
side as in scikit-learn.
*/
package sklearn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	tjson "github.com/pbanos/canopy/tree/json"
)

// leaf is the child index scikit-learn uses for terminal nodes
const leaf = -1

/*
Estimator holds the arrays of a fitted scikit-learn tree, indexed by node
number, with node 0 as the root.
*/
type Estimator struct {
	ChildrenLeft  []int         `json:"children_left"`
	ChildrenRight []int         `json:"children_right"`
	Feature       []int         `json:"feature"`
	Threshold     []float64     `json:"threshold"`
	Value         []interface{} `json:"value"`
	NodeSamples   []int         `json:"n_node_samples"`
}

/*
Export is the JSON document produced by exporting a scikit-learn model.
*/
type Export struct {
	Features   []string     `json:"features"`
	Label      string       `json:"label"`
	Weights    []float64    `json:"weights,omitempty"`
	Estimators []*Estimator `json:"estimators"`
}

/*
ReadForest takes a context, an io.Reader with an Export document and a
function returning new node stores (memory stores when nil), and returns
the forest it describes or an error if the document is malformed.
*/
func ReadForest(ctx context.Context, r io.Reader, newStore func() tree.NodeStore) (*tjson.Forest, error) {
	e := &Export{}
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return nil, fmt.Errorf("parsing scikit-learn export: %v", err)
	}
	return e.Forest(ctx, newStore)
}

/*
ReadForestFromFile takes a context and a filepath string and returns the
forest in the scikit-learn export at the file, with memory node stores.
*/
func ReadForestFromFile(ctx context.Context, filepath string) (*tjson.Forest, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("opening scikit-learn export %s: %v", filepath, err)
	}
	defer f.Close()
	forest, err := ReadForest(ctx, f, nil)
	if err != nil {
		return nil, fmt.Errorf("reading scikit-learn export %s: %v", filepath, err)
	}
	return forest, nil
}

/*
Forest converts the export into a forest, building each tree in a store
obtained from newStore (memory stores when nil).
*/
func (e *Export) Forest(ctx context.Context, newStore func() tree.NodeStore) (*tjson.Forest, error) {
	if newStore == nil {
		newStore = tree.NewMemoryNodeStore
	}
	if len(e.Features) == 0 {
		return nil, fmt.Errorf("scikit-learn export declares no features")
	}
	if len(e.Estimators) == 0 {
		return nil, fmt.Errorf("scikit-learn export declares no estimators")
	}
	label := e.Label
	if label == "" {
		label = "y"
	}
	f := &tjson.Forest{Features: feature.NewContinuousFeatures(e.Features), Weights: e.Weights}
	for i, est := range e.Estimators {
		t, err := est.Tree(ctx, newStore(), feature.NewContinuousFeature(label), f.Features)
		if err != nil {
			return nil, fmt.Errorf("converting estimator %d: %v", i, err)
		}
		f.Trees = append(f.Trees, t)
	}
	return f, nil
}

/*
Tree takes a context, a node store, a label and the model's features, and
builds the estimator's tree in the store.
*/
func (est *Estimator) Tree(ctx context.Context, store tree.NodeStore, label feature.Feature, features []feature.Feature) (*tree.Tree, error) {
	if err := est.validate(len(features)); err != nil {
		return nil, err
	}
	root, err := est.prediction(0)
	if err != nil {
		return nil, err
	}
	t, err := tree.Plant(ctx, store, label, features, root)
	if err != nil {
		return nil, err
	}
	rootNode, err := t.Get(ctx, t.RootID)
	if err != nil {
		return nil, err
	}
	visited := make([]bool, len(est.ChildrenLeft))
	err = est.grow(ctx, t, rootNode, 0, visited)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (est *Estimator) grow(ctx context.Context, t *tree.Tree, n *tree.Node, i int, visited []bool) error {
	if visited[i] {
		return fmt.Errorf("node %d is reachable twice", i)
	}
	visited[i] = true
	l, r := est.ChildrenLeft[i], est.ChildrenRight[i]
	if l == leaf {
		return nil
	}
	below, err := est.prediction(l)
	if err != nil {
		return err
	}
	above, err := est.prediction(r)
	if err != nil {
		return err
	}
	threshold := math.Nextafter(est.Threshold[i], math.Inf(1))
	ln, rn, err := t.Split(ctx, n, t.Features[est.Feature[i]], threshold, below, above)
	if err != nil {
		return err
	}
	if err = est.grow(ctx, t, ln, l, visited); err != nil {
		return err
	}
	return est.grow(ctx, t, rn, r, visited)
}

func (est *Estimator) validate(features int) error {
	n := len(est.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("estimator has no nodes")
	}
	if len(est.ChildrenRight) != n || len(est.Feature) != n || len(est.Threshold) != n || len(est.Value) != n {
		return fmt.Errorf("estimator arrays differ in length")
	}
	if est.NodeSamples != nil && len(est.NodeSamples) != n {
		return fmt.Errorf("estimator arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := est.ChildrenLeft[i], est.ChildrenRight[i]
		if (l == leaf) != (r == leaf) {
			return fmt.Errorf("node %d has a single child", i)
		}
		if l == leaf {
			continue
		}
		if l <= 0 || l >= n || r <= 0 || r >= n {
			return fmt.Errorf("node %d has children out of range", i)
		}
		if est.Feature[i] < 0 || est.Feature[i] >= features {
			return fmt.Errorf("node %d splits on unknown feature %d", i, est.Feature[i])
		}
		if math.IsNaN(est.Threshold[i]) || math.IsInf(est.Threshold[i], 0) {
			return fmt.Errorf("node %d has threshold %v", i, est.Threshold[i])
		}
	}
	return nil
}

func (est *Estimator) prediction(i int) (*tree.Prediction, error) {
	v, ok := firstNumber(est.Value[i])
	if !ok {
		return nil, fmt.Errorf("node %d has no numeric value", i)
	}
	var w int
	if est.NodeSamples != nil {
		w = est.NodeSamples[i]
	}
	return tree.NewPrediction(v, w), nil
}

// firstNumber returns the first number in a possibly nested array, which
// covers both flat values and scikit-learn's [n_outputs][1] layout
func firstNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case []interface{}:
		if len(x) == 0 {
			return 0, false
		}
		return firstNumber(x[0])
	}
	return 0, false
}
