package tree

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pbanos/canopy/feature"
)

// Tree represents a a regression tree. It is composed of a
// NodeStore where all its nodes are stored, the id for the
// root node of the tree, the label it is able to
// predict and the ordered input features it splits on.
type Tree struct {
	NodeStore
	RootID   string
	Label    feature.Feature
	Features []feature.Feature
}

// New takes the ID for the root Node, a NodeStore, a label feature and the
// input features of the model and returns a tree composed of the nodes in the
// NodeStore connected to the node with the given root ID that predicts the given
// feature.
func New(rootID string, nodeStore NodeStore, label feature.Feature, features []feature.Feature) *Tree {
	return &Tree{nodeStore, rootID, label, features}
}

// Plant takes a context, a NodeStore, a label feature, the input features
// and the prediction for the root node, creates the root node in the store and
// returns a tree with it as its single node. Use Split or AddSubtree to grow it.
func Plant(ctx context.Context, nodeStore NodeStore, label feature.Feature, features []feature.Feature, p *Prediction) (*Tree, error) {
	root := &Node{Prediction: p}
	if err := nodeStore.Create(ctx, root); err != nil {
		return nil, fmt.Errorf("creating root node: %v", err)
	}
	return New(root.ID, nodeStore, label, features), nil
}

// AddSubtree takes a context, a parent node, a criterion and a prediction,
// creates a node under the parent with the criterion and prediction and
// returns it. The parent's subtree feature becomes the criterion's feature.
func (t *Tree) AddSubtree(ctx context.Context, parent *Node, c feature.Criterion, p *Prediction) (*Node, error) {
	if parent.SubtreeFeature != nil && parent.SubtreeFeature.Name() != c.Feature().Name() {
		return nil, fmt.Errorf("node %s splits on %s, cannot add subtree on %s", parent.ID, parent.SubtreeFeature.Name(), c.Feature().Name())
	}
	n := &Node{ParentID: parent.ID, FeatureCriterion: c, Prediction: p}
	if err := t.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("creating subtree node of %s: %v", parent.ID, err)
	}
	parent.SubtreeIDs = append(parent.SubtreeIDs, n.ID)
	parent.SubtreeFeature = c.Feature()
	if err := t.Store(ctx, parent); err != nil {
		return nil, fmt.Errorf("storing node %s: %v", parent.ID, err)
	}
	return n, nil
}

// Split takes a context, a node, a feature, a threshold and the predictions
// for the values of the feature below and above it, and adds two subtrees to
// the node: one for values in (-Inf, threshold) and one for values in
// [threshold, +Inf). It returns both new nodes.
func (t *Tree) Split(ctx context.Context, n *Node, f feature.Feature, threshold float64, below, above *Prediction) (*Node, *Node, error) {
	lower, err := t.AddSubtree(ctx, n, feature.NewContinuousCriterion(f, math.Inf(-1), threshold), below)
	if err != nil {
		return nil, nil, err
	}
	upper, err := t.AddSubtree(ctx, n, feature.NewContinuousCriterion(f, threshold, math.Inf(1)), above)
	if err != nil {
		return nil, nil, err
	}
	return lower, upper, nil
}

// Predict takes a sample and returns a prediction according to the tree and an
// error if the prediction could not be made.
func (t *Tree) Predict(ctx context.Context, s feature.Sample) (*Prediction, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tree cannot predict samples")
	}
	n, err := t.Get(ctx, t.RootID)
	if err != nil {
		return nil, fmt.Errorf("predicting sample: retrieving node %v: %v", t.RootID, err)
	}
	if n == nil {
		return nil, fmt.Errorf("predicting sample: root node %v not found", t.RootID)
	}
	for {
		if n.SubtreeFeature == nil {
			break
		}
		var selectedNode *Node
		for _, nID := range n.SubtreeIDs {
			subnode, err := t.Get(ctx, nID)
			if err != nil {
				return nil, fmt.Errorf("predicting sample: retrieving node %v: %v", nID, err)
			}
			if subnode == nil {
				return nil, fmt.Errorf("predicting sample: node %v not found", nID)
			}
			if subnode.FeatureCriterion != nil {
				ok, err := subnode.FeatureCriterion.SatisfiedBy(ctx, s)
				if err != nil {
					return nil, err
				}
				if ok {
					selectedNode = subnode
					if _, ok = subnode.FeatureCriterion.(feature.UndefinedCriterion); !ok {
						break
					}
				}
			}
		}
		if selectedNode == nil {
			return nil, fmt.Errorf("sample does not satisfy any subtree criteria on feature %s", n.SubtreeFeature.Name())
		}
		n = selectedNode
	}
	if n.Prediction != nil {
		return n.Prediction, nil
	}
	return nil, ErrCannotPredictFromSample
}

// PredictPoint takes a point with a value for each of the tree's features, in
// the same order, and returns the value predicted for it by the tree.
func (t *Tree) PredictPoint(ctx context.Context, x []float64) (float64, error) {
	s, err := feature.NewPointSample(t.Features, x)
	if err != nil {
		return 0, err
	}
	p, err := t.Predict(ctx, s)
	if err != nil {
		return 0, err
	}
	return p.Value(), nil
}

// Traverse takes a context, bottomup boolean and an
// error-returning function that takes a context and a node
// as parameters, and goes through the tree running the
// function with the context and every traversed node.
// Traverse will call the function with a parent node before
// calling it for its children if bottomup is false, and
// call it after its children if bottomup is true.
// If the given context times out or is cancelled, the context
// error is returned. If a node cannot be retrieved from the
// tree's node store, the obtained error is returned, and so is
// an error when a node is reached twice. If the
// call to the function returns an error, the traversing is
// aborted and the error is returned. Otherwise, when the
// traversing is over, nil is returned.
func (t *Tree) Traverse(ctx context.Context, bottomup bool, f func(context.Context, *Node) error) error {
	n, err := t.NodeStore.Get(ctx, t.RootID)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("root node %v not found", t.RootID)
	}
	return t.traverse(ctx, n, bottomup, f, make(map[string]bool))
}

func (t *Tree) traverse(ctx context.Context, n *Node, bottomup bool, f func(context.Context, *Node) error, seen map[string]bool) error {
	err := ctx.Err()
	if err != nil {
		return err
	}
	if seen[n.ID] {
		return fmt.Errorf("node %v reached twice", n.ID)
	}
	seen[n.ID] = true
	if !bottomup {
		err = f(ctx, n)
	}
	if err != nil {
		return err
	}
	for _, snID := range n.SubtreeIDs {
		sn, err := t.NodeStore.Get(ctx, snID)
		if err != nil {
			return err
		}
		if sn == nil {
			return fmt.Errorf("node %v not found", snID)
		}
		err = t.traverse(ctx, sn, bottomup, f, seen)
		if err != nil {
			return err
		}
	}
	if bottomup {
		err = f(ctx, n)
	}
	return err
}

func (t *Tree) String() string {
	return t.subtreeString(t.RootID)
}

func (t *Tree) subtreeString(nodeID string) string {
	n, err := t.NodeStore.Get(context.TODO(), nodeID)
	if err != nil {
		return fmt.Sprintf("ERROR: %s\n", err.Error())
	}
	if n == nil {
		return fmt.Sprintf("ERROR: node %s not found\n", nodeID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]\n", nodeID)
	if n.FeatureCriterion != nil {
		fmt.Fprintf(&sb, "{ %v }\n", n.FeatureCriterion)
	}
	if n.Prediction != nil {
		fmt.Fprintf(&sb, "{ %v }\n", n.Prediction)
	}
	if len(n.SubtreeIDs) > 0 {
		sb.WriteString("|\n")
	} else {
		sb.WriteString(" \n")
	}
	for i, subtreeID := range n.SubtreeIDs {
		for j, line := range strings.Split(t.subtreeString(subtreeID), "\n") {
			if len(line) == 0 {
				continue
			}
			switch {
			case j == 0:
				fmt.Fprintf(&sb, "|__%s\n", line)
			case i == len(n.SubtreeIDs)-1:
				fmt.Fprintf(&sb, "   %s\n", line)
			default:
				fmt.Fprintf(&sb, "|  %s\n", line)
			}
		}
	}
	return sb.String()
}
