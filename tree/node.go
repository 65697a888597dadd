package tree

import (
	"github.com/pbanos/canopy/feature"
)

/*
Node is a node of the tree
*/
type Node struct {
	// An ID to identify the node
	ID string
	// The ID for the parent of the node in the tree
	ParentID string
	// An slice with the IDs of the nodes directly under this node
	SubtreeIDs []string
	// The prediction for samples that satisfied node constraints from the root of the
	// tree up to this node. Terminal nodes must have one.
	Prediction *Prediction
	// The constraint on the parent's subtree feature that a sample must satisfy
	// to be sent down to this node. Nil for the root. An undefined criterion
	// marks the branch for samples without a value for the feature and should
	// be the last one tested.
	FeatureCriterion feature.Criterion
	// The feature on which nodes directly under this node impose a constraint,
	// that is the feature to ask about next on the sample being predicted.
	// Nil for terminal nodes.
	SubtreeFeature feature.Feature
}

/*
IsTerminal returns whether the node has no subtrees
*/
func (n *Node) IsTerminal() bool {
	return len(n.SubtreeIDs) == 0
}
