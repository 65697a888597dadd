/*
Package partition turns fitted regression trees into flat, immutable
collections of axis-aligned leaves: the partition of the input space each
tree induces. Indexes are built once per tree and can then be shared
read-only by any number of goroutines.
*/
package partition

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pbanos/canopy/distribution"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
)

/*
Index holds the leaves of one tree, in depth-first order, together with
the ordered features their bounds refer to. An Index is immutable.
*/
type Index struct {
	features []feature.Feature
	leaves   []Leaf
	values   []float64
}

// frame is a node pending visit with the bounds accumulated on its path
type frame struct {
	id        string
	low, high []float64
}

/*
New takes a context and a fitted tree and returns the Index of its leaves.

Every node under the root must carry a continuous criterion [a, b) on the
feature its parent splits on; the bounds of each leaf are the intersection
of the criteria on its path. Undefined criteria, the branches for samples
without a value, are skipped: the points the index is queried with always
define every feature.

A *StructuralError is returned if the tree has no root, a node cannot be
found, a terminal node has no prediction, a criterion refers to an unknown
feature, the children of a node leave a gap or overlap within the node's
region, or the tree yields no leaves. Errors from the node store and the
context are returned as they are.
*/
func New(ctx context.Context, t *tree.Tree) (*Index, error) {
	if t == nil || t.RootID == "" {
		return nil, structuralErrorf("tree has no root")
	}
	dims := make(map[string]int, len(t.Features))
	for d, f := range t.Features {
		if _, dup := dims[f.Name()]; dup {
			return nil, structuralErrorf("feature %s declared twice", f.Name())
		}
		dims[f.Name()] = d
	}
	idx := &Index{features: t.Features}
	low, high := make([]float64, len(t.Features)), make([]float64, len(t.Features))
	for d := range low {
		low[d], high[d] = math.Inf(-1), math.Inf(1)
	}
	stack := []frame{{t.RootID, low, high}}
	seen := make(map[string]bool)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[fr.id] {
			return nil, structuralErrorf("node %s reached twice", fr.id)
		}
		seen[fr.id] = true
		n, err := t.Get(ctx, fr.id)
		if err != nil {
			return nil, fmt.Errorf("retrieving node %s: %w", fr.id, err)
		}
		if n == nil {
			return nil, structuralErrorf("node %s not found", fr.id)
		}
		if n.IsTerminal() {
			if n.Prediction == nil {
				return nil, structuralErrorf("terminal node %s has no prediction", n.ID)
			}
			idx.leaves = append(idx.leaves, Leaf{fr.low, fr.high, n.Prediction.Value(), n.Prediction.Weight()})
			continue
		}
		children, err := split(ctx, t, n, fr, dims)
		if err != nil {
			return nil, err
		}
		// reversed so that children are visited in their declared order
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	if len(idx.leaves) == 0 {
		return nil, structuralErrorf("tree has no terminal nodes")
	}
	idx.values = make([]float64, len(idx.leaves))
	for i, l := range idx.leaves {
		idx.values[i] = l.Value
	}
	return idx, nil
}

// split returns the frames for the children of internal node n, checking
// that their intervals tile the node's range on the split dimension
func split(ctx context.Context, t *tree.Tree, n *tree.Node, fr frame, dims map[string]int) ([]frame, error) {
	var frames []frame
	dim := -1
	for _, id := range n.SubtreeIDs {
		child, err := t.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("retrieving node %s: %w", id, err)
		}
		if child == nil {
			return nil, structuralErrorf("node %s not found", id)
		}
		if _, ok := child.FeatureCriterion.(feature.UndefinedCriterion); ok {
			continue
		}
		c, ok := child.FeatureCriterion.(feature.ContinuousCriterion)
		if !ok {
			return nil, structuralErrorf("node %s has no continuous criterion", id)
		}
		d, ok := dims[c.Feature().Name()]
		if !ok {
			return nil, structuralErrorf("node %s constrains unknown feature %s", id, c.Feature().Name())
		}
		if dim >= 0 && d != dim {
			return nil, structuralErrorf("children of node %s constrain different features", n.ID)
		}
		dim = d
		a, b := c.Interval()
		if math.IsNaN(a) || math.IsNaN(b) {
			return nil, structuralErrorf("node %s has a NaN bound", id)
		}
		low := append([]float64(nil), fr.low...)
		high := append([]float64(nil), fr.high...)
		low[d] = math.Max(low[d], a)
		high[d] = math.Min(high[d], b)
		frames = append(frames, frame{id, low, high})
	}
	if dim < 0 {
		return nil, structuralErrorf("node %s has no defined subtrees", n.ID)
	}
	if err := checkCoverage(n.ID, fr.low[dim], fr.high[dim], dim, frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// checkCoverage verifies that the non-empty child intervals on dimension d
// cover [low, high) exactly once
func checkCoverage(id string, low, high float64, d int, frames []frame) error {
	var ivs []Interval
	for _, fr := range frames {
		if fr.high[d] > fr.low[d] {
			ivs = append(ivs, Interval{fr.low[d], fr.high[d]})
		}
	}
	if !(high > low) {
		// the node itself is unreachable, so are its children
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Low < ivs[j].Low })
	next := low
	for _, iv := range ivs {
		if iv.Low > next {
			return structuralErrorf("children of node %s leave a gap in [%v, %v)", id, next, iv.Low)
		}
		if iv.Low < next {
			return structuralErrorf("children of node %s overlap in [%v, %v)", id, iv.Low, next)
		}
		next = iv.High
	}
	if next != high {
		return structuralErrorf("children of node %s leave a gap in [%v, %v)", id, next, high)
	}
	return nil
}

/*
Leaves returns the leaves of the index. The slice is shared and must not
be modified.
*/
func (idx *Index) Leaves() []Leaf {
	return idx.leaves
}

// Len returns the number of leaves
func (idx *Index) Len() int {
	return len(idx.leaves)
}

// Features returns the ordered features leaf bounds refer to
func (idx *Index) Features() []feature.Feature {
	return idx.features
}

// Dimensions returns the number of features
func (idx *Index) Dimensions() int {
	return len(idx.features)
}

/*
Values returns the predicted value of each leaf, in leaf order. The slice
is shared and must not be modified.
*/
func (idx *Index) Values() []float64 {
	return idx.values
}

/*
Leaf takes a point and returns the leaf containing it. A
*distribution.ConfigurationError is returned when the point does not have
one coordinate per feature or has NaN coordinates.
*/
func (idx *Index) Leaf(x []float64) (*Leaf, error) {
	if err := idx.CheckPoint(x); err != nil {
		return nil, err
	}
	for i := range idx.leaves {
		if idx.leaves[i].Contains(x) {
			return &idx.leaves[i], nil
		}
	}
	return nil, structuralErrorf("no leaf contains point %v", x)
}

/*
CheckPoint takes a point and returns a *distribution.ConfigurationError
if it does not have one coordinate per feature or any coordinate is NaN.
*/
func (idx *Index) CheckPoint(x []float64) error {
	if len(x) != len(idx.features) {
		return distribution.ConfigurationErrorf("point has %d coordinates, model has %d features", len(x), len(idx.features))
	}
	for d, v := range x {
		if math.IsNaN(v) {
			return distribution.ConfigurationErrorf("coordinate for feature %s is NaN", idx.features[d].Name())
		}
	}
	return nil
}

/*
Tiles returns a description of every leaf covering some point: the
interval it spans on each feature and its predicted value.
*/
func (idx *Index) Tiles() []Tile {
	tiles := make([]Tile, 0, len(idx.leaves))
	for _, l := range idx.leaves {
		if l.Empty() {
			continue
		}
		t := Tile{Bounds: make(map[string]Interval, len(idx.features)), Value: l.Value, Weight: l.Weight}
		for d, f := range idx.features {
			t.Bounds[f.Name()] = Interval{l.Low[d], l.High[d]}
		}
		tiles = append(tiles, t)
	}
	return tiles
}
