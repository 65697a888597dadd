package partition

import (
	"context"
	"fmt"
	"math"

	"github.com/pbanos/canopy/distribution"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
)

/*
Forest is an ordered collection of indexes over the same features, one per
tree of an averaged ensemble, with the normalized weight of each tree in
the combination. A Forest is immutable.
*/
type Forest struct {
	indexes []*Index
	weights []float64
}

/*
NewForest takes a context, the trees of an ensemble and their weights (nil
for uniform weights), builds an Index for every tree and returns the
Forest. A *StructuralError is returned for an empty forest, for trees
that cannot be indexed and for trees whose features differ from the first
one's. Invalid weights yield a *distribution.ConfigurationError.
*/
func NewForest(ctx context.Context, trees []*tree.Tree, weights []float64) (*Forest, error) {
	if len(trees) == 0 {
		return nil, structuralErrorf("forest has no trees")
	}
	w, err := NormalizeWeights(weights, len(trees))
	if err != nil {
		return nil, err
	}
	f := &Forest{weights: w}
	for i, t := range trees {
		idx, err := New(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("indexing tree %d: %w", i, err)
		}
		if i > 0 && !sameFeatures(f.indexes[0].features, idx.features) {
			return nil, structuralErrorf("tree %d has features %v, tree 0 has %v", i, feature.Names(idx.features), feature.Names(f.indexes[0].features))
		}
		f.indexes = append(f.indexes, idx)
	}
	return f, nil
}

/*
NewForestFromIndexes takes indexes built with New and their weights (nil
for uniform weights) and returns the Forest they form.
*/
func NewForestFromIndexes(indexes []*Index, weights []float64) (*Forest, error) {
	if len(indexes) == 0 {
		return nil, structuralErrorf("forest has no trees")
	}
	for i, idx := range indexes[1:] {
		if !sameFeatures(indexes[0].features, idx.features) {
			return nil, structuralErrorf("tree %d has features %v, tree 0 has %v", i+1, feature.Names(idx.features), feature.Names(indexes[0].features))
		}
	}
	w, err := NormalizeWeights(weights, len(indexes))
	if err != nil {
		return nil, err
	}
	return &Forest{append([]*Index(nil), indexes...), w}, nil
}

/*
NormalizeWeights takes combination weights for n items and returns them
scaled to sum 1. Nil weights mean uniform ones. A
*distribution.ConfigurationError is returned when the count does not
match, a weight is negative or not finite, or all of them are 0.
*/
func NormalizeWeights(weights []float64, n int) ([]float64, error) {
	w := make([]float64, n)
	if weights == nil {
		for i := range w {
			w[i] = 1 / float64(n)
		}
		return w, nil
	}
	if len(weights) != n {
		return nil, distribution.ConfigurationErrorf("%d weights given for %d trees", len(weights), n)
	}
	var total float64
	for i, v := range weights {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, distribution.ConfigurationErrorf("weight %d is %v", i, v)
		}
		total += v
	}
	if total == 0 {
		return nil, distribution.ConfigurationErrorf("weights add up to 0")
	}
	for i, v := range weights {
		w[i] = v / total
	}
	return w, nil
}

func sameFeatures(a, b []feature.Feature) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name() != b[i].Name() {
			return false
		}
	}
	return true
}

// Indexes returns the index of every tree. The slice must not be modified.
func (f *Forest) Indexes() []*Index {
	return f.indexes
}

// Weights returns the normalized weights. The slice must not be modified.
func (f *Forest) Weights() []float64 {
	return f.weights
}

// Len returns the number of trees
func (f *Forest) Len() int {
	return len(f.indexes)
}

// Features returns the ordered features shared by all trees
func (f *Forest) Features() []feature.Feature {
	return f.indexes[0].features
}

// Dimensions returns the number of features
func (f *Forest) Dimensions() int {
	return len(f.indexes[0].features)
}

/*
Tiles takes a tree number and returns the tiles of that tree, or an error
if there is no such tree.
*/
func (f *Forest) Tiles(treeNumber int) ([]Tile, error) {
	if treeNumber < 0 || treeNumber >= len(f.indexes) {
		return nil, fmt.Errorf("tree %d out of range, forest has %d trees", treeNumber, len(f.indexes))
	}
	return f.indexes[treeNumber].Tiles(), nil
}
