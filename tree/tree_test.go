package tree

import (
	"context"
	"math"
	"testing"

	"github.com/pbanos/canopy/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepTree builds y = 1 for x < 0.5 and y = 5 otherwise, with a second split
// on z under the upper branch.
func stepTree(t *testing.T) *Tree {
	t.Helper()
	ctx := context.Background()
	features := feature.NewContinuousFeatures([]string{"x", "z"})
	tr, err := Plant(ctx, NewMemoryNodeStore(), feature.NewContinuousFeature("y"), features, NewPrediction(3, 10))
	require.NoError(t, err)
	root, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	_, upper, err := tr.Split(ctx, root, features[0], 0.5, NewPrediction(1, 5), NewPrediction(5, 5))
	require.NoError(t, err)
	_, _, err = tr.Split(ctx, upper, features[1], 0, NewPrediction(4, 2), NewPrediction(6, 3))
	require.NoError(t, err)
	return tr
}

func TestPredictPoint(t *testing.T) {
	ctx := context.Background()
	tr := stepTree(t)
	cases := []struct {
		x    []float64
		want float64
	}{
		{[]float64{0.2, 10}, 1},
		{[]float64{0.5, -1}, 4},
		{[]float64{0.5, 0}, 6},
		{[]float64{math.Inf(1), math.Inf(1)}, 6},
		{[]float64{math.Inf(-1), 0}, 1},
	}
	for _, c := range cases {
		got, err := tr.PredictPoint(ctx, c.x)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%v", c.x)
	}
	_, err := tr.PredictPoint(ctx, []float64{1})
	assert.Error(t, err)
}

func TestPredictWithUndefinedBranch(t *testing.T) {
	ctx := context.Background()
	x := feature.NewContinuousFeature("x")
	tr, err := Plant(ctx, NewMemoryNodeStore(), feature.NewContinuousFeature("y"), []feature.Feature{x}, nil)
	require.NoError(t, err)
	root, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	_, err = tr.AddSubtree(ctx, root, feature.NewUndefinedCriterion(x), NewPrediction(7, 1))
	require.NoError(t, err)
	_, err = tr.AddSubtree(ctx, root, feature.NewContinuousCriterion(x, math.Inf(-1), math.Inf(1)), NewPrediction(2, 1))
	require.NoError(t, err)

	got, err := tr.PredictPoint(ctx, []float64{3})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	p, err := tr.Predict(ctx, emptySample{})
	require.NoError(t, err)
	assert.Equal(t, 7.0, p.Value())
}

func TestAddSubtreeRejectsMixedFeatures(t *testing.T) {
	ctx := context.Background()
	tr := stepTree(t)
	root, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	_, err = tr.AddSubtree(ctx, root, feature.NewUndefinedCriterion(tr.Features[1]), NewPrediction(0, 0))
	assert.Error(t, err)
}

func TestTraverse(t *testing.T) {
	ctx := context.Background()
	tr := stepTree(t)
	var topdown, bottomup []string
	require.NoError(t, tr.Traverse(ctx, false, func(_ context.Context, n *Node) error {
		topdown = append(topdown, n.ID)
		return nil
	}))
	require.NoError(t, tr.Traverse(ctx, true, func(_ context.Context, n *Node) error {
		bottomup = append(bottomup, n.ID)
		return nil
	}))
	require.Len(t, topdown, 5)
	require.Len(t, bottomup, 5)
	assert.Equal(t, tr.RootID, topdown[0])
	assert.Equal(t, tr.RootID, bottomup[4])

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err := tr.Traverse(cctx, false, func(context.Context, *Node) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTraverseMissingNode(t *testing.T) {
	ctx := context.Background()
	tr := stepTree(t)
	root, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	lower, err := tr.Get(ctx, root.SubtreeIDs[0])
	require.NoError(t, err)
	require.NoError(t, tr.Delete(ctx, lower))
	err = tr.Traverse(ctx, false, func(context.Context, *Node) error { return nil })
	assert.Error(t, err)
}

func TestTraverseCycle(t *testing.T) {
	ctx := context.Background()
	tr := stepTree(t)
	root, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	upper, err := tr.Get(ctx, root.SubtreeIDs[1])
	require.NoError(t, err)
	upper.SubtreeIDs = append(upper.SubtreeIDs, root.ID)
	var visits int
	err = tr.Traverse(ctx, false, func(context.Context, *Node) error {
		visits++
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reached twice")
	assert.Equal(t, 5, visits)
}

func TestString(t *testing.T) {
	s := stepTree(t).String()
	assert.Contains(t, s, "x < 0.500000")
	assert.Contains(t, s, "0.000000 <= z")
	assert.Contains(t, s, "6 (n=3)")
}

func TestMemoryNodeStoreCancelled(t *testing.T) {
	ns := NewMemoryNodeStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, ns.Create(ctx, &Node{}))
	_, err := ns.Get(ctx, "x")
	assert.Error(t, err)
}

type emptySample struct{}

func (emptySample) ValueFor(context.Context, feature.Feature) (interface{}, error) {
	return nil, nil
}
