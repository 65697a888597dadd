package json

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const model = `{
  "features": ["x", "z"],
  "weights": [1, 3],
  "trees": [
    {"rootID": "r", "label": "y", "nodes": [
      {"id": "r", "stIds": ["a", "b"], "f": "x"},
      {"id": "a", "pId": "r", "c": {"t": "continuous", "f": "x", "a": "-Inf", "b": "0.5"}, "pred": {"v": 1, "w": 4}},
      {"id": "b", "pId": "r", "c": {"t": "continuous", "f": "x", "a": "0.5", "b": "+Inf"}, "pred": {"v": 5, "w": 6}}
    ]},
    {"rootID": "r", "label": "y", "nodes": [
      {"id": "r", "stIds": ["u", "a", "b"], "f": "z"},
      {"id": "u", "pId": "r", "c": {"t": "undefined", "f": "z"}, "pred": {"v": 0}},
      {"id": "a", "pId": "r", "c": {"t": "continuous", "f": "z", "b": "0.3"}, "pred": {"v": 2}},
      {"id": "b", "pId": "r", "c": {"t": "continuous", "f": "z", "a": "0.3"}, "pred": {"v": 4}}
    ]}
  ]
}`

func TestReadForest(t *testing.T) {
	ctx := context.Background()
	f, err := ReadForest(ctx, strings.NewReader(model), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "z"}, feature.Names(f.Features))
	assert.Equal(t, []float64{1, 3}, f.Weights)
	require.Len(t, f.Trees, 2)
	assert.Equal(t, "y", f.Trees[0].Label.Name())

	v, err := f.Trees[0].PredictPoint(ctx, []float64{0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	v, err = f.Trees[1].PredictPoint(ctx, []float64{0.5, 0.2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	n, err := f.Trees[1].Get(ctx, "a")
	require.NoError(t, err)
	a, b := n.FeatureCriterion.(feature.ContinuousCriterion).Interval()
	assert.True(t, math.IsInf(a, -1))
	assert.Equal(t, 0.3, b)
	n, err = f.Trees[1].Get(ctx, "u")
	require.NoError(t, err)
	assert.Implements(t, (*feature.UndefinedCriterion)(nil), n.FeatureCriterion)
}

func TestForestRoundTrip(t *testing.T) {
	ctx := context.Background()
	features := feature.NewContinuousFeatures([]string{"x"})
	threshold := math.Nextafter(0.1, math.Inf(1))
	tr, err := tree.Plant(ctx, tree.NewMemoryNodeStore(), feature.NewContinuousFeature("y"), features, nil)
	require.NoError(t, err)
	root, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	_, _, err = tr.Split(ctx, root, features[0], threshold, tree.NewPrediction(-1.25, 3), tree.NewPrediction(1e-9, 7))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, WriteForestToFile(ctx, &Forest{Features: features, Trees: []*tree.Tree{tr}}, path))
	f, err := ReadForestFromFile(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, f.Weights)
	require.Len(t, f.Trees, 1)

	for _, x := range []float64{0.1, threshold, math.Inf(-1), math.Inf(1)} {
		want, err := tr.PredictPoint(ctx, []float64{x})
		require.NoError(t, err)
		got, err := f.Trees[0].PredictPoint(ctx, []float64{x})
		require.NoError(t, err)
		assert.Equal(t, want, got, "at %v", x)
	}
	back, err := f.Trees[0].Get(ctx, root.SubtreeIDs[1])
	require.NoError(t, err)
	a, _ := back.FeatureCriterion.(feature.ContinuousCriterion).Interval()
	assert.Equal(t, threshold, a)
	assert.Equal(t, 7, back.Prediction.Weight())
}

func TestReadForestErrors(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"features":`,
		"no features":     `{"features": [], "trees": [{"rootID": "r", "nodes": []}]}`,
		"no trees":        `{"features": ["x"], "trees": []}`,
		"no root":         `{"features": ["x"], "trees": [{"nodes": []}]}`,
		"unknown feature": `{"features": ["x"], "trees": [{"rootID": "r", "nodes": [{"id": "r", "f": "w"}]}]}`,
		"unknown criterion feature": `{"features": ["x"], "trees": [{"rootID": "r", "nodes": [
			{"id": "a", "c": {"t": "continuous", "f": "w", "a": "0"}}]}]}`,
		"bad bound": `{"features": ["x"], "trees": [{"rootID": "r", "nodes": [
			{"id": "a", "c": {"t": "continuous", "f": "x", "a": "zero"}}]}]}`,
		"bad criterion type": `{"features": ["x"], "trees": [{"rootID": "r", "nodes": [
			{"id": "a", "c": {"t": "discrete", "f": "x"}}]}]}`,
		"node without id": `{"features": ["x"], "trees": [{"rootID": "r", "nodes": [{"pred": {"v": 1}}]}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadForest(context.Background(), strings.NewReader(doc), nil)
			assert.Error(t, err)
		})
	}
}

func TestCriteriaEncoding(t *testing.T) {
	x := feature.NewContinuousFeature("x")
	ced := NewCriteriaEncodeDecoder([]feature.Feature{x})
	data, err := ced.Encode(feature.NewContinuousCriterion(x, math.Inf(-1), 2.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"continuous","f":"x","a":"-Inf","b":"2.5"}`, string(data))

	data, err = ced.Encode(feature.NewUndefinedCriterion(x))
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"undefined","f":"x"}`, string(data))

	var buf bytes.Buffer
	buf.WriteString(`{"t":"continuous","f":"x","a":"1e-3","b":"Inf"}`)
	c, err := ced.Decode(buf.Bytes())
	require.NoError(t, err)
	a, b := c.(feature.ContinuousCriterion).Interval()
	assert.Equal(t, 0.001, a)
	assert.True(t, math.IsInf(b, 1))
}
