package redisstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	tjson "github.com/pbanos/canopy/tree/json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNodeStore(t *testing.T) {
	ctx := context.Background()
	mr, client := setup(t)
	features := feature.NewContinuousFeatures([]string{"x"})
	store := New(client, "nodes", encoder(features))

	n := &tree.Node{Prediction: tree.NewPrediction(2.5, 4)}
	require.NoError(t, store.Create(ctx, n))
	require.NotEmpty(t, n.ID)
	assert.True(t, mr.Exists("nodes:"+n.ID))

	got, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2.5, got.Prediction.Value())
	assert.Equal(t, 4, got.Prediction.Weight())

	n.SubtreeIDs = []string{"a", "b"}
	n.SubtreeFeature = features[0]
	require.NoError(t, store.Store(ctx, n))
	got, err = store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.SubtreeIDs)
	assert.Equal(t, "x", got.SubtreeFeature.Name())

	require.NoError(t, store.Delete(ctx, n))
	got, err = store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, store.Close(ctx))
}

func TestNodeStoreCorruptNode(t *testing.T) {
	ctx := context.Background()
	mr, client := setup(t)
	require.NoError(t, mr.Set("nodes:bad", "{"))
	_, err := New(client, "nodes", encoder(nil)).Get(ctx, "bad")
	assert.Error(t, err)
}

const model = `{"features": ["x"], "weights": [2], "trees": [
  {"rootID": "r", "label": "y", "nodes": [
    {"id": "r", "stIds": ["a", "b"], "f": "x"},
    {"id": "a", "pId": "r", "c": {"t": "continuous", "f": "x", "b": "0.5"}, "pred": {"v": 1}},
    {"id": "b", "pId": "r", "c": {"t": "continuous", "f": "x", "a": "0.5"}, "pred": {"v": 5}}
  ]},
  {"rootID": "r", "label": "y", "nodes": [
    {"id": "r", "pred": {"v": 9}}
  ]}
]}`

func TestSaveLoadForest(t *testing.T) {
	ctx := context.Background()
	mr, client := setup(t)
	f, err := tjson.ReadForest(ctx, strings.NewReader(model), nil)
	require.NoError(t, err)
	require.NoError(t, SaveForest(ctx, client, "canopy", "m1", f))
	assert.True(t, mr.Exists("canopy:manifest:m1"))
	assert.True(t, mr.Exists("canopy:nodes:m1:0:a"))
	assert.True(t, mr.Exists("canopy:nodes:m1:1:r"))

	loaded, err := LoadForest(ctx, client, "canopy", "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, feature.Names(loaded.Features))
	assert.Equal(t, []float64{2}, loaded.Weights)
	require.Len(t, loaded.Trees, 2)
	assert.Equal(t, "y", loaded.Trees[0].Label.Name())
	for _, x := range []float64{0, 0.5, 3} {
		want, err := f.Trees[0].PredictPoint(ctx, []float64{x})
		require.NoError(t, err)
		got, err := loaded.Trees[0].PredictPoint(ctx, []float64{x})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	v, err := loaded.Trees[1].PredictPoint(ctx, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)
}

func TestModelIDsDoNotOverlapNodes(t *testing.T) {
	ctx := context.Background()
	_, client := setup(t)
	f, err := tjson.ReadForest(ctx, strings.NewReader(model), nil)
	require.NoError(t, err)
	// "0:r" spells the node key suffix of the root of the first tree of "model"
	require.NoError(t, SaveForest(ctx, client, "canopy", "model", f))
	require.NoError(t, SaveForest(ctx, client, "canopy", "0:r", f))
	for _, id := range []string{"model", "0:r"} {
		loaded, err := LoadForest(ctx, client, "canopy", id)
		require.NoError(t, err, id)
		require.Len(t, loaded.Trees, 2, id)
		v, err := loaded.Trees[0].PredictPoint(ctx, []float64{3})
		require.NoError(t, err, id)
		assert.Equal(t, 5.0, v, id)
	}
}

func TestLoadForestNotFound(t *testing.T) {
	_, client := setup(t)
	_, err := LoadForest(context.Background(), client, "canopy", "nope")
	assert.True(t, errors.Is(err, ErrModelNotFound))
}
