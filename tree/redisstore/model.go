package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	tjson "github.com/pbanos/canopy/tree/json"
	"github.com/redis/go-redis/v9"
)

type manifest struct {
	Features []string      `json:"features"`
	Weights  []float64     `json:"weights,omitempty"`
	Trees    []manifestRef `json:"trees"`
}

type manifestRef struct {
	RootID string `json:"rootID"`
	Label  string `json:"label,omitempty"`
}

// ErrModelNotFound is returned by LoadForest for model ids without a manifest
var ErrModelNotFound = errors.New("model not found")

func manifestKey(prefix, modelID string) string {
	return fmt.Sprintf("%s:manifest:%s", prefix, modelID)
}

// treePrefix is the key prefix for the nodes of one tree of a model, so
// node ids only need to be unique within their tree. Manifests and nodes
// live under different roots so no model id can name a node key.
func treePrefix(prefix, modelID string, i int) string {
	return fmt.Sprintf("%s:nodes:%s:%d", prefix, modelID, i)
}

func encoder(features []feature.Feature) NodeEncodeDecoder {
	return tjson.NewNodeEncodeDecoder(tjson.NewCriteriaEncodeDecoder(features), features)
}

/*
SaveForest takes a context, a redis client, a key prefix, a model id and a
forest, and copies the nodes of every tree of the forest onto redis under
prefix:nodes:<model id>:<tree number>:<node id>, then stores the model
manifest (features, weights, root id and label of each tree) under
prefix:manifest:<model id>. Saving over an existing model id replaces its
manifest; nodes of trees no longer referenced are left behind.
*/
func SaveForest(ctx context.Context, rc redis.UniversalClient, prefix, modelID string, f *tjson.Forest) error {
	enc := encoder(f.Features)
	m := &manifest{Features: feature.Names(f.Features), Weights: f.Weights}
	for i, t := range f.Trees {
		store := New(rc, treePrefix(prefix, modelID, i), enc)
		err := t.Traverse(ctx, false, func(ctx context.Context, n *tree.Node) error {
			return store.Store(ctx, n)
		})
		if err != nil {
			return fmt.Errorf("saving tree %d of model %s: %v", i, modelID, err)
		}
		ref := manifestRef{RootID: t.RootID}
		if t.Label != nil {
			ref.Label = t.Label.Name()
		}
		m.Trees = append(m.Trees, ref)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest of model %s: %v", modelID, err)
	}
	err = rc.Set(ctx, manifestKey(prefix, modelID), data, 0).Err()
	if err != nil {
		return fmt.Errorf("saving manifest of model %s: %w", modelID, err)
	}
	return nil
}

/*
LoadForest takes a context, a redis client, a key prefix and a model id
and returns the forest saved by SaveForest under them. Its trees read their
nodes from redis on demand. ErrModelNotFound is returned when there is no
manifest for the model id.
*/
func LoadForest(ctx context.Context, rc redis.UniversalClient, prefix, modelID string) (*tjson.Forest, error) {
	data, err := rc.Get(ctx, manifestKey(prefix, modelID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("loading model %s: %w", modelID, ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading manifest of model %s: %w", modelID, err)
	}
	m := &manifest{}
	if err = json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decoding manifest of model %s: %v", modelID, err)
	}
	f := &tjson.Forest{Features: feature.NewContinuousFeatures(m.Features), Weights: m.Weights}
	enc := encoder(f.Features)
	for i, ref := range m.Trees {
		var label feature.Feature
		if ref.Label != "" {
			label = feature.NewContinuousFeature(ref.Label)
		}
		store := New(rc, treePrefix(prefix, modelID, i), enc)
		f.Trees = append(f.Trees, tree.New(ref.RootID, store, label, f.Features))
	}
	return f, nil
}
