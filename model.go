package canopy

import (
	"context"
	"fmt"
	"time"

	"github.com/pbanos/canopy/distribution"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/partition"
	"github.com/pbanos/canopy/tree"
	"github.com/sirupsen/logrus"
)

/*
Model is a fitted surrogate of the objective: one regression tree or the
trees of an averaged forest, with optional combination weights (nil means
uniform). ID identifies the model in the estimator's cache.
*/
type Model struct {
	ID      string
	Trees   []*tree.Tree
	Weights []float64
}

/*
Handle is a fitted model ready to predict. It holds the leaf indexes of
the model's trees and is immutable, so it can be used concurrently and
keeps working after its model is forgotten or refitted.
*/
type Handle struct {
	id     string
	forest *partition.Forest
	est    *Estimator
}

/*
Fit takes a context and a model, builds the leaf index of every tree and
caches the result under the model's id, replacing any previous entry for
it. It returns the Handle to predict with the model, or a
*partition.StructuralError for malformed trees and a
*distribution.ConfigurationError for an empty id or invalid weights. A
failed Fit leaves the cache untouched.
*/
func (e *Estimator) Fit(ctx context.Context, m *Model) (*Handle, error) {
	if m == nil || m.ID == "" {
		return nil, distribution.ConfigurationErrorf("model has no id")
	}
	log := e.logger.WithFields(logrus.Fields{"model": m.ID, "trees": len(m.Trees)})
	start := time.Now()
	forest, err := partition.NewForest(ctx, m.Trees, m.Weights)
	elapsed := time.Since(start)
	if err != nil {
		e.metrics.Fit(m.ID, elapsed, 0, err)
		log.WithError(err).Warn("fitting model")
		return nil, fmt.Errorf("fitting model %s: %w", m.ID, err)
	}
	var leaves int
	for _, idx := range forest.Indexes() {
		leaves += idx.Len()
	}
	h := &Handle{id: m.ID, forest: forest, est: e}
	e.lock.Lock()
	_, replaced := e.models[m.ID]
	e.models[m.ID] = h
	cached := len(e.models)
	e.lock.Unlock()
	e.metrics.Fit(m.ID, elapsed, leaves, nil)
	e.metrics.Cached(cached)
	log.WithFields(logrus.Fields{
		"leaves":   leaves,
		"features": forest.Dimensions(),
		"replaced": replaced,
		"duration": elapsed,
	}).Debug("fitted model")
	return h, nil
}

/*
Handle takes a model id and returns the cached Handle for it and whether
it was found.
*/
func (e *Estimator) Handle(id string) (*Handle, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	h, ok := e.models[id]
	return h, ok
}

/*
Forget takes a model id and drops its Handle from the cache, returning
whether there was one. Handles already obtained keep working.
*/
func (e *Estimator) Forget(id string) bool {
	e.lock.Lock()
	_, ok := e.models[id]
	delete(e.models, id)
	cached := len(e.models)
	e.lock.Unlock()
	if ok {
		e.metrics.Forget(id)
		e.metrics.Cached(cached)
		e.logger.WithField("model", id).Debug("forgot model")
	}
	return ok
}

// Models returns the ids of the cached models
func (e *Estimator) Models() []string {
	e.lock.RLock()
	defer e.lock.RUnlock()
	ids := make([]string, 0, len(e.models))
	for id := range e.models {
		ids = append(ids, id)
	}
	return ids
}

// ID returns the id of the model
func (h *Handle) ID() string {
	return h.id
}

// Features returns the ordered input features of the model
func (h *Handle) Features() []feature.Feature {
	return h.forest.Features()
}

// Trees returns the number of trees of the model
func (h *Handle) Trees() int {
	return h.forest.Len()
}

// Forest returns the leaf indexes of the model
func (h *Handle) Forest() *partition.Forest {
	return h.forest
}

/*
Tiles takes a tree number and returns the tiles of that tree of the model:
the bounds on each feature and the prediction of each of its leaves.
*/
func (h *Handle) Tiles(treeNumber int) ([]partition.Tile, error) {
	return h.forest.Tiles(treeNumber)
}

/*
Distributions takes raw distribution specs by feature name and returns one
distribution per feature of the model, as distribution.ParseSet does.
*/
func (h *Handle) Distributions(specs map[string]interface{}) ([]distribution.Distribution, error) {
	return distribution.ParseSet(specs, feature.Names(h.forest.Features()))
}
