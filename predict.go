package canopy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pbanos/canopy/convolution"
	"github.com/pbanos/canopy/distribution"
	"github.com/pbanos/canopy/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

/*
Query is a point to predict: its nominal coordinates, one per feature of
the model, and the uncertainty distribution of each coordinate.
*/
type Query struct {
	Point         []float64
	Distributions []distribution.Distribution
}

/*
Result is the outcome of one query: its Estimate, or the error that
prevented computing it. A *convolution.NumericAnomaly comes with the
Estimate, which is then unreliable.
*/
type Result struct {
	Estimate *convolution.Estimate
	Err      error
}

/*
Queries takes a set of points and one set of distributions and returns a
query for every point with those distributions.
*/
func Queries(points [][]float64, dists []distribution.Distribution) []Query {
	queries := make([]Query, len(points))
	for i, p := range points {
		queries[i] = Query{Point: p, Distributions: dists}
	}
	return queries
}

/*
Predict takes a context and a batch of queries and returns the result of
each query, in the same order.

Every query is checked against the model's features before any is
computed: a *distribution.ConfigurationError naming the first bad query
is returned if a point or its distributions do not have one entry per
feature. Queries are then computed concurrently by the estimator's
workers. Errors affecting a single query, such as a coordinate outside its
distribution's support or a numeric anomaly, are reported in that query's
Result without affecting the others. If the context is done before the
batch completes its error is returned.
*/
func (h *Handle) Predict(ctx context.Context, queries []Query) ([]Result, error) {
	dims := h.forest.Dimensions()
	for i, q := range queries {
		if len(q.Point) != dims || len(q.Distributions) != dims {
			return nil, &distribution.ConfigurationError{
				Reason: fmt.Sprintf("query %d", i),
				Err:    fmt.Errorf("%d coordinates and %d distributions for %d features", len(q.Point), len(q.Distributions), dims),
			}
		}
	}
	e := h.est
	start := time.Now()
	opts := e.convolutionOptions()
	results := make([]Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range queries {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			est, err := convolution.ConvolveForest(h.forest, queries[i].Point, queries[i].Distributions, opts...)
			results[i] = Result{est, err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	e.metrics.Batch(h.id, elapsed)
	log := e.logger.WithField("model", h.id)
	var failed int
	for i, r := range results {
		outcome := outcomeOf(r.Err)
		if r.Estimate != nil {
			e.metrics.Query(h.id, outcome, math.Abs(r.Estimate.Mass-1), true)
		} else {
			e.metrics.Query(h.id, outcome, 0, false)
		}
		if r.Err != nil {
			failed++
			log.WithFields(logrus.Fields{"query": i, "outcome": outcome}).WithError(r.Err).Warn("predicting query")
		}
	}
	log.WithFields(logrus.Fields{
		"queries":  len(queries),
		"failed":   failed,
		"workers":  e.workers,
		"duration": elapsed,
	}).Debug("predicted batch")
	return results, nil
}

/*
PredictPoints takes a context, points and one set of distributions and
predicts every point with those distributions.
*/
func (h *Handle) PredictPoints(ctx context.Context, points [][]float64, dists []distribution.Distribution) ([]Result, error) {
	return h.Predict(ctx, Queries(points, dists))
}

func outcomeOf(err error) string {
	var na *convolution.NumericAnomaly
	var ce *distribution.ConfigurationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &na):
		return metrics.OutcomeAnomaly
	case errors.As(err, &ce):
		return metrics.OutcomeConfiguration
	}
	return metrics.OutcomeError
}
