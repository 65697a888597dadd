/*
Package canopy estimates the expectation and variance of an objective
modelled by a regression tree or an averaged forest of them when the
inputs of the objective are uncertain.

An Estimator fits models, turning their trees into leaf indexes once and
caching them under the model's id, and predicts robust estimates for
batches of query points, each carrying one uncertainty distribution per
input feature. Results can be turned into robust merits that penalize or
reward variability depending on whether the objective is minimized or
maximized.
*/
package canopy

import (
	"io"
	"runtime"
	"sync"

	"github.com/pbanos/canopy/convolution"
	"github.com/pbanos/canopy/metrics"
	"github.com/sirupsen/logrus"
)

/*
Estimator fits models and predicts robust estimates with them. It is safe
for concurrent use.
*/
type Estimator struct {
	logger    logrus.FieldLogger
	workers   int
	tolerance float64
	breakdown bool
	metrics   *metrics.Collector

	lock   sync.RWMutex
	models map[string]*Handle
}

// Option configures an Estimator
type Option func(*Estimator)

// WithLogger sets the logger, which otherwise discards every entry
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Estimator) {
		e.logger = l
	}
}

// WithWorkers sets how many queries are computed concurrently, by default
// runtime.GOMAXPROCS(0). Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTolerance sets the accepted deviation from 1 of the total leaf
// probability before a query is reported as a numeric anomaly
func WithTolerance(t float64) Option {
	return func(e *Estimator) {
		e.tolerance = t
	}
}

// WithBreakdown keeps per-leaf probabilities and per-tree estimates in the
// results
func WithBreakdown() Option {
	return func(e *Estimator) {
		e.breakdown = true
	}
}

// WithMetrics records fits and predictions on the given collector
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Estimator) {
		e.metrics = c
	}
}

/*
New takes options and returns an Estimator with an empty model cache.
*/
func New(opts ...Option) *Estimator {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	e := &Estimator{
		logger:    silent,
		workers:   runtime.GOMAXPROCS(0),
		tolerance: convolution.DefaultTolerance,
		models:    make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Estimator) convolutionOptions() []convolution.Option {
	opts := []convolution.Option{convolution.WithTolerance(e.tolerance)}
	if e.breakdown {
		opts = append(opts, convolution.WithBreakdown())
	}
	return opts
}
