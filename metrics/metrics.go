/*
Package metrics provides the Prometheus collectors of the estimator:
model fits, prediction batches and per-query outcomes.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "canopy"

// Query outcomes
const (
	OutcomeOK            = "ok"
	OutcomeAnomaly       = "numeric_anomaly"
	OutcomeConfiguration = "configuration_error"
	OutcomeError         = "error"
)

/*
Collector groups the Prometheus metrics of an estimator. A nil *Collector
is valid and records nothing.
*/
type Collector struct {
	fits         *prometheus.CounterVec
	fitDuration  *prometheus.HistogramVec
	leaves       *prometheus.GaugeVec
	batches      *prometheus.HistogramVec
	queries      *prometheus.CounterVec
	leafMass     *prometheus.HistogramVec
	cachedModels prometheus.Gauge
}

/*
NewCollector creates the collectors and registers them on the given
registerer, returning an error if registration fails (for instance when a
second Collector is registered on the same registry).
*/
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		// Labels: model, status (ok, error)
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "fits_total",
			Help:      "Total model fits",
		}, []string{"model", "status"}),
		// Labels: model
		fitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "fit_duration_seconds",
			Help:      "Time to build the leaf indexes of a model",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"model"}),
		// Labels: model
		leaves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "leaves",
			Help:      "Total leaves across the trees of a fitted model",
		}, []string{"model"}),
		// Labels: model
		batches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "batch_duration_seconds",
			Help:      "Time to predict a batch of queries",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{"model"}),
		// Labels: model, outcome (ok, numeric_anomaly, configuration_error, error)
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "queries_total",
			Help:      "Total queries predicted by outcome",
		}, []string{"model", "outcome"}),
		// Labels: model
		leafMass: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "mass_deviation",
			Help:      "Absolute deviation from 1 of the total leaf probability of each query",
			Buckets:   []float64{1e-15, 1e-12, 1e-9, 1e-6, 1e-3, 1},
		}, []string{"model"}),
		cachedModels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "cached",
			Help:      "Models currently cached by the estimator",
		}),
	}
	for _, col := range []prometheus.Collector{c.fits, c.fitDuration, c.leaves, c.batches, c.queries, c.leafMass, c.cachedModels} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Fit records a model fit, its duration and, when it succeeded, its leaves
func (c *Collector) Fit(model string, d time.Duration, leaves int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.fits.WithLabelValues(model, "error").Inc()
		return
	}
	c.fits.WithLabelValues(model, "ok").Inc()
	c.fitDuration.WithLabelValues(model).Observe(d.Seconds())
	c.leaves.WithLabelValues(model).Set(float64(leaves))
}

// Forget drops the series of a model that is no longer cached
func (c *Collector) Forget(model string) {
	if c == nil {
		return
	}
	c.leaves.DeleteLabelValues(model)
}

// Cached sets the number of cached models
func (c *Collector) Cached(n int) {
	if c == nil {
		return
	}
	c.cachedModels.Set(float64(n))
}

// Batch records the duration of a prediction batch
func (c *Collector) Batch(model string, d time.Duration) {
	if c == nil {
		return
	}
	c.batches.WithLabelValues(model).Observe(d.Seconds())
}

// Query records the outcome of one query and, when known, how far its
// total leaf probability deviates from 1
func (c *Collector) Query(model, outcome string, massDeviation float64, known bool) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(model, outcome).Inc()
	if known {
		c.leafMass.WithLabelValues(model).Observe(massDeviation)
	}
}

// CachedModels returns the gauge of cached models
func (c *Collector) CachedModels() prometheus.Gauge {
	return c.cachedModels
}
