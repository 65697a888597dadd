package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Fit("m", 3*time.Millisecond, 12, nil)
	c.Fit("m", time.Millisecond, 0, errors.New("boom"))
	c.Cached(1)
	c.Batch("m", time.Millisecond)
	c.Query("m", OutcomeOK, 1e-16, true)
	c.Query("m", OutcomeOK, 0, true)
	c.Query("m", OutcomeConfiguration, 0, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fits.WithLabelValues("m", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fits.WithLabelValues("m", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.leaves.WithLabelValues("m")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.queries.WithLabelValues("m", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queries.WithLabelValues("m", OutcomeConfiguration)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cachedModels))
	assert.Equal(t, 1, testutil.CollectAndCount(c.leafMass))

	c.Forget("m")
	assert.Equal(t, 0, testutil.CollectAndCount(c.leaves))

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Fit("m", 0, 1, nil)
		c.Forget("m")
		c.Cached(0)
		c.Batch("m", 0)
		c.Query("m", OutcomeOK, 0, true)
	})
}
