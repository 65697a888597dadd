package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/metrics"
	"github.com/pbanos/canopy/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stump(t *testing.T) *tree.Tree {
	t.Helper()
	ctx := context.Background()
	tr, err := tree.Plant(ctx, tree.NewMemoryNodeStore(), feature.NewContinuousFeature("y"), feature.NewContinuousFeatures([]string{"x"}), nil)
	require.NoError(t, err)
	root, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	_, _, err = tr.Split(ctx, root, tr.Features[0], 0.5, tree.NewPrediction(1, 1), tree.NewPrediction(5, 1))
	require.NoError(t, err)
	return tr
}

func newTestServer(t *testing.T) (*httptest.Server, *canopy.Estimator) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg)
	require.NoError(t, err)
	est := canopy.New(canopy.WithMetrics(c))
	tr := stump(t)
	loader := func(ctx context.Context, id string) (*canopy.Model, error) {
		if id != "stump" {
			return nil, fmt.Errorf("loading %s: %w", id, ErrModelNotFound)
		}
		return &canopy.Model{Trees: []*tree.Tree{tr}}, nil
	}
	srv := httptest.NewServer(NewHandler(est, reg, WithLoader(loader)))
	t.Cleanup(srv.Close)
	return srv, est
}

func post(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	decoded := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestPredict(t *testing.T) {
	srv, est := newTestServer(t)
	resp, body := post(t, srv.URL+"/v1/models/stump/predict", `{
		"points": [[0.5], [9], [null]],
		"distributions": {"x": {"kind": "uniform", "half_width": 0.5}},
		"goal": "max", "beta": 1
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stump", body["model"])
	assert.Equal(t, []interface{}{"x"}, body["features"])
	results := body["results"].([]interface{})
	require.Len(t, results, 3)
	first := results[0].(map[string]interface{})
	assert.InDelta(t, 3, first["mean"], 1e-12)
	assert.InDelta(t, 4, first["variance"], 1e-12)
	assert.InDelta(t, 2, first["std"], 1e-12)
	assert.InDelta(t, 1, first["merit"], 1e-12)
	second := results[1].(map[string]interface{})
	assert.Equal(t, 5.0, second["merit"])
	third := results[2].(map[string]interface{})
	assert.Contains(t, third["error"], "NaN")
	assert.NotContains(t, third, "mean")

	_, ok := est.Handle("stump")
	assert.True(t, ok)

	resp, _ = post(t, srv.URL+"/v1/models/stump/predict", `{"points": [[0.1]]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConcurrentFirstRequestsLoadOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	est := canopy.New()
	tr := stump(t)
	var loads int32
	release := make(chan struct{})
	loader := func(ctx context.Context, id string) (*canopy.Model, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return &canopy.Model{Trees: []*tree.Tree{tr}}, nil
	}
	srv := httptest.NewServer(NewHandler(est, reg, WithLoader(loader)))
	defer srv.Close()

	const requests = 8
	codes := make([]int, requests)
	errs := make([]error, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/v1/models/stump/predict", "application/json", strings.NewReader(`{"points": [[1]]}`))
			if err != nil {
				errs[i] = err
				return
			}
			resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	close(release)
	wg.Wait()
	for i := range codes {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, codes[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.Equal(t, []string{"stump"}, est.Models())
}

func TestPredictErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	testCases := []struct {
		name   string
		model  string
		body   string
		status int
	}{
		{"malformed body", "stump", `{"points": `, http.StatusBadRequest},
		{"no points", "stump", `{"points": []}`, http.StatusBadRequest},
		{"unknown goal", "stump", `{"points": [[1]], "goal": "median"}`, http.StatusBadRequest},
		{"unknown model", "other", `{"points": [[1]]}`, http.StatusNotFound},
		{"unknown feature", "stump", `{"points": [[1]], "distributions": {"z": {"kind": "delta"}}}`, http.StatusBadRequest},
		{"dimension mismatch", "stump", `{"points": [[1, 2]]}`, http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+"/v1/models/"+tc.model+"/predict", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestTilesAndModels(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/models/stump/trees/0/tiles")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := map[string][]map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body["tiles"], 2)
	assert.Equal(t, 5.0, body["tiles"][1]["value"])

	resp, err = http.Get(srv.URL + "/v1/models/stump/trees/3/tiles")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/models")
	require.NoError(t, err)
	models := map[string][]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&models))
	resp.Body.Close()
	assert.Equal(t, []string{"stump"}, models["models"])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/models/stump", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := post(t, srv.URL+"/v1/models/stump/predict", `{"points": [[0.1]]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `canopy_predict_queries_total{model="stump",outcome="ok"} 1`)
}
