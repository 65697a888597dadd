/*
Package server exposes an estimator over HTTP:

	GET    /v1/models                        ids of the cached models
	POST   /v1/models/{id}/predict           robust estimates for a batch of points
	GET    /v1/models/{id}/trees/{n}/tiles   leaves of a tree of a model
	DELETE /v1/models/{id}                   forget a cached model
	GET    /metrics                          Prometheus metrics
	GET    /healthz                          liveness

Models missing from the estimator's cache are loaded with the server's
Loader, if any, and fitted on first use.
*/
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/convolution"
	"github.com/pbanos/canopy/distribution"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/partition"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrModelNotFound is returned by loaders for unknown model ids
var ErrModelNotFound = errors.New("model not found")

/*
Loader takes a context and a model id and returns the model to fit under
that id, or an error wrapping ErrModelNotFound if there is none.
*/
type Loader func(ctx context.Context, id string) (*canopy.Model, error)

/*
PredictRequest is the body of a predict request. Points hold one
coordinate per feature of the model, null for undefined ones.
Distributions map feature names to distribution specs; features without
one have no uncertainty. When Goal is set the response includes the
robust merit of every point.
*/
type PredictRequest struct {
	Points        [][]*float64           `json:"points" validate:"required,min=1"`
	Distributions map[string]interface{} `json:"distributions"`
	Goal          string                 `json:"goal" validate:"omitempty,oneof=min max"`
	Beta          float64                `json:"beta"`
	Normalize     bool                   `json:"normalize"`
}

// PredictResult is the prediction for one point
type PredictResult struct {
	*convolution.Estimate
	Std   *float64 `json:"std,omitempty"`
	Merit *float64 `json:"merit,omitempty"`
	Error string   `json:"error,omitempty"`
}

// PredictResponse is the body of the response to a predict request
type PredictResponse struct {
	Model    string          `json:"model"`
	Features []string        `json:"features"`
	Results  []PredictResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type server struct {
	estimator *canopy.Estimator
	loader    Loader
	logger    logrus.FieldLogger
	validate  *validator.Validate
	loads     singleflight.Group
}

// Option configures the handler returned by NewHandler
type Option func(*server)

// WithLoader sets the loader for models missing from the cache
func WithLoader(l Loader) Option {
	return func(s *server) {
		s.loader = l
	}
}

// WithLogger sets the logger for requests and errors
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *server) {
		s.logger = l
	}
}

/*
NewHandler takes an estimator, the gatherer to expose on /metrics and
options, and returns the HTTP handler serving them.
*/
func NewHandler(est *canopy.Estimator, gatherer prometheus.Gatherer, opts ...Option) http.Handler {
	s := &server{estimator: est, logger: logrus.StandardLogger(), validate: validator.New()}
	for _, opt := range opts {
		opt(s)
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1/models", func(r chi.Router) {
		r.Get("/", s.listModels)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.forgetModel)
			r.Post("/predict", s.predict)
			r.Get("/trees/{n}/tiles", s.tiles)
		})
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("served request")
	})
}

func (s *server) listModels(w http.ResponseWriter, r *http.Request) {
	ids := s.estimator.Models()
	sort.Strings(ids)
	s.respond(w, http.StatusOK, map[string][]string{"models": ids})
}

func (s *server) forgetModel(w http.ResponseWriter, r *http.Request) {
	if !s.estimator.Forget(chi.URLParam(r, "id")) {
		s.fail(w, http.StatusNotFound, ErrModelNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handle returns the cached handle for the model id, loading and fitting
// the model first if needed
func (s *server) handle(ctx context.Context, id string) (*canopy.Handle, error) {
	if h, ok := s.estimator.Handle(id); ok {
		return h, nil
	}
	if s.loader == nil {
		return nil, fmt.Errorf("model %s: %w", id, ErrModelNotFound)
	}
	// concurrent misses on one id share a single load and fit
	v, err, _ := s.loads.Do(id, func() (interface{}, error) {
		if h, ok := s.estimator.Handle(id); ok {
			return h, nil
		}
		m, err := s.loader(ctx, id)
		if err != nil {
			return nil, err
		}
		m.ID = id
		return s.estimator.Fit(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return v.(*canopy.Handle), nil
}

func (s *server) predict(w http.ResponseWriter, r *http.Request) {
	req := &PredictRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("decoding request: %v", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	h, err := s.handle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	dists, err := h.Distributions(req.Distributions)
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	points := make([][]float64, len(req.Points))
	for i, p := range req.Points {
		points[i] = make([]float64, len(p))
		for d, v := range p {
			if v == nil {
				points[i][d] = math.NaN()
			} else {
				points[i][d] = *v
			}
		}
	}
	results, err := h.PredictPoints(r.Context(), points, dists)
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	var merits []float64
	if req.Goal != "" {
		merits, err = canopy.Merits(results, req.Goal, req.Beta, req.Normalize)
		if err != nil {
			s.fail(w, statusOf(err), err)
			return
		}
	}
	resp := &PredictResponse{Model: h.ID(), Features: feature.Names(h.Features()), Results: make([]PredictResult, len(results))}
	for i, res := range results {
		pr := PredictResult{}
		if res.Estimate != nil && finite(res.Estimate) {
			pr.Estimate = res.Estimate
			std := res.Estimate.Std()
			pr.Std = &std
		}
		if merits != nil && !math.IsNaN(merits[i]) {
			pr.Merit = &merits[i]
		}
		if res.Err != nil {
			pr.Error = res.Err.Error()
		}
		resp.Results[i] = pr
	}
	s.respond(w, http.StatusOK, resp)
}

func (s *server) tiles(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid tree number: %v", err))
		return
	}
	h, err := s.handle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	tiles, err := h.Tiles(n)
	if err != nil {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	s.respond(w, http.StatusOK, map[string][]partition.Tile{"tiles": tiles})
}

// finite reports whether the estimate can be encoded as JSON
func finite(e *convolution.Estimate) bool {
	for _, v := range []float64{e.Mean, e.Variance, e.Within, e.Between, e.Mass} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func statusOf(err error) int {
	var ce *distribution.ConfigurationError
	var se *partition.StructuralError
	switch {
	case errors.Is(err, ErrModelNotFound):
		return http.StatusNotFound
	case errors.As(err, &ce):
		return http.StatusBadRequest
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("serving request")
	}
	s.respond(w, status, &errorResponse{err.Error()})
}

func (s *server) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Warn("encoding response")
	}
}
