// Package server exposes the costing engine over a small JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/piwi3910/LaserCost/internal/costing"
	"github.com/piwi3910/LaserCost/internal/model"
)

// maxBodyBytes bounds request bodies; nestings with full segment lists are large.
const maxBodyBytes = 32 << 20

// CostingRequest is the body of POST /api/costing. Omitted pricing and
// overrides fall back to the server defaults.
type CostingRequest struct {
	Nesting         model.NestingResult   `json:"nesting"`
	Pricing         *model.PricingConfig  `json:"pricing,omitempty"`
	Overrides       *model.JobOverrides   `json:"overrides,omitempty"`
	AllocationModel model.AllocationModel `json:"allocation_model,omitempty"`
	BufferFactor    float64               `json:"buffer_factor,omitempty"`
}

// CompareRequest is the body of POST /api/costing/compare. Without explicit
// scenarios the default what-if set around the base settings is compared.
type CompareRequest struct {
	CostingRequest
	Scenarios []costing.Scenario `json:"scenarios,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type server struct {
	svc     *costing.Service
	pricing model.PricingConfig
	logger  *zap.Logger
}

// NewRouter builds the API routes around a costing service. pricing is used
// for requests that carry no price table.
func NewRouter(svc *costing.Service, pricing model.PricingConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{svc: svc, pricing: pricing, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.handleHealth)
	r.Post("/api/costing", s.handleCosting)
	r.Post("/api/costing/compare", s.handleCompare)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"machine": s.svc.Machine().Name,
	})
}

func (s *server) handleCosting(w http.ResponseWriter, r *http.Request) {
	var req CostingRequest
	if !s.decode(w, r, &req) {
		return
	}
	pricing, overrides := s.inputs(req)

	summary, err := s.svc.ComputeCosting(r.Context(), req.Nesting, overrides, pricing, req.AllocationModel, req.BufferFactor)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !s.decode(w, r, &req) {
		return
	}
	pricing, overrides := s.inputs(req.CostingRequest)

	scenarios := req.Scenarios
	if len(scenarios) == 0 {
		scenarios = costing.BuildDefaultScenarios(costing.Scenario{
			Allocation:   req.AllocationModel,
			BufferFactor: req.BufferFactor,
			Overrides:    overrides,
		})
	}

	results, err := s.svc.CompareScenarios(r.Context(), scenarios, req.Nesting, pricing)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *server) inputs(req CostingRequest) (model.PricingConfig, model.JobOverrides) {
	pricing := s.pricing
	if req.Pricing != nil {
		pricing = *req.Pricing
	}
	overrides := model.DefaultJobOverrides()
	if req.Overrides != nil {
		overrides = *req.Overrides
	}
	return pricing, overrides
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// fail maps input errors to 400 and everything else to 500.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrInvalidSheet) || errors.Is(err, model.ErrUnknownAllocationModel) {
		status = http.StatusBadRequest
	} else {
		s.logger.Error("Costing request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
