package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/pipeline"
)

// defaultRunLimit caps GET /v1/runs when no limit is given.
const defaultRunLimit = 30

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *StatusServer) NewHTTPHandler(authToken string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/runs", s.handleListRuns).Methods(http.MethodGet)
	r.HandleFunc("/v1/runs/{ds}", s.handleGetRun).Methods(http.MethodGet)
	r.HandleFunc("/v1/runs/{ds}/quality", s.handleGetQuality).Methods(http.MethodGet)
	r.HandleFunc("/v1/events/stream", s.handleEventStream).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.Use(RecoveryMiddleware(s.log), LoggingMiddleware(s.log))
	return AuthMiddleware(authToken, r)
}

// handleHealth handles GET /v1/health.
func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns handles GET /v1/runs?limit=N.
func (s *StatusServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.runs.List(limit)
	if err != nil {
		s.log.Error("list runs failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*ledger.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun handles GET /v1/runs/{ds}.
func (s *StatusServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ds := mux.Vars(r)["ds"]
	if err := pipeline.ValidateDS(ds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, err := s.runs.Get(ds)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no run for "+ds)
		return
	}
	if err != nil {
		s.log.Error("get run failed", "ds", ds, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleGetQuality handles GET /v1/runs/{ds}/quality.
func (s *StatusServer) handleGetQuality(w http.ResponseWriter, r *http.Request) {
	if s.quality == nil {
		writeError(w, http.StatusServiceUnavailable, "warehouse not configured")
		return
	}
	ds := mux.Vars(r)["ds"]
	if err := pipeline.ValidateDS(ds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.quality.QualityMetrics(r.Context(), ds)
	if err != nil {
		s.log.Error("get quality metrics failed", "ds", ds, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get quality metrics")
		return
	}
	if m == nil {
		m = []model.QualityMetrics{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ds": ds, "metrics": m})
}

// handleMetrics handles GET /metrics.
func (s *StatusServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not enabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
