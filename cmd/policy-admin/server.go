// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/jontk/slurm-policy-engine/internal/engine"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
	"github.com/jontk/slurm-policy-engine/pkg/logging"
	"github.com/jontk/slurm-policy-engine/pkg/metrics"
	"github.com/jontk/slurm-policy-engine/pkg/streaming"
)

// server holds everything an HTTP handler needs: the engine, the
// registries it reads snapshots from, the job-tracking table, and the
// decision-event stream, wired the same way the teacher's MockSlurmServer
// bundles its router, storage, and config behind one receiver.
type server struct {
	eng    *engine.Engine
	regs   *registries
	jobs   *jobStore
	hub    *streaming.Hub
	ws     *streaming.WebSocketServer
	sse    *streaming.SSEServer
	log    logging.Logger
	met    metrics.Collector
	router *mux.Router
}

func newServer(eng *engine.Engine, regs *registries, jobs *jobStore, hub *streaming.Hub, log logging.Logger, met metrics.Collector) *server {
	s := &server{
		eng:  eng,
		regs: regs,
		jobs: jobs,
		hub:  hub,
		ws:   streaming.NewWebSocketServer(hub),
		sse:  streaming.NewSSEServer(hub),
		log:  log,
		met:  met,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter lays out the admin surface the same way the teacher's
// MockSlurmServer.setupRouter does: a path-prefixed subrouter, one
// middleware chain applied with Use, one HandleFunc per route with an
// explicit Methods() call.
func (s *server) buildRouter() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.Use(s.traceMiddleware, s.loggingMiddleware, s.metricsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/qos", s.handleListQoS).Methods(http.MethodGet)
	v1.HandleFunc("/associations", s.handleListAssociations).Methods(http.MethodGet)
	v1.HandleFunc("/associations/lookup", s.handleAssociationLookup).Methods(http.MethodGet)
	v1.HandleFunc("/partitions", s.handleListPartitions).Methods(http.MethodGet)
	v1.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	v1.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)

	v1.HandleFunc("/jobs/validate", s.handleValidate).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/pending", s.handleUpdatePending).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/runnable/pre-select", s.handlePreSelect).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/runnable/post-select", s.handlePostSelect).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/submit", s.handleAddSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/submit", s.handleRemoveSubmit).Methods(http.MethodDelete)
	v1.HandleFunc("/jobs/{id}/begin", s.handleBegin).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/fini", s.handleFini).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/alter", s.handleAlter).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/timeout-check", s.handleTimeoutCheck).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{id}/max-nodes", s.handleMaxNodes).Methods(http.MethodGet)

	r.HandleFunc("/v1/stream/ws", s.ws.HandleWebSocket)
	r.HandleFunc("/v1/stream/sse", s.sse.HandleSSE).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	return r
}

type traceIDKey struct{}

// traceMiddleware stamps every request with a trace id, the same role
// uuid.NewString plays inside internal/engine's own recordDecision.
func (s *server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Trace-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Trace-Id", id)
		ctx := context.WithValue(r.Context(), traceIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func traceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "trace_id", traceIDFromContext(r.Context()), "duration", time.Since(start))
	})
}

func (s *server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.met.RecordRequest(r.Method, r.URL.Path)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.met.RecordResponse(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as an errorDTO. If err is (or wraps) a
// *errors.PolicyError, its own HTTPStatus mapping wins over the status
// the caller suggested, the same precedence the teacher's
// writeErrorResponse gives a typed API error over a generic one.
func writeError(w http.ResponseWriter, status int, err error) {
	dto := errorDTO{Code: string(errors.ErrorCodeUnknown), Message: err.Error()}
	if errors.GetErrorCode(err) != errors.ErrorCodeUnknown {
		pe := errors.WrapError(err)
		status = errors.HTTPStatus(pe)
		dto = errorDTO{Code: string(pe.Code), Message: pe.Message, Field: pe.Field}
	}
	writeJSON(w, status, dto)
}
