// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package api is the thin adapter translating HTTP/WS frames into
// pipeline calls, per spec.md §4.7. Routes are registered as explicit
// method+pattern+metric-name tuples and wrapped with a latency-observing
// handler, following the teacher's registerHandler/instrumentHandler
// shape — but layered on stdlib net/http.ServeMux rather than
// gorilla/mux, since that import never actually appears in the teacher's
// go.mod (see DESIGN.md).
package api

import (
	"net/http"
	"time"

	"github.com/fastnoteapp/backend/internal/auth"
	"github.com/fastnoteapp/backend/internal/logging"
	"github.com/fastnoteapp/backend/internal/metrics"
	"github.com/fastnoteapp/backend/internal/pipeline"
	"github.com/fastnoteapp/backend/internal/realtime"
)

// Server is the HTTP+WS surface over a Pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	issuer   *auth.Issuer
	hub      *realtime.Hub
	log      logging.Logger
	metrics  *metrics.Registry
	mux      *http.ServeMux
}

// New builds the full route table.
func New(p *pipeline.Pipeline, issuer *auth.Issuer, hub *realtime.Hub, log logging.Logger, reg *metrics.Registry) *Server {
	s := &Server{pipeline: p, issuer: issuer, hub: hub, log: log, metrics: reg, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// route registers one method+pattern+metric-name tuple, wrapping handler
// with latency instrumentation only; it adds no method check (ServeMux's Go 1.22+
// "METHOD /pattern" syntax already filters method, so this stays a thin
// timing wrapper rather than reimplementing dispatch).
func (s *Server) route(pattern, metricName string, handler http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(metricName, handler))
}

func (s *Server) instrument(name string, handler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(rec, r)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, name, http.StatusText(rec.status), time.Since(start))
		}
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

func (s *Server) routes() {
	s.route("POST /api/v1/auth/register", "auth_register", s.handleRegister)
	s.route("POST /api/v1/auth/login", "auth_login", s.handleLogin)

	s.route("GET /api/v1/notes", "notes_list", s.withAuth(s.handleListNotes))
	s.route("POST /api/v1/notes", "notes_create", s.withAuth(s.handleCreateNote))
	s.route("GET /api/v1/notes/{id}", "notes_get", s.withAuth(s.handleGetNote))
	s.route("PUT /api/v1/notes/{id}", "notes_update", s.withAuth(s.handleUpdateNote))
	s.route("PUT /api/v1/notes/{id}/move", "notes_move", s.withAuth(s.handleMoveNote))
	s.route("DELETE /api/v1/notes/{id}", "notes_delete", s.withAuth(s.handleDeleteNote))

	s.route("GET /api/v1/folders", "folders_list", s.withAuth(s.handleListFolders))
	s.route("POST /api/v1/folders", "folders_create", s.withAuth(s.handleCreateFolder))
	s.route("PUT /api/v1/folders/{id}", "folders_update", s.withAuth(s.handleUpdateFolder))
	s.route("DELETE /api/v1/folders/{id}", "folders_delete", s.withAuth(s.handleDeleteFolder))

	s.mux.HandleFunc("GET /ws/notes", s.handleWSNotes)
	s.mux.HandleFunc("GET /ws/folders", s.handleWSFolders)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}
