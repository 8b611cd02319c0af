package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/{id}", s.handleGetDevice)
		})

		// Owner endpoints
		r.Route("/owners", func(r chi.Router) {
			r.Get("/", s.handleLookupOwner)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetOwner)
				r.Get("/devices", s.handleListOwnerDevices)
			})
		})

		// Registration transaction and its audit trail
		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", s.handleRegister)
			r.Get("/", s.handleListAttempts)
		})

		// WebSocket for live discovery and claim events
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
