package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus exposition (outside the versioned API)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// System status snapshot
		r.Get("/status", s.handleStatus)

		// Entity endpoints
		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)
			r.Post("/", s.handleRegisterEntity)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEntity)
				r.Delete("/", s.handleUnregisterEntity)
				r.Get("/pose", s.handleGetPose)
				r.Put("/pose", s.handleSetPose)
			})
		})

		// Primitive catalog endpoints
		r.Route("/primitives", func(r chi.Router) {
			r.Get("/", s.handleListPrimitives)
			r.Post("/", s.handleCreatePrimitive)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPrimitive)
				r.Put("/", s.handleUpdatePrimitive)
				r.Delete("/", s.handleDeletePrimitive)
			})
		})

		// Composition catalog endpoints
		r.Route("/compositions", func(r chi.Router) {
			r.Get("/", s.handleListCompositions)
			r.Post("/", s.handleCreateComposition)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetComposition)
				r.Put("/", s.handleUpdateComposition)
				r.Delete("/", s.handleDeleteComposition)
			})
		})

		// Rule endpoints (catalog persistence + live registration)
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRule)
				r.Put("/", s.handleUpdateRule)
				r.Delete("/", s.handleDeleteRule)
				r.Get("/events", s.handleRuleEvents)
			})
		})

		// WebSocket event stream
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
