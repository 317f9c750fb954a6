package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the chi router with all middleware and routes.
//
// Middleware order (outermost first):
//  1. Request ID: assigns or propagates X-Request-ID
//  2. Logging: one line per request with status and duration
//  3. Recovery: turns panics into 500 responses
//  4. CORS: answers preflight requests
//  5. Body limit: caps request bodies at 1 MB
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Post("/command", s.handleCommand)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Get("/{id}", s.handleGetSession)
	})

	r.Get("/commands", s.handleListCommands)
	r.Get("/schema/command", s.handleCommandSchema)
	r.Get("/ws", s.handleWebSocket)

	return r
}
