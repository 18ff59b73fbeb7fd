package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/export", s.exportSession)

			r.Post("/message", s.sendMessage) // streaming response
			r.Post("/ask/{questionID}", s.answerAsk)
			r.Post("/abort", s.abortSession)

			r.Get("/todo", s.getTodos)
			r.Put("/todo", s.putTodos)
		})
	})

	r.Get("/provider", s.listProviders)
	r.Get("/tool", s.listTools)

	// Lifecycle event streaming (SSE).
	r.Get("/event", s.events)

	r.Get("/health", s.health)
}
