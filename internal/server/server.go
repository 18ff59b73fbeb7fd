// Package server provides the HTTP API over sessions and streams.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/session"
	"github.com/parley-ai/parley/internal/tool"
)

// Config holds server configuration.
type Config struct {
	Port         int
	Host         string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:        7683,
		Host:        "127.0.0.1",
		EnableCORS:  true,
		ReadTimeout: 30 * time.Second,
		// No write timeout: message streams and SSE are long-lived.
		WriteTimeout: 0,
	}
}

// Server is the HTTP server.
type Server struct {
	config       *Config
	router       *chi.Mux
	httpSrv      *http.Server
	sessions     *session.Service
	orchestrator *session.Orchestrator
	providers    *provider.Registry
	tools        *tool.Registry
	bus          *event.Bus
	log          zerolog.Logger
}

// New creates a new Server instance.
func New(cfg *Config, sessions *session.Service, orchestrator *session.Orchestrator, providers *provider.Registry, tools *tool.Registry, bus *event.Bus) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config:       cfg,
		router:       chi.NewRouter(),
		sessions:     sessions,
		orchestrator: orchestrator,
		providers:    providers,
		tools:        tools,
		bus:          bus,
		log:          logging.For("server"),
	}

	s.router.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the listener fails or the
// server is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
