// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperdocs/kotae/internal/answer"
	"github.com/hyperdocs/kotae/internal/config"
	"github.com/hyperdocs/kotae/internal/convstore"
	"github.com/hyperdocs/kotae/internal/ingest"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	orchestrator *answer.Orchestrator
	library      *ingest.Library
	convs        convstore.Store
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	orchestrator *answer.Orchestrator,
	library *ingest.Library,
	convs convstore.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		library:      library,
		convs:        convs,
		config:       cfg,
		logger:       logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/organizations/{orgID}/query", s.handleQuery)
	r.Get("/api/v1/organizations/{orgID}/suggestions", s.handleSuggestions)
	r.Get("/api/v1/organizations", s.handleListOrganizations)
	r.Get("/api/v1/conversations", s.handleListConversations)
	r.Get("/api/v1/conversations/{id}/messages", s.handleGetMessages)
	r.Delete("/api/v1/conversations/{id}", s.handleDeleteConversation)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
