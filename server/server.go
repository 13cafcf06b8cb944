// Package server exposes the RAG pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/bankrag/ai/core/retrieval"
	"github.com/hrygo/bankrag/ai/rag"
	"github.com/hrygo/bankrag/internal/profile"
	"github.com/hrygo/bankrag/store"
)

// Server wires the HTTP routes to the pipeline and catalog.
type Server struct {
	e        *echo.Echo
	profile  *profile.Profile
	store    *store.Store
	catalog  *retrieval.Catalog
	pipeline *rag.Pipeline
}

// NewServer creates the HTTP server.
func NewServer(profile *profile.Profile, st *store.Store, catalog *retrieval.Catalog, pipeline *rag.Pipeline) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())

	s := &Server{
		e:        e,
		profile:  profile,
		store:    st,
		catalog:  catalog,
		pipeline: pipeline,
	}

	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiV1 := e.Group("/api/v1")
	apiV1.GET("/health", s.health)
	apiV1.POST("/query", s.query)
	apiV1.POST("/batch", s.batchQuery)
	apiV1.GET("/categories", s.categories)
	apiV1.GET("/documents", s.listDocuments)
	apiV1.POST("/documents", s.addDocument)
	apiV1.DELETE("/documents/:id", s.deleteDocument)
	apiV1.POST("/reindex", s.reindex)

	return s
}

// Start begins serving. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server: listening", "addr", addr, "mode", s.profile.Mode)
	return s.e.Start(addr)
}

// Shutdown gracefully stops the server and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.e.Shutdown(ctx); err != nil {
		slog.Error("server: failed to shut down gracefully", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("server: failed to close store", "error", err)
	}
	slog.Info("server: stopped")
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}
