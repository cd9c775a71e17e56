package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
	"github.com/custodia-labs/diagram-rag/internal/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

// Ping calls f
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	maxUpload  int64
	pdfDir     string
	logger     *slog.Logger

	// Services
	ragService       driving.RAGService
	docService       driving.DocumentService
	ingestionService driving.IngestionService
	authService      driving.AuthService // nil disables auth

	// Infrastructure
	metrics *metrics.Collector
	ready   Pinger
	runtime *domain.RuntimeConfig
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// MaxUploadBytes limits PDF uploads
	MaxUploadBytes int64

	// PDFDirectory is ingested by POST /rag/ingest when no directory is given
	PDFDirectory string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 32 << 20,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	ragService driving.RAGService,
	docService driving.DocumentService,
	ingestionService driving.IngestionService,
	authService driving.AuthService, // can be nil
	collector *metrics.Collector, // can be nil
	ready Pinger, // can be nil
	runtime *domain.RuntimeConfig, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		maxUpload:        cfg.MaxUploadBytes,
		pdfDir:           cfg.PDFDirectory,
		logger:           logger,
		ragService:       ragService,
		docService:       docService,
		ingestionService: ingestionService,
		authService:      authService,
		metrics:          collector,
		ready:            ready,
		runtime:          runtime,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in recovery, logging and metrics
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	h = NewLoggingMiddleware(s.logger, s.metrics).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", s.metrics.Handler())

	// Read endpoints (public)
	s.router.HandleFunc("POST /rag/enrich", s.handleEnrich)
	s.router.HandleFunc("GET /rag/search", s.handleSearch)
	s.router.HandleFunc("GET /rag/debug_dump", s.handleDebugDump)
	s.router.HandleFunc("GET /rag/{id}", s.handleGetDoc)

	// Mutations (admin when auth is enabled)
	s.router.Handle("POST /rag/add", admin(s.handleAddDocs))
	s.router.Handle("POST /rag/upload_pdf", admin(s.handleUploadPDF))
	s.router.Handle("POST /rag/ingest", admin(s.handleIngestDirectory))
	s.router.Handle("POST /rag/clear", admin(s.handleClear))
	s.router.Handle("PUT /rag/{id}", admin(s.handleUpdateDoc))
	s.router.Handle("DELETE /rag/{id}", admin(s.handleDeleteDoc))
	s.router.Handle("DELETE /rag/prefix/{prefix}", admin(s.handleDeleteByPrefix))
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
