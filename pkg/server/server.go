package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"

	"parleyhq/parley/pkg/config"
	"parleyhq/parley/pkg/server/middleware"
)

// Server is the HTTP server hosting the chat API.
type Server struct {
	config       config.ServerConfig
	handler      http.Handler
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server for the given API handler. metricsHandler, when
// non-nil, is mounted at metricsPath alongside the API routes.
func New(cfg config.ServerConfig, apiHandler http.Handler, metricsPath string, metricsHandler http.Handler) *Server {
	r := chi.NewRouter()
	r.Mount("/", apiHandler)
	if metricsHandler != nil {
		r.Handle(metricsPath, metricsHandler)
	}

	var handler http.Handler = r
	handler = middleware.CORS(cfg.CORS)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return &Server{
		config:  cfg,
		handler: handler,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until shutdown. Shutdown is
// triggered by context cancellation, SIGINT, or SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	// WriteTimeout stays unset: WebSocket sessions and long completion
	// exchanges must not be cut off by a fixed response deadline.
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout.Std(),
		IdleTimeout:    s.config.IdleTimeout.Std(),
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.Std().String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout.Std())
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
