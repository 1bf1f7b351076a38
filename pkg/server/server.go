package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saint0x/ghscribe/pkg/generate"
	"github.com/saint0x/ghscribe/pkg/log"
)

// Server exposes one session over HTTP
type Server struct {
	logger  *log.Logger
	port    string
	factory SessionFactory
	srv     *http.Server
	mu      sync.RWMutex

	sessionMu sync.RWMutex
	session   *generate.Session
	creds     Credentials
}

// New creates a new server instance
func New(logger *log.Logger, port string, factory SessionFactory) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if port == "" {
		port = "8080"
	}

	return &Server{
		logger:  logger,
		port:    port,
		factory: factory,
	}, nil
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("PUT /session", s.handleSession)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /select", s.handleSelect)

	mux.HandleFunc("POST /generate/readme", s.generateHandler(readme))
	mux.HandleFunc("POST /generate/documentation", s.generateHandler(documentation))
	mux.HandleFunc("POST /generate/comments", s.generateHandler(comments))
	mux.HandleFunc("POST /generate/check-comments", s.generateHandler(checkComments))
	mux.HandleFunc("POST /generate/well-documented", s.generateHandler(wellDocumented))
	mux.HandleFunc("POST /generate/custom", s.generateHandler(custom))

	mux.HandleFunc("DELETE /cache/generated", s.handleClearGenerated)
	mux.HandleFunc("DELETE /cache/repo", s.handleClearRepo)
	mux.HandleFunc("GET /output", s.handleOutput)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()

	listener, err := s.findAvailablePort(s.port)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to find available port: %w", err)
	}
	actualPort := listener.Addr().(*net.TCPAddr).Port

	if err := SavePort(actualPort); err != nil {
		listener.Close()
		s.mu.Unlock()
		return err
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error: %v", err)
		}
	}()
	s.mu.Unlock()

	s.logger.Success("Server is running on port %d", actualPort)
	if s.logger.IsDebug() {
		s.logger.Info("Health check: http://localhost:%d/health", actualPort)
		s.logger.Info("Press Ctrl+C to stop")
	}

	<-ctx.Done()
	return s.Stop()
}

// findAvailablePort tries the given port first, then any free port
func (s *Server) findAvailablePort(startPort string) (net.Listener, error) {
	listener, err := net.Listen("tcp", ":"+startPort)
	if err == nil {
		return listener, nil
	}

	if s.logger.IsDebug() {
		s.logger.Info("Port %s is in use, searching for available port...", startPort)
	}

	listener, err = net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}
	return listener, nil
}

// Stop stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to stop server: %v", err)
			return fmt.Errorf("failed to stop server: %w", err)
		}
		s.srv = nil
		s.logger.Success("Server stopped")
	}
	return nil
}

// ConfigDir is where runtime files (port, pid) are kept
func ConfigDir() string {
	return filepath.Join(os.Getenv("HOME"), ".ghscribe")
}

// SavePort records the listening port for the CLI
func SavePort(port int) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "port"), []byte(fmt.Sprintf("%d", port)), 0644); err != nil {
		return fmt.Errorf("failed to save port: %w", err)
	}
	return nil
}

// ReadPort returns the port saved by a running server
func ReadPort() (string, error) {
	data, err := os.ReadFile(filepath.Join(ConfigDir(), "port"))
	if err != nil {
		return "", fmt.Errorf("failed to read port: %w", err)
	}
	return string(data), nil
}
