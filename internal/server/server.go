package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/haguru/eduquest/internal/interfaces"
)

var (
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 10 * time.Second
	IdleTimeout  = 30 * time.Second
)

var _ interfaces.Server = (*Server)(nil)

type Server struct {
	Port   string
	Host   string
	server *http.Server
	mux    *http.ServeMux
	Logger interfaces.Logger
}

// NewServer creates a new Server instance with the specified host and port.
func NewServer(host, port string, logger interfaces.Logger) *Server {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:         net.JoinHostPort(host, port),
		Handler:      mux,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	return &Server{
		Host:   host,
		Port:   port,
		server: server,
		mux:    mux,
		Logger: logger,
	}
}

// AddRoute registers handler for a ServeMux pattern such as "/login" or "GET /progress/{username}".
func (s *Server) AddRoute(route string, handler http.Handler) error {
	if route == "" || handler == nil {
		return fmt.Errorf("route and handler are required")
	}
	s.mux.Handle(route, handler)
	s.Logger.Info("Route added", "route", route)
	return nil
}

// Handler exposes the router, e.g. for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server and blocks until it stops.
// A graceful Shutdown is not reported as an error.
func (s *Server) ListenAndServe() error {
	s.Logger.Info("Starting server", "host", s.Host, "port", s.Port)
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.Logger.Error("Failed to start server", "error", err)
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("Shutting down server")
	return s.server.Shutdown(ctx)
}
