// Package greeter serves the deployment check endpoint.
package greeter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// DefaultPort is used when no port is configured.
const DefaultPort = "3000"

// Server is an HTTP server answering the greeting route.
type Server struct {
	httpServer *http.Server
	port       string
	logger     *slog.Logger
	ln         net.Listener
}

// Config configures the server.
type Config struct {
	Port   string       // Port to listen on (e.g. "8080"); empty means DefaultPort
	Logger *slog.Logger // Defaults to slog.Default()
}

// NewServer creates a new greeting server. It does not bind until Listen.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = DefaultPort
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		port:   port,
		logger: logger,
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: withRequestLog(logger, Handler()),
		},
	}
}

// Listen binds the listening socket and logs the startup line.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.port, err)
	}
	s.ln = ln

	port := s.port
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = fmt.Sprint(addr.Port)
	}
	s.logger.Info("App running on port "+port, "port", port)
	return nil
}

// Serve accepts connections on the bound listener. It blocks until the
// listener fails or ctx is canceled, in which case the server is closed
// without draining in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("server is not listening")
	}

	go func() {
		<-ctx.Done()
		_ = s.httpServer.Close()
	}()

	err := s.httpServer.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return context.Cause(ctx)
	}
	return err
}

// Start binds and serves.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Port returns the configured port.
func (s *Server) Port() string {
	return s.port
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.httpServer.Addr
}
