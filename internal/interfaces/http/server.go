package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Server wraps an http.Server.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: log.Named("http"),
	}
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("HTTP server listening", logging.String("addr", l.Addr().String()))
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "http server failed")
	}
	return nil
}

// Start listens on the configured address.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "failed to listen")
	}
	return s.Serve(l)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "server shutdown failed")
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

//Personal.AI order the ending
