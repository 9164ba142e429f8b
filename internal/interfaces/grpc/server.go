// Package grpc exposes the standard gRPC health service for a training
// process, driven by the same dependency checks as the HTTP readiness probe.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ServicePrefix names per-dependency health services, e.g. "jtnn.redis".
const ServicePrefix = "jtnn."

const (
	defaultGracefulTimeout = 10 * time.Second
	defaultCheckInterval   = 15 * time.Second
	defaultCheckTimeout    = 5 * time.Second
)

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAge:      30 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               1 * time.Second,
}

var defaultKeepalivePolicy = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

// Option configures the Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger          logging.Logger
	checkers        []handlers.HealthChecker
	keepaliveParams keepalive.ServerParameters
	gracefulTimeout time.Duration
	checkInterval   time.Duration
	checkTimeout    time.Duration
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithCheckers sets the dependency checks reported by the health service.
func WithCheckers(c ...handlers.HealthChecker) Option {
	return func(o *serverOptions) { o.checkers = append(o.checkers, c...) }
}

// WithKeepaliveParams sets the server keepalive parameters.
func WithKeepaliveParams(params keepalive.ServerParameters) Option {
	return func(o *serverOptions) { o.keepaliveParams = params }
}

// WithGracefulTimeout bounds GracefulStop before a forced stop.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// WithCheckInterval sets how often the dependency checks run.
func WithCheckInterval(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// Server serves grpc.health.v1.Health.
type Server struct {
	grpcServer   *grpc.Server
	listener     net.Listener
	opts         *serverOptions
	healthServer *health.Server

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewServer binds addr and registers the health service.  The overall
// service ("") is NOT_SERVING until the first round of checks passes.
func NewServer(addr string, opts ...Option) (*Server, error) {
	if addr == "" {
		return nil, errors.InvalidParam("grpc health address is required")
	}
	sopts := &serverOptions{
		keepaliveParams: defaultKeepaliveParams,
		gracefulTimeout: defaultGracefulTimeout,
		checkInterval:   defaultCheckInterval,
		checkTimeout:    defaultCheckTimeout,
	}
	for _, o := range opts {
		o(sopts)
	}
	if sopts.logger == nil {
		sopts.logger = logging.NewNopLogger()
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to listen").WithDetail(addr)
	}

	gs := grpc.NewServer(
		grpc.KeepaliveParams(sopts.keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(defaultKeepalivePolicy),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(sopts.logger),
			loggingUnaryInterceptor(sopts.logger),
		),
		grpc.ChainStreamInterceptor(recoveryStreamInterceptor(sopts.logger)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{grpcServer: gs, listener: lis, opts: sopts, healthServer: hs}, nil
}

// Start runs the checks once, then serves until Stop.  It blocks.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeConflict, "grpc server already started")
	}
	s.started = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.runChecks(ctx)
	go s.watch(ctx)

	s.opts.logger.Info("gRPC health server starting", logging.String("address", s.Addr()))
	return s.grpcServer.Serve(s.listener)
}

func (s *Server) watch(ctx context.Context) {
	defer close(s.done)
	t := time.NewTicker(s.opts.checkInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.runChecks(ctx)
		}
	}
}

// runChecks sets one service per checker and the overall service to
// SERVING only when every checker passes.
func (s *Server) runChecks(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, c := range s.opts.checkers {
		cctx, cancel := context.WithTimeout(ctx, s.opts.checkTimeout)
		err := c.Check(cctx)
		cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
			s.opts.logger.Warn("Dependency unhealthy", logging.String("component", c.Name()), logging.Err(err))
		}
		s.healthServer.SetServingStatus(ServicePrefix+c.Name(), st)
	}
	s.healthServer.SetServingStatus("", overall)
}

// Stop drains the server, forcing a stop after the graceful timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.opts.logger.Info("gRPC health server stopping")
	cancel()
	<-done
	s.healthServer.Shutdown()

	gctx, stop := context.WithTimeout(ctx, s.opts.gracefulTimeout)
	defer stop()
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		s.opts.logger.Info("gRPC health server stopped gracefully")
	case <-gctx.Done():
		s.opts.logger.Warn("gRPC graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}

// Addr returns the bound address; useful with port 0.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// ─────────────────────────────────────────────────────────────────────────────
// Interceptors
// ─────────────────────────────────────────────────────────────────────────────

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
					logging.String("stack", string(debug.Stack())))
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func recoveryStreamInterceptor(logger logging.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC stream panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
					logging.String("stack", string(debug.Stack())))
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(srv, ss)
	}
}

func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

// loggingUnaryInterceptor logs every call except health probes, which
// orchestrators issue every few seconds.
func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("gRPC request",
			logging.String("method", info.FullMethod),
			logging.Int64("duration_ms", time.Since(start).Milliseconds()),
			logging.String("code", status.Code(err).String()))
		return resp, err
	}
}

//Personal.AI order the ending
