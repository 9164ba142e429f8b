package grpc

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-JTNN/internal/testutil"
)

func startServer(t *testing.T, opts ...Option) (*Server, healthpb.HealthClient) {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", opts...)
	require.NoError(t, err)
	go func() { _ = s.Start() }()
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	conn, err := grpc.Dial(s.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return s, healthpb.NewHealthClient(conn)
}

func servingStatus(t *testing.T, hc healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestNewServer_RequiresAddr(t *testing.T) {
	_, err := NewServer("")
	assert.Error(t, err)
}

func TestServer_HealthyDependencies(t *testing.T) {
	ok := handlers.CheckFunc("redis", func(context.Context) error { return nil })
	_, hc := startServer(t, WithCheckers(ok))

	require.Eventually(t, func() bool {
		return servingStatus(t, hc, "") == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, hc, ServicePrefix+"redis"))
}

func TestServer_UnhealthyDependencyRecovers(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)
	pg := handlers.CheckFunc("postgres", func(context.Context) error {
		if broken.Load() {
			return stderrors.New("connection refused")
		}
		return nil
	})
	log := testutil.NewMockLogger()
	_, hc := startServer(t, WithCheckers(pg), WithCheckInterval(20*time.Millisecond), WithLogger(log))

	require.Eventually(t, func() bool {
		return servingStatus(t, hc, ServicePrefix+"postgres") == healthpb.HealthCheckResponse_NOT_SERVING
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, hc, ""))
	assert.True(t, log.HasMessage("warn", "Dependency unhealthy"))

	broken.Store(false)
	require.Eventually(t, func() bool {
		return servingStatus(t, hc, "") == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 20*time.Millisecond)
}

func TestServer_UnknownService(t *testing.T) {
	_, hc := startServer(t)
	require.Eventually(t, func() bool {
		return servingStatus(t, hc, "") == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 20*time.Millisecond)

	_, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "jtnn.nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_StartTwice(t *testing.T) {
	s, hc := startServer(t)
	require.Eventually(t, func() bool {
		return servingStatus(t, hc, "") == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 20*time.Millisecond)
	assert.Error(t, s.Start())
}

func TestServer_StopWithoutStart(t *testing.T) {
	s, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	assert.NoError(t, s.Stop(context.Background()))
	_ = s.listener.Close()
}

func TestInterceptors(t *testing.T) {
	log := testutil.NewMockLogger()
	unary := loggingUnaryInterceptor(log)
	_, _ = unary(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(context.Context, interface{}) (interface{}, error) { return nil, nil })
	assert.Empty(t, log.GetMessages())

	_, _ = unary(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/jtnn.Admin/Reload"},
		func(context.Context, interface{}) (interface{}, error) { return nil, nil })
	assert.True(t, log.HasMessage("info", "gRPC request"))

	rec := recoveryUnaryInterceptor(log)
	_, err := rec(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/jtnn.Admin/Reload"},
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.True(t, log.HasMessage("error", "gRPC panic recovered"))
}

//Personal.AI order the ending
