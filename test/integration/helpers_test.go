//go:build integration

// Package integration runs the storage adapters against real backends
// started with testcontainers.  Tests require Docker and are gated behind
// the "integration" build tag.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 90 * time.Second

// endpoint is the host and mapped port of a started container.
type endpoint struct {
	Host string
	Port int
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) endpoint {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return endpoint{Host: host, Port: mapped.Int()}
}

func startPostgres(t *testing.T) endpoint {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "jtnn_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startupTimeout),
	}, "5432/tcp")
}

func startRedis(t *testing.T) endpoint {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(startupTimeout),
	}, "6379/tcp")
}

func startNeo4j(t *testing.T) endpoint {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "neo4j:5-community",
		ExposedPorts: []string{"7687/tcp"},
		Env:          map[string]string{"NEO4J_AUTH": "neo4j/integration-test"},
		WaitingFor:   wait.ForLog("Started.").WithStartupTimeout(startupTimeout),
	}, "7687/tcp")
}

//Personal.AI order the ending
