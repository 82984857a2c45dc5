//go:build integration

// Package integration runs the archive and cache layers against real
// PostgreSQL and Redis containers.  Tests require Docker and are gated behind
// the "integration" build tag.
package integration

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/Catalysis-Ingest/internal/config"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/postgres"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/redis"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
)

const startupTimeout = 90 * time.Second

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port nat.Port) (string, int) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	p, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)
	return host, p
}

// startPostgres launches PostgreSQL 16, applies the embedded migrations and
// returns an open connection.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "catalysis_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startupTimeout),
	}, "5432/tcp")

	conn, err := postgres.NewConnection(config.DatabaseConfig{
		Enabled:  true,
		Host:     host,
		Port:     port,
		User:     "test",
		Password: "test",
		DBName:   "catalysis_test",
		SSLMode:  "disable",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.RunMigrations())
	return conn
}

// startRedis launches Redis 7 and returns a connected client.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(startupTimeout),
	}, "6379/tcp")

	rc, err := redis.NewClient(config.RedisConfig{
		Enabled: true,
		Addr:    host + ":" + strconv.Itoa(port),
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

//Personal.AI order the ending
