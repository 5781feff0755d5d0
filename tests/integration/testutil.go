// Package integration runs the full API against PostgreSQL in a container.
// These tests require Docker and are skipped under -short.
package integration

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/tropicaldog17/networth/internal/app"
	"github.com/tropicaldog17/networth/internal/config"
	"github.com/tropicaldog17/networth/internal/db"
)

const (
	testDBName     = "networth_test"
	testDBUser     = "testuser"
	testDBPassword = "testpass"
)

type testEnv struct {
	database *db.DB
	services *app.Services
	server   *httptest.Server
	connStr  string
}

// setupTestEnv starts PostgreSQL, migrates it and serves the API over it.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-based DB tests in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	database, err := db.Connect(&db.Config{
		Driver:   db.DriverPostgres,
		Host:     host,
		Port:     port.Port(),
		User:     testDBUser,
		Password: testDBPassword,
		Name:     testDBName,
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	log := zaptest.NewLogger(t)
	if _, err := database.Migrate(log); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	cfg := config.NewDefaultConfig()
	svc := app.NewServices(cfg, database, &offlineFeed{}, log)
	server := httptest.NewServer(app.NewHandler(svc, database, log))
	t.Cleanup(server.Close)

	return &testEnv{database: database, services: svc, server: server, connStr: connStr}
}

// rawDB opens a plain database/sql handle through lib/pq.
func (e *testEnv) rawDB(t *testing.T) *sql.DB {
	t.Helper()
	raw, err := sql.Open("postgres", e.connStr)
	if err != nil {
		t.Fatalf("Failed to open lib/pq connection: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })
	return raw
}
