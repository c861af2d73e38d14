package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB wraps a PostgreSQL test container with pgvector available.
type TestDB struct {
	Container *postgres.PostgresContainer

	// ConnString is the pgx DSN for the container.
	ConnString string

	// MigrateURL is the pgx5:// URL for golang-migrate.
	MigrateURL string
}

// SetupTestDB starts an isolated PostgreSQL container with the pgvector
// extension available. The caller's store is expected to run its own
// migrations on first use; the container starts with an empty database.
//
// The test is skipped when no container runtime is available.
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("prompts_test"),
		postgres.WithUsername("prompts"),
		postgres.WithPassword("prompts_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Skipf("container runtime unavailable: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminating postgres container: %v", err)
		}
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cleanup()
		t.Fatalf("getting connection string: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		cleanup()
		t.Fatalf("getting container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		cleanup()
		t.Fatalf("getting container port: %v", err)
	}

	migrateURL := fmt.Sprintf("pgx5://prompts:prompts_test_password@%s:%s/prompts_test?sslmode=disable",
		host, port.Port())

	return &TestDB{
		Container:  pgContainer,
		ConnString: connStr,
		MigrateURL: migrateURL,
	}, cleanup
}
