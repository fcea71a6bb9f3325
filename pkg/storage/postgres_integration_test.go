//go:build integration

package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/storage"
)

// connString returns a running Postgres DSN — an external one from
// CI_DATABASE_URL if set, otherwise a disposable testcontainer, mirroring
// how the rest of this module's integration tests source a database.
func connString(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	if dsn := os.Getenv("CI_DATABASE_URL"); dsn != "" {
		return dsn
	}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("autoheal_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestOpen_AppliesMigrationsAndKnowledgeStoreRoundTrips(t *testing.T) {
	ctx := context.Background()
	dsn := connString(t)

	pool, err := storage.Open(ctx, storage.Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := knowledge.NewPostgres(pool, 3)
	require.NoError(t, store.Store(ctx, "run-1", "login failed at step 3",
		[]float64{1, 0, 0}, map[string]knowledge.Scalar{"outcome": "failed"}))

	hits, err := store.Query(ctx, []float64{1, 0, 0}, 5, nil, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "run-1", hits[0].ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestOpen_IsIdempotentAcrossReconnects(t *testing.T) {
	ctx := context.Background()
	dsn := connString(t)

	pool1, err := storage.Open(ctx, storage.Config{DSN: dsn})
	require.NoError(t, err)
	pool1.Close()

	pool2, err := storage.Open(ctx, storage.Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool2.Close)
}
