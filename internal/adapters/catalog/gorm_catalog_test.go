package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"recordpipeline/internal/ports"
	"recordpipeline/internal/shared/database"
)

// setupCatalog starts postgres in a container and applies the migrations.
func setupCatalog(t *testing.T) *GormCatalog {
	t.Helper()
	if testing.Short() || os.Getenv("PIPELINE_INTEGRATION") == "" {
		t.Skip("set PIPELINE_INTEGRATION=1 to run catalog tests against postgres")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("pipeline_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(connStr)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	// Second run must be a no-op.
	require.NoError(t, database.Migrate(db))

	return NewGormCatalog(db)
}

func TestGormCatalog(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	entry := ports.CatalogEntry{
		ID:           "a1",
		Name:         "widget",
		Timestamp:    "2024-01-01T00:00:00Z",
		ProcessedAt:  "run-1",
		SourceBucket: "raw-data",
		ObjectKey:    "k.json",
	}

	t.Run("get unknown id", func(t *testing.T) {
		_, err := c.Get(ctx, "missing")
		assert.ErrorIs(t, err, ports.ErrCatalogEntryNotFound)
	})

	t.Run("insert then read back", func(t *testing.T) {
		require.NoError(t, c.Upsert(ctx, entry))

		got, err := c.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "widget", got.Name)
		assert.Equal(t, "run-1", got.ProcessedAt)
		assert.Equal(t, "raw-data", got.SourceBucket)
		assert.Equal(t, "k.json", got.ObjectKey)
	})

	t.Run("upsert overwrites the row for the same id", func(t *testing.T) {
		again := entry
		again.Name = "gadget"
		again.ProcessedAt = "run-2"
		require.NoError(t, c.Upsert(ctx, again))

		got, err := c.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "gadget", got.Name)
		assert.Equal(t, "run-2", got.ProcessedAt)

		require.NoError(t, c.Upsert(ctx, again))
		rerun, err := c.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, got, rerun, "the same entry leaves the same row")

		var count int64
		require.NoError(t, c.db.Model(&processedRecord{}).Where("id = ?", "a1").Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}
