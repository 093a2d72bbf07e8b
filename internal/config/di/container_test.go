package di

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"recordpipeline/internal/config"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() || os.Getenv("PIPELINE_INTEGRATION") == "" {
		t.Skip("set PIPELINE_INTEGRATION=1 to run container tests against postgres")
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
	return connStr
}

func TestInitContainerClosesDatabaseOnLaterFailure(t *testing.T) {
	connStr := startPostgres(t)

	cfg := &config.Config{
		DatabaseURL:         connStr,
		MinIOEndpoint:       "127.0.0.1:1",
		MinIOAccessKey:      "minio",
		MinIOSecretKey:      "minio123",
		RawBucket:           "raw-data",
		ProcessedBucket:     "processed-data",
		ArchiveBucket:       "archive-data",
		ObjectSuffix:        ".json",
		KafkaBrokers:        "127.0.0.1:1",
		KafkaValidatedTopic: "pipeline.validated",
		KafkaConsumerGroup:  "pipeline-transformer",
	}

	c, err := InitContainer(cfg)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "MinIO")

	observer, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = observer.Close() })

	assert.Eventually(t, func() bool {
		var others int
		err := observer.QueryRow(
			`SELECT count(*) FROM pg_stat_activity WHERE datname = current_database() AND pid <> pg_backend_pid()`,
		).Scan(&others)
		return err == nil && others == 0
	}, 10*time.Second, 200*time.Millisecond, "the container's pool is closed")
}
