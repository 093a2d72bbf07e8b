package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"recordpipeline/internal/adapters/validation"
	"recordpipeline/internal/ports"
	"recordpipeline/internal/ports/portstest"
)

const (
	rawBucket       = "raw-data"
	processedBucket = "processed-data"
	archiveBucket   = "archive-data"
	topic           = "pipeline.validated"
)

var testTag = EventTag{Source: "custom.validation", DetailType: "ValidationCompleted"}

type (
	memStorage    = portstest.MemStorage
	fakePublisher = portstest.Publisher
	fakeCatalog   = portstest.Catalog
)

var (
	newMemStorage  = portstest.NewMemStorage
	newFakeCatalog = portstest.NewCatalog
)

func newSchemaValidator(t *testing.T) ports.SchemaValidator {
	t.Helper()
	v, err := validation.NewJSONSchemaValidator()
	require.NoError(t, err)
	return v
}
