package ports

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Schema names understood by SchemaValidator.
const (
	// SchemaIngestRecord is the gateway contract: an object with id and name.
	SchemaIngestRecord = "ingest_record"
	// SchemaValidatedRecord is the validator contract: id, timestamp and name.
	SchemaValidatedRecord = "validated_record"
)

var (
	// ErrObjectNotFound is returned by ObjectStorage when a key is absent.
	ErrObjectNotFound = errors.New("object not found")
	// ErrCatalogEntryNotFound is returned by Catalog.Get for an unknown id.
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")
	// ErrUnparseable is returned by SchemaValidator when the payload is not JSON.
	ErrUnparseable = errors.New("payload is not valid JSON")
)

// SchemaViolation reports a payload that parsed but does not satisfy a schema.
type SchemaViolation struct {
	Schema  string
	Missing []string
	Detail  string
}

func (v *SchemaViolation) Error() string {
	if len(v.Missing) > 0 {
		return fmt.Sprintf("%s: missing fields: %s", v.Schema, strings.Join(v.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", v.Schema, v.Detail)
}

// SchemaValidator validates a JSON payload against a named schema.
type SchemaValidator interface {
	Validate(ctx context.Context, schema string, payload []byte) error
}

// ObjectStorage is a bucket-addressed blob store. Delete of an absent key
// must succeed.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// ObjectCreated identifies a blob that was just written.
type ObjectCreated struct {
	Bucket string
	Key    string
}

type ObjectCreatedHandler func(ctx context.Context, evt ObjectCreated) error

// ObjectNotifier delivers object-created notifications for a bucket until ctx
// is cancelled or the stream is lost. Objects created while no stream is open
// are not delivered; callers catch up with ObjectLister.
type ObjectNotifier interface {
	Listen(ctx context.Context, bucket string, handler ObjectCreatedHandler) error
}

// ObjectLister lists every key currently stored in a bucket.
type ObjectLister interface {
	List(ctx context.Context, bucket string) ([]string, error)
}

// EventPublisher sends events/messages to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type MessageHandler func(ctx context.Context, key, value []byte) error

// EventConsumer feeds messages of one subscription to a handler until ctx is
// cancelled. A handler error leaves the message unacknowledged.
type EventConsumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}

// CatalogEntry is the queryable row written for every processed record.
type CatalogEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Timestamp    string `json:"timestamp"`
	ProcessedAt  string `json:"processed_at"`
	SourceBucket string `json:"source_bucket"`
	ObjectKey    string `json:"object_key"`
}

// Catalog is a table of processed records keyed by business id.
type Catalog interface {
	Upsert(ctx context.Context, entry CatalogEntry) error
	Get(ctx context.Context, id string) (*CatalogEntry, error)
}
