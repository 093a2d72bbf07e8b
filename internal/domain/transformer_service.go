package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recordpipeline/internal/metrics"
	"recordpipeline/internal/ports"
	logger "recordpipeline/internal/shared/log"
)

// Transformer steps, in execution order.
const (
	StepPrecondition   = "precondition"
	StepFetch          = "fetch"
	StepParse          = "parse"
	StepTransform      = "transform"
	StepWriteProcessed = "write_processed"
	StepUpsertCatalog  = "upsert_catalog"
	StepArchive        = "archive"
	StepDeleteRaw      = "delete_raw"
)

var ErrTransformFailed = errors.New("transform failed")

// StepError names the step a transformer invocation stopped at. It matches
// both ErrTransformFailed and the underlying cause.
type StepError struct {
	Step   string
	Bucket string
	Key    string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("transform %s: %s: %v", location(e.Bucket, e.Key), e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrTransformFailed, e.Err}
}

// TransformResult is returned by a completed invocation.
type TransformResult struct {
	Status string `json:"status"`
	Key    string `json:"file"`
	RunID  string `json:"run_id"`
	State  State  `json:"state"`
}

// TransformerService moves a validated record from raw to processed, catalog
// and archive. The raw delete is always last, so any failure leaves the raw
// object in place and the whole invocation can be re-run. Nothing is rolled
// back.
type TransformerService struct {
	storage         ports.ObjectStorage
	catalog         ports.Catalog
	processedBucket string
	archiveBucket   string
	transformations []Transformation
}

type TransformerConfig struct {
	ProcessedBucket string
	ArchiveBucket   string
}

type TransformerOption func(*TransformerService)

// WithTransformations appends business transformations after MarkProcessed.
func WithTransformations(fns ...Transformation) TransformerOption {
	return func(s *TransformerService) {
		s.transformations = append(s.transformations, fns...)
	}
}

func NewTransformerService(storage ports.ObjectStorage, catalog ports.Catalog, cfg TransformerConfig, opts ...TransformerOption) *TransformerService {
	s := &TransformerService{
		storage:         storage,
		catalog:         catalog,
		processedBucket: cfg.ProcessedBucket,
		archiveBucket:   cfg.ArchiveBucket,
		transformations: []Transformation{MarkProcessed},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transform runs without an event id. The run id is derived from the object
// location, so repeated calls for one key write the same catalog row.
func (s *TransformerService) Transform(ctx context.Context, bucket, key string) (*TransformResult, error) {
	return s.TransformRun(ctx, "", bucket, key)
}

// TransformRun processes one validated record under runID, which is stored as
// the catalog row's processed_at. Redeliveries of the same event pass the same
// runID and converge on the same row.
func (s *TransformerService) TransformRun(ctx context.Context, runID, bucket, key string) (result *TransformResult, err error) {
	start := time.Now()
	if runID == "" {
		runID = LocationRunID(bucket, key)
	}
	logger.Infof(ctx, "Processing file: %s (run %s)", location(bucket, key), runID)

	defer func() {
		metrics.TransformDuration.Observe(time.Since(start).Seconds())
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			metrics.TransformRuns.WithLabelValues("failure", stepErr.Step).Inc()
			logger.Errorf(ctx, err, "Transformer failed")
			return
		}
		metrics.TransformRuns.WithLabelValues("success", "").Inc()
	}()

	fail := func(step string, cause error) error {
		return &StepError{Step: step, Bucket: bucket, Key: key, Err: cause}
	}

	if bucket == s.processedBucket || bucket == s.archiveBucket {
		return nil, fail(StepPrecondition, fmt.Errorf("source bucket %q is a destination bucket", bucket))
	}

	// 1. Fetch the raw blob.
	raw, err := s.storage.Get(ctx, bucket, key)
	if err != nil {
		return nil, fail(StepFetch, err)
	}

	rec, err := ParseRecord(raw)
	if err != nil {
		return nil, fail(StepParse, err)
	}
	entry, err := s.catalogEntry(rec, bucket, key, runID)
	if err != nil {
		return nil, fail(StepParse, err)
	}

	// 2. Transform.
	for _, fn := range s.transformations {
		if err := fn(rec); err != nil {
			return nil, fail(StepTransform, err)
		}
	}

	// 3. Processed copy, same key.
	if err := s.storage.Put(ctx, s.processedBucket, key, rec.Marshal(), ContentTypeJSON); err != nil {
		return nil, fail(StepWriteProcessed, err)
	}
	logger.Infof(ctx, "Written transformed file to %s", s.processedBucket)

	// 4. Catalog row, keyed by id.
	if err := s.catalog.Upsert(ctx, entry); err != nil {
		return nil, fail(StepUpsertCatalog, err)
	}

	// 5. Archive the untouched original.
	if err := s.storage.Copy(ctx, bucket, key, s.archiveBucket, key); err != nil {
		return nil, fail(StepArchive, err)
	}

	// 6. Only now drop the raw copy.
	if err := s.storage.Delete(ctx, bucket, key); err != nil {
		return nil, fail(StepDeleteRaw, err)
	}
	logger.Infof(ctx, "Archived original file to %s", s.archiveBucket)

	return &TransformResult{
		Status: "success",
		Key:    key,
		RunID:  runID,
		State:  StateProcessed,
	}, nil
}

func (s *TransformerService) catalogEntry(rec *Record, bucket, key, runID string) (ports.CatalogEntry, error) {
	fields := make(map[string]string, 3)
	for _, f := range []string{FieldID, FieldName, FieldTimestamp} {
		v, ok := rec.Text(f)
		if !ok {
			return ports.CatalogEntry{}, fmt.Errorf("record has no %q field", f)
		}
		fields[f] = v
	}
	return ports.CatalogEntry{
		ID:           fields[FieldID],
		Name:         fields[FieldName],
		Timestamp:    fields[FieldTimestamp],
		ProcessedAt:  runID,
		SourceBucket: bucket,
		ObjectKey:    key,
	}, nil
}

// LocationRunID is the run id used when no validated event id is available.
func LocationRunID(bucket, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(location(bucket, key))).String()
}
