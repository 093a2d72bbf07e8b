package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"recordpipeline/internal/metrics"
	"recordpipeline/internal/ports"
	appError "recordpipeline/internal/shared/error"
	logger "recordpipeline/internal/shared/log"
)

// IngestionService is the gateway stage: it checks the request shape, stamps
// ingested_at and writes the record to the raw location.
type IngestionService struct {
	validator ports.SchemaValidator
	storage   ports.ObjectStorage
	rawBucket string
	suffix    string

	now    func() time.Time
	newKey func() string
}

type IngestionConfig struct {
	RawBucket    string
	ObjectSuffix string
}

// IngestResult is returned for an accepted record.
type IngestResult struct {
	Message   string `json:"message"`
	ObjectKey string `json:"object_key"`
}

func NewIngestionService(validator ports.SchemaValidator, storage ports.ObjectStorage, cfg IngestionConfig) *IngestionService {
	return &IngestionService{
		validator: validator,
		storage:   storage,
		rawBucket: cfg.RawBucket,
		suffix:    cfg.ObjectSuffix,
		now:       time.Now,
		newKey:    uuid.NewString,
	}
}

// Ingest writes exactly one new raw object per successful call. Retries by
// the caller create new, distinct objects.
func (s *IngestionService) Ingest(ctx context.Context, body []byte) (result *IngestResult, err error) {
	defer func() {
		status := 200
		var customErr *appError.CustomError
		if errors.As(err, &customErr) {
			status = customErr.HTTPCode
		} else if err != nil {
			status = 500
		}
		metrics.IngestedTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	}()

	if len(body) == 0 {
		logger.Warn(ctx, "Empty request body received")
		return nil, appError.ErrRequestBodyRequired
	}

	if err := s.validator.Validate(ctx, ports.SchemaIngestRecord, body); err != nil {
		var violation *ports.SchemaViolation
		switch {
		case errors.Is(err, ports.ErrUnparseable):
			logger.Warnf(ctx, "Rejected unparseable body: %v", err)
			return nil, appError.ErrInvalidRequestBody.WithDetails(err.Error())
		case errors.As(err, &violation):
			logger.Warnf(ctx, "Rejected body missing fields %v", violation.Missing)
			return nil, appError.ErrMissingRequiredField.WithDetails(violationDetails(violation))
		default:
			logger.Errorf(ctx, err, "Ingestion schema check failed")
			return nil, appError.ErrIngestionFailed
		}
	}

	rec, err := ParseRecord(body)
	if err != nil {
		return nil, appError.ErrInvalidRequestBody.WithDetails(err.Error())
	}
	rec.SetString(FieldIngestedAt, s.now().UTC().Format(time.RFC3339Nano))

	objectKey := s.newKey() + s.suffix
	data := rec.Marshal()

	logger.Infof(ctx, "Writing raw object %s (%d bytes)", location(s.rawBucket, objectKey), len(data))
	if err := s.storage.Put(ctx, s.rawBucket, objectKey, data, ContentTypeJSON); err != nil {
		logger.Errorf(ctx, err, "Ingestion failed")
		return nil, appError.ErrIngestionFailed
	}
	metrics.IngestedBytesTotal.Add(float64(len(data)))

	return &IngestResult{
		Message:   "File ingested successfully",
		ObjectKey: objectKey,
	}, nil
}

func violationDetails(v *ports.SchemaViolation) map[string]any {
	if len(v.Missing) == 0 {
		return map[string]any{"reason": v.Detail}
	}
	return map[string]any{"missing": v.Missing}
}

// location renders bucket/key for log lines.
func location(bucket, key string) string {
	return fmt.Sprintf("%s/%s", bucket, key)
}
