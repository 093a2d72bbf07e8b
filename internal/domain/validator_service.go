package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recordpipeline/internal/metrics"
	"recordpipeline/internal/ports"
	logger "recordpipeline/internal/shared/log"
)

// Outcome is the validator's decision for one notification.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeIgnored  Outcome = "ignored"
)

// Reason qualifies a rejected or ignored outcome.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonUnparseable   Reason = "unparseable"
	ReasonMissingFields Reason = "missing_fields"
	ReasonSuffix        Reason = "unrecognized_suffix"
	ReasonObjectGone    Reason = "object_gone"
)

// ValidationResult is the explicit form of the validator's decision. A
// rejected record stays in the raw location with no marker; the result is the
// only place the drop is visible besides the logs.
type ValidationResult struct {
	Bucket  string   `json:"bucket"`
	Key     string   `json:"key"`
	Outcome Outcome  `json:"outcome"`
	Reason  Reason   `json:"reason,omitempty"`
	Missing []string `json:"missing,omitempty"`
	State   State    `json:"state"`
	EventID string   `json:"event_id,omitempty"`
}

// ValidatorService enforces the required-field schema on raw objects and
// publishes a validated event for each one that passes.
type ValidatorService struct {
	validator ports.SchemaValidator
	storage   ports.ObjectStorage
	publisher ports.EventPublisher
	topic     string
	tag       EventTag
	suffix    string

	now        func() time.Time
	newEventID func() string
}

type ValidatorConfig struct {
	Topic        string
	Tag          EventTag
	ObjectSuffix string
}

func NewValidatorService(
	validator ports.SchemaValidator,
	storage ports.ObjectStorage,
	publisher ports.EventPublisher,
	cfg ValidatorConfig,
) *ValidatorService {
	return &ValidatorService{
		validator: validator,
		storage:   storage,
		publisher: publisher,
		topic:     cfg.Topic,
		tag:       cfg.Tag,
		suffix:    cfg.ObjectSuffix,
		now:        time.Now,
		newEventID: uuid.NewString,
	}
}

// Validate decides on one raw object. Rejections are results, not errors; an
// error means the decision could not be made (store or bus failure) and the
// object stays Raw. Re-running on the same key is safe and re-publishes.
func (s *ValidatorService) Validate(ctx context.Context, bucket, key string) (ValidationResult, error) {
	result := ValidationResult{Bucket: bucket, Key: key, State: StateRaw}
	logger.Infof(ctx, "Validating %s", location(bucket, key))

	if !strings.HasSuffix(key, s.suffix) {
		logger.Warnf(ctx, "Ignoring object without %s suffix: %s", s.suffix, key)
		return s.record(result, OutcomeIgnored, ReasonSuffix, nil), nil
	}

	body, err := s.storage.Get(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			// Already transformed and deleted; a late duplicate notification.
			logger.Infof(ctx, "Object %s no longer exists, nothing to validate", location(bucket, key))
			return s.record(result, OutcomeIgnored, ReasonObjectGone, nil), nil
		}
		metrics.ValidationErrors.Inc()
		return result, fmt.Errorf("fetch %s: %w", location(bucket, key), err)
	}

	if err := s.validator.Validate(ctx, ports.SchemaValidatedRecord, body); err != nil {
		var violation *ports.SchemaViolation
		switch {
		case errors.Is(err, ports.ErrUnparseable):
			logger.Errorf(ctx, err, "Invalid JSON format: %s", key)
			result.State = StateDropped
			return s.record(result, OutcomeRejected, ReasonUnparseable, nil), nil
		case errors.As(err, &violation):
			logger.Warnf(ctx, "Validation failed for %s. Missing fields: %s", key, strings.Join(violation.Missing, ", "))
			result.State = StateDropped
			return s.record(result, OutcomeRejected, ReasonMissingFields, violation.Missing), nil
		default:
			metrics.ValidationErrors.Inc()
			return result, fmt.Errorf("validate %s: %w", location(bucket, key), err)
		}
	}

	evt := NewValidatedEvent(s.tag, s.newEventID(), bucket, key, s.now())
	payload, err := encodeEvent(evt)
	if err != nil {
		metrics.ValidationErrors.Inc()
		return result, err
	}
	if err := s.publisher.Publish(ctx, s.topic, []byte(key), payload); err != nil {
		metrics.ValidationErrors.Inc()
		return result, fmt.Errorf("publish validated event for %s: %w", location(bucket, key), err)
	}

	logger.Infof(ctx, "Validation successful for %s. Event sent.", key)
	result.State = StateValidatedPending
	result.EventID = evt.ID
	return s.record(result, OutcomeAccepted, ReasonNone, nil), nil
}

func (s *ValidatorService) record(r ValidationResult, outcome Outcome, reason Reason, missing []string) ValidationResult {
	r.Outcome = outcome
	r.Reason = reason
	r.Missing = missing
	metrics.ValidationOutcomes.WithLabelValues(string(outcome), string(reason)).Inc()
	return r
}
