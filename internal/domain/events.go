package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidEvent = errors.New("invalid validated event")

// ValidatedDetail is the payload of a validated event.
type ValidatedDetail struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ValidatedEvent is published by the validator and consumed by the
// transformer. ID is fixed at publish time and survives redelivery; the
// transformer records it as the catalog row's processed_at.
type ValidatedEvent struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	DetailType string          `json:"detail_type"`
	Detail     ValidatedDetail `json:"detail"`
	Time       time.Time       `json:"time"`
}

// EventTag is the fixed source/category pair stamped on validated events.
type EventTag struct {
	Source     string
	DetailType string
}

func NewValidatedEvent(tag EventTag, id, bucket, key string, at time.Time) ValidatedEvent {
	return ValidatedEvent{
		ID:         id,
		Source:     tag.Source,
		DetailType: tag.DetailType,
		Detail:     ValidatedDetail{Bucket: bucket, Key: key},
		Time:       at.UTC(),
	}
}

func encodeEvent(evt ValidatedEvent) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode validated event: %w", err)
	}
	return payload, nil
}

// DecodeValidatedEvent parses payload and checks it carries tag and a
// complete detail.
func DecodeValidatedEvent(payload []byte, tag EventTag) (*ValidatedEvent, error) {
	var evt ValidatedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if evt.Source != tag.Source || evt.DetailType != tag.DetailType {
		return nil, fmt.Errorf("%w: unexpected source/detail_type %q/%q", ErrInvalidEvent, evt.Source, evt.DetailType)
	}
	if evt.Detail.Bucket == "" || evt.Detail.Key == "" {
		return nil, fmt.Errorf("%w: missing bucket or key in event detail", ErrInvalidEvent)
	}
	return &evt, nil
}
