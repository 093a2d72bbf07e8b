package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidatedEvent(t *testing.T) {
	payload, err := encodeEvent(NewValidatedEvent(testTag, "evt-1", rawBucket, "k.json", time.Unix(0, 0)))
	require.NoError(t, err)

	evt, err := DecodeValidatedEvent(payload, testTag)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", evt.ID)
	assert.Equal(t, "custom.validation", evt.Source)
	assert.Equal(t, "ValidationCompleted", evt.DetailType)
	assert.Equal(t, ValidatedDetail{Bucket: rawBucket, Key: "k.json"}, evt.Detail)
}

func TestDecodeValidatedEventRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"garbage", `nope`},
		{"wrong source", `{"source":"other","detail_type":"ValidationCompleted","detail":{"bucket":"b","key":"k"}}`},
		{"wrong detail type", `{"source":"custom.validation","detail_type":"Other","detail":{"bucket":"b","key":"k"}}`},
		{"missing key", `{"source":"custom.validation","detail_type":"ValidationCompleted","detail":{"bucket":"b"}}`},
		{"missing bucket", `{"source":"custom.validation","detail_type":"ValidationCompleted","detail":{"key":"k"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeValidatedEvent([]byte(tt.payload), testTag)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}
