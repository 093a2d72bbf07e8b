package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T, store *memStorage, pub *fakePublisher) *ValidatorService {
	svc := NewValidatorService(newSchemaValidator(t), store, pub, ValidatorConfig{
		Topic:        topic,
		Tag:          testTag,
		ObjectSuffix: ".json",
	})
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func putRaw(t *testing.T, store *memStorage, key, body string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), rawBucket, key, []byte(body), ContentTypeJSON))
}

func TestValidateAcceptsCompleteRecord(t *testing.T) {
	store := newMemStorage()
	pub := &fakePublisher{}
	putRaw(t, store, "k.json", `{"id":"a1","name":"widget","timestamp":"2024-01-01T00:00:00Z"}`)

	res, err := newValidator(t, store, pub).Validate(context.Background(), rawBucket, "k.json")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, StateValidatedPending, res.State)
	require.Len(t, pub.Messages, 1)
	assert.Equal(t, topic, pub.Messages[0].Topic)
	assert.Equal(t, "k.json", string(pub.Messages[0].Key))

	evt, err := DecodeValidatedEvent(pub.Messages[0].Value, testTag)
	require.NoError(t, err)
	assert.Equal(t, ValidatedDetail{Bucket: rawBucket, Key: "k.json"}, evt.Detail)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, evt.ID, res.EventID)
}

func TestValidateDrops(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantReason  Reason
		wantMissing []string
	}{
		{"missing timestamp", `{"id":"a1","name":"widget","ingested_at":"2024-01-01T00:00:00Z"}`, ReasonMissingFields, []string{"timestamp"}},
		{"missing id and name", `{"timestamp":"2024-01-01T00:00:00Z"}`, ReasonMissingFields, []string{"id", "name"}},
		{"empty object", `{}`, ReasonMissingFields, []string{"id", "timestamp", "name"}},
		{"not json", `not json at all`, ReasonUnparseable, nil},
		{"nested deeper than the record parser allows", `{"id":"a1","name":"w","timestamp":"t","extra":` + strings.Repeat("[", 400) + strings.Repeat("]", 400) + `}`, ReasonUnparseable, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStorage()
			pub := &fakePublisher{}
			putRaw(t, store, "k.json", tt.body)

			res, err := newValidator(t, store, pub).Validate(context.Background(), rawBucket, "k.json")

			require.NoError(t, err)
			assert.Equal(t, OutcomeRejected, res.Outcome)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Equal(t, tt.wantMissing, res.Missing)
			assert.Equal(t, StateDropped, res.State)
			assert.Empty(t, pub.Messages)

			obj, ok := store.Object(rawBucket, "k.json")
			require.True(t, ok, "dropped object stays in raw")
			assert.Equal(t, tt.body, string(obj.Data))
		})
	}
}

func TestValidateIgnoresOtherSuffixes(t *testing.T) {
	store := newMemStorage()
	pub := &fakePublisher{}

	res, err := newValidator(t, store, pub).Validate(context.Background(), rawBucket, "upload.csv")

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, ReasonSuffix, res.Reason)
	assert.Empty(t, pub.Messages)
	assert.Empty(t, store.Calls, "store is not touched")
}

func TestValidateObjectAlreadyGone(t *testing.T) {
	pub := &fakePublisher{}

	res, err := newValidator(t, newMemStorage(), pub).Validate(context.Background(), rawBucket, "gone.json")

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, ReasonObjectGone, res.Reason)
	assert.Empty(t, pub.Messages)
}

func TestValidateIsRepeatable(t *testing.T) {
	store := newMemStorage()
	pub := &fakePublisher{}
	putRaw(t, store, "k.json", `{"id":"a1","name":"widget","timestamp":"t"}`)
	svc := newValidator(t, store, pub)

	for i := 0; i < 3; i++ {
		res, err := svc.Validate(context.Background(), rawBucket, "k.json")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, res.Outcome)
	}
	assert.Len(t, pub.Messages, 3)
	assert.NotEqual(t, pub.Messages[0].Value, pub.Messages[1].Value, "each publish is a distinct event")
}

func TestValidateInfrastructureFailures(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		store := newMemStorage()
		putRaw(t, store, "k.json", `{"id":"a1","name":"widget","timestamp":"t"}`)
		store.FailOn["get"] = errors.New("connection reset")
		pub := &fakePublisher{}

		res, err := newValidator(t, store, pub).Validate(context.Background(), rawBucket, "k.json")

		assert.ErrorContains(t, err, "connection reset")
		assert.Equal(t, StateRaw, res.State)
		assert.Empty(t, pub.Messages)
	})

	t.Run("publish failure", func(t *testing.T) {
		store := newMemStorage()
		putRaw(t, store, "k.json", `{"id":"a1","name":"widget","timestamp":"t"}`)
		pub := &fakePublisher{Err: errors.New("broker down")}

		res, err := newValidator(t, store, pub).Validate(context.Background(), rawBucket, "k.json")

		assert.ErrorContains(t, err, "broker down")
		assert.Equal(t, StateRaw, res.State)
		_, ok := store.Object(rawBucket, "k.json")
		assert.True(t, ok)
	})
}
