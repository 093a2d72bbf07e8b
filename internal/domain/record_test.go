package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTripKeepsUnknownFields(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"id":"a1","name":"widget","nested":{"n":1.50},"list":[1,"two",null]}`))
	require.NoError(t, err)

	rec.SetString(FieldIngestedAt, "2024-01-01T00:00:00Z")
	require.NoError(t, MarkProcessed(rec))

	assert.Equal(t,
		`{"id":"a1","name":"widget","nested":{"n":1.50},"list":[1,"two",null],"ingested_at":"2024-01-01T00:00:00Z","processed":true}`,
		string(rec.Marshal()))
}

func TestRecordSetOverwrites(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"processed":false,"ingested_at":"old"}`))
	require.NoError(t, err)

	rec.SetBool(FieldProcessed, true)
	rec.SetString(FieldIngestedAt, "new")

	assert.Equal(t, `{"processed":true,"ingested_at":"new"}`, string(rec.Marshal()))
}

func TestRecordText(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"id":42,"name":"widget","timestamp":null}`))
	require.NoError(t, err)

	id, ok := rec.Text(FieldID)
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	name, ok := rec.Text(FieldName)
	assert.True(t, ok)
	assert.Equal(t, "widget", name)

	ts, ok := rec.Text(FieldTimestamp)
	assert.True(t, ok)
	assert.Equal(t, "null", ts)
	assert.True(t, rec.Has(FieldTimestamp))

	_, ok = rec.Text("missing")
	assert.False(t, ok)
	assert.False(t, rec.Has("missing"))
}

func TestParseRecordRejectsNonObjects(t *testing.T) {
	for _, body := range []string{`[]`, `"text"`, `12`, `{"id":`, ``} {
		_, err := ParseRecord([]byte(body))
		assert.Error(t, err, body)
	}
}
