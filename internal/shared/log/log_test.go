package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDIsAttached(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)
	t.Cleanup(func() { InitWithWriter("info", "json", &bytes.Buffer{}) })

	ctx := WithRequestID(context.Background(), "req-123")
	Errorf(ctx, errors.New("boom"), "failed on %s", "k.json")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-123", line["request_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "failed on k.json", line["message"])
	assert.Equal(t, "error", line["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", "json", &buf)
	t.Cleanup(func() { InitWithWriter("info", "json", &bytes.Buffer{}) })

	Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
}
