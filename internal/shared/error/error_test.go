package error

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("ingest: %w", ErrInvalidRequestBody.WithDetails("unexpected EOF"))

	assert.True(t, errors.Is(wrapped, ErrInvalidRequestBody))
	assert.False(t, errors.Is(wrapped, ErrMissingRequiredField))
	assert.Equal(t, "[INGEST_1002] Invalid request body", ErrInvalidRequestBody.Error())
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantCode   string
	}{
		{"custom error", ErrMissingRequiredField, 400, "Missing required fields: id, name", "INGEST_1003"},
		{"wrapped custom error", fmt.Errorf("wrap: %w", ErrIngestionFailed), 500, "Internal server error", "INGEST_1005"},
		{"fiber error", fiber.NewError(fiber.StatusMethodNotAllowed, "nope"), 405, "nope", "HTTP_405"},
		{"fiber not found", fiber.NewError(fiber.StatusNotFound, "Cannot GET /x"), 404, "Cannot GET /x", "HTTP_404"},
		{"fiber bad request", fiber.ErrBadRequest, 400, "Bad Request", "HTTP_400"},
		{"fiber body too large", fiber.ErrRequestEntityTooLarge, 413, "Request body too large", "INGEST_1004"},
		{"plain error", errors.New("disk on fire"), 500, "Internal server error", "HTTP_500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestErrorHandlerBodyLimit(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(), BodyLimit: 16})
	app.Post("/ingest", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	// app.Test surfaces fasthttp's body-limit error instead of the rendered
	// response, so serve on a real listener to observe what clients get.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/ingest", "application/json", strings.NewReader(`{"id":"a1","name":"far too long for the limit"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrRequestBodyTooLarge.Code, body["code"])
}
