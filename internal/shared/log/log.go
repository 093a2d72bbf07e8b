// Package log is the application logger. It wraps zerolog and pulls the
// request id out of the context so every line can be correlated.
package log

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Init configures the global logger. format is "json" (default) or "console".
func Init(level, format string) {
	InitWithWriter(level, format, os.Stdout)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(level, format string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	logger = zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "record-pipeline").Logger()
	mu.Unlock()
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

func from(ctx context.Context) *zerolog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if id := RequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}

func Debugf(ctx context.Context, format string, args ...any) {
	from(ctx).Debug().Msgf(format, args...)
}

func Info(ctx context.Context, msg string) {
	from(ctx).Info().Msg(msg)
}

func Infof(ctx context.Context, format string, args ...any) {
	from(ctx).Info().Msgf(format, args...)
}

func Warn(ctx context.Context, msg string) {
	from(ctx).Warn().Msg(msg)
}

func Warnf(ctx context.Context, format string, args ...any) {
	from(ctx).Warn().Msgf(format, args...)
}

func Error(ctx context.Context, err error, msg string) {
	from(ctx).Error().Err(err).Msg(msg)
}

func Errorf(ctx context.Context, err error, format string, args ...any) {
	from(ctx).Error().Err(err).Msgf(format, args...)
}

// ErrorWithStack logs err together with the current goroutine stack.
func ErrorWithStack(ctx context.Context, err error, msg string) {
	from(ctx).Error().Err(err).Str("stack", string(debug.Stack())).Msg(msg)
}

// Fatal logs and exits the process.
func Fatal(ctx context.Context, err error, msg string) {
	from(ctx).Fatal().Err(err).Msg(msg)
}

func RequestStart(ctx context.Context, req *http.Request, body []byte) {
	ev := from(ctx).Info().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("remote_addr", req.RemoteAddr).
		Int("body_size", len(body))
	if q := req.URL.RawQuery; q != "" {
		ev = ev.Str("query", q)
	}
	ev.Msg("request started")
}

func RequestEnd(ctx context.Context, req *http.Request, status int, elapsed time.Duration, size int) {
	var ev *zerolog.Event
	switch {
	case status >= 500:
		ev = from(ctx).Error()
	case status >= 400:
		ev = from(ctx).Warn()
	default:
		ev = from(ctx).Info()
	}
	ev.Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", status).
		Dur("latency", elapsed).
		Int("response_size", size).
		Msg("request completed")
}

func PanicLog(ctx context.Context, req *http.Request, recovered any) {
	from(ctx).Error().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("panic", fmt.Sprintf("%v", recovered)).
		Str("stack", string(debug.Stack())).
		Msg("panic recovered")
}
