// Package debug carries the debug flag through contexts and configures slog.
package debug

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

type contextKey struct{}

var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

// WithDebug returns a context with debug mode set.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, contextKey{}, enabled)
}

// IsEnabled reports whether debug mode is set on ctx.
func IsEnabled(ctx context.Context) bool {
	v, _ := ctx.Value(contextKey{}).(bool)
	return v
}

// SetupLogger installs a text handler on stderr: debug level when enabled,
// warn otherwise.
func SetupLogger(debugEnabled bool) {
	slog.SetDefault(NewLogger(os.Stderr, debugEnabled))
}

// NewLogger builds the logger SetupLogger installs, writing to w.
func NewLogger(w io.Writer, debugEnabled bool) *slog.Logger {
	level := slog.LevelWarn
	if debugEnabled {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// RedactHeaders returns a slog group of h with credential values masked.
// Only the auth scheme of Authorization survives.
func RedactHeaders(h http.Header) slog.Attr {
	attrs := make([]any, 0, len(h))
	for name, values := range h {
		value := strings.Join(values, ", ")
		if sensitiveHeaders[http.CanonicalHeaderKey(name)] {
			value = redact(value)
		}
		attrs = append(attrs, slog.String(name, value))
	}
	return slog.Group("headers", attrs...)
}

func redact(value string) string {
	if scheme, _, ok := strings.Cut(value, " "); ok {
		return scheme + " [REDACTED]"
	}
	return "[REDACTED]"
}
