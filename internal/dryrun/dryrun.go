// Package dryrun previews resolved requests without sending them.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/skullzarmy/Tusk/internal/api"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// maxBodyPreview caps how much of a body is echoed back.
const maxBodyPreview = 2048

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Preview is the JSON-ready view of a request that would be sent.
type Preview struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Encoding string            `json:"encoding"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     string            `json:"body,omitempty"`
	BodySize int               `json:"body_size"`
	Attempts int               `json:"attempts"`
	Timeout  string            `json:"timeout"`
	Warnings []string          `json:"warnings,omitempty"`
}

// FromRequest builds a Preview. Credentials are applied at send time and
// never appear in the descriptor headers.
func FromRequest(desc *api.RequestDescriptor) *Preview {
	p := &Preview{
		Method:   desc.Method,
		URL:      desc.URL,
		Encoding: desc.Encoding.String(),
		BodySize: len(desc.Body),
		Attempts: desc.Retry.MaxRetries,
		Timeout:  desc.Timeout.String(),
	}

	if len(desc.Header) > 0 {
		p.Headers = make(map[string]string, len(desc.Header))
		for k := range desc.Header {
			p.Headers[k] = desc.Header.Get(k)
		}
	}

	switch {
	case len(desc.Body) == 0:
	case desc.Encoding == api.EncodingMultipart || !utf8.Valid(desc.Body):
		p.Body = fmt.Sprintf("<%d bytes %s>", len(desc.Body), desc.Encoding)
	case len(desc.Body) > maxBodyPreview:
		p.Body = string(desc.Body[:maxBodyPreview]) + "..."
	default:
		p.Body = string(desc.Body)
	}

	if desc.Method != http.MethodGet && desc.Retry.MaxRetries > 1 {
		p.Warnings = append(p.Warnings, fmt.Sprintf("%s may be sent up to %d times if the server fails to respond", desc.Method, desc.Retry.MaxRetries))
	}
	return p
}

// Write outputs the preview to the writer
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "[DRY-RUN] %s %s\n", p.Method, p.URL)
	_, _ = fmt.Fprintf(w, "  Encoding: %s\n", p.Encoding)
	_, _ = fmt.Fprintf(w, "  Attempts: %d\n", p.Attempts)
	_, _ = fmt.Fprintf(w, "  Timeout: %s\n", p.Timeout)

	if len(p.Headers) > 0 {
		keys := make([]string, 0, len(p.Headers))
		for k := range p.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = fmt.Fprintln(w, "  Headers:")
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "    %s: %s\n", k, p.Headers[k])
		}
	}

	if p.Body != "" {
		_, _ = fmt.Fprintf(w, "  Body: %s\n", strings.TrimRight(p.Body, "\n"))
	}

	for _, warning := range p.Warnings {
		_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
	}
	_, _ = fmt.Fprintln(w, "No request sent (dry-run mode)")
}
