// Package outfmt renders API responses for the command line.
package outfmt

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Mode represents the output format mode
type Mode int

const (
	// Text prints pretty JSON and human summaries
	Text Mode = iota
	// JSON outputs structured JSON only
	JSON
	// JSONL outputs one JSON document per line
	JSONL
)

type (
	modeKey    struct{}
	compactKey struct{}
	queryKey   struct{}
)

// Parse parses an output mode string
func Parse(s string) (Mode, error) {
	switch s {
	case "text", "":
		return Text, nil
	case "json":
		return JSON, nil
	case "jsonl", "ndjson":
		return JSONL, nil
	default:
		return Text, fmt.Errorf("invalid output format: %q (use 'text', 'json', 'jsonl' or 'ndjson')", s)
	}
}

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case JSON:
		return "json"
	case JSONL:
		return "jsonl"
	default:
		return "text"
	}
}

// WithMode adds the output mode to the context
func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, mode)
}

// ModeFromContext retrieves the output mode from context
func ModeFromContext(ctx context.Context) Mode {
	mode, _ := ctx.Value(modeKey{}).(Mode)
	return mode
}

// IsJSON reports whether output must be machine readable.
func IsJSON(ctx context.Context) bool {
	return ModeFromContext(ctx) != Text
}

// WithCompact adds the compact flag to the context
func WithCompact(ctx context.Context, compact bool) context.Context {
	return context.WithValue(ctx, compactKey{}, compact)
}

// IsCompact reports whether single-line JSON was requested. JSONL is always compact.
func IsCompact(ctx context.Context) bool {
	c, _ := ctx.Value(compactKey{}).(bool)
	return c || ModeFromContext(ctx) == JSONL
}

// WithQuery adds a jq expression to the context
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// GetQuery retrieves the jq expression from context
func GetQuery(ctx context.Context) string {
	q, _ := ctx.Value(queryKey{}).(string)
	return q
}

// WriteJSON writes v as JSON, indented unless compact.
func WriteJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Write renders v according to the context: the jq query runs first, and
// in JSONL mode each query result goes on its own line.
func Write(ctx context.Context, w io.Writer, v any) error {
	query := GetQuery(ctx)
	compact := IsCompact(ctx)
	if query == "" {
		return WriteJSON(w, v, compact)
	}
	results, err := Query(v, query)
	if err != nil {
		return err
	}
	if ModeFromContext(ctx) == JSONL {
		for _, r := range results {
			if err := WriteJSON(w, r, true); err != nil {
				return err
			}
		}
		return nil
	}
	return WriteJSON(w, collapse(results), compact)
}

func collapse(results []any) any {
	if len(results) == 1 {
		return results[0]
	}
	if results == nil {
		return []any{}
	}
	return results
}
