package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/skullzarmy/Tusk/internal/api"
	"github.com/skullzarmy/Tusk/internal/config"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	if errors.Is(err, config.ErrNotConfigured) {
		fmt.Fprintf(&msg, "Error: %s\n\n", err.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: tusk auth login --api-url https://<instance> --token <token>\n")
		msg.WriteString("  - Or export TUSK_ACCESS_TOKEN and TUSK_API_URL\n")
		return msg.String()
	}

	apiErr, ok := api.AsError(err)
	if !ok {
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
		return msg.String()
	}

	switch apiErr.Kind {
	case api.KindAPI:
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n", apiErr.StatusCode, apiErr.Message)
	case api.KindTransport:
		if apiErr.StatusCode != 0 {
			fmt.Fprintf(&msg, "Request failed (HTTP %d): %s\n", apiErr.StatusCode, apiErr.Message)
		} else {
			fmt.Fprintf(&msg, "Request failed: %s\n", apiErr.Message)
		}
	case api.KindCertificateTrust:
		fmt.Fprintf(&msg, "TLS certificate rejected: %s\n", apiErr.Message)
	default:
		fmt.Fprintf(&msg, "Error: %s\n", apiErr.Error())
	}
	for _, detail := range validationDetails(apiErr) {
		fmt.Fprintf(&msg, "  %s\n", detail)
	}

	code := api.ErrorCodeFromError(err)
	if suggestion := code.Suggestion(); suggestion != "" {
		msg.WriteString("\nSuggestions:\n")
		fmt.Fprintf(&msg, "  - %s\n", suggestion)
		if code.IsRetryable() {
			msg.WriteString("  - Use --debug to see each attempt\n")
		}
	}
	return msg.String()
}

// validationDetails flattens Mastodon's {"details": {"field": [{"description": ...}]}}.
func validationDetails(e *api.Error) []string {
	reply, ok := e.MastodonReply.(map[string]any)
	if !ok {
		return nil
	}
	details, ok := reply["details"].(map[string]any)
	if !ok {
		return nil
	}
	var out []string
	for field, raw := range details {
		items, _ := raw.([]any)
		for _, item := range items {
			entry, _ := item.(map[string]any)
			if desc, ok := entry["description"].(string); ok && desc != "" {
				out = append(out, fmt.Sprintf("%s: %s", field, desc))
			}
		}
	}
	slices.Sort(out)
	return out
}
