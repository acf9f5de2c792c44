package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skullzarmy/Tusk/internal/api"
	"github.com/skullzarmy/Tusk/internal/dryrun"
	"github.com/skullzarmy/Tusk/internal/outfmt"
)

// errAlreadyHandled is a sentinel error indicating the error was already printed to stderr.
// Commands using RunE return it so cobra reports failure without printing again.
var errAlreadyHandled = errors.New("error already handled")

type handledError struct {
	err      error
	exitCode int
}

func (e *handledError) Error() string {
	return e.err.Error()
}

func (e *handledError) Unwrap() error {
	return errAlreadyHandled
}

func (e *handledError) ExitCode() int {
	return e.exitCode
}

// RunE wraps a command function with enhanced error handling
func RunE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		if isJSON(cmd) {
			if structured := api.StructuredErrorFromError(err); structured != nil {
				_ = outfmt.WriteJSON(cmd.ErrOrStderr(), map[string]any{"error": structured}, outfmt.IsCompact(cmd.Context()))
			}
		} else {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), HandleError(err))
		}
		return &handledError{err: err, exitCode: ExitCode(err)}
	}
}

func isJSON(cmd *cobra.Command) bool {
	return outfmt.IsJSON(cmd.Context())
}

// printJSON writes v to stdout through the output pipeline (jq, compact, jsonl).
func printJSON(cmd *cobra.Command, v any) error {
	return outfmt.Write(cmd.Context(), cmd.OutOrStdout(), v)
}

// printResult writes a response body. Text mode prints non-JSON bodies verbatim.
func printResult(cmd *cobra.Command, res *api.Result) error {
	if res == nil {
		return nil
	}
	if res.Data == nil {
		if !isJSON(cmd) && len(res.Body) > 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(res.Body), "\n"))
			return err
		}
		if outfmt.GetQuery(cmd.Context()) == "" {
			return nil
		}
	}
	return printJSON(cmd, res.Data)
}

// printPreviews writes dry-run previews. A single preview prints as an object.
func printPreviews(cmd *cobra.Command, previews ...*dryrun.Preview) error {
	if isJSON(cmd) {
		if len(previews) == 1 {
			return printJSON(cmd, previews[0])
		}
		return printJSON(cmd, previews)
	}
	for i, p := range previews {
		if i > 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
		}
		p.Write(cmd.OutOrStdout())
	}
	return nil
}

// maskToken keeps the first and last four characters of long secrets.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
