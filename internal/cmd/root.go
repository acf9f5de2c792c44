package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/skullzarmy/Tusk/internal/debug"
	"github.com/skullzarmy/Tusk/internal/dryrun"
	"github.com/skullzarmy/Tusk/internal/outfmt"
	"github.com/skullzarmy/Tusk/internal/validation"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output       string
	JSON         bool
	JQ           string
	Compact      bool
	Debug        bool
	Silent       bool
	DryRun       bool
	AllowPrivate bool
	Profile      string
	APIURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// flags is reset at the start of every Execute call. Reading it outside a
// command's RunE sees the previous invocation's values.
var flags rootFlags

func defaultFlags() rootFlags {
	return rootFlags{
		Output:       defaultOutput(),
		AllowPrivate: parseBoolEnv("TUSK_ALLOW_PRIVATE"),
	}
}

func defaultOutput() string {
	if value := strings.TrimSpace(os.Getenv("TUSK_OUTPUT")); value != "" {
		return value
	}
	return "text"
}

func parseBoolEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// loadUserEnv loads ~/.config/tusk/.env when present. Exported variables
// win over the file.
func loadUserEnv() {
	dir, err := os.UserConfigDir()
	if err != nil {
		return
	}
	path := filepath.Join(dir, "tusk", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	loadUserEnv()
	flags = defaultFlags()

	root := &cobra.Command{
		Use:   "tusk",
		Short: "Command-line client for the Mastodon REST API",
		Long: strings.TrimSpace(`
tusk sends requests to a Mastodon instance through a client that resolves
":name" path placeholders, encodes parameters, signs requests and retries
transient failures.

Credentials come from TUSK_ACCESS_TOKEN (plus TUSK_API_URL) or from a
profile saved with 'tusk auth login'.`),
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupContext(cmd)
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json|jsonl|ndjson (env TUSK_OUTPUT)")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.StringVarP(&flags.JQ, "jq", "q", "", "jq expression to filter JSON output")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&flags.Silent, "silent", false, "Suppress all non-error output")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Print the resolved request instead of sending it")
	pf.BoolVar(&flags.AllowPrivate, "allow-private", flags.AllowPrivate, "Allow private/localhost instance URLs (env TUSK_ALLOW_PRIVATE)")
	pf.StringVar(&flags.Profile, "profile", "", "Credential profile to use (env TUSK_PROFILE)")
	pf.StringVar(&flags.APIURL, "api-url", "", "API base URL, overriding the profile (e.g. https://mastodon.social/api/v1/)")
	pf.DurationVar(&flags.Timeout, "timeout", 0, "Per-attempt HTTP timeout (e.g. 30s)")
	pf.IntVar(&flags.MaxRetries, "max-retries", 0, "Total attempts per request (env TUSK_MAX_RETRIES)")
	pf.DurationVar(&flags.RetryDelay, "retry-delay", 0, "Base delay between attempts (env TUSK_RETRY_DELAY)")

	root.AddCommand(newAPICmd())
	for _, method := range []string{"GET", "POST", "PATCH", "PUT", "DELETE"} {
		root.AddCommand(newVerbCmd(method))
	}
	root.AddCommand(newBatchCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanceUnknownError(err, root, targetCmd))
		}
		return err
	}
	return nil
}

// setupContext validates global flags and stores output, debug and query
// settings on the command context.
func setupContext(cmd *cobra.Command) error {
	ctx := cmd.Context()

	if flags.JSON {
		if cmd.Flags().Changed("output") && flags.Output != "json" {
			return fmt.Errorf("--json conflicts with --output %s", flags.Output)
		}
		flags.Output = "json"
	}
	mode, err := outfmt.Parse(flags.Output)
	if err != nil {
		return err
	}
	if flags.JQ != "" && mode == outfmt.Text {
		if cmd.Flags().Changed("output") {
			return fmt.Errorf("--jq requires --output json or jsonl (or --json)")
		}
		mode = outfmt.JSON
	}
	if flags.Timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0")
	}
	if flags.MaxRetries < 0 {
		return fmt.Errorf("--max-retries must be >= 0")
	}
	if flags.RetryDelay < 0 {
		return fmt.Errorf("--retry-delay must be >= 0")
	}

	ctx = outfmt.WithMode(ctx, mode)
	ctx = outfmt.WithCompact(ctx, flags.Compact)
	if flags.JQ != "" {
		ctx = outfmt.WithQuery(ctx, flags.JQ)
	}

	if flags.Silent {
		cmd.SetOut(io.Discard)
	}

	validation.SetAllowPrivate(flags.AllowPrivate)
	if flags.AllowPrivate && !flags.Silent {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: allowing private/localhost URLs (use only with trusted targets).")
	}

	debug.SetupLogger(flags.Debug)
	ctx = debug.WithDebug(ctx, flags.Debug)
	ctx = dryrun.WithDryRun(ctx, flags.DryRun)

	cmd.SetContext(ctx)
	return nil
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command
// and flag errors. targetCmd is the command cobra resolved, possibly root.
func enhanceUnknownError(err error, root, targetCmd *cobra.Command) string {
	msg := err.Error()

	if strings.Contains(msg, "unknown command") {
		if unknown := extractQuoted(msg); unknown != "" {
			var names []string
			for _, c := range root.Commands() {
				if c.IsAvailableCommand() {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if suggestion := suggestCommand(unknown, names); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, suggestion)
			}
		}
		return msg
	}

	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "unknown shorthand flag") {
		unknown := extractFlag(msg)
		if unknown == "" {
			return msg
		}
		if targetCmd == nil {
			targetCmd = root
		}
		seen := make(map[string]bool)
		var names []string
		collect := func(fs *pflag.FlagSet) {
			fs.VisitAll(func(f *pflag.Flag) {
				for _, name := range []string{"--" + f.Name, shorthand(f)} {
					if name != "" && !seen[name] {
						seen[name] = true
						names = append(names, name)
					}
				}
			})
		}
		collect(targetCmd.Flags())
		collect(targetCmd.InheritedFlags())

		helpCmd := targetCmd.CommandPath() + " --help"
		if suggestion := suggestFlag(unknown, names); suggestion != "" {
			return fmt.Sprintf("%s\n\nDid you mean %q?\nRun %q to see supported flags.", msg, suggestion, helpCmd)
		}
		return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
	}

	return msg
}

func shorthand(f *pflag.Flag) string {
	if f.Shorthand == "" {
		return ""
	}
	return "-" + f.Shorthand
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag extracts a flag token such as "--foo" or "-z" from a pflag error.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		// "unknown shorthand flag: 'z' in -z"
		idx = strings.LastIndex(s, " -")
		if idx < 0 {
			return ""
		}
		idx++
	}
	rest := s[idx:]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimRight(rest, ".,;:!?\"'")
	if len(strings.TrimLeft(rest, "-")) == 0 {
		return ""
	}
	return rest
}
