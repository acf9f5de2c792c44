package cmd

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/skullzarmy/Tusk/internal/api"
	"github.com/skullzarmy/Tusk/internal/dryrun"
	"github.com/skullzarmy/Tusk/internal/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// requestFlags are the parameter flags shared by `api` and the verb commands.
type requestFlags struct {
	fields         []string
	rawFields      []string
	inputFile      string
	includeHeaders bool
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.fields, "field", "f", nil, "Parameter as key=value (string; @path attaches a file; key[]=v forces a list)")
	cmd.Flags().StringArrayVarP(&f.rawFields, "raw-field", "F", nil, "Parameter as key=<json> (numbers, booleans, arrays, objects)")
	cmd.Flags().StringVarP(&f.inputFile, "input", "i", "", "Read parameters from a JSON object file (use - for stdin)")
	cmd.Flags().BoolVar(&f.includeHeaders, "include", false, "Include status, headers and rate limit in output")
}

func (f *requestFlags) params(cmd *cobra.Command) (*api.Params, error) {
	return buildParams(f.fields, f.rawFields, f.inputFile, cmd.InOrStdin())
}

func newAPICmd() *cobra.Command {
	var method string
	var reqFlags requestFlags

	cmd := &cobra.Command{
		Use:   "api <path>",
		Short: "Send a request to any Mastodon API endpoint",
		Long: strings.TrimSpace(`
Send a request to any Mastodon API endpoint.

The path is relative to the configured API URL (https://<instance>/api/v1/
by default). Placeholders such as ":id" are filled from the parameter of the
same name and removed from the parameters. The remaining parameters go to the
query string for GET and DELETE; for other methods they are sent as JSON,
form or multipart data depending on the endpoint and on attached files.`),
		Example: strings.TrimSpace(`
  # Home timeline
  tusk api timelines/home -f limit=5

  # Fill a path placeholder
  tusk api accounts/:id/statuses -f id=109302436954721982

  # Post a status with a list parameter
  tusk api statuses -X POST -f status="hello" -f media_ids[]=1 -f media_ids[]=2

  # Upload media
  tusk api media -X POST -f file=@photo.png -f description="A cat"

  # Parameters from a file or stdin
  echo '{"status":"hi","visibility":"unlisted"}' | tusk api statuses -X POST -i -

  # Show status, headers and rate limit
  tusk api accounts/verify_credentials --include`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, method, args[0], &reqFlags)
		}),
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method (GET, POST, PATCH, PUT, DELETE)")
	reqFlags.bind(cmd)
	return cmd
}

func runRequest(cmd *cobra.Command, method, path string, reqFlags *requestFlags) error {
	if err := validation.ValidateAPIPath(path); err != nil {
		return err
	}
	params, err := reqFlags.params(cmd)
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	if dryrun.IsEnabled(cmd.Context()) {
		desc, err := client.Describe(method, path, params)
		if err != nil {
			return err
		}
		return printPreviews(cmd, dryrun.FromRequest(desc))
	}

	res, err := client.Request(cmd.Context(), method, path, params)
	if err != nil {
		return err
	}

	if reqFlags.includeHeaders {
		return printWithHeaders(cmd, res, client.LastRateLimit())
	}
	return printResult(cmd, res)
}

func printWithHeaders(cmd *cobra.Command, res *api.Result, rate *api.RateLimitInfo) error {
	var headers http.Header
	if res.Resp != nil {
		headers = res.Resp.Header
	}

	if isJSON(cmd) {
		payload := map[string]any{
			"status":  res.StatusCode(),
			"headers": headers,
			"body":    res.Data,
		}
		if meta := rate.Meta(); meta != nil {
			payload["rate_limit"] = meta
		}
		return printJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "HTTP %d\n", res.StatusCode())
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			_, _ = fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
	_, _ = fmt.Fprintln(out)
	return printResult(cmd, res)
}

// buildParams merges an optional JSON object input with -f and -F fields.
// Fields override input keys; a key repeated across fields becomes a list.
func buildParams(fields, rawFields []string, inputFile string, stdin io.Reader) (*api.Params, error) {
	params := api.NewParams()

	if inputFile != "" {
		data, err := readInput(inputFile, stdin)
		if err != nil {
			return nil, err
		}
		if err := params.UnmarshalJSON(data); err != nil {
			return nil, fmt.Errorf("failed to parse input JSON: %w", err)
		}
	}

	fromFields := make(map[string]bool)
	add := func(key string, value any, forceList bool) {
		existing, seen := params.Get(key)
		switch {
		case seen && fromFields[key]:
			if list, ok := existing.([]any); ok {
				params.Set(key, append(list, value))
			} else {
				params.Set(key, []any{existing, value})
			}
		case forceList:
			params.Set(key, []any{value})
		default:
			params.Set(key, value)
		}
		fromFields[key] = true
	}

	for _, field := range fields {
		key, raw, err := parseField(field)
		if err != nil {
			return nil, err
		}
		key, forceList := listKey(key)
		if err := validation.ValidateFieldValue(key, raw); err != nil {
			return nil, err
		}
		var value any = raw
		if path, ok := strings.CutPrefix(raw, "@"); ok && path != "" {
			file, err := loadFile(path)
			if err != nil {
				return nil, err
			}
			value = file
		}
		add(key, value, forceList)
	}

	for _, field := range rawFields {
		key, raw, err := parseField(field)
		if err != nil {
			return nil, err
		}
		key, forceList := listKey(key)
		if err := validation.ValidateFieldValue(key, raw); err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid JSON in raw field %q: %w", key, err)
		}
		add(key, value, forceList)
	}

	return params, nil
}

// parseField splits key=value. The key must be non-empty.
func parseField(field string) (string, string, error) {
	key, value, ok := strings.Cut(field, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid field format %q: must be key=value", field)
	}
	return key, value, nil
}

// listKey strips a trailing "[]" and reports whether it was present.
func listKey(key string) (string, bool) {
	if trimmed, ok := strings.CutSuffix(key, "[]"); ok && trimmed != "" {
		return trimmed, true
	}
	return key, false
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// loadFile reads a file attachment. The content type comes from the extension,
// falling back to content sniffing.
func loadFile(path string) (api.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return api.File{}, fmt.Errorf("failed to read file: %w", err)
	}
	if info.IsDir() {
		return api.File{}, fmt.Errorf("%q is a directory", path)
	}
	if err := validation.ValidateUploadSize(path, info.Size()); err != nil {
		return api.File{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return api.File{}, fmt.Errorf("failed to read file: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return api.File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}
