package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/skullzarmy/Tusk/internal/api"
	"github.com/skullzarmy/Tusk/internal/dryrun"
	"github.com/skullzarmy/Tusk/internal/outfmt"
	"github.com/skullzarmy/Tusk/internal/validation"
)

// DefaultConcurrency is the default number of in-flight batch requests.
const DefaultConcurrency = 4

// MaxConcurrency caps --concurrency.
const MaxConcurrency = 32

type batchRequest struct {
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Params *api.Params `json:"params,omitempty"`
}

type batchResult struct {
	Index   int                  `json:"index"`
	Method  string               `json:"method"`
	Path    string               `json:"path"`
	Success bool                 `json:"success"`
	Status  int                  `json:"status,omitempty"`
	Data    any                  `json:"data,omitempty"`
	Error   *api.StructuredError `json:"error,omitempty"`
}

func newBatchCmd() *cobra.Command {
	var (
		inputFile   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run newline-delimited JSON requests concurrently",
		Long: strings.TrimSpace(`
Read one request per line as {"method": "...", "path": "...", "params": {...}}
and send them through a single client. Blank lines and lines starting with #
are skipped. Results are printed in input order.`),
		Example: strings.TrimSpace(`
  # Fetch several accounts
  printf '%s\n' '{"path":"accounts/:id","params":{"id":"1"}}' '{"path":"accounts/:id","params":{"id":"2"}}' | tusk batch -o jsonl

  # Favourite statuses listed in a file, 8 at a time
  tusk batch -i favourites.ndjson --concurrency 8`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if concurrency < 1 || concurrency > MaxConcurrency {
				return fmt.Errorf("--concurrency must be between 1 and %d", MaxConcurrency)
			}

			in := cmd.InOrStdin()
			if inputFile != "" && inputFile != "-" {
				f, err := os.Open(inputFile)
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			reqs, err := readBatch(in)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				return fmt.Errorf("no requests in input")
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			if dryrun.IsEnabled(cmd.Context()) {
				previews := make([]*dryrun.Preview, 0, len(reqs))
				for i, r := range reqs {
					desc, err := client.Describe(r.Method, r.Path, r.Params)
					if err != nil {
						return fmt.Errorf("request %d: %w", i+1, err)
					}
					previews = append(previews, dryrun.FromRequest(desc))
				}
				return printPreviews(cmd, previews...)
			}

			results := runBatch(cmd.Context(), client, reqs, concurrency)
			if err := printBatch(cmd, results); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "-", "NDJSON request file (use - for stdin)")
	cmd.Flags().IntVar(&concurrency, "concurrency", DefaultConcurrency, "Maximum requests in flight")
	return cmd
}

// readBatch parses NDJSON requests. Method defaults to GET.
func readBatch(r io.Reader) ([]batchRequest, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), validation.MaxBatchLineLen)

	var reqs []batchRequest
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var req batchRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			return nil, fmt.Errorf("invalid request on line %d: %w", line, err)
		}
		if err := validation.ValidateAPIPath(req.Path); err != nil {
			return nil, fmt.Errorf("invalid request on line %d: %w", line, err)
		}
		req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
		if req.Method == "" {
			req.Method = http.MethodGet
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return reqs, nil
}

// runBatch sends every request through requester with at most concurrency in
// flight. Individual failures are recorded, not propagated. Requests not
// started before ctx is cancelled report the context error.
func runBatch(ctx context.Context, requester api.Requester, reqs []batchRequest, concurrency int) []batchResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]batchResult, len(reqs))
	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		results[i] = batchResult{Index: i, Method: req.Method, Path: req.Path}

		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i].Error = api.StructuredErrorFromError(err)
				return nil
			}
			defer sem.Release(1)

			if err := gctx.Err(); err != nil {
				results[i].Error = api.StructuredErrorFromError(err)
				return nil
			}
			res, err := requester.Request(gctx, req.Method, req.Path, req.Params)
			if err != nil {
				results[i].Status = api.StatusCode(err)
				results[i].Error = api.StructuredErrorFromError(err)
				return nil
			}
			results[i].Success = true
			results[i].Status = res.StatusCode()
			results[i].Data = res.Data
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func printBatch(cmd *cobra.Command, results []batchResult) error {
	switch outfmt.ModeFromContext(cmd.Context()) {
	case outfmt.JSONL:
		for _, r := range results {
			if err := printJSON(cmd, r); err != nil {
				return err
			}
		}
		return nil
	case outfmt.JSON:
		return printJSON(cmd, results)
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Success {
			_, _ = fmt.Fprintf(out, "[%d] %s %s -> %d\n", r.Index, r.Method, r.Path, r.Status)
			continue
		}
		_, _ = fmt.Fprintf(out, "[%d] %s %s -> error: %s\n", r.Index, r.Method, r.Path, r.Error.Message)
	}
	return nil
}
