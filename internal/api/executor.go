package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/skullzarmy/Tusk/internal/debug"
)

// Result is a successful response. Data holds the decoded JSON body, Body the
// raw bytes. Resp carries status and headers; its body is already consumed.
type Result struct {
	Data any
	Resp *http.Response
	Body []byte
}

// StatusCode returns the HTTP status of the response.
func (r *Result) StatusCode() int {
	if r == nil || r.Resp == nil {
		return 0
	}
	return r.Resp.StatusCode
}

// Decode unmarshals the response body into v.
func (r *Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("unexpected API response format (JSON decode failed): %w", err)
	}
	return nil
}

type leveledSlog struct {
	inner *slog.Logger
}

// Error is logged at warn level because failed attempts are usually retried.
func (l leveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

// retryClient assembles the retrying HTTP client for one request. The
// transport chain is auth, then certificate pinning, then the client's
// base transport.
func (c *Client) retryClient(ctx context.Context, desc *RequestDescriptor) *retryablehttp.Client {
	httpClient := &http.Client{Timeout: desc.Timeout}
	base := http.DefaultTransport
	if c.HTTP != nil {
		*httpClient = *c.HTTP
		httpClient.Timeout = desc.Timeout
		if c.HTTP.Transport != nil {
			base = c.HTTP.Transport
		}
	}
	httpClient.Transport = &authTransport{
		auth: desc.Auth,
		base: newPinningTransport(base, desc.TrustedFingerprints),
	}

	policy := desc.Retry
	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.Logger = nil
	if debug.IsEnabled(ctx) {
		rc.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: slog.Default().With("subsystem", "tusk")})
	}
	rc.RetryMax = policy.MaxRetries - 1
	rc.RetryWaitMin = policy.RetryDelay
	rc.RetryWaitMax = policy.RetryDelay * time.Duration(policy.MaxRetries)
	rc.CheckRetry = policy.checkRetry
	rc.Backoff = policy.backoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, retry int) {
		if debug.IsEnabled(ctx) {
			slog.Debug("request attempt", "method", req.Method, "url", req.URL.Redacted(), "attempt", retry+1, "max_attempts", policy.MaxRetries, debug.RedactHeaders(req.Header))
		}
	}
	rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		c.observe(resp)
	}
	return rc
}

// observe updates client-wide state from any received response.
func (c *Client) observe(resp *http.Response) {
	if resp == nil {
		return
	}
	c.clock.observe(resp.Header, c.now())
	c.recordRateLimit(resp.Header)
}

// execute runs desc with retries and normalizes the outcome.
func (c *Client) execute(ctx context.Context, desc *RequestDescriptor) (*Result, error) {
	var rawBody any
	if len(desc.Body) > 0 {
		rawBody = desc.Body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, desc.Method, desc.URL, rawBody)
	if err != nil {
		return nil, NormalizeTransport(fmt.Errorf("failed to create request: %w", err), 0, nil)
	}
	for k, vs := range desc.Header {
		req.Header[k] = append([]string(nil), vs...)
	}

	start := time.Now()
	resp, err := c.retryClient(ctx, desc).Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if debug.IsEnabled(ctx) {
			slog.Debug("request failed", "method", desc.Method, "url", desc.URL, "error", err, "duration", time.Since(start))
		}
		var certErr *CertificateTrustError
		if errors.As(err, &certErr) {
			return nil, newCertificateTrustError(certErr)
		}
		return nil, NormalizeTransport(err, 0, nil)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NormalizeTransport(fmt.Errorf("failed to read response: %w", err), resp.StatusCode, nil)
	}
	if debug.IsEnabled(ctx) {
		slog.Debug("request complete", "method", desc.Method, "url", desc.URL, "status", resp.StatusCode, "duration", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NormalizeTransport(nil, resp.StatusCode, raw)
	}

	var data any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, newJSONDecodeError(err, resp.StatusCode, raw)
		}
		if hasErrorMarker(gjson.ParseBytes(raw)) {
			return nil, NormalizeBody(resp.StatusCode, raw)
		}
	}

	return &Result{Data: data, Resp: resp, Body: raw}, nil
}
