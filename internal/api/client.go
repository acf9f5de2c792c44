package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var supportedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPatch,
	http.MethodPut,
	http.MethodDelete,
}

// Client is a Mastodon API client. It is safe for concurrent use.
//
// Every call resolves "/:name" placeholders from its parameters, encodes the
// remaining parameters, authenticates and sends the request with retries, and
// returns either a *Result or an *Error.
//
// Requests are retried regardless of method, so a POST that reached the
// server before a transport failure may be applied more than once.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Retry     RetryPolicy

	mu     sync.RWMutex
	config Config

	clock clockSkew

	rateLimitMu   sync.Mutex
	lastRateLimit *RateLimitInfo

	now   func() time.Time
	nonce func() string
}

// Compile-time interface implementation checks
var (
	_ Requester     = (*Client)(nil)
	_ VerbRequester = (*Client)(nil)
	_ AuthStore     = (*Client)(nil)
)

// New creates a Client from cfg. Missing API URL and auth mode fall back to
// their defaults; the result is validated.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	transport.TLSClientConfig.InsecureSkipVerify = false

	retry := DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		retry.RetryDelay = cfg.RetryDelay
	}

	return &Client{
		HTTP: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
		UserAgent: DefaultUserAgent,
		Retry:     retry,
		config:    cfg,
		now:       time.Now,
		nonce:     uuid.NewString,
	}, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, params *Params) (*Result, error) {
	return c.Request(ctx, http.MethodGet, path, params)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, params *Params) (*Result, error) {
	return c.Request(ctx, http.MethodPost, path, params)
}

// Patch performs a PATCH request
func (c *Client) Patch(ctx context.Context, path string, params *Params) (*Result, error) {
	return c.Request(ctx, http.MethodPatch, path, params)
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, path string, params *Params) (*Result, error) {
	return c.Request(ctx, http.MethodPut, path, params)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string, params *Params) (*Result, error) {
	return c.Request(ctx, http.MethodDelete, path, params)
}

// Request performs a request with an explicit method. path is relative to the
// configured API URL unless it starts with http:// or https://. Methods other
// than GET, POST, PATCH, PUT and DELETE fail without any network activity.
func (c *Client) Request(ctx context.Context, method, path string, params *Params) (*Result, error) {
	desc, err := c.Describe(method, path, params)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, desc)
}

// Describe validates method and resolves the request Request would send,
// without sending it.
func (c *Client) Describe(method, path string, params *Params) (*RequestDescriptor, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if !slices.Contains(supportedMethods, method) {
		return nil, newInvalidMethodError(method)
	}
	return c.BuildRequest(method, path, params)
}

// SetAuth merges the non-empty fields of creds into the client credentials.
// When the merged configuration is invalid the previous credentials are kept.
func (c *Client) SetAuth(creds Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.config.merge(creds)
	if err := next.Validate(); err != nil {
		return err
	}
	c.config = next
	return nil
}

// Auth returns a copy of the current configuration, credentials included.
func (c *Client) Auth() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg := c.config
	cfg.TrustedCertFingerprints = slices.Clone(c.config.TrustedCertFingerprints)
	return cfg
}

// ClockOffset returns the last observed difference between server and local
// time. Signed requests use it to compute their timestamps.
func (c *Client) ClockOffset() time.Duration {
	return c.clock.Offset()
}
