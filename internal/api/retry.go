package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"
)

// Default retry configuration values
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
)

// DefaultAbortStatusCodes are statuses that end a request immediately.
var DefaultAbortStatusCodes = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusNotAcceptable,
	http.StatusGone,
	http.StatusUnprocessableEntity,
}

// RetryPolicy controls how a request is retried.
//
// MaxRetries is the total number of attempts, including the first one.
// The wait before attempt n+1 is RetryDelay*n.
type RetryPolicy struct {
	MaxRetries int
	RetryDelay time.Duration
	AbortOn    []int
}

// DefaultRetryPolicy returns a RetryPolicy populated from environment variables
// with fallback to default values.
//
// Environment variables:
//   - TUSK_MAX_RETRIES: total attempts per request (default: 3)
//   - TUSK_RETRY_DELAY: base delay between attempts (default: "1s")
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: getEnvInt("TUSK_MAX_RETRIES", DefaultMaxRetries),
		RetryDelay: getEnvDuration("TUSK_RETRY_DELAY", DefaultRetryDelay),
		AbortOn:    slices.Clone(DefaultAbortStatusCodes),
	}
}

// getEnvInt reads an integer from an environment variable with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration from an environment variable with a default fallback.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// withOverrides applies per-call options on top of the policy.
func (p RetryPolicy) withOverrides(o RetryOptions) RetryPolicy {
	if o.MaxRetries > 0 {
		p.MaxRetries = o.MaxRetries
	}
	if o.RetryDelay > 0 {
		p.RetryDelay = o.RetryDelay
	}
	return p
}

// normalized replaces unset values with the defaults.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.AbortOn == nil {
		p.AbortOn = DefaultAbortStatusCodes
	}
	return p
}

func (p RetryPolicy) aborts(statusCode int) bool {
	return slices.Contains(p.AbortOn, statusCode)
}

// backoff waits RetryDelay times the number of attempts made so far.
func (p RetryPolicy) backoff(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	return p.RetryDelay * time.Duration(attemptNum+1)
}

// checkRetry decides whether another attempt is made. Successful responses,
// abort statuses, cancellation and certificate rejections end the request;
// every other failure is retried.
func (p RetryPolicy) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		var certErr *CertificateTrustError
		if errors.As(err, &certErr) {
			return false, err
		}
		return true, nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	if p.aborts(resp.StatusCode) {
		return false, nil
	}
	return true, nil
}
