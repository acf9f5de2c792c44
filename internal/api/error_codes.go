package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents machine-readable error codes for scripted error handling.
type ErrorCode string

const (
	// ErrBadRequest indicates a malformed request (HTTP 400).
	ErrBadRequest ErrorCode = "bad_request"
	// ErrUnauthorized indicates authentication is required or failed (HTTP 401).
	ErrUnauthorized ErrorCode = "unauthorized"
	// ErrForbidden indicates the user lacks permission (HTTP 403).
	ErrForbidden ErrorCode = "forbidden"
	// ErrNotFound indicates the requested resource does not exist (HTTP 404).
	ErrNotFound ErrorCode = "not_found"
	// ErrNotAcceptable indicates the server cannot produce the response (HTTP 406).
	ErrNotAcceptable ErrorCode = "not_acceptable"
	// ErrGone indicates the resource was deleted (HTTP 410).
	ErrGone ErrorCode = "gone"
	// ErrValidation indicates input validation failed (HTTP 422).
	ErrValidation ErrorCode = "validation_failed"
	// ErrRateLimited indicates too many requests (HTTP 429).
	ErrRateLimited ErrorCode = "rate_limited"
	// ErrServerError indicates an internal server error (HTTP 5xx).
	ErrServerError ErrorCode = "server_error"
	// ErrTimeout indicates the request timed out.
	ErrTimeout ErrorCode = "timeout"
	// ErrMissingParameter indicates a path placeholder had no value.
	ErrMissingParameter ErrorCode = "missing_parameter"
	// ErrInvalidMethod indicates an unsupported HTTP method.
	ErrInvalidMethod ErrorCode = "invalid_method"
	// ErrInvalidOptions indicates malformed per-call options.
	ErrInvalidOptions ErrorCode = "invalid_options"
	// ErrInvalidResponse indicates the response body was not valid JSON.
	ErrInvalidResponse ErrorCode = "invalid_response"
	// ErrAPI indicates the server answered with an error body.
	ErrAPI ErrorCode = "api_error"
	// ErrNetwork indicates no HTTP response was received.
	ErrNetwork ErrorCode = "network_error"
	// ErrCertificateUntrusted indicates certificate pinning rejected the server.
	ErrCertificateUntrusted ErrorCode = "certificate_untrusted"
	// ErrUnknown indicates an unknown or unclassified error.
	ErrUnknown ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed on retry.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrServerError, ErrTimeout, ErrNetwork:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable suggestion for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case ErrUnauthorized:
		return "Run 'tusk auth login' to store a valid access token"
	case ErrForbidden:
		return "Check that the access token has the required scopes"
	case ErrNotFound:
		return "Verify the endpoint path and resource ID"
	case ErrGone:
		return "The resource was deleted"
	case ErrRateLimited:
		return "Wait for the rate limit window to reset and retry"
	case ErrValidation:
		return "Check the parameter values"
	case ErrBadRequest:
		return "Check the request format and parameters"
	case ErrServerError:
		return "The server encountered an error; try again later"
	case ErrTimeout:
		return "The request timed out; raise --timeout or check connectivity"
	case ErrMissingParameter:
		return "Pass every :placeholder in the path with -f name=value"
	case ErrInvalidMethod:
		return "Use one of GET, POST, PATCH, PUT, DELETE"
	case ErrNetwork:
		return "Check network connectivity and the instance URL"
	case ErrCertificateUntrusted:
		return "Verify the trusted certificate fingerprints for this instance"
	case ErrInvalidResponse:
		return "The instance did not return JSON; check the API URL"
	default:
		return ""
	}
}

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	switch statusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 406:
		return ErrNotAcceptable
	case 410:
		return ErrGone
	case 422:
		return ErrValidation
	case 429:
		return ErrRateLimited
	default:
		if statusCode >= 500 && statusCode < 600 {
			return ErrServerError
		}
		return ErrUnknown
	}
}

// ErrorCodeFromError classifies any error returned by the client.
func ErrorCodeFromError(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	e, ok := AsError(err)
	if !ok {
		return ErrUnknown
	}
	switch e.Kind {
	case KindMissingParameter:
		return ErrMissingParameter
	case KindInvalidMethod:
		return ErrInvalidMethod
	case KindInvalidOptions:
		return ErrInvalidOptions
	case KindJSONDecode:
		return ErrInvalidResponse
	case KindCertificateTrust:
		return ErrCertificateUntrusted
	case KindAPI:
		if code := ErrorCodeFromStatus(e.StatusCode); code != ErrUnknown {
			return code
		}
		return ErrAPI
	case KindTransport:
		if e.StatusCode == 0 {
			return ErrNetwork
		}
		return ErrorCodeFromStatus(e.StatusCode)
	}
	return ErrUnknown
}

// StructuredError provides machine-readable error information for scripts.
type StructuredError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewStructuredError creates a StructuredError from an ErrorCode and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// StructuredErrorFromError attempts to convert any error to a StructuredError.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	out := NewStructuredError(ErrorCodeFromError(err), err.Error())
	if e, ok := AsError(err); ok {
		out.Message = e.Message
		ctx := map[string]any{"kind": string(e.Kind)}
		if e.StatusCode != 0 {
			ctx["status_code"] = e.StatusCode
		}
		if e.Code != nil {
			ctx["error_code"] = e.Code
		}
		if len(e.AllErrors) > 0 {
			ctx["errors"] = e.AllErrors
		}
		out.Context = ctx
	}
	return out
}
