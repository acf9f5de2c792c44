package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a normalized client error.
type ErrorKind string

const (
	KindMissingParameter ErrorKind = "missing_parameter"
	KindInvalidMethod    ErrorKind = "invalid_method"
	KindJSONDecode       ErrorKind = "json_decode"
	KindAPI              ErrorKind = "api_error"
	KindTransport        ErrorKind = "transport"
	KindCertificateTrust ErrorKind = "certificate_trust"
	KindInvalidOptions   ErrorKind = "invalid_options"
)

// Error is the single error shape returned by every Client request.
//
// Code is nil unless the server reported one. AllErrors is never nil.
// MastodonReply holds the decoded response body (or the raw text when it was
// not JSON) and is nil when no body was received. StatusCode is 0 when no HTTP
// response was received.
type Error struct {
	Kind          ErrorKind
	Message       string
	Code          any
	AllErrors     []any
	MastodonReply any
	StatusCode    int
	Err           error
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		AllErrors: []any{},
		Err:       cause,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MissingParameterError reports a path placeholder with no usable value.
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("params object is missing a required parameter for this request: `%s`", e.Param)
}

// InvalidMethodError reports an HTTP method the client does not issue.
type InvalidMethodError struct {
	Method string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("invalid method %q: must be one of %s", e.Method, strings.Join(supportedMethods, ", "))
}

// CertificateTrustError reports a server certificate rejected by pinning.
type CertificateTrustError struct {
	Reason      string
	Fingerprint string
	Trusted     []string

	cause error
}

func (e *CertificateTrustError) Unwrap() error { return e.cause }

func (e *CertificateTrustError) Error() string {
	if e.Fingerprint == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s. Trusted fingerprints are: %s. Got fingerprint: %s.",
		e.Reason, strings.Join(e.Trusted, ","), e.Fingerprint)
}

// AsError returns the normalized error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func isKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// IsMissingParameterError checks if a path placeholder had no value.
func IsMissingParameterError(err error) bool {
	var e *MissingParameterError
	return errors.As(err, &e)
}

// IsInvalidMethodError checks if the request used an unsupported method.
func IsInvalidMethodError(err error) bool {
	var e *InvalidMethodError
	return errors.As(err, &e)
}

// IsCertificateTrustError checks if certificate pinning rejected the server.
func IsCertificateTrustError(err error) bool {
	var e *CertificateTrustError
	return errors.As(err, &e)
}

// IsJSONDecodeError checks if the response body could not be decoded.
func IsJSONDecodeError(err error) bool {
	return isKind(err, KindJSONDecode)
}

// IsAPIError checks if the server answered with an error body.
func IsAPIError(err error) bool {
	return isKind(err, KindAPI)
}

// IsTransportError checks if the request failed at the HTTP level.
func IsTransportError(err error) bool {
	return isKind(err, KindTransport)
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	if e, ok := AsError(err); ok {
		return e.StatusCode
	}
	return 0
}

// IsNotFoundError checks if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsAuthError checks if the server rejected the credentials.
func IsAuthError(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsRateLimitError checks if the server throttled the request.
func IsRateLimitError(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}
