package api

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	apiErrorMessage   = "Mastodon API error"
	jsonDecodeMessage = "JSON decode error: Mastodon HTTP response body was not valid JSON"
)

// hasErrorMarker reports whether a decoded response body is an API-level
// error: a non-empty "error" string or a non-empty "errors" list.
func hasErrorMarker(body gjson.Result) bool {
	if present(body.Get("error")) {
		return true
	}
	errs := body.Get("errors")
	return errs.IsArray() && len(errs.Array()) > 0
}

// present reports whether a JSON value is set to something other than
// null, false, zero or the empty string.
func present(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	}
	return false
}

// attachBody copies the error details found in raw into e. A body with an
// "error" field wins over an "errors" list.
func (e *Error) attachBody(raw []byte) {
	if len(raw) == 0 {
		return
	}
	if !gjson.ValidBytes(raw) {
		e.MastodonReply = string(raw)
		return
	}

	body := gjson.ParseBytes(raw)
	reply := body.Value()
	e.MastodonReply = reply

	if msg := body.Get("error"); present(msg) {
		e.Message = msg.String()
		e.AllErrors = append(e.AllErrors, reply)
		return
	}
	errs := body.Get("errors")
	if !errs.IsArray() {
		return
	}
	items := errs.Array()
	if len(items) == 0 {
		return
	}
	e.Message = items[0].Get("message").String()
	if code := items[0].Get("code"); code.Exists() {
		e.Code = code.Value()
	}
	for _, item := range items {
		e.AllErrors = append(e.AllErrors, item.Value())
	}
}

// NormalizeBody builds the error for a 2xx response whose body carries an
// error marker.
func NormalizeBody(statusCode int, raw []byte) *Error {
	e := newError(KindAPI, apiErrorMessage, nil)
	e.StatusCode = statusCode
	e.attachBody(raw)
	return e
}

// NormalizeTransport builds the error for a failed exchange. statusCode is 0
// and raw is nil when no response was received.
func NormalizeTransport(cause error, statusCode int, raw []byte) *Error {
	var msg string
	switch {
	case cause != nil:
		msg = cause.Error()
	case statusCode != 0:
		msg = fmt.Sprintf("request failed with status code %d", statusCode)
	default:
		msg = "request error"
	}
	e := newError(KindTransport, msg, cause)
	e.StatusCode = statusCode
	e.attachBody(raw)
	return e
}

func newJSONDecodeError(cause error, statusCode int, raw []byte) *Error {
	e := newError(KindJSONDecode, jsonDecodeMessage, cause)
	e.StatusCode = statusCode
	e.MastodonReply = string(raw)
	e.AllErrors = append(e.AllErrors, map[string]any{"error": cause.Error()})
	return e
}

func newMissingParameterError(cause *MissingParameterError) *Error {
	return newError(KindMissingParameter, cause.Error(), cause)
}

func newInvalidMethodError(method string) *Error {
	cause := &InvalidMethodError{Method: method}
	return newError(KindInvalidMethod, cause.Error(), cause)
}

func newCertificateTrustError(cause *CertificateTrustError) *Error {
	return newError(KindCertificateTrust, cause.Error(), cause)
}
