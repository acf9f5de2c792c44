// Package tusk is a Mastodon REST API client.
//
//	client, err := tusk.New(tusk.Config{
//		APIURL:      "https://mastodon.social/api/v1/",
//		AccessToken: os.Getenv("TUSK_ACCESS_TOKEN"),
//	})
//	if err != nil {
//		return err
//	}
//	res, err := client.Get(ctx, "accounts/:id/statuses", tusk.NewParams().Set("id", "109302436954721982").Set("limit", 5))
//
// Path placeholders such as ":id" are filled from the parameter of the same
// name. Failures are returned as *Error; use AsError to inspect them.
package tusk

import "github.com/skullzarmy/Tusk/internal/api"

type (
	Client            = api.Client
	Config            = api.Config
	Credentials       = api.Credentials
	Params            = api.Params
	File              = api.File
	Result            = api.Result
	Error             = api.Error
	ErrorKind         = api.ErrorKind
	AuthMode          = api.AuthMode
	RetryPolicy       = api.RetryPolicy
	RetryOptions      = api.RetryOptions
	RequestDescriptor = api.RequestDescriptor
	RateLimitInfo     = api.RateLimitInfo
)

const (
	AuthBearer = api.AuthBearer
	AuthSigned = api.AuthSigned

	KindMissingParameter = api.KindMissingParameter
	KindInvalidMethod    = api.KindInvalidMethod
	KindJSONDecode       = api.KindJSONDecode
	KindAPI              = api.KindAPI
	KindTransport        = api.KindTransport
	KindCertificateTrust = api.KindCertificateTrust
	KindInvalidOptions   = api.KindInvalidOptions

	DefaultAPIURL = api.DefaultAPIURL

	// OptionsKey holds a RetryOptions value in a Params bag. It is removed
	// before the request is encoded.
	OptionsKey = api.MastoOptionsKey
)

// New creates a Client. An empty APIURL means DefaultAPIURL and an empty
// Mode means AuthBearer.
func New(cfg Config) (*Client, error) {
	return api.New(cfg)
}

// NewParams returns an empty, insertion-ordered parameter bag.
func NewParams() *Params {
	return api.NewParams()
}

// DefaultRetryPolicy reads TUSK_MAX_RETRIES and TUSK_RETRY_DELAY.
func DefaultRetryPolicy() RetryPolicy {
	return api.DefaultRetryPolicy()
}

// AsError unwraps err to a client *Error.
func AsError(err error) (*Error, bool) {
	return api.AsError(err)
}

// StatusCode returns the HTTP status carried by err, or 0 when no response
// was received.
func StatusCode(err error) int {
	return api.StatusCode(err)
}
