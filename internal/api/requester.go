package api

import "context"

// Requester issues a request with an explicit method.
//
// It is the interface batch and command code depend on, so tests can replace
// the network with a fake.
type Requester interface {
	Request(ctx context.Context, method, path string, params *Params) (*Result, error)
}

// VerbRequester provides one method per supported HTTP verb.
type VerbRequester interface {
	Get(ctx context.Context, path string, params *Params) (*Result, error)
	Post(ctx context.Context, path string, params *Params) (*Result, error)
	Patch(ctx context.Context, path string, params *Params) (*Result, error)
	Put(ctx context.Context, path string, params *Params) (*Result, error)
	Delete(ctx context.Context, path string, params *Params) (*Result, error)
}

// AuthStore reads and replaces client credentials.
type AuthStore interface {
	SetAuth(creds Credentials) error
	Auth() Config
}
