// Package store persists the client's credentials: the access token, the
// refresh credential and the last-known user profile. The browser client kept
// these in localStorage mirrored into cookies; here the same contract is
// served by pluggable backends plus a cookie jar owned by the Resolver.
package store

import "context"

// Keys under which credentials are persisted. Backends treat these as opaque.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyProfile      = "profile"
)

// Store is the persistent substrate for credentials. Get returns the empty
// string (or nil profile) when the entry is absent; absence is not an error.
type Store interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, tok string) error
	GetRefreshToken(ctx context.Context) (string, error)
	SetRefreshToken(ctx context.Context, tok string) error
	GetProfile(ctx context.Context) ([]byte, error)
	SetProfile(ctx context.Context, profile []byte) error
	// Clear removes every credential, including the cached profile.
	Clear(ctx context.Context) error
}
