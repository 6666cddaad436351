// Package token inspects bearer tokens on the client side. Tokens are issued
// and signed by the backend; the client never verifies signatures, it only
// decodes the payload to read subject, role and expiry. All of that decoding
// lives here so the request pipeline, the session bootstrap and any UI code
// agree on what a given token string means.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OpaqueSession is the sentinel returned when no readable token exists but
// cookie evidence suggests an HTTP-only server session. It is never sent as an
// Authorization header; its presence tells the pipeline to rely on implicit
// cookie transmission.
const OpaqueSession = "\x00opaque-session"

// minPlausibleLen rejects strings too short to be a signed token even when
// they happen to contain two dots.
const minPlausibleLen = 16

// Role is the closed set of subject roles the platform issues.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleGuest    Role = "guest"
	RoleWaiter   Role = "waiter"
	RoleAdmin    Role = "admin"
)

// State tags the outcome of decoding a token string.
type State int

const (
	// Valid means the token decoded and its expiry, if any, is in the future.
	Valid State = iota
	// Malformed means the string does not have the three-segment shape of a
	// signed token. Malformed tokens are treated as absent.
	Malformed
	// DecodeFailed means the shape was right but the payload segment could
	// not be decoded. The outbound pipeline attaches such tokens anyway and
	// lets the server decide; Expired treats them as expired.
	DecodeFailed
	// Expired means the encoded expiry is not after the reference time.
	Expired
)

// Claims is the decoded token payload.
type Claims struct {
	Subject  string
	Role     Role
	IssuedAt time.Time
	Expiry   time.Time
}

// Result is the tagged outcome of Decode.
type Result struct {
	State  State
	Claims Claims
}

type payload struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Decode inspects raw against the reference time now. It is pure: no storage,
// no clock reads, no logging.
func Decode(raw string, now time.Time) Result {
	if raw == "" || raw == OpaqueSession || len(raw) < minPlausibleLen {
		return Result{State: Malformed}
	}
	if strings.Count(raw, ".") != 2 {
		return Result{State: Malformed}
	}

	var claims payload
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Result{State: DecodeFailed}
	}

	out := Claims{
		Subject: claims.Subject,
		Role:    Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.Expiry = claims.ExpiresAt.Time
		if !claims.ExpiresAt.Time.After(now) {
			return Result{State: Expired, Claims: out}
		}
	}
	return Result{State: Valid, Claims: out}
}

// IsExpired reports whether raw should be considered unusable at time now.
// Unlike the outbound pipeline, this is fail-closed: any decode problem counts
// as expired.
func IsExpired(raw string, now time.Time) bool {
	return Decode(raw, now).State != Valid
}
