package store

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dinetap/dinetap-go/token"
)

// CookieMaxAge matches the max-age the browser client stamped on its mirrored
// auth cookie.
const CookieMaxAge = 86400

// DefaultCookieNames is the canonical precedence for readable auth cookies.
// The source client disagreed with itself about this order across files;
// auth_token wins because it is the name the client itself mirrors.
var DefaultCookieNames = []string{"auth_token", "access_token", "jwt", "token"}

// opaqueSessionCookies are names that indicate a server-managed HTTP-only
// session even when no readable token cookie exists.
var opaqueSessionCookies = []string{"connect.sid", "session", "sid"}

// opaqueEvidenceBytes is the cookie byte-length above which we assume a
// server session exists even without a recognizable session cookie name.
const opaqueEvidenceBytes = 100

// Resolver combines a persistent Store with the client's cookie jar into the
// single token-resolution surface the pipeline reads from. Precedence on read
// is persistent store, then readable cookies, then opaque-session evidence.
type Resolver struct {
	store   Store
	jar     http.CookieJar
	baseURL *url.URL
	names   []string
	now     func() time.Time
}

// NewResolver builds a Resolver. cookieNames may be nil to use the canonical
// precedence.
func NewResolver(s Store, jar http.CookieJar, baseURL *url.URL, cookieNames []string) *Resolver {
	if len(cookieNames) == 0 {
		cookieNames = DefaultCookieNames
	}
	return &Resolver{
		store:   s,
		jar:     jar,
		baseURL: baseURL,
		names:   cookieNames,
		now:     time.Now,
	}
}

// WithClock substitutes the time source. Test hook.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Store exposes the underlying persistent store.
func (r *Resolver) Store() Store { return r.store }

// StoredToken reads the persistent store only.
func (r *Resolver) StoredToken(ctx context.Context) string {
	tok, err := r.store.GetToken(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("credential store read failed")
		return ""
	}
	return tok
}

// CookieToken scans readable cookies in canonical precedence and returns the
// first hit, or the empty string.
func (r *Resolver) CookieToken() string {
	cookies := r.cookies()
	for _, name := range r.names {
		for _, c := range cookies {
			if c.Name == name && c.Value != "" {
				return c.Value
			}
		}
	}
	return ""
}

// HasOpaqueSession reports whether cookie evidence suggests an HTTP-only
// server session: a session-style cookie name, or enough cookie bytes that
// something server-managed must be there.
func (r *Resolver) HasOpaqueSession() bool {
	total := 0
	for _, c := range r.cookies() {
		total += len(c.Name) + len(c.Value)
		for _, name := range opaqueSessionCookies {
			if c.Name == name {
				return true
			}
		}
	}
	return total > opaqueEvidenceBytes
}

// Token resolves the current credential: persistent store first, then cookies
// (cached back into the store), then the opaque-session sentinel. Returns the
// empty string when nothing resolves.
func (r *Resolver) Token(ctx context.Context) string {
	if tok := r.StoredToken(ctx); tok != "" {
		return tok
	}
	if tok := r.CookieToken(); tok != "" {
		// Cache the cookie hit so the next read skips the scan.
		if err := r.store.SetToken(ctx, tok); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to cache cookie token")
		}
		return tok
	}
	if r.HasOpaqueSession() {
		return token.OpaqueSession
	}
	return ""
}

// SetToken writes tok to the persistent store and mirrors it into the
// auth_token cookie with the fixed max-age and lax same-site policy.
func (r *Resolver) SetToken(ctx context.Context, tok string) error {
	if err := r.store.SetToken(ctx, tok); err != nil {
		return err
	}
	r.jar.SetCookies(r.baseURL, []*http.Cookie{{
		Name:     r.names[0],
		Value:    tok,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		SameSite: http.SameSiteLaxMode,
		Expires:  r.now().Add(CookieMaxAge * time.Second),
	}})
	return nil
}

// ClearToken removes the access token from the persistent store and expires
// the mirrored cookies.
func (r *Resolver) ClearToken(ctx context.Context) error {
	if err := r.store.SetToken(ctx, ""); err != nil {
		return err
	}
	expired := make([]*http.Cookie, 0, len(r.names))
	for _, name := range r.names {
		expired = append(expired, &http.Cookie{
			Name:    name,
			Value:   "",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
	}
	r.jar.SetCookies(r.baseURL, expired)
	return nil
}

// Clear wipes every stored credential, including the refresh credential and
// the cached profile, and expires the mirrored cookies.
func (r *Resolver) Clear(ctx context.Context) error {
	if err := r.ClearToken(ctx); err != nil {
		return err
	}
	return r.store.Clear(ctx)
}

func (r *Resolver) cookies() []*http.Cookie {
	if r.jar == nil {
		return nil
	}
	return r.jar.Cookies(r.baseURL)
}
