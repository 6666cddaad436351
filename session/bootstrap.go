package session

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dinetap/dinetap-go/store"
	"github.com/dinetap/dinetap-go/token"
)

// GuestIssuer requests a guest token for a table-scoped session. Implemented
// by the auth service; injected as a function to keep bootstrap free of
// service dependencies.
type GuestIssuer func(ctx context.Context, tableCode string) (string, error)

// Bootstrap reconciles token state on application start: persistent store,
// then readable cookies, then an OAuth redirect-return URL, then the
// opaque-session heuristic. The first source that resolves is normalized into
// the store and becomes the signal. Purely local, except that a table-scoped
// client may mint a guest token when nothing else resolves.
type Bootstrap struct {
	resolver  *store.Resolver
	signal    *Signal
	guest     GuestIssuer
	tableCode string
	now       func() time.Time
}

// NewBootstrap builds a Bootstrap. guest and tableCode may be zero when the
// client has no table context.
func NewBootstrap(resolver *store.Resolver, signal *Signal, guest GuestIssuer, tableCode string) *Bootstrap {
	return &Bootstrap{
		resolver:  resolver,
		signal:    signal,
		guest:     guest,
		tableCode: tableCode,
		now:       time.Now,
	}
}

// WithClock substitutes the time source. Test hook.
func (b *Bootstrap) WithClock(now func() time.Time) *Bootstrap {
	b.now = now
	return b
}

// Run resolves the session signal. redirectReturn is the URL the OAuth
// provider redirected back to, when there is one; its access_token fragment
// parameter participates in the precedence order.
func (b *Bootstrap) Run(ctx context.Context, redirectReturn *url.URL) State {
	if raw := b.resolver.StoredToken(ctx); raw != "" {
		return b.adopt(ctx, raw, "store")
	}
	if raw := b.resolver.CookieToken(); raw != "" {
		return b.adopt(ctx, raw, "cookie")
	}
	if raw := fragmentToken(redirectReturn); raw != "" {
		return b.adopt(ctx, raw, "redirect")
	}
	if b.resolver.HasOpaqueSession() {
		log.Ctx(ctx).Debug().Msg("bootstrap resolved opaque server session")
		state := State{Kind: Opaque}
		b.signal.Set(state)
		return state
	}
	if b.guest != nil && b.tableCode != "" {
		raw, err := b.guest(ctx, b.tableCode)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("guest token issuance failed")
		} else if raw != "" {
			return b.adopt(ctx, raw, "guest")
		}
	}

	state := State{Kind: Anonymous}
	b.signal.Set(state)
	return state
}

// adopt normalizes a resolved token into the store and derives the signal
// from its claims. An unusable token degrades to anonymous rather than
// erroring.
func (b *Bootstrap) adopt(ctx context.Context, raw, source string) State {
	res := token.Decode(raw, b.now())
	if res.State == token.Malformed || res.State == token.Expired {
		log.Ctx(ctx).Debug().
			Str("source", source).
			Msg("bootstrap discarded unusable token")
		if err := b.resolver.ClearToken(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to clear unusable token")
		}
		state := State{Kind: Anonymous}
		b.signal.Set(state)
		return state
	}

	if err := b.resolver.SetToken(ctx, raw); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to persist bootstrap token")
	}
	state := State{
		Kind:    Authenticated,
		Subject: res.Claims.Subject,
		Role:    res.Claims.Role,
	}
	log.Ctx(ctx).Info().
		Str("source", source).
		Str("subject", state.Subject).
		Msg("session bootstrapped")
	b.signal.Set(state)
	return state
}

// fragmentToken pulls the access_token parameter out of a redirect-return
// URL. OAuth providers hand the token back in the fragment; some proxies move
// it into the query, so both are checked.
func fragmentToken(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.Fragment != "" {
		if vals, err := url.ParseQuery(u.Fragment); err == nil {
			if tok := vals.Get("access_token"); tok != "" {
				return tok
			}
		}
	}
	return u.Query().Get("access_token")
}
