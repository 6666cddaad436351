// Package transport implements the SDK's request pipeline: an
// http.RoundTripper that attaches the bearer credential on the way out,
// classifies failures on the way in, and recovers from a 401 exactly once by
// handing off to the refresh coordinator.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dinetap/dinetap-go/apierr"
	"github.com/dinetap/dinetap-go/store"
	"github.com/dinetap/dinetap-go/token"
)

type ctxKey int

const retryKey ctxKey = iota

func withRetryMark(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey, true)
}

func isRetry(ctx context.Context) bool {
	v, _ := ctx.Value(retryKey).(bool)
	return v
}

// Pipeline is the single HTTP interception point for every SDK request.
type Pipeline struct {
	base     http.RoundTripper
	resolver *store.Resolver
	coord    *Coordinator
	now      func() time.Time
}

// NewPipeline wires a pipeline over base (http.DefaultTransport when nil).
func NewPipeline(base http.RoundTripper, resolver *store.Resolver, coord *Coordinator) *Pipeline {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Pipeline{
		base:     base,
		resolver: resolver,
		coord:    coord,
		now:      time.Now,
	}
}

// WithClock substitutes the time source. Test hook.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out := req.Clone(ctx)
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}
	p.authorize(ctx, out)

	resp, err := p.base.RoundTrip(out)
	if err != nil {
		// No response received: network or timeout, never a refresh trigger.
		return nil, apierr.FromTransport(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if isRetry(ctx) {
		drain(resp)
		return nil, apierr.NewUnauthenticated("request rejected again after token refresh")
	}

	drain(resp)
	if _, refreshErr := p.coord.Refresh(ctx); refreshErr != nil {
		return nil, refreshErr
	}

	log.Ctx(ctx).Debug().
		Str("path", req.URL.Path).
		Msg("replaying request with refreshed token")

	replay := req.Clone(withRetryMark(ctx))
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, apierr.NewNetwork("failed to rewind request body for replay")
		}
		replay.Body = body
	}
	// Re-enter the pipeline so the replay picks up the refreshed token from
	// the store; the retry mark prevents recursing into a second refresh.
	return p.RoundTrip(replay)
}

// authorize applies the outbound interception rules: absent and opaque
// sessions go out bare, malformed and expired tokens are dropped from the
// store, decode failures are attached anyway and left for the server.
func (p *Pipeline) authorize(ctx context.Context, req *http.Request) {
	raw := p.resolver.Token(ctx)
	switch raw {
	case "":
		return
	case token.OpaqueSession:
		// Rely on implicit cookie transmission.
		return
	}

	switch res := token.Decode(raw, p.now()); res.State {
	case token.Malformed:
		log.Ctx(ctx).Debug().Msg("dropping malformed token")
		if err := p.resolver.ClearToken(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to clear malformed token")
		}
	case token.Expired:
		log.Ctx(ctx).Debug().
			Time("expired_at", res.Claims.Expiry).
			Msg("dropping expired token")
		if err := p.resolver.ClearToken(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to clear expired token")
		}
	case token.DecodeFailed:
		// Shape is right but the payload will not decode locally. Attach it
		// anyway and let the server make the call.
		log.Ctx(ctx).Warn().Msg("token payload did not decode, attaching as-is")
		req.Header.Set("Authorization", "Bearer "+raw)
	case token.Valid:
		req.Header.Set("Authorization", "Bearer "+raw)
	}
}

func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}
}
