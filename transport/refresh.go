package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dinetap/dinetap-go/apierr"
	"github.com/dinetap/dinetap-go/store"
)

// refreshPath is the backend's session-refresh endpoint. The first attempt
// leans on the HTTP-only session cookie; the fallback carries the stored
// refresh credential explicitly.
const refreshPath = "/api/auth/refresh-token"

type refreshOutcome struct {
	token string
	err   error
}

// Coordinator serializes token refreshes. At most one refresh network call is
// outstanding at any time; requests that hit a 401 while one is in flight
// park in the waiter queue and observe the same outcome. The browser client
// kept this state in module-level globals; here it is owned by one object
// with an injected HTTP client so it can be tested and does not leak between
// clients.
type Coordinator struct {
	httpClient *http.Client // bare client sharing the cookie jar, not the pipeline
	baseURL    *url.URL
	resolver   *store.Resolver

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome

	// onInvalidated fires after a failed refresh, once credentials are
	// cleared. It must not force any side effect of its own; callers decide
	// what "logged out" means for them.
	onInvalidated []func()
}

// NewCoordinator builds a refresh coordinator. httpClient must not route
// through the Pipeline, or a failing refresh would recurse.
func NewCoordinator(httpClient *http.Client, baseURL *url.URL, resolver *store.Resolver) *Coordinator {
	return &Coordinator{
		httpClient: httpClient,
		baseURL:    baseURL,
		resolver:   resolver,
	}
}

// OnSessionInvalidated registers a callback fired when a refresh fails and
// the session is torn down.
func (c *Coordinator) OnSessionInvalidated(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInvalidated = append(c.onInvalidated, fn)
}

// Refresh returns a fresh access token, performing at most one network
// refresh regardless of how many callers arrive concurrently. Callers that
// find a refresh already in flight wait for its outcome.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case out := <-ch:
			return out.token, out.err
		case <-ctx.Done():
			return "", apierr.FromTransport(ctx.Err())
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	tok, err := c.doRefresh(ctx)

	c.mu.Lock()
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	invalidated := c.onInvalidated
	c.mu.Unlock()

	if err != nil {
		// Uniform teardown: every queued waiter rejects with the same
		// classification, and no credential survives.
		if clearErr := c.resolver.Clear(ctx); clearErr != nil {
			log.Ctx(ctx).Warn().Err(clearErr).Msg("failed to clear credentials after refresh failure")
		}
		for _, fn := range invalidated {
			fn()
		}
	}

	out := refreshOutcome{token: tok, err: err}
	for _, ch := range waiters {
		ch <- out
	}
	return tok, err
}

// doRefresh runs the two refresh strategies in order: the cookie-session call
// first, then an explicit call carrying the stored refresh credential.
func (c *Coordinator) doRefresh(ctx context.Context) (string, error) {
	tok, err := c.callRefresh(ctx, nil)
	if err == nil {
		return c.adopt(ctx, tok)
	}
	log.Ctx(ctx).Debug().Err(err).Msg("cookie-session refresh failed, trying stored credential")

	refreshTok, storeErr := c.resolver.Store().GetRefreshToken(ctx)
	if storeErr != nil || refreshTok == "" {
		return "", apierr.NewRefreshExhausted("session refresh failed and no refresh credential is stored")
	}

	tok, err = c.callRefresh(ctx, map[string]string{"refreshToken": refreshTok})
	if err != nil {
		return "", apierr.NewRefreshExhausted(fmt.Sprintf("both refresh strategies failed: %v", err))
	}
	return c.adopt(ctx, tok)
}

func (c *Coordinator) adopt(ctx context.Context, tok string) (string, error) {
	if err := c.resolver.SetToken(ctx, tok); err != nil {
		return "", apierr.NewRefreshExhausted("refreshed token could not be persisted")
	}
	log.Ctx(ctx).Info().Msg("session token refreshed")
	return tok, nil
}

func (c *Coordinator) callRefresh(ctx context.Context, body map[string]string) (string, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		payload = bytes.NewReader(raw)
	}

	endpoint := c.baseURL.JoinPath(refreshPath).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("refresh endpoint returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	tok := NormalizeToken(raw)
	if tok == "" {
		return "", fmt.Errorf("refresh response carried no token")
	}
	return tok, nil
}

// NormalizeToken extracts the access token from a backend auth response. The
// backend has answered with token, accessToken or jwt depending on the
// endpoint; normalization happens here, once, instead of at every call site.
func NormalizeToken(raw []byte) string {
	var body struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		JWT         string `json:"jwt"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return PickToken(body.Token, body.AccessToken, body.JWT)
}

// PickToken applies the canonical precedence over the three field names the
// backend uses for the access token.
func PickToken(token, accessToken, jwt string) string {
	switch {
	case token != "":
		return token
	case accessToken != "":
		return accessToken
	default:
		return jwt
	}
}
