// Package dinetap is the Go client SDK for the DineTap ordering platform:
// menu browsing, cart and checkout, order tracking, ratings, waiter calls,
// group ordering and the assistant, all behind one authenticated HTTP client.
// The SDK owns the full token lifecycle, from the persistent store and cookie
// mirror through the request pipeline and single-flight refresh, so embedders
// never touch a bearer token directly.
package dinetap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/dinetap/dinetap-go/apierr"
	"github.com/dinetap/dinetap-go/config"
	"github.com/dinetap/dinetap-go/session"
	"github.com/dinetap/dinetap-go/store"
	"github.com/dinetap/dinetap-go/token"
	"github.com/dinetap/dinetap-go/transport"
)

// defaultTokenTTL bounds how long an access token is held in the store,
// mirroring the browser client's cookie max-age.
const defaultTokenTTL = store.CookieMaxAge * time.Second

// Client is the entry point to the SDK. All service fields are ready after
// New returns.
type Client struct {
	cfg      *config.Config
	baseURL  *url.URL
	jar      http.CookieJar
	resolver *store.Resolver
	coord    *transport.Coordinator
	signal   *session.Signal
	httpc    *http.Client
	now      func() time.Time

	Auth        *AuthService
	Menu        *MenuService
	Orders      *OrderService
	Payments    *PaymentService
	Ratings     *RatingService
	Tables      *TableService
	WaiterCalls *WaiterCallService
	GroupOrders *GroupOrderService
	Assistant   *AssistantService
}

type clientOptions struct {
	store         store.Store
	baseTransport http.RoundTripper
	jar           http.CookieJar
	now           func() time.Time
}

// Option customizes a Client.
type Option func(*clientOptions)

// WithStore substitutes the credential store. Without it, StorePath selects a
// file-backed store and the fallback is in-memory.
func WithStore(s store.Store) Option {
	return func(o *clientOptions) { o.store = s }
}

// WithBaseTransport substitutes the underlying HTTP transport the pipeline
// wraps.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.baseTransport = rt }
}

// WithCookieJar substitutes the cookie jar shared by the pipeline and the
// refresh coordinator.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *clientOptions) { o.jar = jar }
}

// WithClock substitutes the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// New builds a Client from cfg.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.jar == nil {
		jar, jarErr := cookiejar.New(nil)
		if jarErr != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", jarErr)
		}
		o.jar = jar
	}
	if o.store == nil {
		if cfg.StorePath != "" {
			bolt, boltErr := store.NewBoltStore(cfg.StorePath, defaultTokenTTL)
			if boltErr != nil {
				return nil, boltErr
			}
			o.store = bolt
		} else {
			o.store = store.NewMemoryStore(defaultTokenTTL)
		}
	}

	resolver := store.NewResolver(o.store, o.jar, baseURL, cfg.CookieNames).WithClock(o.now)

	// The coordinator talks to the refresh endpoint directly, sharing the
	// cookie jar but not the pipeline, so a failing refresh cannot recurse.
	bare := &http.Client{
		Transport: o.baseTransport,
		Jar:       o.jar,
		Timeout:   cfg.HTTPTimeout,
	}
	coord := transport.NewCoordinator(bare, baseURL, resolver)
	pipeline := transport.NewPipeline(o.baseTransport, resolver, coord).WithClock(o.now)

	signal := session.NewSignal()
	coord.OnSessionInvalidated(signal.Invalidate)

	c := &Client{
		cfg:      cfg,
		baseURL:  baseURL,
		jar:      o.jar,
		resolver: resolver,
		coord:    coord,
		signal:   signal,
		now:      o.now,
		httpc: &http.Client{
			Transport: pipeline,
			Jar:       o.jar,
			Timeout:   cfg.HTTPTimeout,
		},
	}

	c.Auth = &AuthService{c: c}
	c.Menu = newMenuService(c)
	c.Orders = &OrderService{c: c}
	c.Payments = &PaymentService{c: c}
	c.Ratings = &RatingService{c: c}
	c.Tables = &TableService{c: c}
	c.WaiterCalls = &WaiterCallService{c: c}
	c.GroupOrders = &GroupOrderService{c: c}
	c.Assistant = &AssistantService{c: c}

	return c, nil
}

// Bootstrap reconciles the session signal from every local substrate. Call it
// once on startup, before any authenticated request. redirectReturn may be
// nil when the application did not arrive via an OAuth redirect.
func (c *Client) Bootstrap(ctx context.Context, redirectReturn *url.URL) session.State {
	boot := session.NewBootstrap(c.resolver, c.signal, c.guestIssuer(), c.cfg.TableCode).WithClock(c.now)
	return boot.Run(ctx, redirectReturn)
}

func (c *Client) guestIssuer() session.GuestIssuer {
	return func(ctx context.Context, tableCode string) (string, error) {
		return c.Auth.GuestToken(ctx, tableCode)
	}
}

// Session returns the session signal for state reads and invalidation
// subscriptions.
func (c *Client) Session() *session.Signal { return c.signal }

// HTTPClient exposes the pipeline-wrapped client for endpoints the SDK has no
// typed surface for.
func (c *Client) HTTPClient() *http.Client { return c.httpc }

// GoogleAuthURL is the backend's redirect-based OAuth entry point. The flow
// returns via URL fragment or server cookie; pair with
// session.CallbackListener outside a browser.
func (c *Client) GoogleAuthURL() string {
	return c.baseURL.JoinPath("/api/auth/google").String()
}

// TokenSource adapts the client's credential state to oauth2.TokenSource for
// libraries that consume one. Refresh still goes through the coordinator; the
// source only reads.
func (c *Client) TokenSource() oauth2.TokenSource {
	return &tokenSource{c: c}
}

type tokenSource struct {
	c *Client
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	raw := ts.c.resolver.Token(context.Background())
	if raw == "" || raw == token.OpaqueSession {
		return nil, apierr.NewUnauthenticated("no readable bearer token held")
	}
	res := token.Decode(raw, ts.c.now())
	if res.State != token.Valid && res.State != token.DecodeFailed {
		return nil, apierr.NewUnauthenticated("held token is not usable")
	}
	return &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		Expiry:      res.Claims.Expiry,
	}, nil
}

// doJSON issues one request through the pipeline and decodes the response.
// Non-2xx statuses are classified into the apierr taxonomy with the server's
// message passed through.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apierr.FromTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apierr.FromTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.FromStatus(resp.StatusCode, serverMessage(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return bytes.NewReader(raw), nil
}

// serverMessage extracts the human-readable reason from an error response.
func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
