package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinetap/dinetap-go/apierr"
	"github.com/dinetap/dinetap-go/store"
)

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	payload := base64.RawURLEncoding.EncodeToString(body)
	return fmt.Sprintf("%s.%s.%s", header, payload, "c2lnbmF0dXJl")
}

// harness wires a pipeline, coordinator and memory-backed resolver against a
// test server.
type harness struct {
	resolver *store.Resolver
	pipeline *Pipeline
	coord    *Coordinator
	jar      http.CookieJar
	base     *url.URL
}

func newHarness(t *testing.T, srv *httptest.Server) *harness {
	t.Helper()
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	mem := store.NewMemoryStore(time.Hour)
	t.Cleanup(func() { mem.Close() })

	resolver := store.NewResolver(mem, jar, base, nil)
	coord := NewCoordinator(&http.Client{Jar: jar}, base, resolver)
	pipeline := NewPipeline(nil, resolver, coord)

	return &harness{resolver: resolver, pipeline: pipeline, coord: coord, jar: jar, base: base}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, error) {
	t.Helper()
	client := &http.Client{Transport: h.pipeline, Jar: h.jar}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, h.base.JoinPath(path).String(), nil)
	require.NoError(t, err)
	return client.Do(req)
}

func TestOutboundNoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	resp, err := h.get(t, "/api/menu")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotAuth)
}

func TestOutboundOpaqueSessionNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	h.jar.SetCookies(h.base, []*http.Cookie{{Name: "connect.sid", Value: "s%3Aabc", Path: "/"}})

	resp, err := h.get(t, "/api/menu")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotAuth, "opaque session must rely on cookie transmission only")
}

func TestOutboundDropsTwoSegmentToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	ctx := context.Background()
	require.NoError(t, h.resolver.Store().SetToken(ctx, "abcdefghijklm.nopqrstuvwxyz"))

	resp, err := h.get(t, "/api/menu")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, gotAuth)
	stored, err := h.resolver.Store().GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored, "malformed token must be cleared from the store")
}

func TestOutboundDropsExpiredToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	ctx := context.Background()
	expired := makeToken(t, map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, h.resolver.Store().SetToken(ctx, expired))

	resp, err := h.get(t, "/api/menu")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, gotAuth)
	stored, err := h.resolver.Store().GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestOutboundAttachesValidToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	tok := makeToken(t, map[string]any{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, h.resolver.Store().SetToken(context.Background(), tok))

	resp, err := h.get(t, "/api/menu")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer "+tok, gotAuth)
}

func TestOutboundAttachesUndecodablePayload(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	// Right shape, payload that will not base64-decode. Fail-open: attach it
	// and let the server decide.
	raw := "aaaaaaaaaa.!!!not-base64!!!.cccccccc"
	require.NoError(t, h.resolver.Store().SetToken(context.Background(), raw))

	resp, err := h.get(t, "/api/menu")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer "+raw, gotAuth)
}

func TestRequestIDAttached(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	resp, err := h.get(t, "/api/menu")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, gotID)
}

func TestNetworkFailureClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h := newHarness(t, srv)
	srv.Close() // nothing listening anymore

	_, err := h.get(t, "/api/menu")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.NewNetwork(""))
}

func TestNonAuthFailuresDoNotRefresh(t *testing.T) {
	refreshes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == refreshPath {
			refreshes++
		}
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"not yours"}`)
	}))
	defer srv.Close()

	h := newHarness(t, srv)
	resp, err := h.get(t, "/api/orders/123")
	require.NoError(t, err, "non-401 responses pass through the pipeline")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, refreshes)
}
