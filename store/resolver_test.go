package store

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinetap/dinetap-go/token"
)

func newTestResolver(t *testing.T) (*Resolver, http.CookieJar, *url.URL) {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse("https://api.dinetap.test")
	require.NoError(t, err)

	mem := NewMemoryStore(time.Hour)
	t.Cleanup(func() { mem.Close() })
	return NewResolver(mem, jar, base, nil), jar, base
}

func setCookie(jar http.CookieJar, base *url.URL, name, value string) {
	jar.SetCookies(base, []*http.Cookie{{Name: name, Value: value, Path: "/", Secure: true}})
}

func TestResolverStoreWins(t *testing.T) {
	r, jar, base := newTestResolver(t)
	ctx := context.Background()

	require.NoError(t, r.Store().SetToken(ctx, "from-store"))
	setCookie(jar, base, "auth_token", "from-cookie")

	assert.Equal(t, "from-store", r.Token(ctx))
}

func TestResolverCookiePrecedence(t *testing.T) {
	r, jar, base := newTestResolver(t)
	ctx := context.Background()

	setCookie(jar, base, "token", "fourth")
	setCookie(jar, base, "jwt", "third")
	setCookie(jar, base, "access_token", "second")
	assert.Equal(t, "second", r.Token(ctx), "access_token outranks jwt and token")

	require.NoError(t, r.Store().SetToken(ctx, ""))
	setCookie(jar, base, "auth_token", "first")
	assert.Equal(t, "first", r.Token(ctx), "auth_token outranks everything")
}

func TestResolverCookieHitIsCachedBack(t *testing.T) {
	r, jar, base := newTestResolver(t)
	ctx := context.Background()

	setCookie(jar, base, "auth_token", "cookie-tok")
	assert.Equal(t, "cookie-tok", r.Token(ctx))

	stored, err := r.Store().GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cookie-tok", stored, "cookie hit must be written back to the store")
}

func TestResolverOpaqueSessionByName(t *testing.T) {
	r, jar, base := newTestResolver(t)

	setCookie(jar, base, "connect.sid", "s%3Aabc123")
	assert.Equal(t, token.OpaqueSession, r.Token(context.Background()))
}

func TestResolverOpaqueSessionByVolume(t *testing.T) {
	r, jar, base := newTestResolver(t)

	// No session-style name, but enough cookie bytes that something
	// server-managed must be there.
	setCookie(jar, base, "pref", strings.Repeat("v", 120))
	assert.Equal(t, token.OpaqueSession, r.Token(context.Background()))
}

func TestResolverNothingResolves(t *testing.T) {
	r, _, _ := newTestResolver(t)
	assert.Empty(t, r.Token(context.Background()))
}

func TestResolverSetTokenMirrorsCookie(t *testing.T) {
	r, jar, base := newTestResolver(t)
	ctx := context.Background()

	require.NoError(t, r.SetToken(ctx, "tok-42"))

	found := false
	for _, c := range jar.Cookies(base) {
		if c.Name == "auth_token" && c.Value == "tok-42" {
			found = true
		}
	}
	assert.True(t, found, "SetToken must mirror into the auth_token cookie")
}

func TestResolverClearTokenExpiresCookies(t *testing.T) {
	r, jar, base := newTestResolver(t)
	ctx := context.Background()

	require.NoError(t, r.SetToken(ctx, "tok-42"))
	setCookie(jar, base, "jwt", "other")
	require.NoError(t, r.ClearToken(ctx))

	assert.Empty(t, r.Token(ctx), "clear must leave nothing to resolve")
}

func TestResolverClearWipesEverything(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	require.NoError(t, r.SetToken(ctx, "tok"))
	require.NoError(t, r.Store().SetRefreshToken(ctx, "refresh"))
	require.NoError(t, r.Store().SetProfile(ctx, []byte("p")))
	require.NoError(t, r.Clear(ctx))

	refresh, err := r.Store().GetRefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, refresh)
	profile, err := r.Store().GetProfile(ctx)
	require.NoError(t, err)
	assert.Empty(t, profile)
}
