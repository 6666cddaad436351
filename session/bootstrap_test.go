package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinetap/dinetap-go/store"
	"github.com/dinetap/dinetap-go/token"
)

func makeToken(t *testing.T, subject string, role token.Role, exp time.Time) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"sub":  subject,
		"role": string(role),
		"exp":  exp.Unix(),
	})
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return fmt.Sprintf("%s.%s.%s",
		enc.EncodeToString(header), enc.EncodeToString(payload), "c2lnbmF0dXJl")
}

type fixture struct {
	resolver *store.Resolver
	signal   *Signal
	jar      http.CookieJar
	base     *url.URL
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse("https://api.dinetap.test")
	require.NoError(t, err)
	mem := store.NewMemoryStore(time.Hour)
	t.Cleanup(func() { mem.Close() })
	return &fixture{
		resolver: store.NewResolver(mem, jar, base, nil),
		signal:   NewSignal(),
		jar:      jar,
		base:     base,
	}
}

func TestBootstrapFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok := makeToken(t, "user-1", token.RoleCustomer, time.Now().Add(time.Hour))
	require.NoError(t, f.resolver.Store().SetToken(ctx, tok))

	b := NewBootstrap(f.resolver, f.signal, nil, "")
	state := b.Run(ctx, nil)

	assert.Equal(t, Authenticated, state.Kind)
	assert.Equal(t, "user-1", state.Subject)
	assert.Equal(t, token.RoleCustomer, state.Role)
	assert.Equal(t, state, f.signal.Current())
}

func TestBootstrapFromCookie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok := makeToken(t, "user-2", token.RoleWaiter, time.Now().Add(time.Hour))
	f.jar.SetCookies(f.base, []*http.Cookie{{Name: "access_token", Value: tok, Path: "/"}})

	state := NewBootstrap(f.resolver, f.signal, nil, "").Run(ctx, nil)

	assert.Equal(t, Authenticated, state.Kind)
	assert.Equal(t, "user-2", state.Subject)

	stored, err := f.resolver.Store().GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok, stored, "cookie token must be normalized into the store")
}

func TestBootstrapFromRedirectFragment(t *testing.T) {
	f := newFixture(t)
	tok := makeToken(t, "user-3", token.RoleCustomer, time.Now().Add(time.Hour))
	ret, err := url.Parse("https://app.dinetap.test/auth/success#access_token=" + tok)
	require.NoError(t, err)

	state := NewBootstrap(f.resolver, f.signal, nil, "").Run(context.Background(), ret)

	assert.Equal(t, Authenticated, state.Kind)
	assert.Equal(t, "user-3", state.Subject)
}

func TestBootstrapFromRedirectQuery(t *testing.T) {
	f := newFixture(t)
	tok := makeToken(t, "user-4", token.RoleCustomer, time.Now().Add(time.Hour))
	ret, err := url.Parse("https://app.dinetap.test/auth/success?access_token=" + tok)
	require.NoError(t, err)

	state := NewBootstrap(f.resolver, f.signal, nil, "").Run(context.Background(), ret)

	assert.Equal(t, Authenticated, state.Kind)
}

func TestBootstrapStoreOutranksRedirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	storeTok := makeToken(t, "stored", token.RoleCustomer, time.Now().Add(time.Hour))
	redirTok := makeToken(t, "redirected", token.RoleCustomer, time.Now().Add(time.Hour))
	require.NoError(t, f.resolver.Store().SetToken(ctx, storeTok))
	ret, err := url.Parse("https://app.dinetap.test/#access_token=" + redirTok)
	require.NoError(t, err)

	state := NewBootstrap(f.resolver, f.signal, nil, "").Run(ctx, ret)

	assert.Equal(t, "stored", state.Subject)
}

func TestBootstrapOpaqueSession(t *testing.T) {
	f := newFixture(t)
	f.jar.SetCookies(f.base, []*http.Cookie{{Name: "connect.sid", Value: "s%3Aabc", Path: "/"}})

	state := NewBootstrap(f.resolver, f.signal, nil, "").Run(context.Background(), nil)

	assert.Equal(t, Opaque, state.Kind)
	assert.Empty(t, state.Subject)
}

func TestBootstrapExpiredStoreTokenDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok := makeToken(t, "stale", token.RoleCustomer, time.Now().Add(-time.Hour))
	require.NoError(t, f.resolver.Store().SetToken(ctx, tok))

	state := NewBootstrap(f.resolver, f.signal, nil, "").Run(ctx, nil)

	assert.Equal(t, Anonymous, state.Kind)
	stored, err := f.resolver.Store().GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored, "expired token must be purged")
}

func TestBootstrapGuestIssuance(t *testing.T) {
	f := newFixture(t)
	issued := makeToken(t, "guest-9", token.RoleGuest, time.Now().Add(time.Hour))
	var gotTable string
	issuer := func(_ context.Context, tableCode string) (string, error) {
		gotTable = tableCode
		return issued, nil
	}

	state := NewBootstrap(f.resolver, f.signal, issuer, "T42").Run(context.Background(), nil)

	assert.Equal(t, "T42", gotTable)
	assert.Equal(t, Authenticated, state.Kind)
	assert.Equal(t, token.RoleGuest, state.Role)
}

func TestBootstrapGuestSkippedWhenTokenHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok := makeToken(t, "user-5", token.RoleCustomer, time.Now().Add(time.Hour))
	require.NoError(t, f.resolver.Store().SetToken(ctx, tok))
	issuer := func(context.Context, string) (string, error) {
		t.Fatal("guest issuer must not run when a token resolves")
		return "", nil
	}

	state := NewBootstrap(f.resolver, f.signal, issuer, "T42").Run(ctx, nil)
	assert.Equal(t, "user-5", state.Subject)
}

func TestBootstrapGuestFailureDegradesToAnonymous(t *testing.T) {
	f := newFixture(t)
	issuer := func(context.Context, string) (string, error) {
		return "", fmt.Errorf("venue closed")
	}

	state := NewBootstrap(f.resolver, f.signal, issuer, "T42").Run(context.Background(), nil)
	assert.Equal(t, Anonymous, state.Kind)
}

func TestBootstrapNothingResolves(t *testing.T) {
	f := newFixture(t)
	state := NewBootstrap(f.resolver, f.signal, nil, "").Run(context.Background(), nil)
	assert.Equal(t, Anonymous, state.Kind)
	assert.Equal(t, Anonymous, f.signal.Current().Kind)
}

func TestSignalFanOut(t *testing.T) {
	s := NewSignal()
	var seen []Kind
	cancel := s.Subscribe(func(st State) { seen = append(seen, st.Kind) })

	s.Set(State{Kind: Authenticated, Subject: "u"})
	s.Invalidate()
	cancel()
	s.Set(State{Kind: Opaque})

	assert.Equal(t, []Kind{Authenticated, Anonymous}, seen)
	assert.Equal(t, Opaque, s.Current().Kind)
}

func TestFragmentTokenParsing(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"fragment", "https://x/#access_token=abc&state=1", "abc"},
		{"query", "https://x/?access_token=def", "def"},
		{"fragment wins", "https://x/?access_token=q#access_token=f", "f"},
		{"absent", "https://x/#state=1", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := url.Parse(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.want, fragmentToken(u))
		})
	}
}
