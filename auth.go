package dinetap

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dinetap/dinetap-go/apierr"
	"github.com/dinetap/dinetap-go/session"
	"github.com/dinetap/dinetap-go/token"
	"github.com/dinetap/dinetap-go/transport"
)

// User is the platform's customer profile, consumed with minimally assumed
// fields.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

// AuthService drives the session lifecycle endpoints.
type AuthService struct {
	c *Client
}

type authResponse struct {
	Token        string          `json:"token"`
	AccessToken  string          `json:"accessToken"`
	JWT          string          `json:"jwt"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user"`
	Message      string          `json:"message"`
}

// Login authenticates with email and password and adopts the returned
// session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	return s.adopt(ctx, &resp)
}

// Register creates an account and adopts the returned session.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	body := map[string]string{
		"email":     email,
		"password":  password,
		"firstName": firstName,
		"lastName":  lastName,
	}
	var resp authResponse
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/auth/register", nil, body, &resp); err != nil {
		return nil, err
	}
	return s.adopt(ctx, &resp)
}

// Logout ends the server session and clears every local credential. Local
// teardown happens even when the server call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	callErr := s.c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	if err := s.c.resolver.Clear(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to clear credentials on logout")
	}
	s.c.signal.Invalidate()
	return callErr
}

// GuestToken mints a table-scoped guest session token. The token is returned
// but not adopted; bootstrap decides whether to use it.
func (s *AuthService) GuestToken(ctx context.Context, tableCode string) (string, error) {
	body := map[string]string{"tableCode": tableCode}
	var resp authResponse
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/auth/guest-token", nil, body, &resp); err != nil {
		return "", err
	}
	tok := firstToken(&resp)
	if tok == "" {
		return "", apierr.NewApplication(200, "guest token response carried no token")
	}
	return tok, nil
}

// Me fetches the current profile from the backend and caches it locally.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, apierr.NewApplication(200, "profile response carried no user")
	}
	if raw, err := json.Marshal(resp.User); err == nil {
		if err := s.c.resolver.Store().SetProfile(ctx, raw); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to cache profile")
		}
	}
	return resp.User, nil
}

// Check asks the backend whether the current session is still valid.
func (s *AuthService) Check(ctx context.Context) (bool, error) {
	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/auth/check", nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.Authenticated, nil
}

// CachedProfile returns the last-known profile without a network call, or nil
// when none is cached.
func (s *AuthService) CachedProfile(ctx context.Context) *User {
	raw, err := s.c.resolver.Store().GetProfile(ctx)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil
	}
	return &u
}

// adopt normalizes an auth response into the store and the session signal.
func (s *AuthService) adopt(ctx context.Context, resp *authResponse) (*User, error) {
	tok := firstToken(resp)
	if tok == "" {
		return nil, apierr.NewApplication(200, "auth response carried no token")
	}
	if err := s.c.resolver.SetToken(ctx, tok); err != nil {
		return nil, err
	}
	if resp.RefreshToken != "" {
		if err := s.c.resolver.Store().SetRefreshToken(ctx, resp.RefreshToken); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to store refresh credential")
		}
	}

	var user *User
	if len(resp.User) > 0 {
		user = &User{}
		if err := json.Unmarshal(resp.User, user); err != nil {
			user = nil
		} else if err := s.c.resolver.Store().SetProfile(ctx, resp.User); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to cache profile")
		}
	}

	res := token.Decode(tok, s.c.now())
	state := session.State{Kind: session.Authenticated}
	if res.State == token.Valid {
		state.Subject = res.Claims.Subject
		state.Role = res.Claims.Role
	}
	s.c.signal.Set(state)

	return user, nil
}

// firstToken applies the same token normalization as the refresh path.
func firstToken(resp *authResponse) string {
	return transport.PickToken(resp.Token, resp.AccessToken, resp.JWT)
}
