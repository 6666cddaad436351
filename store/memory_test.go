package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "tok-1"))
	got, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, s.SetRefreshToken(ctx, "refresh-1"))
	got, err = s.GetRefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got)

	require.NoError(t, s.SetProfile(ctx, []byte(`{"id":"u1"}`)))
	profile, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1"}`, string(profile))
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "tok-1"))
	require.NoError(t, s.SetRefreshToken(ctx, "refresh-1"))
	require.NoError(t, s.SetProfile(ctx, []byte("p")))
	require.NoError(t, s.Clear(ctx))

	tok, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	refresh, err := s.GetRefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, refresh)
	profile, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.Empty(t, profile)
}

func TestMemoryStoreAbsent(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok, "absence is not an error")
}
