package store

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore implements Store using ttlcache. Access tokens expire out of
// the cache on their own; refresh credentials and profiles stay until cleared.
type MemoryStore struct {
	cache    *ttlcache.Cache[string, []byte]
	tokenTTL time.Duration
}

// NewMemoryStore creates an in-memory store. tokenTTL bounds how long an
// access token is held; it mirrors the cookie max-age the browser client used.
func NewMemoryStore(tokenTTL time.Duration) *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go cache.Start()

	return &MemoryStore{
		cache:    cache,
		tokenTTL: tokenTTL,
	}
}

func (s *MemoryStore) get(key string) []byte {
	item := s.cache.Get(key)
	if item == nil {
		return nil
	}
	return item.Value()
}

// GetToken implements Store.GetToken.
func (s *MemoryStore) GetToken(_ context.Context) (string, error) {
	return string(s.get(KeyAccessToken)), nil
}

// SetToken implements Store.SetToken.
func (s *MemoryStore) SetToken(_ context.Context, tok string) error {
	s.cache.Set(KeyAccessToken, []byte(tok), s.tokenTTL)
	return nil
}

// GetRefreshToken implements Store.GetRefreshToken.
func (s *MemoryStore) GetRefreshToken(_ context.Context) (string, error) {
	return string(s.get(KeyRefreshToken)), nil
}

// SetRefreshToken implements Store.SetRefreshToken.
func (s *MemoryStore) SetRefreshToken(_ context.Context, tok string) error {
	s.cache.Set(KeyRefreshToken, []byte(tok), ttlcache.NoTTL)
	return nil
}

// GetProfile implements Store.GetProfile.
func (s *MemoryStore) GetProfile(_ context.Context) ([]byte, error) {
	return s.get(KeyProfile), nil
}

// SetProfile implements Store.SetProfile.
func (s *MemoryStore) SetProfile(_ context.Context, profile []byte) error {
	s.cache.Set(KeyProfile, profile, ttlcache.NoTTL)
	return nil
}

// Clear implements Store.Clear.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.cache.DeleteAll()
	return nil
}

// Close stops the cache's cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
