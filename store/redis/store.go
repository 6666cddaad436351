// Package redis provides a Store backed by Redis, for server-side embedders
// of the SDK (for example a gateway holding credentials for many customer
// sessions) where a file-backed store does not fit.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dinetap/dinetap-go/store"
)

// Store implements store.Store on a Redis client. Every key is scoped by a
// caller-supplied prefix, typically one per end user.
type Store struct {
	client   *redis.Client
	prefix   string
	tokenTTL time.Duration
}

// NewStore creates a Redis-backed credential store.
func NewStore(client *redis.Client, prefix string, tokenTTL time.Duration) *Store {
	return &Store{
		client:   client,
		prefix:   prefix,
		tokenTTL: tokenTTL,
	}
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("%s:credential:%s", s.prefix, name)
}

func (s *Store) get(ctx context.Context, name string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential from redis: %w", err)
	}
	return val, nil
}

func (s *Store) set(ctx context.Context, name string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(name), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write credential to redis: %w", err)
	}
	return nil
}

// GetToken implements store.Store.GetToken.
func (s *Store) GetToken(ctx context.Context) (string, error) {
	v, err := s.get(ctx, store.KeyAccessToken)
	return string(v), err
}

// SetToken implements store.Store.SetToken.
func (s *Store) SetToken(ctx context.Context, tok string) error {
	if tok == "" {
		return s.client.Del(ctx, s.key(store.KeyAccessToken)).Err()
	}
	return s.set(ctx, store.KeyAccessToken, []byte(tok), s.tokenTTL)
}

// GetRefreshToken implements store.Store.GetRefreshToken.
func (s *Store) GetRefreshToken(ctx context.Context) (string, error) {
	v, err := s.get(ctx, store.KeyRefreshToken)
	return string(v), err
}

// SetRefreshToken implements store.Store.SetRefreshToken.
func (s *Store) SetRefreshToken(ctx context.Context, tok string) error {
	return s.set(ctx, store.KeyRefreshToken, []byte(tok), 0)
}

// GetProfile implements store.Store.GetProfile.
func (s *Store) GetProfile(ctx context.Context) ([]byte, error) {
	return s.get(ctx, store.KeyProfile)
}

// SetProfile implements store.Store.SetProfile.
func (s *Store) SetProfile(ctx context.Context, profile []byte) error {
	return s.set(ctx, store.KeyProfile, profile, 0)
}

// Clear implements store.Store.Clear.
func (s *Store) Clear(ctx context.Context) error {
	keys := []string{
		s.key(store.KeyAccessToken),
		s.key(store.KeyRefreshToken),
		s.key(store.KeyProfile),
	}
	return s.client.Del(ctx, keys...).Err()
}
