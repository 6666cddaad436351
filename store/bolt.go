package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const credentialsBucket = "credentials"

// BoltStore implements Store on a bbolt file. This is the default backend for
// the CLI: the on-disk stand-in for the browser's localStorage. Access tokens
// are written with an expiry stamp and filtered on read, so a stale token in
// the file never resurfaces as live.
type BoltStore struct {
	db       *bbolt.DB
	tokenTTL time.Duration
	now      func() time.Time
}

// NewBoltStore opens (creating if needed) a credential database at path.
func NewBoltStore(path string, tokenTTL time.Duration) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential db at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(credentialsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credentials bucket: %w", err)
	}

	return &BoltStore{db: db, tokenTTL: tokenTTL, now: time.Now}, nil
}

func (s *BoltStore) set(key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(credentialsBucket))
		buf := make([]byte, 8+len(value))
		for i := 0; i < 8; i++ {
			buf[i] = byte(expiresAt >> (8 * (7 - i)))
		}
		copy(buf[8:], value)
		return b.Put([]byte(key), buf)
	})
}

func (s *BoltStore) get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(credentialsBucket)).Get([]byte(key))
		if len(raw) < 8 {
			return nil
		}
		var expiresAt int64
		for i := 0; i < 8; i++ {
			expiresAt = expiresAt<<8 | int64(raw[i])
		}
		if expiresAt > 0 && s.now().Unix() >= expiresAt {
			return nil
		}
		out = append([]byte(nil), raw[8:]...)
		return nil
	})
	return out, err
}

// GetToken implements Store.GetToken.
func (s *BoltStore) GetToken(_ context.Context) (string, error) {
	v, err := s.get(KeyAccessToken)
	return string(v), err
}

// SetToken implements Store.SetToken.
func (s *BoltStore) SetToken(_ context.Context, tok string) error {
	return s.set(KeyAccessToken, []byte(tok), s.tokenTTL)
}

// GetRefreshToken implements Store.GetRefreshToken.
func (s *BoltStore) GetRefreshToken(_ context.Context) (string, error) {
	v, err := s.get(KeyRefreshToken)
	return string(v), err
}

// SetRefreshToken implements Store.SetRefreshToken.
func (s *BoltStore) SetRefreshToken(_ context.Context, tok string) error {
	return s.set(KeyRefreshToken, []byte(tok), 0)
}

// GetProfile implements Store.GetProfile.
func (s *BoltStore) GetProfile(_ context.Context) ([]byte, error) {
	return s.get(KeyProfile)
}

// SetProfile implements Store.SetProfile.
func (s *BoltStore) SetProfile(_ context.Context, profile []byte) error {
	return s.set(KeyProfile, profile, 0)
}

// Clear implements Store.Clear.
func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(credentialsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(credentialsBucket))
		return err
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
