// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dalemusser/filesmanager/internal/app/system/kv"
	"go.uber.org/zap"
)

// DefaultTTL is the absolute lifetime of a session token.
const DefaultTTL = 24 * time.Hour

// keyPrefix namespaces session entries in the KV store.
const keyPrefix = "auth_"

// tokenBytes is the amount of randomness in a token (256 bits).
const tokenBytes = 32

// Store issues, validates and revokes session tokens.
//
// Each token maps to exactly one user ID. Expiry is absolute from issuance and
// is enforced by the KV backend's TTL; lookups never extend it.
type Store struct {
	kv     kv.Store
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a session Store. A ttl <= 0 uses DefaultTTL.
func New(store kv.Store, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: store, ttl: ttl, logger: logger}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue creates a new token for userID.
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, keyPrefix+token, userID, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Validate returns the user ID the token belongs to. It reports false for an
// empty, unknown or expired token, and also when the KV store cannot be
// reached: an unreachable store means "unauthenticated", never a failure.
func (s *Store) Validate(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	userID, err := s.kv.Get(ctx, keyPrefix+token)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("session lookup failed", zap.Error(err))
		}
		return "", false
	}
	return userID, userID != ""
}

// Revoke deletes the token. Revoking an unknown token is not an error.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Delete(ctx, keyPrefix+token)
}

// generateToken returns a random hex-encoded token.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
