// Package kv provides the ephemeral key-value store used for session tokens.
//
// Two backends implement Store: Redis (the default, shared between API
// processes) and an embedded Badger database for single-process deployments.
// Both are safe for concurrent use.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value collaborator interface.
type Store interface {
	// Get returns the value stored for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. The entry expires after ttl; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend's resources.
	Close() error
}
