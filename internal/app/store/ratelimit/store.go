// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName holds one document per email with recent failed connects.
const CollectionName = "connect_attempts"

// Attempt tracks failed /connect attempts for one email.
type Attempt struct {
	Email        string     `bson:"_id"`
	AttemptCount int        `bson:"attempt_count"` // failures in the current window
	WindowStart  time.Time  `bson:"window_start"`
	LockedUntil  *time.Time `bson:"locked_until,omitempty"`
	LastAttempt  time.Time  `bson:"last_attempt"` // TTL index field
}

// Config sets the limits. Zero values fall back to DefaultConfig.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultConfig allows 5 failures per 15 minutes, then locks for 15 minutes.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Window: 15 * time.Minute, Lockout: 15 * time.Minute}
}

// Store limits repeated failed credential checks per email.
type Store struct {
	c   *mongo.Collection
	cfg Config
	now func() time.Time
}

// New creates a rate limit Store.
func New(db *mongo.Database, cfg Config) *Store {
	def := DefaultConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = def.Lockout
	}
	return &Store{c: db.Collection(CollectionName), cfg: cfg, now: time.Now}
}

func (s *Store) get(ctx context.Context, email string) (*Attempt, error) {
	var a Attempt
	err := s.c.FindOne(ctx, bson.M{"_id": email}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Allowed reports whether email may attempt to connect. When it is locked
// out, the lockout expiry is returned.
func (s *Store) Allowed(ctx context.Context, email string) (bool, *time.Time, error) {
	a, err := s.get(ctx, email)
	if err != nil || a == nil {
		return true, nil, err
	}
	now := s.now()
	if a.LockedUntil != nil && now.Before(*a.LockedUntil) {
		return false, a.LockedUntil, nil
	}
	return true, nil, nil
}

// RecordFailure counts a failed attempt and locks email once the window's
// limit is reached. It reports whether this failure caused a lockout.
func (s *Store) RecordFailure(ctx context.Context, email string) (bool, error) {
	a, err := s.get(ctx, email)
	if err != nil {
		return false, err
	}
	now := s.now()
	if a == nil || now.After(a.WindowStart.Add(s.cfg.Window)) {
		a = &Attempt{Email: email, WindowStart: now}
	}
	a.AttemptCount++
	a.LastAttempt = now

	locked := false
	if a.AttemptCount >= s.cfg.MaxAttempts {
		until := now.Add(s.cfg.Lockout)
		a.LockedUntil = &until
		locked = true
	}

	_, err = s.c.ReplaceOne(ctx, bson.M{"_id": email}, a, options.Replace().SetUpsert(true))
	return locked, err
}

// Reset clears the failure history for email after a successful connect.
func (s *Store) Reset(ctx context.Context, email string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": email})
	return err
}

// Get returns the attempt record for email, or nil when there is none.
func (s *Store) Get(ctx context.Context, email string) (*Attempt, error) {
	return s.get(ctx, email)
}
