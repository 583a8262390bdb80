// internal/app/system/authutil/password.go
package authutil

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for stored password hashes.
const DefaultBcryptCost = 12

// MaxPasswordLength is the longest password bcrypt can hash without truncation.
const MaxPasswordLength = 72

// ErrPasswordTooLong is returned for passwords bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("Password must be at most 72 bytes.")

// Hasher hashes and verifies passwords with bcrypt. Each hash carries its own
// random salt, so equal passwords produce different hashes.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given cost. A cost outside bcrypt's
// accepted range uses DefaultBcryptCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return Hasher{Cost: cost}
}

// HashPassword hashes a password using bcrypt.
func (h Hasher) HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plain-text password with a bcrypt hash.
// Returns true if the password matches, false otherwise.
func (h Hasher) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
