// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account. Users are created at registration and never updated
// or deleted.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`       // unique, exact match
	PasswordHash string             `bson:"password_hash" json:"-"`   // bcrypt hash (never in JSON)
	CreatedAt    time.Time          `bson:"created_at" json:"-"`
}
