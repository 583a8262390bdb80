// Package directory manages user accounts: registration and credential checks.
package directory

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/filesmanager/internal/app/store/users"
	"github.com/dalemusser/filesmanager/internal/app/system/apperr"
	"github.com/dalemusser/filesmanager/internal/app/system/authutil"
	"github.com/dalemusser/filesmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Client-facing errors.
var (
	ErrMissingEmail    = apperr.New(apperr.ErrMissingField, "Missing email")
	ErrMissingPassword = apperr.New(apperr.ErrMissingField, "Missing password")
	ErrAlreadyExist    = apperr.New(apperr.ErrConflict, "Already exist")
	ErrPasswordTooLong = apperr.New(apperr.ErrMissingField, "Password too long")
)

// Directory registers and authenticates users.
type Directory struct {
	users  *userstore.Store
	hasher authutil.Hasher
	logger *zap.Logger
}

// New creates a Directory.
func New(users *userstore.Store, hasher authutil.Hasher, logger *zap.Logger) *Directory {
	return &Directory{users: users, hasher: hasher, logger: logger}
}

// Register creates a user. The stored credential is a bcrypt hash; the
// returned user never carries the password.
func (d *Directory) Register(ctx context.Context, email, password string) (models.User, error) {
	if email == "" {
		return models.User{}, ErrMissingEmail
	}
	if password == "" {
		return models.User{}, ErrMissingPassword
	}

	if _, err := d.users.GetByEmail(ctx, email); err == nil {
		return models.User{}, ErrAlreadyExist
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := d.hasher.HashPassword(password)
	if err != nil {
		if errors.Is(err, authutil.ErrPasswordTooLong) {
			return models.User{}, ErrPasswordTooLong
		}
		return models.User{}, err
	}

	u, err := d.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return models.User{}, ErrAlreadyExist
		}
		return models.User{}, err
	}

	d.logger.Info("user registered", zap.String("user_id", u.ID.Hex()))
	u.PasswordHash = ""
	return u, nil
}

// Authenticate returns the user matching the credentials, or nil when the
// email is unknown or the password is wrong. The two cases are deliberately
// indistinguishable to the caller.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, nil
	}
	u, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !d.hasher.CheckPassword(password, u.PasswordHash) {
		return nil, nil
	}
	u.PasswordHash = ""
	return u, nil
}

// Get returns the user with the given hex ID, or an ErrNotFound-kind error.
func (d *Directory) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.New(apperr.ErrNotFound, "Not found")
	}
	u, err := d.users.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "Not found")
		}
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Count returns the number of registered users.
func (d *Directory) Count(ctx context.Context) (int64, error) {
	return d.users.Count(ctx)
}
