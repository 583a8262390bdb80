package directory

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/filesmanager/internal/app/store/users"
	"github.com/dalemusser/filesmanager/internal/app/system/apperr"
	"github.com/dalemusser/filesmanager/internal/app/system/authutil"
	"github.com/dalemusser/filesmanager/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestDirectory(t *testing.T) (*Directory, *userstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	users := userstore.New(db)
	return New(users, authutil.NewHasher(bcrypt.MinCost), zap.NewNop()), users
}

func TestDirectory_Register(t *testing.T) {
	d, users := newTestDirectory(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := d.Register(ctx, "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID.IsZero() {
		t.Error("Register() did not assign ID")
	}
	if u.Email != "a@b.com" {
		t.Errorf("Email = %q, want %q", u.Email, "a@b.com")
	}
	if u.PasswordHash != "" {
		t.Error("Register() echoed the password hash")
	}

	stored, err := users.GetByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if stored.PasswordHash == "pw" || stored.PasswordHash == "" {
		t.Errorf("stored PasswordHash = %q, want a hash", stored.PasswordHash)
	}
}

func TestDirectory_Register_Twice(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := d.Register(ctx, "a@b.com", "pw"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	_, err := d.Register(ctx, "a@b.com", "other")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second Register() error = %v, want Conflict", err)
	}
	if err.Error() != "Already exist" {
		t.Errorf("error message = %q, want %q", err.Error(), "Already exist")
	}
}

func TestDirectory_Register_MissingFields(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name     string
		email    string
		password string
		wantMsg  string
	}{
		{"missing email", "", "pw", "Missing email"},
		{"missing password", "a@b.com", "", "Missing password"},
		{"missing both", "", "", "Missing email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Register(ctx, tt.email, tt.password)
			if !errors.Is(err, apperr.ErrMissingField) {
				t.Fatalf("Register() error = %v, want MissingField", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("error message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDirectory_Authenticate(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	registered, _ := d.Register(ctx, "a@b.com", "pw")

	u, err := d.Authenticate(ctx, "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if u == nil {
		t.Fatal("Authenticate() = nil, want user")
	}
	if u.ID != registered.ID {
		t.Errorf("ID = %v, want %v", u.ID, registered.ID)
	}

	cases := []struct {
		name, email, password string
	}{
		{"wrong password", "a@b.com", "nope"},
		{"unknown email", "x@y.com", "pw"},
		{"empty password", "a@b.com", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			u, err := d.Authenticate(ctx, c.email, c.password)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if u != nil {
				t.Errorf("Authenticate() = %v, want nil", u)
			}
		})
	}
}

func TestDirectory_Get(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	registered, _ := d.Register(ctx, "me@b.com", "pw")

	u, err := d.Get(ctx, registered.ID.Hex())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if u.Email != "me@b.com" {
		t.Errorf("Email = %q, want %q", u.Email, "me@b.com")
	}

	if _, err := d.Get(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want NotFound", err)
	}
	if _, err := d.Get(ctx, "garbage"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(garbage) error = %v, want NotFound", err)
	}
}

func TestDirectory_NoPlaintextStored(t *testing.T) {
	d, users := newTestDirectory(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	d.Register(ctx, "plain@b.com", "secret")

	n, err := users.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Count() = %d, want 1", n)
	}

	stored, _ := users.GetByEmail(ctx, "plain@b.com")
	if stored.PasswordHash == "secret" {
		t.Error("password stored in plaintext")
	}
}
