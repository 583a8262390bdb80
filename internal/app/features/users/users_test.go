package users

import (
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/filesmanager/internal/app/directory"
	"github.com/dalemusser/filesmanager/internal/app/store/sessions"
	userstore "github.com/dalemusser/filesmanager/internal/app/store/users"
	"github.com/dalemusser/filesmanager/internal/app/system/authutil"
	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"github.com/dalemusser/filesmanager/internal/app/system/kv"
	"github.com/dalemusser/filesmanager/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	router   http.Handler
	dir      *directory.Directory
	sessions *sessions.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	backend := kv.NewRedis(kv.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { backend.Close() })

	logger := zap.NewNop()
	dir := directory.New(userstore.New(db), authutil.NewHasher(bcrypt.MinCost), logger)
	sess := sessions.New(backend, 0, logger)
	return &fixture{
		router:   Routes(NewHandler(dir, logger), sess, logger),
		dir:      dir,
		sessions: sess,
	}
}

func (f *fixture) do(r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(testutil.NewJSONRequest(http.MethodPost, "/", `{"email":"bob@dylan.com","password":"toto1234!"}`))
	rec.AssertStatus(t, http.StatusCreated)

	var got userView
	rec.DecodeJSON(t, &got)
	if got.Email != "bob@dylan.com" {
		t.Errorf("email = %q, want %q", got.Email, "bob@dylan.com")
	}
	if _, err := primitive.ObjectIDFromHex(got.ID); err != nil {
		t.Errorf("id = %q, not an object id", got.ID)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response leaks credentials: %s", rec.Body.String())
	}
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t)

	f.do(testutil.NewJSONRequest(http.MethodPost, "/", `{"email":"taken@x.com","password":"pw"}`)).
		AssertStatus(t, http.StatusCreated)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing email", `{"password":"pw"}`, "Missing email"},
		{"missing password", `{"email":"a@b.com"}`, "Missing password"},
		{"invalid json", `{not json`, "Missing email"},
		{"empty body", ``, "Missing email"},
		{"duplicate", `{"email":"taken@x.com","password":"other"}`, "Already exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(testutil.NewJSONRequest(http.MethodPost, "/", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertError(t, tt.wantMsg)
		})
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := f.dir.Register(ctx, "me@x.com", "pw")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	token, err := f.sessions.Issue(ctx, u.ID.Hex())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	rec := f.do(testutil.WithToken(testutil.NewRequest(http.MethodGet, "/me"), token))
	rec.AssertStatus(t, http.StatusOK)

	var got userView
	rec.DecodeJSON(t, &got)
	if got.ID != u.ID.Hex() || got.Email != "me@x.com" {
		t.Errorf("body = %+v, want id %s email me@x.com", got, u.ID.Hex())
	}
}

func TestMe_Unauthorized(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ghost, _ := f.sessions.Issue(ctx, primitive.NewObjectID().Hex())

	cases := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"unknown token", "deadbeef"},
		{"user gone", ghost},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodGet, "/me")
			if c.token != "" {
				testutil.WithToken(req, c.token)
			}
			rec := f.do(req)
			rec.AssertStatus(t, http.StatusUnauthorized)
			rec.AssertError(t, "Unauthorized")
		})
	}
}

func TestCreate_BodyTooLarge(t *testing.T) {
	f := newFixture(t)

	body := `{"email":"big@x.com","password":"` + strings.Repeat("p", int(jsonutil.MaxBodyBytes)) + `"}`
	rec := f.do(testutil.NewJSONRequest(http.MethodPost, "/", body))
	rec.AssertStatus(t, http.StatusRequestEntityTooLarge)
	rec.AssertError(t, "Request body too large")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if n, _ := f.dir.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after oversized request, want 0", n)
	}
}
