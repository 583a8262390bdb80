package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mapValidator map[string]string

func (m mapValidator) Validate(_ context.Context, token string) (string, bool) {
	id, ok := m[token]
	return id, ok
}

func TestRequireToken(t *testing.T) {
	uid := primitive.NewObjectID()
	v := mapValidator{"good": uid.Hex(), "mangled": "not-hex"}

	var gotID primitive.ObjectID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserID(r)
		w.WriteHeader(http.StatusOK)
	})
	h := RequireToken(v, zap.NewNop())(next)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid", "good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"unknown", "bad", http.StatusUnauthorized},
		{"malformed user id", "mangled", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.token != "" {
				req.Header.Set(TokenHeader, tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusUnauthorized && rec.Body.String() != "{\"error\":\"Unauthorized\"}\n" {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TokenHeader, " good ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotID != uid {
		t.Errorf("UserID() = %v, want %v", gotID, uid)
	}
}

func TestUserID_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserID(req); ok {
		t.Error("UserID() ok = true without middleware")
	}
}
