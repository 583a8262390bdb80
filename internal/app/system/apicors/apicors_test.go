package apicors

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware(t *testing.T) {
	called := false
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	pre := httptest.NewRecorder()
	h.ServeHTTP(pre, httptest.NewRequest(http.MethodOptions, "/files", nil))
	if pre.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", pre.Code, http.StatusNoContent)
	}
	if called {
		t.Error("preflight reached the handler")
	}
	if !strings.Contains(pre.Header().Get("Access-Control-Allow-Headers"), "X-Token") {
		t.Error("X-Token not allowed cross-origin")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))
	if !called {
		t.Error("GET did not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}
