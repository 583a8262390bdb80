// Package apicors provides CORS middleware for the token-authenticated API.
//
// Tokens travel in a request header rather than a cookie, so any origin may
// call the API and credentials are never allowed.
package apicors

import (
	"net/http"
)

// AllowedHeaders lists the request headers browsers may send cross-origin.
const AllowedHeaders = "Authorization, Content-Type, Accept, X-Token"

// Middleware allows any origin and answers preflight requests.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", AllowedHeaders)
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
