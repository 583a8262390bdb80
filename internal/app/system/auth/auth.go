// Package auth authenticates API requests with session tokens.
//
// Clients obtain a token from /connect and send it back in the X-Token
// header. RequireToken resolves the token through the session store and
// places the owning user's id in the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TokenHeader carries the session token.
const TokenHeader = "X-Token"

// Validator resolves a token to a user id hex string.
type Validator interface {
	Validate(ctx context.Context, token string) (string, bool)
}

type ctxKey string

const userIDKey ctxKey = "userID"

// TokenFrom returns the raw session token sent with r, if any.
func TokenFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

// RequireToken rejects requests without a valid session token with 401.
func RequireToken(v Validator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r)
			if token == "" {
				jsonutil.Unauthorized(w)
				return
			}
			hex, ok := v.Validate(r.Context(), token)
			if !ok {
				logger.Debug("request rejected: invalid session token",
					zap.String("path", r.URL.Path))
				jsonutil.Unauthorized(w)
				return
			}
			uid, err := primitive.ObjectIDFromHex(hex)
			if err != nil {
				logger.Warn("session resolves to malformed user id",
					zap.String("path", r.URL.Path))
				jsonutil.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
		})
	}
}

// UserID returns the authenticated user's id placed by RequireToken.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	uid, ok := r.Context().Value(userIDKey).(primitive.ObjectID)
	return uid, ok
}
