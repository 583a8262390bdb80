// Package connect exchanges credentials for session tokens and revokes them.
package connect

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/filesmanager/internal/app/system/auth"
	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"github.com/dalemusser/filesmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Authenticator checks credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// Sessions issues, validates and revokes tokens.
type Sessions interface {
	Issue(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, token string) (string, bool)
	Revoke(ctx context.Context, token string) error
}

// Limiter throttles repeated failed connects per email.
type Limiter interface {
	Allowed(ctx context.Context, email string) (bool, *time.Time, error)
	RecordFailure(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

// Handler provides the connect and disconnect handlers.
type Handler struct {
	users    Authenticator
	sessions Sessions
	limiter  Limiter
	logger   *zap.Logger
}

// NewHandler creates a connect Handler. A nil limiter disables throttling.
func NewHandler(users Authenticator, sessions Sessions, limiter Limiter, logger *zap.Logger) *Handler {
	return &Handler{users: users, sessions: sessions, limiter: limiter, logger: logger}
}

// Mount registers GET /connect and GET /disconnect on r.
func Mount(r chi.Router, h *Handler) {
	r.Get("/connect", h.connect)
	r.Get("/disconnect", h.disconnect)
}

// connect reads Basic credentials and answers {token} on success.
// A locked-out email is answered like bad credentials.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		jsonutil.Unauthorized(w)
		return
	}

	if h.limiter != nil {
		allowed, until, err := h.limiter.Allowed(r.Context(), email)
		if err != nil {
			h.logger.Warn("rate limit check failed", zap.Error(err))
		}
		if !allowed {
			h.logger.Info("connect rejected: locked out",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Timep("locked_until", until))
			jsonutil.Unauthorized(w)
			return
		}
	}

	u, err := h.users.Authenticate(r.Context(), email, password)
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	if u == nil {
		h.logger.Debug("connect rejected: bad credentials", zap.String("remote_addr", r.RemoteAddr))
		h.recordFailure(r.Context(), email)
		jsonutil.Unauthorized(w)
		return
	}
	if h.limiter != nil {
		if err := h.limiter.Reset(r.Context(), email); err != nil {
			h.logger.Warn("rate limit reset failed", zap.Error(err))
		}
	}

	token, err := h.sessions.Issue(r.Context(), u.ID.Hex())
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	h.logger.Info("session issued", zap.String("user_id", u.ID.Hex()))
	jsonutil.OK(w, map[string]string{"token": token})
}

func (h *Handler) recordFailure(ctx context.Context, email string) {
	if h.limiter == nil {
		return
	}
	locked, err := h.limiter.RecordFailure(ctx, email)
	if err != nil {
		h.logger.Warn("rate limit record failed", zap.Error(err))
		return
	}
	if locked {
		h.logger.Warn("connect locked out after repeated failures")
	}
}

// disconnect revokes the X-Token session. Unknown tokens are 401.
func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFrom(r)
	if token == "" {
		jsonutil.Unauthorized(w)
		return
	}
	userID, ok := h.sessions.Validate(r.Context(), token)
	if !ok {
		jsonutil.Unauthorized(w)
		return
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	h.logger.Info("session revoked", zap.String("user_id", userID))
	jsonutil.NoContent(w)
}
