// Package users serves account registration and the current-user lookup.
package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/filesmanager/internal/app/system/apperr"
	"github.com/dalemusser/filesmanager/internal/app/system/auth"
	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"github.com/dalemusser/filesmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Directory registers and looks up accounts.
type Directory interface {
	Register(ctx context.Context, email, password string) (models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
}

// Handler provides the /users handlers.
type Handler struct {
	dir    Directory
	logger *zap.Logger
}

// NewHandler creates a users Handler.
func NewHandler(dir Directory, logger *zap.Logger) *Handler {
	return &Handler{dir: dir, logger: logger}
}

// Routes returns a chi.Router with the users routes mounted.
//
// When mounted at /users:
//   - POST /users     register {email, password}
//   - GET  /users/me  current user (X-Token)
func Routes(h *Handler, sessions auth.Validator, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.With(auth.RequireToken(sessions, logger)).Get("/me", h.me)
	return r
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// create registers a user. A body that is not JSON is treated as empty.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := jsonutil.Decode(w, r, &in); err != nil {
		if jsonutil.IsTooLarge(err) {
			jsonutil.TooLarge(w)
			return
		}
		in.Email, in.Password = "", ""
	}

	u, err := h.dir.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	jsonutil.Created(w, userView{ID: u.ID.Hex(), Email: u.Email})
}

// me returns the user owning the session token. A token whose user no
// longer resolves is answered as unauthorized.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserID(r)
	if !ok {
		jsonutil.Unauthorized(w)
		return
	}
	u, err := h.dir.Get(r.Context(), uid.Hex())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			jsonutil.Unauthorized(w)
			return
		}
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	jsonutil.OK(w, userView{ID: u.ID.Hex(), Email: u.Email})
}
