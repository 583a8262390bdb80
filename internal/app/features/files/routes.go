package files

import (
	"net/http"

	"github.com/dalemusser/filesmanager/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes returns a chi.Router with the file routes mounted.
//
// When mounted at /files:
//   - POST /files                  create (X-Token)
//   - GET  /files?parentId&page    list (X-Token)
//   - GET  /files/{id}             show (X-Token)
//   - PUT  /files/{id}/publish     make public (X-Token)
//   - PUT  /files/{id}/unpublish   make private (X-Token)
//   - GET  /files/{id}/data?size=  content (public, or owner token)
func Routes(h *Handler, sessions auth.Validator, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/{id}/data", h.data)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireToken(sessions, logger))
		pr.Post("/", h.create)
		pr.Get("/", h.list)
		pr.Get("/{id}", h.show)
		pr.Put("/{id}/publish", h.publish)
		pr.Put("/{id}/unpublish", h.unpublish)
	})

	return r
}
