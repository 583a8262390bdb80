// Package files serves the file and folder API.
//
// Every route except GET /files/{id}/data requires an X-Token session.
// Content downloads accept an optional token so public files can be read
// anonymously.
package files

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/filesmanager/internal/app/catalog"
	"github.com/dalemusser/filesmanager/internal/app/system/auth"
	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"github.com/dalemusser/filesmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Catalog is the set of file operations the handlers need.
type Catalog interface {
	Create(ctx context.Context, in catalog.CreateInput) (*models.File, error)
	Get(ctx context.Context, id string, userID primitive.ObjectID) (*models.File, error)
	List(ctx context.Context, userID primitive.ObjectID, parentID string, page int) ([]models.File, error)
	SetVisibility(ctx context.Context, id string, userID primitive.ObjectID, isPublic bool) (*models.File, error)
	FetchContent(ctx context.Context, id, token string, size int) ([]byte, string, error)
}

// Handler provides the /files handlers.
type Handler struct {
	cat    Catalog
	logger *zap.Logger
}

// NewHandler creates a files Handler.
func NewHandler(cat Catalog, logger *zap.Logger) *Handler {
	return &Handler{cat: cat, logger: logger}
}

type createRequest struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	ParentID parentID `json:"parentId"`
	IsPublic bool     `json:"isPublic"`
	Data     string   `json:"data"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserID(r)
	if !ok {
		jsonutil.Unauthorized(w)
		return
	}

	var in createRequest
	if err := jsonutil.Decode(w, r, &in); err != nil {
		if jsonutil.IsTooLarge(err) {
			jsonutil.TooLarge(w)
			return
		}
		in = createRequest{}
	}

	f, err := h.cat.Create(r.Context(), catalog.CreateInput{
		UserID:   uid,
		Name:     in.Name,
		Type:     in.Type,
		ParentID: string(in.ParentID),
		IsPublic: in.IsPublic,
		Data:     in.Data,
	})
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	jsonutil.Created(w, newFileView(f))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserID(r)
	if !ok {
		jsonutil.Unauthorized(w)
		return
	}
	f, err := h.cat.Get(r.Context(), chi.URLParam(r, "id"), uid)
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	jsonutil.OK(w, newFileView(f))
}

// list serves GET /files?parentId=&page=. A missing parentId lists the top
// level; a page that is not a number is page 0.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserID(r)
	if !ok {
		jsonutil.Unauthorized(w)
		return
	}
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 0
	}

	records, err := h.cat.List(r.Context(), uid, q.Get("parentId"), page)
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	out := make([]fileView, 0, len(records))
	for i := range records {
		out = append(out, newFileView(&records[i]))
	}
	jsonutil.OK(w, out)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, true)
}

func (h *Handler) unpublish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, false)
}

func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request, isPublic bool) {
	uid, ok := auth.UserID(r)
	if !ok {
		jsonutil.Unauthorized(w)
		return
	}
	f, err := h.cat.SetVisibility(r.Context(), chi.URLParam(r, "id"), uid, isPublic)
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	h.logger.Info("file visibility changed",
		zap.String("file_id", f.ID.Hex()),
		zap.Bool("is_public", isPublic))
	jsonutil.OK(w, newFileView(f))
}

// data streams file content. size selects a thumbnail width.
func (h *Handler) data(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			jsonutil.FromError(w, r, catalog.ErrInvalidSize, h.logger)
			return
		}
		size = n
	}

	body, mimeType, err := h.cat.FetchContent(r.Context(), chi.URLParam(r, "id"), auth.TokenFrom(r), size)
	if err != nil {
		jsonutil.FromError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Debug("content write interrupted", zap.Error(err))
	}
}
