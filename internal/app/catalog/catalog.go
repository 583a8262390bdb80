// Package catalog implements the file and folder operations exposed by the
// API: creation with content upload, lookup, paginated listing, visibility
// changes and content download.
package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"mime"
	"path/filepath"
	"strings"
	"time"

	filestore "github.com/dalemusser/filesmanager/internal/app/store/files"
	"github.com/dalemusser/filesmanager/internal/app/system/apperr"
	"github.com/dalemusser/filesmanager/internal/app/system/content"
	"github.com/dalemusser/filesmanager/internal/app/thumbnails"
	"github.com/dalemusser/filesmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PageSize is the number of records returned per List call.
const PageSize = 20

// DefaultContentType is served when a name has no known extension.
const DefaultContentType = "application/octet-stream"

// Client-facing errors.
var (
	ErrMissingName     = apperr.New(apperr.ErrMissingField, "Missing name")
	ErrMissingType     = apperr.New(apperr.ErrInvalidType, "Missing type")
	ErrMissingData     = apperr.New(apperr.ErrMissingField, "Missing data")
	ErrInvalidData     = apperr.New(apperr.ErrMissingField, "Invalid data")
	ErrParentNotFound  = apperr.New(apperr.ErrInvalidParent, "Parent not found")
	ErrParentNotFolder = apperr.New(apperr.ErrInvalidParent, "Parent is not a folder")
	ErrTooDeep         = apperr.New(apperr.ErrInvalidParent, "Folder nesting too deep")
	ErrFolderContent   = apperr.New(apperr.ErrInvalidOperation, "A folder doesn't have content")
	ErrInvalidSize     = apperr.New(apperr.ErrMissingField, "Invalid size")
	ErrNotFound        = apperr.New(apperr.ErrNotFound, "Not found")
)

// FileRepo persists file metadata.
type FileRepo interface {
	Create(ctx context.Context, input filestore.CreateInput) (*models.File, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error)
	GetOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.File, error)
	ListByParent(ctx context.Context, userID, parentID primitive.ObjectID, skip, limit int64) ([]models.File, error)
	SetPublic(ctx context.Context, id, userID primitive.ObjectID, isPublic bool) (*models.File, error)
	Ancestors(ctx context.Context, id primitive.ObjectID) ([]models.File, error)
	Count(ctx context.Context) (int64, error)
}

// Blobs stores file content.
type Blobs interface {
	Put(data []byte) (string, error)
	Read(localPath string) ([]byte, error)
	Remove(localPath string) error
}

// TokenValidator resolves a session token to a user id.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, bool)
}

// ThumbnailEnqueuer schedules thumbnail generation for an image.
type ThumbnailEnqueuer interface {
	EnqueueThumbnails(ctx context.Context, fileID, userID primitive.ObjectID) error
}

// Catalog coordinates metadata, content and thumbnail scheduling.
type Catalog struct {
	files    FileRepo
	blobs    Blobs
	sessions TokenValidator
	thumbs   ThumbnailEnqueuer
	logger   *zap.Logger
}

// New creates a Catalog.
func New(files FileRepo, blobs Blobs, sessions TokenValidator, thumbs ThumbnailEnqueuer, logger *zap.Logger) *Catalog {
	return &Catalog{files: files, blobs: blobs, sessions: sessions, thumbs: thumbs, logger: logger}
}

// CreateInput holds an upload request. ParentID is a hex id, or "" / "0"
// for the top level. Data is base64 and required for files and images.
type CreateInput struct {
	UserID   primitive.ObjectID
	Name     string
	Type     string
	ParentID string
	IsPublic bool
	Data     string
}

// Create validates the input, stores content for files and images, and
// persists the record. Images additionally get a thumbnail job.
func (c *Catalog) Create(ctx context.Context, in CreateInput) (*models.File, error) {
	if in.Name == "" {
		return nil, ErrMissingName
	}
	ft := models.FileType(in.Type)
	if !ft.IsValid() {
		return nil, ErrMissingType
	}

	var payload []byte
	if ft != models.TypeFolder {
		if in.Data == "" {
			return nil, ErrMissingData
		}
		decoded, err := decodeBase64(in.Data)
		if err != nil {
			return nil, ErrInvalidData
		}
		payload = decoded
	}

	parentID, err := c.resolveParent(ctx, in.ParentID)
	if err != nil {
		return nil, err
	}

	input := filestore.CreateInput{
		UserID:   in.UserID,
		Name:     in.Name,
		Type:     ft,
		ParentID: parentID,
		IsPublic: in.IsPublic,
	}

	if ft == models.TypeFolder {
		return c.files.Create(ctx, input)
	}

	localPath, err := c.blobs.Put(payload)
	if err != nil {
		return nil, err
	}
	input.LocalPath = localPath

	f, err := c.files.Create(ctx, input)
	if err != nil {
		if rmErr := c.blobs.Remove(localPath); rmErr != nil {
			c.logger.Warn("failed to remove orphaned blob",
				zap.String("path", localPath), zap.Error(rmErr))
		}
		return nil, err
	}

	if ft == models.TypeImage {
		c.enqueueThumbnails(ctx, f)
	}
	return f, nil
}

func (c *Catalog) enqueueThumbnails(ctx context.Context, f *models.File) {
	if c.thumbs == nil {
		return
	}
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.thumbs.EnqueueThumbnails(qctx, f.ID, f.UserID); err != nil {
		c.logger.Warn("failed to enqueue thumbnail job",
			zap.String("file_id", f.ID.Hex()), zap.Error(err))
	}
}

func (c *Catalog) resolveParent(ctx context.Context, raw string) (primitive.ObjectID, error) {
	if isRoot(raw) {
		return models.RootID, nil
	}
	pid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return models.RootID, ErrParentNotFound
	}
	parent, err := c.files.GetByID(ctx, pid)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return models.RootID, ErrParentNotFound
		}
		return models.RootID, err
	}
	if !parent.IsFolder() {
		return models.RootID, ErrParentNotFolder
	}

	ancestors, err := c.files.Ancestors(ctx, parent.ID)
	if err != nil {
		return models.RootID, err
	}
	if len(ancestors)+1 >= filestore.MaxAncestorDepth {
		return models.RootID, ErrTooDeep
	}
	return parent.ID, nil
}

func isRoot(raw string) bool {
	return raw == "" || raw == "0"
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// Get returns a record owned by userID.
func (c *Catalog) Get(ctx context.Context, id string, userID primitive.ObjectID) (*models.File, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := c.files.GetOwned(ctx, oid, userID)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// List returns page (zero-indexed) of userID's records under parentID.
// A parent that is not a valid id matches nothing.
func (c *Catalog) List(ctx context.Context, userID primitive.ObjectID, parentID string, page int) ([]models.File, error) {
	if page < 0 {
		page = 0
	}
	if int64(page) > math.MaxInt64/PageSize {
		return []models.File{}, nil
	}
	pid := models.RootID
	if !isRoot(parentID) {
		oid, err := primitive.ObjectIDFromHex(parentID)
		if err != nil {
			return []models.File{}, nil
		}
		pid = oid
	}
	return c.files.ListByParent(ctx, userID, pid, int64(page)*PageSize, PageSize)
}

// SetVisibility publishes or unpublishes a record owned by userID.
func (c *Catalog) SetVisibility(ctx context.Context, id string, userID primitive.ObjectID, isPublic bool) (*models.File, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := c.files.SetPublic(ctx, oid, userID, isPublic)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// FetchContent returns a file's bytes and MIME type. Public records are
// readable by anyone; private ones only with the owner's token. size selects
// a thumbnail width, or 0 for the original.
func (c *Catalog) FetchContent(ctx context.Context, id, token string, size int) ([]byte, string, error) {
	if size != 0 && !thumbnails.IsWidth(size) {
		return nil, "", ErrInvalidSize
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", ErrNotFound
	}
	f, err := c.files.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	if !f.IsPublic && !c.isOwner(ctx, token, f) {
		return nil, "", ErrNotFound
	}
	if f.IsFolder() {
		return nil, "", ErrFolderContent
	}

	localPath := f.LocalPath
	if size != 0 {
		localPath = thumbnails.ThumbnailPath(localPath, size)
	}
	data, err := c.blobs.Read(localPath)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return data, ContentType(f.Name), nil
}

func (c *Catalog) isOwner(ctx context.Context, token string, f *models.File) bool {
	if token == "" {
		return false
	}
	userID, ok := c.sessions.Validate(ctx, token)
	return ok && userID == f.UserID.Hex()
}

// ContentType derives a MIME type from a file name's extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return DefaultContentType
}

// Count returns the total number of records.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	return c.files.Count(ctx)
}
