// Package thumbnails generates scaled copies of uploaded images in the
// background. Uploads enqueue a job; the Pipeline handles it on a jobrunner
// worker.
package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"sync"

	filestore "github.com/dalemusser/filesmanager/internal/app/store/files"
	jobstore "github.com/dalemusser/filesmanager/internal/app/store/jobs"
	"github.com/dalemusser/filesmanager/internal/app/system/apperr"
	"github.com/dalemusser/filesmanager/internal/app/system/content"
	"github.com/dalemusser/filesmanager/internal/app/system/imaging"
	"github.com/dalemusser/filesmanager/internal/app/system/jobrunner"
	"github.com/dalemusser/filesmanager/internal/domain/models"
	"github.com/sourcegraph/conc/pool"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Queue and job type used for thumbnail work.
const (
	Queue   = "thumbnails"
	JobType = "generate_thumbnails"
)

// Widths are the thumbnail widths produced for every image.
var Widths = []int{500, 250, 100}

// Payload errors. They never succeed on retry.
var (
	ErrMissingFileID  = apperr.New(apperr.ErrMissingField, "Missing fileId")
	ErrMissingUserID  = apperr.New(apperr.ErrMissingField, "Missing userId")
	ErrFileNotFound   = apperr.New(apperr.ErrNotFound, "File not found")
	ErrNotAnImageFile = apperr.New(apperr.ErrInvalidOperation, "Not an image")
)

// ThumbnailPath names the blob holding the width-pixel copy of localPath.
func ThumbnailPath(localPath string, width int) string {
	return fmt.Sprintf("%s_%d", localPath, width)
}

// IsWidth reports whether w is one of the generated widths.
func IsWidth(w int) bool {
	for _, x := range Widths {
		if x == w {
			return true
		}
	}
	return false
}

// JobQueue persists jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, queueName, jobType string, payload map[string]any, maxAttempts int) (jobstore.Job, error)
}

// Enqueuer submits thumbnail jobs.
type Enqueuer struct {
	q           JobQueue
	maxAttempts int
}

// NewEnqueuer creates an Enqueuer. maxAttempts < 1 uses the job store default.
func NewEnqueuer(q JobQueue, maxAttempts int) *Enqueuer {
	return &Enqueuer{q: q, maxAttempts: maxAttempts}
}

// EnqueueThumbnails schedules thumbnail generation for an image.
func (e *Enqueuer) EnqueueThumbnails(ctx context.Context, fileID, userID primitive.ObjectID) error {
	_, err := e.q.Enqueue(ctx, Queue, JobType, map[string]any{
		"fileId": fileID.Hex(),
		"userId": userID.Hex(),
	}, e.maxAttempts)
	return err
}

// FileLookup resolves a record by id restricted to its owner.
type FileLookup interface {
	GetOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.File, error)
}

// Blobs is the subset of the content store the pipeline uses.
type Blobs interface {
	Read(localPath string) ([]byte, error)
	PutAt(localPath string, data []byte) error
	Remove(localPath string) error
}

// Resizer scales image bytes to a width.
type Resizer interface {
	Resize(data []byte, width int) ([]byte, error)
}

// Pipeline turns a thumbnail job into derived blobs.
type Pipeline struct {
	files   FileLookup
	blobs   Blobs
	resizer Resizer
	logger  *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(files FileLookup, blobs Blobs, resizer Resizer, logger *zap.Logger) *Pipeline {
	return &Pipeline{files: files, blobs: blobs, resizer: resizer, logger: logger}
}

// Handle is the jobrunner handler for JobType. Validation failures are
// returned as permanent errors; resize and storage failures may be retried.
func (p *Pipeline) Handle(ctx context.Context, payload map[string]any) (map[string]any, error) {
	fileID, _ := payload["fileId"].(string)
	userID, _ := payload["userId"].(string)

	written, err := p.Generate(ctx, fileID, userID)
	if err != nil {
		if permanent(err) {
			return nil, jobrunner.Permanent(err)
		}
		return nil, err
	}
	return map[string]any{"thumbnails": written}, nil
}

func permanent(err error) bool {
	return errors.Is(err, apperr.ErrMissingField) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrInvalidOperation) ||
		errors.Is(err, imaging.ErrTooLarge)
}

// Generate writes every thumbnail for the image fileID owned by userID and
// returns the blob names written. On failure no thumbnail of the file is left
// behind, including one a failed write may have truncated.
func (p *Pipeline) Generate(ctx context.Context, fileID, userID string) ([]string, error) {
	if fileID == "" {
		return nil, ErrMissingFileID
	}
	if userID == "" {
		return nil, ErrMissingUserID
	}
	fid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, ErrFileNotFound
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrFileNotFound
	}

	f, err := p.files.GetOwned(ctx, fid, uid)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if f.IsFolder() || f.LocalPath == "" {
		return nil, ErrNotAnImageFile
	}

	original, err := p.blobs.Read(f.LocalPath)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	var (
		mu      sync.Mutex
		written []string
	)
	workers := pool.New().WithContext(ctx).WithCancelOnError()
	for _, w := range Widths {
		workers.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := p.resizer.Resize(original, w)
			if err != nil {
				return fmt.Errorf("resize to %d: %w", w, err)
			}
			name := ThumbnailPath(f.LocalPath, w)
			if err := p.blobs.PutAt(name, out); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			mu.Lock()
			written = append(written, name)
			mu.Unlock()
			return nil
		})
	}

	if err := workers.Wait(); err != nil {
		for _, w := range Widths {
			name := ThumbnailPath(f.LocalPath, w)
			if rmErr := p.blobs.Remove(name); rmErr != nil {
				p.logger.Warn("failed to remove partial thumbnail",
					zap.String("path", name), zap.Error(rmErr))
			}
		}
		return nil, err
	}

	p.logger.Info("thumbnails generated",
		zap.String("file_id", fileID),
		zap.Int("count", len(written)))
	return written, nil
}
