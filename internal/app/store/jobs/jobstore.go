// Package jobstore persists background jobs in MongoDB.
package jobstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Job status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultMaxAttempts applies when a job is created without a limit.
const DefaultMaxAttempts = 3

// Job represents a background job.
type Job struct {
	ID          primitive.ObjectID `bson:"_id"`
	QueueName   string             `bson:"queue_name"`   // "thumbnails"
	JobType     string             `bson:"job_type"`     // "generate_thumbnails"
	Payload     map[string]any     `bson:"payload"`      // Job-specific data
	Status      string             `bson:"status"`       // pending, running, completed, failed
	Priority    int                `bson:"priority"`     // Higher = sooner
	Attempts    int                `bson:"attempts"`     // Current attempt count
	MaxAttempts int                `bson:"max_attempts"` // Maximum tries before giving up
	Error       string             `bson:"error,omitempty"`
	Result      map[string]any     `bson:"result,omitempty"`
	ScheduledAt time.Time          `bson:"scheduled_at"`
	StartedAt   *time.Time         `bson:"started_at,omitempty"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	WorkerID    string             `bson:"worker_id,omitempty"`
}

// ErrNotFound is returned when a job is not found.
var ErrNotFound = errors.New("job not found")

// Store provides job persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new job store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("jobs")}
}

// CreateInput holds the fields for creating a new job.
type CreateInput struct {
	QueueName   string
	JobType     string
	Payload     map[string]any
	Priority    int
	MaxAttempts int
	ScheduledAt *time.Time // nil = run immediately
}

// Create creates a new job.
func (s *Store) Create(ctx context.Context, input CreateInput) (Job, error) {
	now := time.Now()

	scheduledAt := now
	if input.ScheduledAt != nil {
		scheduledAt = *input.ScheduledAt
	}

	maxAttempts := input.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	job := Job{
		ID:          primitive.NewObjectID(),
		QueueName:   input.QueueName,
		JobType:     input.JobType,
		Payload:     input.Payload,
		Status:      StatusPending,
		Priority:    input.Priority,
		MaxAttempts: maxAttempts,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Enqueue creates a job that runs immediately.
func (s *Store) Enqueue(ctx context.Context, queueName, jobType string, payload map[string]any, maxAttempts int) (Job, error) {
	return s.Create(ctx, CreateInput{
		QueueName:   queueName,
		JobType:     jobType,
		Payload:     payload,
		MaxAttempts: maxAttempts,
	})
}

// ClaimNext atomically claims the next available job for processing.
// Returns nil, nil if no jobs are available.
func (s *Store) ClaimNext(ctx context.Context, queueName, workerID string) (*Job, error) {
	now := time.Now()

	filter := bson.M{
		"queue_name":   queueName,
		"status":       StatusPending,
		"scheduled_at": bson.M{"$lte": now},
	}

	update := bson.M{
		"$set": bson.M{
			"status":     StatusRunning,
			"started_at": now,
			"worker_id":  workerID,
			"updated_at": now,
		},
		"$inc": bson.M{"attempts": 1},
	}

	opts := options.FindOneAndUpdate().
		SetSort(bson.D{
			{Key: "priority", Value: -1},
			{Key: "scheduled_at", Value: 1},
		}).
		SetReturnDocument(options.After)

	var job Job
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// Complete marks a job as completed with optional result data.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, result map[string]any) error {
	now := time.Now()
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       StatusCompleted,
			"completed_at": now,
			"result":       result,
			"updated_at":   now,
		},
	})
	return err
}

// Fail records a failed attempt. The job is rescheduled after retryDelay
// while attempts remain, unless permanent is set, in which case it is marked
// failed immediately.
func (s *Store) Fail(ctx context.Context, id primitive.ObjectID, errMsg string, retryDelay time.Duration, permanent bool) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()

	if !permanent && job.Attempts < job.MaxAttempts {
		_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
			"$set": bson.M{
				"status":       StatusPending,
				"error":        errMsg,
				"scheduled_at": now.Add(retryDelay),
				"started_at":   nil,
				"worker_id":    "",
				"updated_at":   now,
			},
		})
		return err
	}

	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       StatusFailed,
			"error":        errMsg,
			"completed_at": now,
			"updated_at":   now,
		},
	})
	return err
}

// GetByID retrieves a job by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*Job, error) {
	var job Job
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// QueueStats holds statistics for a queue.
type QueueStats struct {
	QueueName     string     `json:"queue"`
	Pending       int64      `json:"pending"`
	Running       int64      `json:"running"`
	Completed     int64      `json:"completed"`
	Failed        int64      `json:"failed"`
	TotalJobs     int64      `json:"total"`
	OldestPending *time.Time `json:"oldestPending,omitempty"`
}

// GetQueueStats returns statistics for a queue.
func (s *Store) GetQueueStats(ctx context.Context, queueName string) (QueueStats, error) {
	stats := QueueStats{QueueName: queueName}

	pipeline := []bson.M{
		{"$match": bson.M{"queue_name": queueName}},
		{
			"$group": bson.M{
				"_id":   "$status",
				"count": bson.M{"$sum": 1},
			},
		},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var result struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&result); err != nil {
			continue
		}

		switch result.Status {
		case StatusPending:
			stats.Pending = result.Count
		case StatusRunning:
			stats.Running = result.Count
		case StatusCompleted:
			stats.Completed = result.Count
		case StatusFailed:
			stats.Failed = result.Count
		}
		stats.TotalJobs += result.Count
	}

	var oldest Job
	opts := options.FindOne().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})
	pendingFilter := bson.M{"status": StatusPending, "queue_name": queueName}
	if err := s.c.FindOne(ctx, pendingFilter, opts).Decode(&oldest); err == nil {
		stats.OldestPending = &oldest.ScheduledAt
	}

	return stats, nil
}

// DeleteOlderThan deletes finished jobs (completed or failed) older than the cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"status":       bson.M{"$in": []string{StatusCompleted, StatusFailed}},
		"completed_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// RequeueStaleRunning puts jobs that have been running longer than
// staleThreshold back to pending. This is what makes delivery at-least-once
// when a worker dies mid-job.
func (s *Store) RequeueStaleRunning(ctx context.Context, staleThreshold time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-staleThreshold)

	result, err := s.c.UpdateMany(ctx, bson.M{
		"status":     StatusRunning,
		"started_at": bson.M{"$lt": cutoff},
	}, bson.M{
		"$set": bson.M{
			"status":     StatusPending,
			"started_at": nil,
			"worker_id":  "",
			"error":      "worker timeout - job re-queued",
			"updated_at": now,
		},
	})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
