// Package jobrunner claims jobs from the job store and runs registered handlers.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	jobstore "github.com/dalemusser/filesmanager/internal/app/store/jobs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobHandler processes a job and returns a result or error.
// Returning an error wrapped with Permanent fails the job without retry.
type JobHandler func(ctx context.Context, payload map[string]any) (map[string]any, error)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Config holds configuration for the job runner.
type Config struct {
	// WorkerCount is the number of concurrent workers per queue.
	WorkerCount int

	// PollInterval is how often to poll for new jobs.
	PollInterval time.Duration

	// RetryDelay is the base delay before retrying a failed job.
	// Actual delay is RetryDelay * attempts (linear backoff).
	RetryDelay time.Duration

	// JobTimeout bounds a single handler invocation. It should stay below the
	// stale threshold used to requeue abandoned jobs.
	JobTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:  3,
		PollInterval: time.Second,
		RetryDelay:   5 * time.Second,
		JobTimeout:   4 * time.Minute,
	}
}

// Runner manages job processing across multiple queues.
type Runner struct {
	store    *jobstore.Store
	handlers map[string]JobHandler
	config   Config
	logger   *zap.Logger

	workerID   string
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    atomic.Int32
	activeJobs sync.Map // jobID -> struct{}

	mu      sync.RWMutex
	queues  map[string]bool
	started bool
}

// New creates a new job runner.
func New(store *jobstore.Store, logger *zap.Logger, config ...Config) *Runner {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}

	return &Runner{
		store:    store,
		handlers: make(map[string]JobHandler),
		config:   cfg,
		logger:   logger,
		workerID: uuid.New().String()[:8],
		queues:   make(map[string]bool),
	}
}

// Register registers a handler for a job type.
func (r *Runner) Register(jobType string, handler JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// AddQueue registers a queue name for processing.
func (r *Runner) AddQueue(queueName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[queueName] = true
}

func (r *Runner) queueNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	queues := make([]string, 0, len(r.queues))
	for q := range r.queues {
		queues = append(queues, q)
	}
	sort.Strings(queues)
	return queues
}

// Start begins processing jobs on all registered queues.
func (r *Runner) Start() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("runner already started")
	}
	r.started = true
	r.mu.Unlock()

	queues := r.queueNames()
	if len(queues) == 0 {
		r.logger.Warn("job runner started with no queues registered")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, queueName := range queues {
		for i := 0; i < r.config.WorkerCount; i++ {
			r.wg.Add(1)
			workerName := fmt.Sprintf("%s-%s-%d", r.workerID, queueName, i)
			go r.worker(ctx, queueName, workerName)
		}
	}

	r.logger.Info("job runner started",
		zap.Int("queues", len(queues)),
		zap.Int("workers_per_queue", r.config.WorkerCount),
		zap.Strings("queue_names", queues))

	return nil
}

// Stop gracefully stops the runner and waits for active jobs to complete.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("job runner stopped gracefully")
		return nil
	case <-ctx.Done():
		var activeJobs []string
		r.activeJobs.Range(func(key, _ any) bool {
			activeJobs = append(activeJobs, key.(string))
			return true
		})
		r.logger.Warn("job runner shutdown timed out",
			zap.Int32("active_jobs", r.running.Load()),
			zap.Strings("job_ids", activeJobs))
		return ctx.Err()
	}
}

// worker processes jobs from a single queue.
func (r *Runner) worker(ctx context.Context, queueName, workerName string) {
	defer r.wg.Done()

	r.logger.Debug("worker started",
		zap.String("worker", workerName),
		zap.String("queue", queueName))

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("worker stopping", zap.String("worker", workerName))
			return
		case <-ticker.C:
			// Drain whatever is ready before waiting for the next tick.
			for ctx.Err() == nil && r.processNextJob(ctx, queueName, workerName) {
			}
		}
	}
}

// ProcessNext claims and runs at most one job from queueName. It reports
// whether a job was found.
func (r *Runner) ProcessNext(ctx context.Context, queueName string) bool {
	return r.processNextJob(ctx, queueName, r.workerID+"-manual")
}

func (r *Runner) processNextJob(ctx context.Context, queueName, workerName string) bool {
	claimCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	job, err := r.store.ClaimNext(claimCtx, queueName, workerName)
	cancel()

	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to claim job",
				zap.String("queue", queueName),
				zap.Error(err))
		}
		return false
	}
	if job == nil {
		return false
	}

	r.running.Add(1)
	r.activeJobs.Store(job.ID.Hex(), struct{}{})
	defer func() {
		r.running.Add(-1)
		r.activeJobs.Delete(job.ID.Hex())
	}()

	r.mu.RLock()
	handler, ok := r.handlers[job.JobType]
	r.mu.RUnlock()

	if !ok {
		r.logger.Error("no handler registered for job type",
			zap.String("job_type", job.JobType),
			zap.String("job_id", job.ID.Hex()))
		r.fail(job, Permanent(fmt.Errorf("no handler for job type: %s", job.JobType)))
		return true
	}

	start := time.Now()
	r.logger.Debug("processing job",
		zap.String("job_id", job.ID.Hex()),
		zap.String("job_type", job.JobType),
		zap.Int("attempt", job.Attempts))

	jobCtx, jobCancel := context.WithTimeout(ctx, r.config.JobTimeout)
	result, err := runHandler(jobCtx, handler, job.Payload)
	jobCancel()

	duration := time.Since(start)

	if err != nil {
		r.logger.Warn("job failed",
			zap.String("job_id", job.ID.Hex()),
			zap.String("job_type", job.JobType),
			zap.Int("attempt", job.Attempts),
			zap.Int("max_attempts", job.MaxAttempts),
			zap.Bool("permanent", IsPermanent(err)),
			zap.Duration("duration", duration),
			zap.Error(err))
		r.fail(job, err)
		return true
	}

	r.logger.Info("job completed",
		zap.String("job_id", job.ID.Hex()),
		zap.String("job_type", job.JobType),
		zap.Duration("duration", duration))

	completeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := r.store.Complete(completeCtx, job.ID, result); err != nil {
		r.logger.Error("failed to mark job as completed",
			zap.String("job_id", job.ID.Hex()),
			zap.Error(err))
	}
	cancel()
	return true
}

func (r *Runner) fail(job *jobstore.Job, err error) {
	retryDelay := r.config.RetryDelay * time.Duration(job.Attempts)
	failCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if failErr := r.store.Fail(failCtx, job.ID, err.Error(), retryDelay, IsPermanent(err)); failErr != nil {
		r.logger.Error("failed to mark job as failed",
			zap.String("job_id", job.ID.Hex()),
			zap.Error(failErr))
	}
}

// runHandler invokes h, converting a panic into a permanent error.
func runHandler(ctx context.Context, h JobHandler, payload map[string]any) (result map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = Permanent(fmt.Errorf("handler panic: %v", p))
		}
	}()
	return h(ctx, payload)
}

// Enqueue adds a job to be processed.
func (r *Runner) Enqueue(ctx context.Context, queueName, jobType string, payload map[string]any, maxAttempts int) (jobstore.Job, error) {
	return r.store.Enqueue(ctx, queueName, jobType, payload, maxAttempts)
}

// Stats is a snapshot of runner activity.
type Stats struct {
	WorkerID   string                `json:"workerId"`
	ActiveJobs int32                 `json:"activeJobs"`
	Queues     []jobstore.QueueStats `json:"queues"`
}

// Stats returns current runner statistics for every registered queue.
func (r *Runner) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		WorkerID:   r.workerID,
		ActiveJobs: r.running.Load(),
		Queues:     []jobstore.QueueStats{},
	}
	for _, q := range r.queueNames() {
		qs, err := r.store.GetQueueStats(ctx, q)
		if err != nil {
			return Stats{}, err
		}
		stats.Queues = append(stats.Queues, qs)
	}
	return stats, nil
}
