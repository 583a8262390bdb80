// Package tasks runs periodic maintenance work on fixed intervals.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of maintenance work run every Interval.
// The first run happens as soon as the runner starts.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner drives registered jobs until stopped.
type Runner struct {
	logger *zap.Logger
	jobs   []Job
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]struct{}
}

// New creates an idle runner.
func New(logger *zap.Logger) *Runner {
	return &Runner{logger: logger, active: make(map[string]struct{})}
}

// Register adds job. It must be called before Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start launches one loop per registered job.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.logger.Info("maintenance tasks started", zap.Int("jobs", len(r.jobs)))
}

// Stop cancels every loop and waits for in-flight runs. It returns ctx.Err()
// if ctx ends first.
func (r *Runner) Stop(ctx context.Context) error {
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
		r.logger.Info("maintenance tasks stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("maintenance tasks did not stop in time",
			zap.Strings("still_running", r.activeNames()))
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.run(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.run(ctx, job)
		}
	}
}

func (r *Runner) run(ctx context.Context, job Job) {
	r.mu.Lock()
	r.active[job.Name] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, job.Name)
		r.mu.Unlock()
	}()

	start := time.Now()
	err := safeRun(ctx, job)
	switch {
	case err == nil:
		r.logger.Debug("maintenance task done",
			zap.String("task", job.Name),
			zap.Duration("duration", time.Since(start)))
	case ctx.Err() != nil:
		// Shutting down.
	default:
		r.logger.Error("maintenance task failed",
			zap.String("task", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
}

func (r *Runner) activeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.active))
	for n := range r.active {
		names = append(names, n)
	}
	return names
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return job.Run(ctx)
}
