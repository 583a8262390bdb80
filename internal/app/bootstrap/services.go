// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/filesmanager/internal/app/catalog"
	"github.com/dalemusser/filesmanager/internal/app/directory"
	filestore "github.com/dalemusser/filesmanager/internal/app/store/files"
	jobstore "github.com/dalemusser/filesmanager/internal/app/store/jobs"
	"github.com/dalemusser/filesmanager/internal/app/store/ratelimit"
	"github.com/dalemusser/filesmanager/internal/app/store/sessions"
	userstore "github.com/dalemusser/filesmanager/internal/app/store/users"
	"github.com/dalemusser/filesmanager/internal/app/system/authutil"
	"github.com/dalemusser/filesmanager/internal/app/system/imaging"
	"github.com/dalemusser/filesmanager/internal/app/system/jobrunner"
	"github.com/dalemusser/filesmanager/internal/app/thumbnails"
	"go.uber.org/zap"
)

// jobTimeout bounds one thumbnail job. job_stale_after must exceed it.
var jobTimeout = jobrunner.DefaultConfig().JobTimeout

// services are the application components shared by the router and the
// background runners. Each is built once from DBDeps.
type services struct {
	directory *directory.Directory
	sessions  *sessions.Store
	files     *filestore.Store
	catalog   *catalog.Catalog
	jobs      *jobstore.Store
	limiter   *ratelimit.Store
	runner    *jobrunner.Runner
	pipeline  *thumbnails.Pipeline
}

func newServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *services {
	db := deps.MongoDatabase

	s := &services{
		directory: directory.New(userstore.New(db), authutil.NewHasher(authutil.DefaultBcryptCost), logger),
		sessions:  sessions.New(deps.KV, appCfg.SessionTTL, logger),
		files:     filestore.New(db),
		jobs:      jobstore.New(db),
	}

	if appCfg.RateLimitEnabled {
		s.limiter = ratelimit.New(db, ratelimit.Config{
			MaxAttempts: appCfg.RateLimitConnectAttempts,
			Window:      appCfg.RateLimitConnectWindow,
			Lockout:     appCfg.RateLimitConnectLockout,
		})
	}

	s.runner = jobrunner.New(s.jobs, logger, jobrunner.Config{
		WorkerCount:  appCfg.ThumbnailWorkers,
		PollInterval: appCfg.JobPollInterval,
		RetryDelay:   appCfg.JobRetryDelay,
		JobTimeout:   jobTimeout,
	})
	s.pipeline = thumbnails.NewPipeline(s.files, deps.Content, imaging.New(), logger)
	s.runner.AddQueue(thumbnails.Queue)
	s.runner.Register(thumbnails.JobType, s.pipeline.Handle)

	enqueuer := thumbnails.NewEnqueuer(s.runner, appCfg.ThumbnailMaxAttempts)
	s.catalog = catalog.New(s.files, deps.Content, s.sessions, enqueuer, logger)
	return s
}
