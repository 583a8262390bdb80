// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/filesmanager/internal/app/system/tasks"
	"github.com/dalemusser/filesmanager/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It applies the configured timeouts, builds the shared services and
// starts the thumbnail job runner and the maintenance task runner.
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:  appCfg.TimeoutPing,
		Short: appCfg.TimeoutShort,
		Long:  appCfg.TimeoutLong,
	})

	svc = newServices(appCfg, deps, logger)

	if err := svc.runner.Start(); err != nil {
		logger.Error("failed to start job runner", zap.Error(err))
		return err
	}

	startTaskRunner(svc, appCfg, logger)

	return nil
}

// svc holds the services built in Startup, used by BuildHandler and Shutdown.
var svc *services

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(s *services, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	// Requeue thumbnail jobs abandoned by a crashed worker.
	taskRunner.Register(tasks.StaleJobRequeueJob(s.jobs, appCfg.JobStaleAfter, logger))

	// Drop finished jobs past retention.
	taskRunner.Register(tasks.JobRetentionJob(s.jobs, appCfg.JobRetention, logger))

	taskRunner.Start()
}
