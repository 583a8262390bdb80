// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown is invoked during WAFFLE's shutdown phase, after the HTTP server
// has drained. It stops the background runners, then closes the KV store
// and the MongoDB client. The context carries the shutdown deadline.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	// Stop thumbnail workers first so no job is claimed mid-shutdown.
	if svc != nil && svc.runner != nil {
		logger.Info("stopping job runner")
		if err := svc.runner.Stop(ctx); err != nil {
			logger.Warn("job runner did not stop cleanly", zap.Error(err))
			keep(err)
		}
	}

	if taskRunner != nil {
		logger.Info("stopping background task runner")
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("background task runner did not stop cleanly", zap.Error(err))
			keep(err)
		}
	}

	if deps.KV != nil {
		logger.Info("closing session store")
		if err := deps.KV.Close(); err != nil {
			logger.Error("session store close failed", zap.Error(err))
			keep(err)
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			keep(err)
		}
	}

	return firstErr
}
