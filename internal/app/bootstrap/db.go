// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/filesmanager/internal/app/system/content"
	"github.com/dalemusser/filesmanager/internal/app/system/indexes"
	"github.com/dalemusser/filesmanager/internal/app/system/kv"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB, opens the session KV backend and prepares
// the content store.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	store, err := openKV(appCfg, logger)
	if err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}

	blobs := content.NewOS(appCfg.FolderPath)
	logger.Info("initialized local content storage", zap.String("path", blobs.Root()))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		KV:            store,
		Content:       blobs,
	}, nil
}

// openKV opens the configured session backend. Redis connects lazily, so a
// Redis outage at startup is reported by /status rather than aborting boot.
func openKV(appCfg AppConfig, logger *zap.Logger) (kv.Store, error) {
	switch appCfg.KVBackend {
	case KVBackendBadger:
		b, err := kv.OpenBadger(appCfg.BadgerPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		logger.Info("initialized badger session store",
			zap.String("path", appCfg.BadgerPath),
			zap.Bool("in_memory", appCfg.BadgerPath == ""))
		return b, nil
	case KVBackendRedis, "":
		logger.Info("initialized redis session store", zap.String("addr", appCfg.RedisAddr))
		return kv.NewRedis(kv.RedisConfig{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		}), nil
	default:
		return nil, fmt.Errorf("unknown kv backend: %s", appCfg.KVBackend)
	}
}

// EnsureSchema creates the indexes for users, files and jobs.
//
// The context has a timeout based on coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
