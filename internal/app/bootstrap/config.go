// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "FILESMANAGER"

// KV backends accepted by kv_backend.
const (
	KVBackendRedis  = "redis"
	KVBackendBadger = "badger"
)

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: db_host, folder_path, etc.
//   - Environment variables: FILESMANAGER_DB_HOST, FILESMANAGER_FOLDER_PATH, etc.
//   - Command-line flags: --db_host, --folder_path, etc.
var appConfigKeys = []config.AppKey{
	{Name: "db_host", Default: "localhost", Desc: "MongoDB host (used when mongo_uri is blank)"},
	{Name: "db_port", Default: 27017, Desc: "MongoDB port (used when mongo_uri is blank)"},
	{Name: "db_database", Default: "files_manager", Desc: "MongoDB database name"},
	{Name: "mongo_uri", Default: "", Desc: "MongoDB connection URI (blank builds one from db_host and db_port)"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Session token store
	{Name: "kv_backend", Default: KVBackendRedis, Desc: "Session store backend: 'redis' or 'badger'"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (host:port)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis logical database"},
	{Name: "badger_path", Default: "", Desc: "Badger directory (blank means in-memory)"},
	{Name: "session_ttl", Default: "24h", Desc: "Session token lifetime"},

	// Failed /connect throttling
	{Name: "rate_limit_enabled", Default: true, Desc: "Lock an email out after repeated failed connects"},
	{Name: "rate_limit_connect_attempts", Default: 5, Desc: "Failed connects allowed per window"},
	{Name: "rate_limit_connect_window", Default: "15m", Desc: "Window for counting failed connects"},
	{Name: "rate_limit_connect_lockout", Default: "15m", Desc: "Lockout duration after the limit is reached"},

	// Content storage
	{Name: "folder_path", Default: "/tmp/files_manager", Desc: "Directory holding uploaded file content"},

	// Thumbnail jobs
	{Name: "thumbnail_workers", Default: 3, Desc: "Concurrent thumbnail workers"},
	{Name: "thumbnail_max_attempts", Default: 3, Desc: "Attempts per thumbnail job before it is marked failed"},
	{Name: "job_poll_interval", Default: "1s", Desc: "How often idle workers poll for jobs"},
	{Name: "job_retry_delay", Default: "5s", Desc: "Base delay before a failed job is retried (multiplied by attempts)"},
	{Name: "job_stale_after", Default: "5m", Desc: "Running jobs older than this are requeued"},
	{Name: "job_retention", Default: "168h", Desc: "Completed and failed jobs older than this are deleted"},

	// Operation timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Timeout for health and status pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single lookups and writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for whole requests"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, FILESMANAGER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		DBHost:           appValues.String("db_host"),
		DBPort:           appValues.Int("db_port"),
		MongoDatabase:    appValues.String("db_database"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		KVBackend:     appValues.String("kv_backend"),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),
		BadgerPath:    appValues.String("badger_path"),
		SessionTTL:    appValues.Duration("session_ttl", 24*time.Hour),

		RateLimitEnabled:         appValues.Bool("rate_limit_enabled"),
		RateLimitConnectAttempts: appValues.Int("rate_limit_connect_attempts"),
		RateLimitConnectWindow:   appValues.Duration("rate_limit_connect_window", 15*time.Minute),
		RateLimitConnectLockout:  appValues.Duration("rate_limit_connect_lockout", 15*time.Minute),

		FolderPath: appValues.String("folder_path"),

		ThumbnailWorkers:     appValues.Int("thumbnail_workers"),
		ThumbnailMaxAttempts: appValues.Int("thumbnail_max_attempts"),
		JobPollInterval:      appValues.Duration("job_poll_interval", time.Second),
		JobRetryDelay:        appValues.Duration("job_retry_delay", 5*time.Second),
		JobStaleAfter:        appValues.Duration("job_stale_after", 5*time.Minute),
		JobRetention:         appValues.Duration("job_retention", 7*24*time.Hour),

		TimeoutPing:  appValues.Duration("timeout_ping", 2*time.Second),
		TimeoutShort: appValues.Duration("timeout_short", 5*time.Second),
		TimeoutLong:  appValues.Duration("timeout_long", 30*time.Second),
	}
	if appCfg.MongoURI == "" {
		appCfg.MongoURI = mongoURIFromHost(appCfg.DBHost, appCfg.DBPort)
	}

	return coreCfg, appCfg, nil
}

func mongoURIFromHost(host string, port int) string {
	return fmt.Sprintf("mongodb://%s:%d", host, port)
}

// ValidateConfig performs app-specific config validation.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.KVBackend {
	case KVBackendRedis, KVBackendBadger:
	default:
		return fmt.Errorf("unknown kv_backend %q (want %q or %q)", appCfg.KVBackend, KVBackendRedis, KVBackendBadger)
	}

	if appCfg.JobStaleAfter <= jobTimeout {
		return fmt.Errorf("job_stale_after (%s) must exceed the job timeout (%s)", appCfg.JobStaleAfter, jobTimeout)
	}

	return nil
}
