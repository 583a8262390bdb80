// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging and CORS; everything
// specific to the file service lives here and is loaded in LoadConfig.
type AppConfig struct {
	// MongoDB connection configuration
	DBHost           string // used to build MongoURI when none is given
	DBPort           int
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB (default: files_manager)
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session token store
	KVBackend     string // "redis" or "badger"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BadgerPath    string        // blank means in-memory
	SessionTTL    time.Duration // absolute token lifetime (default: 24h)

	// Failed /connect throttling
	RateLimitEnabled         bool
	RateLimitConnectAttempts int
	RateLimitConnectWindow   time.Duration
	RateLimitConnectLockout  time.Duration

	// Content storage root
	FolderPath string

	// Thumbnail job processing
	ThumbnailWorkers     int
	ThumbnailMaxAttempts int
	JobPollInterval      time.Duration
	JobRetryDelay        time.Duration
	JobStaleAfter        time.Duration // running jobs older than this are requeued
	JobRetention         time.Duration // finished jobs older than this are deleted

	// Operation timeouts
	TimeoutPing  time.Duration
	TimeoutShort time.Duration
	TimeoutLong  time.Duration
}
