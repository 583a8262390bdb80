// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/filesmanager/internal/app/system/content"
	"github.com/dalemusser/filesmanager/internal/app/system/kv"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// It is created in ConnectDB and passed to EnsureSchema, Startup,
// BuildHandler and Shutdown. Shutdown closes every connection held here.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// KV holds session tokens (Redis or Badger).
	KV kv.Store

	// Content stores uploaded bytes and thumbnails.
	Content *content.Store
}
