package indexes_test

import (
	"testing"

	"github.com/dalemusser/filesmanager/internal/app/system/indexes"
	"github.com/dalemusser/filesmanager/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, coll *mongo.Collection) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var ix bson.M
		if err := cur.Decode(&ix); err != nil {
			t.Fatalf("decode index: %v", err)
		}
		if n, ok := ix["name"].(string); ok {
			names[n] = true
		}
	}
	return names
}

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}
	// Reconciling again is a no-op.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll() error = %v", err)
	}

	want := map[string][]string{
		"users":            {"uniq_users_email"},
		"files":            {"idx_files_user_parent_id", "idx_files_parent"},
		"jobs":             {"idx_job_claim", "idx_job_status_started", "idx_job_status_completed"},
		"connect_attempts": {"ttl_connect_attempts"},
	}
	for coll, names := range want {
		got := indexNames(t, db.Collection(coll))
		for _, n := range names {
			if !got[n] {
				t.Errorf("%s: missing index %q (have %v)", coll, n, got)
			}
		}
	}
}

func TestEnsureAll_UniqueEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	users := db.Collection("users")
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@b.com"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := users.InsertOne(ctx, bson.M{"email": "a@b.com"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("second insert error = %v, want duplicate key", err)
	}
}
