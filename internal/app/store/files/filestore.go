// Package filestore provides storage for file metadata records.
package filestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/filesmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxAncestorDepth bounds ancestor walks so a corrupt parent chain cannot loop forever.
const MaxAncestorDepth = 64

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("file not found")

// Store provides access to the files collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new file store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("files"),
	}
}

// CreateInput contains the input for creating a record.
type CreateInput struct {
	UserID    primitive.ObjectID
	Name      string
	Type      models.FileType
	ParentID  primitive.ObjectID
	IsPublic  bool
	LocalPath string
}

// Create inserts a new record.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.File, error) {
	f := models.File{
		ID:        primitive.NewObjectID(),
		UserID:    input.UserID,
		Name:      input.Name,
		Type:      input.Type,
		ParentID:  input.ParentID,
		IsPublic:  input.IsPublic,
		CreatedAt: time.Now().UTC(),
	}
	if input.Type != models.TypeFolder {
		f.LocalPath = input.LocalPath
	}

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByID retrieves a record by ID regardless of owner.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetOwned retrieves a record by ID only if it belongs to userID.
func (s *Store) GetOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.File, error) {
	return s.findOne(ctx, bson.M{"_id": id, "user_id": userID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.File, error) {
	var f models.File
	if err := s.c.FindOne(ctx, filter).Decode(&f); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListByParent returns one page of userID's records directly under parentID,
// in insertion (_id) order.
func (s *Store) ListByParent(ctx context.Context, userID, parentID primitive.ObjectID, skip, limit int64) ([]models.File, error) {
	filter := bson.M{"user_id": userID, "parent_id": parentID}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	files := []models.File{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// SetPublic sets the visibility flag on a record owned by userID and returns
// the updated record.
func (s *Store) SetPublic(ctx context.Context, id, userID primitive.ObjectID, isPublic bool) (*models.File, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var f models.File
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_public": isPublic}},
		opts,
	).Decode(&f)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Ancestors returns the chain of records above id, ordered from the top level
// down to the immediate parent. The walk stops at the root, at a missing
// record, or after MaxAncestorDepth steps.
func (s *Store) Ancestors(ctx context.Context, id primitive.ObjectID) ([]models.File, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var ancestors []models.File
	seen := map[primitive.ObjectID]bool{f.ID: true}
	current := f
	for i := 0; i < MaxAncestorDepth && !current.IsInRoot(); i++ {
		parent, err := s.GetByID(ctx, current.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				break
			}
			return nil, err
		}
		if seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		ancestors = append([]models.File{*parent}, ancestors...)
		current = parent
	}
	return ancestors, nil
}

// Count returns the total number of records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
