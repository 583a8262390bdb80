package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileType is the kind of a catalog entry.
type FileType string

// File types.
const (
	TypeFolder FileType = "folder"
	TypeFile   FileType = "file"
	TypeImage  FileType = "image"
)

// IsValid reports whether t is one of the known file types.
func (t FileType) IsValid() bool {
	switch t {
	case TypeFolder, TypeFile, TypeImage:
		return true
	}
	return false
}

// RootID is the parent sentinel for entries at the top level.
var RootID = primitive.NilObjectID

// File is the metadata record for a folder, file or image.
//
// Folders never carry a LocalPath; files and images always do, naming a blob
// owned by the content store. Ownership (UserID) never changes.
type File struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Name      string             `bson:"name"`
	Type      FileType           `bson:"type"`
	ParentID  primitive.ObjectID `bson:"parent_id"` // RootID = top level
	IsPublic  bool               `bson:"is_public"`
	LocalPath string             `bson:"local_path,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

// IsFolder returns true if the record is a folder.
func (f *File) IsFolder() bool {
	return f.Type == TypeFolder
}

// IsInRoot returns true if the record is at the top level.
func (f *File) IsInRoot() bool {
	return f.ParentID.IsZero()
}
