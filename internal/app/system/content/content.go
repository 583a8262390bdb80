// Package content persists binary blobs under a local storage root.
//
// Blobs are addressed by opaque identifiers ("local paths") relative to the
// root. Put allocates a fresh identifier for every call and never overwrites;
// PutAt writes under a caller-chosen identifier and is used for derived
// content (thumbnails) where overwriting is the desired behavior.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// DefaultRoot is the storage root used when none is configured.
const DefaultRoot = "/tmp/files_manager"

var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("content: blob not found")
	// ErrInvalidPath is returned for identifiers that would escape the root.
	ErrInvalidPath = errors.New("content: invalid path")
)

// Store reads and writes blobs on an afero filesystem.
// It is safe for concurrent use.
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a Store rooted at root on fsys. An empty root uses DefaultRoot.
// The root directory is created on first write.
func New(fsys afero.Fs, root string) *Store {
	if root == "" {
		root = DefaultRoot
	}
	return &Store{fs: fsys, root: root}
}

// NewOS creates a Store on the local disk.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

// Root returns the storage root.
func (s *Store) Root() string {
	return s.root
}

// Put stores data under a new identifier and returns it.
func (s *Store) Put(data []byte) (string, error) {
	if err := s.ensureRoot(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	f, err := s.fs.OpenFile(s.abs(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = s.fs.Remove(s.abs(id))
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(s.abs(id))
		return "", fmt.Errorf("close blob: %w", err)
	}
	return id, nil
}

// PutAt stores data under localPath, replacing any existing blob.
func (s *Store) PutAt(localPath string, data []byte) error {
	if err := validate(localPath); err != nil {
		return err
	}
	if err := s.ensureRoot(); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.abs(localPath), data, 0o644)
}

// Exists reports whether a blob exists at localPath.
func (s *Store) Exists(localPath string) bool {
	if validate(localPath) != nil {
		return false
	}
	info, err := s.fs.Stat(s.abs(localPath))
	return err == nil && !info.IsDir()
}

// Read returns the blob at localPath, or ErrNotFound.
func (s *Store) Read(localPath string) ([]byte, error) {
	if err := validate(localPath); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.abs(localPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Remove deletes the blob at localPath. Removing a missing blob is not an error.
func (s *Store) Remove(localPath string) error {
	if err := validate(localPath); err != nil {
		return err
	}
	err := s.fs.Remove(s.abs(localPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) ensureRoot() error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}
	return nil
}

func (s *Store) abs(localPath string) string {
	return filepath.Join(s.root, localPath)
}

// validate rejects identifiers that are empty or not a single path element.
func validate(localPath string) error {
	if localPath == "" || localPath == "." || localPath == ".." ||
		strings.ContainsAny(localPath, `/\`) {
		return ErrInvalidPath
	}
	return nil
}
