package content

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func newTestStore() (*Store, afero.Fs) {
	fsys := afero.NewMemMapFs()
	return New(fsys, "/data/files"), fsys
}

func TestNew_DefaultRoot(t *testing.T) {
	s := New(afero.NewMemMapFs(), "")
	if s.Root() != DefaultRoot {
		t.Errorf("Root() = %q, want %q", s.Root(), DefaultRoot)
	}
}

func TestStore_PutCreatesRoot(t *testing.T) {
	s, fsys := newTestStore()

	if ok, _ := afero.DirExists(fsys, "/data/files"); ok {
		t.Fatal("root exists before first write")
	}

	id, err := s.Put([]byte("hello"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ok, _ := afero.DirExists(fsys, "/data/files"); !ok {
		t.Error("Put() did not create root")
	}
	if ok, _ := afero.Exists(fsys, filepath.Join("/data/files", id)); !ok {
		t.Errorf("blob not written under root/%s", id)
	}
}

func TestStore_PutRead(t *testing.T) {
	s, _ := newTestStore()
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}

	id, err := s.Put(data)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Read(id)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read() = %v, want %v", got, data)
	}
	if !s.Exists(id) {
		t.Error("Exists() = false, want true")
	}
}

func TestStore_PutDistinctPaths(t *testing.T) {
	s, _ := newTestStore()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := s.Put([]byte("same bytes"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("Put() reused identifier %q", id)
		}
		seen[id] = true
	}
}

func TestStore_PutAtOverwrites(t *testing.T) {
	s, _ := newTestStore()

	if err := s.PutAt("abc_500", []byte("first")); err != nil {
		t.Fatalf("PutAt() error = %v", err)
	}
	if err := s.PutAt("abc_500", []byte("second")); err != nil {
		t.Fatalf("second PutAt() error = %v", err)
	}
	got, _ := s.Read("abc_500")
	if string(got) != "second" {
		t.Errorf("Read() = %q, want %q", got, "second")
	}
}

func TestStore_ReadMissing(t *testing.T) {
	s, _ := newTestStore()

	if _, err := s.Read("nope"); err != ErrNotFound {
		t.Errorf("Read(missing) error = %v, want %v", err, ErrNotFound)
	}
	if s.Exists("nope") {
		t.Error("Exists(missing) = true, want false")
	}
}

func TestStore_Remove(t *testing.T) {
	s, _ := newTestStore()

	id, _ := s.Put([]byte("x"))
	if err := s.Remove(id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if s.Exists(id) {
		t.Error("Exists() after Remove = true")
	}
	if err := s.Remove(id); err != nil {
		t.Errorf("Remove(missing) error = %v, want nil", err)
	}
}

func TestStore_InvalidPaths(t *testing.T) {
	s, _ := newTestStore()

	for _, p := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`} {
		if _, err := s.Read(p); err != ErrInvalidPath {
			t.Errorf("Read(%q) error = %v, want %v", p, err, ErrInvalidPath)
		}
		if err := s.PutAt(p, []byte("x")); err != ErrInvalidPath {
			t.Errorf("PutAt(%q) error = %v, want %v", p, err, ErrInvalidPath)
		}
		if s.Exists(p) {
			t.Errorf("Exists(%q) = true, want false", p)
		}
	}
}
