// Package storage persists uploaded report files in a flat directory.
//
// The store is built on afero.Fs rather than the os package directly: tests
// run against an in-memory filesystem, and the same instance doubles as the
// http.FileSystem backing the /uploads static route.
package storage

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Store writes and removes uploaded files under a single directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// New creates a Store rooted at dir on the given filesystem, creating the
// directory if needed. Pass afero.NewOsFs() in production, afero.NewMemMapFs()
// in tests.
func New(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload directory %s: %w", dir, err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// Save streams r into a new file and returns the generated stored name.
//
// The stored name is a random UUID plus the (lowercased) extension of the
// original name — user-supplied filenames never touch the filesystem, which
// sidesteps both collisions and path traversal in one move.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.NewString() + ext

	f, err := s.fs.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("storage: creating file %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.fs.Remove(filepath.Join(s.dir, name))
		return "", fmt.Errorf("storage: writing file %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: closing file %s: %w", name, err)
	}

	return name, nil
}

// Remove deletes a stored file by the name Save returned.
//
// The filepath.Base guard means a name can only ever address a direct child
// of the upload directory, whatever the caller passes in.
func (s *Store) Remove(name string) error {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("storage: invalid file name %q", name)
	}
	if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("storage: removing file %s: %w", name, err)
	}
	return nil
}

// HTTPFileSystem exposes the upload directory as an http.FileSystem for the
// static /uploads route.
func (s *Store) HTTPFileSystem() http.FileSystem {
	return afero.NewHttpFs(afero.NewBasePathFs(s.fs, s.dir))
}
