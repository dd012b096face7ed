// Package storage provides local-filesystem storage for accepted uploads,
// one subdirectory per upload category under a single root.
package storage

import (
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements the pipeline's Storage interface on the local
// filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a LocalStorage rooted at basePath and ensures the
// given category directories exist
func NewLocalStorage(basePath string, dirs []string) (*LocalStorage, error) {
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0o755); err != nil {
			return nil, err
		}
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Path returns the absolute path of a file under the given category
// directory
func (s *LocalStorage) Path(dir, name string) string {
	return filepath.Join(s.basePath, dir, name)
}

// Create creates a new file and returns a WriteCloser
func (s *LocalStorage) Create(dir, name string) (io.WriteCloser, error) {
	path := s.Path(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// Open opens a file for reading and returns a ReadCloser
func (s *LocalStorage) Open(dir, name string) (io.ReadCloser, error) {
	return os.Open(s.Path(dir, name))
}

// OpenFile opens a file and returns *os.File for use with http.ServeContent
func (s *LocalStorage) OpenFile(dir, name string) (*os.File, error) {
	return os.Open(s.Path(dir, name))
}

// Delete removes a file
func (s *LocalStorage) Delete(dir, name string) error {
	return os.Remove(s.Path(dir, name))
}

// DirPath returns the absolute path of a category directory. The retention
// sweeper walks these.
func (s *LocalStorage) DirPath(dir string) string {
	return filepath.Join(s.basePath, dir)
}
