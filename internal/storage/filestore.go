package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound means the named file does not exist in the store.
var ErrFileNotFound = errors.New("file not found")

// FileStore saves and resolves raw file bytes in a flat namespace keyed by a
// sanitized filename.
type FileStore interface {
	Save(name string, data []byte) (string, error)
	Path(name string) (string, error)
	Delete(name string) error
}

// DiskStore keeps files in a single flat directory on local disk.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// SanitizeFilename strips any path components from a client-supplied name.
func SanitizeFilename(name string) string {
	name = filepath.Base(filepath.Clean(name))
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "upload"
	}
	return name
}

func (s *DiskStore) Save(name string, data []byte) (string, error) {
	name = SanitizeFilename(name)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return name, nil
}

// Path returns the on-disk location of a stored file, or ErrFileNotFound.
func (s *DiskStore) Path(name string) (string, error) {
	path := filepath.Join(s.dir, SanitizeFilename(name))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	return path, nil
}

func (s *DiskStore) Delete(name string) error {
	path := filepath.Join(s.dir, SanitizeFilename(name))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
