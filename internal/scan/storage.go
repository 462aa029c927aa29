package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zombor/pest-tracker/internal/classify"
)

// Storage keeps the photos that scan records refer to
type Storage interface {
	// Save saves a photo and returns its file:// reference
	Save(filename string, data []byte) (string, error)

	// Get reads a photo by reference
	Get(ref string) ([]byte, error)

	// Delete removes a photo by reference
	Delete(ref string) error
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolving storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: abs,
	}, nil
}

// Save saves a file to local storage
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return classify.FileURI(path), nil
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(ref string) ([]byte, error) {
	path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from local storage
func (l *LocalStorage) Delete(ref string) error {
	path, err := l.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// resolve maps a reference to a path inside the storage directory.
// Bare names are relative to the directory; references outside it are refused.
func (l *LocalStorage) resolve(ref string) (string, error) {
	path, err := classify.LocalPath(ref)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.basePath, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(l.basePath, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("reference outside storage directory: %s", ref)
	}
	return path, nil
}
