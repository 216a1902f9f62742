package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists uploaded document files on disk under a single
// directory. Filenames are generated by the caller and must not contain
// path separators.
type FileStore struct {
	dir string
}

// NewFileStore creates the upload directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Store writes a document file.
func (fs *FileStore) Store(filename string, content []byte) error {
	path, err := fs.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to store file %s: %w", filename, err)
	}
	return nil
}

// Load reads a stored document file.
func (fs *FileStore) Load(filename string) ([]byte, error) {
	path, err := fs.resolve(filename)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file %s: %w", filename, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return content, nil
}

// Delete removes a stored document file. Missing files are not an error.
func (fs *FileStore) Delete(filename string) error {
	path, err := fs.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filename, err)
	}
	return nil
}

func (fs *FileStore) resolve(filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(fs.dir, filename), nil
}
