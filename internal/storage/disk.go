package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps uploads in a flat directory on the local file system.
type DiskStore struct {
	dir         string
	constraints Constraints
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string, constraints Constraints) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir, constraints: constraints}, nil
}

func (s *DiskStore) Save(_ context.Context, ownerID, filename string, content []byte) (string, error) {
	ext, err := s.constraints.Validate(filename, int64(len(content)))
	if err != nil {
		return "", err
	}

	name := storedName(ownerID, ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload %s: %w", name, err)
	}

	return name, nil
}

func (s *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	// Base strips any path components a caller might smuggle in.
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("image %s: %w", name, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open upload %s: %w", name, err)
	}
	return f, nil
}

func (s *DiskStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete upload %s: %w", name, err)
	}
	return nil
}

func (s *DiskStore) List(_ context.Context) ([]StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat upload %s: %w", e.Name(), err)
		}
		files = append(files, StoredFile{Name: e.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}
