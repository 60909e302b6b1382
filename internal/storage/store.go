// Package storage persists uploaded complaint images. Both backends enforce
// the same upload constraints and naming scheme; complaints reference images
// by the stored name only.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/digicom/complaints/internal/models"
	"github.com/google/uuid"
)

// StoredFile is a listing entry: the stored name and when the file was
// last written.
type StoredFile struct {
	Name    string
	ModTime time.Time
}

// FileStore is the boundary the complaint service talks to.
type FileStore interface {
	// Save validates content against the upload constraints and stores it,
	// returning the generated stored name.
	Save(ctx context.Context, ownerID, filename string, content []byte) (string, error)
	// Open streams a stored file by name.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes a stored file. Deleting a missing file is not an error.
	Delete(ctx context.Context, name string) error
	// List returns every stored file.
	List(ctx context.Context) ([]StoredFile, error)
}

// Constraints gate what may be uploaded.
type Constraints struct {
	AllowedExtensions []string
	MaxFileSize       int64
}

// Validate checks the original filename and size, returning the normalized
// extension. Violations map to models.ErrInvalidUpload.
func (c Constraints) Validate(filename string, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no file extension", models.ErrInvalidUpload, filename)
	}

	allowed := false
	for _, a := range c.AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("%w: invalid file type %s, allowed: %s",
			models.ErrInvalidUpload, filename, strings.Join(c.AllowedExtensions, ", "))
	}

	if size > c.MaxFileSize {
		return "", fmt.Errorf("%w: file %s exceeds maximum size of %d bytes",
			models.ErrInvalidUpload, filename, c.MaxFileSize)
	}

	return ext, nil
}

// storedName builds a collision-free file name:
// <ownerID>_<YYYYMMDD_HHMMSS>_<8 hex chars><ext>
func storedName(ownerID, ext string) string {
	ts := time.Now().UTC().Format("20060102_150405")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s%s", ownerID, ts, suffix, ext)
}
