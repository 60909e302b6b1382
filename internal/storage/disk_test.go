package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/digicom/complaints/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConstraints() Constraints {
	return Constraints{
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"},
		MaxFileSize:       5 * 1024 * 1024,
	}
}

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), testConstraints())
	require.NoError(t, err)
	return store
}

func TestDiskStore_SaveAndOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	name, err := store.Save(ctx, "user123", "pothole.jpg", []byte("fake image bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "user123_"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	rc, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake image bytes"), content)
}

func TestDiskStore_Save_ExtensionNotAllowed(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "user123", "malware.exe", []byte("x"))

	assert.ErrorIs(t, err, models.ErrInvalidUpload)
}

func TestDiskStore_Save_NoExtension(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "user123", "noext", []byte("x"))

	assert.ErrorIs(t, err, models.ErrInvalidUpload)
}

func TestDiskStore_Save_TooLarge(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), Constraints{
		AllowedExtensions: []string{".png"},
		MaxFileSize:       8,
	})
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "user123", "big.png", []byte("more than eight bytes"))

	assert.ErrorIs(t, err, models.ErrInvalidUpload)
}

func TestDiskStore_Save_UppercaseExtensionNormalized(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save(context.Background(), "user123", "PHOTO.PNG", []byte("x"))

	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
}

func TestDiskStore_Open_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open(context.Background(), "nope.jpg")

	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDiskStore_Delete_MissingIsNoError(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.Delete(context.Background(), "never-existed.jpg"))
}

func TestDiskStore_DeleteRemovesFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	name, err := store.Save(ctx, "user123", "a.png", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, name))

	_, err = store.Open(ctx, name)
	assert.Error(t, err)
}

func TestDiskStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	a, err := store.Save(ctx, "u1", "a.png", []byte("x"))
	require.NoError(t, err)
	b, err := store.Save(ctx, "u2", "b.jpg", []byte("y"))
	require.NoError(t, err)

	files, err = store.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
		assert.WithinDuration(t, time.Now(), f.ModTime, time.Minute)
	}
	assert.ElementsMatch(t, []string{a, b}, names)
}
