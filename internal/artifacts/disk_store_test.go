package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

func TestDiskStoreSaveAndRead(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	sessionID := uuid.New()
	data := []byte("fake png bytes")

	path, err := store.Save(KindSketch, sessionID, "png", data)
	require.NoError(t, err)
	assert.Equal(t, "sketches", filepath.Base(filepath.Dir(path)))
	assert.Equal(t, ".png", filepath.Ext(path))

	read, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, data, read)
}

func TestDiskStoreKindDirectories(t *testing.T) {
	dir := t.TempDir()
	_, err := NewDiskStore(dir)
	require.NoError(t, err)

	for _, sub := range []string{"sketches", "images", "models"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDiskStoreRemoveIdempotent(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save(KindModel, uuid.New(), ".glb", []byte("glTF"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(path))
	require.NoError(t, store.Remove(path))

	_, err = store.Read(path)
	require.Error(t, err)
	assert.True(t, zerrors.IsNotFound(err))
}

func TestDiskStoreRejectsOutsidePaths(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	err = store.Remove("/etc/passwd")
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))

	_, err = store.Read("../elsewhere.bin")
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))
}

func TestDiskStoreUnknownKind(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(Kind("video"), uuid.New(), ".mp4", []byte("x"))
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))
}
