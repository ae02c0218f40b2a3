package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

func setupFileStorage(t *testing.T, name string) (*FileStorage, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := NewFileStorage(dir, world.WorldID(name), newTestCodec(t, false))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage, filepath.Join(dir, world.WorldID(name).String())
}

func TestFileStorageSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	storage, dir := setupFileStorage(t, "file")

	chunk := testChunk(vec.Vec2{X: -3, Y: 4})
	require.NoError(t, storage.SaveChunk(ctx, chunk))
	assert.False(t, chunk.HasChanges())
	assert.FileExists(t, filepath.Join(dir, "chunk_-3_4.isoc"))
	assert.NoFileExists(t, filepath.Join(dir, "chunk_-3_4.isoc.tmp"))

	loaded, err := storage.LoadChunk(ctx, vec.Vec2{X: -3, Y: 4})
	require.NoError(t, err)
	assert.True(t, loaded.Equal(chunk))

	_, err = storage.LoadChunk(ctx, vec.Vec2{X: 0, Y: 0})
	assert.ErrorIs(t, err, world.ErrChunkNotFound)

	size, err := storage.Size()
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}

func TestFileStorageListAndDelete(t *testing.T) {
	ctx := context.Background()
	storage, _ := setupFileStorage(t, "list")

	for _, c := range []vec.Vec2{{X: 2, Y: 1}, {X: -1, Y: -5}, {X: 0, Y: 1}} {
		require.NoError(t, storage.SaveChunk(ctx, testChunk(c)))
	}

	keys, err := storage.ListChunks()
	require.NoError(t, err)
	assert.Equal(t, []vec.Vec2{{X: -1, Y: -5}, {X: 0, Y: 1}, {X: 2, Y: 1}}, keys)

	require.NoError(t, storage.DeleteChunk(vec.Vec2{X: 0, Y: 1}))
	require.NoError(t, storage.DeleteChunk(vec.Vec2{X: 9, Y: 9}))
	keys, err = storage.ListChunks()
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestFileStorageCorruptFile(t *testing.T) {
	ctx := context.Background()
	storage, dir := setupFileStorage(t, "corrupt")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunk_1_1.isoc"), []byte("garbage"), 0644))
	_, err := storage.LoadChunk(ctx, vec.Vec2{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrCorruptChunk)

	// Файл другого чанка под чужим именем тоже считается повреждением
	require.NoError(t, storage.SaveChunk(ctx, testChunk(vec.Vec2{X: 5, Y: 5})))
	require.NoError(t, os.Rename(filepath.Join(dir, "chunk_5_5.isoc"), filepath.Join(dir, "chunk_6_6.isoc")))
	_, err = storage.LoadChunk(ctx, vec.Vec2{X: 6, Y: 6})
	assert.ErrorIs(t, err, ErrCorruptChunk)
}

func TestFileStorageClosed(t *testing.T) {
	storage, _ := setupFileStorage(t, "closed")
	require.NoError(t, storage.Close())
	require.NoError(t, storage.Close())

	_, err := storage.LoadChunk(context.Background(), vec.Vec2{})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, storage.SaveChunk(context.Background(), testChunk(vec.Vec2{})), ErrNotReady)
}
