package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
	"github.com/annel0/isomap/internal/world/block"
)

func setupTestStorage(t *testing.T, name string) *BadgerStorage {
	t.Helper()

	storage, err := NewBadgerStorage(filepath.Join(t.TempDir(), "chunks"), world.WorldID(name), newTestCodec(t, true))
	if err != nil {
		t.Fatalf("Не удалось создать хранилище: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestSaveAndLoadChunk(t *testing.T) {
	ctx := context.Background()
	storage := setupTestStorage(t, "badger")

	chunk := testChunk(vec.Vec2{X: 10, Y: -20})
	require.NoError(t, storage.SaveChunk(ctx, chunk))
	assert.False(t, chunk.HasChanges())

	loaded, err := storage.LoadChunk(ctx, vec.Vec2{X: 10, Y: -20})
	require.NoError(t, err)
	assert.True(t, loaded.Equal(chunk))

	_, err = storage.LoadChunk(ctx, vec.Vec2{X: 11, Y: -20})
	assert.ErrorIs(t, err, world.ErrChunkNotFound)
}

func TestBadgerListAndDelete(t *testing.T) {
	ctx := context.Background()
	storage := setupTestStorage(t, "list")

	for _, c := range []vec.Vec2{{X: 0, Y: 0}, {X: -1, Y: 3}, {X: 7, Y: -7}} {
		require.NoError(t, storage.SaveChunk(ctx, testChunk(c)))
	}

	keys, err := storage.ListChunks(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []vec.Vec2{{X: 0, Y: 0}, {X: -1, Y: 3}, {X: 7, Y: -7}}, keys)

	require.NoError(t, storage.DeleteChunk(ctx, vec.Vec2{X: -1, Y: 3}))
	keys, err = storage.ListChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestBadgerClosed(t *testing.T) {
	storage := setupTestStorage(t, "closed")
	require.NoError(t, storage.Close())

	_, err := storage.LoadChunk(context.Background(), vec.Vec2{})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, storage.SaveChunk(context.Background(), testChunk(vec.Vec2{})), ErrNotReady)
}

func TestBadgerPagingIdempotence(t *testing.T) {
	ctx := context.Background()
	storage := setupTestStorage(t, "paging")
	m := world.NewMap(world.Options{
		Name:       "paging",
		MemoryArea: 1,
		Generator:  world.NewPerlinGenerator(99),
		Storage:    storage,
	})

	require.NoError(t, m.UpdateReference(ctx, vec.Vec2{}))
	edited := vec.Vec3{X: -5, Y: 9, Z: world.BlocksZ - 2}
	require.NoError(t, m.SetBlock(ctx, edited, block.Block{ID: block.GlassID, Value: 3}))

	before := make(map[vec.Vec2][]block.Block)
	for _, key := range m.ResidentChunks() {
		before[key] = m.LoadedChunk(key.X, key.Y).Snapshot()
	}

	// Выгрузка всех чанков и повторная загрузка
	require.NoError(t, m.UpdateReference(ctx, vec.Vec2{X: 100, Y: 100}))
	require.NoError(t, m.UpdateReference(ctx, vec.Vec2{}))

	for key, cells := range before {
		chunk := m.LoadedChunk(key.X, key.Y)
		require.NotNil(t, chunk)
		assert.Equal(t, cells, chunk.Snapshot(), "chunk %v", key)
	}
	assert.Equal(t, block.Block{ID: block.GlassID, Value: 3}, m.GetBlock(edited))

	// Сохранён только изменённый чанк
	keys, err := storage.ListChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []vec.Vec2{{X: -1, Y: 0}}, keys)
}

func TestOpenFromConfig(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := Open(ctx, configFor("badger", dir), world.WorldID("open"))
	require.NoError(t, err)
	_, ok := backend.(*BadgerStorage)
	assert.True(t, ok)
	require.NoError(t, backend.Close())

	backend, err = Open(ctx, configFor("memory", ""), world.WorldID("open"))
	require.NoError(t, err)
	_, ok = backend.(*MemoryStorage)
	assert.True(t, ok)
	require.NoError(t, backend.Close())

	backend, err = Open(ctx, configFor("file", dir), world.WorldID("open"))
	require.NoError(t, err)
	_, ok = backend.(*FileStorage)
	assert.True(t, ok)
	require.NoError(t, backend.Close())

	_, err = Open(ctx, configFor("sqlite", ""), world.WorldID("open"))
	assert.Error(t, err)
}
