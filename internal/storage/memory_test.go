package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
	"github.com/annel0/isomap/internal/world/block"
)

func TestMemoryStorageSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(world.WorldID("memory"), newTestCodec(t, true))

	_, err := storage.LoadChunk(ctx, vec.Vec2{X: 4, Y: 4})
	assert.ErrorIs(t, err, world.ErrChunkNotFound)

	chunk := testChunk(vec.Vec2{X: 4, Y: 4})
	require.True(t, chunk.HasChanges())
	require.NoError(t, storage.SaveChunk(ctx, chunk))
	assert.False(t, chunk.HasChanges(), "Сохранение должно сбрасывать счётчик изменений")
	assert.Equal(t, 1, storage.Len())

	loaded, err := storage.LoadChunk(ctx, vec.Vec2{X: 4, Y: 4})
	require.NoError(t, err)
	assert.True(t, loaded.Equal(chunk))
}

func TestMemoryStorageCorruptChunkRegenerates(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(world.WorldID("corrupt"), newTestCodec(t, true))
	storage.PutRaw(vec.Vec2{}, []byte("definitely not a chunk"))

	gen := world.FlatGenerator{Height: 2, Surface: block.GrassID, Filler: block.DirtID}
	m := world.NewMap(world.Options{Name: "corrupt", Generator: gen, Storage: storage})

	chunk, err := m.GetChunk(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, block.GrassID, chunk.GetBlock(0, 0, 2).ID)

	// Испорченная запись перезаписывается при сбросе
	require.NoError(t, m.Flush(ctx))
	_, err = storage.LoadChunk(ctx, vec.Vec2{})
	assert.NoError(t, err)
}

func TestMemoryStorageClosed(t *testing.T) {
	storage := NewMemoryStorage(world.WorldID("closed"), newTestCodec(t, false))
	require.NoError(t, storage.Close())
	require.NoError(t, storage.Close())

	_, err := storage.LoadChunk(context.Background(), vec.Vec2{})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, storage.SaveChunk(context.Background(), testChunk(vec.Vec2{})), ErrNotReady)
}

func TestStorageKeysAreNamespacedByWorld(t *testing.T) {
	a := ChunkKey(world.WorldID("a"), vec.Vec2{X: -1, Y: 2})
	b := ChunkKey(world.WorldID("b"), vec.Vec2{X: -1, Y: 2})
	assert.NotEqual(t, a, b)
	assert.Equal(t, "world:"+world.WorldID("a").String()+":chunk:-1:2", a)
}
