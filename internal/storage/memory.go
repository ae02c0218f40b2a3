package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// MemoryStorage хранит закодированные чанки в памяти.
// Используется в тестах и когда постоянное хранилище не нужно.
// ВНИМАНИЕ: данные теряются при перезапуске!
type MemoryStorage struct {
	mu      sync.RWMutex
	data    map[string][]byte
	worldID uuid.UUID
	codec   *Codec
	closed  bool
}

// NewMemoryStorage создаёт хранилище чанков в памяти
func NewMemoryStorage(worldID uuid.UUID, codec *Codec) *MemoryStorage {
	return &MemoryStorage{
		data:    make(map[string][]byte),
		worldID: worldID,
		codec:   codec,
	}
}

// LoadChunk декодирует сохранённый чанк
func (s *MemoryStorage) LoadChunk(ctx context.Context, coords vec.Vec2) (*world.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrNotReady
	}
	data, ok := s.data[ChunkKey(s.worldID, coords)]
	if !ok {
		return nil, world.ErrChunkNotFound
	}
	return decodeAt(s.codec, data, coords)
}

// SaveChunk кодирует и сохраняет чанк, сбрасывая его счётчик изменений
func (s *MemoryStorage) SaveChunk(ctx context.Context, chunk *world.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotReady
	}

	data, err := s.codec.Encode(chunk)
	if err != nil {
		return err
	}
	s.data[ChunkKey(s.worldID, chunk.Coords)] = data
	chunk.ClearChanges()
	return nil
}

// Raw возвращает закодированную запись чанка
func (s *MemoryStorage) Raw(coords vec.Vec2) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[ChunkKey(s.worldID, coords)]
	return append([]byte(nil), data...), ok
}

// PutRaw записывает произвольные байты как запись чанка
func (s *MemoryStorage) PutRaw(coords vec.Vec2, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ChunkKey(s.worldID, coords)] = append([]byte(nil), data...)
}

// Len возвращает количество сохранённых чанков
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close закрывает хранилище
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.codec.Close()
	return nil
}

// decodeAt декодирует запись и проверяет, что она принадлежит ожидаемому чанку
func decodeAt(codec *Codec, data []byte, coords vec.Vec2) (*world.Chunk, error) {
	chunk, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if chunk.Coords != coords {
		return nil, fmt.Errorf("%w: record for (%d,%d) stored under (%d,%d)", ErrCorruptChunk,
			chunk.Coords.X, chunk.Coords.Y, coords.X, coords.Y)
	}
	return chunk, nil
}
