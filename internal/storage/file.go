package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

const chunkFileExt = ".isoc"

// FileStorage хранит каждый чанк отдельным файлом <base>/<worldID>/chunk_<x>_<y>.isoc
type FileStorage struct {
	basePath string
	codec    *Codec
	mu       sync.RWMutex
	closed   bool
}

// NewFileStorage создаёт файловое хранилище мира
func NewFileStorage(basePath string, worldID uuid.UUID, codec *Codec) (*FileStorage, error) {
	dir := filepath.Join(basePath, worldID.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	logging.GetStorageLogger().Info("File storage opened at %s", dir)
	return &FileStorage{basePath: dir, codec: codec}, nil
}

func (s *FileStorage) chunkFilename(coords vec.Vec2) string {
	return filepath.Join(s.basePath, fmt.Sprintf("chunk_%d_%d%s", coords.X, coords.Y, chunkFileExt))
}

// LoadChunk читает и декодирует файл чанка
func (s *FileStorage) LoadChunk(ctx context.Context, coords vec.Vec2) (*world.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrNotReady
	}

	data, err := os.ReadFile(s.chunkFilename(coords))
	if errors.Is(err, os.ErrNotExist) {
		return nil, world.ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла чанка %v: %w", coords, err)
	}
	return decodeAt(s.codec, data, coords)
}

// SaveChunk записывает чанк через временный файл, чтобы сбой не оставил
// наполовину записанную запись
func (s *FileStorage) SaveChunk(ctx context.Context, chunk *world.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotReady
	}

	data, err := s.codec.Encode(chunk)
	if err != nil {
		return err
	}

	filename := s.chunkFilename(chunk.Coords)
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи чанка %v: %w", chunk.Coords, err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ошибка записи чанка %v: %w", chunk.Coords, err)
	}

	chunk.ClearChanges()
	return nil
}

// DeleteChunk удаляет файл чанка
func (s *FileStorage) DeleteChunk(coords vec.Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotReady
	}

	err := os.Remove(s.chunkFilename(coords))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ListChunks возвращает координаты сохранённых чанков
func (s *FileStorage) ListChunks() ([]vec.Vec2, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrNotReady
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}

	var chunks []vec.Vec2
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != chunkFileExt {
			continue
		}
		var coords vec.Vec2
		if _, err := fmt.Sscanf(entry.Name(), "chunk_%d_%d"+chunkFileExt, &coords.X, &coords.Y); err != nil {
			continue
		}
		chunks = append(chunks, coords)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Y != chunks[j].Y {
			return chunks[i].Y < chunks[j].Y
		}
		return chunks[i].X < chunks[j].X
	})
	return chunks, nil
}

// Size возвращает суммарный размер файлов чанков в байтах
func (s *FileStorage) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != chunkFileExt {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// Close закрывает хранилище
func (s *FileStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.codec.Close()
	return nil
}
