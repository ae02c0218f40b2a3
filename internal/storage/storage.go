package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/isomap/internal/config"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// ErrNotReady возвращается при обращении к закрытому хранилищу
var ErrNotReady = errors.New("storage is not ready")

// Backend описывает постоянное хранилище чанков с управляемым временем жизни
type Backend interface {
	world.ChunkStorage
	io.Closer
}

// ChunkKey возвращает ключ записи чанка
func ChunkKey(worldID uuid.UUID, coords vec.Vec2) string {
	return fmt.Sprintf("%s%d:%d", chunkPrefix(worldID), coords.X, coords.Y)
}

func chunkPrefix(worldID uuid.UUID) string {
	return fmt.Sprintf("world:%s:chunk:", worldID)
}

// Open создаёт хранилище, выбранное в конфигурации
func Open(ctx context.Context, cfg config.StorageConfig, worldID uuid.UUID) (Backend, error) {
	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var backend Backend
	switch cfg.Backend {
	case "", "memory":
		backend = NewMemoryStorage(worldID, codec)
	case "file":
		backend, err = NewFileStorage(filepath.Join(cfg.Path, "chunks"), worldID, codec)
	case "badger":
		backend, err = NewBadgerStorage(filepath.Join(cfg.Path, "chunks"), worldID, codec)
	case "redis":
		backend, err = NewRedisStorage(ctx, RedisOptions{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		}, worldID, codec)
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		codec.Close()
		return nil, err
	}
	return backend, nil
}
