package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

var tracer = otel.Tracer("github.com/annel0/isomap/internal/storage")

// BadgerStorage хранит чанки в BadgerDB
type BadgerStorage struct {
	db      *badger.DB
	dbPath  string
	worldID uuid.UUID
	codec   *Codec
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerStorage открывает (или создаёт) базу чанков по пути dbPath
func NewBadgerStorage(dbPath string, worldID uuid.UUID, codec *Codec) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logging.GetStorageLogger().Info("BadgerDB opened at %s for world %s", dbPath, worldID)

	return &BadgerStorage{
		db:      db,
		dbPath:  dbPath,
		worldID: worldID,
		codec:   codec,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (bs *BadgerStorage) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}

	bs.isReady = false
	bs.codec.Close()
	return bs.db.Close()
}

// SaveChunk сохраняет полное содержимое чанка
func (bs *BadgerStorage) SaveChunk(ctx context.Context, chunk *world.Chunk) error {
	_, span := tracer.Start(ctx, "badger.save_chunk", trace.WithAttributes(
		attribute.Int("chunk.x", chunk.Coords.X),
		attribute.Int("chunk.y", chunk.Coords.Y),
	))
	defer span.End()

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrNotReady
	}

	data, err := bs.codec.Encode(chunk)
	if err != nil {
		return fmt.Errorf("ошибка сериализации чанка: %w", err)
	}
	span.SetAttributes(attribute.Int("chunk.bytes", len(data)))

	key := ChunkKey(bs.worldID, chunk.Coords)
	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	// Очищаем счётчик изменений в чанке
	chunk.ClearChanges()
	return nil
}

// LoadChunk загружает чанк; world.ErrChunkNotFound если он не сохранялся
func (bs *BadgerStorage) LoadChunk(ctx context.Context, coords vec.Vec2) (*world.Chunk, error) {
	_, span := tracer.Start(ctx, "badger.load_chunk", trace.WithAttributes(
		attribute.Int("chunk.x", coords.X),
		attribute.Int("chunk.y", coords.Y),
	))
	defer span.End()

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrNotReady
	}

	key := ChunkKey(bs.worldID, coords)
	var data []byte

	// Читаем данные из BadgerDB
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, world.ErrChunkNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	return decodeAt(bs.codec, data, coords)
}

// DeleteChunk удаляет сохранённый чанк
func (bs *BadgerStorage) DeleteChunk(ctx context.Context, coords vec.Vec2) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrNotReady
	}

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(ChunkKey(bs.worldID, coords)))
	})
}

// ListChunks возвращает координаты всех сохранённых чанков мира
func (bs *BadgerStorage) ListChunks(ctx context.Context) ([]vec.Vec2, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrNotReady
	}

	prefix := chunkPrefix(bs.worldID)
	var out []vec.Vec2
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var x, y int
			rest := strings.TrimPrefix(string(it.Item().Key()), prefix)
			if _, err := fmt.Sscanf(rest, "%d:%d", &x, &y); err != nil {
				logging.GetStorageLogger().Warn("Ошибка парсинга ключа '%s': %v", it.Item().Key(), err)
				continue
			}
			out = append(out, vec.Vec2{X: x, Y: y})
		}
		return nil
	})
	return out, err
}
