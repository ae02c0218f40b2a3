package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// RedisOptions содержит настройки подключения к Redis
type RedisOptions struct {
	Addr     string        // Адрес Redis сервера
	Password string        // Пароль (пустой если не требуется)
	DB       int           // Номер базы данных
	TTL      time.Duration // Время жизни записей (0 — без ограничения)
}

// RedisStorage хранит чанки в Redis; удобно, когда несколько процессов
// смотрят на один мир
type RedisStorage struct {
	client  *redis.Client
	worldID uuid.UUID
	codec   *Codec
	ttl     time.Duration
}

// NewRedisStorage подключается к Redis и проверяет соединение
func NewRedisStorage(ctx context.Context, opts RedisOptions, worldID uuid.UUID, codec *Codec) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// Проверяем подключение
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Connected to Redis at %s", opts.Addr)
	return &RedisStorage{
		client:  client,
		worldID: worldID,
		codec:   codec,
		ttl:     opts.TTL,
	}, nil
}

// LoadChunk загружает чанк; world.ErrChunkNotFound если ключа нет
func (rs *RedisStorage) LoadChunk(ctx context.Context, coords vec.Vec2) (*world.Chunk, error) {
	ctx, span := tracer.Start(ctx, "redis.load_chunk", trace.WithAttributes(
		attribute.Int("chunk.x", coords.X),
		attribute.Int("chunk.y", coords.Y),
	))
	defer span.End()

	data, err := rs.client.Get(ctx, ChunkKey(rs.worldID, coords)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, world.ErrChunkNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return decodeAt(rs.codec, data, coords)
}

// SaveChunk сохраняет чанк и сбрасывает его счётчик изменений
func (rs *RedisStorage) SaveChunk(ctx context.Context, chunk *world.Chunk) error {
	ctx, span := tracer.Start(ctx, "redis.save_chunk", trace.WithAttributes(
		attribute.Int("chunk.x", chunk.Coords.X),
		attribute.Int("chunk.y", chunk.Coords.Y),
	))
	defer span.End()

	data, err := rs.codec.Encode(chunk)
	if err != nil {
		return err
	}
	if err := rs.client.Set(ctx, ChunkKey(rs.worldID, chunk.Coords), data, rs.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	chunk.ClearChanges()
	return nil
}

// Close закрывает соединение с Redis
func (rs *RedisStorage) Close() error {
	rs.codec.Close()
	return rs.client.Close()
}
