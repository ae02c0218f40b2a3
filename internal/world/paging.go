package world

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/vec"
)

// Reference возвращает последнюю опорную точку подкачки
func (m *Map) Reference() vec.Vec2 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reference
}

// inMemoryArea проверяет, что чанк лежит в резидентной области опорной точки
func (m *Map) inMemoryArea(key vec.Vec2) bool {
	return key.ChebyshevDistance(m.reference) <= m.memoryArea
}

// UpdateReference переносит опорную точку: загружает все чанки в радиусе
// резидентной области и выгружает вышедшие за её пределы
func (m *Map) UpdateReference(ctx context.Context, center vec.Vec2) error {
	ctx, span := m.tracer.Start(ctx, "map.update_reference", trace.WithAttributes(
		attribute.Int("center.x", center.X),
		attribute.Int("center.y", center.Y),
	))
	defer span.End()

	m.mu.Lock()
	m.reference = center
	for key := range m.chunks {
		if m.inMemoryArea(key) {
			continue
		}
		if _, ok := m.queued[key]; ok {
			continue
		}
		m.queued[key] = struct{}{}
		m.unloadQueue = append(m.unloadQueue, key)
	}
	r := m.memoryArea
	m.mu.Unlock()

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if _, err := m.GetChunk(ctx, center.X+dx, center.Y+dy); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "load failed")
				return fmt.Errorf("update reference (%d,%d): %w", center.X, center.Y, err)
			}
		}
	}

	if _, err := m.ProcessUnloadQueue(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unload failed")
		return err
	}
	return nil
}

// ProcessUnloadQueue выгружает чанки из очереди. Изменённые чанки сначала
// сохраняются; чанк, который не удалось сохранить, остаётся в памяти и в очереди.
// Чанки, вернувшиеся в резидентную область, из очереди просто удаляются.
func (m *Map) ProcessUnloadQueue(ctx context.Context) (int, error) {
	m.mu.Lock()
	var (
		unloaded []vec.Vec2
		retry    []vec.Vec2
		errs     []error
	)
	for _, key := range m.unloadQueue {
		c := m.chunks[key]
		if c == nil || m.inMemoryArea(key) {
			delete(m.queued, key)
			continue
		}

		saved, err := m.flushChunk(ctx, c)
		if err != nil {
			errs = append(errs, err)
			retry = append(retry, key)
			continue
		}

		delete(m.chunks, key)
		delete(m.queued, key)
		unloaded = append(unloaded, key)
		m.metrics.ChunkUnloaded()
		logging.LogChunkUnload(key.X, key.Y, saved)
	}
	m.unloadQueue = retry
	m.metrics.SetResidentChunks(len(m.chunks))
	m.mu.Unlock()

	for _, l := range m.snapshotListeners() {
		for _, key := range unloaded {
			l.ChunkUnloaded(key)
		}
	}
	return len(unloaded), errors.Join(errs...)
}

// flushChunk сохраняет изменённый чанк. Возвращает true, если запись была.
// Вызывается под блокировкой записи.
func (m *Map) flushChunk(ctx context.Context, c *Chunk) (bool, error) {
	if !c.HasChanges() {
		return false, nil
	}
	if m.storage == nil {
		m.logger.Warn("Chunk (%d,%d) has unsaved changes but no storage is configured", c.Coords.X, c.Coords.Y)
		return false, nil
	}

	ctx, span := m.tracer.Start(ctx, "chunk.save", trace.WithAttributes(
		attribute.Int("chunk.x", c.Coords.X),
		attribute.Int("chunk.y", c.Coords.Y),
	))
	defer span.End()

	if err := m.storage.SaveChunk(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		m.logger.Error("Failed to save chunk (%d,%d): %v", c.Coords.X, c.Coords.Y, err)
		return false, fmt.Errorf("save chunk (%d,%d): %w", c.Coords.X, c.Coords.Y, err)
	}
	m.metrics.ChunkSaved()
	return true, nil
}

// Flush сохраняет все изменённые резидентные чанки, не выгружая их
func (m *Map) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, c := range m.chunks {
		if _, err := m.flushChunk(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispose завершает сессию: сохраняет изменённые чанки, очищает сущности
// и выгружает все чанки. Чанки, которые не удалось сохранить, всё равно
// выгружаются; ошибки возвращаются вызывающему.
func (m *Map) Dispose(ctx context.Context) error {
	err := m.Flush(ctx)

	m.mu.Lock()
	unloaded := make([]vec.Vec2, 0, len(m.chunks))
	for key := range m.chunks {
		unloaded = append(unloaded, key)
	}
	m.chunks = make(map[vec.Vec2]*Chunk)
	m.entities = make(map[uint64]*Entity)
	m.unloadQueue = nil
	m.queued = make(map[vec.Vec2]struct{})
	m.metrics.SetResidentChunks(0)
	m.mu.Unlock()

	for _, l := range m.snapshotListeners() {
		for _, key := range unloaded {
			l.ChunkUnloaded(key)
		}
	}
	m.logger.Info("Map %q disposed, %d chunks released", m.name, len(unloaded))
	return err
}
