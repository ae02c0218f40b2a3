package world

import (
	"context"
	"errors"

	"github.com/annel0/isomap/internal/vec"
)

var (
	// ErrChunkNotFound возвращается хранилищем, если чанк никогда не сохранялся
	ErrChunkNotFound = errors.New("chunk not found in storage")
	// ErrOutOfBounds возвращается при обращении к координате вне мира
	ErrOutOfBounds = errors.New("coordinate out of world bounds")
	// ErrCorruptChunk возвращается хранилищем, если сохранённые данные чанка испорчены
	ErrCorruptChunk = errors.New("corrupt chunk payload")
)

// ChunkStorage описывает постоянное хранилище чанков. Контракт: чанк либо есть
// (LoadChunk возвращает полностью заполненный чанк), либо отсутствует
// (ErrChunkNotFound). Повреждённые данные (ErrCorruptChunk) карта заменяет
// генерацией; остальные ошибки загрузки возвращаются вызывающему.
type ChunkStorage interface {
	LoadChunk(ctx context.Context, coords vec.Vec2) (*Chunk, error)
	// SaveChunk сохраняет чанк и сбрасывает его счётчик изменений
	SaveChunk(ctx context.Context, chunk *Chunk) error
}

// ChangeListener получает уведомления об изменениях карты.
// Вызывается синхронно из операции, изменившей карту.
type ChangeListener interface {
	// BlockChanged вызывается при изменении одной ячейки
	BlockChanged(coord vec.Vec3)
	// ChunkLoaded вызывается, когда чанк стал резидентным или был целиком перезаполнен
	ChunkLoaded(chunk *Chunk)
	// ChunkUnloaded вызывается после удаления чанка из памяти
	ChunkUnloaded(coords vec.Vec2)
}
