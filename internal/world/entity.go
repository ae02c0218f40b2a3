package world

import (
	"math"

	"github.com/annel0/isomap/internal/vec"
)

// Entity представляет сущность мира для целей сортировки при рендере.
// Игровое поведение сущностей живёт вне ядра.
type Entity struct {
	ID       uint64        // Уникальный ID сущности
	Name     string        // Имя (для отладки)
	Position vec.Vec3Float // Точка опоры (нижний центр) в мировых координатах
	Height   float64       // Высота в блоках; высокие сущности перекрывают ячейки
	Hidden   bool          // Скрытые сущности не рисуются
}

// NewEntity создаёт сущность высотой в один блок
func NewEntity(id uint64, name string, position vec.Vec3Float) *Entity {
	return &Entity{
		ID:       id,
		Name:     name,
		Position: position,
		Height:   1,
	}
}

// FloorCoord возвращает координату ячейки, в которой стоит сущность
func (e *Entity) FloorCoord() vec.Vec3 {
	return PointToCoord(e.Position)
}

// Levels возвращает количество уровней (ячеек по вертикали), которые занимает сущность
func (e *Entity) Levels() int {
	n := int(math.Ceil(e.Position.Z+e.Height)) - int(math.Floor(e.Position.Z))
	if n < 1 {
		return 1
	}
	return n
}
