package block

// ID представляет идентификатор типа блока (0 — воздух)
type ID uint8

// Block представляет одну ячейку сетки мира
type Block struct {
	ID    ID    // Тип блока
	Value uint8 // Подтип/ориентация
}

// New создаёт блок указанного типа без подтипа
func New(id ID) Block {
	return Block{ID: id}
}

// IsAir возвращает true для пустой ячейки
func (b Block) IsAir() bool {
	return b.ID == AirID
}

// Properties возвращает свойства типа блока.
// Незарегистрированный ID считается непрозрачным кубом.
func (b Block) Properties() Properties {
	if props, ok := Get(b.ID); ok {
		return props
	}
	return Properties{Name: "unknown", Obstacle: true, HasSides: true}
}

// IsObstacle сообщает, блокирует ли ячейка движение
func (b Block) IsObstacle() bool {
	return !b.IsAir() && b.Properties().Obstacle
}

// IsTransparent сообщает, видно ли сквозь ячейку
func (b Block) IsTransparent() bool {
	return b.IsAir() || b.Properties().Transparent
}

// HasRenderableSides сообщает, рисуются ли у блока грани
func (b Block) HasRenderableSides() bool {
	return !b.IsAir() && b.Properties().HasSides
}

// Occludes сообщает, затеняет ли блок соседние грани (AO)
func (b Block) Occludes() bool {
	if b.IsAir() {
		return false
	}
	props := b.Properties()
	return !props.Transparent && props.HasSides
}
