package block

import "sync"

// Properties описывает статические свойства типа блока.
// Таблица свойств общая для всего процесса и не меняется во время кадра.
type Properties struct {
	Name        string
	Obstacle    bool // Непроходим для сущностей
	Transparent bool // Сквозь блок видно соседей
	HasSides    bool // Рисуется как куб с тремя гранями (иначе — спрайт)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[ID]Properties)
)

// Register добавляет (или заменяет) свойства блока в регистре
func Register(id ID, props Properties) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = props
}

// Get возвращает свойства для указанного ID
func Get(id ID) (Properties, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	props, exists := registry[id]
	return props, exists
}

// IsValidID проверяет, является ли ID зарегистрированным идентификатором блока
func IsValidID(id ID) bool {
	_, exists := Get(id)
	return exists
}

// Константы ID блоков
const (
	// Базовые типы блоков
	AirID   ID = iota // 0
	StoneID           // 1
	DirtID            // 2
	GrassID           // 3
	SandID            // 4
	WaterID           // 5 - прозрачный, но с гранями
	GlassID           // 6
	WoodID            // 7

	// Спрайтовые блоки (начиная с 100)
	FlowerID ID = 100 // Цветок: без граней, прозрачный
)

func init() {
	Register(AirID, Properties{Name: "air", Transparent: true})
	Register(StoneID, Properties{Name: "stone", Obstacle: true, HasSides: true})
	Register(DirtID, Properties{Name: "dirt", Obstacle: true, HasSides: true})
	Register(GrassID, Properties{Name: "grass", Obstacle: true, HasSides: true})
	Register(SandID, Properties{Name: "sand", Obstacle: true, HasSides: true})
	Register(WaterID, Properties{Name: "water", Transparent: true, HasSides: true})
	Register(GlassID, Properties{Name: "glass", Obstacle: true, Transparent: true, HasSides: true})
	Register(WoodID, Properties{Name: "wood", Obstacle: true, HasSides: true})
	Register(FlowerID, Properties{Name: "flower", Transparent: true})
}
