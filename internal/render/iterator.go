package render

import (
	"math"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// VisibilityIterator обходит ячейки 3×3 чанков вокруг центра: слоты по
// строкам (dy внешний, dx внутренний), внутри чанка x, затем y, затем z
// в диапазоне [startingZ, topLevel). Нерезидентные слоты пропускаются.
//
//	it := NewVisibilityIterator(rs, center, 0, world.BlocksZ)
//	for it.Next() {
//		cell := it.Cell()
//	}
type VisibilityIterator struct {
	rs        *RenderStorage
	center    vec.Vec2
	startingZ int
	topLevel  int

	slot    int
	chunk   *RenderChunk
	x, y, z int
}

// NewVisibilityIterator создаёт итератор; первый вызов Next встаёт на первую ячейку
func NewVisibilityIterator(rs *RenderStorage, center vec.Vec2, startingZ, topLevel int) *VisibilityIterator {
	it := &VisibilityIterator{rs: rs}
	it.startingZ = clampInt(startingZ, 0, world.BlocksZ-1)
	it.SetTopLevel(topLevel)
	it.Reset(center.X, center.Y)
	return it
}

// Reset перецентрирует итератор и начинает обход заново
func (it *VisibilityIterator) Reset(cx, cy int) {
	it.center = vec.Vec2{X: cx, Y: cy}
	it.slot = -1
	it.chunk = nil
}

// SetTopLevel меняет верхнюю (исключённую) границу высоты, в том числе
// во время обхода. Граница не ниже startingZ+1 и не выше BlocksZ.
func (it *VisibilityIterator) SetTopLevel(topLevel int) {
	if topLevel > world.BlocksZ {
		topLevel = world.BlocksZ
	}
	if topLevel <= it.startingZ {
		topLevel = it.startingZ + 1
	}
	it.topLevel = topLevel
}

// StartingZ возвращает нижнюю границу высоты
func (it *VisibilityIterator) StartingZ() int { return it.startingZ }

// TopLevel возвращает верхнюю границу высоты
func (it *VisibilityIterator) TopLevel() int { return it.topLevel }

// Next переходит к следующей ячейке; false — обход завершён
func (it *VisibilityIterator) Next() bool {
	for {
		if it.chunk == nil && !it.nextChunk() {
			return false
		}

		it.z++
		if it.z < it.topLevel {
			return true
		}
		it.z = it.startingZ
		it.y++
		if it.y < world.BlocksY {
			return true
		}
		it.y = 0
		it.x++
		if it.x < world.BlocksX {
			return true
		}
		it.chunk = nil
	}
}

// nextChunk встаёт перед первой ячейкой следующего резидентного слота
func (it *VisibilityIterator) nextChunk() bool {
	for it.slot < 8 {
		it.slot++
		key := vec.Vec2{X: it.center.X + it.slot%3 - 1, Y: it.center.Y + it.slot/3 - 1}
		if rc := it.rs.Chunk(key); rc != nil {
			it.chunk = rc
			it.x, it.y, it.z = 0, 0, it.startingZ-1
			return true
		}
	}
	return false
}

// Cell возвращает текущую ячейку
func (it *VisibilityIterator) Cell() *RenderCell {
	return it.chunk.Cell(it.x, it.y, it.z)
}

// View хранит закэшированный список ячеек, видимых камерой в текущем кадре
type View struct {
	Camera Camera

	rs    *RenderStorage
	it    *VisibilityIterator
	cells []*RenderCell
}

// NewView создаёт вид камеры; ячейки ниже startingZ не обходятся
func NewView(rs *RenderStorage, cam Camera, startingZ int) *View {
	checkCameraID(cam.ID())
	return &View{
		Camera: cam,
		rs:     rs,
		it:     NewVisibilityIterator(rs, cam.Center(), startingZ, world.BlocksZ),
	}
}

// Storage возвращает кэш, над которым построен вид
func (v *View) Storage() *RenderStorage { return v.rs }

// Refresh пересобирает список ячеек по текущему центру и пределу высоты камеры
func (v *View) Refresh() {
	center := v.Camera.Center()
	v.it.Reset(center.X, center.Y)
	v.it.SetTopLevel(topLevelFor(v.Camera.ZRenderLimit()))

	v.cells = v.cells[:0]
	for v.it.Next() {
		v.cells = append(v.cells, v.it.Cell())
	}
}

// Cells возвращает ячейки в порядке итератора
func (v *View) Cells() []*RenderCell {
	return v.cells
}

// Contains проверяет, что ячейка попала в вид при последнем Refresh
func (v *View) Contains(c *RenderCell) bool {
	if c == nil {
		return false
	}
	if c.Coord.Z < v.it.startingZ || c.Coord.Z >= v.it.topLevel {
		return false
	}
	return c.chunk.Coords.ChebyshevDistance(v.it.center) <= 1
}

// topLevelFor переводит предел высоты камеры в границу итератора
func topLevelFor(limit float64) int {
	if math.IsInf(limit, 1) || limit >= world.BlocksZ {
		return world.BlocksZ
	}
	return int(math.Ceil(limit))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
