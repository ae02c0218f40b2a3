package render

import (
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world/block"
)

// AOFlags — упакованные флаги затенения: байт 0 — верхняя грань,
// байт 1 — левая, байт 2 — правая.
type AOFlags uint32

// Верхняя грань: соседи на уровне z+1. N — это -y, E — это +x.
const (
	AOTopN AOFlags = 1 << iota
	AOTopNE
	AOTopE
	AOTopSE
	AOTopS
	AOTopSW
	AOTopW
	AOTopNW
)

// Левая грань смотрит на -x, правая на +x; "фронт" — сосед по +y.
const (
	AOLeftLateral AOFlags = 1 << (8 + iota)
	AOLeftDiagonal
	AOLeftFront
)

const (
	AORightLateral AOFlags = 1 << (16 + iota)
	AORightDiagonal
	AORightFront
)

// Top возвращает байт верхней грани
func (f AOFlags) Top() uint8 { return uint8(f) }

// Left возвращает байт левой грани
func (f AOFlags) Left() uint8 { return uint8(f >> 8) }

// Right возвращает байт правой грани
func (f AOFlags) Right() uint8 { return uint8(f >> 16) }

// Has проверяет, что установлены все биты mask
func (f AOFlags) Has(mask AOFlags) bool { return f&mask == mask }

// BlockSource отдаёт блоки по мировым координатам (world.Map)
type BlockSource interface {
	GetBlock(coord vec.Vec3) block.Block
}

var topNeighbours = [8]struct {
	dx, dy int
	flag   AOFlags
}{
	{0, -1, AOTopN},
	{1, -1, AOTopNE},
	{1, 0, AOTopE},
	{1, 1, AOTopSE},
	{0, 1, AOTopS},
	{-1, 1, AOTopSW},
	{-1, 0, AOTopW},
	{-1, -1, AOTopNW},
}

// Угол сбрасывается, если занят один из смежных кардинальных соседей
var cornerRules = [...]struct {
	corner, a, b AOFlags
}{
	{AOTopNE, AOTopN, AOTopE},
	{AOTopSE, AOTopS, AOTopE},
	{AOTopSW, AOTopS, AOTopW},
	{AOTopNW, AOTopN, AOTopW},
	{AOLeftDiagonal, AOLeftLateral, AOLeftFront},
	{AORightDiagonal, AORightLateral, AORightFront},
}

// AOCalculator вычисляет флаги затенения по окружающим блокам
type AOCalculator struct {
	src BlockSource
}

// NewAOCalculator создаёт калькулятор поверх источника блоков
func NewAOCalculator(src BlockSource) *AOCalculator {
	return &AOCalculator{src: src}
}

func (a *AOCalculator) occludes(x, y, z int) bool {
	return a.src.GetBlock(vec.Vec3{X: x, Y: y, Z: z}).Occludes()
}

// Compute возвращает флаги для одной координаты. Блоки без видимых
// граней не затеняются и получают 0.
func (a *AOCalculator) Compute(c vec.Vec3) AOFlags {
	if !a.src.GetBlock(c).HasRenderableSides() {
		return 0
	}

	var f AOFlags
	for _, n := range topNeighbours {
		if a.occludes(c.X+n.dx, c.Y+n.dy, c.Z+1) {
			f |= n.flag
		}
	}

	front := a.occludes(c.X, c.Y+1, c.Z)
	if front {
		f |= AOLeftFront | AORightFront
	}
	if a.occludes(c.X-1, c.Y, c.Z) {
		f |= AOLeftLateral
	}
	if a.occludes(c.X-1, c.Y+1, c.Z) {
		f |= AOLeftDiagonal
	}
	if a.occludes(c.X+1, c.Y, c.Z) {
		f |= AORightLateral
	}
	if a.occludes(c.X+1, c.Y+1, c.Z) {
		f |= AORightDiagonal
	}

	for _, r := range cornerRules {
		if f&(r.a|r.b) != 0 {
			f &^= r.corner
		}
	}
	return f
}

// CalculateChunk пересчитывает флаги всех ячеек чанка
func (a *AOCalculator) CalculateChunk(rc *RenderChunk) {
	for i := range rc.cells {
		cell := &rc.cells[i]
		cell.AO = a.Compute(cell.Coord)
	}
	rc.aoDirty = false
}
