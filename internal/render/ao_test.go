package render

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
	"github.com/annel0/isomap/internal/world/block"
)

// mapSource отдаёт блоки для калькулятора без карты
type mapSource map[vec.Vec3]block.Block

func (s mapSource) GetBlock(c vec.Vec3) block.Block { return s[c] }

func TestAOTopFaceCornerPrecedence(t *testing.T) {
	src := mapSource{
		{X: 0, Y: 0, Z: 0}:  block.New(block.StoneID),
		{X: 0, Y: -1, Z: 1}: block.New(block.StoneID), // N
		{X: 1, Y: -1, Z: 1}: block.New(block.StoneID), // NE
		{X: -1, Y: 1, Z: 1}: block.New(block.StoneID), // SW
	}
	ao := NewAOCalculator(src)

	f := ao.Compute(vec.Vec3{})
	assert.True(t, f.Has(AOTopN))
	assert.False(t, f.Has(AOTopNE), "Угол при занятом кардинальном соседе сбрасывается")
	assert.True(t, f.Has(AOTopSW), "Одиночный угол остаётся")
	assert.Equal(t, uint8(AOTopN|AOTopSW), f.Top())
	assert.Zero(t, f.Left())
	assert.Zero(t, f.Right())
}

func TestAOSideFaces(t *testing.T) {
	src := mapSource{
		{X: 0, Y: 0, Z: 0}:  block.New(block.StoneID),
		{X: -1, Y: 1, Z: 0}: block.New(block.StoneID), // левая диагональ
		{X: 1, Y: 1, Z: 0}:  block.New(block.StoneID), // правая диагональ
	}
	ao := NewAOCalculator(src)

	f := ao.Compute(vec.Vec3{})
	assert.True(t, f.Has(AOLeftDiagonal))
	assert.True(t, f.Has(AORightDiagonal))

	// Фронтальный сосед перекрывает обе диагонали
	src[vec.Vec3{X: 0, Y: 1, Z: 0}] = block.New(block.DirtID)
	f = ao.Compute(vec.Vec3{})
	assert.True(t, f.Has(AOLeftFront|AORightFront))
	assert.False(t, f.Has(AOLeftDiagonal))
	assert.False(t, f.Has(AORightDiagonal))
}

func TestAOIgnoresTransparentAndUnsided(t *testing.T) {
	src := mapSource{
		{X: 0, Y: 0, Z: 0}: block.New(block.StoneID),
		{X: 1, Y: 0, Z: 0}: block.New(block.GlassID),
		{X: 5, Y: 5, Z: 0}: block.New(block.FlowerID),
		{X: 6, Y: 5, Z: 0}: block.New(block.StoneID),
	}
	ao := NewAOCalculator(src)

	assert.False(t, ao.Compute(vec.Vec3{}).Has(AORightLateral), "Стекло не затеняет")
	assert.True(t, ao.Compute(vec.Vec3{X: 1}).Has(AOLeftLateral), "Стекло само затеняется камнем")
	assert.Zero(t, ao.Compute(vec.Vec3{X: 5, Y: 5}), "Блок без граней не получает флагов")
	assert.Zero(t, ao.Compute(vec.Vec3{X: 9, Y: 9}), "Воздух не получает флагов")
}

func TestAOSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src := mapSource{}
	for x := 0; x < 12; x++ {
		for y := 0; y < 12; y++ {
			for z := 0; z < 4; z++ {
				if rng.Intn(2) == 0 {
					src[vec.Vec3{X: x, Y: y, Z: z}] = block.New(block.StoneID)
				}
			}
		}
	}
	ao := NewAOCalculator(src)

	for x := 0; x < 11; x++ {
		for y := 0; y < 12; y++ {
			for z := 0; z < 4; z++ {
				a := vec.Vec3{X: x, Y: y, Z: z}
				b := vec.Vec3{X: x + 1, Y: y, Z: z}
				aSolid, bSolid := src[a].Occludes(), src[b].Occludes()
				fa, fb := ao.Compute(a), ao.Compute(b)
				if aSolid && bSolid {
					require.True(t, fa.Has(AORightLateral), "%v", a)
					require.True(t, fb.Has(AOLeftLateral), "%v", b)
				}
				if aSolid && !bSolid {
					require.False(t, fa.Has(AORightLateral), "%v", a)
				}
				if bSolid && !aSolid {
					require.False(t, fb.Has(AOLeftLateral), "%v", b)
				}
			}
		}
	}
}

func TestAOInvalidatedBySetBlock(t *testing.T) {
	m, rs, cam := newTestScene(t, airGenerator)

	// Соседи по разные стороны границы чанков (0,0) и (1,0)
	edge := vec.Vec3{X: world.BlocksX - 1, Y: 3, Z: 2}
	across := vec.Vec3{X: world.BlocksX, Y: 3, Z: 2}
	setBlocks(t, m, block.StoneID, edge)
	rs.Update(cam)
	assert.False(t, rs.CellAt(edge).AO.Has(AORightLateral))

	setBlocks(t, m, block.StoneID, across)
	assert.False(t, rs.CellAt(edge).AO.Has(AORightLateral), "До Update флаги ещё не пересчитаны")

	rs.Update(cam)
	assert.True(t, rs.CellAt(edge).AO.Has(AORightLateral))
	assert.True(t, rs.CellAt(across).AO.Has(AOLeftLateral))
	assert.False(t, rs.Chunk(vec.Vec2{}).AODirty())

	// Блок сверху затеняет верхнюю грань
	setBlocks(t, m, block.StoneID, vec.Vec3{X: edge.X, Y: edge.Y, Z: edge.Z + 1})
	rs.Update(cam)
	assert.Zero(t, rs.CellAt(edge).AO.Top(), "Сосед строго сверху не входит в восемь соседей верхней грани")

	setBlocks(t, m, block.StoneID, vec.Vec3{X: edge.X - 1, Y: edge.Y, Z: edge.Z + 1})
	rs.Update(cam)
	assert.True(t, rs.CellAt(edge).AO.Has(AOTopW))
}
