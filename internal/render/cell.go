package render

import (
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
	"github.com/annel0/isomap/internal/world/block"
)

// RenderCell представляет кэшированную обёртку над блоком в области камер
type RenderCell struct {
	Coord vec.Vec3 // Мировая координата блока
	AO    AOFlags  // Флаги затенения, пересчитываются RenderStorage

	chunk *RenderChunk
	node  int32 // индекс узла графа в арене RenderStorage
}

// Block возвращает актуальный блок из исходного чанка
func (c *RenderCell) Block() block.Block {
	lx, ly, lz := world.CoordToLocal(c.Coord)
	return c.chunk.source.GetBlock(lx, ly, lz)
}

// Chunk возвращает чанк рендера, которому принадлежит ячейка
func (c *RenderCell) Chunk() *RenderChunk {
	return c.chunk
}

// Center возвращает центр ячейки
func (c *RenderCell) Center() vec.Vec3Float {
	return c.Coord.Center()
}

// ShouldRender: непустой блок в области видимости и ниже предела высоты
func (c *RenderCell) ShouldRender(cam Camera) bool {
	if c.Block().IsAir() {
		return false
	}
	return float64(c.Coord.Z) < cam.ZRenderLimit() && cam.InViewFrustum(c.Center())
}
