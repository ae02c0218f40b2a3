package render

import (
	"fmt"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// RenderChunk хранит производное состояние одного резидентного чанка.
// Ячейки лежат в порядке локального индекса (x, y, z — младший);
// узлы графа занимают непрерывный диапазон арены начиная с nodeBase.
type RenderChunk struct {
	Coords vec.Vec2

	source   *world.Chunk
	cells    []RenderCell
	nodeBase int32
	aoDirty  bool
}

func newRenderChunk(source *world.Chunk, nodeBase int32) *RenderChunk {
	rc := &RenderChunk{
		Coords:   source.Coords,
		source:   source,
		cells:    make([]RenderCell, world.BlocksPerChunk),
		nodeBase: nodeBase,
		aoDirty:  true,
	}
	for lx := 0; lx < world.BlocksX; lx++ {
		for ly := 0; ly < world.BlocksY; ly++ {
			for lz := 0; lz < world.BlocksZ; lz++ {
				i := cellIndex(lx, ly, lz)
				rc.cells[i] = RenderCell{
					Coord: world.LocalToCoord(source.Coords, lx, ly, lz),
					chunk: rc,
					node:  nodeBase + int32(i),
				}
			}
		}
	}
	return rc
}

func cellIndex(lx, ly, lz int) int {
	return (lx*world.BlocksY+ly)*world.BlocksZ + lz
}

// Cell возвращает ячейку по локальному индексу
func (rc *RenderChunk) Cell(lx, ly, lz int) *RenderCell {
	if lx < 0 || lx >= world.BlocksX || ly < 0 || ly >= world.BlocksY || lz < 0 || lz >= world.BlocksZ {
		panic(fmt.Sprintf("render: local index (%d,%d,%d) out of chunk bounds", lx, ly, lz))
	}
	return &rc.cells[cellIndex(lx, ly, lz)]
}

// Cells возвращает все ячейки чанка
func (rc *RenderChunk) Cells() []RenderCell {
	return rc.cells
}

// Source возвращает исходный чанк карты
func (rc *RenderChunk) Source() *world.Chunk {
	return rc.source
}

// AODirty сообщает, нужен ли пересчёт затенения
func (rc *RenderChunk) AODirty() bool {
	return rc.aoDirty
}
