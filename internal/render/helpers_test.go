package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
	"github.com/annel0/isomap/internal/world/block"
)

var airGenerator = world.FuncGenerator(func(x, y, z int) block.ID { return block.AirID })

// newTestScene создаёт карту с 3×3 резидентными чанками вокруг начала координат,
// кэш рендера и камеру 0
func newTestScene(t *testing.T, gen world.Generator) (*world.Map, *RenderStorage, *BasicCamera) {
	t.Helper()
	m := world.NewMap(world.Options{Name: t.Name(), MemoryArea: 1, Generator: gen})
	require.NoError(t, m.UpdateReference(context.Background(), vec.Vec2{}))

	rs := NewRenderStorage(m, nil)
	t.Cleanup(rs.Close)

	cam := NewBasicCamera(0, vec.Vec2{})
	rs.Update(cam)
	return m, rs, cam
}

func setBlocks(t *testing.T, m *world.Map, id block.ID, coords ...vec.Vec3) {
	t.Helper()
	for _, c := range coords {
		require.NoError(t, m.SetBlock(context.Background(), c, block.New(id)))
	}
}

// positions возвращает позицию каждого элемента в порядке отрисовки
func positions(items []Item) (cells map[vec.Vec3]int, entities map[uint64]int) {
	cells = make(map[vec.Vec3]int)
	entities = make(map[uint64]int)
	for i, it := range items {
		if it.IsEntity() {
			entities[it.Entity.ID] = i
		} else {
			cells[it.Cell.Coord] = i
		}
	}
	return cells, entities
}
