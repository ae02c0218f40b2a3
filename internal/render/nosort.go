package render

import "github.com/annel0/isomap/internal/world"

// NoSort выдаёт ячейки в порядке итератора, затем сущности.
// Годится только для сцен без перекрытий.
type NoSort struct {
	sorterBase
}

// CreateDepthList реализует Sorter
func (s *NoSort) CreateDepthList(view *View, entities []*world.Entity) []Item {
	cells, ents := candidates(view, entities)
	return s.clamp(append(cells, ents...))
}

// RenderSorted реализует Sorter
func (s *NoSort) RenderSorted(view *View, entities []*world.Entity, r Renderer) int {
	return drawAll(s.CreateDepthList(view, entities), r)
}
