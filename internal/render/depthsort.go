package render

import (
	"sort"

	"github.com/annel0/isomap/internal/world"
)

// DepthValueSort упорядочивает кандидатов по скалярной глубине.
// Порядок верен, только если глубина согласована с перекрытиями; для
// сущностей, занимающих несколько ячеек, это не всегда так.
type DepthValueSort struct {
	sorterBase
}

// CreateDepthList реализует Sorter
func (s *DepthValueSort) CreateDepthList(view *View, entities []*world.Entity) []Item {
	cells, ents := candidates(view, entities)
	items := append(cells, ents...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Depth < items[j].Depth
	})
	return s.clamp(items)
}

// RenderSorted реализует Sorter
func (s *DepthValueSort) RenderSorted(view *View, entities []*world.Entity, r Renderer) int {
	return drawAll(s.CreateDepthList(view, entities), r)
}
