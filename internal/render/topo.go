package render

import "github.com/annel0/isomap/internal/world"

// TopologicalSort обходит граф перекрытий в глубину: перекрытые ячейки
// рисуются раньше перекрывающих. Повторный заход в узел ничего не делает,
// поэтому при цикле каждый узел выдаётся не более одного раза, в порядке
// первого достижения.
type TopologicalSort struct {
	sorterBase
}

// topoPass хранит состояние одного прохода для одной камеры
type topoPass struct {
	rs        *RenderStorage
	view      *View
	cam       Camera
	camID     int
	gen       uint32
	limit     int
	out       []Item
	truncated bool
	scratch   []int32
}

func (p *topoPass) exhausted() bool {
	return p.limit > 0 && len(p.out) >= p.limit
}

func (p *topoPass) emit(item Item) {
	if p.exhausted() {
		p.truncated = true
		return
	}
	p.out = append(p.out, item)
}

func (p *topoPass) visit(idx int32) {
	node := &p.rs.nodes[idx]
	if node.visited[p.camID] == p.gen {
		return
	}
	node.visited[p.camID] = p.gen

	for _, c := range p.rs.adjacency(idx) {
		if p.view.Contains(p.rs.nodes[c].cell) {
			p.visit(c)
		}
	}

	if len(node.entities) > 0 {
		sortEntities(node.entities)

		// Высокая сущность сама перекрывает ячейки
		start := len(p.scratch)
		p.scratch = p.rs.entityCovers(node.entities[0], p.scratch)
		covers := append([]int32(nil), p.scratch[start:]...)
		p.scratch = p.scratch[:start]
		for _, c := range covers {
			if p.view.Contains(p.rs.nodes[c].cell) {
				p.visit(c)
			}
		}

		for _, e := range node.entities {
			p.emit(entityItem(e))
		}
	}

	if node.cell.ShouldRender(p.cam) {
		p.emit(cellItem(node.cell))
	}
}

// CreateDepthList реализует Sorter. Сущности раскладываются по узлам ячеек
// опоры; сущности без ячейки в виде идут в конце по глубине.
func (s *TopologicalSort) CreateDepthList(view *View, entities []*world.Entity) []Item {
	rs := view.Storage()
	cam := view.Camera
	p := &topoPass{
		rs:    rs,
		view:  view,
		cam:   cam,
		camID: cam.ID(),
		gen:   rs.beginPass(cam.ID()),
		limit: s.maxSprites,
	}

	var (
		touched  []int32
		appendix []*world.Entity
	)
	for _, e := range entities {
		if !entityVisible(cam, e) {
			continue
		}
		cell := rs.CellAt(e.FloorCoord())
		if !view.Contains(cell) {
			appendix = append(appendix, e)
			continue
		}
		node := &rs.nodes[cell.node]
		if len(node.entities) == 0 {
			touched = append(touched, cell.node)
		}
		node.entities = append(node.entities, e)
	}

	for _, c := range view.Cells() {
		if p.exhausted() {
			p.truncated = true
			break
		}
		p.visit(c.node)
	}

	sortEntities(appendix)
	for _, e := range appendix {
		p.emit(entityItem(e))
	}

	rs.endPass(p.camID, touched)
	s.metrics.SortPass(s.kind.String(), len(p.out), p.truncated)
	return p.out
}

// RenderSorted реализует Sorter
func (s *TopologicalSort) RenderSorted(view *View, entities []*world.Entity, r Renderer) int {
	return drawAll(s.CreateDepthList(view, entities), r)
}
