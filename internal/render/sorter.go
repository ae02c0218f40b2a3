package render

import (
	"fmt"
	"sort"

	"github.com/annel0/isomap/internal/metrics"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// SorterKind выбирает стратегию упорядочивания
type SorterKind int

const (
	KindNone SorterKind = iota
	KindDepth
	KindTopological
)

func (k SorterKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDepth:
		return "depth"
	case KindTopological:
		return "topological"
	default:
		return fmt.Sprintf("SorterKind(%d)", int(k))
	}
}

// ParseSorterKind разбирает имя стратегии из конфигурации
func ParseSorterKind(s string) (SorterKind, error) {
	for _, k := range []SorterKind{KindNone, KindDepth, KindTopological} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sorter %q", s)
}

// Item представляет элемент порядка отрисовки: ячейку либо сущность
type Item struct {
	Cell   *RenderCell
	Entity *world.Entity
	Depth  float64
}

// IsEntity сообщает, что элемент является сущностью
func (i Item) IsEntity() bool { return i.Entity != nil }

// Renderer получает элементы в порядке отрисовки
type Renderer interface {
	Draw(item Item)
}

// RendererFunc адаптирует функцию к Renderer
type RendererFunc func(item Item)

// Draw вызывает функцию
func (f RendererFunc) Draw(item Item) { f(item) }

// Sorter строит порядок отрисовки: всё, что визуально впереди,
// рисуется после того, что оно перекрывает
type Sorter interface {
	Kind() SorterKind
	// MaxSprites возвращает бюджет прохода; <= 0 означает без ограничения
	MaxSprites() int
	// CreateDepthList возвращает элементы в порядке отрисовки
	CreateDepthList(view *View, entities []*world.Entity) []Item
	// RenderSorted передаёт элементы рендереру и возвращает их число
	RenderSorted(view *View, entities []*world.Entity, r Renderer) int
}

// NewSorter создаёт стратегию. maxSprites <= 0 — без ограничения.
func NewSorter(kind SorterKind, maxSprites int, mt *metrics.Metrics) (Sorter, error) {
	base := sorterBase{kind: kind, maxSprites: maxSprites, metrics: mt}
	switch kind {
	case KindNone:
		return &NoSort{base}, nil
	case KindDepth:
		return &DepthValueSort{base}, nil
	case KindTopological:
		return &TopologicalSort{sorterBase: base}, nil
	default:
		return nil, fmt.Errorf("unknown sorter kind %d", int(kind))
	}
}

// Depth возвращает скалярный ключ глубины: больше значит рисуется позже
func Depth(p vec.Vec3Float) float64 {
	return p.X + p.Y + p.Z
}

func cellItem(c *RenderCell) Item {
	return Item{Cell: c, Depth: Depth(c.Center())}
}

func entityItem(e *world.Entity) Item {
	return Item{Entity: e, Depth: Depth(e.Position)}
}

// entityVisible: сущность не скрыта, в области видимости и ниже предела высоты
func entityVisible(cam Camera, e *world.Entity) bool {
	return !e.Hidden && e.Position.Z < cam.ZRenderLimit() && cam.InViewFrustum(e.Position)
}

// sortEntities упорядочивает сущности по глубине, при равенстве по ID
func sortEntities(list []*world.Entity) {
	sort.SliceStable(list, func(i, j int) bool {
		di, dj := Depth(list[i].Position), Depth(list[j].Position)
		if di != dj {
			return di < dj
		}
		return list[i].ID < list[j].ID
	})
}

type sorterBase struct {
	kind       SorterKind
	maxSprites int
	metrics    *metrics.Metrics
}

func (b *sorterBase) Kind() SorterKind { return b.kind }

// MaxSprites возвращает бюджет кадра
func (b *sorterBase) MaxSprites() int { return b.maxSprites }

// clamp обрезает список по бюджету кадра и записывает метрики прохода
func (b *sorterBase) clamp(items []Item) []Item {
	truncated := b.maxSprites > 0 && len(items) > b.maxSprites
	if truncated {
		items = items[:b.maxSprites]
	}
	b.metrics.SortPass(b.kind.String(), len(items), truncated)
	return items
}

// candidates собирает отрисовываемые ячейки в порядке итератора и видимые сущности
func candidates(view *View, entities []*world.Entity) (cells, ents []Item) {
	cam := view.Camera
	for _, c := range view.Cells() {
		if c.ShouldRender(cam) {
			cells = append(cells, cellItem(c))
		}
	}
	for _, e := range entities {
		if entityVisible(cam, e) {
			ents = append(ents, entityItem(e))
		}
	}
	return cells, ents
}

func drawAll(items []Item, r Renderer) int {
	for _, it := range items {
		r.Draw(it)
	}
	return len(items)
}
