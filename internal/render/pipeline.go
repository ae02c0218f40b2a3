package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/isomap/internal/metrics"
	"github.com/annel0/isomap/internal/world"
)

// FrameStats содержит итог прохода одной камеры
type FrameStats struct {
	Camera  int `json:"camera"`
	Cells   int `json:"cells"`
	Emitted int `json:"emitted"`
}

// Pipeline связывает карту, кэш рендера, камеры и стратегию сортировки.
// Все методы сериализуются одним мьютексом, поэтому кадр и запросы
// отладочного API можно вызывать из разных горутин.
type Pipeline struct {
	mu        sync.Mutex
	m         *world.Map
	rs        *RenderStorage
	sorter    Sorter
	cams      []Camera
	views     map[int]*View
	startingZ int
}

// NewPipeline создаёт конвейер кадра
func NewPipeline(m *world.Map, sorter Sorter, mt *metrics.Metrics) *Pipeline {
	return &Pipeline{
		m:      m,
		rs:     NewRenderStorage(m, mt),
		sorter: sorter,
		views:  make(map[int]*View),
	}
}

// AddCamera регистрирует камеру
func (p *Pipeline) AddCamera(cam Camera) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := cam.ID()
	if id < 0 || id >= MaxCameras {
		return fmt.Errorf("camera id %d out of range [0,%d)", id, MaxCameras)
	}
	if _, ok := p.views[id]; ok {
		return fmt.Errorf("camera %d already registered", id)
	}
	p.cams = append(p.cams, cam)
	sort.Slice(p.cams, func(i, j int) bool { return p.cams[i].ID() < p.cams[j].ID() })
	p.views[id] = NewView(p.rs, cam, p.startingZ)
	return nil
}

// Cameras возвращает зарегистрированные камеры по возрастанию ID
func (p *Pipeline) Cameras() []Camera {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Camera(nil), p.cams...)
}

// Sorter возвращает текущую стратегию
func (p *Pipeline) Sorter() Sorter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sorter
}

// SetSorter меняет стратегию между кадрами
func (p *Pipeline) SetSorter(s Sorter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sorter = s
}

// RenderChunks возвращает число чанков в кэше рендера
func (p *Pipeline) RenderChunks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rs.ChunkCount()
}

// Frame обновляет кэш и выполняет по одному проходу сортировки на камеру
func (p *Pipeline) Frame(r Renderer) []FrameStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r == nil {
		r = RendererFunc(func(Item) {})
	}

	p.rs.Update(p.cams...)
	entities := p.m.Entities()

	stats := make([]FrameStats, 0, len(p.cams))
	for _, cam := range p.cams {
		view := p.views[cam.ID()]
		view.Refresh()
		stats = append(stats, FrameStats{
			Camera:  cam.ID(),
			Cells:   len(view.Cells()),
			Emitted: p.sorter.RenderSorted(view, entities, r),
		})
	}
	return stats
}

// RenderOrder выполняет отдельный проход для камеры и возвращает порядок
// отрисовки. limit <= 0 — без ограничения.
func (p *Pipeline) RenderOrder(camID, limit int) ([]Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	view, ok := p.views[camID]
	if !ok {
		return nil, fmt.Errorf("camera %d is not registered", camID)
	}
	sorter, err := NewSorter(p.sorter.Kind(), limit, nil)
	if err != nil {
		return nil, err
	}

	p.rs.Update(p.cams...)
	view.Refresh()
	return sorter.CreateDepthList(view, p.m.Entities()), nil
}

// Close отписывает кэш от карты
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rs.Close()
}
