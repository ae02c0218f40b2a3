package render

import (
	"sync"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/metrics"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// Смещения "перекрываемых" соседей: нижний и три задних. Каждое смещение
// уменьшает x+y+z, поэтому граф перекрытий ячеек ацикличен.
var coverOffsets = [4]vec.Vec3{
	{X: 0, Y: 0, Z: -1},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: -1, Z: 0},
	{X: -1, Y: -1, Z: 0},
}

// topoNode представляет узел графа перекрытий, по одному на RenderCell
type topoNode struct {
	cell     *RenderCell
	covers   [4]int32
	nCovers  uint8
	builtAt  uint32             // worldGen, при котором строились covers
	visited  [MaxCameras]uint32 // поколение обхода по камерам
	entities []*world.Entity    // сущности в ячейке на время одного обхода
}

// RenderStorage хранит кэш производного состояния для чанков в области камер.
// Регистрируется слушателем карты; уведомления копятся и применяются в Update.
// Сам RenderStorage не потокобезопасен: Update и проходы сортировки
// выполняются из одной горутины.
type RenderStorage struct {
	m       *world.Map
	ao      *AOCalculator
	metrics *metrics.Metrics
	logger  *logging.Logger

	chunks   map[vec.Vec2]*RenderChunk
	nodes    []topoNode
	free     []int32 // начала освобождённых диапазонов арены
	worldGen uint32
	passGen  [MaxCameras]uint32

	pendingMu     sync.Mutex
	pendingBlocks []vec.Vec3
	pendingLoads  map[vec.Vec2]struct{}
	pendingDrops  map[vec.Vec2]struct{}
}

// NewRenderStorage создаёт кэш и подписывает его на изменения карты
func NewRenderStorage(m *world.Map, mt *metrics.Metrics) *RenderStorage {
	rs := &RenderStorage{
		m:            m,
		ao:           NewAOCalculator(m),
		metrics:      mt,
		logger:       logging.GetRenderLogger(),
		chunks:       make(map[vec.Vec2]*RenderChunk),
		worldGen:     1,
		pendingLoads: make(map[vec.Vec2]struct{}),
		pendingDrops: make(map[vec.Vec2]struct{}),
	}
	for i := range rs.passGen {
		rs.passGen[i] = 1
	}
	m.AddListener(rs)
	return rs
}

// Close отписывает кэш от карты и освобождает арену
func (rs *RenderStorage) Close() {
	rs.m.RemoveListener(rs)
	for key, rc := range rs.chunks {
		rs.release(rc)
		delete(rs.chunks, key)
	}
	rs.nodes = nil
	rs.free = nil
}

// BlockChanged реализует world.ChangeListener
func (rs *RenderStorage) BlockChanged(coord vec.Vec3) {
	rs.pendingMu.Lock()
	rs.pendingBlocks = append(rs.pendingBlocks, coord)
	rs.pendingMu.Unlock()
}

// ChunkLoaded реализует world.ChangeListener
func (rs *RenderStorage) ChunkLoaded(c *world.Chunk) {
	rs.pendingMu.Lock()
	delete(rs.pendingDrops, c.Coords)
	rs.pendingLoads[c.Coords] = struct{}{}
	rs.pendingMu.Unlock()
}

// ChunkUnloaded реализует world.ChangeListener
func (rs *RenderStorage) ChunkUnloaded(coords vec.Vec2) {
	rs.pendingMu.Lock()
	delete(rs.pendingLoads, coords)
	rs.pendingDrops[coords] = struct{}{}
	rs.pendingMu.Unlock()
}

// Chunk возвращает чанк рендера или nil
func (rs *RenderStorage) Chunk(coords vec.Vec2) *RenderChunk {
	return rs.chunks[coords]
}

// ChunkCount возвращает число чанков в кэше
func (rs *RenderStorage) ChunkCount() int {
	return len(rs.chunks)
}

// CellAt возвращает ячейку по мировой координате или nil, если её нет в кэше
func (rs *RenderStorage) CellAt(coord vec.Vec3) *RenderCell {
	if !world.InBounds(coord) {
		return nil
	}
	rc := rs.chunks[world.CoordToChunk(coord)]
	if rc == nil {
		return nil
	}
	lx, ly, lz := world.CoordToLocal(coord)
	return &rc.cells[cellIndex(lx, ly, lz)]
}

// Update приводит кэш в соответствие с картой и камерами: применяет
// накопленные уведомления, строит чанки 3×3 вокруг каждой камеры,
// удаляет лишние и пересчитывает затенение там, где оно устарело.
func (rs *RenderStorage) Update(cams ...Camera) {
	rs.applyPending()

	wanted := make(map[vec.Vec2]struct{}, 9*len(cams))
	for _, cam := range cams {
		checkCameraID(cam.ID())
		center := cam.Center()
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				wanted[vec.Vec2{X: center.X + dx, Y: center.Y + dy}] = struct{}{}
			}
		}
	}

	for key, rc := range rs.chunks {
		if _, ok := wanted[key]; !ok {
			rs.drop(key, rc)
		}
	}

	for key := range wanted {
		src := rs.m.LoadedChunk(key.X, key.Y)
		rc := rs.chunks[key]
		switch {
		case src == nil:
			if rc != nil {
				rs.drop(key, rc)
			}
		case rc == nil:
			rc = newRenderChunk(src, rs.allocate())
			rs.bind(rc)
			rs.chunks[key] = rc
			rs.topologyChanged(key)
		case rc.source != src:
			rc.source = src
			rs.topologyChanged(key)
		}
	}

	recomputed := 0
	for _, rc := range rs.chunks {
		if rc.aoDirty {
			rs.ao.CalculateChunk(rc)
			rs.metrics.AORecomputed()
			recomputed++
		}
	}
	rs.metrics.SetRenderChunks(len(rs.chunks))
	if recomputed > 0 {
		rs.logger.Trace("AO recomputed for %d render chunks", recomputed)
	}
}

// applyPending применяет уведомления карты
func (rs *RenderStorage) applyPending() {
	rs.pendingMu.Lock()
	blocks := rs.pendingBlocks
	loads := rs.pendingLoads
	drops := rs.pendingDrops
	rs.pendingBlocks = nil
	rs.pendingLoads = make(map[vec.Vec2]struct{})
	rs.pendingDrops = make(map[vec.Vec2]struct{})
	rs.pendingMu.Unlock()

	for key := range drops {
		if rc := rs.chunks[key]; rc != nil {
			rs.drop(key, rc)
		}
	}

	for key := range loads {
		// Чанк перезаполнен или загружен заново: пересобираем его и соседей
		if rc := rs.chunks[key]; rc != nil {
			if src := rs.m.LoadedChunk(key.X, key.Y); src != nil {
				rc.source = src
			}
		}
		rs.topologyChanged(key)
	}

	if len(blocks) > 0 {
		rs.bumpWorldGen()
	}
	for _, coord := range blocks {
		// Затенение ячейки зависит от соседей на своём уровне и уровнем выше
		for dz := -1; dz <= 0; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					n := vec.Vec3{X: coord.X + dx, Y: coord.Y + dy, Z: coord.Z + dz}
					if rc := rs.chunks[world.CoordToChunk(n)]; rc != nil {
						rc.aoDirty = true
					}
				}
			}
		}
	}
}

// topologyChanged помечает чанк и его соседей для пересчёта затенения и
// сбрасывает кэш смежности
func (rs *RenderStorage) topologyChanged(key vec.Vec2) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if rc := rs.chunks[vec.Vec2{X: key.X + dx, Y: key.Y + dy}]; rc != nil {
				rc.aoDirty = true
			}
		}
	}
	rs.bumpWorldGen()
}

func (rs *RenderStorage) drop(key vec.Vec2, rc *RenderChunk) {
	delete(rs.chunks, key)
	rs.release(rc)
	rs.topologyChanged(key)
}

// allocate выделяет диапазон узлов для нового чанка
func (rs *RenderStorage) allocate() int32 {
	var base int32
	if n := len(rs.free); n > 0 {
		base = rs.free[n-1]
		rs.free = rs.free[:n-1]
	} else {
		base = int32(len(rs.nodes))
		rs.nodes = append(rs.nodes, make([]topoNode, world.BlocksPerChunk)...)
	}
	return base
}

// bind связывает узлы диапазона с ячейками чанка
func (rs *RenderStorage) bind(rc *RenderChunk) {
	for i := range rc.cells {
		rs.nodes[rc.nodeBase+int32(i)] = topoNode{cell: &rc.cells[i]}
	}
}

func (rs *RenderStorage) release(rc *RenderChunk) {
	for i := range rc.cells {
		rs.nodes[rc.nodeBase+int32(i)] = topoNode{}
	}
	rs.free = append(rs.free, rc.nodeBase)
}

// bumpWorldGen делает устаревшей смежность всех узлов
func (rs *RenderStorage) bumpWorldGen() {
	rs.worldGen++
	if rs.worldGen == 0 {
		for i := range rs.nodes {
			rs.nodes[i].builtAt = 0
		}
		rs.worldGen = 1
	}
	rs.metrics.TopoRebuild()
}

// adjacency возвращает перекрываемых соседей узла, перестраивая их лениво
func (rs *RenderStorage) adjacency(idx int32) []int32 {
	node := &rs.nodes[idx]
	if node.builtAt != rs.worldGen {
		node.nCovers = 0
		for _, off := range coverOffsets {
			if n := rs.CellAt(node.cell.Coord.Add(off)); n != nil {
				node.covers[node.nCovers] = n.node
				node.nCovers++
			}
		}
		node.builtAt = rs.worldGen
	}
	return node.covers[:node.nCovers]
}

// entityCovers возвращает узлы, перекрываемые сущностью: шаблон её ячейки
// опоры и задние соседи ячеек выше, которые она занимает
func (rs *RenderStorage) entityCovers(e *world.Entity, dst []int32) []int32 {
	floor := e.FloorCoord()
	for _, off := range coverOffsets {
		if n := rs.CellAt(floor.Add(off)); n != nil {
			dst = append(dst, n.node)
		}
	}
	for level := 1; level < e.Levels(); level++ {
		for _, off := range coverOffsets[1:] {
			c := floor.Add(off)
			c.Z += level
			if n := rs.CellAt(c); n != nil {
				dst = append(dst, n.node)
			}
		}
	}
	return dst
}

// beginPass возвращает поколение текущего обхода камеры
func (rs *RenderStorage) beginPass(cam int) uint32 {
	checkCameraID(cam)
	return rs.passGen[cam]
}

// endPass очищает списки сущностей и сдвигает поколение камеры:
// все узлы неявно становятся непосещёнными
func (rs *RenderStorage) endPass(cam int, touched []int32) {
	for _, idx := range touched {
		rs.nodes[idx].entities = rs.nodes[idx].entities[:0]
	}
	rs.passGen[cam]++
	if rs.passGen[cam] == 0 {
		for i := range rs.nodes {
			rs.nodes[i].visited[cam] = 0
		}
		rs.passGen[cam] = 1
	}
}
