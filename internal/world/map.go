package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/metrics"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world/block"
)

// Пространство имён для идентификаторов миров
var worldNamespace = uuid.MustParse("6f1c3a52-8d0e-4f7b-9a4e-2c5b7d9e1f30")

// WorldID возвращает стабильный идентификатор мира по его имени.
// Хранилища используют его как префикс ключей.
func WorldID(name string) uuid.UUID {
	return uuid.NewSHA1(worldNamespace, []byte(name))
}

// Options задаёт параметры карты
type Options struct {
	Name       string           // Имя мира
	Seed       int64            // Сид генерации
	MemoryArea int              // Радиус резидентной области в чанках (Чебышёв)
	WorldSpin  int              // Поворот мира (хранится для внешнего рендерера)
	Generator  Generator        // Генератор новых чанков
	Storage    ChunkStorage     // Постоянное хранилище (может быть nil)
	Metrics    *metrics.Metrics // Метрики (может быть nil)
	Logger     *logging.Logger  // Логгер компонента
}

// Map хранит разреженную карту чанков с подкачкой вокруг опорной точки
type Map struct {
	id         uuid.UUID
	name       string
	seed       int64
	spin       int
	memoryArea int

	generator Generator
	storage   ChunkStorage
	metrics   *metrics.Metrics
	logger    *logging.Logger
	tracer    trace.Tracer

	chunks       map[vec.Vec2]*Chunk
	generated    map[vec.Vec2]struct{} // Чанки, для которых уже создавались сущности
	entities     map[uint64]*Entity
	nextEntityID uint64
	reference    vec.Vec2
	unloadQueue  []vec.Vec2
	queued       map[vec.Vec2]struct{}
	listeners    []ChangeListener
	mu           sync.RWMutex
}

// NewMap создаёт пустую карту
func NewMap(opts Options) *Map {
	if opts.Name == "" {
		opts.Name = "default"
	}
	if opts.MemoryArea < 1 {
		opts.MemoryArea = 1
	}
	if opts.Generator == nil {
		opts.Generator = FlatGenerator{Height: 0, Surface: block.StoneID, Filler: block.StoneID}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetWorldLogger()
	}

	return &Map{
		id:           WorldID(opts.Name),
		name:         opts.Name,
		seed:         opts.Seed,
		spin:         opts.WorldSpin,
		memoryArea:   opts.MemoryArea,
		generator:    opts.Generator,
		storage:      opts.Storage,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		tracer:       otel.Tracer("github.com/annel0/isomap/internal/world"),
		chunks:       make(map[vec.Vec2]*Chunk),
		generated:    make(map[vec.Vec2]struct{}),
		entities:     make(map[uint64]*Entity),
		nextEntityID: 1,
		queued:       make(map[vec.Vec2]struct{}),
	}
}

// ID возвращает идентификатор мира
func (m *Map) ID() uuid.UUID { return m.id }

// Name возвращает имя мира
func (m *Map) Name() string { return m.name }

// Seed возвращает сид мира
func (m *Map) Seed() int64 { return m.seed }

// WorldSpin возвращает поворот мира
func (m *Map) WorldSpin() int { return m.spin }

// MemoryArea возвращает радиус резидентной области
func (m *Map) MemoryArea() int { return m.memoryArea }

// AddListener подписывает слушателя на изменения карты
func (m *Map) AddListener(l ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// RemoveListener отписывает слушателя
func (m *Map) RemoveListener(l ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// snapshotListeners копирует список слушателей. Уведомления отправляются
// без удержания блокировки карты, чтобы слушатели могли читать карту.
func (m *Map) snapshotListeners() []ChangeListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ChangeListener(nil), m.listeners...)
}

// GetChunk возвращает чанк, загружая или генерируя его при необходимости
func (m *Map) GetChunk(ctx context.Context, cx, cy int) (*Chunk, error) {
	key := vec.Vec2{X: cx, Y: cy}

	m.mu.RLock()
	c := m.chunks[key]
	m.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if c := m.chunks[key]; c != nil {
		m.mu.Unlock()
		return c, nil
	}
	c, err := m.loadOrGenerate(ctx, key)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("load chunk (%d,%d): %w", cx, cy, err)
	}
	m.chunks[key] = c
	m.metrics.SetResidentChunks(len(m.chunks))
	m.mu.Unlock()

	for _, l := range m.snapshotListeners() {
		l.ChunkLoaded(c)
	}
	return c, nil
}

// loadOrGenerate получает чанк из хранилища или генерирует его заново.
// Сбой чтения, не связанный с содержимым записи, возвращается как ошибка:
// перегенерация перезаписала бы сохранённые правки. Вызывается под блокировкой записи.
func (m *Map) loadOrGenerate(ctx context.Context, key vec.Vec2) (*Chunk, error) {
	ctx, span := m.tracer.Start(ctx, "chunk.load", trace.WithAttributes(
		attribute.Int("chunk.x", key.X),
		attribute.Int("chunk.y", key.Y),
	))
	defer span.End()

	if m.storage != nil {
		c, err := m.storage.LoadChunk(ctx, key)
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("chunk.source", metrics.SourceStorage))
			m.metrics.ChunkLoaded(metrics.SourceStorage)
			logging.LogChunkLoad(key.X, key.Y, metrics.SourceStorage)
			return c, nil
		case errors.Is(err, ErrChunkNotFound):
		case errors.Is(err, ErrCorruptChunk):
			// Повреждённые данные не фатальны: генерируем чанк заново
			span.RecordError(err)
			span.SetStatus(codes.Error, "corrupt chunk")
			m.metrics.CorruptChunk()
			m.logger.Warn("Chunk (%d,%d) failed to load, regenerating: %v", key.X, key.Y, err)

			c := m.generate(key)
			c.ChangeCounter++ // перезаписать испорченные данные при выгрузке
			return c, nil
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "load failed")
			m.logger.Error("Chunk (%d,%d) failed to load: %v", key.X, key.Y, err)
			return nil, err
		}
	}

	span.SetAttributes(attribute.String("chunk.source", metrics.SourceGenerator))
	return m.generate(key), nil
}

// generate заполняет новый чанк генератором. Сущности создаются только при
// первой генерации чанка за сессию. Вызывается под блокировкой записи.
func (m *Map) generate(key vec.Vec2) *Chunk {
	c := NewChunk(key)
	_, seen := m.generated[key]

	var spawned []*Entity
	c.Fill(func(lx, ly, lz int) block.Block {
		coord := LocalToCoord(key, lx, ly, lz)
		if !seen {
			spawned = append(spawned, m.generator.SpawnEntities(coord.X, coord.Y, coord.Z)...)
		}
		return block.New(m.generator.Generate(coord.X, coord.Y, coord.Z))
	})
	// Сгенерированный чанк детерминирован, сохранять его не нужно
	c.ClearChanges()

	m.generated[key] = struct{}{}
	for _, e := range spawned {
		m.addEntityLocked(e)
	}

	m.metrics.ChunkLoaded(metrics.SourceGenerator)
	logging.LogChunkLoad(key.X, key.Y, metrics.SourceGenerator)
	return c
}

// LoadedChunk возвращает резидентный чанк без загрузки
func (m *Map) LoadedChunk(cx, cy int) *Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chunks[vec.Vec2{X: cx, Y: cy}]
}

// ResidentChunks возвращает координаты резидентных чанков в порядке (y, x)
func (m *Map) ResidentChunks() []vec.Vec2 {
	m.mu.RLock()
	keys := make([]vec.Vec2, 0, len(m.chunks))
	for k := range m.chunks {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

// GetBlock возвращает блок по мировой координате. Ячейки вне мира и
// в невыгруженных чанках считаются воздухом.
func (m *Map) GetBlock(coord vec.Vec3) block.Block {
	b, _ := m.BlockIfLoaded(coord)
	return b
}

// BlockIfLoaded возвращает блок и признак того, что его чанк резидентен
func (m *Map) BlockIfLoaded(coord vec.Vec3) (block.Block, bool) {
	if !InBounds(coord) {
		return block.Block{}, false
	}
	cc := CoordToChunk(coord)
	c := m.LoadedChunk(cc.X, cc.Y)
	if c == nil {
		return block.Block{}, false
	}
	lx, ly, lz := CoordToLocal(coord)
	return c.GetBlock(lx, ly, lz), true
}

// SetBlock изменяет одну ячейку, загружая чанк при необходимости
func (m *Map) SetBlock(ctx context.Context, coord vec.Vec3, b block.Block) error {
	if !InBounds(coord) {
		return fmt.Errorf("set block at (%d,%d,%d): %w", coord.X, coord.Y, coord.Z, ErrOutOfBounds)
	}

	cc := CoordToChunk(coord)
	lx, ly, lz := CoordToLocal(coord)

	// Запись идёт под блокировкой чтения карты, чтобы выгрузка не могла
	// сбросить и удалить чанк между загрузкой и изменением
	var changed bool
	for {
		m.mu.RLock()
		c := m.chunks[cc]
		if c != nil {
			changed = c.SetBlock(lx, ly, lz, b)
			m.mu.RUnlock()
			break
		}
		m.mu.RUnlock()

		if _, err := m.GetChunk(ctx, cc.X, cc.Y); err != nil {
			return err
		}
	}
	if !changed {
		return nil
	}
	for _, l := range m.snapshotListeners() {
		l.BlockChanged(coord)
	}
	return nil
}

// FillWithGenerator перезаполняет все резидентные чанки новым генератором.
// Новые чанки тоже будут создаваться им.
func (m *Map) FillWithGenerator(ctx context.Context, gen Generator) error {
	if gen == nil {
		return errors.New("fill with generator: nil generator")
	}
	_, span := m.tracer.Start(ctx, "map.fill_with_generator")
	defer span.End()

	m.mu.Lock()
	m.generator = gen
	filled := make([]*Chunk, 0, len(m.chunks))
	for key, c := range m.chunks {
		c.Fill(func(lx, ly, lz int) block.Block {
			coord := LocalToCoord(key, lx, ly, lz)
			return block.New(gen.Generate(coord.X, coord.Y, coord.Z))
		})
		filled = append(filled, c)
	}
	m.mu.Unlock()

	span.SetAttributes(attribute.Int("chunks", len(filled)))
	m.logger.Info("Refilled %d resident chunks with a new generator", len(filled))

	for _, l := range m.snapshotListeners() {
		for _, c := range filled {
			l.ChunkLoaded(c)
		}
	}
	return nil
}

// NextEntityID резервирует и возвращает новый ID сущности
func (m *Map) NextEntityID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextEntityID
	m.nextEntityID++
	return id
}

// AddEntity добавляет сущность. ID == 0 назначается автоматически.
func (m *Map) AddEntity(e *Entity) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addEntityLocked(e)
}

func (m *Map) addEntityLocked(e *Entity) uint64 {
	if e.ID == 0 {
		e.ID = m.nextEntityID
		m.nextEntityID++
	} else if e.ID >= m.nextEntityID {
		m.nextEntityID = e.ID + 1
	}
	m.entities[e.ID] = e
	return e.ID
}

// RemoveEntity удаляет сущность, возвращает false если её не было
func (m *Map) RemoveEntity(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		return false
	}
	delete(m.entities, id)
	return true
}

// MoveEntity перемещает сущность в новую точку
func (m *Map) MoveEntity(id uint64, pos vec.Vec3Float) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return false
	}
	e.Position = pos
	return true
}

// Entity возвращает сущность по ID
func (m *Map) Entity(id uint64) (*Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	return e, ok
}

// Entities возвращает все сущности в порядке возрастания ID
func (m *Map) Entities() []*Entity {
	m.mu.RLock()
	out := make([]*Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
