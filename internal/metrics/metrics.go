package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Источники загрузки чанка
const (
	SourceStorage   = "storage"
	SourceGenerator = "generator"
)

// Metrics инкапсулирует Prometheus-метрики подкачки чанков и сортировки.
// Нулевой указатель допустим: все методы становятся no-op, поэтому ядро
// можно использовать без Prometheus (в тестах, во встраивании).
type Metrics struct {
	chunksLoaded   *prometheus.CounterVec
	chunksUnloaded prometheus.Counter
	chunksSaved    prometheus.Counter
	corruptChunks  prometheus.Counter
	residentChunks prometheus.Gauge

	sortPasses    *prometheus.CounterVec
	sortEmitted   *prometheus.CounterVec
	sortTruncated *prometheus.CounterVec
	aoRecomputed  prometheus.Counter
	renderChunks  prometheus.Gauge
	topoRebuilds  prometheus.Counter
}

// New создаёт метрики и регистрирует их в переданном регистре.
// Если reg == nil, используется глобальный регистр Prometheus.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "isomap"
	}

	m := &Metrics{
		chunksLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_loaded_total",
			Help:      "Чанки, ставшие резидентными (из хранилища или генератора).",
		}, []string{"source"}),
		chunksUnloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_unloaded_total",
			Help:      "Чанки, выгруженные за пределами области памяти.",
		}),
		chunksSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_saved_total",
			Help:      "Изменённые чанки, сброшенные в хранилище.",
		}),
		corruptChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_corrupt_total",
			Help:      "Повреждённые сохранённые чанки, заменённые генерацией.",
		}),
		residentChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_resident",
			Help:      "Количество резидентных чанков карты.",
		}),
		sortPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sort_passes_total",
			Help:      "Проходы сортировки по глубине.",
		}, []string{"sorter"}),
		sortEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sort_items_emitted_total",
			Help:      "Элементы (ячейки и сущности), выданные рендереру.",
		}, []string{"sorter"}),
		sortTruncated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sort_truncated_total",
			Help:      "Проходы, обрезанные лимитом спрайтов.",
		}, []string{"sorter"}),
		aoRecomputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ao_chunk_recomputations_total",
			Help:      "Пересчёты ambient occlusion для рендер-чанков.",
		}),
		renderChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "render_chunks",
			Help:      "Количество рендер-чанков в кеше камер.",
		}),
		topoRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topo_node_rebuilds_total",
			Help:      "Перестроения списков покрытия узлов топологического графа.",
		}),
	}

	reg.MustRegister(
		m.chunksLoaded, m.chunksUnloaded, m.chunksSaved, m.corruptChunks, m.residentChunks,
		m.sortPasses, m.sortEmitted, m.sortTruncated, m.aoRecomputed, m.renderChunks, m.topoRebuilds,
	)
	return m
}

// ChunkLoaded учитывает появление резидентного чанка
func (m *Metrics) ChunkLoaded(source string) {
	if m == nil {
		return
	}
	m.chunksLoaded.WithLabelValues(source).Inc()
}

// ChunkUnloaded учитывает выгрузку чанка
func (m *Metrics) ChunkUnloaded() {
	if m == nil {
		return
	}
	m.chunksUnloaded.Inc()
}

// ChunkSaved учитывает сохранение чанка
func (m *Metrics) ChunkSaved() {
	if m == nil {
		return
	}
	m.chunksSaved.Inc()
}

// CorruptChunk учитывает повреждённый сохранённый чанк
func (m *Metrics) CorruptChunk() {
	if m == nil {
		return
	}
	m.corruptChunks.Inc()
}

// SetResidentChunks обновляет число резидентных чанков
func (m *Metrics) SetResidentChunks(n int) {
	if m == nil {
		return
	}
	m.residentChunks.Set(float64(n))
}

// SortPass учитывает один проход сортировки
func (m *Metrics) SortPass(sorter string, emitted int, truncated bool) {
	if m == nil {
		return
	}
	m.sortPasses.WithLabelValues(sorter).Inc()
	m.sortEmitted.WithLabelValues(sorter).Add(float64(emitted))
	if truncated {
		m.sortTruncated.WithLabelValues(sorter).Inc()
	}
}

// AORecomputed учитывает пересчёт AO одного рендер-чанка
func (m *Metrics) AORecomputed() {
	if m == nil {
		return
	}
	m.aoRecomputed.Inc()
}

// SetRenderChunks обновляет число рендер-чанков
func (m *Metrics) SetRenderChunks(n int) {
	if m == nil {
		return
	}
	m.renderChunks.Set(float64(n))
}

// TopoRebuild учитывает перестроение списка покрытия узла
func (m *Metrics) TopoRebuild() {
	if m == nil {
		return
	}
	m.topoRebuilds.Inc()
}
