package debugapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/isomap/internal/render"
	"github.com/annel0/isomap/internal/vec"
)

// ErrorResponse описывает тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse содержит сводку состояния карты и рендера
type StatusResponse struct {
	World          string       `json:"world"`
	WorldID        string       `json:"world_id"`
	Seed           int64        `json:"seed"`
	WorldSpin      int          `json:"world_spin"`
	Reference      vec.Vec2     `json:"reference"`
	MemoryArea     int          `json:"memory_area"`
	ResidentChunks int          `json:"resident_chunks"`
	Entities       int          `json:"entities"`
	RenderChunks   int          `json:"render_chunks"`
	Sorter         string       `json:"sorter"`
	MaxSprites     int          `json:"max_sprites"`
	Cameras        []int        `json:"cameras"`
	Process        ProcessStats `json:"process"`
}

// ChunkInfo описывает резидентный чанк
type ChunkInfo struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	NonAir  int  `json:"non_air"`
	Changes bool `json:"changes"`
}

// EntityInfo описывает сущность
type EntityInfo struct {
	ID     uint64  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Height float64 `json:"height"`
	Hidden bool    `json:"hidden"`
}

// OrderItem описывает элемент порядка отрисовки
type OrderItem struct {
	Kind   string    `json:"kind"`
	Coord  *vec.Vec3 `json:"coord,omitempty"`
	Block  string    `json:"block,omitempty"`
	Entity uint64    `json:"entity,omitempty"`
	Depth  float64   `json:"depth"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	sorter := s.pipeline.Sorter()
	cams := s.pipeline.Cameras()
	ids := make([]int, 0, len(cams))
	for _, cam := range cams {
		ids = append(ids, cam.ID())
	}

	c.JSON(http.StatusOK, StatusResponse{
		World:          s.m.Name(),
		WorldID:        s.m.ID().String(),
		Seed:           s.m.Seed(),
		WorldSpin:      s.m.WorldSpin(),
		Reference:      s.m.Reference(),
		MemoryArea:     s.m.MemoryArea(),
		ResidentChunks: len(s.m.ResidentChunks()),
		Entities:       len(s.m.Entities()),
		RenderChunks:   s.pipeline.RenderChunks(),
		Sorter:         sorter.Kind().String(),
		MaxSprites:     sorter.MaxSprites(),
		Cameras:        ids,
		Process:        s.probe.collect(),
	})
}

func (s *Server) handleChunks(c *gin.Context) {
	keys := s.m.ResidentChunks()
	chunks := make([]ChunkInfo, 0, len(keys))
	for _, key := range keys {
		chunk := s.m.LoadedChunk(key.X, key.Y)
		if chunk == nil {
			continue // выгружен между запросами
		}
		chunks = append(chunks, ChunkInfo{
			X:       key.X,
			Y:       key.Y,
			NonAir:  chunk.CountNonAir(),
			Changes: chunk.HasChanges(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"chunks": chunks, "total": len(chunks)})
}

func (s *Server) handleEntities(c *gin.Context) {
	list := s.m.Entities()
	entities := make([]EntityInfo, 0, len(list))
	for _, e := range list {
		entities = append(entities, EntityInfo{
			ID:     e.ID,
			Name:   e.Name,
			X:      e.Position.X,
			Y:      e.Position.Y,
			Z:      e.Position.Z,
			Height: e.Height,
			Hidden: e.Hidden,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities, "total": len(entities)})
}

func (s *Server) handleRenderOrder(c *gin.Context) {
	camID, err := strconv.Atoi(c.DefaultQuery("camera", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid camera id"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		return
	}

	items, err := s.pipeline.RenderOrder(camID, limit)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	order := make([]OrderItem, 0, len(items))
	for _, item := range items {
		order = append(order, toOrderItem(item))
	}
	c.JSON(http.StatusOK, gin.H{
		"camera": camID,
		"sorter": s.pipeline.Sorter().Kind().String(),
		"items":  order,
		"total":  len(order),
	})
}

func toOrderItem(item render.Item) OrderItem {
	if item.IsEntity() {
		return OrderItem{Kind: "entity", Entity: item.Entity.ID, Depth: item.Depth}
	}
	coord := item.Cell.Coord
	return OrderItem{
		Kind:  "cell",
		Coord: &coord,
		Block: item.Cell.Block().Properties().Name,
		Depth: item.Depth,
	}
}
