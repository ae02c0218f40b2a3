package render

import (
	"fmt"
	"math"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

// MaxCameras ограничивает число одновременно обслуживаемых камер.
// ID камеры индексирует её поколение обхода в RenderStorage.
const MaxCameras = 8

// Camera представляет внешнего потребителя порядка отрисовки
type Camera interface {
	// ID возвращает номер камеры в диапазоне [0, MaxCameras)
	ID() int
	// Center возвращает центр области 3×3 чанка
	Center() vec.Vec2
	// InViewFrustum проверяет попадание точки в область видимости
	InViewFrustum(p vec.Vec3Float) bool
	// ZRenderLimit возвращает предел высоты; +Inf — без ограничения
	ZRenderLimit() float64
}

func checkCameraID(id int) {
	if id < 0 || id >= MaxCameras {
		panic(fmt.Sprintf("render: camera id %d out of range [0,%d)", id, MaxCameras))
	}
}

// Rect задаёт прямоугольник в мировых координатах XY
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Contains проверяет попадание точки (полуинтервалы)
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// BasicCamera реализует простую камеру с необязательным прямоугольником видимости
type BasicCamera struct {
	Width, Height int // Размер экрана; ядром не используется

	id      int
	center  vec.Vec2
	frustum *Rect
	zLimit  float64
}

// NewBasicCamera создаёт камеру без ограничений видимости
func NewBasicCamera(id int, center vec.Vec2) *BasicCamera {
	checkCameraID(id)
	return &BasicCamera{
		id:     id,
		center: center,
		zLimit: math.Inf(1),
	}
}

func (c *BasicCamera) ID() int          { return c.id }
func (c *BasicCamera) Center() vec.Vec2 { return c.center }

// ZRenderLimit возвращает предел высоты
func (c *BasicCamera) ZRenderLimit() float64 { return c.zLimit }

// SetCenter переносит камеру в другой чанк
func (c *BasicCamera) SetCenter(center vec.Vec2) {
	c.center = center
}

// LookAt центрирует камеру на чанке, содержащем точку
func (c *BasicCamera) LookAt(p vec.Vec3Float) {
	c.center = world.CoordToChunk(world.PointToCoord(p))
}

// SetZLimit задаёт предел высоты. Неположительное значение снимает ограничение.
func (c *BasicCamera) SetZLimit(z float64) {
	if z <= 0 {
		z = math.Inf(1)
	}
	c.zLimit = z
}

// SetFrustum задаёт прямоугольник видимости; nil — видно всё
func (c *BasicCamera) SetFrustum(r *Rect) {
	c.frustum = r
}

// InViewFrustum проверяет попадание точки в прямоугольник видимости
func (c *BasicCamera) InViewFrustum(p vec.Vec3Float) bool {
	if c.frustum == nil {
		return true
	}
	return c.frustum.Contains(p.X, p.Y)
}
