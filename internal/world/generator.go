package world

import (
	"github.com/annel0/isomap/internal/util"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world/block"
)

// Generator процедурно заполняет новые чанки. Вызывается один раз для
// каждой ячейки создаваемого чанка и обязан быть детерминированным:
// повторная генерация того же чанка даёт те же блоки.
type Generator interface {
	Generate(x, y, z int) block.ID
	// SpawnEntities возвращает сущности, появляющиеся в ячейке при создании
	// чанка. ID == 0 означает "назначить автоматически".
	SpawnEntities(x, y, z int) []*Entity
}

// FuncGenerator адаптирует функцию к интерфейсу Generator (без сущностей)
type FuncGenerator func(x, y, z int) block.ID

// Generate вызывает функцию
func (f FuncGenerator) Generate(x, y, z int) block.ID {
	return f(x, y, z)
}

// SpawnEntities ничего не создаёт
func (f FuncGenerator) SpawnEntities(x, y, z int) []*Entity {
	return nil
}

// FlatGenerator создаёт плоский мир: Filler ниже Height, Surface на уровне Height
type FlatGenerator struct {
	Height  int
	Surface block.ID
	Filler  block.ID
}

// Generate возвращает блок плоского мира
func (g FlatGenerator) Generate(x, y, z int) block.ID {
	switch {
	case z < g.Height:
		return g.Filler
	case z == g.Height:
		return g.Surface
	default:
		return block.AirID
	}
}

// SpawnEntities ничего не создаёт
func (g FlatGenerator) SpawnEntities(x, y, z int) []*Entity {
	return nil
}

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
)

// PerlinGenerator генерирует ландшафт по карте высот из шума Перлина
type PerlinGenerator struct {
	Seed           int64   // Сид для генерации шума
	NoiseScale     float64 // Масштаб основного шума (высота)
	BiomeScale     float64 // Масштаб шума биомов
	MaxHeight      int     // Максимальная высота поверхности
	WaterLevel     int     // Уровень воды
	FlowerPermille uint64  // Шанс цветка на траве, в промилле
	SpawnPermille  uint64  // Шанс появления сущности на поверхности, в промилле

	height *util.Noise
	biome  *util.Noise
}

// NewPerlinGenerator создаёт генератор с настройками по умолчанию
func NewPerlinGenerator(seed int64) *PerlinGenerator {
	return &PerlinGenerator{
		Seed:           seed,
		NoiseScale:     0.05, // Настройка сглаженности ландшафта
		BiomeScale:     0.02, // Настройка размера биомов
		MaxHeight:      BlocksZ / 2,
		WaterLevel:     2,
		FlowerPermille: 40,
		SpawnPermille:  2,
		height:         util.NewNoise(seed),
		biome:          util.NewNoise(seed + 42),
	}
}

// HeightAt возвращает высоту поверхности в колонне (x, y)
func (g *PerlinGenerator) HeightAt(x, y int) int {
	n := g.height.Noise2D(float64(x)*g.NoiseScale, float64(y)*g.NoiseScale)
	maxHeight := g.MaxHeight
	if maxHeight >= BlocksZ-1 {
		maxHeight = BlocksZ - 2
	}
	if maxHeight < 1 {
		maxHeight = 1
	}
	return int(n * float64(maxHeight))
}

// BiomeAt определяет биом колонны
func (g *PerlinGenerator) BiomeAt(x, y int) BiomeType {
	v := g.biome.Noise2D(float64(x)*g.BiomeScale, float64(y)*g.BiomeScale)
	switch {
	case v < 0.35:
		return BiomeDesert
	case v > 0.65:
		return BiomeForest
	default:
		return BiomePlains
	}
}

// Generate возвращает блок в ячейке (x, y, z)
func (g *PerlinGenerator) Generate(x, y, z int) block.ID {
	h := g.HeightAt(x, y)
	biome := g.BiomeAt(x, y)

	switch {
	case z > h:
		if z <= g.WaterLevel {
			return block.WaterID
		}
		if z == h+1 && g.surfaceFor(h, biome) == block.GrassID &&
			util.Chance(util.Hash2(g.Seed+7, x, y), g.FlowerPermille) {
			return block.FlowerID
		}
		return block.AirID
	case z == h:
		return g.surfaceFor(h, biome)
	case z >= h-2:
		if biome == BiomeDesert {
			return block.SandID
		}
		return block.DirtID
	default:
		return block.StoneID
	}
}

// surfaceFor возвращает блок поверхности для высоты и биома
func (g *PerlinGenerator) surfaceFor(h int, biome BiomeType) block.ID {
	if h <= g.WaterLevel || biome == BiomeDesert {
		return block.SandID
	}
	if biome == BiomeForest && h > g.MaxHeight*3/4 {
		return block.StoneID
	}
	return block.GrassID
}

// SpawnEntities создаёт редкую сущность на суше над поверхностью
func (g *PerlinGenerator) SpawnEntities(x, y, z int) []*Entity {
	h := g.HeightAt(x, y)
	if z != h+1 || h <= g.WaterLevel {
		return nil
	}
	if !util.Chance(util.Hash3(g.Seed+13, x, y, z), g.SpawnPermille) {
		return nil
	}

	name := "critter"
	if g.BiomeAt(x, y) == BiomeForest {
		name = "deer"
	}
	pos := vec.Vec3Float{X: float64(x) + 0.5, Y: float64(y) + 0.5, Z: float64(z)}
	return []*Entity{NewEntity(0, name, pos)}
}
