package world

import (
	"fmt"
	"sync"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world/block"
)

// Размеры чанка в блоках. Общие для всего процесса; по вертикали мир
// не делится на чанки, поэтому BlocksZ равно полной высоте мира.
const (
	BlocksX = 16
	BlocksY = 16
	BlocksZ = 16

	// BlocksPerChunk задаёт количество ячеек в одном чанке
	BlocksPerChunk = BlocksX * BlocksY * BlocksZ
)

// Chunk представляет вертикальную колонну мира размером BlocksX×BlocksY×BlocksZ.
// Чанк либо отсутствует в карте, либо заполнен целиком.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в сетке чанков

	blocks [BlocksX][BlocksY][BlocksZ]block.Block

	ChangeCounter int          // Счетчик изменений с последнего сохранения
	Mu            sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт новый пустой (заполненный воздухом) чанк
func NewChunk(coords vec.Vec2) *Chunk {
	return &Chunk{
		Coords: coords,
	}
}

// checkLocal проверяет локальный индекс. Выход за границы — ошибка
// программиста: все пути доступа проверяют границы через Map.
func checkLocal(lx, ly, lz int) {
	if lx < 0 || lx >= BlocksX || ly < 0 || ly >= BlocksY || lz < 0 || lz >= BlocksZ {
		panic(fmt.Sprintf("world: local index (%d,%d,%d) out of chunk bounds", lx, ly, lz))
	}
}

// GetBlock возвращает блок по локальным координатам
func (c *Chunk) GetBlock(lx, ly, lz int) block.Block {
	checkLocal(lx, ly, lz)

	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.blocks[lx][ly][lz]
}

// SetBlock устанавливает блок по локальным координатам и помечает чанк изменённым.
// Возвращает true, если содержимое ячейки действительно изменилось.
func (c *Chunk) SetBlock(lx, ly, lz int, b block.Block) bool {
	checkLocal(lx, ly, lz)

	c.Mu.Lock()
	defer c.Mu.Unlock()

	if c.blocks[lx][ly][lz] == b {
		return false
	}
	c.blocks[lx][ly][lz] = b
	c.ChangeCounter++
	return true
}

// Fill заполняет каждую ячейку результатом fn и помечает чанк изменённым
func (c *Chunk) Fill(fn func(lx, ly, lz int) block.Block) {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	for x := 0; x < BlocksX; x++ {
		for y := 0; y < BlocksY; y++ {
			for z := 0; z < BlocksZ; z++ {
				c.blocks[x][y][z] = fn(x, y, z)
			}
		}
	}
	c.ChangeCounter++
}

// Snapshot возвращает копию всех ячеек в порядке x, y, z (z — младший индекс)
func (c *Chunk) Snapshot() []block.Block {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	out := make([]block.Block, 0, BlocksPerChunk)
	for x := 0; x < BlocksX; x++ {
		for y := 0; y < BlocksY; y++ {
			out = append(out, c.blocks[x][y][:]...)
		}
	}
	return out
}

// Restore заменяет содержимое чанка ячейками из Snapshot, не помечая изменений
func (c *Chunk) Restore(cells []block.Block) error {
	if len(cells) != BlocksPerChunk {
		return fmt.Errorf("chunk (%d,%d): expected %d cells, got %d", c.Coords.X, c.Coords.Y, BlocksPerChunk, len(cells))
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	i := 0
	for x := 0; x < BlocksX; x++ {
		for y := 0; y < BlocksY; y++ {
			copy(c.blocks[x][y][:], cells[i:i+BlocksZ])
			i += BlocksZ
		}
	}
	return nil
}

// Equal сравнивает содержимое двух чанков
func (c *Chunk) Equal(other *Chunk) bool {
	if c == other {
		return true
	}
	if other == nil || c.Coords != other.Coords {
		return false
	}

	c.Mu.RLock()
	defer c.Mu.RUnlock()
	other.Mu.RLock()
	defer other.Mu.RUnlock()
	return c.blocks == other.blocks
}

// HasChanges возвращает true, если в чанке есть несохранённые изменения
func (c *Chunk) HasChanges() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счётчик изменений (после сохранения)
func (c *Chunk) ClearChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.ChangeCounter = 0
}

// CountNonAir возвращает количество непустых ячеек
func (c *Chunk) CountNonAir() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	n := 0
	for x := 0; x < BlocksX; x++ {
		for y := 0; y < BlocksY; y++ {
			for z := 0; z < BlocksZ; z++ {
				if !c.blocks[x][y][z].IsAir() {
					n++
				}
			}
		}
	}
	return n
}
