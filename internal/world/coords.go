package world

import "github.com/annel0/isomap/internal/vec"

// Три системы координат:
//   - точка (vec.Vec3Float) — непрерывная позиция в мире;
//   - координата (vec.Vec3) — индекс блока в сетке мира;
//   - локальный индекс (lx, ly, lz) — индекс внутри чанка.

// PointToCoord возвращает координату блока, содержащего точку
func PointToCoord(p vec.Vec3Float) vec.Vec3 {
	return p.Floor()
}

// CoordToChunk возвращает координаты чанка, содержащего блок
func CoordToChunk(c vec.Vec3) vec.Vec2 {
	return vec.Vec2{X: vec.FloorDiv(c.X, BlocksX), Y: vec.FloorDiv(c.Y, BlocksY)}
}

// CoordToLocal возвращает локальный индекс блока внутри его чанка
func CoordToLocal(c vec.Vec3) (lx, ly, lz int) {
	return vec.Mod(c.X, BlocksX), vec.Mod(c.Y, BlocksY), c.Z
}

// LocalToCoord возвращает мировую координату по чанку и локальному индексу
func LocalToCoord(chunk vec.Vec2, lx, ly, lz int) vec.Vec3 {
	return vec.Vec3{X: chunk.X*BlocksX + lx, Y: chunk.Y*BlocksY + ly, Z: lz}
}

// InBounds проверяет, что координата лежит в допустимом диапазоне высот
func InBounds(c vec.Vec3) bool {
	return c.Z >= 0 && c.Z < BlocksZ
}
