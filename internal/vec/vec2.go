package vec

// Vec2 представляет 2D координаты (в первую очередь координаты чанка)
type Vec2 struct {
	X, Y int
}

// ChebyshevDistance возвращает расстояние "по квадрату": max(|dx|, |dy|).
// Используется для радиуса области памяти при подкачке чанков.
func (v Vec2) ChebyshevDistance(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// FloorDiv делит с округлением вниз (корректно для отрицательных a)
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod возвращает неотрицательный остаток от деления
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
