package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseDeterministicPerSeed(t *testing.T) {
	a := NewNoise(42)
	b := NewNoise(42)
	for i := 0; i < 20; i++ {
		x, y := float64(i)*0.37, float64(i)*0.11
		assert.Equal(t, a.Noise2D(x, y), b.Noise2D(x, y))
		v := a.Noise2D(x, y)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestHashStable(t *testing.T) {
	assert.Equal(t, Hash3(7, 1, 2, 3), Hash3(7, 1, 2, 3))
	assert.NotEqual(t, Hash3(7, 1, 2, 3), Hash3(7, 1, 2, 4))
	assert.NotEqual(t, Hash2(7, -1, 0), Hash2(7, 0, -1))
}
