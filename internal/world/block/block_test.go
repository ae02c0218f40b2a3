package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultProperties(t *testing.T) {
	assert.True(t, New(AirID).IsAir())
	assert.False(t, New(AirID).Occludes())
	assert.False(t, New(AirID).HasRenderableSides())

	stone := New(StoneID)
	assert.True(t, stone.Occludes())
	assert.True(t, stone.IsObstacle())
	assert.True(t, stone.HasRenderableSides())

	water := New(WaterID)
	assert.True(t, water.HasRenderableSides())
	assert.False(t, water.Occludes(), "прозрачный блок не затеняет")

	flower := New(FlowerID)
	assert.False(t, flower.HasRenderableSides())
	assert.False(t, flower.Occludes())
}

func TestUnknownIDIsOpaqueCube(t *testing.T) {
	b := Block{ID: 250}
	assert.False(t, IsValidID(b.ID))
	assert.True(t, b.Occludes())
	assert.Equal(t, "unknown", b.Properties().Name)
}

func TestRegisterOverrides(t *testing.T) {
	const custom ID = 201
	Register(custom, Properties{Name: "lamp", Transparent: true, HasSides: true})
	props, ok := Get(custom)
	assert.True(t, ok)
	assert.Equal(t, "lamp", props.Name)
	assert.False(t, Block{ID: custom}.Occludes())
}
