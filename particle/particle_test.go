package particle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mansfield-astro/treewalk/geom"
)

func TestSliceTableBasics(t *testing.T) {
	tbl := NewSliceTable([]Particle{
		{Pos: geom.Vec{1, 2, 3}, ID: 7, Type: TypeGas, Hsml: 0.1},
		{Pos: geom.Vec{4, 5, 6}, ID: 8, Type: TypeHalo, Garbage: true},
	})

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, int64(7), tbl.Get(0).ID)
	assert.True(t, tbl.Get(1).Garbage)

	tbl.SetHsml(0, 0.5)
	assert.Equal(t, 0.5, tbl.Get(0).Hsml)
}

func TestTypeMaskOverlap(t *testing.T) {
	mask := TypeGas | TypeHalo
	assert.Equal(t, TypeGas, mask&TypeGas)
	assert.Zero(t, mask&TypeStar)
	assert.Equal(t, TypeAll, TypeGas|TypeHalo|TypeDisk|TypeBulge|TypeStar|TypeBndry)
}
