package geo

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corridorLayout = `
#####
#...#
#####
`

func TestParseLayoutRowsRunNorthToSouth(t *testing.T) {
	g := mustLayout(t, `
#..
...
`)
	assert.Equal(t, 3, g.Width())
	assert.Equal(t, 2, g.Depth())
	assert.False(t, g.Walkable(Cell{X: 0, Z: 1}), "first row is the northern edge")
	assert.True(t, g.Walkable(Cell{X: 0, Z: 0}))
}

func TestParseLayoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		layout string
	}{
		{"empty", "\n\n"},
		{"ragged", "...\n..\n"},
		{"unknown char", "..x\n...\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayout(tt.layout, 1, mgl64.Vec3{})
			assert.Error(t, err)
		})
	}
}

func TestNewGridRejectsBadSize(t *testing.T) {
	_, err := NewGrid(0, 5, 1, mgl64.Vec3{})
	assert.Error(t, err)
	_, err = NewGrid(5, 5, 0, mgl64.Vec3{})
	assert.Error(t, err)
}

func TestCellAtAndCenter(t *testing.T) {
	g, err := NewGrid(10, 10, 2, mgl64.Vec3{-10, 3, -10})
	require.NoError(t, err)

	c, ok := g.CellAt(mgl64.Vec3{-9, 0, -9})
	require.True(t, ok)
	assert.Equal(t, Cell{X: 0, Z: 0}, c)
	assert.Equal(t, mgl64.Vec3{-9, 3, -9}, g.Center(c))

	c, ok = g.CellAt(mgl64.Vec3{9.9, 0, 0.1})
	require.True(t, ok)
	assert.Equal(t, Cell{X: 9, Z: 5}, c)

	_, ok = g.CellAt(mgl64.Vec3{-10.1, 0, 0})
	assert.False(t, ok)
	_, ok = g.CellAt(mgl64.Vec3{10, 0, 0})
	assert.False(t, ok)
}

func TestNSWE(t *testing.T) {
	g := mustLayout(t, corridorLayout)

	assert.Equal(t, NSWEEast, g.NSWE(Cell{X: 1, Z: 1}))
	assert.Equal(t, NSWEEast|NSWEWest, g.NSWE(Cell{X: 2, Z: 1}))
	assert.Equal(t, byte(0), g.NSWE(Cell{X: 0, Z: 0}), "wall cell")

	open, err := NewGrid(3, 3, 1, mgl64.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, NSWEAll, open.NSWE(Cell{X: 1, Z: 1}))
	assert.Equal(t, NSWENorthEast, open.NSWE(Cell{X: 0, Z: 0}))
}

func TestNSWEHeightStep(t *testing.T) {
	g := mustLayout(t, "01")

	assert.Equal(t, byte(0), g.NSWE(Cell{X: 0, Z: 0}), "step of 1 exceeds default max step")

	g.SetMaxStep(1)
	assert.Equal(t, NSWEEast, g.NSWE(Cell{X: 0, Z: 0}))
	assert.Equal(t, 1.0, g.Center(Cell{X: 1, Z: 0}).Y())
}

func TestComputeNSWE(t *testing.T) {
	from := Cell{X: 5, Z: 5}
	assert.Equal(t, NSWENorth, ComputeNSWE(from, Cell{X: 5, Z: 6}))
	assert.Equal(t, NSWESouth, ComputeNSWE(from, Cell{X: 5, Z: 4}))
	assert.Equal(t, NSWEEast, ComputeNSWE(from, Cell{X: 6, Z: 5}))
	assert.Equal(t, NSWEWest, ComputeNSWE(from, Cell{X: 4, Z: 5}))
	assert.Equal(t, NSWENorthEast, ComputeNSWE(from, Cell{X: 6, Z: 6}))
	assert.Equal(t, NSWESouthWest, ComputeNSWE(from, Cell{X: 4, Z: 4}))
	assert.Equal(t, byte(0), ComputeNSWE(from, from))
}

func TestCanMoveToTargetNoCornerCut(t *testing.T) {
	g := mustLayout(t, `
.#
..
`)
	assert.True(t, g.CanMoveToTarget(mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{0.5, 0, 1.5}))
	assert.False(t, g.CanMoveToTarget(mgl64.Vec3{1.5, 0, 0.5}, mgl64.Vec3{0.5, 0, 1.5}), "diagonal clips the wall corner")

	g2 := mustLayout(t, `
#.
.#
`)
	assert.False(t, g2.CanMoveToTarget(mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{1.5, 0, 1.5}), "squeeze between two walls")
}

func TestCanMoveToTargetWallBetween(t *testing.T) {
	g := mustLayout(t, wallLayout)
	assert.False(t, g.CanMoveToTarget(mgl64.Vec3{2.5, 0, 0.5}, mgl64.Vec3{2.5, 0, 2.5}))
	assert.True(t, g.CanMoveToTarget(mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{4.5, 0, 0.5}))
	assert.False(t, g.CanMoveToTarget(mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{1.5, 0, 1.5}), "target is a wall")
}

func TestProbe(t *testing.T) {
	g := mustLayout(t, corridorLayout)
	origin := mgl64.Vec3{2.5, 0, 1.5}

	assert.False(t, g.Probe(origin, mgl64.Vec3{1, 0, 0}, 1), "floor ahead")
	assert.True(t, g.Probe(origin, mgl64.Vec3{1, 0, 0}, 2), "east wall within 2")
	assert.True(t, g.Probe(origin, mgl64.Vec3{0, 0, 1}, 1), "north wall")
	assert.True(t, g.Probe(origin, mgl64.Vec3{0, 0, -1}, 1), "south wall")
	assert.True(t, g.Probe(origin, mgl64.Vec3{-3, 5, 0}, 2), "vertical component ignored")
}

func TestProbeDegenerate(t *testing.T) {
	g := mustLayout(t, corridorLayout)

	assert.False(t, g.Probe(mgl64.Vec3{2.5, 0, 1.5}, mgl64.Vec3{}, 1), "zero direction")
	assert.False(t, g.Probe(mgl64.Vec3{2.5, 0, 1.5}, mgl64.Vec3{0, 1, 0}, 1), "straight up")
	assert.False(t, g.Probe(mgl64.Vec3{50, 0, 50}, mgl64.Vec3{1, 0, 0}, 1), "origin outside")
	assert.False(t, g.Probe(mgl64.Vec3{2.5, 0, 1.5}, mgl64.Vec3{1, 0, 0}, 0), "zero distance")
	assert.False(t, g.Probe(mgl64.Vec3{2.5, 0, 1.5}, mgl64.Vec3{1, 0, 0}, 0.3), "same cell")
}

func TestProbeGridEdgeBlocks(t *testing.T) {
	g, err := NewGrid(3, 3, 1, mgl64.Vec3{})
	require.NoError(t, err)
	assert.True(t, g.Probe(mgl64.Vec3{1.5, 0, 1.5}, mgl64.Vec3{1, 0, 0}, 5))
	assert.False(t, g.Probe(mgl64.Vec3{1.5, 0, 1.5}, mgl64.Vec3{1, 0, 0}, 1))
}
