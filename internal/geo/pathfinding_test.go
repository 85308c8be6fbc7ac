package geo

import (
	"container/heap"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallLayout = `
.....
.###.
.....
`

const enclosedLayout = `
.....
.###.
.#.#.
.###.
.....
`

func mustLayout(t *testing.T, layout string) *Grid {
	t.Helper()
	g, err := ParseLayout(layout, 1, mgl64.Vec3{})
	require.NoError(t, err)
	return g
}

func TestFindPathSameCell(t *testing.T) {
	g := mustLayout(t, wallLayout)

	dst := mgl64.Vec3{0.7, 0, 0.7}
	path, err := g.FindPath(mgl64.Vec3{0.2, 0, 0.2}, dst)
	require.NoError(t, err)
	assert.Equal(t, PathComplete, path.Status)
	require.Len(t, path.Waypoints, 1)
	assert.Equal(t, dst, path.Waypoints[0])
}

func TestFindPathOpenFieldIsStraight(t *testing.T) {
	g, err := NewGrid(5, 5, 1, mgl64.Vec3{})
	require.NoError(t, err)

	src := mgl64.Vec3{0.5, 0, 0.5}
	dst := mgl64.Vec3{4.5, 0, 4.5}
	path, err := g.FindPath(src, dst)
	require.NoError(t, err)
	assert.Equal(t, PathComplete, path.Status)
	require.Len(t, path.Waypoints, 1, "smoothing should collapse a clear diagonal")
	assert.Equal(t, dst, path.Waypoints[0])
}

func TestFindPathAroundWall(t *testing.T) {
	g := mustLayout(t, wallLayout)

	src := mgl64.Vec3{2.5, 0, 0.5}
	dst := mgl64.Vec3{2.5, 0, 2.5}
	path, err := g.FindPath(src, dst)
	require.NoError(t, err)
	require.Equal(t, PathComplete, path.Status)
	require.GreaterOrEqual(t, len(path.Waypoints), 2, "path should go around wall")
	assert.Equal(t, dst, path.Waypoints[len(path.Waypoints)-1])

	prev := src
	for _, w := range path.Waypoints {
		c, ok := g.CellAt(w)
		require.True(t, ok)
		assert.True(t, g.Walkable(c), "waypoint %v on a wall", w)
		assert.True(t, g.CanMoveToTarget(prev, w), "segment %v -> %v crosses a wall", prev, w)
		prev = w
	}

	assert.Greater(t, PolylineLength(src, path.Waypoints), 3.0)
}

func TestFindPathEnclosedGoalIsPartial(t *testing.T) {
	g := mustLayout(t, enclosedLayout)

	path, err := g.FindPath(mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{2.5, 0, 2.5})
	require.NoError(t, err)
	assert.Equal(t, PathPartial, path.Status)
	require.NotEmpty(t, path.Waypoints)

	last, ok := g.CellAt(path.Waypoints[len(path.Waypoints)-1])
	require.True(t, ok)
	assert.True(t, g.Walkable(last))
	assert.NotEqual(t, Cell{X: 2, Z: 2}, last)
}

func TestFindPathGoalInWallIsPartial(t *testing.T) {
	g := mustLayout(t, wallLayout)

	path, err := g.FindPath(mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{2.5, 0, 1.5})
	require.NoError(t, err)
	assert.Equal(t, PathPartial, path.Status)
}

func TestFindPathOutsideGrid(t *testing.T) {
	g := mustLayout(t, wallLayout)

	path, err := g.FindPath(mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{50, 0, 50})
	require.ErrorIs(t, err, ErrOutsideGrid)
	assert.Equal(t, PathInvalid, path.Status)

	path, err = g.FindPath(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0.5, 0, 0.5})
	require.ErrorIs(t, err, ErrOutsideGrid)
	assert.Equal(t, PathInvalid, path.Status)
}

func TestFindPathStartInWall(t *testing.T) {
	g := mustLayout(t, wallLayout)

	path, err := g.FindPath(mgl64.Vec3{1.5, 0, 1.5}, mgl64.Vec3{0.5, 0, 0.5})
	require.NoError(t, err)
	assert.Equal(t, PathInvalid, path.Status)
	assert.Empty(t, path.Waypoints)
}

func TestHeuristic(t *testing.T) {
	assert.Equal(t, 0.0, heuristic(Cell{}, Cell{}))
	assert.InDelta(t, 10.0, heuristic(Cell{}, Cell{X: 10}), 0.001)
	assert.InDelta(t, 14.142, heuristic(Cell{}, Cell{X: 10, Z: 10}), 0.01)
}

func TestNodeHeap(t *testing.T) {
	h := &nodeHeap{}
	heap.Init(h)

	heap.Push(h, &gridNode{cell: Cell{X: 1}, fCost: 10.0})
	heap.Push(h, &gridNode{cell: Cell{X: 2}, fCost: 5.0})
	heap.Push(h, &gridNode{cell: Cell{X: 3}, fCost: 15.0})
	assert.Equal(t, 3, h.Len())

	first := heap.Pop(h).(*gridNode)
	assert.Equal(t, 2, first.cell.X)
	assert.Equal(t, -1, first.index)

	second := heap.Pop(h).(*gridNode)
	assert.Equal(t, 1, second.cell.X)
}

func TestPathStatusString(t *testing.T) {
	assert.Equal(t, "COMPLETE", PathComplete.String())
	assert.Equal(t, "PARTIAL", PathPartial.String())
	assert.Equal(t, "INVALID", PathInvalid.String())
	assert.Equal(t, "UNKNOWN", PathStatus(42).String())
}

func BenchmarkFindPath(b *testing.B) {
	g, err := NewGrid(64, 64, 1, mgl64.Vec3{})
	if err != nil {
		b.Fatal(err)
	}
	for z := 1; z < 63; z++ {
		g.SetBlocked(Cell{X: 32, Z: z}, true)
	}
	src := mgl64.Vec3{2.5, 0, 32.5}
	dst := mgl64.Vec3{60.5, 0, 32.5}

	b.ResetTimer()
	for b.Loop() {
		_, _ = g.FindPath(src, dst)
	}
}
