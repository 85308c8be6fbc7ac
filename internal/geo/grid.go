package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrOutsideGrid is returned when a query point lies outside the grid.
var ErrOutsideGrid = errors.New("point outside navigation grid")

// Grid is a 2.5D navigation grid over the X/Z plane.
// Each cell is either a wall or floor with a height; movement between
// neighbouring floor cells is allowed when the height difference is at most maxStep.
type Grid struct {
	origin   mgl64.Vec3 // world position of the corner of cell (0, 0)
	cellSize float64
	width    int // cells along X
	depth    int // cells along Z
	maxStep  float64

	walkable []bool
	height   []float64
}

// NewGrid creates a grid of width×depth floor cells at height origin.Y().
func NewGrid(width, depth int, cellSize float64, origin mgl64.Vec3) (*Grid, error) {
	if width <= 0 || depth <= 0 {
		return nil, fmt.Errorf("grid size %dx%d: must be positive", width, depth)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("cell size %v: must be positive", cellSize)
	}

	g := &Grid{
		origin:   origin,
		cellSize: cellSize,
		width:    width,
		depth:    depth,
		maxStep:  DefaultMaxStep,
		walkable: make([]bool, width*depth),
		height:   make([]float64, width*depth),
	}
	for i := range g.walkable {
		g.walkable[i] = true
		g.height[i] = origin.Y()
	}
	return g, nil
}

// ParseLayout builds a grid from an ASCII map.
// '#' is a wall, '.' is floor at origin height, a digit is floor raised by that many units.
// The first line is the northern edge (highest Z); columns run along +X.
// Blank leading/trailing lines are ignored; all rows must have equal length.
func ParseLayout(layout string, cellSize float64, origin mgl64.Vec3) (*Grid, error) {
	lines := strings.Split(strings.Trim(layout, "\n"), "\n")
	rows := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		rows = append(rows, l)
	}
	if len(rows) == 0 {
		return nil, errors.New("parse layout: empty")
	}

	width := len(rows[0])
	g, err := NewGrid(width, len(rows), cellSize, origin)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("parse layout: row %d has %d cells, want %d", r, len(row), width)
		}
		z := len(rows) - 1 - r
		for x, ch := range []byte(row) {
			c := Cell{X: x, Z: z}
			switch {
			case ch == LayoutWall:
				g.SetBlocked(c, true)
			case ch == LayoutFloor:
			case ch >= '0' && ch <= '9':
				g.SetHeight(c, origin.Y()+float64(ch-'0'))
			default:
				return nil, fmt.Errorf("parse layout: row %d col %d: unexpected %q", r, x, ch)
			}
		}
	}
	return g, nil
}

// SetMaxStep sets the walkable height difference between neighbours.
func (g *Grid) SetMaxStep(step float64) {
	g.maxStep = step
}

// SetBlocked marks a cell as wall (true) or floor (false). Out-of-range cells are ignored.
func (g *Grid) SetBlocked(c Cell, blocked bool) {
	if !g.InBounds(c) {
		return
	}
	g.walkable[g.index(c)] = !blocked
}

// SetHeight sets a cell's floor height. Out-of-range cells are ignored.
func (g *Grid) SetHeight(c Cell, h float64) {
	if !g.InBounds(c) {
		return
	}
	g.height[g.index(c)] = h
}

// Width returns the number of cells along X.
func (g *Grid) Width() int { return g.width }

// Depth returns the number of cells along Z.
func (g *Grid) Depth() int { return g.depth }

// CellSize returns the cell edge length in world units.
func (g *Grid) CellSize() float64 { return g.cellSize }

// InBounds reports whether c addresses a grid cell.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Z >= 0 && c.X < g.width && c.Z < g.depth
}

// CellAt converts a world position to the cell containing it.
func (g *Grid) CellAt(p mgl64.Vec3) (Cell, bool) {
	c := g.cellOf(p)
	return c, g.InBounds(c)
}

// cellOf converts without bounds checking (used for ray ends past the edge).
func (g *Grid) cellOf(p mgl64.Vec3) Cell {
	return Cell{
		X: int(math.Floor((p.X() - g.origin.X()) / g.cellSize)),
		Z: int(math.Floor((p.Z() - g.origin.Z()) / g.cellSize)),
	}
}

// Center returns the world position of a cell's center at its floor height.
func (g *Grid) Center(c Cell) mgl64.Vec3 {
	h := g.origin.Y()
	if g.InBounds(c) {
		h = g.height[g.index(c)]
	}
	return mgl64.Vec3{
		g.origin.X() + (float64(c.X)+0.5)*g.cellSize,
		h,
		g.origin.Z() + (float64(c.Z)+0.5)*g.cellSize,
	}
}

// Walkable reports whether c is an in-bounds floor cell.
func (g *Grid) Walkable(c Cell) bool {
	return g.InBounds(c) && g.walkable[g.index(c)]
}

// NSWE returns the directions c may be left through.
// A direction is open when the neighbour is walkable and within maxStep height.
func (g *Grid) NSWE(c Cell) byte {
	if !g.Walkable(c) {
		return 0
	}
	h := g.height[g.index(c)]

	var nswe byte
	for _, d := range cardinalDirs {
		n := Cell{X: c.X + d.dx, Z: c.Z + d.dz}
		if !g.Walkable(n) {
			continue
		}
		if math.Abs(g.height[g.index(n)]-h) > g.maxStep {
			continue
		}
		nswe |= d.flag
	}
	return nswe
}

// canStep reports whether a single move between adjacent cells is allowed.
// Diagonal moves require both cardinal components open on both sides (no corner cutting).
func (g *Grid) canStep(from, to Cell) bool {
	dir := ComputeNSWE(from, to)
	if dir == 0 {
		return true
	}
	nswe := g.NSWE(from)
	if nswe&dir != dir {
		return false
	}
	if !isDiagonal(dir) {
		return true
	}
	viaX := Cell{X: to.X, Z: from.Z}
	viaZ := Cell{X: from.X, Z: to.Z}
	return g.NSWE(viaX)&ComputeNSWE(viaX, to) != 0 &&
		g.NSWE(viaZ)&ComputeNSWE(viaZ, to) != 0
}

// CanMoveToTarget checks whether a straight walk between two world positions
// stays on walkable cells with legal steps.
func (g *Grid) CanMoveToTarget(from, to mgl64.Vec3) bool {
	start, ok := g.CellAt(from)
	if !ok || !g.Walkable(start) {
		return false
	}
	end, ok := g.CellAt(to)
	if !ok || !g.Walkable(end) {
		return false
	}
	return g.walkLine(start, end) == walkClear
}

type walkResult int

const (
	walkClear walkResult = iota
	walkBlocked
	walkOutside
)

// walkLine follows a Bresenham line from start to end and reports the first obstruction.
func (g *Grid) walkLine(start, end Cell) walkResult {
	it := NewLineIterator(start, end)
	it.Next() // start cell
	prev := it.Cell()
	for it.Next() {
		cur := it.Cell()
		if !g.InBounds(cur) {
			return walkOutside
		}
		if !g.canStep(prev, cur) {
			return walkBlocked
		}
		prev = cur
	}
	return walkClear
}

func (g *Grid) index(c Cell) int {
	return c.Z*g.width + c.X
}

type cardinalDir struct {
	dx, dz int
	flag   byte
}

// N, E, S, W.
var cardinalDirs = [4]cardinalDir{
	{0, 1, NSWENorth},
	{1, 0, NSWEEast},
	{0, -1, NSWESouth},
	{-1, 0, NSWEWest},
}
