package geo

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/wayfinder/internal/model"
)

// Probe reports whether an obstacle lies within maxDistance of origin along
// the horizontal projection of direction. Leaving the grid counts as an obstacle.
// An origin outside the grid or a degenerate direction reports clear.
func (g *Grid) Probe(origin, direction mgl64.Vec3, maxDistance float64) bool {
	start, ok := g.CellAt(origin)
	if !ok || maxDistance <= 0 {
		return false
	}
	dir := model.Flatten(direction)
	if dir.Len() == 0 {
		return false
	}

	end := g.cellOf(origin.Add(dir.Normalize().Mul(maxDistance)))
	if start == end {
		return false
	}
	return g.walkLine(start, end) != walkClear
}
