package geo

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PathStatus describes how far a path query got.
type PathStatus int

const (
	// PathComplete - the path reaches the destination
	PathComplete PathStatus = iota
	// PathPartial - the path ends at the closest reachable point
	PathPartial
	// PathInvalid - no usable path
	PathInvalid
)

// String returns human-readable status
func (s PathStatus) String() string {
	switch s {
	case PathComplete:
		return "COMPLETE"
	case PathPartial:
		return "PARTIAL"
	case PathInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// Path is a nav-mesh query result. Waypoints exclude the source and,
// for complete paths, end at the destination.
type Path struct {
	Waypoints []mgl64.Vec3
	Status    PathStatus
}

// FindPath finds a path from src to dst using A* over grid cells.
// An unreachable destination yields a partial path to the closest reached cell.
// Points outside the grid yield PathInvalid and ErrOutsideGrid.
func (g *Grid) FindPath(src, dst mgl64.Vec3) (Path, error) {
	start, ok := g.CellAt(src)
	if !ok {
		return Path{Status: PathInvalid}, fmt.Errorf("find path from %v: %w", src, ErrOutsideGrid)
	}
	goal, ok := g.CellAt(dst)
	if !ok {
		return Path{Status: PathInvalid}, fmt.Errorf("find path to %v: %w", dst, ErrOutsideGrid)
	}
	if !g.Walkable(start) {
		return Path{Status: PathInvalid}, nil
	}

	// Same cell — already there
	if start == goal {
		return Path{Waypoints: []mgl64.Vec3{dst}, Status: PathComplete}, nil
	}

	result, reached := g.astar(start, goal)
	if result.parent == nil {
		// No step possible
		return Path{Status: PathInvalid}, nil
	}

	points := make([]mgl64.Vec3, 0, 32)
	for n := result; n != nil; n = n.parent {
		points = append(points, g.Center(n.cell))
	}
	// Reverse (A* builds path backward)
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	points[0] = src
	status := PathPartial
	if reached {
		points[len(points)-1] = dst
		status = PathComplete
	}

	// Anti-zigzag: remove unnecessary intermediate waypoints
	points = g.smoothPath(points)

	return Path{Waypoints: points[1:], Status: status}, nil
}

// smoothPath removes intermediate waypoints that can be skipped by walking straight.
// Runs up to 3 passes to progressively simplify the path.
func (g *Grid) smoothPath(path []mgl64.Vec3) []mgl64.Vec3 {
	for range 3 {
		if len(path) <= 2 {
			return path
		}

		changed := false
		smoothed := make([]mgl64.Vec3, 0, len(path))
		smoothed = append(smoothed, path[0])

		for i := 1; i < len(path)-1; i++ {
			prev := smoothed[len(smoothed)-1]
			next := path[i+1]

			if g.CanMoveToTarget(prev, next) {
				changed = true
				continue
			}
			smoothed = append(smoothed, path[i])
		}
		smoothed = append(smoothed, path[len(path)-1])
		path = smoothed

		if !changed {
			break
		}
	}
	return path
}

// gridNode represents a node in the A* search graph.
type gridNode struct {
	cell   Cell
	parent *gridNode
	gCost  float64 // Actual cost from start
	hCost  float64 // Heuristic cost to target
	fCost  float64 // gCost + hCost
	index  int     // heap index
}

// astar runs A* from start to goal. Returns the goal node and true when reached,
// otherwise the expanded node closest to goal and false.
func (g *Grid) astar(start, goal Cell) (*gridNode, bool) {
	first := &gridNode{cell: start, hCost: heuristic(start, goal)}
	first.fCost = first.hCost
	closest := first

	openList := &nodeHeap{}
	heap.Init(openList)
	heap.Push(openList, first)

	closed := make(map[Cell]struct{}, 256)

	for range MaxPathfindIterations {
		if openList.Len() == 0 {
			break
		}

		current := heap.Pop(openList).(*gridNode)
		if current.cell == goal {
			return current, true
		}

		if _, exists := closed[current.cell]; exists {
			continue
		}
		closed[current.cell] = struct{}{}

		if current.hCost < closest.hCost ||
			(current.hCost == closest.hCost && current.gCost < closest.gCost) {
			closest = current
		}

		g.expandNeighbors(current, goal, openList, closed)
	}

	return closest, false
}

// expandNeighbors adds valid adjacent cells to the open list.
func (g *Grid) expandNeighbors(current *gridNode, goal Cell, openList *nodeHeap, closed map[Cell]struct{}) {
	for _, dz := range [3]int{-1, 0, 1} {
		for _, dx := range [3]int{-1, 0, 1} {
			if dx == 0 && dz == 0 {
				continue
			}
			next := Cell{X: current.cell.X + dx, Z: current.cell.Z + dz}
			if _, exists := closed[next]; exists {
				continue
			}
			if !g.canStep(current.cell, next) {
				continue
			}

			weight := WeightCardinal
			if dx != 0 && dz != 0 {
				weight = WeightDiagonal
			}
			if g.NSWE(next) != NSWEAll {
				weight += WeightRough
			}

			node := &gridNode{
				cell:   next,
				parent: current,
				gCost:  current.gCost + weight,
				hCost:  heuristic(next, goal),
			}
			node.fCost = node.gCost + node.hCost
			heap.Push(openList, node)
		}
	}
}

// heuristic is the Euclidean distance in cells.
func heuristic(a, b Cell) float64 {
	dx := float64(a.X - b.X)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

// nodeHeap implements container/heap for A* open list (min-heap by fCost).
type nodeHeap []*gridNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].fCost < h[j].fCost }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *nodeHeap) Push(x any)        { n := x.(*gridNode); n.index = len(*h); *h = append(*h, n) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil // GC
	node.index = -1
	*h = old[:n-1]
	return node
}
