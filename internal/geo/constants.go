package geo

// NSWE direction bitmask constants.
// 4-bit mask of the directions a cell may be left through.
// North is +Z, East is +X.
const (
	NSWEEast  byte = 1 << 0 // 0x01
	NSWEWest  byte = 1 << 1 // 0x02
	NSWESouth byte = 1 << 2 // 0x04
	NSWENorth byte = 1 << 3 // 0x08
	NSWEAll   byte = 0x0F
)

// Composite NSWE directions.
const (
	NSWENorthEast = NSWENorth | NSWEEast // 0x09
	NSWENorthWest = NSWENorth | NSWEWest // 0x0A
	NSWESouthEast = NSWESouth | NSWEEast // 0x05
	NSWESouthWest = NSWESouth | NSWEWest // 0x06
)

// Pathfinding configuration.
const (
	MaxPathfindIterations = 7000

	// DefaultMaxStep is the largest height difference between neighbour cells
	// that still counts as walkable (world units).
	DefaultMaxStep = 0.6

	// A* step costs in cell units.
	WeightCardinal = 1.0
	WeightDiagonal = 1.41421356 // sqrt(2)
	WeightRough    = 0.5        // extra cost next to walls, keeps paths off corners
)

// Layout characters accepted by ParseLayout.
const (
	LayoutWall  = '#'
	LayoutFloor = '.'
)
