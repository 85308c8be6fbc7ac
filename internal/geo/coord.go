package geo

// Cell addresses one grid cell: X along world X, Z along world Z.
type Cell struct {
	X, Z int
}

// ComputeNSWE computes the NSWE direction from one cell to an adjacent one.
func ComputeNSWE(from, to Cell) byte {
	var nswe byte
	if to.X > from.X {
		nswe |= NSWEEast
	} else if to.X < from.X {
		nswe |= NSWEWest
	}
	if to.Z > from.Z {
		nswe |= NSWENorth
	} else if to.Z < from.Z {
		nswe |= NSWESouth
	}
	return nswe
}

// isDiagonal reports whether nswe combines two axes.
func isDiagonal(nswe byte) bool {
	return nswe == NSWENorthEast || nswe == NSWENorthWest ||
		nswe == NSWESouthEast || nswe == NSWESouthWest
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
