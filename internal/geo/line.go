package geo

// LineIterator implements the 2D Bresenham line algorithm.
// Steps through grid cells along a line from start to end, both inclusive.
type LineIterator struct {
	current, target Cell
	deltaX, deltaZ  int
	stepX, stepZ    int
	err             int
	dominantX       bool
	started         bool
}

// NewLineIterator creates a Bresenham line iterator between two cells.
func NewLineIterator(start, end Cell) *LineIterator {
	it := &LineIterator{
		current: start,
		target:  end,
		deltaX:  absInt(end.X - start.X),
		deltaZ:  absInt(end.Z - start.Z),
		stepX:   1,
		stepZ:   1,
	}
	if end.X < start.X {
		it.stepX = -1
	}
	if end.Z < start.Z {
		it.stepZ = -1
	}

	it.dominantX = it.deltaX >= it.deltaZ
	if it.dominantX {
		it.err = it.deltaX / 2
	} else {
		it.err = it.deltaZ / 2
	}
	return it
}

// Next advances the iterator to the next cell.
// The first call yields the start cell; returns false once the target was yielded.
func (it *LineIterator) Next() bool {
	if !it.started {
		it.started = true
		return true
	}
	if it.current == it.target {
		return false
	}

	if it.dominantX {
		it.current.X += it.stepX
		it.err += it.deltaZ
		if it.err >= it.deltaX {
			it.current.Z += it.stepZ
			it.err -= it.deltaX
		}
	} else {
		it.current.Z += it.stepZ
		it.err += it.deltaX
		if it.err >= it.deltaZ {
			it.current.X += it.stepX
			it.err -= it.deltaZ
		}
	}
	return true
}

// Cell returns the current cell.
func (it *LineIterator) Cell() Cell {
	return it.current
}
