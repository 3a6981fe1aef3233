// Package systems provides the per-being simulation rules: spatial lookup,
// target selection, behavior, combat, and the food pool.
package systems

// Neighbor holds a nearby snapshot slot with precomputed spatial data.
type Neighbor struct {
	Slot   int32
	DX, DY float64 // delta from query origin
	DistSq float64 // squared distance (avoid sqrt in hot path)
}

type gridEntry struct {
	slot int32
	x, y float64
}

// SpatialGrid provides O(1) neighbor lookups over snapshot slots using a
// cell-based grid. The arena is bounded, so cells do not wrap.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]gridEntry // flat grid of slot lists
}

// NewSpatialGrid creates a spatial grid covering the given arena size.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]gridEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]gridEntry, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all slots from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds a slot to the grid at the given position.
func (g *SpatialGrid) Insert(slot int32, x, y float64) {
	col, row := g.cellCoords(x, y)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], gridEntry{slot: slot, x: x, y: y})
}

// QueryRadiusInto appends every slot within radius of (x, y), excluding
// exclude, to dst and returns the updated slice. Reuse dst across calls to
// avoid allocations. The result set is exact; order follows cell layout.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float64, exclude int32) []Neighbor {
	if radius < 0 {
		return dst
	}
	minCol, minRow := g.cellCoords(x-radius, y-radius)
	maxCol, maxRow := g.cellCoords(x+radius, y+radius)
	radiusSq := radius * radius

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				if e.slot == exclude {
					continue
				}
				dx := e.x - x
				dy := e.y - y
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{Slot: e.slot, DX: dx, DY: dy, DistSq: distSq})
				}
			}
		}
	}

	return dst
}

// cellCoords returns the clamped cell column and row for a position.
func (g *SpatialGrid) cellCoords(x, y float64) (int, int) {
	col := int(x / g.cellSize)
	row := int(y / g.cellSize)
	if x < 0 {
		col = 0
	}
	if y < 0 {
		row = 0
	}

	// Clamp to valid range
	if col >= g.cols {
		col = g.cols - 1
	}
	if row >= g.rows {
		row = g.rows - 1
	}

	return col, row
}
