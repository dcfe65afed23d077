package systems

import "math"

// maxGridCells bounds the grid size; tiny cells over a large viewport fall
// back to the brute-force search.
const maxGridCells = 1 << 16

// SpatialGrid buckets particle indices into square cells over a bounded
// viewport. Positions outside the viewport land in the nearest edge cell.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]int
}

// NewSpatialGrid creates a grid covering width x height. It returns nil when
// the cell size is not positive or the grid would be too large.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	g := &SpatialGrid{}
	if !g.Reset(width, height, cellSize) {
		return nil
	}
	return g
}

// Reset resizes the grid and empties it, keeping cell capacity where the
// shape is unchanged. It reports whether the grid is usable.
func (g *SpatialGrid) Reset(width, height, cellSize float64) bool {
	if cellSize <= 0 || width < 0 || height < 0 {
		return false
	}
	fc := math.Floor(width/cellSize) + 1
	fr := math.Floor(height/cellSize) + 1
	if !(fc*fr <= maxGridCells) {
		return false
	}
	cols, rows := int(fc), int(fr)

	if cols != g.cols || rows != g.rows {
		g.cells = make([][]int, cols*rows)
		for i := range g.cells {
			g.cells[i] = make([]int, 0, 8)
		}
	} else {
		g.Clear()
	}
	g.cellSize = cellSize
	g.cols = cols
	g.rows = rows
	return true
}

// Clear removes all indices from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds a particle index at the given position.
func (g *SpatialGrid) Insert(idx int, x, y float64) {
	col, row := g.cellCoords(x, y)
	cell := row*g.cols + col
	g.cells[cell] = append(g.cells[cell], idx)
}

// ForEachNear calls fn for every index stored in the 3x3 block of cells
// around (x, y). With cell size equal to the query radius this covers every
// index within that radius.
func (g *SpatialGrid) ForEachNear(x, y float64, fn func(idx int)) {
	col, row := g.cellCoords(x, y)
	for dr := -1; dr <= 1; dr++ {
		r := row + dr
		if r < 0 || r >= g.rows {
			continue
		}
		for dc := -1; dc <= 1; dc++ {
			c := col + dc
			if c < 0 || c >= g.cols {
				continue
			}
			for _, idx := range g.cells[r*g.cols+c] {
				fn(idx)
			}
		}
	}
}

// cellCoords returns the clamped cell column and row for a position.
func (g *SpatialGrid) cellCoords(x, y float64) (col, row int) {
	col = clampIndex(x/g.cellSize, g.cols)
	row = clampIndex(y/g.cellSize, g.rows)
	return col, row
}

func clampIndex(v float64, n int) int {
	if v < 0 || v != v {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}
