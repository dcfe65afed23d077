// Package camera maps field coordinates onto surfaces that draw in coarser
// units than pixels, such as terminal cells.
package camera

import "math"

// Viewport maps a pixel-space field onto a grid of cells.
// Each cell covers CellW x CellH field pixels.
type Viewport struct {
	// Grid dimensions in cells
	Cols, Rows int

	// Field pixels per cell
	CellW, CellH float64
}

// New creates a viewport over a cols x rows grid. Non-positive cell sizes
// default to 1.
func New(cols, rows int, cellW, cellH float64) *Viewport {
	if cellW <= 0 {
		cellW = 1
	}
	if cellH <= 0 {
		cellH = 1
	}
	v := &Viewport{CellW: cellW, CellH: cellH}
	v.Resize(cols, rows)
	return v
}

// Resize changes the grid dimensions. Negative sizes are treated as 0.
func (v *Viewport) Resize(cols, rows int) {
	v.Cols = max(0, cols)
	v.Rows = max(0, rows)
}

// FieldSize returns the field dimensions in pixels covered by the grid.
func (v *Viewport) FieldSize() (w, h float64) {
	return float64(v.Cols) * v.CellW, float64(v.Rows) * v.CellH
}

// FieldToCell converts field coordinates to a cell. ok is false when the
// point falls outside the grid.
func (v *Viewport) FieldToCell(x, y float64) (col, row int, ok bool) {
	fc := math.Floor(x / v.CellW)
	fr := math.Floor(y / v.CellH)
	// The far edge belongs to the last cell
	if x == float64(v.Cols)*v.CellW {
		fc--
	}
	if y == float64(v.Rows)*v.CellH {
		fr--
	}
	if !(fc >= 0 && fc < float64(v.Cols) && fr >= 0 && fr < float64(v.Rows)) {
		return 0, 0, false
	}
	return int(fc), int(fr), true
}

// CellToField returns the field coordinates of a cell's center.
func (v *Viewport) CellToField(col, row int) (x, y float64) {
	x = (float64(col) + 0.5) * v.CellW
	y = (float64(row) + 0.5) * v.CellH
	return x, y
}

// Clamp returns the nearest in-grid cell for a field position.
func (v *Viewport) Clamp(x, y float64) (col, row int) {
	col = clamp(int(math.Floor(x/v.CellW)), 0, v.Cols-1)
	row = clamp(int(math.Floor(y/v.CellH)), 0, v.Rows-1)
	return col, row
}

// clamp restricts a value to a range. An empty range yields lo.
func clamp(x, lo, hi int) int {
	if x > hi {
		x = hi
	}
	if x < lo {
		return lo
	}
	return x
}
