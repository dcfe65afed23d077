package terminal

import (
	"image/color"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/ambient/camera"
)

const (
	lineGlyph     = '·'
	smallGlyph    = '•'
	particleGlyph = '●'
)

// CellSurface draws the field onto a tcell screen. Field pixels map to cells
// through a camera.Viewport; lines are stippled cell runs and particles are
// single glyphs. Translucency is approximated by blending toward the
// background color.
type CellSurface struct {
	screen tcell.Screen
	view   *camera.Viewport

	bg      colorful.Color
	bgColor tcell.Color
}

// NewCellSurface creates a surface over screen using view for the mapping.
func NewCellSurface(screen tcell.Screen, view *camera.Viewport) *CellSurface {
	return &CellSurface{
		screen:  screen,
		view:    view,
		bgColor: tcell.ColorBlack,
	}
}

// Size returns the field size covered by the screen.
func (s *CellSurface) Size() (w, h float64) {
	return s.view.FieldSize()
}

// Clear fills every cell with the background color.
func (s *CellSurface) Clear(bg color.RGBA) {
	s.bg = toColorful(bg)
	s.bgColor = tcellColor(s.bg)
	s.screen.Fill(' ', tcell.StyleDefault.Background(s.bgColor))
}

// DrawLine plots the cells between the two endpoints. Width is ignored;
// a cell is the thinnest line a terminal can show.
func (s *CellSurface) DrawLine(x1, y1, x2, y2, width float64, c color.RGBA, alpha float64) {
	if alpha <= 0 || s.empty() {
		return
	}
	style := s.style(c, alpha)

	col, row := s.view.Clamp(x1, y1)
	endCol, endRow := s.view.Clamp(x2, y2)

	// Bresenham
	dx, sx := abs(endCol-col), sign(endCol-col)
	dy, sy := -abs(endRow-row), sign(endRow-row)
	e := dx + dy
	for {
		s.screen.SetContent(col, row, lineGlyph, nil, style)
		if col == endCol && row == endRow {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			col += sx
		}
		if e2 <= dx {
			e += dx
			row += sy
		}
	}
}

// FillCircle marks the cell containing the center. Particles outside the
// grid are skipped.
func (s *CellSurface) FillCircle(x, y, r float64, c color.RGBA, alpha float64) {
	if alpha <= 0 {
		return
	}
	col, row, ok := s.view.FieldToCell(x, y)
	if !ok {
		return
	}
	glyph := smallGlyph
	if r >= 2 {
		glyph = particleGlyph
	}
	s.screen.SetContent(col, row, glyph, nil, s.style(c, alpha))
}

func (s *CellSurface) empty() bool {
	return s.view.Cols == 0 || s.view.Rows == 0
}

func (s *CellSurface) style(c color.RGBA, alpha float64) tcell.Style {
	fg := s.bg.BlendRgb(toColorful(c), min(alpha, 1))
	return tcell.StyleDefault.Foreground(tcellColor(fg)).Background(s.bgColor)
}

func toColorful(c color.RGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func tcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
