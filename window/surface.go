package window

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ambient/renderer"
)

// Surface draws through raylib immediate-mode calls. It must only be used
// between rl.BeginDrawing and rl.EndDrawing.
type Surface struct {
	// Origin in window pixels; non-zero for an inset panel
	x, y float64

	width, height float64
	panel         bool
}

// NewSurface creates a surface covering the whole window.
func NewSurface(width, height float64) *Surface {
	return &Surface{width: width, height: height}
}

// NewPanelSurface creates a surface inset at (x, y). Clearing fills only
// the panel rectangle; callers clip overdraw with rl.BeginScissorMode.
func NewPanelSurface(x, y, width, height float64) *Surface {
	return &Surface{x: x, y: y, width: width, height: height, panel: true}
}

func (s *Surface) Size() (w, h float64) { return s.width, s.height }

// Resize records the new size.
func (s *Surface) Resize(w, h float64) {
	s.width, s.height = w, h
}

func (s *Surface) Clear(bg color.RGBA) {
	if s.panel {
		rl.DrawRectangle(int32(s.x), int32(s.y), int32(s.width), int32(s.height), rlColor(bg, 1))
		return
	}
	rl.ClearBackground(rlColor(bg, 1))
}

func (s *Surface) DrawLine(x1, y1, x2, y2, width float64, c color.RGBA, alpha float64) {
	rl.DrawLineEx(s.point(x1, y1), s.point(x2, y2), float32(width), rlColor(c, alpha))
}

func (s *Surface) FillCircle(x, y, r float64, c color.RGBA, alpha float64) {
	rl.DrawCircleV(s.point(x, y), float32(r), rlColor(c, alpha))
}

func (s *Surface) point(x, y float64) rl.Vector2 {
	return rl.Vector2{X: float32(s.x + x), Y: float32(s.y + y)}
}

func rlColor(c color.RGBA, alpha float64) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: renderer.ScaleAlpha(c, alpha)}
}
