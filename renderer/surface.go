// Package renderer draws the particle field onto a host-provided surface.
package renderer

import "image/color"

// Surface is a 2D drawing target sized in field pixels.
// Alpha arguments are in [0, 1] and multiply the color's own alpha.
type Surface interface {
	Size() (width, height float64)
	Clear(bg color.RGBA)
	DrawLine(x1, y1, x2, y2, width float64, c color.RGBA, alpha float64)
	FillCircle(x, y, radius float64, c color.RGBA, alpha float64)
}

// Resizer is implemented by surfaces the loop can resize on viewport changes.
type Resizer interface {
	Resize(width, height float64)
}

// Discard is a surface that draws nothing but counts calls.
// Headless runs use it to exercise the full draw path.
type Discard struct {
	Width, Height float64

	Clears  int
	Lines   int
	Circles int
}

func (d *Discard) Size() (float64, float64) { return d.Width, d.Height }

func (d *Discard) Clear(color.RGBA) { d.Clears++ }

func (d *Discard) DrawLine(_, _, _, _, _ float64, _ color.RGBA, _ float64) { d.Lines++ }

func (d *Discard) FillCircle(_, _, _ float64, _ color.RGBA, _ float64) { d.Circles++ }

// Resize updates the reported size.
func (d *Discard) Resize(width, height float64) {
	d.Width, d.Height = width, height
}

// Reset zeroes the counters.
func (d *Discard) Reset() {
	d.Clears, d.Lines, d.Circles = 0, 0, 0
}

// ScaleAlpha combines a color's alpha with an opacity in [0, 1].
func ScaleAlpha(c color.RGBA, alpha float64) uint8 {
	if alpha <= 0 {
		return 0
	}
	if alpha >= 1 {
		return c.A
	}
	return uint8(float64(c.A)*alpha + 0.5)
}
