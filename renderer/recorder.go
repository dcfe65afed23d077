package renderer

import "image/color"

// OpKind identifies a recorded draw call.
type OpKind int

const (
	OpClear OpKind = iota
	OpLine
	OpCircle
)

func (k OpKind) String() string {
	switch k {
	case OpClear:
		return "clear"
	case OpLine:
		return "line"
	case OpCircle:
		return "circle"
	}
	return "unknown"
}

// Op is one recorded draw call. Unused coordinates are zero.
type Op struct {
	Kind           OpKind
	X1, Y1, X2, Y2 float64
	Radius         float64
	Width          float64
	Color          color.RGBA
	Alpha          float64
}

// Recorder is an in-memory surface that keeps every draw call of the
// current frame. Clear starts a new frame.
type Recorder struct {
	Width, Height float64
	Ops           []Op
}

// NewRecorder creates a recorder of the given size.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{Width: width, Height: height}
}

func (r *Recorder) Size() (float64, float64) { return r.Width, r.Height }

func (r *Recorder) Resize(width, height float64) {
	r.Width, r.Height = width, height
}

func (r *Recorder) Clear(bg color.RGBA) {
	r.Ops = append(r.Ops[:0], Op{Kind: OpClear, Color: bg, Alpha: 1})
}

func (r *Recorder) DrawLine(x1, y1, x2, y2, width float64, c color.RGBA, alpha float64) {
	r.Ops = append(r.Ops, Op{Kind: OpLine, X1: x1, Y1: y1, X2: x2, Y2: y2, Width: width, Color: c, Alpha: alpha})
}

func (r *Recorder) FillCircle(x, y, radius float64, c color.RGBA, alpha float64) {
	r.Ops = append(r.Ops, Op{Kind: OpCircle, X1: x, Y1: y, Radius: radius, Color: c, Alpha: alpha})
}

// Count returns the number of recorded ops of a kind.
func (r *Recorder) Count(kind OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
