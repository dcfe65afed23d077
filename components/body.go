package components

import "image/color"

// Appearance holds the visual properties fixed at creation.
type Appearance struct {
	Radius float64
	Color  color.RGBA
}
