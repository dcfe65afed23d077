package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Actions reports which controls were activated this frame.
type Actions struct {
	Burst       bool
	TogglePause bool
}

// ControlsPanel renders the on-screen Burst and Pause buttons.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point lies over the panel, so clicks
// on a button are not also treated as field clicks.
func (c *ControlsPanel) Contains(x, y float32) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(rl.Vector2{X: x, Y: y}, c.bounds())
}

// Draw renders the buttons and returns what was pressed.
func (c *ControlsPanel) Draw(paused bool) Actions {
	var a Actions
	if !c.visible {
		return a
	}

	t := c.renderer.Theme
	b := c.bounds()
	c.renderer.DrawPanel(int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height))

	pad := float32(t.Padding)
	burst := rl.Rectangle{X: b.X + pad, Y: b.Y + pad, Width: t.ButtonWidth, Height: t.ButtonHeight}
	pause := burst
	pause.X += t.ButtonWidth + pad

	a.Burst = gui.Button(burst, "Burst")
	label := "Pause"
	if paused {
		label = "Resume"
	}
	a.TogglePause = gui.Button(pause, label)
	return a
}

func (c *ControlsPanel) bounds() rl.Rectangle {
	t := c.renderer.Theme
	pad := float32(t.Padding)
	return rl.Rectangle{
		X:      float32(c.x),
		Y:      float32(c.y),
		Width:  2*t.ButtonWidth + 3*pad,
		Height: t.ButtonHeight + 2*pad,
	}
}
