package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ambient/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title       string
	Particles   int
	Cap         int
	Connections int
	Tick        int
	FPS         int32
	Paused      bool
	Failures    int
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewHUD creates a HUD anchored at (x, y).
func NewHUD(x, y, width int32) *HUD {
	return &HUD{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// Draw renders the HUD panel and returns the Y position below it.
func (h *HUD) Draw(data HUDData) int32 {
	r := h.renderer
	padding := r.Theme.Padding
	height := r.Theme.LineHeight*6 + padding*2
	r.DrawPanel(h.x, h.y, h.width, height)

	x := h.x + padding
	y := h.y + padding

	rl.DrawText(data.Title, x, y, r.Theme.HeaderFontSize, rl.White)
	y += r.Theme.LineHeight + 2

	y = r.DrawFillBar(x, y, "Particles", data.Particles, data.Cap, h.width-padding*2)
	y = r.DrawLabelValue(x, y, "Connections", fmt.Sprintf("%d", data.Connections))
	y = r.DrawLabelValue(x, y, "Tick", fmt.Sprintf("%d | %d FPS", data.Tick, data.FPS))

	status, color := "Running", rl.Green
	switch {
	case data.Paused:
		status, color = "PAUSED", rl.Yellow
	case data.Failures > 0:
		status, color = fmt.Sprintf("Failing (%d)", data.Failures), rl.Red
	}
	rl.DrawText(status, x, y, r.Theme.FontSize, color)

	return h.y + height
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-phase tick timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Tick Timing", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  Max: %s", stats.AvgTickDuration.Round(time.Microsecond),
		stats.MaxTickDuration.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16

	for i, avg := range stats.PhaseAvg {
		pct := stats.PhasePct[i]
		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", telemetry.Phase(i), avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
