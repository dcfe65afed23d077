// Field tuning tool - live particle preview with parameter sliders.
//
// Usage: go run ./cmd/tunepreview [config.yaml]
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/game"
	"github.com/pthm-cable/ambient/window"
)

const (
	windowWidth  = 1180
	windowHeight = 720
	previewW     = 760
	previewH     = 700
	panelX       = previewW + 20
	panelWidth   = windowWidth - panelX - 10
)

// slider binds one config parameter to a raygui SliderBar.
type slider struct {
	label    string
	min, max float32
	format   string
	get      func(*config.Config) float64
	set      func(*config.Config, float64)
}

var sliders = []slider{
	{"Particle count", 0, 300, "%.0f",
		func(c *config.Config) float64 { return float64(c.Particles.Count) },
		func(c *config.Config, v float64) { c.Particles.Count = int(v) }},
	{"Gravity (px/step)", -0.05, 0.05, "%.3f",
		func(c *config.Config) float64 { return c.Physics.Gravity },
		func(c *config.Config, v float64) { c.Physics.Gravity = v }},
	{"Friction", 0.9, 1, "%.3f",
		func(c *config.Config) float64 { return c.Physics.Friction },
		func(c *config.Config, v float64) { c.Physics.Friction = v }},
	{"Bounce", 0, 1, "%.2f",
		func(c *config.Config) float64 { return c.Physics.Bounce },
		func(c *config.Config, v float64) { c.Physics.Bounce = v }},
	{"Connection distance", 0, 300, "%.0f",
		func(c *config.Config) float64 { return c.Connections.MaxDistance },
		func(c *config.Config, v float64) { c.Connections.MaxDistance = v }},
	{"Line alpha", 0, 1, "%.2f",
		func(c *config.Config) float64 { return c.Connections.LineAlpha },
		func(c *config.Config, v float64) { c.Connections.LineAlpha = v }},
	{"Repulsion force", 0, 2, "%.2f",
		func(c *config.Config) float64 { return c.Pointer.RepulsionForce },
		func(c *config.Config, v float64) { c.Pointer.RepulsionForce = v }},
	{"Attraction force", 0, 0.5, "%.3f",
		func(c *config.Config) float64 { return c.Pointer.AttractionForce },
		func(c *config.Config, v float64) { c.Pointer.AttractionForce = v }},
}

// preview is a loop drawing into the inset panel.
type preview struct {
	sched   *game.FrameScheduler
	loop    *game.Loop
	surface *window.Surface
}

func newPreview(cfg *config.Config) (*preview, error) {
	p := &preview{
		sched:   game.NewFrameScheduler(),
		surface: window.NewPanelSurface(10, 10, previewW, previewH),
	}
	loop, err := game.New(game.Options{Config: cfg, Surface: p.surface, Scheduler: p.sched, Seed: 1})
	if err != nil {
		return nil, err
	}
	if err := loop.Start(); err != nil {
		return nil, err
	}
	p.loop = loop
	return p, nil
}

func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	base, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := *base

	rl.InitWindow(windowWidth, windowHeight, "Ambient Field Tuning")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	p, err := newPreview(&cfg)
	if err != nil {
		slog.Error("failed to build preview", "error", err)
		os.Exit(1)
	}
	var status string

	for !rl.WindowShouldClose() {
		// Pointer and clicks inside the preview drive the field
		mouse := rl.GetMousePosition()
		fx, fy := float64(mouse.X-10), float64(mouse.Y-10)
		inside := fx >= 0 && fy >= 0 && fx <= previewW && fy <= previewH
		if inside {
			p.loop.OnPointerMove(fx, fy)
			if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
				p.loop.OnClick(fx, fy)
			}
		} else {
			p.loop.OnPointerLeave()
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.BeginScissorMode(10, 10, previewW, previewH)
		p.sched.RunFrame(time.Now())
		rl.EndScissorMode()
		rl.DrawRectangleLines(10, 10, previewW, previewH, rl.DarkGray)

		y := float32(10)
		rl.DrawText("Field Parameters", panelX, int32(y), 20, rl.DarkGray)
		y += 35

		next := cfg
		changed := false
		for _, s := range sliders {
			rl.DrawText(s.label, panelX, int32(y), 14, rl.Gray)
			y += 18
			cur := float32(s.get(&cfg))
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: y, Width: panelWidth - 80, Height: 20},
				"", "",
				cur, s.min, s.max,
			)
			rl.DrawText(fmt.Sprintf(s.format, cur), int32(panelX+panelWidth-70), int32(y+2), 16, rl.DarkGray)
			if v != cur {
				s.set(&next, float64(v))
				changed = true
			}
			y += 32
		}

		if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 30}, "Burst") {
			p.loop.TriggerExplosion(previewW/2, previewH/2)
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: y, Width: 120, Height: 30}, "Reset All") {
			next = *base
			changed = true
		}
		y += 45

		rl.DrawText(fmt.Sprintf("Particles: %d / %d", p.loop.Field().Len(), p.loop.Field().Cap()), panelX, int32(y), 16, rl.DarkGray)
		y += 25

		// Output YAML
		block := tuningYAML(&cfg)
		for _, line := range strings.Split(block, "\n") {
			rl.DrawText(line, panelX, int32(y), 14, rl.Gray)
			y += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", panelX, windowHeight-30, 12, rl.LightGray)
		if status != "" {
			rl.DrawText(status, panelX, windowHeight-50, 12, rl.Red)
		}
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(block)
		}

		rl.EndDrawing()

		if changed {
			// Rebuild so count and cap changes take effect
			if err := next.Validate(); err != nil {
				status = err.Error()
				continue
			}
			np, err := newPreview(&next)
			if err != nil {
				status = err.Error()
				continue
			}
			cfg, p, status = next, np, ""
		}
	}
}

// tuningYAML formats the tunable parameters as config.yaml sections.
func tuningYAML(c *config.Config) string {
	return fmt.Sprintf(`physics:
  gravity: %.3f
  friction: %.3f
  bounce: %.2f
particles:
  count: %d
connections:
  max_distance: %.0f
  line_alpha: %.2f
pointer:
  repulsion_force: %.2f
  attraction_force: %.3f`,
		c.Physics.Gravity, c.Physics.Friction, c.Physics.Bounce,
		c.Particles.Count,
		c.Connections.MaxDistance, c.Connections.LineAlpha,
		c.Pointer.RepulsionForce, c.Pointer.AttractionForce)
}
