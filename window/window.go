// Package window runs the particle field in a raylib window with a HUD and
// on-screen controls.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/game"
	"github.com/pthm-cable/ambient/ui"
)

const controlsLegend = "[Click] Burst  [Space] Pause  [H] HUD  [F11] Fullscreen  [Esc] Quit"

// Options configures the window host.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Seed     int64
	RunID    string
	MaxTicks int // 0 = until the window closes
	OnReport func(game.Report)
}

// Host owns the raylib window and drives one loop tick per rendered frame.
type Host struct {
	cfg     *config.Config
	log     *slog.Logger
	surface *Surface
	sched   *game.FrameScheduler
	loop    *game.Loop

	hud      *ui.HUD
	perf     *ui.PerfPanel
	controls *ui.ControlsPanel
	showHUD  bool

	paused    bool
	cursorOn  bool
	lastMouse rl.Vector2
}

// Run opens the window and blocks until it is closed, ctx is cancelled,
// MaxTicks is reached or the loop halts.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
	defer rl.CloseWindow()
	rl.SetExitKey(rl.KeyEscape)
	if cfg.Screen.TargetFPS > 0 {
		rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	}

	h, err := newHost(cfg, opts, logger)
	if err != nil {
		return err
	}
	if err := h.loop.Start(); err != nil {
		return err
	}
	defer h.loop.Stop()

	logger.Info("window host started", "width", cfg.Screen.Width, "height", cfg.Screen.Height)
	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		if err := h.frame(time.Now()); err != nil {
			return err
		}
		if opts.MaxTicks > 0 && h.loop.Ticks() >= opts.MaxTicks {
			logger.Info("max ticks reached", "ticks", h.loop.Ticks())
			return nil
		}
	}
	return nil
}

func newHost(cfg *config.Config, opts Options, logger *slog.Logger) (*Host, error) {
	w, hh := float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight())
	h := &Host{
		cfg:      cfg,
		log:      logger,
		surface:  NewSurface(w, hh),
		sched:    game.NewFrameScheduler(),
		hud:      ui.NewHUD(10, 10, 260),
		perf:     ui.NewPerfPanel(10, 130),
		controls: ui.NewControlsPanel(10, int32(hh)-80),
		showHUD:  true,
	}

	loop, err := game.New(game.Options{
		Config:    cfg,
		Surface:   h.surface,
		Scheduler: h.sched,
		Logger:    logger,
		Seed:      opts.Seed,
		RunID:     opts.RunID,
		OnReport:  opts.OnReport,
	})
	if err != nil {
		return nil, err
	}
	h.loop = loop
	return h, nil
}

// frame handles input, then ticks and draws inside one raylib frame.
func (h *Host) frame(now time.Time) error {
	h.handleInput()

	rl.BeginDrawing()
	if h.paused {
		// A stopped loop does not draw; repaint the frozen field
		h.loop.Redraw()
	} else {
		h.sched.RunFrame(now)
	}

	var actions ui.Actions
	if h.showHUD {
		fails, _ := h.loop.Failures()
		h.hud.Draw(ui.HUDData{
			Title:       h.cfg.Screen.Title,
			Particles:   h.loop.Field().Len(),
			Cap:         h.loop.Field().Cap(),
			Connections: h.loop.Connections(),
			Tick:        h.loop.Ticks(),
			FPS:         rl.GetFPS(),
			Paused:      h.paused,
			Failures:    fails,
		})
		h.perf.Draw(h.loop.Perf())
		actions = h.controls.Draw(h.paused)
		h.hud.DrawControls(int32(rl.GetScreenHeight()), controlsLegend)
	}
	rl.EndDrawing()

	if actions.Burst {
		w, hh := h.surface.Size()
		h.loop.TriggerExplosion(w/2, hh/2)
	}
	if actions.TogglePause {
		h.togglePause()
	}

	if !h.paused && h.loop.State() != game.StateRunning {
		_, err := h.loop.Failures()
		return fmt.Errorf("%w: %v", game.ErrLoopHalted, err)
	}
	return nil
}

// handleInput polls raylib input and forwards it to the loop.
func (h *Host) handleInput() {
	h.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		h.togglePause()
	}
	if rl.IsKeyPressed(rl.KeyH) {
		h.showHUD = !h.showHUD
	}

	onScreen := rl.IsCursorOnScreen()
	if onScreen != h.cursorOn {
		h.cursorOn = onScreen
		if onScreen {
			h.loop.OnPointerEnter()
		} else {
			h.loop.OnPointerLeave()
		}
	}
	if !onScreen {
		return
	}

	mouse := rl.GetMousePosition()
	if mouse != h.lastMouse {
		h.lastMouse = mouse
		h.loop.OnPointerMove(float64(mouse.X), float64(mouse.Y))
	}
	overControls := h.showHUD && h.controls.Contains(mouse.X, mouse.Y)
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !overControls {
		h.loop.OnClick(float64(mouse.X), float64(mouse.Y))
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (h *Host) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float64(rl.GetScreenWidth())
	hh := float64(rl.GetScreenHeight())
	if cw, ch := h.surface.Size(); w == cw && hh == ch {
		return
	}
	h.loop.OnResize(w, hh)
	h.controls.SetPosition(10, int32(hh)-80)
	h.log.Debug("window resized", "width", w, "height", hh)
}

func (h *Host) togglePause() {
	if h.paused {
		if err := h.loop.Start(); err != nil {
			h.log.Warn("resume failed", "error", err)
			return
		}
		h.paused = false
		return
	}
	h.loop.Stop()
	h.paused = true
}
