// Package terminal runs the particle field in a terminal with tcell.
package terminal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/ambient/camera"
	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/game"
)

// Default field pixels per terminal cell. Cells are roughly twice as tall
// as they are wide.
const (
	DefaultCellW = 8
	DefaultCellH = 16
)

// Options configures a terminal host.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Seed     int64
	RunID    string
	OnReport func(game.Report)

	// Field pixels per cell; 0 uses the defaults
	CellW, CellH float64
}

// Host owns the tcell screen and drives the loop from a single goroutine:
// frames on a ticker, input from an event channel.
type Host struct {
	cfg     *config.Config
	log     *slog.Logger
	screen  tcell.Screen
	view    *camera.Viewport
	surface *CellSurface
	sched   *game.FrameScheduler
	loop    *game.Loop

	paused  bool
	buttons tcell.ButtonMask
}

// New initializes screen and builds a loop sized to it. The screen is
// finalized if construction fails.
func New(screen tcell.Screen, opts Options) (*Host, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cw, ch := opts.CellW, opts.CellH
	if cw <= 0 {
		cw = DefaultCellW
	}
	if ch <= 0 {
		ch = DefaultCellH
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	screen.EnableMouse(tcell.MouseMotionEvents)
	screen.EnableFocus()
	screen.HideCursor()

	cols, rows := screen.Size()
	view := camera.New(cols, rows, cw, ch)
	surface := NewCellSurface(screen, view)
	sched := game.NewFrameScheduler()

	loop, err := game.New(game.Options{
		Config:    cfg,
		Surface:   surface,
		Scheduler: sched,
		Logger:    logger,
		Seed:      opts.Seed,
		RunID:     opts.RunID,
		OnReport:  opts.OnReport,
	})
	if err != nil {
		screen.Fini()
		return nil, err
	}

	return &Host{
		cfg:     cfg,
		log:     logger,
		screen:  screen,
		view:    view,
		surface: surface,
		sched:   sched,
		loop:    loop,
	}, nil
}

// Loop returns the driven loop.
func (h *Host) Loop() *game.Loop { return h.loop }

// Run draws frames until the user quits, ctx is cancelled or the loop halts.
func (h *Host) Run(ctx context.Context) error {
	if err := h.loop.Start(); err != nil {
		return err
	}
	defer h.loop.Stop()

	fps := h.cfg.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	quit := make(chan struct{})
	defer close(quit)
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	h.log.Info("terminal host started", "cols", h.view.Cols, "rows", h.view.Rows)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			if !h.handleEvent(ev) {
				return nil
			}

		case now := <-ticker.C:
			if err := h.frame(now); err != nil {
				return err
			}
		}
	}
}

// Close restores the terminal.
func (h *Host) Close() {
	h.screen.Fini()
}

func (h *Host) frame(now time.Time) error {
	h.sched.RunFrame(now)
	if !h.paused && h.loop.State() != game.StateRunning {
		_, err := h.loop.Failures()
		return fmt.Errorf("%w: %v", game.ErrLoopHalted, err)
	}
	h.screen.Show()
	return nil
}

// handleEvent applies one input event. It returns false when the user quits.
func (h *Host) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				h.togglePause()
			case 'b':
				w, hh := h.view.FieldSize()
				h.loop.TriggerExplosion(w/2, hh/2)
			}
		}

	case *tcell.EventMouse:
		col, row := ev.Position()
		x, y := h.view.CellToField(col, row)
		h.loop.OnPointerMove(x, y)
		// Click on press only, not while held
		if ev.Buttons()&tcell.Button1 != 0 && h.buttons&tcell.Button1 == 0 {
			h.loop.OnClick(x, y)
		}
		h.buttons = ev.Buttons()

	case *tcell.EventFocus:
		if ev.Focused {
			h.loop.OnPointerEnter()
		} else {
			h.loop.OnPointerLeave()
		}

	case *tcell.EventResize:
		cols, rows := ev.Size()
		h.view.Resize(cols, rows)
		h.loop.OnResize(h.view.FieldSize())
		h.screen.Sync()
	}
	return true
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
