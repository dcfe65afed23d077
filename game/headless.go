package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/renderer"
	"github.com/pthm-cable/ambient/telemetry"
)

// ErrLoopHalted is returned by Headless.Run when the loop stopped itself
// after too many consecutive tick failures.
var ErrLoopHalted = errors.New("loop halted after repeated tick failures")

// HeadlessOptions configures a headless run.
type HeadlessOptions struct {
	Seed     int64
	MaxTicks int     // 0 = until the context is cancelled
	FPS      float64 // 0 = as fast as possible
	Output   *telemetry.OutputManager
	Logger   *slog.Logger
}

// Headless runs the loop against a counting surface with no window. Frames
// are driven on one goroutine; window reports are handed to a second one
// that logs them and writes CSV output.
type Headless struct {
	cfg     *config.Config
	opts    HeadlessOptions
	log     *slog.Logger
	sched   *FrameScheduler
	surface *renderer.Discard
	loop    *Loop
	rng     *rand.Rand

	reports chan Report
	ctx     context.Context
}

// NewHeadless creates a headless runner sized to the configured screen.
func NewHeadless(cfg *config.Config, opts HeadlessOptions) (*Headless, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	h := &Headless{
		cfg:     cfg,
		opts:    opts,
		log:     logger,
		sched:   NewFrameScheduler(),
		surface: &renderer.Discard{Width: float64(cfg.Screen.Width), Height: float64(cfg.Screen.Height)},
		rng:     rand.New(rand.NewSource(seed + 1)),
		reports: make(chan Report, 16),
		ctx:     context.Background(),
	}

	loop, err := New(Options{
		Config:    cfg,
		Surface:   h.surface,
		Scheduler: h.sched,
		Logger:    logger,
		Seed:      seed,
		RunID:     opts.Output.RunID(),
		OnReport:  h.publish,
	})
	if err != nil {
		return nil, err
	}
	h.loop = loop
	return h, nil
}

// Loop returns the driven loop.
func (h *Headless) Loop() *Loop { return h.loop }

// Run drives frames until MaxTicks, context cancellation or a halted loop.
// Cancellation of ctx is a clean stop.
func (h *Headless) Run(ctx context.Context) error {
	if err := h.loop.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	h.ctx = gctx

	g.Go(func() error {
		defer close(h.reports)
		defer h.loop.Stop()
		return h.drive(gctx)
	})
	g.Go(func() error {
		return h.write()
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (h *Headless) drive(ctx context.Context) error {
	var tick <-chan time.Time
	if h.opts.FPS > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / h.opts.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	burstEvery := h.cfg.Derived.DemoBurstEveryTicks
	for {
		if h.opts.MaxTicks > 0 && h.loop.Ticks() >= h.opts.MaxTicks {
			h.log.Info("max ticks reached", "ticks", h.loop.Ticks())
			return nil
		}

		now := time.Now()
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now = <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if burstEvery > 0 && h.loop.Ticks() > 0 && h.loop.Ticks()%burstEvery == 0 {
			h.loop.TriggerExplosion(h.rng.Float64()*h.surface.Width, h.rng.Float64()*h.surface.Height)
		}

		h.sched.RunFrame(now)
		if h.loop.State() != StateRunning {
			_, lastErr := h.loop.Failures()
			return fmt.Errorf("%w: %v", ErrLoopHalted, lastErr)
		}
	}
}

// publish hands a report to the writer, giving up if the run is ending.
func (h *Headless) publish(r Report) {
	select {
	case h.reports <- r:
	case <-h.ctx.Done():
	}
}

func (h *Headless) write() error {
	for r := range h.reports {
		if err := WriteReport(h.log, h.opts.Output, r); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport logs a window report and appends it to out. A nil out only
// logs.
func WriteReport(log *slog.Logger, out *telemetry.OutputManager, r Report) error {
	log.Info("stats", "window", r.Stats, "perf", r.Perf)
	for _, b := range r.Bookmarks {
		b.LogBookmark(log)
	}

	if err := out.WriteTelemetry(r.Stats); err != nil {
		return err
	}
	if err := out.WritePerf(r.Perf, r.Tick); err != nil {
		return err
	}
	return out.WriteBookmarks(r.Bookmarks)
}
