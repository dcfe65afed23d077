// Package game drives the particle field: the frame loop, input handling,
// telemetry hooks and the headless runner.
package game

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/renderer"
	"github.com/pthm-cable/ambient/systems"
	"github.com/pthm-cable/ambient/telemetry"
)

var (
	// ErrNoSurface means the host provided nothing to draw on.
	ErrNoSurface = errors.New("no drawing surface available")
	// ErrNoScheduler means the host provided no frame scheduling primitive.
	ErrNoScheduler = errors.New("no frame scheduler available")
)

// State is the loop's run state.
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Report is emitted at the end of every telemetry window.
type Report struct {
	Tick      int
	Stats     telemetry.WindowStats
	Perf      telemetry.PerfStats
	Bookmarks []telemetry.Bookmark
}

// Options configures a Loop.
type Options struct {
	Config    *config.Config
	Surface   renderer.Surface
	Scheduler Scheduler
	Logger    *slog.Logger

	Seed  int64  // 0 = time-based
	RunID string // stamped on telemetry records

	// OnReport receives window telemetry on the loop goroutine.
	OnReport func(Report)
}

// Loop is the per-frame interaction loop. All methods must be called from
// one goroutine; input handlers only record state or spawn particles and
// never advance the field themselves.
type Loop struct {
	cfg      *config.Config
	log      *slog.Logger
	field    *systems.Field
	renderer *renderer.ParticleRenderer
	surface  renderer.Surface
	sched    Scheduler
	burst    systems.Explosion

	state State
	frame FrameID

	pointerX, pointerY float64
	pointerActive      bool

	// Set while Tick runs; handler actions are deferred until it returns
	ticking  bool
	deferred []func()

	tick        int
	failures    int
	failLimiter *rate.Limiter
	lastErr     error
	lastDraw    renderer.DrawStats
	lastPairs   int

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
	onReport  func(Report)
}

// New creates a stopped loop and populates its field with the configured
// particle count over the surface (or configured screen) size.
func New(opts Options) (*Loop, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	field, err := systems.NewField(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("creating field: %w", err)
	}

	w, h := float64(cfg.Screen.Width), float64(cfg.Screen.Height)
	if opts.Surface != nil {
		w, h = opts.Surface.Size()
	}
	field.Initialize(cfg.Particles.Count, w, h)

	limit := rate.Inf
	if cfg.Loop.FailureLogInterval > 0 {
		limit = rate.Every(time.Duration(cfg.Loop.FailureLogInterval * float64(time.Second)))
	}

	return &Loop{
		cfg:         cfg,
		log:         logger,
		field:       field,
		renderer:    renderer.NewParticleRenderer(cfg),
		surface:     opts.Surface,
		sched:       opts.Scheduler,
		burst:       systems.ExplosionFromConfig(cfg.Explosion),
		failLimiter: rate.NewLimiter(limit, 1),
		collector:   telemetry.NewCollector(opts.RunID, cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perf:        telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarks:   telemetry.NewBookmarkDetector(10),
		onReport:    opts.OnReport,
	}, nil
}

// Start checks that the host provides a surface and a scheduler, then begins
// scheduling frames. A missing capability is logged and returned; the loop
// stays stopped so the host can carry on without the effect.
func (l *Loop) Start() error {
	if l.state == StateRunning {
		return nil
	}
	if l.surface == nil {
		l.log.Warn("particle field disabled", "reason", ErrNoSurface)
		return ErrNoSurface
	}
	if l.sched == nil {
		l.log.Warn("particle field disabled", "reason", ErrNoScheduler)
		return ErrNoScheduler
	}

	l.state = StateRunning
	l.failures = 0
	l.frame = l.sched.RequestFrame(l.onFrame)
	l.log.Debug("loop started", "particles", l.field.Len())
	return nil
}

// Stop cancels the pending frame. No further ticks run until Start.
func (l *Loop) Stop() {
	if l.state != StateRunning {
		return
	}
	if l.frame != 0 {
		l.sched.CancelFrame(l.frame)
		l.frame = 0
	}
	l.state = StateStopped
	l.log.Debug("loop stopped", "tick", l.tick)
}

// onFrame is the scheduled callback: one tick, then reschedule unless the
// failure cutoff was reached.
func (l *Loop) onFrame(time.Time) {
	l.frame = 0
	if l.state != StateRunning {
		return
	}
	l.perf.RecordFrame()

	if err := l.Tick(); err != nil {
		l.failures++
		l.lastErr = err
		l.collector.RecordTickError()
		if l.failures >= l.cfg.Loop.MaxConsecutiveFailures {
			l.log.Error("stopping particle loop after repeated tick failures",
				"failures", l.failures,
				"error", err,
			)
			l.state = StateStopped
			// Report the failing window; no successful tick will flush it
			l.emitWindow()
			return
		}
		if l.failLimiter.Allow() {
			l.log.Warn("tick failed", "error", err, "consecutive", l.failures)
		}
	} else {
		l.failures = 0
	}

	// A handler run during the tick may have stopped the loop
	if l.state == StateRunning && l.frame == 0 {
		l.frame = l.sched.RequestFrame(l.onFrame)
	}
}

// Tick runs one frame: pointer forces, physics step, replenish, connections,
// draw. A panic inside the frame is returned as an error.
func (l *Loop) Tick() (err error) {
	if l.surface == nil {
		return ErrNoSurface
	}
	if l.ticking {
		return errors.New("tick re-entered")
	}

	l.ticking = true
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick %d panicked: %v", l.tick, r)
		}
		l.ticking = false
		l.runDeferred()
	}()

	l.perf.StartTick()

	l.perf.StartPhase(telemetry.PhasePointer)
	l.field.ApplyPointerForces(l.pointerX, l.pointerY, l.pointerActive)

	l.perf.StartPhase(telemetry.PhaseStep)
	res := l.field.Step()
	l.collector.RecordExpired(res.Expired)

	l.perf.StartPhase(telemetry.PhaseReplenish)
	l.collector.RecordReplenished(l.field.Replenish())

	l.perf.StartPhase(telemetry.PhaseConnections)
	maxDistance := l.cfg.Connections.MaxDistance
	graph := l.field.ComputeConnections(maxDistance)
	l.lastPairs = len(graph.Pairs)
	l.collector.RecordConnections(l.lastPairs)

	l.perf.StartPhase(telemetry.PhaseDraw)
	l.lastDraw = l.renderer.Draw(l.surface, l.field.Particles(), graph, maxDistance)

	l.perf.StartPhase(telemetry.PhaseTelemetry)
	l.tick++
	l.flushTelemetry()

	l.perf.EndTick()
	return nil
}

// Redraw draws the field as it stands without advancing it. Hosts that
// repaint every frame use it while the loop is stopped.
func (l *Loop) Redraw() error {
	if l.surface == nil {
		return ErrNoSurface
	}
	maxDistance := l.cfg.Connections.MaxDistance
	graph := l.field.ComputeConnections(maxDistance)
	l.lastPairs = len(graph.Pairs)
	l.lastDraw = l.renderer.Draw(l.surface, l.field.Particles(), graph, maxDistance)
	return nil
}

func (l *Loop) flushTelemetry() {
	if !l.collector.ShouldFlush(l.tick) {
		return
	}
	l.emitWindow()
}

// emitWindow closes the current telemetry window and reports it.
func (l *Loop) emitWindow() {
	speeds, lives := l.collector.Buffers()
	speeds, lives = l.field.Sample(speeds, lives)
	stats := l.collector.Flush(l.tick, l.field.Len(), l.field.Cap(), speeds, lives)

	if l.onReport != nil {
		l.onReport(Report{
			Tick:      l.tick,
			Stats:     stats,
			Perf:      l.perf.Stats(),
			Bookmarks: l.bookmarks.Check(stats),
		})
	}
}

// whenIdle runs fn now, or after the current tick if one is running.
func (l *Loop) whenIdle(fn func()) {
	if l.ticking {
		l.deferred = append(l.deferred, fn)
		return
	}
	fn()
}

func (l *Loop) runDeferred() {
	pending := l.deferred
	l.deferred = nil
	for _, fn := range pending {
		fn()
	}
}

// OnPointerMove records the pointer position and marks it active.
func (l *Loop) OnPointerMove(x, y float64) {
	l.pointerX, l.pointerY = x, y
	l.pointerActive = true
}

// OnPointerEnter marks the pointer active at its last known position.
func (l *Loop) OnPointerEnter() {
	l.pointerActive = true
}

// OnPointerLeave marks the pointer inactive; forces stop on the next tick.
func (l *Loop) OnPointerLeave() {
	l.pointerActive = false
}

// OnClick spawns an explosion at the click position.
func (l *Loop) OnClick(x, y float64) {
	l.TriggerExplosion(x, y)
}

// ApplyMouseForces lets other components steer the field as if the pointer
// were at (x, y). Forces are applied by the next tick.
func (l *Loop) ApplyMouseForces(x, y float64) {
	l.OnPointerMove(x, y)
}

// TriggerExplosion spawns a configured burst at (x, y). During a tick the
// spawn is deferred until the tick returns.
func (l *Loop) TriggerExplosion(x, y float64) {
	l.whenIdle(func() {
		res := l.field.SpawnExplosion(x, y, l.burst)
		l.collector.RecordBurst(res.Spawned, res.Evicted)
	})
}

// OnResize clamps particles into the new viewport and resizes the surface
// when it supports it.
func (l *Loop) OnResize(width, height float64) {
	l.whenIdle(func() {
		l.field.HandleResize(width, height)
		if r, ok := l.surface.(renderer.Resizer); ok {
			r.Resize(width, height)
		}
	})
}

// State returns the run state.
func (l *Loop) State() State { return l.state }

// Field returns the underlying particle field.
func (l *Loop) Field() *systems.Field { return l.field }

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() int { return l.tick }

// Failures returns the current consecutive failure count and the last error.
func (l *Loop) Failures() (int, error) { return l.failures, l.lastErr }

// LastDraw returns what the last successful tick drew.
func (l *Loop) LastDraw() renderer.DrawStats { return l.lastDraw }

// Connections returns the number of connected pairs found by the last draw,
// including pairs too faint to draw a line.
func (l *Loop) Connections() int { return l.lastPairs }

// Pointer returns the last pointer position and whether it is active.
func (l *Loop) Pointer() (x, y float64, active bool) {
	return l.pointerX, l.pointerY, l.pointerActive
}

// Perf returns the rolling timing statistics.
func (l *Loop) Perf() telemetry.PerfStats { return l.perf.Stats() }
