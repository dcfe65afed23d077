package game

import (
	"bytes"
	"errors"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/renderer"
	"github.com/pthm-cable/ambient/systems"
	"github.com/pthm-cable/ambient/telemetry"
)

func testConfig(mutate func(*config.Config)) *config.Config {
	cfg := config.Default()
	cfg.Particles.Count = 40
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func newTestLoop(t *testing.T, cfg *config.Config, s renderer.Surface) (*Loop, *FrameScheduler) {
	t.Helper()
	sched := NewFrameScheduler()
	l, err := New(Options{Config: cfg, Surface: s, Scheduler: sched, Seed: 7})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, sched
}

// hookSurface records like a Recorder and runs onCircle on every circle.
type hookSurface struct {
	*renderer.Recorder
	onCircle func()
}

func (h *hookSurface) FillCircle(x, y, r float64, c color.RGBA, alpha float64) {
	h.Recorder.FillCircle(x, y, r, c, alpha)
	if h.onCircle != nil {
		h.onCircle()
	}
}

// flakySurface panics in Clear while failing is set.
type flakySurface struct {
	renderer.Discard
	failing bool
}

func (f *flakySurface) Clear(bg color.RGBA) {
	if f.failing {
		panic("surface lost")
	}
	f.Discard.Clear(bg)
}

func TestStart_MissingCapabilities(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	l, err := New(Options{Config: testConfig(nil), Scheduler: NewFrameScheduler(), Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Start(); !errors.Is(err, ErrNoSurface) {
		t.Errorf("Start() = %v, want ErrNoSurface", err)
	}
	if l.State() != StateStopped {
		t.Errorf("state = %v, want stopped", l.State())
	}
	if !strings.Contains(buf.String(), "particle field disabled") {
		t.Errorf("missing warning, log = %q", buf.String())
	}

	l, err = New(Options{Config: testConfig(nil), Surface: renderer.NewRecorder(800, 600)})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Start(); !errors.Is(err, ErrNoScheduler) {
		t.Errorf("Start() = %v, want ErrNoScheduler", err)
	}
}

func TestLoop_StartTickStop(t *testing.T) {
	rec := renderer.NewRecorder(800, 600)
	l, sched := newTestLoop(t, testConfig(nil), rec)

	if l.State() != StateStopped {
		t.Fatal("loop should start stopped")
	}
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if sched.Pending() != 1 {
		t.Fatalf("Pending() = %d after Start, want 1", sched.Pending())
	}

	for i := 0; i < 5; i++ {
		sched.RunFrame(time.Now())
	}
	if l.Ticks() != 5 {
		t.Errorf("Ticks() = %d, want 5", l.Ticks())
	}
	if sched.Pending() != 1 {
		t.Errorf("loop did not reschedule itself")
	}
	if rec.Count(renderer.OpCircle) == 0 {
		t.Error("running loop drew no particles")
	}

	l.Stop()
	if l.State() != StateStopped || sched.Pending() != 0 {
		t.Fatalf("Stop left state %v with %d pending frames", l.State(), sched.Pending())
	}
	sched.RunFrame(time.Now())
	if l.Ticks() != 5 {
		t.Errorf("tick ran after Stop")
	}
}

func TestTick_EmptyFieldDrawsNothing(t *testing.T) {
	cfg := testConfig(func(c *config.Config) { c.Particles.Count = 0 })
	rec := renderer.NewRecorder(800, 600)
	l, _ := newTestLoop(t, cfg, rec)

	if err := l.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rec.Count(renderer.OpLine) != 0 || rec.Count(renderer.OpCircle) != 0 {
		t.Errorf("empty field drew %d ops", len(rec.Ops)-1)
	}
	if d := l.LastDraw(); d.Lines != 0 || d.Circles != 0 {
		t.Errorf("LastDraw = %+v", d)
	}
}

func TestTick_DrawOrder(t *testing.T) {
	cfg := testConfig(func(c *config.Config) { c.Connections.MaxDistance = 400 })
	rec := renderer.NewRecorder(800, 600)
	l, _ := newTestLoop(t, cfg, rec)

	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	if rec.Ops[0].Kind != renderer.OpClear {
		t.Fatalf("first op = %v, want clear", rec.Ops[0].Kind)
	}
	seenCircle := false
	for _, op := range rec.Ops[1:] {
		switch op.Kind {
		case renderer.OpCircle:
			seenCircle = true
		case renderer.OpLine:
			if seenCircle {
				t.Fatal("line drawn after a particle")
			}
		}
	}
	if rec.Count(renderer.OpLine) == 0 {
		t.Error("dense field produced no connection lines")
	}
}

func TestLoop_ConnectionsCountsFaintPairs(t *testing.T) {
	cfg := testConfig(func(c *config.Config) {
		c.Connections.MaxDistance = 400
		c.Connections.LineAlpha = 0
	})
	l, _ := newTestLoop(t, cfg, renderer.NewRecorder(800, 600))

	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	if l.LastDraw().Lines != 0 {
		t.Errorf("drew %d lines with zero line alpha", l.LastDraw().Lines)
	}
	if l.Connections() == 0 {
		t.Error("Connections() = 0, want the pairs found this tick")
	}
}

func TestRedraw_DoesNotAdvance(t *testing.T) {
	rec := renderer.NewRecorder(800, 600)
	l, _ := newTestLoop(t, testConfig(nil), rec)
	before := append([]systems.Particle(nil), l.Field().Particles()...)

	if err := l.Redraw(); err != nil {
		t.Fatal(err)
	}
	if l.Ticks() != 0 {
		t.Errorf("Redraw advanced the tick counter")
	}
	if got := rec.Count(renderer.OpCircle); got != len(before) {
		t.Errorf("drew %d circles, want %d", got, len(before))
	}
	for i, p := range l.Field().Particles() {
		if p != before[i] {
			t.Fatalf("particle %d changed during Redraw", p.ID)
		}
	}

	empty, _ := New(Options{Config: testConfig(nil)})
	if err := empty.Redraw(); !errors.Is(err, ErrNoSurface) {
		t.Errorf("Redraw without surface = %v", err)
	}
}

func TestTriggerExplosion_DeferredDuringTick(t *testing.T) {
	cfg := testConfig(nil)
	hook := &hookSurface{Recorder: renderer.NewRecorder(800, 600)}
	l, _ := newTestLoop(t, cfg, hook)

	before := l.Field().Len()
	fired := false
	hook.onCircle = func() {
		if fired {
			return
		}
		fired = true
		l.OnClick(400, 300)
		if l.Field().Len() != before {
			t.Error("explosion mutated the field during the tick")
		}
	}

	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	if got, want := l.Field().Len(), before+cfg.Explosion.Count; got != want {
		t.Errorf("Len() after tick = %d, want %d", got, want)
	}

	// Outside a tick the burst applies immediately
	l.TriggerExplosion(10, 10)
	if got, want := l.Field().Len(), before+2*cfg.Explosion.Count; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestLoop_PanicRecoveryAndCutoff(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(func(c *config.Config) { c.Loop.MaxConsecutiveFailures = 3 })
	surface := &flakySurface{Discard: renderer.Discard{Width: 800, Height: 600}, failing: true}
	sched := NewFrameScheduler()
	l, err := New(Options{
		Config:    cfg,
		Surface:   surface,
		Scheduler: sched,
		Logger:    slog.New(slog.NewTextHandler(&buf, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := l.Tick(); err == nil || !strings.Contains(err.Error(), "surface lost") {
		t.Fatalf("Tick() = %v, want recovered panic", err)
	}

	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	// Two failures, then a success resets the count
	sched.RunFrame(time.Now())
	sched.RunFrame(time.Now())
	if n, _ := l.Failures(); n != 2 || l.State() != StateRunning {
		t.Fatalf("failures = %d, state %v; want 2, running", n, l.State())
	}
	surface.failing = false
	sched.RunFrame(time.Now())
	if n, _ := l.Failures(); n != 0 {
		t.Fatalf("failures = %d after success, want 0", n)
	}

	surface.failing = true
	for i := 0; i < 3; i++ {
		sched.RunFrame(time.Now())
	}
	if l.State() != StateStopped {
		t.Fatalf("state = %v after %d failures, want stopped", l.State(), 3)
	}
	if sched.Pending() != 0 {
		t.Errorf("halted loop left %d frames scheduled", sched.Pending())
	}
	if !strings.Contains(buf.String(), "stopping particle loop") {
		t.Errorf("missing halt log, got %q", buf.String())
	}
}

func TestLoop_HaltReportsFailingWindow(t *testing.T) {
	cfg := testConfig(func(c *config.Config) {
		c.Loop.MaxConsecutiveFailures = 3
		c.Telemetry.StatsWindow = 100
	})
	surface := &flakySurface{Discard: renderer.Discard{Width: 800, Height: 600}, failing: true}
	sched := NewFrameScheduler()
	var reports []Report
	l, err := New(Options{
		Config:    cfg,
		Surface:   surface,
		Scheduler: sched,
		OnReport:  func(r Report) { reports = append(reports, r) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		sched.RunFrame(time.Now())
	}

	if l.State() != StateStopped {
		t.Fatalf("state = %v, want stopped", l.State())
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	r := reports[0]
	if r.Stats.TickErrors != 3 {
		t.Errorf("TickErrors = %d, want 3", r.Stats.TickErrors)
	}
	found := false
	for _, b := range r.Bookmarks {
		if b.Type == telemetry.BookmarkTickFailures {
			found = true
		}
	}
	if !found {
		t.Errorf("bookmarks = %+v, want a tick failure bookmark", r.Bookmarks)
	}
}

func TestLoop_PointerState(t *testing.T) {
	l, _ := newTestLoop(t, testConfig(nil), renderer.NewRecorder(800, 600))

	if _, _, active := l.Pointer(); active {
		t.Error("pointer should start inactive")
	}
	l.OnPointerMove(10, 20)
	if x, y, active := l.Pointer(); x != 10 || y != 20 || !active {
		t.Errorf("Pointer() = %v, %v, %v", x, y, active)
	}
	l.OnPointerLeave()
	if _, _, active := l.Pointer(); active {
		t.Error("pointer still active after leave")
	}
	l.OnPointerEnter()
	if x, _, active := l.Pointer(); !active || x != 10 {
		t.Error("enter should reactivate at the last position")
	}
	l.ApplyMouseForces(30, 40)
	if x, y, active := l.Pointer(); x != 30 || y != 40 || !active {
		t.Errorf("ApplyMouseForces did not move the pointer")
	}
}

func TestLoop_PointerForcesApplyInTick(t *testing.T) {
	cfg := testConfig(func(c *config.Config) {
		c.Particles.Count = 0
		c.Physics.Gravity = 0
	})
	l, _ := newTestLoop(t, cfg, renderer.NewRecorder(800, 600))
	f := l.Field()
	f.Initialize(1, 800, 600)
	p := f.Particles()[0]

	// Push away from the nearer horizontal wall so the step cannot bounce
	sign, py := -1.0, p.Y+1
	if p.Y < 300 {
		sign, py = 1.0, p.Y-1
	}
	l.OnPointerMove(p.X, py)
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}

	ptr := cfg.Pointer
	push := ptr.RepulsionForce * (1 - 1/ptr.RepulsionRadius)
	want := (p.VY + sign*push) * cfg.Physics.Friction
	if got := f.Particles()[0].VY; math.Abs(got-want) > 1e-9 {
		t.Errorf("VY = %v, want %v", got, want)
	}
}

func TestOnResize(t *testing.T) {
	rec := renderer.NewRecorder(800, 600)
	l, _ := newTestLoop(t, testConfig(nil), rec)

	l.OnResize(200, 100)

	if rec.Width != 200 || rec.Height != 100 {
		t.Errorf("surface size = %vx%v, want 200x100", rec.Width, rec.Height)
	}
	if w, h := l.Field().Bounds(); w != 200 || h != 100 {
		t.Errorf("field bounds = %vx%v", w, h)
	}
	for _, p := range l.Field().Particles() {
		if p.X > 200 || p.Y > 100 {
			t.Fatalf("particle %d at (%v, %v) outside resized viewport", p.ID, p.X, p.Y)
		}
	}
}

func TestLoop_Reports(t *testing.T) {
	cfg := testConfig(func(c *config.Config) { c.Telemetry.StatsWindow = 5.5 * c.Physics.DT })
	var reports []Report
	l, err := New(Options{
		Config:   cfg,
		Surface:  renderer.NewRecorder(800, 600),
		Seed:     3,
		RunID:    "test-run",
		OnReport: func(r Report) { reports = append(reports, r) },
	})
	if err != nil {
		t.Fatal(err)
	}

	l.TriggerExplosion(400, 300)
	for i := 0; i < 10; i++ {
		if err := l.Tick(); err != nil {
			t.Fatal(err)
		}
	}

	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	r := reports[0]
	if r.Tick != 5 || r.Stats.RunID != "test-run" {
		t.Errorf("report header = tick %d run %q", r.Tick, r.Stats.RunID)
	}
	if r.Stats.Bursts != 1 || r.Stats.BurstParticles != cfg.Explosion.Count {
		t.Errorf("bursts = %d/%d", r.Stats.Bursts, r.Stats.BurstParticles)
	}
	if r.Stats.Particles < cfg.Particles.Count {
		t.Errorf("particles = %d", r.Stats.Particles)
	}
	if r.Stats.SpeedMean <= 0 {
		t.Errorf("speed mean = %v, want positive", r.Stats.SpeedMean)
	}
	if reports[1].Stats.Bursts != 0 {
		t.Errorf("second window counted %d bursts", reports[1].Stats.Bursts)
	}
}
