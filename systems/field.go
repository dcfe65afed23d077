package systems

import (
	"errors"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ambient/components"
	"github.com/pthm-cable/ambient/config"
)

// lifeEpsilon is the remaining life at or below which a particle is dead.
// Repeated subtraction of dt/lifetime leaves residue on the order of 1e-16.
const lifeEpsilon = 1e-9

// Particle is a value snapshot of one live particle.
type Particle struct {
	ID     uint64
	X, Y   float64
	VX, VY float64
	Radius float64
	Color  color.RGBA
	Life   float64
	Decay  float64
	Burst  bool
}

// Opacity returns the remaining life clamped to [0, 1].
func (p Particle) Opacity() float64 {
	return math.Max(0, math.Min(1, p.Life))
}

// Explosion describes a burst spawn.
type Explosion struct {
	Count    int
	Speed    float64
	Lifetime time.Duration
}

// ExplosionFromConfig converts the configured burst parameters.
func ExplosionFromConfig(c config.ExplosionConfig) Explosion {
	return Explosion{
		Count:    c.Count,
		Speed:    c.Speed,
		Lifetime: time.Duration(c.LifetimeMS * float64(time.Millisecond)),
	}
}

// StepResult reports what a physics step removed.
type StepResult struct {
	Expired int
}

// SpawnResult reports what an explosion added and evicted.
type SpawnResult struct {
	Spawned int
	Evicted int
}

// Field owns the live particle population and advances its physics.
// Component data lives in an ark world; order holds the entities in
// insertion order, which is also the eviction order.
type Field struct {
	cfg *config.Config
	rng *rand.Rand

	world   *ecs.World
	mapper  *ecs.Map4[components.Position, components.Velocity, components.Appearance, components.Life]
	lifeMap *ecs.Map1[components.Life]
	filter  *ecs.Filter2[components.Velocity, components.Life]

	order []ecs.Entity
	dead  []ecs.Entity

	width, height float64
	baseline      int
	cap           int
	nextID        uint64

	// Reused buffers
	snapshot []Particle
	grid     *SpatialGrid
	graph    ConnectionGraph
}

// NewField validates cfg and creates an empty field.
func NewField(cfg *config.Config, rng *rand.Rand) (*Field, error) {
	if cfg == nil {
		return nil, errors.New("field: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	world := ecs.NewWorld()
	return &Field{
		cfg:     cfg,
		rng:     rng,
		world:   world,
		mapper:  ecs.NewMap4[components.Position, components.Velocity, components.Appearance, components.Life](world),
		lifeMap: ecs.NewMap1[components.Life](world),
		filter:  ecs.NewFilter2[components.Velocity, components.Life](world),
	}, nil
}

// Initialize replaces the population with count ambient particles spread
// uniformly over a width x height viewport.
func (f *Field) Initialize(count int, width, height float64) {
	for _, e := range f.order {
		f.world.RemoveEntity(e)
	}
	f.order = f.order[:0]

	f.width = math.Max(0, width)
	f.height = math.Max(0, height)
	f.baseline = max(0, count)
	f.cap = int(math.Floor(float64(f.baseline) * f.cfg.Population.CapMultiplier))

	for i := 0; i < f.baseline; i++ {
		f.spawnAmbient()
	}
}

// SpawnExplosion adds a radial burst of particles at (x, y) and then drops
// the oldest particles until the population is back within the cap.
func (f *Field) SpawnExplosion(x, y float64, ex Explosion) SpawnResult {
	if ex.Count <= 0 {
		return SpawnResult{}
	}

	decay := 1.0
	if secs := ex.Lifetime.Seconds(); secs > 0 {
		decay = f.cfg.Physics.DT / secs
	}

	for i := 0; i < ex.Count; i++ {
		angle := 2 * math.Pi * float64(i) / float64(ex.Count)
		speed := ex.Speed * uniform(f.rng, 0.5, 1.0)
		f.spawn(
			components.Position{X: x, Y: y},
			components.Velocity{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed},
			decay,
			true,
		)
	}

	return SpawnResult{Spawned: ex.Count, Evicted: f.enforceCap()}
}

// Replenish tops the population up to the baseline count with fresh ambient
// particles. It is a no-op unless population.replenish is set.
func (f *Field) Replenish() int {
	if !f.cfg.Population.Replenish {
		return 0
	}
	added := 0
	for len(f.order) < f.baseline {
		f.spawnAmbient()
		added++
	}
	return added
}

// HandleResize clamps every particle into the new bounds.
// Particles already inside are left untouched.
func (f *Field) HandleResize(width, height float64) {
	f.width = math.Max(0, width)
	f.height = math.Max(0, height)
	for _, e := range f.order {
		pos, _, _, _ := f.mapper.Get(e)
		pos.X = clamp(pos.X, 0, f.width)
		pos.Y = clamp(pos.Y, 0, f.height)
	}
}

// Particles returns a snapshot of the live particles in insertion order.
// The slice is reused and only valid until the next call.
func (f *Field) Particles() []Particle {
	f.snapshot = f.snapshot[:0]
	for _, e := range f.order {
		pos, vel, look, life := f.mapper.Get(e)
		f.snapshot = append(f.snapshot, Particle{
			ID:     life.ID,
			X:      pos.X,
			Y:      pos.Y,
			VX:     vel.X,
			VY:     vel.Y,
			Radius: look.Radius,
			Color:  look.Color,
			Life:   life.Remaining,
			Decay:  life.Decay,
			Burst:  life.Burst,
		})
	}
	return f.snapshot
}

// Len returns the number of live particles.
func (f *Field) Len() int {
	return len(f.order)
}

// Cap returns the population cap.
func (f *Field) Cap() int {
	return f.cap
}

// Baseline returns the count passed to Initialize.
func (f *Field) Baseline() int {
	return f.baseline
}

// Bounds returns the viewport size.
func (f *Field) Bounds() (width, height float64) {
	return f.width, f.height
}

// Sample appends per-particle speed and remaining life to the given slices.
func (f *Field) Sample(speeds, lives []float64) ([]float64, []float64) {
	query := f.filter.Query()
	for query.Next() {
		vel, life := query.Get()
		speeds = append(speeds, math.Hypot(vel.X, vel.Y))
		lives = append(lives, life.Remaining)
	}
	return speeds, lives
}

// enforceCap drops particles from the front of the order until the cap holds.
func (f *Field) enforceCap() int {
	excess := len(f.order) - f.cap
	if excess <= 0 {
		return 0
	}
	for _, e := range f.order[:excess] {
		f.world.RemoveEntity(e)
	}
	f.order = append(f.order[:0], f.order[excess:]...)
	return excess
}

// spawnAmbient creates one baseline particle at a random position.
func (f *Field) spawnAmbient() {
	s := f.cfg.Particles.InitialSpeed
	f.spawn(
		components.Position{X: f.rng.Float64() * f.width, Y: f.rng.Float64() * f.height},
		components.Velocity{X: uniform(f.rng, -1, 1) * s, Y: uniform(f.rng, -1, 1) * s},
		uniform(f.rng, f.cfg.Derived.DecayMinPerStep, f.cfg.Derived.DecayMaxPerStep),
		false,
	)
}

func (f *Field) spawn(pos components.Position, vel components.Velocity, decay float64, burst bool) {
	p := f.cfg.Particles
	palette := f.cfg.Derived.Palette
	look := components.Appearance{
		Radius: uniform(f.rng, p.MinRadius, p.MaxRadius),
		Color:  palette[f.rng.Intn(len(palette))],
	}
	life := components.Life{ID: f.nextID, Remaining: 1, Decay: decay, Burst: burst}
	f.nextID++

	e := f.mapper.NewEntity(&pos, &vel, &look, &life)
	f.order = append(f.order, e)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
