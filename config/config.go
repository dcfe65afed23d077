// Package config provides configuration loading and validation for the particle field.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all field, loop and host parameters.
// Values are fixed once loaded; there is no runtime reconfiguration.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Particles   ParticlesConfig   `yaml:"particles"`
	Population  PopulationConfig  `yaml:"population"`
	Connections ConnectionsConfig `yaml:"connections"`
	Pointer     PointerConfig     `yaml:"pointer"`
	Explosion   ExplosionConfig   `yaml:"explosion"`
	Loop        LoopConfig        `yaml:"loop"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
	Demo        DemoConfig        `yaml:"demo"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	TargetFPS  int    `yaml:"target_fps"`
	Title      string `yaml:"title"`
	Background string `yaml:"background"` // hex color
}

// PhysicsConfig holds per-step physics parameters.
type PhysicsConfig struct {
	DT       float64 `yaml:"dt"`       // seconds per step
	Gravity  float64 `yaml:"gravity"`  // added to vy every step
	Friction float64 `yaml:"friction"` // velocity multiplier per step
	Bounce   float64 `yaml:"bounce"`   // velocity retained on wall hit
}

// ParticlesConfig holds ambient particle creation parameters.
type ParticlesConfig struct {
	Count        int      `yaml:"count"`
	MinRadius    float64  `yaml:"min_radius"`
	MaxRadius    float64  `yaml:"max_radius"`
	InitialSpeed float64  `yaml:"initial_speed"` // velocity components drawn from [-s, s]
	DecayMin     float64  `yaml:"decay_min"`     // life lost per second
	DecayMax     float64  `yaml:"decay_max"`
	Palette      []string `yaml:"palette"` // hex colors
}

// PopulationConfig holds the population cap and top-up policy.
type PopulationConfig struct {
	CapMultiplier float64 `yaml:"cap_multiplier"` // cap = count * this
	Replenish     bool    `yaml:"replenish"`      // top up to count after each step
}

// ConnectionsConfig holds proximity line parameters.
type ConnectionsConfig struct {
	MaxDistance   float64 `yaml:"max_distance"`
	LineAlpha     float64 `yaml:"line_alpha"`
	LineWidth     float64 `yaml:"line_width"`
	GridThreshold int     `yaml:"grid_threshold"` // population at which the spatial grid is used (0 = never)
}

// PointerConfig holds pointer attraction/repulsion parameters.
type PointerConfig struct {
	RepulsionRadius  float64 `yaml:"repulsion_radius"`
	RepulsionForce   float64 `yaml:"repulsion_force"`
	AttractionRadius float64 `yaml:"attraction_radius"`
	AttractionForce  float64 `yaml:"attraction_force"`
}

// ExplosionConfig holds click burst parameters.
type ExplosionConfig struct {
	Count      int     `yaml:"count"`
	Speed      float64 `yaml:"speed"`
	LifetimeMS float64 `yaml:"lifetime_ms"`
}

// LoopConfig holds frame loop policy.
type LoopConfig struct {
	MaxConsecutiveFailures int     `yaml:"max_consecutive_failures"`
	FailureLogInterval     float64 `yaml:"failure_log_interval"` // seconds between repeated failure warnings
}

// TelemetryConfig holds stats and perf collection parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds of simulated time per window
	PerfWindow  int     `yaml:"perf_window"`  // ticks in the perf rolling window
}

// LoggingConfig holds slog and log file parameters.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json or text
	File       string `yaml:"file"`   // empty = stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DemoConfig holds unattended-run parameters.
type DemoConfig struct {
	BurstInterval float64 `yaml:"burst_interval_sec"` // 0 = no automatic bursts
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DecayMinPerStep     float64      // Particles.DecayMin * DT
	DecayMaxPerStep     float64      // Particles.DecayMax * DT
	ExplosionDecay      float64      // DT / explosion lifetime in seconds
	PopulationCap       int          // Count * CapMultiplier
	Palette             []color.RGBA // parsed Particles.Palette
	Background          color.RGBA   // parsed Screen.Background
	StatsWindowTicks    int          // Telemetry.StatsWindow / DT
	DemoBurstEveryTicks int          // Demo.BurstInterval / DT (0 = off)
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every parameter and recomputes derived values.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	// Comparisons below are false for NaN, so reject non-finite values first
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"physics.dt", c.Physics.DT},
		{"physics.gravity", c.Physics.Gravity},
		{"physics.friction", c.Physics.Friction},
		{"physics.bounce", c.Physics.Bounce},
		{"particles.min_radius", c.Particles.MinRadius},
		{"particles.max_radius", c.Particles.MaxRadius},
		{"particles.initial_speed", c.Particles.InitialSpeed},
		{"particles.decay_min", c.Particles.DecayMin},
		{"particles.decay_max", c.Particles.DecayMax},
		{"population.cap_multiplier", c.Population.CapMultiplier},
		{"connections.max_distance", c.Connections.MaxDistance},
		{"connections.line_alpha", c.Connections.LineAlpha},
		{"connections.line_width", c.Connections.LineWidth},
		{"pointer.repulsion_radius", c.Pointer.RepulsionRadius},
		{"pointer.repulsion_force", c.Pointer.RepulsionForce},
		{"pointer.attraction_radius", c.Pointer.AttractionRadius},
		{"pointer.attraction_force", c.Pointer.AttractionForce},
		{"explosion.speed", c.Explosion.Speed},
		{"explosion.lifetime_ms", c.Explosion.LifetimeMS},
		{"loop.failure_log_interval", c.Loop.FailureLogInterval},
		{"telemetry.stats_window", c.Telemetry.StatsWindow},
		{"demo.burst_interval_sec", c.Demo.BurstInterval},
	} {
		if !finite(f.v) {
			bad("%s must be finite, got %v", f.name, f.v)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if c.Screen.Width < 0 || c.Screen.Height < 0 {
		bad("screen size %dx%d is negative", c.Screen.Width, c.Screen.Height)
	}
	if c.Physics.DT <= 0 {
		bad("physics.dt must be positive, got %v", c.Physics.DT)
	}
	if c.Physics.Friction <= 0 || c.Physics.Friction > 1 {
		bad("physics.friction must be in (0, 1], got %v", c.Physics.Friction)
	}
	if c.Physics.Bounce < 0 || c.Physics.Bounce > 1 {
		bad("physics.bounce must be in [0, 1], got %v", c.Physics.Bounce)
	}

	p := c.Particles
	if p.Count < 0 {
		bad("particles.count must not be negative, got %d", p.Count)
	}
	if p.MinRadius <= 0 || p.MaxRadius < p.MinRadius {
		bad("particles radius range [%v, %v] is invalid", p.MinRadius, p.MaxRadius)
	}
	if p.InitialSpeed < 0 {
		bad("particles.initial_speed must not be negative")
	}
	if p.DecayMin <= 0 || p.DecayMax < p.DecayMin {
		bad("particles decay range [%v, %v] is invalid", p.DecayMin, p.DecayMax)
	}
	if len(p.Palette) == 0 {
		bad("particles.palette is empty")
	}
	palette := make([]color.RGBA, 0, len(p.Palette))
	for _, hex := range p.Palette {
		rgba, err := parseHex(hex)
		if err != nil {
			bad("particles.palette: %v", err)
			continue
		}
		palette = append(palette, rgba)
	}
	background, err := parseHex(c.Screen.Background)
	if err != nil {
		bad("screen.background: %v", err)
	}

	if c.Population.CapMultiplier < 1 {
		bad("population.cap_multiplier must be >= 1, got %v", c.Population.CapMultiplier)
	}
	if c.Connections.MaxDistance < 0 {
		bad("connections.max_distance must not be negative")
	}
	if c.Connections.LineAlpha < 0 || c.Connections.LineAlpha > 1 {
		bad("connections.line_alpha must be in [0, 1]")
	}

	ptr := c.Pointer
	if ptr.RepulsionRadius < 0 || ptr.AttractionRadius < ptr.RepulsionRadius {
		bad("pointer radii must satisfy 0 <= repulsion (%v) <= attraction (%v)", ptr.RepulsionRadius, ptr.AttractionRadius)
	}

	if c.Explosion.Count < 0 {
		bad("explosion.count must not be negative")
	}
	if c.Explosion.LifetimeMS <= 0 {
		bad("explosion.lifetime_ms must be positive, got %v", c.Explosion.LifetimeMS)
	}
	if c.Loop.MaxConsecutiveFailures < 1 {
		bad("loop.max_consecutive_failures must be >= 1")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.computeDerived(palette, background)
	return nil
}

// computeDerived calculates values derived from a validated config.
func (c *Config) computeDerived(palette []color.RGBA, background color.RGBA) {
	dt := c.Physics.DT
	c.Derived.DecayMinPerStep = c.Particles.DecayMin * dt
	c.Derived.DecayMaxPerStep = c.Particles.DecayMax * dt
	c.Derived.ExplosionDecay = dt / (c.Explosion.LifetimeMS / 1000)
	c.Derived.PopulationCap = int(math.Floor(float64(c.Particles.Count) * c.Population.CapMultiplier))
	c.Derived.Palette = palette
	c.Derived.Background = background

	c.Derived.StatsWindowTicks = int(c.Telemetry.StatsWindow / dt)
	if c.Derived.StatsWindowTicks < 1 {
		c.Derived.StatsWindowTicks = 1
	}
	c.Derived.DemoBurstEveryTicks = 0
	if c.Demo.BurstInterval > 0 {
		c.Derived.DemoBurstEveryTicks = max(1, int(c.Demo.BurstInterval/dt))
	}
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func parseHex(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
