package telemetry

// Collector accumulates field events within time windows and produces
// WindowStats. It is owned by the loop goroutine.
type Collector struct {
	runID               string
	windowDurationTicks int
	dt                  float64

	windowStartTick int

	replenished    int
	bursts         int
	burstParticles int
	expired        int
	evicted        int
	tickErrors     int

	connTicks int
	connSum   int
	connMax   int

	// Reused sample buffers
	speeds []float64
	lives  []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(runID string, windowDurationSec, dt float64) *Collector {
	ticksPerWindow := 1
	if dt > 0 {
		ticksPerWindow = max(1, int(windowDurationSec/dt))
	}
	return &Collector{
		runID:               runID,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordBurst records an explosion and what it evicted.
func (c *Collector) RecordBurst(spawned, evicted int) {
	c.bursts++
	c.burstParticles += spawned
	c.evicted += evicted
}

// RecordExpired records particles removed by decay.
func (c *Collector) RecordExpired(n int) {
	c.expired += n
}

// RecordReplenished records ambient particles added to refill the baseline.
func (c *Collector) RecordReplenished(n int) {
	c.replenished += n
}

// RecordConnections records the connection count of one tick.
func (c *Collector) RecordConnections(n int) {
	c.connTicks++
	c.connSum += n
	c.connMax = max(c.connMax, n)
}

// RecordTickError records a failed tick.
func (c *Collector) RecordTickError() {
	c.tickErrors++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Buffers returns the emptied speed and life sample buffers for the caller to
// fill before Flush.
func (c *Collector) Buffers() (speeds, lives []float64) {
	return c.speeds[:0], c.lives[:0]
}

// Flush produces a WindowStats and resets counters for the next window.
// speeds and lives are per-particle samples taken at window end; they are
// kept for reuse by the next Buffers call.
func (c *Collector) Flush(currentTick, particles, capacity int, speeds, lives []float64) WindowStats {
	var connMean float64
	if c.connTicks > 0 {
		connMean = float64(c.connSum) / float64(c.connTicks)
	}
	speed := Summarize(speeds)
	life := Summarize(lives)

	stats := WindowStats{
		RunID:           c.runID,
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Particles: particles,
		Cap:       capacity,

		Replenished:    c.replenished,
		Bursts:         c.bursts,
		BurstParticles: c.burstParticles,
		Expired:        c.expired,
		Evicted:        c.evicted,
		TickErrors:     c.tickErrors,

		ConnectionsMean: connMean,
		ConnectionsMax:  c.connMax,

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,
		SpeedP50:  speed.P50,
		SpeedP90:  speed.P90,
		SpeedMax:  speed.Max,

		LifeMean: life.Mean,
		LifeP10:  life.P10,
	}

	c.speeds, c.lives = speeds, lives

	c.windowStartTick = currentTick
	c.replenished = 0
	c.bursts = 0
	c.burstParticles = 0
	c.expired = 0
	c.evicted = 0
	c.tickErrors = 0
	c.connTicks = 0
	c.connSum = 0
	c.connMax = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int {
	return c.windowDurationTicks
}
