// Package telemetry aggregates per-window field statistics, timing and
// notable moments, and writes them as CSV.
package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	RunID           string  `csv:"run_id"`
	WindowStartTick int     `csv:"-"`
	WindowEndTick   int     `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Particles int `csv:"particles"`
	Cap       int `csv:"cap"`

	// Events during window
	Replenished    int `csv:"replenished"`
	Bursts         int `csv:"bursts"`
	BurstParticles int `csv:"burst_particles"`
	Expired        int `csv:"expired"`
	Evicted        int `csv:"evicted"`
	TickErrors     int `csv:"tick_errors"`

	// Connections per tick
	ConnectionsMean float64 `csv:"connections_mean"`
	ConnectionsMax  int     `csv:"connections_max"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
	SpeedMax  float64 `csv:"speed_max"`

	// Remaining life distribution (sampled at window end)
	LifeMean float64 `csv:"life_mean"`
	LifeP10  float64 `csv:"life_p10"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// Summarize computes mean, population standard deviation, percentiles and
// max. values is sorted in place.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	slices.Sort(values)

	mean := stat.Mean(values, nil)
	return Distribution{
		Mean: mean,
		Std:  stat.PopStdDev(values, nil),
		P10:  Percentile(values, 0.10),
		P50:  Percentile(values, 0.50),
		P90:  Percentile(values, 0.90),
		Max:  floats.Max(values),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("cap", s.Cap),
		slog.Int("replenished", s.Replenished),
		slog.Int("bursts", s.Bursts),
		slog.Int("burst_particles", s.BurstParticles),
		slog.Int("expired", s.Expired),
		slog.Int("evicted", s.Evicted),
		slog.Int("tick_errors", s.TickErrors),
		slog.Float64("connections_mean", s.ConnectionsMean),
		slog.Int("connections_max", s.ConnectionsMax),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("life_mean", s.LifeMean),
	)
}

// LogStats logs the window stats.
func (s WindowStats) LogStats(logger *slog.Logger) {
	logger.Info("stats", "window", s)
}
