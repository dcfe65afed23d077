package renderer

import (
	"image/color"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/systems"
)

// DrawStats counts what one Draw call emitted.
type DrawStats struct {
	Lines   int
	Circles int
}

// ParticleRenderer renders the field: connection lines first, then particles.
// Lines take the color of the pair's first particle.
type ParticleRenderer struct {
	Background color.RGBA
	LineAlpha  float64
	LineWidth  float64
}

// NewParticleRenderer creates a renderer from a validated config.
func NewParticleRenderer(cfg *config.Config) *ParticleRenderer {
	return &ParticleRenderer{
		Background: cfg.Derived.Background,
		LineAlpha:  cfg.Connections.LineAlpha,
		LineWidth:  cfg.Connections.LineWidth,
	}
}

// Draw clears s and renders one frame. Line opacity fades with distance and
// with the life of the pair's first particle.
func (r *ParticleRenderer) Draw(s Surface, particles []systems.Particle, g *systems.ConnectionGraph, maxDistance float64) DrawStats {
	var stats DrawStats
	s.Clear(r.Background)

	if g != nil && maxDistance > 0 {
		for _, c := range g.Pairs {
			a, b := &particles[c.A], &particles[c.B]
			alpha := (1 - c.Distance/maxDistance) * r.LineAlpha * a.Opacity()
			if alpha <= 0 {
				continue
			}
			s.DrawLine(a.X, a.Y, b.X, b.Y, r.LineWidth, a.Color, alpha)
			stats.Lines++
		}
	}

	for i := range particles {
		p := &particles[i]
		alpha := p.Opacity()
		if alpha <= 0 {
			continue
		}
		s.FillCircle(p.X, p.Y, p.Radius, p.Color, alpha)
		stats.Circles++
	}
	return stats
}
