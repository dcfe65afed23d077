// Package systems contains the particle field and its per-step physics.
package systems

import (
	"math"
)

// ApplyPointerForces pushes particles near the pointer away and pulls
// particles a little further out toward it. Forces add to velocity.
func (f *Field) ApplyPointerForces(px, py float64, active bool) {
	if !active {
		return
	}
	ptr := f.cfg.Pointer

	for _, e := range f.order {
		pos, vel, _, _ := f.mapper.Get(e)

		dx := pos.X - px
		dy := pos.Y - py
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			continue
		}
		nx, ny := dx/dist, dy/dist

		// Repulsion wins at close range; only one force per particle
		switch {
		case dist < ptr.RepulsionRadius:
			s := ptr.RepulsionForce * (1 - dist/ptr.RepulsionRadius)
			vel.X += nx * s
			vel.Y += ny * s
		case dist < ptr.AttractionRadius:
			s := ptr.AttractionForce * (dist / ptr.AttractionRadius)
			vel.X -= nx * s
			vel.Y -= ny * s
		}
	}
}

// Step advances every particle by one fixed step and then removes the dead
// in a single filtering pass.
func (f *Field) Step() StepResult {
	phys := f.cfg.Physics
	w, h := f.width, f.height

	for _, e := range f.order {
		pos, vel, _, life := f.mapper.Get(e)

		vel.Y += phys.Gravity
		vel.X *= phys.Friction
		vel.Y *= phys.Friction
		if !finite(vel.X) {
			vel.X = 0
		}
		if !finite(vel.Y) {
			vel.Y = 0
		}

		pos.X += vel.X
		pos.Y += vel.Y

		life.Remaining -= life.Decay

		pos.X, vel.X = bounce(pos.X, vel.X, w, phys.Bounce)
		pos.Y, vel.Y = bounce(pos.Y, vel.Y, h, phys.Bounce)
	}

	// Filtering pass: must complete before entities are removed
	f.dead = f.dead[:0]
	alive := 0
	for _, e := range f.order {
		if f.lifeMap.Get(e).Remaining <= lifeEpsilon {
			f.dead = append(f.dead, e)
			continue
		}
		f.order[alive] = e
		alive++
	}
	f.order = f.order[:alive]

	for _, e := range f.dead {
		f.world.RemoveEntity(e)
	}
	return StepResult{Expired: len(f.dead)}
}

// bounce clamps p into [0, limit] and reflects v with damping on contact.
// A NaN position is reset to 0 at rest.
func bounce(p, v, limit, damping float64) (float64, float64) {
	if limit < 0 {
		limit = 0
	}
	if math.IsNaN(p) {
		return 0, 0
	}
	if p < 0 {
		return 0, -v * damping
	}
	if p > limit {
		return limit, -v * damping
	}
	return p, v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
