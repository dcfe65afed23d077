// Package components defines the ECS components of a particle.
package components

// Position represents a particle's position in viewport pixels.
type Position struct {
	X, Y float64
}

// Velocity represents a particle's velocity in pixels per step.
type Velocity struct {
	X, Y float64
}
