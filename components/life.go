package components

// Life tracks identity and remaining lifetime.
// Remaining starts at 1 and drops by Decay every step.
type Life struct {
	ID        uint64 // insertion order, unique per field
	Remaining float64
	Decay     float64 // life lost per step
	Burst     bool    // spawned by an explosion
}
