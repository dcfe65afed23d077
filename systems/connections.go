package systems

import (
	"cmp"
	"math"
	"slices"
)

// Connection is an edge between two particles closer than the connection
// distance. A and B index the Particles snapshot with A < B.
type Connection struct {
	A, B     int
	Distance float64
}

// Neighbor is one end of a connection seen from the other particle.
type Neighbor struct {
	Index    int
	Distance float64
}

// ConnectionGraph holds the proximity edges of one frame.
type ConnectionGraph struct {
	Pairs []Connection

	adj      [][]Neighbor
	adjBuilt bool
}

// Neighbors returns the particles connected to particle i.
// The per-particle view is symmetric: if j is a neighbor of i with distance
// d then i is a neighbor of j with the same d.
func (g *ConnectionGraph) Neighbors(i int) []Neighbor {
	if !g.adjBuilt {
		g.buildAdjacency()
	}
	if i < 0 || i >= len(g.adj) {
		return nil
	}
	return g.adj[i]
}

func (g *ConnectionGraph) buildAdjacency() {
	n := 0
	for _, c := range g.Pairs {
		n = max(n, c.B+1)
	}
	g.adj = slices.Grow(g.adj[:0], n)[:n]
	for i := range g.adj {
		g.adj[i] = g.adj[i][:0]
	}
	for _, c := range g.Pairs {
		g.adj[c.A] = append(g.adj[c.A], Neighbor{Index: c.B, Distance: c.Distance})
		g.adj[c.B] = append(g.adj[c.B], Neighbor{Index: c.A, Distance: c.Distance})
	}
	g.adjBuilt = true
}

func (g *ConnectionGraph) reset() {
	g.Pairs = g.Pairs[:0]
	g.adjBuilt = false
}

// ComputeConnections finds every unordered pair of live particles closer
// than maxDistance. Each pair is recorded once. Indices refer to the
// snapshot returned by Particles, which this call refreshes.
// The graph is reused by the next call.
func (f *Field) ComputeConnections(maxDistance float64) *ConnectionGraph {
	g := &f.graph
	g.reset()

	ps := f.Particles()
	if maxDistance <= 0 || len(ps) < 2 {
		return g
	}

	threshold := f.cfg.Connections.GridThreshold
	if threshold > 0 && len(ps) >= threshold && f.connectGrid(ps, maxDistance) {
		return g
	}
	f.connectBrute(ps, maxDistance)
	return g
}

// connectBrute is the O(n^2) pair search.
func (f *Field) connectBrute(ps []Particle, maxDistance float64) {
	maxSq := maxDistance * maxDistance
	for i := 0; i < len(ps); i++ {
		for j := i + 1; j < len(ps); j++ {
			dx := ps[j].X - ps[i].X
			dy := ps[j].Y - ps[i].Y
			if d2 := dx*dx + dy*dy; d2 < maxSq {
				f.graph.Pairs = append(f.graph.Pairs, Connection{A: i, B: j, Distance: math.Sqrt(d2)})
			}
		}
	}
}

// connectGrid finds the same pairs as connectBrute using a grid with cell
// size maxDistance. It reports false if the grid cannot be built.
func (f *Field) connectGrid(ps []Particle, maxDistance float64) bool {
	if f.grid == nil {
		f.grid = &SpatialGrid{}
	}
	if !f.grid.Reset(f.width, f.height, maxDistance) {
		return false
	}
	for i := range ps {
		f.grid.Insert(i, ps[i].X, ps[i].Y)
	}

	maxSq := maxDistance * maxDistance
	for i := range ps {
		f.grid.ForEachNear(ps[i].X, ps[i].Y, func(j int) {
			if j <= i {
				return
			}
			dx := ps[j].X - ps[i].X
			dy := ps[j].Y - ps[i].Y
			if d2 := dx*dx + dy*dy; d2 < maxSq {
				f.graph.Pairs = append(f.graph.Pairs, Connection{A: i, B: j, Distance: math.Sqrt(d2)})
			}
		})
	}

	// Match the brute-force ordering
	slices.SortFunc(f.graph.Pairs, func(a, b Connection) int {
		if c := cmp.Compare(a.A, b.A); c != 0 {
			return c
		}
		return cmp.Compare(a.B, b.B)
	})
	return true
}
