package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/ambient/config"
)

func TestComputeConnections_TwoParticles(t *testing.T) {
	f := newTestField(t, 0, 800, 600, nil)
	place(f, 100, 100)
	place(f, 106, 108)

	g := f.ComputeConnections(150)

	if len(g.Pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(g.Pairs))
	}
	c := g.Pairs[0]
	if c.A != 0 || c.B != 1 {
		t.Errorf("pair = (%d, %d), want (0, 1)", c.A, c.B)
	}
	if math.Abs(c.Distance-10) > 1e-9 {
		t.Errorf("distance = %v, want 10", c.Distance)
	}
}

func TestComputeConnections_StrictThreshold(t *testing.T) {
	f := newTestField(t, 0, 800, 600, nil)
	place(f, 0, 0)
	place(f, 150, 0)
	place(f, 300, 0)

	if g := f.ComputeConnections(150); len(g.Pairs) != 0 {
		t.Errorf("pairs at exactly maxDistance should not connect, got %v", g.Pairs)
	}
	if g := f.ComputeConnections(150.5); len(g.Pairs) != 2 {
		t.Errorf("got %d pairs, want 2", len(g.Pairs))
	}
}

func TestComputeConnections_Degenerate(t *testing.T) {
	f := newTestField(t, 0, 800, 600, nil)

	if g := f.ComputeConnections(150); len(g.Pairs) != 0 {
		t.Errorf("empty field produced %d pairs", len(g.Pairs))
	}

	place(f, 10, 10)
	place(f, 11, 10)
	if g := f.ComputeConnections(0); len(g.Pairs) != 0 {
		t.Errorf("zero distance produced %d pairs", len(g.Pairs))
	}
}

func TestComputeConnections_NeighborsSymmetric(t *testing.T) {
	f := newTestField(t, 60, 400, 300, nil)

	g := f.ComputeConnections(80)
	if len(g.Pairs) == 0 {
		t.Fatal("expected some connections in a dense field")
	}

	for i := 0; i < f.Len(); i++ {
		for _, n := range g.Neighbors(i) {
			found := false
			for _, back := range g.Neighbors(n.Index) {
				if back.Index == i {
					found = true
					if math.Abs(back.Distance-n.Distance) > 1e-12 {
						t.Errorf("distance %d->%d = %v, back = %v", i, n.Index, n.Distance, back.Distance)
					}
				}
			}
			if !found {
				t.Errorf("%d lists %d as neighbor but not the reverse", i, n.Index)
			}
		}
	}
}

func TestComputeConnections_GridMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		w, h        float64
		maxDistance float64
	}{
		{"default", 160, 1280, 800, 150},
		{"dense", 300, 400, 300, 40},
		{"narrow", 200, 2000, 50, 75},
		{"distance larger than viewport", 150, 100, 100, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := newTestField(t, tt.count, tt.w, tt.h, func(c *config.Config) {
				c.Connections.GridThreshold = 1
			})
			brute := newTestField(t, tt.count, tt.w, tt.h, func(c *config.Config) {
				c.Connections.GridThreshold = 0
			})

			// Stir both identically so particles also sit on edges
			for i := 0; i < 30; i++ {
				grid.Step()
				brute.Step()
			}

			want := append([]Connection(nil), brute.ComputeConnections(tt.maxDistance).Pairs...)
			got := grid.ComputeConnections(tt.maxDistance).Pairs

			if len(got) != len(want) {
				t.Fatalf("grid found %d pairs, brute force %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("pair %d: grid %+v, brute force %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestSpatialGrid_RejectsBadShapes(t *testing.T) {
	if NewSpatialGrid(800, 600, 0) != nil {
		t.Error("zero cell size should be rejected")
	}
	if NewSpatialGrid(1e6, 1e6, 1) != nil {
		t.Error("oversized grid should be rejected")
	}
	g := NewSpatialGrid(0, 0, 10)
	if g == nil {
		t.Fatal("zero viewport should still produce a single-cell grid")
	}
	g.Insert(0, -5, 1e9)
	n := 0
	g.ForEachNear(0, 0, func(int) { n++ })
	if n != 1 {
		t.Errorf("out-of-range insert not clamped into the grid, visited %d", n)
	}
}
