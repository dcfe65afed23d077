package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_CapSaturated(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 300, Particles: 80, Cap: 160}), BookmarkCapSaturated) {
		t.Error("no eviction should not bookmark")
	}

	bookmarks := bd.Check(WindowStats{RunID: "r1", WindowEndTick: 600, Particles: 160, Cap: 160, Evicted: 12})
	if !hasBookmark(bookmarks, BookmarkCapSaturated) {
		t.Fatal("expected cap_saturated bookmark")
	}
	if bookmarks[0].RunID != "r1" || bookmarks[0].Tick != 600 {
		t.Errorf("bookmark = %+v", bookmarks[0])
	}

	// Still saturated: fires once per run of evicting windows
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 900, Particles: 160, Cap: 160, Evicted: 3}), BookmarkCapSaturated) {
		t.Error("cap_saturated fired twice in a row")
	}
	bd.Check(WindowStats{WindowEndTick: 1200, Particles: 150, Cap: 160})
	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1500, Particles: 160, Cap: 160, Evicted: 1}), BookmarkCapSaturated) {
		t.Error("expected cap_saturated after recovery")
	}
}

func TestBookmarkDetector_ConnectionSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 300, Particles: 80, ConnectionsMean: 20, ConnectionsMax: 25})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 1500, Particles: 80, ConnectionsMean: 60, ConnectionsMax: 90})
	if !hasBookmark(bookmarks, BookmarkConnectionSpike) {
		t.Error("expected connection_spike bookmark")
	}
}

func TestBookmarkDetector_PopulationDip(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 300, Particles: 100})
	}

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1500, Particles: 50}), BookmarkPopulationDip) {
		t.Fatal("expected population_dip bookmark")
	}
	// Peak resets after firing
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 1800, Particles: 45}), BookmarkPopulationDip) {
		t.Error("population_dip fired again without a new peak")
	}
}

func TestBookmarkDetector_TickFailures(t *testing.T) {
	bd := NewBookmarkDetector(0)

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 300, TickErrors: 2}), BookmarkTickFailures) {
		t.Error("expected tick_failures bookmark")
	}
}
