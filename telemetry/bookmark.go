package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkCapSaturated    BookmarkType = "cap_saturated"
	BookmarkConnectionSpike BookmarkType = "connection_spike"
	BookmarkPopulationDip   BookmarkType = "population_dip"
	BookmarkTickFailures    BookmarkType = "tick_failures"
)

// Bookmark is an automatically detected notable window.
type Bookmark struct {
	RunID       string       `csv:"run_id"`
	Type        BookmarkType `csv:"type"`
	Tick        int          `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting windows from a rolling history.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	saturated  bool // last window evicted particles
	recentPeak int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	add := func(b *Bookmark) {
		if b != nil {
			b.RunID = stats.RunID
			bookmarks = append(bookmarks, *b)
		}
	}

	add(bd.checkCapSaturated(stats))
	add(bd.checkConnectionSpike(stats))
	add(bd.checkPopulationDip(stats))
	add(bd.checkTickFailures(stats))

	bd.addToHistory(stats)
	bd.recentPeak = max(bd.recentPeak, stats.Particles)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkCapSaturated fires on the first window of a run of evicting windows.
func (bd *BookmarkDetector) checkCapSaturated(stats WindowStats) *Bookmark {
	was := bd.saturated
	bd.saturated = stats.Evicted > 0
	if !bd.saturated || was {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkCapSaturated,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Population reached cap %d, evicted %d oldest", stats.Cap, stats.Evicted),
	}
}

func (bd *BookmarkDetector) checkConnectionSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.ConnectionsMean
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.ConnectionsMean > avg*2.0 && stats.ConnectionsMax >= 10 {
		return &Bookmark{
			Type:        BookmarkConnectionSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Connections %.1f per tick is %.1fx average (%.1f)", stats.ConnectionsMean, stats.ConnectionsMean/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPopulationDip(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.Particles)/float64(bd.recentPeak)
	if drop > 0.30 && stats.Particles < bd.recentPeak-10 {
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.Particles
		return &Bookmark{
			Type:        BookmarkPopulationDip,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population fell %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Particles),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkTickFailures(stats WindowStats) *Bookmark {
	if stats.TickErrors == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkTickFailures,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d ticks failed in window", stats.TickErrors),
	}
}
