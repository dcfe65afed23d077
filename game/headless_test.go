package game

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/goleak"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHeadless_MaxTicksWritesOutput(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(func(c *config.Config) {
		c.Telemetry.StatsWindow = 10.5 * c.Physics.DT
		c.Demo.BurstInterval = 10.5 * c.Physics.DT
	})
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir, "headless-test")
	if err != nil {
		t.Fatal(err)
	}

	h, err := NewHeadless(cfg, HeadlessOptions{Seed: 11, MaxTicks: 30, Output: out, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	if h.Loop().Ticks() != 30 {
		t.Errorf("ran %d ticks, want 30", h.Loop().Ticks())
	}
	if h.Loop().State() != StateStopped {
		t.Errorf("loop left %v", h.Loop().State())
	}

	var rows []telemetry.WindowStats
	if err := gocsv.UnmarshalFile(mustOpen(t, filepath.Join(dir, "telemetry.csv")), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("telemetry rows = %d, want 3", len(rows))
	}
	bursts := 0
	for i, r := range rows {
		if r.RunID != "headless-test" {
			t.Errorf("row %d run id = %q", i, r.RunID)
		}
		if r.WindowEndTick != 10*(i+1) {
			t.Errorf("row %d ends at tick %d", i, r.WindowEndTick)
		}
		bursts += r.Bursts
	}
	if bursts != 2 {
		t.Errorf("demo bursts = %d, want 2", bursts)
	}

	var perf []telemetry.PerfStatsCSV
	if err := gocsv.UnmarshalFile(mustOpen(t, filepath.Join(dir, "perf.csv")), &perf); err != nil {
		t.Fatal(err)
	}
	if len(perf) != 3 {
		t.Errorf("perf rows = %d, want 3", len(perf))
	}
}

func TestHeadless_ContextCancelIsClean(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, err := NewHeadless(testConfig(nil), HeadlessOptions{Seed: 5, FPS: 500, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.Run(ctx); err != nil {
		t.Fatalf("Run after cancellation = %v, want nil", err)
	}
	if h.Loop().Ticks() == 0 {
		t.Error("no ticks ran before cancellation")
	}
	if h.Loop().State() != StateStopped {
		t.Errorf("loop left %v", h.Loop().State())
	}
}

func TestHeadless_NoOutput(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(func(c *config.Config) { c.Telemetry.StatsWindow = 2.5 * c.Physics.DT })
	h, err := NewHeadless(cfg, HeadlessOptions{Seed: 9, MaxTicks: 8, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
