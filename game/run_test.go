package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/systems"
	"github.com/pthm-cable/biome/traits"
)

func TestRun_MaxTicks(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{})
	mustSpawn(t, g, traits.Herbivore, 100, 100, genome(1, 10), 1)

	if err := g.Run(context.Background(), nil, 25); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if g.Tick() != 25 {
		t.Errorf("Tick() = %d, want 25", g.Tick())
	}

	// maxTicks counts from the current tick
	if err := g.Run(context.Background(), nil, 5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if g.Tick() != 30 {
		t.Errorf("Tick() = %d, want 30", g.Tick())
	}
}

func TestRun_StopsOnCancelAndStop(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Run(ctx, nil, 0); err != nil {
		t.Fatalf("Run with cancelled context: %v", err)
	}

	ctl := NewControl()
	ctl.Stop()
	ctl.Stop()
	if err := g.Run(context.Background(), ctl, 0); err != nil {
		t.Fatalf("Run with stopped control: %v", err)
	}
	if g.Tick() != 0 {
		t.Errorf("Tick() = %d, want 0", g.Tick())
	}
	select {
	case <-ctl.Done():
	default:
		t.Error("Done() not closed after Stop")
	}
}

func TestRun_ReturnsWorkerPanic(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{})
	mustSpawn(t, g, traits.Herbivore, 100, 100, genome(1, 10), 1)

	g.decide = func(slot int32, tick uint32, v *systems.View, p *systems.Params, rng *rand.Rand, scratch *systems.QueryScratch) systems.Intent {
		if tick == 3 {
			panic("bad tick")
		}
		return systems.Decide(slot, tick, v, p, rng, scratch)
	}

	err := g.Run(context.Background(), nil, 0)
	if !errors.Is(err, ErrWorkerPanic) {
		t.Fatalf("Run error = %v, want ErrWorkerPanic", err)
	}
	if g.Tick() != 3 {
		t.Errorf("Tick() = %d, want 3", g.Tick())
	}
}

func TestRun_PauseHoldsBetweenTicks(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{})
	frames, unsubscribe := g.Subscribe(16)
	defer unsubscribe()

	ctl := NewControl()
	ctl.Pause()

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background(), ctl, 3) }()

	select {
	case f := <-frames:
		t.Fatalf("frame %d published while paused", f.Tick)
	case <-time.After(50 * time.Millisecond):
	}

	if ctl.TogglePause() {
		t.Fatal("TogglePause() = true, want resumed")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not finish after resume")
	}

	for want := uint32(1); want <= 3; want++ {
		if f := <-frames; f.Tick != want {
			t.Errorf("frame tick = %d, want %d", f.Tick, want)
		}
	}
}

func TestControl_PauseResume(t *testing.T) {
	ctl := NewControl()
	if ctl.Paused() {
		t.Fatal("new control is paused")
	}
	ctl.Pause()
	if !ctl.Paused() {
		t.Error("Paused() = false after Pause")
	}
	ctl.Resume()
	if ctl.Paused() {
		t.Error("Paused() = true after Resume")
	}
	if !ctl.TogglePause() {
		t.Error("TogglePause() = false, want paused")
	}
}

func TestSinks_WriteRunOutput(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	cfg := config.MustDefaults()
	cfg.Population.Initial = config.InitialCounts{Herbivore: 10, Carnivore: 4, Omnivore: 3}
	cfg.Food.Initial = 50
	cfg.Telemetry.StatsWindow = 10
	cfg.Recompute()

	g, err := New(cfg, Options{Seed: 5, OutputDir: outDir, DBPath: filepath.Join(dir, "runs.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mustStep(t, g, 30)

	n, err := g.sink.WindowCount(context.Background(), g.sink.RunID())
	if err != nil {
		t.Fatalf("WindowCount: %v", err)
	}
	if n != 3 {
		t.Errorf("stored windows = %d, want 3", n)
	}

	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 4 {
		t.Errorf("telemetry.csv has %d lines, want 4", len(lines))
	}

	for _, name := range []string{"config.yaml", "perf.csv", "history.csv", "totals.csv", "hall_of_fame.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	// The written config reproduces the run seed
	written, err := config.Load(filepath.Join(outDir, "config.yaml"))
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if written.Seed != 5 {
		t.Errorf("written seed = %d, want 5", written.Seed)
	}
}
