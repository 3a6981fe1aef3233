package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/biome/telemetry"
)

// openSinks creates the CSV output directory and the SQLite run record.
func (g *Game) openSinks(opts Options) error {
	out, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	if err := out.WriteConfig(g.cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	ctx := context.Background()
	sink, err := telemetry.OpenSQLiteSink(ctx, opts.DBPath)
	if err != nil {
		out.Close()
		return fmt.Errorf("opening database: %w", err)
	}
	if sink != nil {
		data, err := g.cfg.MarshalYAMLBytes()
		if err == nil {
			_, err = sink.StartRun(ctx, g.seed, data)
		}
		if err != nil {
			out.Close()
			sink.Close()
			return fmt.Errorf("starting run record: %w", err)
		}
		slog.Info("recording run", "db", opts.DBPath, "run_id", sink.RunID())
	}

	g.output = out
	g.sink = sink
	return nil
}

// recordTick samples the population after every tick.
func (g *Game) recordTick() {
	g.collector.RecordTick(g.tick, len(g.lastFrame.Beings), g.lastFrame.MeanEnergy())
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	// Flush the stats window
	stats := g.collector.Flush(g.tick, g.beingSamples(), g.food.Len())
	perfStats := g.perf.Stats()

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	ctx := context.Background()
	if err := g.sink.WriteWindow(ctx, stats); err != nil {
		slog.Error("failed to store window", "error", err)
	}

	// Check for bookmarks
	for _, bm := range g.bookmarks.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if err := g.sink.WriteBookmark(ctx, bm); err != nil {
			slog.Error("failed to store bookmark", "error", err)
		}
	}
}

// beingSamples collects the per-being inputs of window statistics from the
// latest frame.
func (g *Game) beingSamples() []telemetry.BeingSample {
	beings := g.lastFrame.Beings
	out := make([]telemetry.BeingSample, len(beings))
	for i := range beings {
		out[i] = telemetry.BeingSample{
			Kind:       beings[i].Kind,
			Energy:     beings[i].Energy,
			Genome:     beings[i].Genome,
			Generation: beings[i].Generation,
		}
	}
	return out
}

// closeSinks writes the run summary and closes every output.
func (g *Game) closeSinks() error {
	var errs []error
	totals := g.collector.Totals()

	if err := g.output.WriteHistory(g.collector.History(), totals); err != nil {
		errs = append(errs, err)
	}
	if err := g.output.WriteHallOfFame(g.hall); err != nil {
		errs = append(errs, err)
	}
	if err := g.sink.FinishRun(context.Background(), g.tick, totals); err != nil {
		errs = append(errs, err)
	}
	if err := g.output.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := g.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
