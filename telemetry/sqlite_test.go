package telemetry

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteSink_Disabled(t *testing.T) {
	sink, err := OpenSQLiteSink(context.Background(), "")
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	if sink != nil {
		t.Fatal("expected nil sink for empty path")
	}
	if err := sink.WriteWindow(context.Background(), WindowStats{}); err != nil {
		t.Errorf("WriteWindow on nil: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestSQLiteSink_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	sink, err := OpenSQLiteSink(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	if err := sink.WriteWindow(ctx, WindowStats{WindowEndTick: 600}); err == nil {
		t.Error("WriteWindow before StartRun should fail")
	}

	runID, err := sink.StartRun(ctx, 7, []byte("seed: 7\n"))
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if runID == "" || sink.RunID() != runID {
		t.Fatalf("RunID() = %q, want %q", sink.RunID(), runID)
	}

	if err := sink.WriteWindow(ctx, WindowStats{WindowEndTick: 600, Herbivores: 10}); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}
	if err := sink.WriteWindow(ctx, WindowStats{WindowEndTick: 1200, Herbivores: 12}); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}
	// Rewriting a window end updates the row in place
	if err := sink.WriteWindow(ctx, WindowStats{WindowEndTick: 1200, Herbivores: 13}); err != nil {
		t.Fatalf("WriteWindow upsert: %v", err)
	}
	if err := sink.WriteBookmark(ctx, Bookmark{Type: BookmarkExtinction, Tick: 1200, Description: "gone"}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := sink.FinishRun(ctx, 1200, Totals{Births: 4}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	n, err := sink.WindowCount(ctx, runID)
	if err != nil {
		t.Fatalf("WindowCount: %v", err)
	}
	if n != 2 {
		t.Errorf("WindowCount = %d, want 2", n)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := sink.WindowCount(ctx, runID); err == nil {
		t.Error("WindowCount after Close should fail")
	}
}
