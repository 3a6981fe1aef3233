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

func TestBookmarkDetector_HuntBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Add some history with low kill rate
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: uint32(i * 600),
			Attacks:       10,
			Kills:         2,
			KillRate:      0.2,
		})
	}

	// Now add a window with high kill rate (>2x average)
	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 3000,
		Attacks:       10,
		Kills:         8,
		KillRate:      0.8,
	})

	if !hasBookmark(bookmarks, BookmarkHuntBreakthrough) {
		t.Error("expected hunt_breakthrough bookmark")
	}
}

func TestBookmarkDetector_HerbivoreCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: uint32(i * 600),
			Herbivores:    100,
			Carnivores:    10,
		})
	}

	// 50% drop
	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 3000,
		Herbivores:    50,
		Carnivores:    10,
	})

	if !hasBookmark(bookmarks, BookmarkHerbivoreCrash) {
		t.Error("expected herbivore_crash bookmark")
	}

	// Peak resets, so a steady low population does not fire again
	bookmarks = bd.Check(WindowStats{WindowEndTick: 3600, Herbivores: 50, Carnivores: 10})
	if hasBookmark(bookmarks, BookmarkHerbivoreCrash) {
		t.Error("herbivore_crash fired twice for the same crash")
	}
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(WindowStats{WindowEndTick: 600, Herbivores: 10, Carnivores: 3, Omnivores: 2})
	bookmarks := bd.Check(WindowStats{WindowEndTick: 1200, Herbivores: 12, Carnivores: 0, Omnivores: 2})

	if !hasBookmark(bookmarks, BookmarkExtinction) {
		t.Fatal("expected extinction bookmark")
	}
	if len(bookmarks) != 1 {
		t.Errorf("got %d bookmarks, want 1", len(bookmarks))
	}

	// An already extinct kind is not reported again
	bookmarks = bd.Check(WindowStats{WindowEndTick: 1800, Herbivores: 12, Omnivores: 2})
	if hasBookmark(bookmarks, BookmarkExtinction) {
		t.Error("extinction reported twice")
	}
}

func TestBookmarkDetector_NoExtinctionOnFirstWindow(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bookmarks := bd.Check(WindowStats{WindowEndTick: 600, Herbivores: 10})
	if hasBookmark(bookmarks, BookmarkExtinction) {
		t.Error("kinds absent from the first window are not extinctions")
	}
}

func TestBookmarkDetector_PopulationCapOnce(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bookmarks := bd.Check(WindowStats{WindowEndTick: 600, Herbivores: 200, BirthsDropped: 4})
	if !hasBookmark(bookmarks, BookmarkPopulationCap) {
		t.Fatal("expected population_cap bookmark")
	}

	bookmarks = bd.Check(WindowStats{WindowEndTick: 1200, Herbivores: 200, BirthsDropped: 9})
	if hasBookmark(bookmarks, BookmarkPopulationCap) {
		t.Error("population_cap should be reported once")
	}
}

func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10)

	fired := 0
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick: uint32(i * 600),
			Herbivores:    100 + i%2,
			Carnivores:    20,
			Omnivores:     10,
		})
		if hasBookmark(bookmarks, BookmarkStableEcosystem) {
			fired++
		}
	}

	if fired != 1 {
		t.Errorf("stable_ecosystem fired %d times, want 1", fired)
	}
}
