package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/biome/traits"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction       BookmarkType = "extinction"
	BookmarkHuntBreakthrough BookmarkType = "hunt_breakthrough"
	BookmarkHerbivoreCrash   BookmarkType = "herbivore_crash"
	BookmarkPopulationCap    BookmarkType = "population_cap"
	BookmarkStableEcosystem  BookmarkType = "stable_ecosystem"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        uint32       `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	lastCounts         [traits.NumKinds]int
	seen               bool
	herbivorePeak      int
	capReported        bool
	stableWindowsCount int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable ecosystem detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	bookmarks = append(bookmarks, bd.checkExtinctions(stats)...)

	if b := bd.checkPopulationCap(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		// Hunt breakthrough: kill rate > 2x rolling average
		if b := bd.checkHuntBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Herbivore crash: dropped >30% from recent peak
		if b := bd.checkHerbivoreCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Stable ecosystem: all three kinds present with low variance over 5+ windows
		if b := bd.checkStableEcosystem(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if stats.Herbivores > bd.herbivorePeak {
		bd.herbivorePeak = stats.Herbivores
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns stored windows, oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkExtinctions(stats WindowStats) []Bookmark {
	var out []Bookmark
	for _, k := range traits.Kinds {
		n := stats.Count(k)
		if bd.seen && bd.lastCounts[k] > 0 && n == 0 {
			out = append(out, Bookmark{
				Type:        BookmarkExtinction,
				Tick:        stats.WindowEndTick,
				Description: fmt.Sprintf("%s died out (was %d)", k, bd.lastCounts[k]),
			})
		}
		bd.lastCounts[k] = n
	}
	bd.seen = true
	return out
}

func (bd *BookmarkDetector) checkPopulationCap(stats WindowStats) *Bookmark {
	if bd.capReported || stats.BirthsDropped == 0 {
		return nil
	}
	bd.capReported = true
	return &Bookmark{
		Type:        BookmarkPopulationCap,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Population cap reached at %d beings, %d births dropped", stats.Population(), stats.BirthsDropped),
	}
}

func (bd *BookmarkDetector) checkHuntBreakthrough(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	// Calculate rolling average kill rate
	var totalKills, totalAttacks int
	for _, h := range history {
		totalKills += h.Kills
		totalAttacks += h.Attacks
	}

	if totalAttacks == 0 || stats.Attacks == 0 {
		return nil
	}

	avgKillRate := float64(totalKills) / float64(totalAttacks)
	if avgKillRate == 0 {
		return nil
	}

	currentKillRate := stats.KillRate
	if currentKillRate > avgKillRate*2.0 && stats.Kills >= 3 {
		return &Bookmark{
			Type:        BookmarkHuntBreakthrough,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Kill rate %.2f is %.1fx average (%.2f)", currentKillRate, currentKillRate/avgKillRate, avgKillRate),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkHerbivoreCrash(stats WindowStats) *Bookmark {
	if bd.herbivorePeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Herbivores)/float64(bd.herbivorePeak)
	if dropPercent > 0.30 && stats.Herbivores < bd.herbivorePeak-10 {
		// Reset peak after crash
		oldPeak := bd.herbivorePeak
		bd.herbivorePeak = stats.Herbivores

		return &Bookmark{
			Type:        BookmarkHerbivoreCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Herbivores crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Herbivores),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	if stats.KindsAlive() < traits.NumKinds {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	stable := true
	for _, k := range traits.Kinds {
		var sum float64
		for _, h := range recent {
			sum += float64(h.Count(k))
		}
		mean := sum / 4
		if mean == 0 {
			stable = false
			break
		}
		var variance float64
		for _, h := range recent {
			d := float64(h.Count(k)) - mean
			variance += d * d
		}
		variance /= 4
		if variance/(mean*mean) >= 0.04 { // CV^2 < 0.04 means CV < 0.2
			stable = false
			break
		}
	}

	if stable {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type: BookmarkStableEcosystem,
			Tick: stats.WindowEndTick,
			Description: fmt.Sprintf("Stable coexistence of %d herbivores, %d carnivores, %d omnivores over 5+ windows",
				stats.Herbivores, stats.Carnivores, stats.Omnivores),
		}
	}

	return nil
}
