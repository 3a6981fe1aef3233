package telemetry

import "github.com/pthm-cable/biome/traits"

// LifetimeStats tracks per-being statistics over its lifetime.
type LifetimeStats struct {
	Kind       traits.Kind
	Genome     traits.Genome
	Generation uint32
	BirthTick  uint32

	// Hunting
	Attacks int
	Kills   int

	// Foraging
	FoodEaten    int
	TotalForaged float64 // energy gained from food items

	// Reproduction
	Children int

	PeakEnergy float64
}

// LifetimeTracker manages per-being lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new being.
func (lt *LifetimeTracker) Register(id uint32, kind traits.Kind, genome traits.Genome, generation, birthTick uint32, energy float64) {
	lt.stats[id] = &LifetimeStats{
		Kind:       kind,
		Genome:     genome,
		Generation: generation,
		BirthTick:  birthTick,
		PeakEnergy: energy,
	}
}

// Get returns the lifetime stats of a being, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes a being's stats and returns them.
func (lt *LifetimeTracker) Remove(id uint32) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordAttack increments the attack count.
func (lt *LifetimeTracker) RecordAttack(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Attacks++
	}
}

// RecordKill increments the kill count.
func (lt *LifetimeTracker) RecordKill(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Kills++
	}
}

// RecordChild increments the children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// RecordForage counts an eaten food item and its energy gain.
func (lt *LifetimeTracker) RecordForage(id uint32, gain float64) {
	if s := lt.stats[id]; s != nil {
		s.FoodEaten++
		s.TotalForaged += gain
	}
}

// UpdateEnergy tracks peak energy.
func (lt *LifetimeTracker) UpdateEnergy(id uint32, energy float64) {
	if s := lt.stats[id]; s != nil && energy > s.PeakEnergy {
		s.PeakEnergy = energy
	}
}

// Count returns the number of tracked beings.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
