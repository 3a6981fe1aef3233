package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/pthm-cable/biome/traits"
)

// HallEntry is a successful being recorded at its death.
type HallEntry struct {
	ID         uint32        `json:"id"`
	Kind       traits.Kind   `json:"kind"`
	Genome     traits.Genome `json:"genome"`
	Generation uint32        `json:"generation"`
	Lifespan   uint32        `json:"lifespan"`
	Children   int           `json:"children"`
	Kills      int           `json:"kills"`
	FoodEaten  int           `json:"food_eaten"`
	PeakEnergy float64       `json:"peak_energy"`
	Fitness    float64       `json:"fitness"`
}

// HallOfFame keeps the fittest dead beings of each kind, best first.
type HallOfFame struct {
	halls   [traits.NumKinds][]HallEntry
	maxSize int
}

// NewHallOfFame creates a hall of fame holding up to maxSize entries per kind.
func NewHallOfFame(maxSize int) *HallOfFame {
	return &HallOfFame{maxSize: maxSize}
}

// Fitness scores a lifetime. Offspring dominate; kills and foraging count less.
func Fitness(s *LifetimeStats) float64 {
	return float64(s.Children) + 0.5*float64(s.Kills) + 0.1*float64(s.FoodEaten)
}

// Consider evaluates a dead being for entry. Beings that never reproduced,
// killed or ate are ignored. Returns true if the being was added.
func (hof *HallOfFame) Consider(id uint32, s *LifetimeStats, deathTick uint32) bool {
	if hof == nil || s == nil || hof.maxSize <= 0 {
		return false
	}
	fitness := Fitness(s)
	if fitness <= 0 {
		return false
	}

	hall := hof.halls[s.Kind]
	if len(hall) >= hof.maxSize && fitness <= hall[len(hall)-1].Fitness {
		return false
	}

	entry := HallEntry{
		ID:         id,
		Kind:       s.Kind,
		Genome:     s.Genome,
		Generation: s.Generation,
		Lifespan:   deathTick - s.BirthTick,
		Children:   s.Children,
		Kills:      s.Kills,
		FoodEaten:  s.FoodEaten,
		PeakEnergy: s.PeakEnergy,
		Fitness:    fitness,
	}

	// Insert after entries of equal fitness so earlier deaths rank first
	i, _ := slices.BinarySearchFunc(hall, fitness, func(e HallEntry, f float64) int {
		if e.Fitness >= f {
			return -1
		}
		return 1
	})
	hall = slices.Insert(hall, i, entry)
	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	hof.halls[s.Kind] = hall
	return true
}

// Top returns a copy of the entries of kind k, best first.
func (hof *HallOfFame) Top(k traits.Kind) []HallEntry {
	if hof == nil {
		return nil
	}
	return slices.Clone(hof.halls[k])
}

// Size returns the number of entries of kind k.
func (hof *HallOfFame) Size(k traits.Kind) int {
	if hof == nil {
		return 0
	}
	return len(hof.halls[k])
}

// MarshalJSON encodes the halls keyed by kind name.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	out := make(map[string][]HallEntry, traits.NumKinds)
	for _, k := range traits.Kinds {
		out[k.String()] = hof.halls[k]
	}
	return json.Marshal(out)
}

// SaveToFile writes the hall of fame as indented JSON.
func (hof *HallOfFame) SaveToFile(path string) error {
	data, err := json.MarshalIndent(hof, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing hall of fame: %w", err)
	}
	return nil
}
