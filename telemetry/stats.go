package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biome/traits"
)

// BeingSample is the per-being input to window statistics.
type BeingSample struct {
	Kind       traits.Kind
	Energy     float64
	Genome     traits.Genome
	Generation uint32
}

// WindowStats holds aggregated statistics for a tick window.
type WindowStats struct {
	WindowStartTick uint32 `csv:"-"`
	WindowEndTick   uint32 `csv:"window_end"`

	// Population counts at window end
	Herbivores int `csv:"herbivores"`
	Carnivores int `csv:"carnivores"`
	Omnivores  int `csv:"omnivores"`
	Food       int `csv:"food"`

	// Events during window
	HerbivoreBirths int `csv:"herbivore_births"`
	CarnivoreBirths int `csv:"carnivore_births"`
	OmnivoreBirths  int `csv:"omnivore_births"`
	HerbivoreDeaths int `csv:"herbivore_deaths"`
	CarnivoreDeaths int `csv:"carnivore_deaths"`
	OmnivoreDeaths  int `csv:"omnivore_deaths"`
	Starved         int `csv:"starved"`
	OldAge          int `csv:"old_age"`
	Predated        int `csv:"predated"`
	BirthsDropped   int `csv:"births_dropped"`

	// Foraging
	FoodEaten         int `csv:"food_eaten"`
	FoodContested     int `csv:"food_contested"`
	FoodSpawned       int `csv:"food_spawned"`
	FoodSpawnsSkipped int `csv:"food_spawns_skipped"`

	// Hunting
	Attacks       int     `csv:"attacks"`
	Kills         int     `csv:"kills"`
	AttacksFailed int     `csv:"attacks_failed"`
	AttacksVoid   int     `csv:"attacks_void"`
	KillRate      float64 `csv:"kill_rate"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Genome means over all living beings
	SpeedMean      float64 `csv:"speed_mean"`
	SizeMean       float64 `csv:"size_mean"`
	ReproRateMean  float64 `csv:"repro_rate_mean"`
	PerceptionMean float64 `csv:"perception_mean"`

	// Per-kind body traits
	HerbivoreSizeMean  float64 `csv:"herbivore_size_mean"`
	CarnivoreSizeMean  float64 `csv:"carnivore_size_mean"`
	OmnivoreSizeMean   float64 `csv:"omnivore_size_mean"`
	HerbivoreSpeedMean float64 `csv:"herbivore_speed_mean"`
	CarnivoreSpeedMean float64 `csv:"carnivore_speed_mean"`
	OmnivoreSpeedMean  float64 `csv:"omnivore_speed_mean"`

	// Lineage depth
	MeanGeneration float64 `csv:"mean_generation"`
	MaxGeneration  uint32  `csv:"max_generation"`
}

// Count returns the population of kind k.
func (s *WindowStats) Count(k traits.Kind) int {
	switch k {
	case traits.Herbivore:
		return s.Herbivores
	case traits.Carnivore:
		return s.Carnivores
	default:
		return s.Omnivores
	}
}

// Population returns the total number of beings.
func (s *WindowStats) Population() int {
	return s.Herbivores + s.Carnivores + s.Omnivores
}

// KindsAlive returns how many kinds have at least one living member.
func (s *WindowStats) KindsAlive() int {
	n := 0
	for _, k := range traits.Kinds {
		if s.Count(k) > 0 {
			n++
		}
	}
	return n
}

// fillPopulation computes counts and distributions from a being sample.
func (s *WindowStats) fillPopulation(beings []BeingSample) {
	n := len(beings)
	if n == 0 {
		return
	}

	energies := make([]float64, n)
	speeds := make([]float64, n)
	sizes := make([]float64, n)
	repro := make([]float64, n)
	perception := make([]float64, n)
	generations := make([]float64, n)
	var kindSize, kindSpeed [traits.NumKinds][]float64

	for i, b := range beings {
		energies[i] = b.Energy
		speeds[i] = b.Genome.Speed
		sizes[i] = b.Genome.Size
		repro[i] = b.Genome.ReproductionRate
		perception[i] = b.Genome.Perception
		generations[i] = float64(b.Generation)
		if b.Generation > s.MaxGeneration {
			s.MaxGeneration = b.Generation
		}
		kindSize[b.Kind] = append(kindSize[b.Kind], b.Genome.Size)
		kindSpeed[b.Kind] = append(kindSpeed[b.Kind], b.Genome.Speed)
	}

	s.Herbivores = len(kindSize[traits.Herbivore])
	s.Carnivores = len(kindSize[traits.Carnivore])
	s.Omnivores = len(kindSize[traits.Omnivore])

	s.EnergyMean, s.EnergyStd, s.EnergyP10, s.EnergyP50, s.EnergyP90 = ComputeDistribution(energies)
	s.SpeedMean = stat.Mean(speeds, nil)
	s.SizeMean = stat.Mean(sizes, nil)
	s.ReproRateMean = stat.Mean(repro, nil)
	s.PerceptionMean = stat.Mean(perception, nil)
	s.MeanGeneration = stat.Mean(generations, nil)

	s.HerbivoreSizeMean = meanOrZero(kindSize[traits.Herbivore])
	s.CarnivoreSizeMean = meanOrZero(kindSize[traits.Carnivore])
	s.OmnivoreSizeMean = meanOrZero(kindSize[traits.Omnivore])
	s.HerbivoreSpeedMean = meanOrZero(kindSpeed[traits.Herbivore])
	s.CarnivoreSpeedMean = meanOrZero(kindSpeed[traits.Carnivore])
	s.OmnivoreSpeedMean = meanOrZero(kindSpeed[traits.Omnivore])
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution calculates mean, population standard deviation, and
// percentiles of values.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("herbivores", s.Herbivores),
		slog.Int("carnivores", s.Carnivores),
		slog.Int("omnivores", s.Omnivores),
		slog.Int("food", s.Food),
		slog.Int("kills", s.Kills),
		slog.Float64("energy_mean", s.EnergyMean),
	)
}

// LogStats logs the window statistics using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"herbivores", s.Herbivores,
		"carnivores", s.Carnivores,
		"omnivores", s.Omnivores,
		"food", s.Food,
		"herbivore_births", s.HerbivoreBirths,
		"carnivore_births", s.CarnivoreBirths,
		"omnivore_births", s.OmnivoreBirths,
		"starved", s.Starved,
		"old_age", s.OldAge,
		"predated", s.Predated,
		"births_dropped", s.BirthsDropped,
		"food_eaten", s.FoodEaten,
		"food_contested", s.FoodContested,
		"food_spawns_skipped", s.FoodSpawnsSkipped,
		"attacks", s.Attacks,
		"kills", s.Kills,
		"kill_rate", s.KillRate,
		"energy_mean", s.EnergyMean,
		"energy_p10", s.EnergyP10,
		"energy_p50", s.EnergyP50,
		"energy_p90", s.EnergyP90,
		"speed_mean", s.SpeedMean,
		"size_mean", s.SizeMean,
		"perception_mean", s.PerceptionMean,
		"mean_generation", s.MeanGeneration,
		"max_generation", s.MaxGeneration,
	)
}
