package main

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/game"
	"github.com/pthm-cable/biome/telemetry"
	"github.com/pthm-cable/biome/traits"
)

// warmupTicks are run before extinction is checked, so a slow start with a
// handful of seeded beings is not scored as a collapse.
const warmupTicks = 50

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   uint32
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks uint32                  // ticks until a kind died out (or maxTicks)
	windowStats   []telemetry.WindowStats // collected via StatsCallback each window
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	err     error
}

// Evaluate computes fitness for a parameter vector (lower = better). Seeds
// run concurrently, each in a single-worker game.
func (fe *FitnessEvaluator) Evaluate(x []float64) (float64, error) {
	cfg := fe.configFor(x)

	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result, err := fe.runSimulation(cfg, s)
			if err != nil {
				results[idx].err = err
				return
			}
			quality := computeQuality(result.windowStats)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result.survivalTicks, quality),
				quality: quality,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for i, r := range results {
		if r.err != nil {
			return 0, fmt.Errorf("seed %d: %w", fe.seeds[i], r.err)
		}
		totalFitness += r.fitness
		totalQuality += r.quality
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n, nil
}

// configFor returns a copy of the base config with x applied.
func (fe *FitnessEvaluator) configFor(x []float64) *config.Config {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Parallel.Workers = 1
	cfg.Recompute()
	return cfg
}

// runSimulation runs one seed until a kind dies out or maxTicks is reached.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (*runResult, error) {
	result := &runResult{}

	g, err := game.New(cfg, game.Options{
		Seed: seed,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return nil, err
	}
	defer g.Close()

	for g.Tick() < fe.maxTicks {
		if err := g.Step(); err != nil {
			return nil, err
		}
		if g.Tick() < warmupTicks {
			continue
		}
		for _, k := range traits.Kinds {
			if g.Count(k) == 0 {
				result.survivalTicks = g.Tick()
				return result, nil
			}
		}
	}

	result.survivalTicks = fe.maxTicks
	return result, nil
}

// computeFitness scores a run: the surviving fraction of the run, boosted by
// up to 20% for an even mix of kinds. Negated because the optimizer minimizes.
func (fe *FitnessEvaluator) computeFitness(survivalTicks uint32, quality float64) float64 {
	survival := float64(survivalTicks) / float64(fe.maxTicks)
	return -(survival * (1 + 0.2*quality))
}

// computeQuality is the mean evenness of the kind mix over the windows, as
// Shannon entropy normalized to [0, 1]. A window with a single kind scores 0.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) == 0 {
		return 0
	}
	maxEntropy := math.Log(traits.NumKinds)
	p := make([]float64, traits.NumKinds)

	var sum float64
	for _, w := range windows {
		total := float64(w.Herbivores + w.Carnivores + w.Omnivores)
		if total == 0 {
			continue
		}
		p[0] = float64(w.Herbivores) / total
		p[1] = float64(w.Carnivores) / total
		p[2] = float64(w.Omnivores) / total
		sum += stat.Entropy(p) / maxEntropy
	}
	return sum / float64(len(windows))
}
