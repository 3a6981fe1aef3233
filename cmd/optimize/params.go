package main

import (
	"github.com/pthm-cable/biome/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Food supply
			{
				Name: "food_spawn_probability", Path: "food.spawn_probability", Min: 0.05, Max: 1.0,
				get: func(c *config.Config) float64 { return c.Food.SpawnProbability },
				set: func(c *config.Config, v float64) { c.Food.SpawnProbability = v },
			},
			// Energy
			{
				Name: "energy_decay", Path: "energy.decay", Min: 0.000001, Max: 0.005,
				get: func(c *config.Config) float64 { return c.Energy.Decay },
				set: func(c *config.Config, v float64) { c.Energy.Decay = v },
			},
			// Reproduction
			{
				Name: "repro_threshold", Path: "reproduction.threshold", Min: 0.3, Max: 1.5,
				get: func(c *config.Config) float64 { return c.Reproduction.Threshold },
				set: func(c *config.Config, v float64) { c.Reproduction.Threshold = v },
			},
			{
				Name: "repro_cost", Path: "reproduction.cost", Min: 0.1, Max: 0.8,
				get: func(c *config.Config) float64 { return c.Reproduction.Cost },
				set: func(c *config.Config, v float64) { c.Reproduction.Cost = v },
			},
			// Feeding
			{
				Name: "herbivore_food_gain", Path: "kinds.herbivore.food_gain", Min: 0.3, Max: 1.0,
				get: func(c *config.Config) float64 { return c.Kinds.Herbivore.FoodGain },
				set: func(c *config.Config, v float64) { c.Kinds.Herbivore.FoodGain = v },
			},
			{
				Name: "carnivore_prey_gain", Path: "kinds.carnivore.prey_gain", Min: 0.3, Max: 1.0,
				get: func(c *config.Config) float64 { return c.Kinds.Carnivore.PreyGain },
				set: func(c *config.Config, v float64) { c.Kinds.Carnivore.PreyGain = v },
			},
			// Combat
			{
				Name: "combat_base_success", Path: "combat.base_success", Min: 0.05, Max: 0.9,
				get: func(c *config.Config) float64 { return c.Combat.BaseSuccess },
				set: func(c *config.Config, v float64) { c.Combat.BaseSuccess = v },
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
	cfg.Recompute()
}

// ExtractFromConfig reads the current parameter values from cfg, clamped to
// the search bounds.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(cfg)
	}
	return pv.Clamp(v)
}
