package traits

import "math/rand/v2"

// Genome is the heritable trait vector of a being. It is fixed at birth.
type Genome struct {
	Speed            float64 `json:"speed" yaml:"speed"`
	Size             float64 `json:"size" yaml:"size"`
	ReproductionRate float64 `json:"reproduction_rate" yaml:"reproduction_rate"`
	Perception       float64 `json:"perception" yaml:"perception"`
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64
	Max float64
}

// Valid reports whether the range is non-empty.
func (r Range) Valid() bool {
	return r.Min <= r.Max
}

// Clamp restricts v to the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Sample draws uniformly from [Min, Max).
func (r Range) Sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Bounds holds one range per genome trait.
type Bounds struct {
	Speed            Range
	Size             Range
	ReproductionRate Range
	Perception       Range
}

// Clamp returns g with every trait restricted to its bound.
func (b Bounds) Clamp(g Genome) Genome {
	return Genome{
		Speed:            b.Speed.Clamp(g.Speed),
		Size:             b.Size.Clamp(g.Size),
		ReproductionRate: b.ReproductionRate.Clamp(g.ReproductionRate),
		Perception:       b.Perception.Clamp(g.Perception),
	}
}

// Contains reports whether every trait of g is within bounds.
func (b Bounds) Contains(g Genome) bool {
	return b.Speed.Contains(g.Speed) &&
		b.Size.Contains(g.Size) &&
		b.ReproductionRate.Contains(g.ReproductionRate) &&
		b.Perception.Contains(g.Perception)
}

// Valid reports whether every range is non-empty.
func (b Bounds) Valid() bool {
	return b.Speed.Valid() && b.Size.Valid() && b.ReproductionRate.Valid() && b.Perception.Valid()
}

// Random draws an initial genome from per-kind ranges, clamped into bounds.
func Random(rng *rand.Rand, ranges, bounds Bounds) Genome {
	g := Genome{
		Speed:            ranges.Speed.Sample(rng),
		Size:             ranges.Size.Sample(rng),
		ReproductionRate: ranges.ReproductionRate.Sample(rng),
		Perception:       ranges.Perception.Sample(rng),
	}
	return bounds.Clamp(g)
}

// Mutate returns a copy of g where each trait, with probability rate, is scaled
// by a factor drawn from U(1-spread, 1+spread). The result is clamped to bounds.
// Draws are taken in a fixed order so the result depends only on the stream.
func (g Genome) Mutate(rng *rand.Rand, rate, spread float64, bounds Bounds) Genome {
	child := g
	child.Speed = mutateTrait(rng, child.Speed, rate, spread)
	child.Size = mutateTrait(rng, child.Size, rate, spread)
	child.ReproductionRate = mutateTrait(rng, child.ReproductionRate, rate, spread)
	child.Perception = mutateTrait(rng, child.Perception, rate, spread)
	return bounds.Clamp(child)
}

func mutateTrait(rng *rand.Rand, v, rate, spread float64) float64 {
	roll := rng.Float64()
	factor := 1 + spread*(2*rng.Float64()-1)
	if roll < rate {
		return v * factor
	}
	return v
}
