// Package components defines ECS components for the simulation.
package components

import (
	"github.com/pthm-cable/biome/traits"
)

// Position represents a being's arena position.
type Position struct {
	X, Y float64
}

// Motion holds the persistent seeking heading in radians.
type Motion struct {
	Heading float64
}

// Energy holds the energy reserve and age of a being.
type Energy struct {
	Value float64
	Age   uint32 // ticks lived
}

// Organism holds identity and heritable data. Kind and Genome never change.
type Organism struct {
	ID            uint32
	Kind          traits.Kind
	Genome        traits.Genome
	ParentID      uint32 // 0 for seeded beings
	Generation    uint32
	BornTick      uint32
	NextBirthTick uint32 // earliest tick at which the being may reproduce again
}

// BodySize returns the body size in arena units.
func (o *Organism) BodySize(baseSize float64) float64 {
	return baseSize * o.Genome.Size
}
