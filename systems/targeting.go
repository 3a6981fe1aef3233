package systems

import "github.com/pthm-cable/biome/traits"

// Agent is the read-only tick-start snapshot of one being.
type Agent struct {
	ID            uint32
	Kind          traits.Kind
	X, Y          float64
	Heading       float64
	Energy        float64
	Age           uint32
	Size          float64 // body size in arena units
	Genome        traits.Genome
	Generation    uint32
	NextBirthTick uint32
}

// View is the immutable world snapshot shared by all workers during a tick.
type View struct {
	Agents    []Agent // sorted by ID
	Food      []Food
	AgentGrid *SpatialGrid // indexes Agents slots
	FoodGrid  *SpatialGrid // indexes Food slots
}

// TargetKind distinguishes food targets from being targets.
// Food orders before beings when distances tie.
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetFood
	TargetBeing
)

// Target is the nearest eligible entity found by NearestTarget.
type Target struct {
	Kind   TargetKind
	Slot   int32  // index into View.Food or View.Agents
	ID     uint64 // food id or being id
	X, Y   float64
	Size   float64 // body size for beings, 0 for food
	DistSq float64
}

// QueryScratch holds reusable buffers for target queries. One per worker.
type QueryScratch struct {
	neighbors []Neighbor
}

// CanAttack reports whether attacker may target defender. No being targets
// its own kind, and prey must be strictly smaller than the hunter.
func CanAttack(attacker, defender *Agent) bool {
	if !attacker.Kind.Hunts() {
		return false
	}
	if defender.Kind == attacker.Kind {
		return false
	}
	return defender.Size < attacker.Size
}

// NearestTarget finds the closest entity within the being's perception
// radius that it may eat or attack. Ties are broken food-first, then by
// lowest id.
func NearestTarget(self *Agent, selfSlot int32, v *View, scratch *QueryScratch) (Target, bool) {
	radius := self.Genome.Perception
	var best Target

	if self.Kind.EatsFood() && v.FoodGrid != nil {
		scratch.neighbors = v.FoodGrid.QueryRadiusInto(scratch.neighbors[:0], self.X, self.Y, radius, -1)
		for _, n := range scratch.neighbors {
			f := &v.Food[n.Slot]
			cand := Target{Kind: TargetFood, Slot: n.Slot, ID: f.ID, X: f.X, Y: f.Y, DistSq: n.DistSq}
			if closer(&cand, &best) {
				best = cand
			}
		}
	}

	if self.Kind.Hunts() && v.AgentGrid != nil {
		scratch.neighbors = v.AgentGrid.QueryRadiusInto(scratch.neighbors[:0], self.X, self.Y, radius, selfSlot)
		for _, n := range scratch.neighbors {
			other := &v.Agents[n.Slot]
			if !CanAttack(self, other) {
				continue
			}
			cand := Target{Kind: TargetBeing, Slot: n.Slot, ID: uint64(other.ID), X: other.X, Y: other.Y, Size: other.Size, DistSq: n.DistSq}
			if closer(&cand, &best) {
				best = cand
			}
		}
	}

	return best, best.Kind != TargetNone
}

// closer reports whether a should replace b as the current best target.
func closer(a, b *Target) bool {
	if b.Kind == TargetNone {
		return true
	}
	if a.DistSq != b.DistSq {
		return a.DistSq < b.DistSq
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}
