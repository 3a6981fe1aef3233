package systems

import (
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/traits"
)

// Action is what a being does with its tick.
type Action uint8

const (
	ActionSeek   Action = iota // wander along the persistent heading
	ActionPursue               // close in on a target
	ActionEat                  // consume a food item in contact
	ActionAttack               // attack a being in contact
	ActionNone                 // dead, no effects besides aging
)

// DeathCause records why a being was removed.
type DeathCause uint8

const (
	DeathNone DeathCause = iota
	DeathStarvation
	DeathOldAge
	DeathPredation
)

func (c DeathCause) String() string {
	switch c {
	case DeathStarvation:
		return "starvation"
	case DeathOldAge:
		return "old_age"
	case DeathPredation:
		return "predation"
	default:
		return "none"
	}
}

// Birth is a reproduction request carried by an intent.
type Birth struct {
	X, Y   float64
	Genome traits.Genome
}

// Intent describes the effects one being wants to apply this tick. It is
// computed from the snapshot alone and applied during reconciliation.
type Intent struct {
	Action      Action
	X, Y        float64 // position after movement
	Heading     float64
	Age         uint32
	EnergyDelta float64 // upkeep only; gains are applied on resolution
	FoodID      uint64  // ActionEat
	TargetSlot  int32   // ActionAttack, index into View.Agents
	AttackRoll  float64 // ActionAttack
	Birth       bool
	Child       Birth
	Death       DeathCause
}

// KindParams holds the per-kind behavior parameters.
type KindParams struct {
	MaxAge            uint32
	PursuitMultiplier float64
	FoodGain          float64
	PreyGain          float64
	BirthChance       float64
}

// ReproParams holds reproduction parameters shared by all kinds.
type ReproParams struct {
	Threshold   float64
	MinAge      uint32
	Cooldown    uint32
	Cost        float64
	ChildEnergy float64
	SpawnOffset float64
}

// Params is the read-only rule set used by Decide and reconciliation.
type Params struct {
	Width, Height  float64
	BaseSize       float64
	FoodRadius     float64
	Decay          float64
	TraitCost      float64
	TurnChance     float64
	MutationRate   float64
	MutationSpread float64
	Bounds         traits.Bounds
	Repro          ReproParams
	Combat         CombatParams
	Kinds          [traits.NumKinds]KindParams
}

// ParamsFromConfig resolves the behavior rule set from a loaded config.
func ParamsFromConfig(cfg *config.Config) Params {
	p := Params{
		Width:          cfg.World.Width,
		Height:         cfg.World.Height,
		BaseSize:       cfg.Entity.BaseSize,
		FoodRadius:     cfg.Food.Radius,
		Decay:          cfg.Energy.Decay,
		TraitCost:      cfg.Energy.TraitCost,
		TurnChance:     cfg.Behavior.TurnChance,
		MutationRate:   cfg.Mutation.Rate,
		MutationSpread: cfg.Mutation.Spread,
		Bounds:         cfg.Derived.Bounds,
		Repro: ReproParams{
			Threshold:   cfg.Reproduction.Threshold,
			MinAge:      cfg.Reproduction.MinAge,
			Cooldown:    cfg.Reproduction.Cooldown,
			Cost:        cfg.Reproduction.Cost,
			ChildEnergy: cfg.Reproduction.ChildEnergy,
			SpawnOffset: cfg.Reproduction.SpawnOffset,
		},
		Combat: CombatParams{
			SureKillRatio: cfg.Combat.SureKillRatio,
			BaseSuccess:   cfg.Combat.BaseSuccess,
			SizeWeight:    cfg.Combat.SizeWeight,
			SpeedWeight:   cfg.Combat.SpeedWeight,
			FailureDamage: cfg.Combat.FailureDamage,
		},
	}
	for _, k := range traits.Kinds {
		kc := cfg.Kind(k)
		p.Kinds[k] = KindParams{
			MaxAge:            kc.MaxAge,
			PursuitMultiplier: kc.PursuitMultiplier,
			FoodGain:          kc.FoodGain,
			PreyGain:          kc.PreyGain,
			BirthChance:       kc.BirthChance,
		}
	}
	return p
}

// Decide computes the intent of the being in slot for this tick. It reads
// only the snapshot and draws randomness only from rng, so the result is a
// pure function of (snapshot, params, stream).
func Decide(slot int32, tick uint32, v *View, p *Params, rng *rand.Rand, scratch *QueryScratch) Intent {
	self := &v.Agents[slot]
	kp := &p.Kinds[self.Kind]

	in := Intent{
		Action:     ActionSeek,
		X:          self.X,
		Y:          self.Y,
		Heading:    self.Heading,
		Age:        self.Age + 1,
		TargetSlot: -1,
	}
	in.EnergyDelta = -p.Decay - p.TraitCost*(self.Genome.Size+self.Genome.Speed)
	projected := self.Energy + in.EnergyDelta

	if in.Age > kp.MaxAge {
		in.Action = ActionNone
		in.Death = DeathOldAge
		return in
	}
	if projected <= 0 {
		in.Action = ActionNone
		in.Death = DeathStarvation
		return in
	}

	target, found := NearestTarget(self, slot, v, scratch)
	switch {
	case !found:
		if rng.Float64() < p.TurnChance {
			in.Heading = randomHeading(rng.Float64())
		}
		in.X += math.Cos(in.Heading) * self.Genome.Speed
		in.Y += math.Sin(in.Heading) * self.Genome.Speed

	case inContact(self, &target, p):
		if target.Kind == TargetFood {
			in.Action = ActionEat
			in.FoodID = target.ID
		} else {
			in.Action = ActionAttack
			in.TargetSlot = target.Slot
			in.AttackRoll = rng.Float64()
		}

	default:
		in.Action = ActionPursue
		dist := math.Sqrt(target.DistSq)
		step := min(self.Genome.Speed*kp.PursuitMultiplier, dist)
		in.X += (target.X - self.X) / dist * step
		in.Y += (target.Y - self.Y) / dist * step
	}

	cx := clampFloat(in.X, 0, p.Width)
	cy := clampFloat(in.Y, 0, p.Height)
	if (cx != in.X || cy != in.Y) && in.Action == ActionSeek {
		in.Heading = randomHeading(rng.Float64())
	}
	in.X, in.Y = cx, cy

	r := &p.Repro
	if projected >= r.Threshold && in.Age >= r.MinAge && in.Age < kp.MaxAge && tick >= self.NextBirthTick {
		if rng.Float64() < kp.BirthChance*self.Genome.ReproductionRate {
			in.Birth = true
			in.Child = Birth{
				X:      clampFloat(in.X+(2*rng.Float64()-1)*r.SpawnOffset, 0, p.Width),
				Y:      clampFloat(in.Y+(2*rng.Float64()-1)*r.SpawnOffset, 0, p.Height),
				Genome: self.Genome.Mutate(rng, p.MutationRate, p.MutationSpread, p.Bounds),
			}
		}
	}

	return in
}

// inContact reports whether the target is close enough to eat or attack.
func inContact(self *Agent, t *Target, p *Params) bool {
	reach := self.Size / 2
	if t.Kind == TargetFood {
		reach += p.FoodRadius
	} else {
		reach += t.Size / 2
	}
	return t.DistSq <= reach*reach
}
