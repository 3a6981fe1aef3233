package systems

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/traits"
)

func testParams(t *testing.T) Params {
	t.Helper()
	cfg := config.MustDefaults()
	cfg.Genome.Size = config.Range{Min: 0.1, Max: 10}
	cfg.Recompute()
	return ParamsFromConfig(cfg)
}

func TestDecide_DecayAndAging(t *testing.T) {
	p := testParams(t)
	p.TraitCost = 0.001
	v := buildView([]Agent{agent(1, traits.Herbivore, 400, 400, 10, 5)}, nil)
	v.Agents[0].Age = 7

	in := Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})

	if in.Age != 8 {
		t.Errorf("expected age 8, got %d", in.Age)
	}
	g := v.Agents[0].Genome
	want := -p.Decay - 0.001*(g.Size+g.Speed)
	if math.Abs(in.EnergyDelta-want) > 1e-12 {
		t.Errorf("expected energy delta %g, got %g", want, in.EnergyDelta)
	}
}

func TestDecide_SeekingMovesAlongHeading(t *testing.T) {
	p := testParams(t)
	p.TurnChance = 0
	a := agent(1, traits.Herbivore, 400, 400, 10, 5)
	a.Heading = 0
	a.Genome.Speed = 2
	v := buildView([]Agent{a}, nil)

	in := Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if in.Action != ActionSeek {
		t.Fatalf("expected seek, got %v", in.Action)
	}
	if math.Abs(in.X-402) > 1e-9 || math.Abs(in.Y-400) > 1e-9 {
		t.Errorf("expected (402, 400), got (%f, %f)", in.X, in.Y)
	}
}

func TestDecide_ClampsToArena(t *testing.T) {
	p := testParams(t)
	p.TurnChance = 0
	rng := rand.New(rand.NewPCG(9, 9))
	for i := 0; i < 200; i++ {
		a := agent(1, traits.Herbivore, rng.Float64()*2, rng.Float64()*800, 10, 5)
		a.Heading = math.Pi
		a.Genome.Speed = 3
		v := buildView([]Agent{a}, nil)
		in := Decide(0, 1, v, &p, rng, &QueryScratch{})
		if in.X < 0 || in.X > p.Width || in.Y < 0 || in.Y > p.Height {
			t.Fatalf("position (%f, %f) outside arena", in.X, in.Y)
		}
	}
}

func TestDecide_PursuitStepCapped(t *testing.T) {
	p := testParams(t)
	a := agent(1, traits.Carnivore, 100, 100, 20, 30)
	a.Genome.Speed = 2
	prey := agent(2, traits.Herbivore, 125, 100, 10, 5)
	v := buildView([]Agent{a, prey}, nil)

	in := Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if in.Action != ActionPursue {
		t.Fatalf("expected pursue, got %v", in.Action)
	}
	step := 2 * p.Kinds[traits.Carnivore].PursuitMultiplier
	if math.Abs(in.X-(100+step)) > 1e-9 {
		t.Errorf("expected x %f, got %f", 100+step, in.X)
	}
}

func TestDecide_EatInContactDoesNotMove(t *testing.T) {
	p := testParams(t)
	a := agent(1, traits.Herbivore, 100, 100, 10, 20)
	food := []Food{{ID: 4, X: 104, Y: 100, Energy: 0.5}}
	v := buildView([]Agent{a}, food)

	in := Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if in.Action != ActionEat || in.FoodID != 4 {
		t.Fatalf("expected eat food 4, got %+v", in)
	}
	if in.X != 100 || in.Y != 100 {
		t.Errorf("expected no movement while eating, got (%f, %f)", in.X, in.Y)
	}
}

func TestDecide_AttackInContact(t *testing.T) {
	p := testParams(t)
	a := agent(1, traits.Carnivore, 100, 100, 50, 30)
	prey := agent(2, traits.Herbivore, 110, 100, 30, 5)
	v := buildView([]Agent{a, prey}, nil)

	in := Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if in.Action != ActionAttack || in.TargetSlot != 1 {
		t.Fatalf("expected attack on slot 1, got %+v", in)
	}
}

func TestDecide_OldAgeFlagsDeath(t *testing.T) {
	p := testParams(t)
	a := agent(1, traits.Herbivore, 100, 100, 10, 5)
	a.Age = p.Kinds[traits.Herbivore].MaxAge
	v := buildView([]Agent{a}, nil)

	in := Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if in.Death != DeathOldAge {
		t.Errorf("expected old age death, got %v", in.Death)
	}
	if in.Birth {
		t.Error("dead beings must not reproduce")
	}
}

func TestDecide_ReproductionRequest(t *testing.T) {
	p := testParams(t)
	p.Repro.MinAge = 0
	p.Kinds[traits.Herbivore].BirthChance = 10
	a := agent(1, traits.Herbivore, 400, 400, 10, 5)
	a.Energy = 1
	v := buildView([]Agent{a}, nil)

	in := Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if !in.Birth {
		t.Fatal("expected a birth request")
	}
	if math.Abs(in.Child.X-in.X) > p.Repro.SpawnOffset || math.Abs(in.Child.Y-in.Y) > p.Repro.SpawnOffset {
		t.Errorf("child at (%f, %f) too far from parent (%f, %f)", in.Child.X, in.Child.Y, in.X, in.Y)
	}
	if !p.Bounds.Contains(in.Child.Genome) {
		t.Errorf("child genome %+v outside bounds", in.Child.Genome)
	}

	v.Agents[0].NextBirthTick = 5
	in = Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if in.Birth {
		t.Error("expected no birth during cooldown")
	}

	v.Agents[0].NextBirthTick = 0
	v.Agents[0].Energy = p.Repro.Threshold / 2
	in = Decide(0, 1, v, &p, rand.New(rand.NewPCG(1, 1)), &QueryScratch{})
	if in.Birth {
		t.Error("expected no birth below the energy threshold")
	}
}

func TestDecide_DeterministicForStream(t *testing.T) {
	p := testParams(t)
	a := agent(1, traits.Omnivore, 400, 400, 10, 25)
	food := []Food{{ID: 1, X: 410, Y: 410}}
	v := buildView([]Agent{a}, food)

	first := Decide(0, 3, v, &p, rand.New(rand.NewPCG(5, 1)), &QueryScratch{})
	second := Decide(0, 3, v, &p, rand.New(rand.NewPCG(5, 1)), &QueryScratch{})
	if first != second {
		t.Errorf("expected identical intents, got %+v and %+v", first, second)
	}
}
