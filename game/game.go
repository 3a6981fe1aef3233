// Package game owns the world state and runs the parallel tick loop.
package game

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/biome/components"
	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/systems"
	"github.com/pthm-cable/biome/telemetry"
	"github.com/pthm-cable/biome/traits"
)

// ErrPopulationFull is returned by SpawnBeing when the population is at its cap.
var ErrPopulationFull = errors.New("population at max_beings")

// worldStream selects the PCG stream of the world RNG. Being streams are
// derived per (tick, id) and never collide with it in practice.
const worldStream = 0x9e3779b97f4a7c15

// hallOfFameSize is the number of dead beings kept per kind.
const hallOfFameSize = 10

// Options configures a Game.
type Options struct {
	Seed          int64  // overrides config seed when nonzero
	LogStats      bool   // log window stats and perf
	OutputDir     string // CSV output directory; empty disables
	DBPath        string // SQLite database path; empty disables
	StatsCallback func(telemetry.WindowStats)
}

// decideFunc computes one being's intent. Replaced in tests.
type decideFunc func(slot int32, tick uint32, v *systems.View, p *systems.Params, rng *rand.Rand, scratch *systems.QueryScratch) systems.Intent

// Game holds the complete simulation state.
type Game struct {
	cfg    *config.Config
	params systems.Params
	seed   int64
	rng    *rand.Rand

	world *ecs.World

	beingMapper *ecs.Map4[
		components.Position,
		components.Motion,
		components.Energy,
		components.Organism,
	]
	beingFilter *ecs.Filter4[
		components.Position,
		components.Motion,
		components.Energy,
		components.Organism,
	]

	// Individual component mappers for lookups
	posMap    *ecs.Map1[components.Position]
	motionMap *ecs.Map1[components.Motion]
	energyMap *ecs.Map1[components.Energy]
	orgMap    *ecs.Map1[components.Organism]

	entities map[uint32]ecs.Entity // being id -> entity

	food      *systems.FoodPool
	agentGrid *systems.SpatialGrid
	foodGrid  *systems.SpatialGrid
	view      systems.View

	parallel *parallelState
	recon    reconcileState
	decide   decideFunc

	// State
	tick          uint32
	nextID        uint32
	counts        [traits.NumKinds]int
	activeWorkers int
	closed        bool

	frames    *framePublisher
	lastFrame *Frame

	// Telemetry
	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	bookmarks     *telemetry.BookmarkDetector
	lifetimes     *telemetry.LifetimeTracker
	hall          *telemetry.HallOfFame
	output        *telemetry.OutputManager
	sink          *telemetry.SQLiteSink
	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// New validates cfg and creates a world seeded with the initial population
// and food.
func New(cfg *config.Config, opts Options) (*Game, error) {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cfg.Seed = seed

	world := ecs.NewWorld()

	g := &Game{
		cfg:    cfg,
		params: systems.ParamsFromConfig(cfg),
		seed:   seed,
		rng:    rand.New(rand.NewPCG(uint64(seed), worldStream)),
		world:  world,
		beingMapper: ecs.NewMap4[
			components.Position,
			components.Motion,
			components.Energy,
			components.Organism,
		](world),
		beingFilter: ecs.NewFilter4[
			components.Position,
			components.Motion,
			components.Energy,
			components.Organism,
		](world),
		posMap:    ecs.NewMap1[components.Position](world),
		motionMap: ecs.NewMap1[components.Motion](world),
		energyMap: ecs.NewMap1[components.Energy](world),
		orgMap:    ecs.NewMap1[components.Organism](world),
		entities:  make(map[uint32]ecs.Entity, cfg.Population.MaxBeings),
		food: systems.NewFoodPool(systems.FoodPoolParams{
			Max:              cfg.Food.MaxFood,
			Width:            cfg.World.Width,
			Height:           cfg.World.Height,
			SpawnProbability: cfg.Food.SpawnProbability,
			EnergyMin:        cfg.Food.EnergyMin,
			EnergyMax:        cfg.Food.EnergyMax,
		}),
		agentGrid:     systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.World.GridCellSize),
		foodGrid:      systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.World.GridCellSize),
		parallel:      newParallelState(cfg.Derived.Workers, cfg.Parallel.Threshold),
		decide:        systems.Decide,
		nextID:        1,
		frames:        newFramePublisher(),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Telemetry.HistorySize),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		lifetimes:     telemetry.NewLifetimeTracker(),
		hall:          telemetry.NewHallOfFame(hallOfFameSize),
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	g.view.AgentGrid = g.agentGrid
	g.view.FoodGrid = g.foodGrid

	if err := g.openSinks(opts); err != nil {
		return nil, err
	}

	g.spawnInitialPopulation()
	g.food.Seed(cfg.Food.Initial, g.rng)
	g.publishFrame()

	return g, nil
}

// spawnInitialPopulation creates the configured number of beings per kind at
// uniform random positions.
func (g *Game) spawnInitialPopulation() {
	for _, k := range traits.Kinds {
		kc := g.cfg.Kind(k)
		ranges := kc.InitialRanges()
		for i := 0; i < g.cfg.Population.Initial.For(k); i++ {
			x := g.rng.Float64() * g.params.Width
			y := g.rng.Float64() * g.params.Height
			genome := traits.Random(g.rng, ranges, g.params.Bounds)
			g.spawnEntity(k, x, y, g.rng.Float64()*2*math.Pi, genome, g.cfg.Energy.Initial, 0, 0)
		}
	}
}

// spawnEntity creates a being and returns its id. Callers enforce the cap.
func (g *Game) spawnEntity(kind traits.Kind, x, y, heading float64, genome traits.Genome, energy float64, parentID, generation uint32) uint32 {
	id := g.nextID
	g.nextID++

	pos := components.Position{X: x, Y: y}
	motion := components.Motion{Heading: heading}
	en := components.Energy{Value: energy}
	org := components.Organism{
		ID:            id,
		Kind:          kind,
		Genome:        genome,
		ParentID:      parentID,
		Generation:    generation,
		BornTick:      g.tick,
		NextBirthTick: g.tick,
	}

	g.entities[id] = g.beingMapper.NewEntity(&pos, &motion, &en, &org)
	g.counts[kind]++
	g.lifetimes.Register(id, kind, genome, generation, g.tick, energy)
	return id
}

// SpawnBeing adds a being outside the normal birth path. The position is
// clamped into the arena and the genome into its bounds.
func (g *Game) SpawnBeing(kind traits.Kind, x, y float64, genome traits.Genome, energy float64) (uint32, error) {
	if g.Population() >= g.cfg.Population.MaxBeings {
		return 0, ErrPopulationFull
	}
	if energy <= 0 {
		return 0, fmt.Errorf("spawn %s: energy must be positive, got %g", kind, energy)
	}
	x = min(max(x, 0), g.params.Width)
	y = min(max(y, 0), g.params.Height)
	id := g.spawnEntity(kind, x, y, g.rng.Float64()*2*math.Pi, g.params.Bounds.Clamp(genome), energy, 0, 0)
	return id, nil
}

// AddFood places a food item. Returns false when the pool is full.
func (g *Game) AddFood(x, y, energy float64) (systems.Food, bool) {
	return g.food.Add(min(max(x, 0), g.params.Width), min(max(y, 0), g.params.Height), energy)
}

// Step runs a single tick. If a worker fails the tick is abandoned before
// any state changes and the error is returned.
func (g *Game) Step() error {
	g.perf.StartTick()

	g.perf.StartPhase(telemetry.PhaseSnapshot)
	g.buildSnapshot()

	g.perf.StartPhase(telemetry.PhaseCompute)
	workers, err := g.computeIntents()
	if err != nil {
		g.perf.EndTick()
		return fmt.Errorf("tick %d: %w", g.tick, err)
	}
	g.perf.SetActiveWorkers(workers)
	g.activeWorkers = workers

	g.perf.StartPhase(telemetry.PhaseReconcile)
	g.reconcile()

	g.perf.StartPhase(telemetry.PhaseFood)
	g.updateFood()

	g.tick++

	g.perf.StartPhase(telemetry.PhasePublish)
	g.publishFrame()

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.recordTick()
	g.flushTelemetry()

	g.perf.EndTick()

	if ctx := context.Background(); slog.Default().Enabled(ctx, telemetry.LevelTrace) {
		slog.Log(ctx, telemetry.LevelTrace, "tick",
			"tick", g.tick,
			"population", g.Population(),
			"food", g.food.Len(),
			"workers", workers,
		)
	}
	return nil
}

// Run steps the simulation until ctx is cancelled, ctl is stopped, maxTicks
// ticks have run (0 = unlimited) or a tick fails. Pause and stop are only
// observed between ticks. A nil ctl is never paused.
func (g *Game) Run(ctx context.Context, ctl *Control, maxTicks uint32) error {
	if ctl == nil {
		ctl = NewControl()
	}

	start := g.tick
	for {
		if !ctl.wait(ctx) {
			return nil
		}
		if err := g.Step(); err != nil {
			return err
		}
		if maxTicks > 0 && g.tick-start >= maxTicks {
			slog.Info("max ticks reached", "tick", g.tick)
			return nil
		}
	}
}

// updateFood removes eaten items and runs the spawn attempts.
func (g *Game) updateFood() {
	g.food.Sweep()
	for i := 0; i < g.cfg.Food.SpawnAttempts; i++ {
		switch _, res := g.food.SpawnTick(g.rng); res {
		case systems.SpawnAdded:
			g.collector.RecordFoodSpawned()
		case systems.SpawnBlocked:
			g.collector.RecordFoodSpawnSkipped()
		}
	}
}

// Population returns the number of living beings.
func (g *Game) Population() int {
	n := 0
	for _, c := range g.counts {
		n += c
	}
	return n
}

// Count returns the number of living beings of kind k.
func (g *Game) Count(k traits.Kind) int {
	return g.counts[k]
}

// Beings returns a copy of every living being, sorted by id.
func (g *Game) Beings() []BeingFrame {
	out := make([]BeingFrame, 0, g.Population())
	query := g.beingFilter.Query()
	for query.Next() {
		pos, motion, energy, org := query.Get()
		out = append(out, BeingFrame{
			ID:         org.ID,
			Kind:       org.Kind,
			X:          pos.X,
			Y:          pos.Y,
			Heading:    motion.Heading,
			Size:       org.BodySize(g.params.BaseSize),
			Energy:     energy.Value,
			Age:        energy.Age,
			Generation: org.Generation,
			Genome:     org.Genome,
		})
	}
	slices.SortFunc(out, func(a, b BeingFrame) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// FoodCount returns the number of food items.
func (g *Game) FoodCount() int {
	return g.food.Len()
}

// Food returns a copy of every food item.
func (g *Game) Food() []systems.Food {
	return g.food.Items(nil)
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() uint32 {
	return g.tick
}

// Seed returns the effective seed of the run.
func (g *Game) Seed() int64 {
	return g.seed
}

// Config returns the effective configuration. Callers must not modify it.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Totals returns the run-long event counters.
func (g *Game) Totals() telemetry.Totals {
	return g.collector.Totals()
}

// HallOfFame returns the fittest dead beings of kind k, best first.
func (g *Game) HallOfFame(k traits.Kind) []telemetry.HallEntry {
	return g.hall.Top(k)
}

// Close stops the worker pool and finalizes telemetry output.
func (g *Game) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.parallel.stopWorkers()
	g.frames.close()
	return g.closeSinks()
}
