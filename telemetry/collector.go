package telemetry

import "github.com/pthm-cable/biome/traits"

// Collector accumulates events within tick windows and produces WindowStats.
// It also keeps run-long totals and a bounded population/energy history.
type Collector struct {
	windowTicks     uint32
	windowStartTick uint32

	// Event counters for current window
	births            [traits.NumKinds]int
	deaths            [traits.NumKinds]int
	starved           int
	oldAge            int
	predated          int
	foodEaten         int
	foodContested     int
	foodSpawned       int
	foodSpawnsSkipped int
	birthsDropped     int
	attacks           int
	kills             int
	attacksFailed     int
	attacksVoid       int

	totals  Totals
	history *History
}

// NewCollector creates a new stats collector.
// windowTicks: ticks per stats window (0 disables flushing)
// historySize: samples of population/energy history kept
func NewCollector(windowTicks, historySize int) *Collector {
	return &Collector{
		windowTicks: uint32(max(windowTicks, 0)),
		history:     NewHistory(historySize),
	}
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth(kind traits.Kind) {
	c.births[kind]++
	c.totals.Births++
}

// RecordBirthDropped records a birth lost to the population cap.
func (c *Collector) RecordBirthDropped() {
	c.birthsDropped++
	c.totals.BirthsDropped++
}

// RecordStarvation records a death from exhausted energy.
func (c *Collector) RecordStarvation(kind traits.Kind) {
	c.starved++
	c.recordDeath(kind)
}

// RecordOldAge records a death from exceeding the maximum age.
func (c *Collector) RecordOldAge(kind traits.Kind) {
	c.oldAge++
	c.recordDeath(kind)
}

// RecordPredation records a being killed by an attack.
func (c *Collector) RecordPredation(kind traits.Kind) {
	c.predated++
	c.recordDeath(kind)
}

func (c *Collector) recordDeath(kind traits.Kind) {
	c.deaths[kind]++
	c.totals.Deaths++
}

// RecordFoodEaten records a successful meal.
func (c *Collector) RecordFoodEaten() {
	c.foodEaten++
	c.totals.FoodEaten++
}

// RecordFoodContested records an eat request that lost to an earlier eater.
func (c *Collector) RecordFoodContested() {
	c.foodContested++
}

// RecordFoodSpawned records a newly spawned food item.
func (c *Collector) RecordFoodSpawned() {
	c.foodSpawned++
}

// RecordFoodSpawnSkipped records a spawn attempt blocked by the food cap.
func (c *Collector) RecordFoodSpawnSkipped() {
	c.foodSpawnsSkipped++
}

// RecordAttack records an attack attempt.
func (c *Collector) RecordAttack() {
	c.attacks++
}

// RecordKill records a successful attack.
func (c *Collector) RecordKill() {
	c.kills++
	c.totals.Kills++
}

// RecordAttackFailed records an attack the defender survived.
func (c *Collector) RecordAttackFailed() {
	c.attacksFailed++
}

// RecordAttackVoid records an attack on a target that already died this tick.
func (c *Collector) RecordAttackVoid() {
	c.attacksVoid++
}

// RecordTick samples the population at the end of a tick.
func (c *Collector) RecordTick(tick uint32, population int, meanEnergy float64) {
	if population > c.totals.MaxPopulation {
		c.totals.MaxPopulation = population
	}
	c.history.Add(HistorySample{Tick: tick, Population: population, MeanEnergy: meanEnergy})
}

// Totals returns the run-long counters.
func (c *Collector) Totals() Totals {
	return c.totals
}

// History returns the bounded population/energy history.
func (c *Collector) History() *History {
	return c.history
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint32) bool {
	return c.windowTicks > 0 && currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// beings is a sample of every living being at currentTick; food is the
// current food count.
func (c *Collector) Flush(currentTick uint32, beings []BeingSample, food int) WindowStats {
	var killRate float64
	if c.attacks > 0 {
		killRate = float64(c.kills) / float64(c.attacks)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		Food:            food,

		HerbivoreBirths: c.births[traits.Herbivore],
		CarnivoreBirths: c.births[traits.Carnivore],
		OmnivoreBirths:  c.births[traits.Omnivore],
		HerbivoreDeaths: c.deaths[traits.Herbivore],
		CarnivoreDeaths: c.deaths[traits.Carnivore],
		OmnivoreDeaths:  c.deaths[traits.Omnivore],
		Starved:         c.starved,
		OldAge:          c.oldAge,
		Predated:        c.predated,
		BirthsDropped:   c.birthsDropped,

		FoodEaten:         c.foodEaten,
		FoodContested:     c.foodContested,
		FoodSpawned:       c.foodSpawned,
		FoodSpawnsSkipped: c.foodSpawnsSkipped,

		Attacks:       c.attacks,
		Kills:         c.kills,
		AttacksFailed: c.attacksFailed,
		AttacksVoid:   c.attacksVoid,
		KillRate:      killRate,
	}
	stats.fillPopulation(beings)

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = [traits.NumKinds]int{}
	c.deaths = [traits.NumKinds]int{}
	c.starved, c.oldAge, c.predated = 0, 0, 0
	c.foodEaten, c.foodContested, c.foodSpawned, c.foodSpawnsSkipped = 0, 0, 0, 0
	c.birthsDropped = 0
	c.attacks, c.kills, c.attacksFailed, c.attacksVoid = 0, 0, 0, 0

	return stats
}

// Totals holds run-long counters.
type Totals struct {
	Births        int `json:"births" csv:"births"`
	Deaths        int `json:"deaths" csv:"deaths"`
	MaxPopulation int `json:"max_population" csv:"max_population"`
	FoodEaten     int `json:"food_eaten" csv:"food_eaten"`
	Kills         int `json:"kills" csv:"kills"`
	BirthsDropped int `json:"births_dropped" csv:"births_dropped"`
}
