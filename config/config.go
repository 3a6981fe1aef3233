// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/biome/traits"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Seed         int64              `yaml:"seed"` // 0 = derive from wall clock at startup
	Parallel     ParallelConfig     `yaml:"parallel"`
	Screen       ScreenConfig       `yaml:"screen"`
	World        WorldConfig        `yaml:"world"`
	Entity       EntityConfig       `yaml:"entity"`
	Population   PopulationConfig   `yaml:"population"`
	Food         FoodConfig         `yaml:"food"`
	Energy       EnergyConfig       `yaml:"energy"`
	Genome       GenomeConfig       `yaml:"genome"`
	Mutation     MutationConfig     `yaml:"mutation"`
	Behavior     BehaviorConfig     `yaml:"behavior"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Combat       CombatConfig       `yaml:"combat"`
	Kinds        KindsConfig        `yaml:"kinds"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Server       ServerConfig       `yaml:"server"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ParallelConfig controls the tick worker pool.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = runtime.GOMAXPROCS(0)
	Threshold int `yaml:"threshold"` // below this many beings the tick runs inline
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	TargetFPS     int `yaml:"target_fps"`
	StatsHeight   int `yaml:"stats_height"` // pixels reserved for the stats line
	TicksPerFrame int `yaml:"ticks_per_frame"`
}

// WorldConfig holds arena dimensions.
type WorldConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// EntityConfig holds body parameters shared by every being.
type EntityConfig struct {
	BaseSize float64 `yaml:"base_size"` // body size = base_size * genome.size
}

// PopulationConfig holds population caps and seeding.
type PopulationConfig struct {
	MaxBeings int           `yaml:"max_beings"`
	Initial   InitialCounts `yaml:"initial"`
}

// InitialCounts is the number of beings of each kind seeded at startup.
type InitialCounts struct {
	Herbivore int `yaml:"herbivore"`
	Carnivore int `yaml:"carnivore"`
	Omnivore  int `yaml:"omnivore"`
}

// Total returns the number of seeded beings.
func (c InitialCounts) Total() int {
	return c.Herbivore + c.Carnivore + c.Omnivore
}

// For returns the initial count for kind k.
func (c InitialCounts) For(k traits.Kind) int {
	switch k {
	case traits.Herbivore:
		return c.Herbivore
	case traits.Carnivore:
		return c.Carnivore
	default:
		return c.Omnivore
	}
}

// FoodConfig holds food pool parameters.
type FoodConfig struct {
	MaxFood          int     `yaml:"max_food"`
	Initial          int     `yaml:"initial"`           // items seeded at startup
	SpawnProbability float64 `yaml:"spawn_probability"` // chance per attempt
	SpawnAttempts    int     `yaml:"spawn_attempts"`    // attempts per tick
	EnergyMin        float64 `yaml:"energy_min"`
	EnergyMax        float64 `yaml:"energy_max"`
	Radius           float64 `yaml:"radius"` // contact radius added to the eater's half size
}

// EnergyConfig holds per-tick energy accounting.
type EnergyConfig struct {
	Initial   float64 `yaml:"initial"`    // energy of seeded beings
	Decay     float64 `yaml:"decay"`      // constant loss per tick
	TraitCost float64 `yaml:"trait_cost"` // extra loss per tick per unit of (size + speed)
}

// GenomeConfig holds the hard bounds of every genome trait.
type GenomeConfig struct {
	Speed            Range `yaml:"speed"`
	Size             Range `yaml:"size"`
	ReproductionRate Range `yaml:"reproduction_rate"`
	Perception       Range `yaml:"perception"`
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate   float64 `yaml:"rate"`   // per-trait mutation probability
	Spread float64 `yaml:"spread"` // multiplicative factor drawn from U(1-spread, 1+spread)
}

// BehaviorConfig holds movement policy parameters.
type BehaviorConfig struct {
	TurnChance float64 `yaml:"turn_chance"` // chance per tick that a seeking being picks a new heading
}

// ReproductionConfig holds birth parameters shared by all kinds.
type ReproductionConfig struct {
	Threshold   float64 `yaml:"threshold"`    // minimum energy to reproduce
	MinAge      uint32  `yaml:"min_age"`      // ticks
	Cooldown    uint32  `yaml:"cooldown"`     // ticks between births of one parent
	Cost        float64 `yaml:"cost"`         // energy debited from the parent
	ChildEnergy float64 `yaml:"child_energy"` // energy of the newborn
	SpawnOffset float64 `yaml:"spawn_offset"` // max distance of the child from the parent on each axis
}

// CombatConfig holds attack resolution parameters.
type CombatConfig struct {
	SureKillRatio float64 `yaml:"sure_kill_ratio"` // size ratio at or above which attacks always succeed
	BaseSuccess   float64 `yaml:"base_success"`
	SizeWeight    float64 `yaml:"size_weight"`
	SpeedWeight   float64 `yaml:"speed_weight"`
	FailureDamage float64 `yaml:"failure_damage"` // energy lost by a defender that survives
}

// KindsConfig holds per-kind parameters.
type KindsConfig struct {
	Herbivore KindConfig `yaml:"herbivore"`
	Carnivore KindConfig `yaml:"carnivore"`
	Omnivore  KindConfig `yaml:"omnivore"`
}

// KindConfig holds the parameters of one behavioral kind.
type KindConfig struct {
	MaxAge            uint32  `yaml:"max_age"`
	Speed             Range   `yaml:"speed"` // initial genome ranges
	Size              Range   `yaml:"size"`
	ReproductionRate  Range   `yaml:"reproduction_rate"`
	Perception        Range   `yaml:"perception"`
	PursuitMultiplier float64 `yaml:"pursuit_multiplier"`
	FoodGain          float64 `yaml:"food_gain"` // fraction of food energy absorbed
	PreyGain          float64 `yaml:"prey_gain"` // fraction of prey energy absorbed
	BirthChance       float64 `yaml:"birth_chance"`
}

// InitialRanges converts the kind's initial genome ranges to trait bounds.
func (k KindConfig) InitialRanges() traits.Bounds {
	return traits.Bounds{
		Speed:            k.Speed.Traits(),
		Size:             k.Size.Traits(),
		ReproductionRate: k.ReproductionRate.Traits(),
		Perception:       k.Perception.Traits(),
	}
}

// TelemetryConfig holds telemetry settings.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // ticks per stats window
	PerfWindow  int `yaml:"perf_window"`  // ticks per perf log line
	HistorySize int `yaml:"history_size"` // samples of population/energy history kept
}

// ServerConfig holds the websocket viewer settings.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	FrameBuffer int    `yaml:"frame_buffer"` // frames queued per client before dropping
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Workers int           // effective worker count
	Bounds  traits.Bounds // genome.* as trait bounds
	Kinds   [traits.NumKinds]*KindConfig
}

// Range is a [min, max] pair written in YAML as a two-element sequence.
type Range struct {
	Min float64
	Max float64
}

// UnmarshalYAML decodes a [min, max] sequence.
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: range needs exactly 2 values, got %d", value.Line, len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// MarshalYAML encodes the range as a flow sequence.
func (r Range) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []float64{r.Min, r.Max} {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(v, 'g', -1, 64),
		})
	}
	return node, nil
}

// Traits converts the range for use by the traits package.
func (r Range) Traits() traits.Range {
	return traits.Range{Min: r.Min, Max: r.Max}
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.Overlay(data); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// MustDefaults is like Defaults but panics on error.
func MustDefaults() *Config {
	cfg, err := Defaults()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Overlay merges YAML data over the current values. Only fields present in
// data are overwritten.
func (c *Config) Overlay(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	c.computeDerived()
	return nil
}

// Clone returns a deep copy with derived values recomputed.
func (c *Config) Clone() *Config {
	out := *c
	out.computeDerived()
	return &out
}

// Kind returns the parameters of kind k.
func (c *Config) Kind(k traits.Kind) *KindConfig {
	return c.Derived.Kinds[k]
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Workers = c.Parallel.Workers
	if c.Derived.Workers <= 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}
	c.Derived.Bounds = traits.Bounds{
		Speed:            c.Genome.Speed.Traits(),
		Size:             c.Genome.Size.Traits(),
		ReproductionRate: c.Genome.ReproductionRate.Traits(),
		Perception:       c.Genome.Perception.Traits(),
	}
	c.Derived.Kinds = [traits.NumKinds]*KindConfig{
		traits.Herbivore: &c.Kinds.Herbivore,
		traits.Carnivore: &c.Kinds.Carnivore,
		traits.Omnivore:  &c.Kinds.Omnivore,
	}
}

// Validate checks the configuration and returns every violation joined into
// one error. Each violation wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Parallel.Workers < 0 {
		fail("parallel.workers must be >= 0, got %d", c.Parallel.Workers)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		fail("world dimensions must be positive, got %gx%g", c.World.Width, c.World.Height)
	}
	if c.World.GridCellSize <= 0 {
		fail("world.grid_cell_size must be positive, got %g", c.World.GridCellSize)
	}
	if c.Entity.BaseSize <= 0 {
		fail("entity.base_size must be positive, got %g", c.Entity.BaseSize)
	}
	if c.Population.MaxBeings <= 0 {
		fail("population.max_beings must be positive, got %d", c.Population.MaxBeings)
	}
	seeded := c.Population.Initial
	if seeded.Herbivore < 0 || seeded.Carnivore < 0 || seeded.Omnivore < 0 {
		fail("population.initial counts must be >= 0")
	}
	if seeded.Total() > c.Population.MaxBeings {
		fail("population.initial total %d exceeds max_beings %d", seeded.Total(), c.Population.MaxBeings)
	}
	if c.Food.MaxFood < 0 {
		fail("food.max_food must be >= 0, got %d", c.Food.MaxFood)
	}
	if c.Food.Initial < 0 || c.Food.Initial > c.Food.MaxFood {
		fail("food.initial must be within [0, max_food], got %d", c.Food.Initial)
	}
	if c.Food.SpawnProbability < 0 || c.Food.SpawnProbability > 1 {
		fail("food.spawn_probability must be within [0, 1], got %g", c.Food.SpawnProbability)
	}
	if c.Food.SpawnAttempts < 0 {
		fail("food.spawn_attempts must be >= 0, got %d", c.Food.SpawnAttempts)
	}
	if c.Food.EnergyMin < 0 || c.Food.EnergyMin > c.Food.EnergyMax {
		fail("food energy range [%g, %g] is invalid", c.Food.EnergyMin, c.Food.EnergyMax)
	}
	if c.Food.Radius < 0 {
		fail("food.radius must be >= 0, got %g", c.Food.Radius)
	}
	if c.Energy.Initial <= 0 {
		fail("energy.initial must be positive, got %g", c.Energy.Initial)
	}
	if c.Energy.Decay < 0 || c.Energy.TraitCost < 0 {
		fail("energy.decay and energy.trait_cost must be >= 0")
	}
	if c.Mutation.Rate < 0 || c.Mutation.Rate > 1 {
		fail("mutation.rate must be within [0, 1], got %g", c.Mutation.Rate)
	}
	if c.Mutation.Spread < 0 || c.Mutation.Spread >= 1 {
		fail("mutation.spread must be within [0, 1), got %g", c.Mutation.Spread)
	}
	if c.Behavior.TurnChance < 0 || c.Behavior.TurnChance > 1 {
		fail("behavior.turn_chance must be within [0, 1], got %g", c.Behavior.TurnChance)
	}
	if c.Reproduction.Cost < 0 || c.Reproduction.ChildEnergy <= 0 {
		fail("reproduction.cost must be >= 0 and child_energy positive")
	}
	if c.Reproduction.SpawnOffset < 0 {
		fail("reproduction.spawn_offset must be >= 0, got %g", c.Reproduction.SpawnOffset)
	}
	if c.Combat.SureKillRatio < 1 {
		fail("combat.sure_kill_ratio must be >= 1, got %g", c.Combat.SureKillRatio)
	}
	if c.Combat.FailureDamage < 0 {
		fail("combat.failure_damage must be >= 0, got %g", c.Combat.FailureDamage)
	}

	for _, r := range namedRanges(c.Genome.Speed, c.Genome.Size, c.Genome.ReproductionRate, c.Genome.Perception) {
		if r.Min <= 0 || r.Min > r.Max {
			fail("genome.%s bounds [%g, %g] are invalid", r.name, r.Min, r.Max)
		}
	}

	for _, k := range traits.Kinds {
		kc := c.Kind(k)
		if kc.MaxAge == 0 {
			fail("kinds.%s.max_age must be positive", k)
		}
		for _, r := range namedRanges(kc.Speed, kc.Size, kc.ReproductionRate, kc.Perception) {
			if r.Min > r.Max {
				fail("kinds.%s.%s range [%g, %g] is invalid", k, r.name, r.Min, r.Max)
			}
		}
		if kc.PursuitMultiplier <= 0 {
			fail("kinds.%s.pursuit_multiplier must be positive", k)
		}
		if kc.FoodGain < 0 || kc.PreyGain < 0 || kc.BirthChance < 0 {
			fail("kinds.%s gains and birth_chance must be >= 0", k)
		}
	}

	if c.Telemetry.StatsWindow < 0 || c.Telemetry.PerfWindow < 0 || c.Telemetry.HistorySize < 0 {
		fail("telemetry windows must be >= 0")
	}

	return errors.Join(errs...)
}

type namedRange struct {
	Range
	name string
}

// namedRanges labels genome-ordered ranges for error messages.
func namedRanges(speed, size, repro, perception Range) []namedRange {
	return []namedRange{
		{speed, "speed"},
		{size, "size"},
		{repro, "reproduction_rate"},
		{perception, "perception"},
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.MarshalYAMLBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// MarshalYAMLBytes encodes the configuration as YAML.
func (c *Config) MarshalYAMLBytes() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
