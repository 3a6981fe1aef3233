package systems

import (
	"math/rand/v2"
	"sync"
)

// Food is one edible item in the arena.
type Food struct {
	ID     uint64  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Energy float64 `json:"energy"`
}

// FoodPoolParams configures a FoodPool.
type FoodPoolParams struct {
	Max              int
	Width, Height    float64
	SpawnProbability float64
	EnergyMin        float64
	EnergyMax        float64
}

// FoodPool owns the food items of the arena. Consumption only marks items;
// structural removal is deferred to Sweep so snapshot slots stay valid
// during a tick. All methods are safe for concurrent use.
type FoodPool struct {
	mu       sync.Mutex
	params   FoodPoolParams
	items    []Food
	index    map[uint64]int // id -> position in items
	consumed map[uint64]struct{}
	nextID   uint64
}

// NewFoodPool creates an empty pool.
func NewFoodPool(params FoodPoolParams) *FoodPool {
	return &FoodPool{
		params:   params,
		items:    make([]Food, 0, params.Max),
		index:    make(map[uint64]int, params.Max),
		consumed: make(map[uint64]struct{}),
		nextID:   1,
	}
}

// SpawnResult is the outcome of one spawn attempt.
type SpawnResult uint8

const (
	SpawnNone    SpawnResult = iota // roll failed
	SpawnAdded                      // a new item was created
	SpawnBlocked                    // roll succeeded but the pool was full
)

// SpawnTick runs one spawn attempt: with the configured probability a new
// item appears at a uniform random position, unless the pool is at its cap.
// The roll and the item values are always drawn, so the rng sequence does not
// depend on how full the pool is.
func (p *FoodPool) SpawnTick(rng *rand.Rand) (Food, SpawnResult) {
	if rng.Float64() >= p.params.SpawnProbability {
		return Food{}, SpawnNone
	}
	x := rng.Float64() * p.params.Width
	y := rng.Float64() * p.params.Height
	energy := p.params.EnergyMin + rng.Float64()*(p.params.EnergyMax-p.params.EnergyMin)
	f, ok := p.Add(x, y, energy)
	if !ok {
		return Food{}, SpawnBlocked
	}
	return f, SpawnAdded
}

// Add inserts an item unless the pool is full.
func (p *FoodPool) Add(x, y, energy float64) (Food, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) >= p.params.Max {
		return Food{}, false
	}
	f := Food{ID: p.nextID, X: x, Y: y, Energy: energy}
	p.nextID++
	p.index[f.ID] = len(p.items)
	p.items = append(p.items, f)
	return f, true
}

// Seed fills the pool with up to n items and returns how many were added.
func (p *FoodPool) Seed(n int, rng *rand.Rand) int {
	added := 0
	for i := 0; i < n; i++ {
		x := rng.Float64() * p.params.Width
		y := rng.Float64() * p.params.Height
		energy := p.params.EnergyMin + rng.Float64()*(p.params.EnergyMax-p.params.EnergyMin)
		if _, ok := p.Add(x, y, energy); !ok {
			break
		}
		added++
	}
	return added
}

// Consume marks an item as eaten. The first caller wins; later calls for the
// same id, and calls for unknown ids, return false.
func (p *FoodPool) Consume(id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.index[id]; !ok {
		return false
	}
	if _, done := p.consumed[id]; done {
		return false
	}
	p.consumed[id] = struct{}{}
	return true
}

// Sweep removes consumed items and returns how many were removed.
// Surviving items keep their relative order.
func (p *FoodPool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.consumed) == 0 {
		return 0
	}
	kept := p.items[:0]
	for _, f := range p.items {
		if _, gone := p.consumed[f.ID]; gone {
			delete(p.index, f.ID)
			continue
		}
		p.index[f.ID] = len(kept)
		kept = append(kept, f)
	}
	removed := len(p.items) - len(kept)
	p.items = kept
	clear(p.consumed)
	return removed
}

// Get returns the item with the given id.
func (p *FoodPool) Get(id uint64) (Food, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.index[id]
	if !ok {
		return Food{}, false
	}
	return p.items[i], true
}

// Items appends a copy of every item, including consumed but unswept ones, to dst.
func (p *FoodPool) Items(dst []Food) []Food {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(dst, p.items...)
}

// Len returns the number of items, including consumed but unswept ones.
func (p *FoodPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

