package systems

import (
	"math/rand/v2"
	"sync"
	"testing"
)

func testPool(max int, prob float64) *FoodPool {
	return NewFoodPool(FoodPoolParams{
		Max:              max,
		Width:            800,
		Height:           800,
		SpawnProbability: prob,
		EnergyMin:        0.3,
		EnergyMax:        0.7,
	})
}

func TestFoodPool_SpawnRespectsCap(t *testing.T) {
	p := testPool(5, 1.0)
	rng := rand.New(rand.NewPCG(1, 1))
	if n := p.Seed(5, rng); n != 5 {
		t.Fatalf("expected 5 seeded items, got %d", n)
	}

	if _, res := p.SpawnTick(rng); res != SpawnBlocked {
		t.Errorf("expected SpawnBlocked at cap, got %d", res)
	}
	if p.Len() != 5 {
		t.Errorf("expected count to stay 5, got %d", p.Len())
	}
}

func TestFoodPool_SpawnValues(t *testing.T) {
	p := testPool(1000, 1.0)
	rng := rand.New(rand.NewPCG(2, 2))
	for i := 0; i < 500; i++ {
		f, res := p.SpawnTick(rng)
		if res != SpawnAdded {
			t.Fatal("expected spawn with probability 1")
		}
		if f.X < 0 || f.X > 800 || f.Y < 0 || f.Y > 800 {
			t.Fatalf("food %+v outside arena", f)
		}
		if f.Energy < 0.3 || f.Energy >= 0.7 {
			t.Fatalf("food energy %f outside [0.3, 0.7)", f.Energy)
		}
	}
}

func TestFoodPool_ZeroProbabilityNeverSpawns(t *testing.T) {
	p := testPool(10, 0)
	rng := rand.New(rand.NewPCG(3, 3))
	for i := 0; i < 100; i++ {
		if _, res := p.SpawnTick(rng); res != SpawnNone {
			t.Fatalf("expected SpawnNone with probability 0, got %d", res)
		}
	}
}

// A full pool draws the same values as an empty one, so later draws from
// the same rng do not shift.
func TestFoodPool_SpawnDrawsSameAtCap(t *testing.T) {
	full := testPool(1, 0.5)
	full.Add(1, 1, 0.5)
	empty := testPool(100, 0.5)

	rngFull := rand.New(rand.NewPCG(4, 4))
	rngEmpty := rand.New(rand.NewPCG(4, 4))
	for i := 0; i < 50; i++ {
		_, resFull := full.SpawnTick(rngFull)
		_, resEmpty := empty.SpawnTick(rngEmpty)
		if (resFull == SpawnBlocked) != (resEmpty == SpawnAdded) {
			t.Fatalf("attempt %d: full=%d empty=%d", i, resFull, resEmpty)
		}
	}
	if rngFull.Uint64() != rngEmpty.Uint64() {
		t.Error("rng sequences diverged")
	}
}

func TestFoodPool_ConsumeFirstWins(t *testing.T) {
	p := testPool(10, 1.0)
	f, _ := p.Add(10, 10, 0.5)

	if !p.Consume(f.ID) {
		t.Fatal("expected first consume to succeed")
	}
	if p.Consume(f.ID) {
		t.Error("expected second consume to fail")
	}
	if p.Len() != 1 {
		t.Errorf("expected removal deferred until sweep, got len %d", p.Len())
	}
	if removed := p.Sweep(); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if p.Len() != 0 {
		t.Errorf("expected empty pool after sweep, got %d", p.Len())
	}
	if p.Consume(f.ID) {
		t.Error("expected consume of swept id to fail")
	}
}

func TestFoodPool_ConcurrentConsumeSingleWinner(t *testing.T) {
	p := testPool(10, 1.0)
	f, _ := p.Add(10, 10, 0.5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Consume(f.ID) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestFoodPool_SweepKeepsOrderAndLookup(t *testing.T) {
	p := testPool(10, 1.0)
	a, _ := p.Add(1, 1, 0.5)
	b, _ := p.Add(2, 2, 0.5)
	c, _ := p.Add(3, 3, 0.5)

	p.Consume(b.ID)
	p.Sweep()

	items := p.Items(nil)
	if len(items) != 2 || items[0].ID != a.ID || items[1].ID != c.ID {
		t.Fatalf("unexpected items after sweep: %+v", items)
	}
	if got, ok := p.Get(c.ID); !ok || got.X != 3 {
		t.Errorf("expected lookup of id %d after sweep, got %+v (%v)", c.ID, got, ok)
	}
	if _, ok := p.Get(b.ID); ok {
		t.Error("expected swept item to be gone")
	}
}
