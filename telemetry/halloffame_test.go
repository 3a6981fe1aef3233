package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/biome/traits"
)

func TestLifetimeTracker(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register(1, traits.Omnivore, traits.Genome{Size: 1}, 2, 10, 0.5)

	lt.RecordAttack(1)
	lt.RecordAttack(1)
	lt.RecordKill(1)
	lt.RecordForage(1, 0.3)
	lt.RecordChild(1)
	lt.UpdateEnergy(1, 0.9)
	lt.UpdateEnergy(1, 0.2)

	// Unknown ids are ignored
	lt.RecordKill(99)

	s := lt.Get(1)
	if s.Attacks != 2 || s.Kills != 1 || s.FoodEaten != 1 || s.Children != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.TotalForaged != 0.3 || s.PeakEnergy != 0.9 {
		t.Errorf("foraged %v, peak %v", s.TotalForaged, s.PeakEnergy)
	}

	if got := lt.Remove(1); got != s {
		t.Error("Remove returned different stats")
	}
	if lt.Count() != 0 || lt.Remove(1) != nil {
		t.Error("stats still tracked after Remove")
	}
}

func TestHallOfFame_KeepsBestPerKind(t *testing.T) {
	hof := NewHallOfFame(2)

	consider := func(id uint32, kind traits.Kind, children, kills int) bool {
		return hof.Consider(id, &LifetimeStats{Kind: kind, Children: children, Kills: kills}, 100)
	}

	if consider(1, traits.Herbivore, 0, 0) {
		t.Error("zero-fitness being entered the hall")
	}
	consider(2, traits.Herbivore, 1, 0) // 1
	consider(3, traits.Herbivore, 3, 0) // 3
	consider(4, traits.Herbivore, 2, 0) // 2, evicts 2
	if consider(5, traits.Herbivore, 1, 0) {
		t.Error("entry below the worst of a full hall was added")
	}
	consider(6, traits.Carnivore, 0, 1) // 0.5

	top := hof.Top(traits.Herbivore)
	if len(top) != 2 || top[0].ID != 3 || top[1].ID != 4 {
		t.Errorf("herbivore hall = %+v", top)
	}
	if hof.Size(traits.Carnivore) != 1 || hof.Top(traits.Carnivore)[0].Fitness != 0.5 {
		t.Errorf("carnivore hall = %+v", hof.Top(traits.Carnivore))
	}
	if hof.Size(traits.Omnivore) != 0 {
		t.Error("omnivore hall should be empty")
	}
}

func TestHallOfFame_TiesKeepEarlierFirst(t *testing.T) {
	hof := NewHallOfFame(3)
	for id := uint32(1); id <= 3; id++ {
		hof.Consider(id, &LifetimeStats{Kind: traits.Carnivore, Kills: 2}, 50)
	}
	top := hof.Top(traits.Carnivore)
	for i, e := range top {
		if e.ID != uint32(i+1) {
			t.Errorf("position %d holds id %d", i, e.ID)
		}
	}
}

func TestHallOfFame_NilSafe(t *testing.T) {
	var hof *HallOfFame
	if hof.Consider(1, &LifetimeStats{Children: 5}, 1) {
		t.Error("nil hall accepted an entry")
	}
	if hof.Top(traits.Herbivore) != nil || hof.Size(traits.Herbivore) != 0 {
		t.Error("nil hall is not empty")
	}
}

func TestHallOfFame_SaveToFile(t *testing.T) {
	hof := NewHallOfFame(5)
	hof.Consider(7, &LifetimeStats{Kind: traits.Omnivore, BirthTick: 10, Children: 2, FoodEaten: 5}, 40)

	path := filepath.Join(t.TempDir(), "hall_of_fame.json")
	if err := hof.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string][]HallEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	entries := got["omnivore"]
	if len(entries) != 1 {
		t.Fatalf("omnivore entries = %d, want 1", len(entries))
	}
	if entries[0].ID != 7 || entries[0].Lifespan != 30 || entries[0].Fitness != 2.5 {
		t.Errorf("entry = %+v", entries[0])
	}
	if _, ok := got["herbivore"]; !ok {
		t.Error("herbivore key missing")
	}
}
