package game

import (
	"cmp"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/pthm-cable/biome/systems"
)

// ErrWorkerPanic is wrapped by the error returned when intent computation
// panics in a worker.
var ErrWorkerPanic = errors.New("worker panic")

// parallelThreshold is the minimum being count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	query systems.QueryScratch
	pcg   *rand.PCG
	rng   *rand.Rand
}

// workChunk represents a range of snapshot slots for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds resources for parallel intent computation.
type parallelState struct {
	intents    []systems.Intent
	scratches  []workerScratch
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan error     // workers report chunk completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(numWorkers, threshold int) *parallelState {
	numWorkers = max(numWorkers, 1)
	if threshold <= 0 {
		threshold = parallelThreshold
	}
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].pcg = rand.NewPCG(0, 0)
		scratches[i].rng = rand.New(scratches[i].pcg)
	}
	return &parallelState{
		numWorkers: numWorkers,
		threshold:  threshold,
		scratches:  scratches,
		intents:    make([]systems.Intent, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(g *Game) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan error, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(g, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(g *Game, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- g.computeChunk(chunk.start, chunk.end, scratch)
		}
	}
}

// buildSnapshot copies every living being, sorted by id, and every food item
// into the tick view and rebuilds both spatial grids.
func (g *Game) buildSnapshot() {
	agents := g.view.Agents[:0]

	query := g.beingFilter.Query()
	for query.Next() {
		pos, motion, energy, org := query.Get()
		agents = append(agents, systems.Agent{
			ID:            org.ID,
			Kind:          org.Kind,
			X:             pos.X,
			Y:             pos.Y,
			Heading:       motion.Heading,
			Energy:        energy.Value,
			Age:           energy.Age,
			Size:          org.BodySize(g.params.BaseSize),
			Genome:        org.Genome,
			Generation:    org.Generation,
			NextBirthTick: org.NextBirthTick,
		})
	}
	slices.SortFunc(agents, func(a, b systems.Agent) int {
		return cmp.Compare(a.ID, b.ID)
	})
	g.view.Agents = agents
	g.view.Food = g.food.Items(g.view.Food[:0])

	g.agentGrid.Clear()
	for i := range agents {
		g.agentGrid.Insert(int32(i), agents[i].X, agents[i].Y)
	}
	g.foodGrid.Clear()
	for i := range g.view.Food {
		g.foodGrid.Insert(int32(i), g.view.Food[i].X, g.view.Food[i].Y)
	}
}

// computeIntents fills one intent per snapshot slot and returns how many
// workers took part.
func (g *Game) computeIntents() (int, error) {
	n := len(g.view.Agents)
	if cap(g.parallel.intents) < n {
		g.parallel.intents = make([]systems.Intent, n)
	}
	g.parallel.intents = g.parallel.intents[:n]
	if n == 0 {
		return 0, nil
	}

	// Single-threaded for small populations
	if n < g.parallel.threshold || g.parallel.numWorkers == 1 {
		return 1, g.computeChunk(0, n, &g.parallel.scratches[0])
	}
	return g.computeParallel(n)
}

// computeParallel dispatches work to the worker pool and waits for every
// chunk, including the ones that finish after a failure.
func (g *Game) computeParallel(n int) (int, error) {
	// Ensure workers are running
	if !g.parallel.running {
		g.parallel.startWorkers(g)
	}

	numWorkers := g.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}

		g.parallel.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	var errs []error
	for i := 0; i < chunksDispatched; i++ {
		if err := <-g.parallel.doneChan; err != nil {
			errs = append(errs, err)
		}
	}
	return chunksDispatched, errors.Join(errs...)
}

// computeChunk computes the intents of slots [i0, i1). It reads only the
// snapshot and writes only its own intent slots. A panic is returned as an
// error wrapping ErrWorkerPanic.
func (g *Game) computeChunk(i0, i1 int, scratch *workerScratch) (err error) {
	slot := i0
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: being %d: %v\n%s", ErrWorkerPanic, g.view.Agents[slot].ID, r, debug.Stack())
		}
	}()

	for ; slot < i1; slot++ {
		id := g.view.Agents[slot].ID
		scratch.pcg.Seed(beingStream(g.seed, g.tick, id))
		g.parallel.intents[slot] = g.decide(int32(slot), g.tick, &g.view, &g.params, scratch.rng, &scratch.query)
	}
	return nil
}

// beingStream returns the PCG seed of a being's random stream for one tick.
// It depends only on (seed, tick, id), so intents do not depend on which
// worker computed them.
func beingStream(seed int64, tick, id uint32) (uint64, uint64) {
	return uint64(seed), mix64(uint64(tick)<<32 | uint64(id))
}

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
