package game

import (
	"sync"

	"github.com/pthm-cable/biome/systems"
	"github.com/pthm-cable/biome/telemetry"
	"github.com/pthm-cable/biome/traits"
)

// BeingFrame is the published state of one being.
type BeingFrame struct {
	ID         uint32        `json:"id"`
	Kind       traits.Kind   `json:"kind"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Heading    float64       `json:"heading"`
	Size       float64       `json:"size"`
	Energy     float64       `json:"energy"`
	Age        uint32        `json:"age"`
	Generation uint32        `json:"generation"`
	Genome     traits.Genome `json:"genome"`
}

// Frame is an immutable copy of the world after a tick. Consumers must not
// modify it; it is shared between all subscribers.
type Frame struct {
	Tick          uint32           `json:"tick"`
	Beings        []BeingFrame     `json:"beings"`
	Food          []systems.Food   `json:"food"`
	ActiveWorkers int              `json:"active_workers"`
	Herbivores    int              `json:"herbivores"`
	Carnivores    int              `json:"carnivores"`
	Omnivores     int              `json:"omnivores"`
	Totals        telemetry.Totals `json:"totals"`
}

// MeanEnergy returns the mean energy of the beings in the frame.
func (f *Frame) MeanEnergy() float64 {
	if len(f.Beings) == 0 {
		return 0
	}
	var sum float64
	for i := range f.Beings {
		sum += f.Beings[i].Energy
	}
	return sum / float64(len(f.Beings))
}

// publishFrame builds the frame of the current tick and hands it to every
// subscriber.
func (g *Game) publishFrame() {
	f := &Frame{
		Tick:          g.tick,
		Beings:        g.Beings(),
		Food:          g.food.Items(nil),
		ActiveWorkers: g.activeWorkers,
		Herbivores:    g.counts[traits.Herbivore],
		Carnivores:    g.counts[traits.Carnivore],
		Omnivores:     g.counts[traits.Omnivore],
		Totals:        g.collector.Totals(),
	}
	g.lastFrame = f
	g.frames.publish(f)
}

// Frame returns the most recently published frame. Safe for concurrent use.
func (g *Game) Frame() *Frame {
	return g.frames.latestFrame()
}

// Subscribe returns a channel that receives every published frame. A frame
// is skipped for a subscriber whose buffer is full, so a slow consumer never
// stalls the simulation. The returned func unsubscribes. Safe for concurrent
// use.
func (g *Game) Subscribe(buf int) (<-chan *Frame, func()) {
	return g.frames.subscribe(buf)
}

// framePublisher fans frames out to subscribers without blocking.
type framePublisher struct {
	mu      sync.RWMutex
	latest  *Frame
	subs    map[int]chan *Frame
	nextSub int
	closed  bool
}

func newFramePublisher() *framePublisher {
	return &framePublisher{subs: make(map[int]chan *Frame)}
}

func (p *framePublisher) publish(f *Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest = f
	for _, ch := range p.subs {
		select {
		case ch <- f:
		default:
			// Subscriber is behind; it misses this frame.
		}
	}
}

func (p *framePublisher) latestFrame() *Frame {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

func (p *framePublisher) subscribe(buf int) (<-chan *Frame, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan *Frame, max(buf, 1))
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
}

// close closes every subscriber channel.
func (p *framePublisher) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
