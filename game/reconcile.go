package game

import (
	"math"

	"github.com/pthm-cable/biome/systems"
)

// reconcileState is the per-tick scratch of the serial apply phase,
// indexed by snapshot slot.
type reconcileState struct {
	energy []float64
	death  []systems.DeathCause
	births []int32 // parent slots, ascending
}

func (r *reconcileState) reset(n int) {
	if cap(r.energy) < n {
		r.energy = make([]float64, n)
		r.death = make([]systems.DeathCause, n)
	}
	r.energy = r.energy[:n]
	r.death = r.death[:n]
	clear(r.death)
	r.births = r.births[:0]
}

// reconcile applies the intents of the tick in ascending being id. It is the
// only place where beings are mutated, removed or created.
func (g *Game) reconcile() {
	agents := g.view.Agents
	intents := g.parallel.intents
	rs := &g.recon
	rs.reset(len(agents))
	for i := range agents {
		rs.energy[i] = agents[i].Energy
	}

	// Apply intents
	for i := range agents {
		if rs.death[i] != systems.DeathNone {
			continue // killed by an earlier attacker this tick
		}
		in := &intents[i]
		e := g.entities[agents[i].ID]

		pos := g.posMap.Get(e)
		pos.X, pos.Y = in.X, in.Y
		g.motionMap.Get(e).Heading = in.Heading
		g.energyMap.Get(e).Age = in.Age
		rs.energy[i] += in.EnergyDelta

		if in.Death != systems.DeathNone {
			rs.death[i] = in.Death
			continue
		}

		kp := &g.params.Kinds[agents[i].Kind]
		switch in.Action {
		case systems.ActionEat:
			if f, ok := g.food.Get(in.FoodID); ok && g.food.Consume(in.FoodID) {
				gain := kp.FoodGain * f.Energy
				rs.energy[i] += gain
				g.collector.RecordFoodEaten()
				g.lifetimes.RecordForage(agents[i].ID, gain)
			} else {
				g.collector.RecordFoodContested()
			}

		case systems.ActionAttack:
			t := in.TargetSlot
			if rs.death[t] != systems.DeathNone {
				g.collector.RecordAttackVoid()
				break
			}
			g.collector.RecordAttack()
			g.lifetimes.RecordAttack(agents[i].ID)
			if systems.AttackSucceeds(&agents[i], &agents[t], in.AttackRoll, g.params.Combat) {
				rs.energy[i] += kp.PreyGain * math.Max(rs.energy[t], 0)
				rs.death[t] = systems.DeathPredation
				g.collector.RecordKill()
				g.lifetimes.RecordKill(agents[i].ID)
			} else {
				rs.energy[t] -= g.params.Combat.FailureDamage
				g.collector.RecordAttackFailed()
			}
		}

		if in.Birth {
			rs.births = append(rs.births, int32(i))
		}
	}

	// Starvation from upkeep or failed-attack damage
	for i := range agents {
		if rs.death[i] == systems.DeathNone && rs.energy[i] <= 0 {
			rs.death[i] = systems.DeathStarvation
		}
	}

	// Write back energy and remove the dead
	for i := range agents {
		id := agents[i].ID
		if rs.death[i] == systems.DeathNone {
			g.energyMap.Get(g.entities[id]).Value = rs.energy[i]
			g.lifetimes.UpdateEnergy(id, rs.energy[i])
			continue
		}
		g.removeBeing(i, rs.death[i])
	}

	g.insertBirths()
}

// removeBeing deletes the being in snapshot slot i and records its death.
func (g *Game) removeBeing(i int, cause systems.DeathCause) {
	a := &g.view.Agents[i]
	g.beingMapper.Remove(g.entities[a.ID])
	delete(g.entities, a.ID)
	g.counts[a.Kind]--
	g.hall.Consider(a.ID, g.lifetimes.Remove(a.ID), g.tick)

	switch cause {
	case systems.DeathStarvation:
		g.collector.RecordStarvation(a.Kind)
	case systems.DeathOldAge:
		g.collector.RecordOldAge(a.Kind)
	case systems.DeathPredation:
		g.collector.RecordPredation(a.Kind)
	}
}

// insertBirths creates the queued children in parent-id order. Births of
// parents that died this tick are discarded; once the population cap is
// reached the remaining births are dropped. A parent pays only for a child
// that is actually inserted, and only if it survives paying.
func (g *Game) insertBirths() {
	rs := &g.recon
	repro := &g.params.Repro

	for _, slot := range rs.births {
		if rs.death[slot] != systems.DeathNone {
			continue
		}
		if g.Population() >= g.cfg.Population.MaxBeings {
			g.collector.RecordBirthDropped()
			continue
		}
		if rs.energy[slot] <= repro.Cost {
			continue
		}

		parent := &g.view.Agents[slot]
		e := g.entities[parent.ID]
		rs.energy[slot] -= repro.Cost
		g.energyMap.Get(e).Value = rs.energy[slot]
		g.orgMap.Get(e).NextBirthTick = g.tick + repro.Cooldown

		child := &g.parallel.intents[slot].Child
		heading := g.rng.Float64() * 2 * math.Pi
		g.spawnEntity(parent.Kind, child.X, child.Y, heading, child.Genome, repro.ChildEnergy, parent.ID, parent.Generation+1)
		g.collector.RecordBirth(parent.Kind)
		g.lifetimes.RecordChild(parent.ID)
	}
}
