package sim

import "fmt"

// resolveCombat runs the per-tick combat phase: target acquisition first,
// then attack resolution, both in unit-id order for determinism.
func (w *World) resolveCombat() {
	w.acquireTargets()
	w.resolveAttacks()
}

// acquireTargets lets orderless Idle units auto-acquire the nearest hostile
// inside their aggro radius, ties broken by lowest unit id. HoldPosition
// units engage only inside attack range and never chase.
func (w *World) acquireTargets() {
	for _, u := range w.units {
		if u == nil || !u.Alive() {
			continue
		}
		if u.state != UnitIdle || u.order != nil || u.stats.AggroRadius <= 0 {
			continue
		}

		if u.target == NoUnit {
			hostile := func(id UnitID) bool {
				v := w.unit(id)
				return v != nil && v.Alive() && v.faction != u.faction
			}
			id, ok := w.spatial.QueryNearest(u.pos, u.stats.AggroRadius, hostile)
			if !ok {
				continue
			}
			u.target = id
			u.autoTarget = true
			w.diag.Add(w.tick, w.unitLabel(u.id), "combat", "acquired",
				w.unitLabel(id), 0)
		}

		victim := w.unit(u.target)
		if victim == nil || !victim.Alive() ||
			u.pos.Dist(victim.pos) > u.stats.AggroRadius {
			u.target = NoUnit
			u.autoTarget = false
			continue
		}

		if u.pos.Dist(victim.pos) <= u.stats.AttackRange {
			w.setState(u, UnitAttacking)
		} else if !u.hold {
			w.planPath(u, victim.pos)
		} else {
			// Holding position: keep scanning, do not chase.
			u.target = NoUnit
			u.autoTarget = false
		}
	}
}

// resolveAttacks fires at most one attack per Attacking unit whose cooldown
// has elapsed. Damage is applied atomically within the tick and health never
// goes below zero.
func (w *World) resolveAttacks() {
	for _, u := range w.units {
		if u == nil || !u.Alive() || u.state != UnitAttacking {
			continue
		}

		victim := w.unit(u.target)
		if victim == nil || !victim.Alive() {
			// Target died or was dropped this tick.
			u.clearOrder()
			w.setState(u, UnitIdle)
			continue
		}

		dist := u.pos.Dist(victim.pos)
		if dist > u.stats.AttackRange {
			if u.hold {
				u.target = NoUnit
				u.autoTarget = false
				w.setState(u, UnitIdle)
				continue
			}
			// Chase: re-path toward the target's current position.
			w.diag.Add(w.tick, w.unitLabel(u.id), "combat", "pursue",
				fmt.Sprintf("%s out of range (%.0f)", w.unitLabel(victim.id), dist), 0)
			w.planPath(u, victim.pos)
			continue
		}

		u.turnToward(victim.pos)
		if u.cooldown > 0 {
			continue // Attacking → Attacking on cooldown tick
		}

		dmg := u.stats.AttackDamage
		victim.health -= dmg
		if victim.health < 0 {
			victim.health = 0
		}
		w.invariant(victim.health <= victim.stats.MaxHealth,
			"%s health %f above max", w.unitLabel(victim.id), victim.health)
		u.cooldown = u.stats.AttackCooldown
		w.diag.Add(w.tick, w.unitLabel(u.id), "combat", "attack",
			fmt.Sprintf("%s for %.0f → %.0f hp", w.unitLabel(victim.id), dmg, victim.health), victim.health)
		w.events.publish(Event{
			Kind:  EventAttackFired,
			Tick:  w.tick,
			Unit:  u.id,
			Other: victim.id,
			Pos:   u.pos,
		})

		if victim.health <= 0 {
			w.kill(victim)
		}
	}
}
