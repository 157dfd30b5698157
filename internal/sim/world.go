package sim

import (
	"errors"
	"fmt"
)

// TickRate is the fixed simulation rate, ticks per second. Matches the
// original 30 Hz update rate; rendering frame rate is decoupled via Advance.
const TickRate = 30

// ErrSpawnInvalid is returned for spawn requests on blocked or
// out-of-bounds ground.
var ErrSpawnInvalid = errors.New("spawn: position not walkable")

// World owns all game-world state and advances it tick by tick. It is
// constructed at map load and torn down at session end; there are no
// global singletons. All mutation happens inside Step on a single
// goroutine — only CommandQueue.Enqueue may be called concurrently.
type World struct {
	def     *MapDef
	grid    *NavGrid
	units   []*Unit // arena; index == id, nil = purged slot
	spatial *SpatialIndex
	queue   *CommandQueue
	events  *EventBus
	diag    *DiagLog

	tick      int
	tickAccum float64
	snapshot  Snapshot
}

// NewWorld builds a world over the given map definition.
func NewWorld(def *MapDef) *World {
	w := &World{
		def:     def,
		grid:    def.BuildNavGrid(),
		spatial: NewSpatialIndex(),
		queue:   NewCommandQueue(),
		events:  &EventBus{},
		diag:    NewDiagLog(false),
	}
	w.buildSnapshot()
	return w
}

// SetDiag swaps in a diagnostics log (used by the test harness for
// verbose runs).
func (w *World) SetDiag(dl *DiagLog) { w.diag = dl }

// Diag returns the diagnostics log.
func (w *World) Diag() *DiagLog { return w.diag }

// Events returns the event bus for effect/sound subscribers.
func (w *World) Events() *EventBus { return w.events }

// Grid returns the navigation grid (read-only by convention).
func (w *World) Grid() *NavGrid { return w.grid }

// Tick returns the number of completed ticks.
func (w *World) Tick() int { return w.tick }

// Enqueue buffers a command for the next tick. Safe from any goroutine.
func (w *World) Enqueue(c Command) {
	w.queue.Enqueue(c)
}

// SpawnRequest describes a new unit to create.
type SpawnRequest struct {
	Faction Faction
	Pos     Vec2
	Facing  float64
	Stats   UnitStats
}

// Spawn creates a unit in Idle state. The position must be walkable.
func (w *World) Spawn(req SpawnRequest) (UnitID, error) {
	cx, cy := WorldToCell(req.Pos.X, req.Pos.Y)
	if w.grid.Blocked(cx, cy) {
		return NoUnit, ErrSpawnInvalid
	}
	id := UnitID(len(w.units))
	u := &Unit{
		id:      id,
		faction: req.Faction,
		pos:     req.Pos,
		facing:  req.Facing,
		stats:   req.Stats,
		health:  req.Stats.MaxHealth,
		state:   UnitIdle,
		target:  NoUnit,
	}
	w.units = append(w.units, u)
	w.spatial.Insert(id, u.pos)
	w.diag.Add(w.tick, w.unitLabel(id), "spawn", "created",
		fmt.Sprintf("faction %d at (%.0f,%.0f)", req.Faction, req.Pos.X, req.Pos.Y), 0)
	w.events.publish(Event{Kind: EventUnitSpawned, Tick: w.tick, Unit: id, Pos: u.pos})
	w.buildSnapshot()
	return id, nil
}

// unit resolves an id to its arena slot; nil for unknown/purged ids.
func (w *World) unit(id UnitID) *Unit {
	if id < 0 || int(id) >= len(w.units) {
		return nil
	}
	return w.units[id]
}

// Unit returns the live unit with the given id, or nil. Exposed for tests
// and the harness; render/UI code must use Snapshot instead.
func (w *World) Unit(id UnitID) *Unit { return w.unit(id) }

func (w *World) unitLabel(id UnitID) string {
	return fmt.Sprintf("u%d", id)
}

// Step advances the world by one fixed tick:
// commands → movement/timers → combat → purge → snapshot.
func (w *World) Step() {
	w.tick++
	w.drainAndApply()
	w.advanceUnits()
	w.resolveCombat()
	w.purgeDead()
	w.buildSnapshot()
}

// Advance accumulates real seconds into fixed ticks and returns how many
// ticks ran. Keeps the simulation deterministic regardless of display
// performance.
func (w *World) Advance(dt float64) int {
	w.tickAccum += dt * TickRate
	n := 0
	for w.tickAccum >= 1 {
		w.tickAccum--
		w.Step()
		n++
	}
	return n
}

// setState performs a checked state transition. Dead is terminal; Dying
// only leads to Dead. Anything else is logged and ignored.
func (w *World) setState(u *Unit, s UnitState) {
	if u.state == s {
		return
	}
	switch u.state {
	case UnitDead:
		w.invariant(false, "transition out of dead: %s → %s", u.state, s)
		return
	case UnitDying:
		if s != UnitDead {
			w.invariant(false, "transition out of dying: %s → %s", u.state, s)
			return
		}
	}
	w.diag.Add(w.tick, w.unitLabel(u.id), "state", "change",
		fmt.Sprintf("%s → %s", u.state, s), 0)
	u.state = s
}

// kill moves a unit to Dying and removes it from targeting and the spatial
// index within the same tick, per the world invariants.
func (w *World) kill(u *Unit) {
	u.health = 0
	u.clearOrder()
	w.setState(u, UnitDying)
	u.dying = dyingGraceTicks
	w.spatial.Remove(u.id)
	w.events.publish(Event{Kind: EventUnitDied, Tick: w.tick, Unit: u.id, Pos: u.pos})
	// Drop every reference other units hold to the casualty.
	for _, other := range w.units {
		if other == nil || other == u {
			continue
		}
		if other.target == u.id {
			other.target = NoUnit
			other.autoTarget = false
		}
		if other.order != nil && other.order.Kind == CommandAttackTarget && other.order.Other == u.id {
			other.order = nil
		}
	}
}

// maxPathRetries bounds consecutive budget-missed searches for one order.
// A goal whose reachable region exceeds the budget every tick would
// otherwise retry forever; after this many misses it is treated as
// unreachable.
const maxPathRetries = 30

// planPath computes a route for the unit's current order. Unreachable goals
// cancel the order and leave the unit Idle; a budget miss keeps the order
// and retries next tick, up to maxPathRetries.
func (w *World) planPath(u *Unit, goal Vec2) {
	path, err := w.grid.FindPath(u.pos.X, u.pos.Y, goal.X, goal.Y)
	if err == nil {
		u.path = path
		u.pathIndex = 0
		u.wantPath = false
		u.deferred = 0
		w.setState(u, UnitMoving)
		return
	}
	if errors.Is(err, ErrSearchBudget) {
		u.deferred++
		if u.deferred < maxPathRetries {
			// Deferred: order stays, retried on the next tick.
			u.wantPath = true
			w.diag.Add(w.tick, w.unitLabel(u.id), "path", "deferred",
				fmt.Sprintf("budget exceeded toward (%.0f,%.0f)", goal.X, goal.Y), 0)
			return
		}
		err = fmt.Errorf("%w: budget exceeded %d times", ErrUnreachable, u.deferred)
	}
	w.diag.Add(w.tick, w.unitLabel(u.id), "path", "failed", err.Error(), 0)
	w.events.publish(Event{
		Kind: EventOrderRejected, Tick: w.tick, Unit: u.id, Reason: err.Error(),
	})
	u.clearOrder()
	w.setState(u, UnitIdle)
}

// orderGoal returns the current order's destination: a fixed point for
// Move, the victim's live position for AttackTarget.
func (w *World) orderGoal(u *Unit) (Vec2, bool) {
	if u.order == nil {
		// Auto-acquired chase: follow the live target.
		if victim := w.unit(u.target); victim != nil && victim.Alive() {
			return victim.pos, true
		}
		return Vec2{}, false
	}
	switch u.order.Kind {
	case CommandMove:
		return u.order.Target, true
	case CommandAttackTarget:
		if victim := w.unit(u.order.Other); victim != nil && victim.Alive() {
			return victim.pos, true
		}
	}
	return Vec2{}, false
}

// advanceUnits runs per-unit timers and movement for one tick, in id order.
func (w *World) advanceUnits() {
	for _, u := range w.units {
		if u == nil || !u.Alive() {
			continue
		}
		if u.cooldown > 0 {
			u.cooldown--
		}

		// Retry deferred/invalidated path computations.
		if u.wantPath {
			if goal, ok := w.orderGoal(u); ok {
				w.planPath(u, goal)
			} else {
				u.clearOrder()
				w.setState(u, UnitIdle)
			}
		}

		if u.state == UnitMoving {
			w.moveAlongPath(u)
		}
	}
}

// moveAlongPath advances a unit along its waypoints at its per-tick speed,
// carrying leftover distance across waypoints the way a constant-speed
// mover should. Re-plans from the current cell if the next waypoint has
// become blocked.
func (w *World) moveAlongPath(u *Unit) {
	// Target interception: if our victim wandered into range, stop and fight.
	if u.target != NoUnit {
		if victim := w.unit(u.target); victim != nil && victim.Alive() &&
			u.pos.Dist(victim.pos) <= u.stats.AttackRange {
			u.clearMovement()
			w.setState(u, UnitAttacking)
			return
		}
	}

	if u.pathIndex >= len(u.path) {
		w.arrive(u)
		return
	}

	// Partial re-plan: a waypoint blocked mid-traversal re-routes from the
	// unit's current cell without restarting the order.
	wp := u.path[u.pathIndex]
	if wcx, wcy := WorldToCell(wp.X, wp.Y); w.grid.Blocked(wcx, wcy) {
		w.diag.Add(w.tick, w.unitLabel(u.id), "path", "replan",
			fmt.Sprintf("waypoint (%.0f,%.0f) blocked", wp.X, wp.Y), 0)
		if goal, ok := w.orderGoal(u); ok {
			w.planPath(u, goal)
		} else {
			u.clearOrder()
			w.setState(u, UnitIdle)
		}
		return
	}

	remaining := u.stats.Speed
	for remaining > 0 && u.pathIndex < len(u.path) {
		wp := u.path[u.pathIndex]
		d := u.pos.Dist(wp)
		u.turnToward(wp)
		if d <= remaining {
			u.pos = wp
			remaining -= d
			u.pathIndex++
		} else {
			u.pos.X += (wp.X - u.pos.X) / d * remaining
			u.pos.Y += (wp.Y - u.pos.Y) / d * remaining
			remaining = 0
		}
	}
	w.spatial.Move(u.id, u.pos)
	w.diag.AddVerbose(w.tick, w.unitLabel(u.id), "move", "position",
		fmt.Sprintf("(%.1f,%.1f)", u.pos.X, u.pos.Y), 0)

	if u.pathIndex >= len(u.path) {
		w.arrive(u)
	}
}

// arrive handles path exhaustion: attackers close in or re-path, movers
// come to rest.
func (w *World) arrive(u *Unit) {
	u.clearMovement()
	ordered := u.order != nil && u.order.Kind == CommandAttackTarget
	if ordered || u.target != NoUnit {
		victimID := u.target
		if ordered {
			victimID = u.order.Other
		}
		victim := w.unit(victimID)
		if victim == nil || !victim.Alive() {
			u.clearOrder()
			w.setState(u, UnitIdle)
			return
		}
		if u.pos.Dist(victim.pos) <= u.stats.AttackRange {
			w.setState(u, UnitAttacking)
			return
		}
		// Victim moved while we travelled; chase its current position.
		u.wantPath = true
		return
	}
	u.clearOrder()
	w.setState(u, UnitIdle)
}

// purgeDead advances grace timers and removes fully dead units from the
// arena. Spatial/targeting cleanup already happened when the unit entered
// Dying.
func (w *World) purgeDead() {
	for i, u := range w.units {
		if u == nil || u.state != UnitDying {
			continue
		}
		u.dying--
		if u.dying > 0 {
			continue
		}
		w.setState(u, UnitDead)
		w.diag.Add(w.tick, w.unitLabel(u.id), "state", "purged", "removed from arena", 0)
		w.units[i] = nil
	}
}

// invariant records a violated world invariant. The simulation clamps and
// carries on; tests assert the diagnostic stream stays empty.
func (w *World) invariant(cond bool, format string, args ...any) {
	if cond {
		return
	}
	w.diag.Add(w.tick, "--", "invariant", "violated", fmt.Sprintf(format, args...), 0)
}
