package sim

import "sync"

// CommandKind tags the Command variant. The tick driver switches over every
// kind exhaustively; adding a kind without handling it is caught by the
// default diagnostic.
type CommandKind int

const (
	CommandMove CommandKind = iota
	CommandAttackTarget
	CommandStop
	CommandHoldPosition
)

func (k CommandKind) String() string {
	switch k {
	case CommandMove:
		return "move"
	case CommandAttackTarget:
		return "attack"
	case CommandStop:
		return "stop"
	case CommandHoldPosition:
		return "hold"
	default:
		return "unknown"
	}
}

// Command is a player/AI intent. Created by external input, applied exactly
// once at the next tick boundary, then discarded.
type Command struct {
	Kind    CommandKind
	Faction Faction // issuing faction; must own Unit
	Unit    UnitID  // the unit receiving the order
	Target  Vec2    // Move destination
	Other   UnitID  // AttackTarget victim
}

// CommandQueue buffers intents arriving asynchronously from input until the
// start of the next tick. Enqueue is safe to call from any goroutine; the
// drain side runs only inside the single-threaded tick.
type CommandQueue struct {
	mu      sync.Mutex
	pending []Command
}

// NewCommandQueue returns an empty queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

// Enqueue appends a command in arrival order.
func (q *CommandQueue) Enqueue(c Command) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
}

// Len returns the number of undrained commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// drain swaps out the pending buffer. Called once per tick.
func (q *CommandQueue) drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// supersede keeps, per unit, only the latest command in the batch while
// preserving arrival order across different units: a later order replaces an
// earlier unapplied one for the same unit, nothing else is reordered.
func supersede(batch []Command) []Command {
	if len(batch) < 2 {
		return batch
	}
	last := make(map[UnitID]int, len(batch))
	for i, c := range batch {
		last[c.Unit] = i
	}
	out := batch[:0]
	for i, c := range batch {
		if last[c.Unit] == i {
			out = append(out, c)
		}
	}
	return out
}

// drainAndApply applies all queued commands in order. Invalid commands are
// dropped with a diagnostic, never an error: a stale order must not take
// down the tick.
func (w *World) drainAndApply() {
	batch := supersede(w.queue.drain())
	for _, c := range batch {
		w.applyCommand(c)
	}
}

// applyCommand validates one command and mutates the addressed unit.
// Ordering a Dead or Dying unit is a no-op.
func (w *World) applyCommand(c Command) {
	u := w.unit(c.Unit)
	if u == nil || !u.Alive() {
		w.rejectCommand(c, "unknown or dead unit")
		return
	}
	if u.faction != c.Faction {
		w.rejectCommand(c, "unit not owned by issuer")
		return
	}

	switch c.Kind {
	case CommandMove:
		cx, cy := WorldToCell(c.Target.X, c.Target.Y)
		if !w.grid.InBounds(cx, cy) {
			w.rejectCommand(c, "target out of bounds")
			return
		}
		u.clearOrder()
		u.hold = false
		order := c
		u.order = &order
		u.wantPath = true
		w.planPath(u, c.Target)

	case CommandAttackTarget:
		victim := w.unit(c.Other)
		if victim == nil || !victim.Alive() {
			w.rejectCommand(c, "target unit invalid")
			return
		}
		if victim.faction == u.faction {
			w.rejectCommand(c, "target is friendly")
			return
		}
		u.clearOrder()
		u.hold = false
		order := c
		u.order = &order
		u.target = c.Other
		u.autoTarget = false
		if u.pos.Dist(victim.pos) <= u.stats.AttackRange {
			u.clearMovement()
			w.setState(u, UnitAttacking)
		} else {
			u.wantPath = true
			w.planPath(u, victim.pos)
		}

	case CommandStop:
		u.clearOrder()
		u.hold = false
		w.setState(u, UnitIdle)

	case CommandHoldPosition:
		u.clearOrder()
		u.hold = true
		w.setState(u, UnitIdle)

	default:
		w.rejectCommand(c, "unhandled command kind")
	}
}

// rejectCommand records the drop as a diagnostic and notifies listeners so
// the UI can hint at why nothing happened.
func (w *World) rejectCommand(c Command, reason string) {
	w.diag.Add(w.tick, w.unitLabel(c.Unit), "command", "rejected",
		c.Kind.String()+": "+reason, 0)
	w.events.publish(Event{
		Kind:   EventOrderRejected,
		Tick:   w.tick,
		Unit:   c.Unit,
		Reason: reason,
	})
}
