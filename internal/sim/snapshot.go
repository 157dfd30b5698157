package sim

// UnitView is the read-only per-unit state exposed to rendering/UI.
type UnitView struct {
	ID        UnitID
	Faction   Faction
	Pos       Vec2
	Facing    float64
	Health    float64
	MaxHealth float64
	State     UnitState
}

// Snapshot captures the post-tick world state for non-simulation callers.
// It is rebuilt after every tick; consumers must never mutate simulation
// entities through it (there is nothing mutable to reach).
type Snapshot struct {
	Tick  int
	Units []UnitView // ordered by unit id
}

// buildSnapshot regenerates the cached snapshot from the arena.
func (w *World) buildSnapshot() {
	units := make([]UnitView, 0, len(w.units))
	for _, u := range w.units {
		if u == nil || u.state == UnitDead {
			continue
		}
		units = append(units, UnitView{
			ID:        u.id,
			Faction:   u.faction,
			Pos:       u.pos,
			Facing:    u.facing,
			Health:    u.health,
			MaxHealth: u.stats.MaxHealth,
			State:     u.state,
		})
	}
	w.snapshot = Snapshot{Tick: w.tick, Units: units}
}

// Snapshot returns the view of the world after the most recent tick.
// The unit slice is copied per call, so no caller can corrupt the cached
// view another reader holds.
func (w *World) Snapshot() Snapshot {
	units := make([]UnitView, len(w.snapshot.Units))
	copy(units, w.snapshot.Units)
	return Snapshot{Tick: w.snapshot.Tick, Units: units}
}
