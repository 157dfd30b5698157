package sim

import "math"

// Vec2 is a continuous world-plane position.
type Vec2 struct {
	X, Y float64
}

// Dist returns the Euclidean distance to other.
func (v Vec2) Dist(other Vec2) float64 {
	return math.Hypot(other.X-v.X, other.Y-v.Y)
}

// UnitID indexes a unit slot in the world arena. Ids are never reused
// within a session, so a stale id safely resolves to nothing.
type UnitID int32

// NoUnit is the nil unit reference.
const NoUnit UnitID = -1

// Faction identifies the owning player/AI side of a unit.
type Faction int

// UnitState is the per-unit behaviour state.
type UnitState int

const (
	UnitIdle      UnitState = iota // holding, may auto-acquire targets
	UnitMoving                     // advancing along a path
	UnitAttacking                  // engaging a target in range
	UnitDying                      // health zero, grace timer running
	UnitDead                       // terminal; purged from the world
)

func (s UnitState) String() string {
	switch s {
	case UnitIdle:
		return "idle"
	case UnitMoving:
		return "moving"
	case UnitAttacking:
		return "attacking"
	case UnitDying:
		return "dying"
	case UnitDead:
		return "dead"
	default:
		return "unknown"
	}
}

// dyingGraceTicks is how long a unit stays in Dying before it is purged
// (death animation window for the render layer).
const dyingGraceTicks = 30

// turnRate is how fast facing tracks the movement/attack direction,
// radians per tick.
const turnRate = 0.25

// UnitStats are the immutable combat/movement parameters of a unit.
type UnitStats struct {
	Speed          float64 // world units per tick
	MaxHealth      float64
	AttackRange    float64
	AttackDamage   float64
	AttackCooldown int     // ticks between attacks
	AggroRadius    float64 // auto-acquire radius; 0 disables auto-acquire
}

// DefaultStats returns a baseline rifleman-style unit.
func DefaultStats() UnitStats {
	return UnitStats{
		Speed:          1.5,
		MaxHealth:      100,
		AttackRange:    48,
		AttackDamage:   10,
		AttackCooldown: 20,
		AggroRadius:    120,
	}
}

// Unit is one entity in the world arena. All cross-unit references are
// id-based lookups, never pointers, so a target dying mid-tick can never
// dangle.
type Unit struct {
	id      UnitID
	faction Faction
	pos     Vec2
	facing  float64
	stats   UnitStats
	health  float64

	state UnitState
	order *Command // current order; nil when idle
	hold  bool     // HoldPosition: attack in range, never chase

	path      []Vec2
	pathIndex int
	wantPath  bool // a path computation is owed (deferred or pending re-plan)
	deferred  int  // consecutive budget-missed searches for the current order

	target     UnitID // current combat target, NoUnit when none
	autoTarget bool   // target was auto-acquired, not ordered
	cooldown   int    // ticks until the next attack may fire
	dying      int    // grace ticks remaining in Dying
}

// ID returns the unit's arena id.
func (u *Unit) ID() UnitID { return u.id }

// Faction returns the owning faction.
func (u *Unit) Faction() Faction { return u.faction }

// Pos returns the unit's current position.
func (u *Unit) Pos() Vec2 { return u.pos }

// State returns the current behaviour state.
func (u *Unit) State() UnitState { return u.state }

// Health returns current health in [0, MaxHealth].
func (u *Unit) Health() float64 { return u.health }

// Stats returns the unit's immutable parameters.
func (u *Unit) Stats() UnitStats { return u.stats }

// Alive reports whether the unit can act or be targeted.
func (u *Unit) Alive() bool {
	return u.state != UnitDying && u.state != UnitDead
}

// clearMovement drops the current path without touching the order.
func (u *Unit) clearMovement() {
	u.path = nil
	u.pathIndex = 0
	u.wantPath = false
}

// clearOrder returns the unit to an orderless state.
func (u *Unit) clearOrder() {
	u.order = nil
	u.target = NoUnit
	u.autoTarget = false
	u.deferred = 0
	u.clearMovement()
}

// turnToward rotates facing toward the heading of (p - pos), limited by
// turnRate per tick.
func (u *Unit) turnToward(p Vec2) {
	dx := p.X - u.pos.X
	dy := p.Y - u.pos.Y
	if dx == 0 && dy == 0 {
		return
	}
	want := math.Atan2(dy, dx)
	diff := normalizeAngle(want - u.facing)
	if diff > turnRate {
		diff = turnRate
	} else if diff < -turnRate {
		diff = -turnRate
	}
	u.facing = normalizeAngle(u.facing + diff)
}

// normalizeAngle wraps an angle into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
