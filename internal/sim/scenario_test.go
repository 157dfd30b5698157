package sim

import (
	"math/rand"
	"testing"
)

// Scenario tests drive whole ticks through the public surface, in the
// style of a headless battle: spawn, order, run, inspect diagnostics.

func TestScenario_UnreachableGoalLeavesUnitIdle(t *testing.T) {
	// The goal cell is walled in; the order must fail cleanly.
	ts := NewTestSim(WithMapString(`
..........
.....###..
.....#.#..
.....###..
..........
`))
	stats := DefaultStats()
	stats.AggroRadius = 0
	if _, err := ts.World.Spawn(SpawnRequest{Pos: Vec2{X: 24, Y: 24}, Stats: stats}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	gx, gy := CellToWorld(6, 2) // inside the walls
	ts.World.Enqueue(Command{Kind: CommandMove, Faction: 0, Unit: 0, Target: Vec2{X: gx, Y: gy}})
	ts.Run(5)

	u := ts.World.Unit(0)
	if u == nil {
		t.Fatal("unit vanished")
	}
	if u.State() != UnitIdle {
		t.Fatalf("expected idle after unreachable goal, got %s", u.State())
	}
	if len(ts.Diag.Filter("path", "failed")) == 0 {
		t.Fatal("expected a path failure diagnostic")
	}
	if len(ts.EventsOf(EventOrderRejected)) == 0 {
		t.Fatal("expected an order-rejected event for the UI hint")
	}
}

func TestScenario_ReplanWhenRouteBlocked(t *testing.T) {
	// A wall dropped across the route mid-traversal forces a partial
	// re-plan from the unit's current cell; the order survives and the
	// unit detours to the goal.
	ts := NewTestSim()
	stats := DefaultStats()
	stats.AggroRadius = 0
	if _, err := ts.World.Spawn(SpawnRequest{Pos: Vec2{X: 8, Y: 8}, Stats: stats}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	gx, gy := CellToWorld(20, 0)
	ts.World.Enqueue(Command{Kind: CommandMove, Faction: 0, Unit: 0, Target: Vec2{X: gx, Y: gy}})
	ts.Run(20) // underway, a couple of cells in

	// Block a cell ahead on the straight route; row 1 stays open.
	ts.World.Grid().SetBlocked(10, 0, true)
	ts.Run(300)

	if len(ts.Diag.Filter("path", "replan")) == 0 {
		t.Fatal("expected a replan diagnostic after blocking the route")
	}
	u := ts.World.Unit(0)
	if u == nil {
		t.Fatal("unit vanished")
	}
	if u.State() != UnitIdle {
		t.Fatalf("expected arrival after detour, still %s", u.State())
	}
	if d := u.Pos().Dist(Vec2{X: gx, Y: gy}); d > 1 {
		t.Fatalf("unit stopped %.1f away from goal after detour", d)
	}
	if len(ts.EventsOf(EventOrderRejected)) != 0 {
		t.Fatal("a re-plannable block must not reject the order")
	}
}

func TestScenario_BudgetStarvedGoalResolvesUnreachable(t *testing.T) {
	// The goal is walled in on a map whose open region dwarfs the search
	// budget, so every search misses the budget instead of proving the
	// goal unreachable. The retry cap must resolve the order to Idle
	// instead of searching forever.
	def := NewMapDef(128, 128)
	for _, c := range [][2]int{
		{99, 99}, {100, 99}, {101, 99},
		{99, 100}, {101, 100},
		{99, 101}, {100, 101}, {101, 101},
	} {
		def.Blocked[c[1]*def.Cols+c[0]] = true
	}
	ts := NewTestSim(WithMap(def))
	stats := DefaultStats()
	stats.AggroRadius = 0
	if _, err := ts.World.Spawn(SpawnRequest{Pos: Vec2{X: 8, Y: 8}, Stats: stats}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	gx, gy := CellToWorld(100, 100)
	ts.World.Enqueue(Command{Kind: CommandMove, Faction: 0, Unit: 0, Target: Vec2{X: gx, Y: gy}})
	ts.Run(maxPathRetries + 10)

	u := ts.World.Unit(0)
	if u == nil {
		t.Fatal("unit vanished")
	}
	if u.State() != UnitIdle {
		t.Fatalf("expected idle after retry cap, got %s", u.State())
	}
	if (u.Pos() != Vec2{X: 8, Y: 8}) {
		t.Fatalf("unit moved without a path: %v", u.Pos())
	}
	if len(ts.Diag.Filter("path", "deferred")) == 0 {
		t.Fatal("expected deferred diagnostics before the cap")
	}
	if len(ts.Diag.Filter("path", "failed")) != 1 {
		t.Fatalf("expected exactly one failure diagnostic, got %d",
			len(ts.Diag.Filter("path", "failed")))
	}
	if len(ts.EventsOf(EventOrderRejected)) != 1 {
		t.Fatal("expected one order-rejected event at the cap")
	}
}

func TestScenario_DyingUnitPurgedAfterGrace(t *testing.T) {
	ts := NewTestSim(
		WithUnitStats(0, 0, 0, duellist()),
		WithUnitStats(1, 1, 0, passive()),
	)
	ts.Run(2)
	u2 := ts.World.Unit(1)
	if u2 == nil || u2.State() != UnitDying {
		t.Fatal("expected unit 1 dying after two ticks")
	}

	ts.Run(dyingGraceTicks)
	if ts.World.Unit(1) != nil {
		t.Fatal("expected unit 1 purged from the arena after the grace period")
	}
	// Dying units still render; dead ones are gone from the snapshot.
	for _, v := range ts.World.Snapshot().Units {
		if v.ID == 1 {
			t.Fatal("purged unit still present in snapshot")
		}
	}
}

func TestScenario_SnapshotOrderedAndDetached(t *testing.T) {
	ts := NewTestSim(
		WithUnit(0, 24, 24),
		WithUnit(1, 200, 200),
		WithUnit(0, 400, 400),
	)
	ts.Run(1)
	snap := ts.World.Snapshot()
	if len(snap.Units) != 3 {
		t.Fatalf("expected 3 units in snapshot, got %d", len(snap.Units))
	}
	for i := 1; i < len(snap.Units); i++ {
		if snap.Units[i-1].ID >= snap.Units[i].ID {
			t.Fatal("snapshot not ordered by unit id")
		}
	}

	// Mutating the returned value must not leak into the next snapshot.
	snap.Units[0].Health = -999
	ts.Run(1)
	if got := ts.World.Snapshot().Units[0].Health; got < 0 {
		t.Fatalf("snapshot mutation leaked into the world: %f", got)
	}
}

func TestScenario_DeadIsTerminalUnderRandomCommands(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	ts := NewTestSim(
		WithUnitStats(0, 0, 0, duellist()),
		WithUnitStats(1, 1, 0, passive()),
	)
	ts.Run(2) // unit 1 now dying

	for i := 0; i < 200; i++ {
		kind := CommandKind(rng.Intn(4))
		ts.World.Enqueue(Command{
			Kind:    kind,
			Faction: 1,
			Unit:    1,
			Target:  Vec2{X: rng.Float64() * 500, Y: rng.Float64() * 500},
			Other:   0,
		})
		ts.Run(1)
		u := ts.World.Unit(1)
		if u == nil {
			break // purged — terminal
		}
		if s := u.State(); s != UnitDying && s != UnitDead {
			t.Fatalf("dying unit re-animated to %s after %s command", s, kind)
		}
	}
	if ts.World.Unit(1) != nil {
		t.Fatal("unit 1 never purged")
	}
}

func TestScenario_HealthStaysInRange(t *testing.T) {
	// Randomized damage sequences: health must stay within [0, max].
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 20; run++ {
		attacker := duellist()
		attacker.AttackDamage = 1 + rng.Float64()*30
		attacker.AttackCooldown = rng.Intn(3)
		attacker.MaxHealth = 50
		victim := passive()
		victim.MaxHealth = 1 + rng.Float64()*40

		ts := NewTestSim(
			WithUnitStats(0, 0, 0, attacker),
			WithUnitStats(1, 1, 0, victim),
		)
		for i := 0; i < 60; i++ {
			ts.Run(1)
			for _, v := range ts.World.Snapshot().Units {
				if v.Health < 0 || v.Health > v.MaxHealth {
					t.Fatalf("run %d: unit %d health %.2f outside [0,%.2f]",
						run, v.ID, v.Health, v.MaxHealth)
				}
			}
		}
		if n := len(ts.Diag.Filter("invariant", "")); n != 0 {
			t.Fatalf("run %d: %d invariant violations logged", run, n)
		}
	}
}

func TestScenario_TwoSquadSkirmishSettles(t *testing.T) {
	// A 3v3 line fight must end with one side wiped out and no invariant
	// violations along the way.
	opts := []SimOption{WithMapSize(64, 64)}
	strong := duellist()
	strong.MaxHealth = 40
	strong.AggroRadius = 600
	weak := duellist()
	weak.AggroRadius = 600
	for i := 0; i < 3; i++ {
		y := 200.0 + float64(i)*40
		opts = append(opts, WithUnitStats(0, 200, y, strong))
		opts = append(opts, WithUnitStats(1, 700, y, weak))
	}
	ts := NewTestSim(opts...)
	ts.Run(1500)

	alive := map[Faction]int{}
	for _, v := range ts.World.Snapshot().Units {
		if v.State != UnitDying && v.State != UnitDead {
			alive[v.Faction]++
		}
	}
	if alive[0] == 0 {
		t.Fatal("stronger faction was wiped out")
	}
	if alive[1] != 0 {
		t.Fatalf("weaker faction still has %d units alive", alive[1])
	}
	if n := len(ts.Diag.Filter("invariant", "")); n != 0 {
		for _, e := range ts.Diag.Filter("invariant", "") {
			t.Log(e.String())
		}
		t.Fatalf("%d invariant violations logged", n)
	}
}

func TestScenario_MovementAcrossRoughGround(t *testing.T) {
	ts := NewTestSim(WithMapString(`
........
..~~~~..
..~~~~..
........
`))
	stats := DefaultStats()
	stats.AggroRadius = 0
	if _, err := ts.World.Spawn(SpawnRequest{Pos: Vec2{X: 8, Y: 8}, Stats: stats}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	gx, gy := CellToWorld(7, 0)
	ts.World.Enqueue(Command{Kind: CommandMove, Faction: 0, Unit: 0, Target: Vec2{X: gx, Y: gy}})
	ts.Run(200)

	u := ts.World.Unit(0)
	if u == nil {
		t.Fatal("unit vanished")
	}
	if u.State() != UnitIdle {
		t.Fatalf("expected arrival, still %s", u.State())
	}
	if d := u.Pos().Dist(Vec2{X: gx, Y: gy}); d > 1 {
		t.Fatalf("unit stopped %.1f away from goal", d)
	}
}

func TestScenario_SpawnValidation(t *testing.T) {
	ts := NewTestSim(WithMapString(`
.#.
...
`))
	if _, err := ts.World.Spawn(SpawnRequest{Pos: Vec2{X: 24, Y: 8}, Stats: DefaultStats()}); err == nil {
		t.Fatal("expected spawn on blocked cell to fail")
	}
	if _, err := ts.World.Spawn(SpawnRequest{Pos: Vec2{X: 999, Y: 8}, Stats: DefaultStats()}); err == nil {
		t.Fatal("expected out-of-bounds spawn to fail")
	}
	if _, err := ts.World.Spawn(SpawnRequest{Pos: Vec2{X: 8, Y: 8}, Stats: DefaultStats()}); err != nil {
		t.Fatalf("walkable spawn failed: %v", err)
	}
	if len(ts.EventsOf(EventUnitSpawned)) != 1 {
		t.Fatal("expected exactly one spawn event")
	}
}
