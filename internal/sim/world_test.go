package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorld_AdvanceAccumulatesFixedSteps(t *testing.T) {
	ts := NewTestSim()
	w := ts.World

	// Half a tick of real time: nothing runs.
	assert.Equal(t, 0, w.Advance(0.5/TickRate))
	assert.Equal(t, 0, w.Tick())

	// The other half completes one tick.
	assert.Equal(t, 1, w.Advance(0.5/TickRate))
	assert.Equal(t, 1, w.Tick())

	// A long frame catches up with multiple ticks.
	assert.Equal(t, 3, w.Advance(3.0/TickRate))
	assert.Equal(t, 4, w.Tick())
}

func TestWorld_EnqueueAppliedAtTickBoundary(t *testing.T) {
	ts := NewTestSim(WithUnit(0, 24, 24))
	w := ts.World

	w.Enqueue(Command{Kind: CommandMove, Faction: 0, Unit: 0, Target: Vec2{X: 600, Y: 24}})
	// Not applied until a tick runs.
	assert.Equal(t, UnitIdle, w.Unit(0).State())
	w.Step()
	assert.Equal(t, UnitMoving, w.Unit(0).State())
}

func TestWorld_SnapshotIsolatedPerCall(t *testing.T) {
	ts := NewTestSim(WithUnit(0, 24, 24))
	ts.Run(1)

	a := ts.World.Snapshot()
	b := ts.World.Snapshot()
	a.Units[0].Health = -1

	// Writing through one snapshot must not reach another reader's copy,
	// nor the world's cached view.
	assert.Equal(t, 100.0, b.Units[0].Health)
	assert.Equal(t, 100.0, ts.World.Snapshot().Units[0].Health)
}

func TestDiagLog_FilterAndFormat(t *testing.T) {
	dl := NewDiagLog(false)
	dl.Add(3, "u1", "state", "change", "idle → moving", 0)
	dl.Add(4, "u2", "combat", "attack", "u1 for 5 → 5 hp", 5)
	dl.AddVerbose(4, "u1", "move", "position", "(1.0,2.0)", 0)

	assert.Len(t, dl.Entries(), 2, "verbose entry must be dropped when verbose off")
	assert.Len(t, dl.Filter("combat", ""), 1)
	assert.Len(t, dl.Filter("", "change"), 1)
	assert.Len(t, dl.FilterUnit("u2"), 1)
	assert.Contains(t, dl.Entries()[0].String(), "[T=003]")
}
