package main

import (
	"testing"

	"github.com/fieldworks/skirmish/internal/sim"
)

func TestRunMeetingEngagement_ProducesCombat(t *testing.T) {
	rs := runMeetingEngagement(1, 42, 1800)

	if rs.firstAcquireTick < 0 {
		t.Fatal("expected at least one unit to acquire a target")
	}
	if rs.attacks == 0 {
		t.Fatal("expected attacks in a meeting engagement")
	}
	if rs.deaths == 0 {
		t.Fatal("expected casualties in a meeting engagement")
	}
	if rs.invariants != 0 {
		t.Fatalf("run logged %d invariant violations", rs.invariants)
	}
	if rs.rejected != 0 {
		t.Fatalf("scenario issues no commands, yet %d were rejected", rs.rejected)
	}
}

func TestRunMeetingEngagement_SameSeedSameOutcome(t *testing.T) {
	a := runMeetingEngagement(1, 7, 600)
	b := runMeetingEngagement(2, 7, 600)

	if a.attacks != b.attacks || a.deaths != b.deaths {
		t.Fatalf("same seed diverged: attacks %d vs %d, deaths %d vs %d",
			a.attacks, b.attacks, a.deaths, b.deaths)
	}
	if a.survivors[0] != b.survivors[0] || a.survivors[1] != b.survivors[1] {
		t.Fatalf("same seed diverged on survivors: %v vs %v", a.survivors, b.survivors)
	}
	if a.firstDeathTick != b.firstDeathTick {
		t.Fatalf("same seed diverged on first death: %d vs %d",
			a.firstDeathTick, b.firstDeathTick)
	}
}

func TestFirstDiagTick(t *testing.T) {
	dl := sim.NewDiagLog(false)
	dl.Add(5, "u0", "state", "change", "idle → moving", 0)
	dl.Add(9, "u0", "state", "change", "moving → attacking", 0)

	if got := firstDiagTick(dl, "state", "change", ""); got != 5 {
		t.Fatalf("expected first state change at tick 5, got %d", got)
	}
	if got := firstDiagTick(dl, "state", "change", "attacking"); got != 9 {
		t.Fatalf("expected first attacking transition at tick 9, got %d", got)
	}
	if got := firstDiagTick(dl, "combat", "attack", ""); got != -1 {
		t.Fatalf("expected -1 for missing category, got %d", got)
	}
}

func TestJoinSet(t *testing.T) {
	if got := joinSet(nil); got != "none" {
		t.Fatalf("expected none, got %q", got)
	}
	set := map[string]struct{}{"u3": {}, "u1": {}, "u2": {}}
	if got := joinSet(set); got != "u1,u2,u3" {
		t.Fatalf("expected sorted labels, got %q", got)
	}
}
