package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/fieldworks/skirmish/internal/sim"
)

// config carries the runner defaults. Environment variables seed the
// defaults, flags override them.
type config struct {
	Runs     int    `env:"SKIRMISH_RUNS" envDefault:"5"`
	Ticks    int    `env:"SKIRMISH_TICKS" envDefault:"1800"`
	SeedBase int64  `env:"SKIRMISH_SEED" envDefault:"42"`
	SeedStep int64  `env:"SKIRMISH_SEED_STEP" envDefault:"1"`
	Scenario string `env:"SKIRMISH_SCENARIO" envDefault:"meeting-engagement"`
}

type runStats struct {
	runIndex int
	seed     int64

	firstAcquireTick int
	firstAttackTick  int
	firstDeathTick   int
	settledTick      int

	attacks      int
	deaths       int
	stateChanges int
	pathDeferred int
	pathFailed   int
	pathReplans  int
	rejected     int
	invariants   int

	survivors map[sim.Faction]int
	casualty  map[string]struct{}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Error("parsing environment", "err", err)
		os.Exit(1)
	}
	flag.IntVar(&cfg.Runs, "runs", cfg.Runs, "number of headless simulation runs")
	flag.IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "ticks per run")
	flag.Int64Var(&cfg.SeedBase, "seed-base", cfg.SeedBase, "RNG seed for run 1")
	flag.Int64Var(&cfg.SeedStep, "seed-step", cfg.SeedStep, "seed increment between runs")
	flag.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "scenario name")
	flag.Parse()

	if cfg.Runs <= 0 || cfg.Ticks <= 0 {
		logger.Error("invalid config", "runs", cfg.Runs, "ticks", cfg.Ticks)
		os.Exit(1)
	}
	if cfg.Scenario != "meeting-engagement" {
		logger.Error("unsupported scenario", "scenario", cfg.Scenario,
			"supported", "meeting-engagement")
		os.Exit(1)
	}

	fmt.Printf("=== Headless Skirmish Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d seed_base=%d seed_step=%d\n\n",
		cfg.Scenario, cfg.Runs, cfg.Ticks, cfg.SeedBase, cfg.SeedStep)

	all := make([]runStats, 0, cfg.Runs)
	for i := 0; i < cfg.Runs; i++ {
		seed := cfg.SeedBase + int64(i)*cfg.SeedStep
		stats := runMeetingEngagement(i+1, seed, cfg.Ticks)
		all = append(all, stats)
		printRun(stats)
	}
	printAggregate(all)
}

// runMeetingEngagement pits two six-man squads against each other across
// an open field. The seed jitters spawn positions, which is the only
// nondeterminism a run has.
func runMeetingEngagement(runIndex int, seed int64, ticks int) runStats {
	rng := rand.New(rand.NewSource(seed))
	stats := sim.DefaultStats()
	stats.AggroRadius = 1200

	opts := []sim.SimOption{sim.WithMapSize(80, 45)}
	for i := 0; i < 6; i++ {
		y := 300.0 + float64(i)*24 + rng.Float64()*10
		opts = append(opts, sim.WithUnitStats(0, 120+rng.Float64()*20, y, stats))
	}
	for i := 0; i < 6; i++ {
		y := 300.0 + float64(i)*24 + rng.Float64()*10
		opts = append(opts, sim.WithUnitStats(1, 1120+rng.Float64()*20, y, stats))
	}
	ts := sim.NewTestSim(opts...)
	ts.Run(ticks)

	rs := runStats{
		runIndex:         runIndex,
		seed:             seed,
		firstAcquireTick: firstDiagTick(ts.Diag, "state", "change", "→ attacking"),
		firstAttackTick:  firstDiagTick(ts.Diag, "combat", "attack", ""),
		settledTick:      -1,
		attacks:          len(ts.Diag.Filter("combat", "attack")),
		stateChanges:     len(ts.Diag.Filter("state", "change")),
		pathDeferred:     len(ts.Diag.Filter("path", "deferred")),
		pathFailed:       len(ts.Diag.Filter("path", "failed")),
		pathReplans:      len(ts.Diag.Filter("path", "replan")),
		rejected:         len(ts.Diag.Filter("command", "rejected")),
		invariants:       len(ts.Diag.Filter("invariant", "")),
		firstDeathTick:   -1,
		survivors:        map[sim.Faction]int{},
		casualty:         map[string]struct{}{},
	}

	for _, ev := range ts.EventsOf(sim.EventUnitDied) {
		rs.deaths++
		rs.casualty[fmt.Sprintf("u%d", ev.Unit)] = struct{}{}
		if rs.firstDeathTick < 0 {
			rs.firstDeathTick = ev.Tick
		}
		rs.settledTick = ev.Tick
	}
	for _, v := range ts.World.Snapshot().Units {
		if v.State != sim.UnitDying && v.State != sim.UnitDead {
			rs.survivors[v.Faction]++
		}
	}
	// A run only "settled" if one side was wiped out.
	if rs.survivors[0] > 0 && rs.survivors[1] > 0 {
		rs.settledTick = -1
	}
	return rs
}

func firstDiagTick(dl *sim.DiagLog, category, key, contains string) int {
	for _, e := range dl.Filter(category, key) {
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("phase_markers: first_acquire=%d first_attack=%d first_death=%d settled=%d\n",
		rs.firstAcquireTick, rs.firstAttackTick, rs.firstDeathTick, rs.settledTick)
	fmt.Printf("event_totals: attacks=%d deaths=%d state_changes=%d rejected_commands=%d\n",
		rs.attacks, rs.deaths, rs.stateChanges, rs.rejected)
	fmt.Printf("pathing: deferred=%d failed=%d replans=%d\n",
		rs.pathDeferred, rs.pathFailed, rs.pathReplans)
	fmt.Printf("survivors: faction0=%d faction1=%d\n", rs.survivors[0], rs.survivors[1])
	fmt.Printf("casualties: %s\n", joinSet(rs.casualty))
	if rs.invariants > 0 {
		fmt.Printf("WARNING: %d invariant violations logged\n", rs.invariants)
	}
	fmt.Println()
}

func printAggregate(all []runStats) {
	totalAttacks := 0
	totalDeaths := 0
	totalRejected := 0
	totalInvariants := 0
	wins := map[sim.Faction]int{}
	draws := 0

	acquireTicks := make([]int, 0, len(all))
	deathTicks := make([]int, 0, len(all))
	settleTicks := make([]int, 0, len(all))
	casualtyGlobal := map[string]struct{}{}

	for _, rs := range all {
		totalAttacks += rs.attacks
		totalDeaths += rs.deaths
		totalRejected += rs.rejected
		totalInvariants += rs.invariants
		if rs.firstAcquireTick >= 0 {
			acquireTicks = append(acquireTicks, rs.firstAcquireTick)
		}
		if rs.firstDeathTick >= 0 {
			deathTicks = append(deathTicks, rs.firstDeathTick)
		}
		if rs.settledTick >= 0 {
			settleTicks = append(settleTicks, rs.settledTick)
		}
		switch {
		case rs.survivors[0] > 0 && rs.survivors[1] == 0:
			wins[0]++
		case rs.survivors[1] > 0 && rs.survivors[0] == 0:
			wins[1]++
		default:
			draws++
		}
		for label := range rs.casualty {
			casualtyGlobal[label] = struct{}{}
		}
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d wins_faction0=%d wins_faction1=%d unsettled=%d\n",
		len(all), wins[0], wins[1], draws)
	fmt.Printf("avg_per_run: attacks=%.1f deaths=%.1f rejected_commands=%.1f\n",
		avg(totalAttacks, len(all)), avg(totalDeaths, len(all)), avg(totalRejected, len(all)))
	fmt.Printf("phase_marker_avg_ticks: first_acquire=%s first_death=%s settled=%s\n",
		avgTickString(acquireTicks), avgTickString(deathTicks), avgTickString(settleTicks))
	fmt.Printf("unique_casualties=%d [%s]\n", len(casualtyGlobal), joinSet(casualtyGlobal))
	if totalInvariants > 0 {
		fmt.Printf("WARNING: %d invariant violations across all runs\n", totalInvariants)
	}
}

func avg(sum, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinSet(s map[string]struct{}) string {
	if len(s) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}
