package sim

// TestSim is a headless harness used by tests and the headless runner. It
// wraps a World with builder options and captures every published event.
type TestSim struct {
	World  *World
	Diag   *DiagLog
	Events []Event
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // map shape and logging — applied first
	simOptUnit                       // spawn units — applied once the world exists
)

type simConfig struct {
	def     *MapDef
	verbose bool
}

// SimOption is a builder function applied during TestSim construction.
type SimOption struct {
	kind simOptionKind
	cfg  func(*simConfig)
	fn   func(*TestSim)
}

// WithMap uses an explicit map definition.
func WithMap(def *MapDef) SimOption {
	return SimOption{kind: simOptInfra, cfg: func(c *simConfig) { c.def = def }}
}

// WithMapString parses an ASCII map (see ParseMap). Panics on a malformed
// grid — harness misuse is a test bug, not a runtime condition.
func WithMapString(s string) SimOption {
	def, err := ParseMap(s)
	if err != nil {
		panic(err)
	}
	return WithMap(def)
}

// WithMapSize uses an open cols×rows map.
func WithMapSize(cols, rows int) SimOption {
	return SimOption{kind: simOptInfra, cfg: func(c *simConfig) { c.def = NewMapDef(cols, rows) }}
}

// WithVerbose enables per-tick verbose diagnostics.
func WithVerbose(v bool) SimOption {
	return SimOption{kind: simOptInfra, cfg: func(c *simConfig) { c.verbose = v }}
}

// WithUnit spawns a default-stats unit. Units receive ids in option order,
// starting from 0.
func WithUnit(f Faction, x, y float64) SimOption {
	return WithUnitStats(f, x, y, DefaultStats())
}

// WithUnitStats spawns a unit with explicit stats.
func WithUnitStats(f Faction, x, y float64, stats UnitStats) SimOption {
	return SimOption{kind: simOptUnit, fn: func(ts *TestSim) {
		if _, err := ts.World.Spawn(SpawnRequest{
			Faction: f,
			Pos:     Vec2{X: x, Y: y},
			Stats:   stats,
		}); err != nil {
			panic(err)
		}
	}}
}

// NewTestSim constructs a harness in two ordered passes: infrastructure
// first, then unit spawns.
func NewTestSim(opts ...SimOption) *TestSim {
	cfg := simConfig{def: NewMapDef(64, 64)}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.cfg(&cfg)
		}
	}

	ts := &TestSim{Diag: NewDiagLog(cfg.verbose)}
	ts.World = NewWorld(cfg.def)
	ts.World.SetDiag(ts.Diag)
	ts.World.Events().Subscribe(func(ev Event) {
		ts.Events = append(ts.Events, ev)
	})

	for _, o := range opts {
		if o.kind == simOptUnit {
			o.fn(ts)
		}
	}
	return ts
}

// Run advances the world n ticks.
func (ts *TestSim) Run(n int) {
	for i := 0; i < n; i++ {
		ts.World.Step()
	}
}

// EventsOf returns captured events of one kind.
func (ts *TestSim) EventsOf(kind EventKind) []Event {
	var out []Event
	for _, ev := range ts.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
