package sim

// EventKind enumerates the fire-and-forget notifications the simulation
// emits for effect/sound consumers.
type EventKind int

const (
	EventUnitSpawned EventKind = iota
	EventUnitDied
	EventAttackFired
	EventOrderRejected
)

func (k EventKind) String() string {
	switch k {
	case EventUnitSpawned:
		return "unit_spawned"
	case EventUnitDied:
		return "unit_died"
	case EventAttackFired:
		return "attack_fired"
	case EventOrderRejected:
		return "order_rejected"
	default:
		return "unknown"
	}
}

// Event is a one-shot notification of a simulation transition. The
// simulation never waits for acknowledgement.
type Event struct {
	Kind   EventKind
	Tick   int
	Unit   UnitID // subject unit
	Other  UnitID // e.g. the attack's target
	Pos    Vec2
	Reason string // set for order rejections
}

// EventListener receives events synchronously during the tick. Listeners
// must not mutate simulation state; they exist to trigger sounds/effects.
type EventListener func(Event)

// EventBus fans events out to subscribed listeners.
type EventBus struct {
	listeners []EventListener
}

// Subscribe registers a listener. Not safe to call mid-tick.
func (b *EventBus) Subscribe(fn EventListener) {
	b.listeners = append(b.listeners, fn)
}

func (b *EventBus) publish(ev Event) {
	for _, fn := range b.listeners {
		fn(ev)
	}
}
