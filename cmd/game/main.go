package main

import (
	"log"
	"math/rand"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/fieldworks/skirmish/internal/sim"
	"github.com/fieldworks/skirmish/internal/view"
)

// demoMap is a meeting engagement: two spawn areas separated by a wall
// line with a gap, rough ground below it.
const demoMap = `
........................................
........................................
....0...................................
..................#.....................
..................#.....................
..................#.....................
..................#.....................
........................................
........................................
..................#.....................
..................#..............1......
..................#.....................
.................~~~....................
.................~~~....................
........................................
........................................
`

func main() {
	def, err := sim.ParseMap(demoMap)
	if err != nil {
		log.Fatal(err)
	}
	world := sim.NewWorld(def)
	world.SetDiag(sim.NewDiagLog(false))

	rng := rand.New(rand.NewSource(1))
	spawnSquad(world, def, rng, 0, "0")
	spawnSquad(world, def, rng, 1, "1")

	app := view.New(world, 0, 1280, 720)
	ebiten.SetWindowTitle("Skirmish")
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetTPS(sim.TickRate)
	if err := ebiten.RunGame(app); err != nil {
		log.Fatal(err)
	}
}

// spawnSquad places five riflemen in a loose block around a spawn marker.
func spawnSquad(w *sim.World, def *sim.MapDef, rng *rand.Rand, f sim.Faction, label string) {
	pos, ok := def.Spawn(label)
	if !ok {
		log.Fatalf("map has no spawn marker %q", label)
	}
	for i := 0; i < 5; i++ {
		p := sim.Vec2{
			X: pos.X + float64(i%3)*sim.CellSize + rng.Float64()*4,
			Y: pos.Y + float64(i/3)*sim.CellSize + rng.Float64()*4,
		}
		if _, err := w.Spawn(sim.SpawnRequest{Faction: f, Pos: p, Stats: sim.DefaultStats()}); err != nil {
			log.Fatalf("spawn squad %s: %v", label, err)
		}
	}
}
