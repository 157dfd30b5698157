package view

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/fieldworks/skirmish/internal/sim"
)

// pickRadius is how close (world px) a click must land to a unit to select it.
const pickRadius = 12.0

// rejectHintTicks is how long a rejected-order hint stays on the HUD.
const rejectHintTicks = 90

var factionColors = []color.RGBA{
	{R: 220, G: 70, B: 60, A: 255}, // faction 0: red
	{R: 70, G: 120, B: 230, A: 255}, // faction 1: blue
	{R: 200, G: 180, B: 60, A: 255},
	{R: 90, G: 200, B: 120, A: 255},
}

// App is the render/UI client. It owns the camera, selection, and sim
// speed; the world is the authority. Everything drawn comes from
// snapshots, everything the player does goes in as commands.
type App struct {
	world   *sim.World
	faction sim.Faction

	width  int
	height int

	camX    float64
	camY    float64
	camZoom float64

	simSpeed  float64
	tickAccum float64

	selected map[sim.UnitID]bool

	prevKeys       map[ebiten.Key]bool
	prevMouseLeft  bool
	prevMouseRight bool

	showHelp bool

	rejectHint string
	rejectAge  int
}

func New(world *sim.World, faction sim.Faction, width, height int) *App {
	g := world.Grid()
	a := &App{
		world:    world,
		faction:  faction,
		width:    width,
		height:   height,
		camX:     float64(g.Cols()*sim.CellSize) / 2,
		camY:     float64(g.Rows()*sim.CellSize) / 2,
		camZoom:  1.0,
		simSpeed: 1.0,
		selected: make(map[sim.UnitID]bool),
		prevKeys: make(map[ebiten.Key]bool),
		showHelp: true,
	}
	world.Events().Subscribe(func(ev sim.Event) {
		if ev.Kind == sim.EventOrderRejected {
			a.rejectHint = ev.Reason
			a.rejectAge = rejectHintTicks
		}
	})
	return a
}

func (a *App) Update() error {
	a.handleInput()

	if a.rejectAge > 0 {
		a.rejectAge--
	}
	if a.simSpeed <= 0 {
		return nil
	}

	// For speeds > 1 run multiple sim ticks per frame, for speeds < 1
	// accumulate fractions. Ebiten calls Update at the tick rate.
	a.tickAccum += a.simSpeed
	for a.tickAccum >= 1.0 {
		a.tickAccum -= 1.0
		a.world.Step()
	}
	return nil
}

func (a *App) handleInput() {
	currentKeys := map[ebiten.Key]bool{}
	edge := func(k ebiten.Key) bool {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		return currentKeys[k] && !a.prevKeys[k]
	}

	// Camera pan: WASD or arrow keys, slower when zoomed in.
	panSpeed := 6.0 / a.camZoom
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		a.camY -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		a.camY += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		a.camX -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		a.camX += panSpeed
	}

	// Camera zoom: mouse wheel or =/- keys.
	const zoomMin, zoomMax = 0.5, 4.0
	_, wy := ebiten.Wheel()
	if wy != 0 {
		a.camZoom *= math.Pow(1.12, wy)
	}
	if edge(ebiten.KeyEqual) {
		a.camZoom *= 1.25
	}
	if edge(ebiten.KeyMinus) {
		a.camZoom /= 1.25
	}
	a.camZoom = math.Min(math.Max(a.camZoom, zoomMin), zoomMax)
	a.clampCamera()

	// Sim speed: P pause/resume, comma slower, period faster.
	speeds := []float64{0, 0.5, 1, 2, 4}
	if edge(ebiten.KeyP) {
		if a.simSpeed > 0 {
			a.simSpeed = 0
		} else {
			a.simSpeed = 1
		}
	}
	if edge(ebiten.KeyComma) {
		for i, s := range speeds {
			if s >= a.simSpeed && i > 0 {
				a.simSpeed = speeds[i-1]
				break
			}
		}
	}
	if edge(ebiten.KeyPeriod) {
		for i, s := range speeds {
			if s <= a.simSpeed && i < len(speeds)-1 && speeds[i+1] > a.simSpeed {
				a.simSpeed = speeds[i+1]
				break
			}
		}
	}

	// Orders for the current selection.
	if edge(ebiten.KeyX) {
		a.orderSimple(sim.CommandStop)
	}
	if edge(ebiten.KeyH) {
		a.orderSimple(sim.CommandHoldPosition)
	}
	if edge(ebiten.KeyF1) {
		a.showHelp = !a.showHelp
	}

	// Left click selects, shift-click extends the selection.
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if left && !a.prevMouseLeft {
		mx, my := ebiten.CursorPosition()
		wx, wy := a.worldAt(mx, my)
		a.selectAt(wx, wy, ebiten.IsKeyPressed(ebiten.KeyShift))
	}
	a.prevMouseLeft = left

	// Right click orders: attack a hostile under the cursor, else move.
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if right && !a.prevMouseRight {
		mx, my := ebiten.CursorPosition()
		wx, wy := a.worldAt(mx, my)
		a.orderAt(wx, wy)
	}
	a.prevMouseRight = right

	a.prevKeys = currentKeys
}

func (a *App) clampCamera() {
	g := a.world.Grid()
	worldW := float64(g.Cols() * sim.CellSize)
	worldH := float64(g.Rows() * sim.CellSize)
	halfVW := float64(a.width) / 2 / a.camZoom
	halfVH := float64(a.height) / 2 / a.camZoom
	if worldW > 2*halfVW {
		a.camX = math.Min(math.Max(a.camX, halfVW), worldW-halfVW)
	} else {
		a.camX = worldW / 2
	}
	if worldH > 2*halfVH {
		a.camY = math.Min(math.Max(a.camY, halfVH), worldH-halfVH)
	} else {
		a.camY = worldH / 2
	}
}

// worldAt converts a screen pixel to world coordinates under the camera.
func (a *App) worldAt(mx, my int) (float64, float64) {
	wx := (float64(mx)-float64(a.width)/2)/a.camZoom + a.camX
	wy := (float64(my)-float64(a.height)/2)/a.camZoom + a.camY
	return wx, wy
}

// selectAt picks the closest friendly unit within pickRadius. Without
// add, a miss clears the selection.
func (a *App) selectAt(wx, wy float64, add bool) {
	id, ok := a.unitAt(wx, wy, a.faction)
	if !add {
		a.selected = make(map[sim.UnitID]bool)
	}
	if ok {
		a.selected[id] = true
	}
}

// unitAt finds the closest unit of the given faction near a world point.
// Pass faction -1 to match any faction.
func (a *App) unitAt(wx, wy float64, faction sim.Faction) (sim.UnitID, bool) {
	best := sim.NoUnit
	bestD := pickRadius
	for _, v := range a.world.Snapshot().Units {
		if faction >= 0 && v.Faction != faction {
			continue
		}
		if v.State == sim.UnitDying {
			continue
		}
		d := v.Pos.Dist(sim.Vec2{X: wx, Y: wy})
		if d < bestD {
			best = v.ID
			bestD = d
		}
	}
	return best, best != sim.NoUnit
}

// orderAt issues an attack order if a hostile sits under the point,
// otherwise a move order, for every selected unit.
func (a *App) orderAt(wx, wy float64) {
	if len(a.selected) == 0 {
		return
	}
	hostile, isAttack := a.hostileAt(wx, wy)
	for id := range a.selected {
		c := sim.Command{Faction: a.faction, Unit: id}
		if isAttack {
			c.Kind = sim.CommandAttackTarget
			c.Other = hostile
		} else {
			c.Kind = sim.CommandMove
			c.Target = sim.Vec2{X: wx, Y: wy}
		}
		a.world.Enqueue(c)
	}
}

func (a *App) hostileAt(wx, wy float64) (sim.UnitID, bool) {
	id, ok := a.unitAt(wx, wy, -1)
	if !ok {
		return sim.NoUnit, false
	}
	for _, v := range a.world.Snapshot().Units {
		if v.ID == id && v.Faction != a.faction {
			return id, true
		}
	}
	return sim.NoUnit, false
}

func (a *App) orderSimple(kind sim.CommandKind) {
	for id := range a.selected {
		a.world.Enqueue(sim.Command{Kind: kind, Faction: a.faction, Unit: id})
	}
}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 24, G: 34, B: 24, A: 255})

	var cam ebiten.GeoM
	cam.Translate(-a.camX, -a.camY)
	cam.Scale(a.camZoom, a.camZoom)
	cam.Translate(float64(a.width)/2, float64(a.height)/2)

	a.drawTerrain(screen, cam)
	a.drawUnits(screen, cam)
	a.drawHUD(screen)
}

func (a *App) drawTerrain(screen *ebiten.Image, cam ebiten.GeoM) {
	g := a.world.Grid()
	roughCol := color.RGBA{R: 60, G: 70, B: 44, A: 255}
	blockCol := color.RGBA{R: 50, G: 50, B: 54, A: 255}
	openCol := color.RGBA{R: 34, G: 48, B: 34, A: 255}
	for cy := 0; cy < g.Rows(); cy++ {
		for cx := 0; cx < g.Cols(); cx++ {
			c := openCol
			if g.Blocked(cx, cy) {
				c = blockCol
			} else if g.CostAt(cx, cy) > 1 {
				c = roughCol
			}
			x, y := cam.Apply(float64(cx*sim.CellSize), float64(cy*sim.CellSize))
			size := float32(sim.CellSize) * float32(a.camZoom)
			vector.FillRect(screen, float32(x), float32(y), size, size, c, false)
		}
	}
}

func (a *App) drawUnits(screen *ebiten.Image, cam ebiten.GeoM) {
	for _, v := range a.world.Snapshot().Units {
		x, y := cam.Apply(v.Pos.X, v.Pos.Y)
		sx, sy := float32(x), float32(y)
		r := float32(5 * a.camZoom)

		col := factionColors[int(v.Faction)%len(factionColors)]
		if v.State == sim.UnitDying {
			col.A = 90
		}

		if a.selected[v.ID] {
			vector.StrokeCircle(screen, sx, sy, r+3, 1.5,
				color.RGBA{R: 240, G: 240, B: 240, A: 220}, false)
		}
		vector.FillCircle(screen, sx, sy, r, col, false)

		// Facing tick.
		fx := sx + float32(math.Cos(v.Facing))*r*1.6
		fy := sy + float32(math.Sin(v.Facing))*r*1.6
		vector.StrokeLine(screen, sx, sy, fx, fy, 1.0,
			color.RGBA{R: 230, G: 230, B: 230, A: 180}, false)

		// Health bar above live units.
		if v.State != sim.UnitDying && v.MaxHealth > 0 {
			frac := float32(v.Health / v.MaxHealth)
			barW := r * 2.4
			bx := sx - barW/2
			by := sy - r - 5
			vector.FillRect(screen, bx, by, barW, 2,
				color.RGBA{R: 30, G: 30, B: 30, A: 200}, false)
			vector.FillRect(screen, bx, by, barW*frac, 2,
				color.RGBA{R: 80, G: 220, B: 80, A: 230}, false)
		}
	}
}

func (a *App) drawHUD(screen *ebiten.Image) {
	status := fmt.Sprintf("tick %d  speed %.1fx  zoom %.1fx  selected %d",
		a.world.Tick(), a.simSpeed, a.camZoom, len(a.selected))
	if a.simSpeed <= 0 {
		status += "  [PAUSED]"
	}
	ebitenutil.DebugPrintAt(screen, status, 6, 6)

	if a.rejectAge > 0 && a.rejectHint != "" {
		ebitenutil.DebugPrintAt(screen, "order rejected: "+a.rejectHint, 6, 22)
	}
	if a.showHelp {
		help := "LMB select (shift extends)  RMB move/attack  X stop  H hold\n" +
			"WASD pan  wheel/=/- zoom  P pause  ,/. speed  F1 help"
		ebitenutil.DebugPrintAt(screen, help, 6, a.height-36)
	}
}

func (a *App) Layout(_, _ int) (int, int) {
	return a.width, a.height
}
