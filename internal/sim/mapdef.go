package sim

import (
	"fmt"
	"strings"
)

// MapDef is the map-loader boundary: dimensions, walkability, per-cell
// traversal cost and named spawn points. The simulation treats it as
// read-only after load.
type MapDef struct {
	Cols, Rows int
	Blocked    []bool
	Cost       []float64
	Spawns     map[string]Vec2 // spawn label → world position (cell centre)
}

// NewMapDef returns an all-walkable map with uniform cost.
func NewMapDef(cols, rows int) *MapDef {
	d := &MapDef{
		Cols:    cols,
		Rows:    rows,
		Blocked: make([]bool, cols*rows),
		Cost:    make([]float64, cols*rows),
		Spawns:  map[string]Vec2{},
	}
	for i := range d.Cost {
		d.Cost[i] = 1
	}
	return d
}

// ParseMap reads an ASCII grid, one row per line:
//
//	.  open ground (cost 1)
//	#  blocked
//	~  rough ground (cost 2)
//	0-9  spawn point (open ground, labelled by the digit)
//
// All rows must have the same width.
func ParseMap(s string) (*MapDef, error) {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	if len(lines) == 0 || len(lines[0]) == 0 {
		return nil, fmt.Errorf("map: empty definition")
	}
	cols := len(lines[0])
	d := NewMapDef(cols, len(lines))
	for cy, line := range lines {
		if len(line) != cols {
			return nil, fmt.Errorf("map: row %d is %d cells wide, want %d", cy, len(line), cols)
		}
		for cx, ch := range line {
			i := cy*cols + cx
			switch {
			case ch == '.':
			case ch == '#':
				d.Blocked[i] = true
			case ch == '~':
				d.Cost[i] = 2
			case ch >= '0' && ch <= '9':
				wx, wy := CellToWorld(cx, cy)
				d.Spawns[string(ch)] = Vec2{X: wx, Y: wy}
			default:
				return nil, fmt.Errorf("map: unknown cell %q at (%d,%d)", ch, cx, cy)
			}
		}
	}
	return d, nil
}

// Spawn returns the named spawn point.
func (d *MapDef) Spawn(label string) (Vec2, bool) {
	p, ok := d.Spawns[label]
	return p, ok
}

// BuildNavGrid materialises the navigation grid for this map.
func (d *MapDef) BuildNavGrid() *NavGrid {
	ng := NewNavGrid(d.Cols, d.Rows)
	for cy := 0; cy < d.Rows; cy++ {
		for cx := 0; cx < d.Cols; cx++ {
			i := cy*d.Cols + cx
			ng.SetBlocked(cx, cy, d.Blocked[i])
			ng.SetCost(cx, cy, d.Cost[i])
		}
	}
	return ng
}
