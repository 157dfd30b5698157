package sim

import (
	"container/heap"
	"errors"
	"math"
)

// CellSize is the edge length of one navigation cell in world units.
const CellSize = 16

// searchBudget caps A* node expansions per FindPath call so a single
// pathological search cannot stall a tick.
const searchBudget = 4096

var (
	// ErrUnreachable means the goal lies in a region not connected to the start.
	ErrUnreachable = errors.New("path: goal unreachable")
	// ErrTargetInvalid means the start or goal is out of bounds or blocked.
	ErrTargetInvalid = errors.New("path: start or goal invalid")
	// ErrSearchBudget means the search hit its expansion cap. The caller
	// should retry on a later tick; the order is still valid.
	ErrSearchBudget = errors.New("path: search budget exceeded")
)

// NavGrid is the per-map walkability and traversal-cost grid.
// Built once at map load and treated as read-only during play.
type NavGrid struct {
	cols    int
	rows    int
	blocked []bool
	cost    []float64 // per-cell traversal cost, >= 1
}

// NewNavGrid builds an open grid with uniform cost 1.
func NewNavGrid(cols, rows int) *NavGrid {
	ng := &NavGrid{
		cols:    cols,
		rows:    rows,
		blocked: make([]bool, cols*rows),
		cost:    make([]float64, cols*rows),
	}
	for i := range ng.cost {
		ng.cost[i] = 1
	}
	return ng
}

// Cols returns the grid width in cells.
func (ng *NavGrid) Cols() int { return ng.cols }

// Rows returns the grid height in cells.
func (ng *NavGrid) Rows() int { return ng.rows }

// InBounds reports whether (cx, cy) lies inside the grid.
func (ng *NavGrid) InBounds(cx, cy int) bool {
	return cx >= 0 && cy >= 0 && cx < ng.cols && cy < ng.rows
}

// Blocked returns true if the cell is not walkable. Out-of-bounds cells
// are blocked.
func (ng *NavGrid) Blocked(cx, cy int) bool {
	if !ng.InBounds(cx, cy) {
		return true
	}
	return ng.blocked[cy*ng.cols+cx]
}

// SetBlocked marks a cell walkable or not. Used by map loading.
func (ng *NavGrid) SetBlocked(cx, cy int, v bool) {
	if ng.InBounds(cx, cy) {
		ng.blocked[cy*ng.cols+cx] = v
	}
}

// CostAt returns the traversal cost multiplier for a cell (1 on open ground).
func (ng *NavGrid) CostAt(cx, cy int) float64 {
	if !ng.InBounds(cx, cy) {
		return math.Inf(1)
	}
	return ng.cost[cy*ng.cols+cx]
}

// SetCost sets a cell's traversal cost multiplier. Values below 1 are clamped.
func (ng *NavGrid) SetCost(cx, cy int, c float64) {
	if !ng.InBounds(cx, cy) {
		return
	}
	if c < 1 {
		c = 1
	}
	ng.cost[cy*ng.cols+cx] = c
}

// WorldToCell converts world coordinates to grid cell coordinates.
// Floor-based: a position exactly on a cell boundary belongs to the cell
// on its positive side, so cell ownership is deterministic.
func WorldToCell(wx, wy float64) (int, int) {
	return int(math.Floor(wx / CellSize)), int(math.Floor(wy / CellSize))
}

// CellToWorld converts grid cell coordinates to the world centre of the cell.
func CellToWorld(cx, cy int) (float64, float64) {
	return float64(cx)*CellSize + CellSize/2, float64(cy)*CellSize + CellSize/2
}

// --- A* pathfinding ---

type pathNode struct {
	cx, cy int
	g, h   float64
	seq    int // insertion order, breaks f-score ties deterministically
	parent *pathNode
	index  int // heap index
}

type openList []*pathNode

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	fi := ol[i].g + ol[i].h
	fj := ol[j].g + ol[j].h
	if fi != fj {
		return fi < fj
	}
	return ol[i].seq < ol[j].seq
}
func (ol openList) Swap(i, j int) {
	ol[i], ol[j] = ol[j], ol[i]
	ol[i].index = i
	ol[j].index = j
}
func (ol *openList) Push(x interface{}) {
	n := x.(*pathNode)
	n.index = len(*ol)
	*ol = append(*ol, n)
}
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

// Fixed neighbour order keeps expansion deterministic.
var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// octile is the admissible heuristic for 8-connected grids.
func octile(ax, ay, bx, by int) float64 {
	dx := math.Abs(float64(ax - bx))
	dy := math.Abs(float64(ay - by))
	return dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)
}

// FindPath returns world-coordinate waypoints from (sx,sy) to (gx,gy),
// lowest-cost under the grid's cost field. Identical inputs always produce
// identical output. Diagonal moves never cut corners through blocked cells.
func (ng *NavGrid) FindPath(sx, sy, gx, gy float64) ([]Vec2, error) {
	scx, scy := WorldToCell(sx, sy)
	gcx, gcy := WorldToCell(gx, gy)

	if !ng.InBounds(scx, scy) || !ng.InBounds(gcx, gcy) {
		return nil, ErrTargetInvalid
	}
	if ng.Blocked(scx, scy) || ng.Blocked(gcx, gcy) {
		return nil, ErrTargetInvalid
	}
	if scx == gcx && scy == gcy {
		wx, wy := CellToWorld(gcx, gcy)
		return []Vec2{{X: wx, Y: wy}}, nil
	}

	key := func(cx, cy int) int { return cy*ng.cols + cx }

	seq := 0
	start := &pathNode{cx: scx, cy: scy, h: octile(scx, scy, gcx, gcy)}
	ol := &openList{start}
	heap.Init(ol)

	closed := make([]bool, ng.cols*ng.rows)
	best := make(map[int]*pathNode, 64)
	best[key(scx, scy)] = start

	expanded := 0
	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.cx == gcx && cur.cy == gcy {
			return buildWaypoints(cur), nil
		}
		k := key(cur.cx, cur.cy)
		if closed[k] {
			continue
		}
		closed[k] = true

		expanded++
		if expanded > searchBudget {
			return nil, ErrSearchBudget
		}

		for _, d := range dirs {
			nx, ny := cur.cx+d[0], cur.cy+d[1]
			if ng.Blocked(nx, ny) {
				continue
			}
			// No diagonal corner-cutting past blocked cells.
			if d[0] != 0 && d[1] != 0 {
				if ng.Blocked(cur.cx+d[0], cur.cy) || ng.Blocked(cur.cx, cur.cy+d[1]) {
					continue
				}
			}
			nk := key(nx, ny)
			if closed[nk] {
				continue
			}
			step := 1.0
			if d[0] != 0 && d[1] != 0 {
				step = math.Sqrt2
			}
			g := cur.g + step*ng.cost[nk]
			if prev, ok := best[nk]; ok && g >= prev.g {
				continue
			}
			seq++
			node := &pathNode{
				cx: nx, cy: ny,
				g: g, h: octile(nx, ny, gcx, gcy),
				seq:    seq,
				parent: cur,
			}
			best[nk] = node
			heap.Push(ol, node)
		}
	}
	return nil, ErrUnreachable
}

func buildWaypoints(end *pathNode) []Vec2 {
	n := 0
	for p := end; p != nil; p = p.parent {
		n++
	}
	path := make([]Vec2, n)
	for p := end; p != nil; p = p.parent {
		n--
		wx, wy := CellToWorld(p.cx, p.cy)
		path[n] = Vec2{X: wx, Y: wy}
	}
	return path
}
