package sim

import (
	"math"
	"sort"

	"github.com/kamstrup/intmap"
)

// SpatialIndex maps world regions to the units occupying them for fast
// proximity queries. Cells are CellSize squares; a unit belongs to exactly
// one cell, determined by flooring its position (boundary positions resolve
// to the cell on the positive side, so ownership is deterministic).
type SpatialIndex struct {
	cells *intmap.Map[int64, *spatialCell]
	pos   *intmap.Map[int64, Vec2]
}

type spatialCell struct {
	ids []UnitID // kept sorted ascending
}

// cellKey packs cell coordinates into a single map key.
func cellKey(cx, cy int) int64 {
	return int64(cx)<<32 | int64(uint32(cy))
}

// NewSpatialIndex creates an empty index.
func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{
		cells: intmap.New[int64, *spatialCell](64),
		pos:   intmap.New[int64, Vec2](256),
	}
}

// Insert registers a unit at pos. Inserting an already-registered unit is
// an invariant violation handled by re-registering at the new position.
func (si *SpatialIndex) Insert(id UnitID, p Vec2) {
	if _, ok := si.pos.Get(int64(id)); ok {
		si.Remove(id)
	}
	si.pos.Put(int64(id), p)
	cx, cy := WorldToCell(p.X, p.Y)
	k := cellKey(cx, cy)
	c, ok := si.cells.Get(k)
	if !ok {
		c = &spatialCell{}
		si.cells.Put(k, c)
	}
	c.add(id)
}

// Remove unregisters a unit. Removing an unknown unit is a no-op.
func (si *SpatialIndex) Remove(id UnitID) {
	p, ok := si.pos.Get(int64(id))
	if !ok {
		return
	}
	si.pos.Del(int64(id))
	cx, cy := WorldToCell(p.X, p.Y)
	if c, ok := si.cells.Get(cellKey(cx, cy)); ok {
		c.del(id)
	}
}

// Move updates a unit's registered position, switching cells only when the
// cell actually changed.
func (si *SpatialIndex) Move(id UnitID, to Vec2) {
	from, ok := si.pos.Get(int64(id))
	if !ok {
		si.Insert(id, to)
		return
	}
	si.pos.Put(int64(id), to)
	ocx, ocy := WorldToCell(from.X, from.Y)
	ncx, ncy := WorldToCell(to.X, to.Y)
	if ocx == ncx && ocy == ncy {
		return
	}
	if c, ok := si.cells.Get(cellKey(ocx, ocy)); ok {
		c.del(id)
	}
	k := cellKey(ncx, ncy)
	c, ok := si.cells.Get(k)
	if !ok {
		c = &spatialCell{}
		si.cells.Put(k, c)
	}
	c.add(id)
}

// Contains reports whether the unit is registered.
func (si *SpatialIndex) Contains(id UnitID) bool {
	_, ok := si.pos.Get(int64(id))
	return ok
}

// Len returns the number of registered units.
func (si *SpatialIndex) Len() int {
	return si.pos.Len()
}

// Clear drops every registration.
func (si *SpatialIndex) Clear() {
	si.cells.Clear()
	si.pos.Clear()
}

// Rebuild replaces the whole partition from scratch. Rebuilding an
// unchanged unit set yields the same partition regardless of insertion
// order, since cell buckets stay sorted.
func (si *SpatialIndex) Rebuild(units map[UnitID]Vec2) {
	si.Clear()
	for id, p := range units {
		si.Insert(id, p)
	}
}

// QueryRadius returns the ids of all units within radius of p, sorted
// ascending so iteration order is deterministic. Only cells overlapping the
// radius are examined.
func (si *SpatialIndex) QueryRadius(p Vec2, radius float64) []UnitID {
	if radius < 0 {
		return nil
	}
	ccx, ccy := WorldToCell(p.X, p.Y)
	span := int(radius/CellSize) + 1
	r2 := radius * radius

	var out []UnitID
	for dy := -span; dy <= span; dy++ {
		for dx := -span; dx <= span; dx++ {
			c, ok := si.cells.Get(cellKey(ccx+dx, ccy+dy))
			if !ok {
				continue
			}
			for _, id := range c.ids {
				up, _ := si.pos.Get(int64(id))
				ddx := up.X - p.X
				ddy := up.Y - p.Y
				if ddx*ddx+ddy*ddy <= r2 {
					out = append(out, id)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// QueryNearest returns the registered unit closest to p that satisfies pred
// (nil pred matches everything), searching outward ring by ring up to maxRadius.
// Distance ties break toward the lowest unit id.
func (si *SpatialIndex) QueryNearest(p Vec2, maxRadius float64, pred func(UnitID) bool) (UnitID, bool) {
	ccx, ccy := WorldToCell(p.X, p.Y)
	maxSpan := int(maxRadius/CellSize) + 1
	max2 := maxRadius * maxRadius

	bestID := UnitID(-1)
	bestD := math.Inf(1)

	for span := 0; span <= maxSpan; span++ {
		// Once a candidate is found, one further ring is enough: a unit in a
		// later ring cannot be closer than span*CellSize.
		if bestID >= 0 && float64(span-1)*CellSize > math.Sqrt(bestD) {
			break
		}
		for dy := -span; dy <= span; dy++ {
			for dx := -span; dx <= span; dx++ {
				if maxAbs(dx, dy) != span { // ring only
					continue
				}
				c, ok := si.cells.Get(cellKey(ccx+dx, ccy+dy))
				if !ok {
					continue
				}
				for _, id := range c.ids {
					if pred != nil && !pred(id) {
						continue
					}
					up, _ := si.pos.Get(int64(id))
					ddx := up.X - p.X
					ddy := up.Y - p.Y
					d := ddx*ddx + ddy*ddy
					if d > max2 {
						continue
					}
					if d < bestD || (d == bestD && id < bestID) {
						bestD = d
						bestID = id
					}
				}
			}
		}
	}
	if bestID < 0 {
		return 0, false
	}
	return bestID, true
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

func (c *spatialCell) add(id UnitID) {
	i := sort.Search(len(c.ids), func(i int) bool { return c.ids[i] >= id })
	if i < len(c.ids) && c.ids[i] == id {
		return
	}
	c.ids = append(c.ids, 0)
	copy(c.ids[i+1:], c.ids[i:])
	c.ids[i] = id
}

func (c *spatialCell) del(id UnitID) {
	i := sort.Search(len(c.ids), func(i int) bool { return c.ids[i] >= id })
	if i < len(c.ids) && c.ids[i] == id {
		c.ids = append(c.ids[:i], c.ids[i+1:]...)
	}
}
