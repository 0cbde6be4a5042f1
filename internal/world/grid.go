package world

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/core/ecs"
	"github.com/driftyard/simcore/internal/core/event"
)

// CellKey identifies one cube of the uniform grid.
type CellKey struct {
	X, Y, Z int32
}

// Grid buckets entities by position into cubes of a fixed size so a radius
// query only touches the cells overlapping the query's bounding cube.
// Accessed only from the simulation goroutine, so there are no locks.
type Grid struct {
	cellSize float64
	cells    map[CellKey]*ecs.Set[Entity]
	budget   time.Duration

	bus *event.Bus
	log *zap.Logger
	now func() time.Time

	queries uint64
	slow    uint64
	moves   uint64
}

func NewGrid(cellSize float64, budget time.Duration, bus *event.Bus, log *zap.Logger) (*Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: cell size must be positive and finite, got %g", ErrConfiguration, cellSize)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[CellKey]*ecs.Set[Entity], 1024),
		budget:   budget,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}, nil
}

func (g *Grid) CellSize() float64 { return g.cellSize }

// toCell floors v/cellSize, saturating at the int32 range.
func (g *Grid) toCell(v float64) int32 {
	c := math.Floor(v / g.cellSize)
	switch {
	case math.IsNaN(c):
		return 0
	case c <= math.MinInt32:
		return math.MinInt32
	case c >= math.MaxInt32:
		return math.MaxInt32
	}
	return int32(c)
}

// WorldToCell returns the cell containing pos.
func (g *Grid) WorldToCell(pos Vec3) CellKey {
	return CellKey{X: g.toCell(pos.X), Y: g.toCell(pos.Y), Z: g.toCell(pos.Z)}
}

// Insert places e in the cell of its current position.
func (g *Grid) Insert(e *Entity) {
	if e.bucketed {
		g.Move(e)
		return
	}
	k := g.WorldToCell(e.pos)
	cell := g.cells[k]
	if cell == nil {
		cell = ecs.NewSet[Entity](4)
		g.cells[k] = cell
	}
	cell.Put(e.serial, e)
	e.cell = k
	e.bucketed = true
}

// Remove takes e out of the cell it was last bucketed in.
func (g *Grid) Remove(e *Entity) {
	if !e.bucketed {
		return
	}
	if cell := g.cells[e.cell]; cell != nil {
		cell.Remove(e.serial)
		if cell.Len() == 0 {
			delete(g.cells, e.cell)
		}
	}
	e.bucketed = false
}

// Move re-buckets e if its position left its cell. It reports whether e changed cell.
func (g *Grid) Move(e *Entity) bool {
	if !e.bucketed {
		g.Insert(e)
		return true
	}
	k := g.WorldToCell(e.pos)
	if k == e.cell {
		return false
	}
	g.Remove(e)
	g.Insert(e)
	g.moves++
	return true
}

// CellOf returns the cell e is currently bucketed in.
func (g *Grid) CellOf(e *Entity) (CellKey, bool) {
	return e.cell, e.bucketed
}

// Contains reports whether cell k holds e.
func (g *Grid) Contains(k CellKey, e *Entity) bool {
	cell := g.cells[k]
	if cell == nil {
		return false
	}
	cur, ok := cell.Get(e.serial)
	return ok && cur == e
}

// CellCount is the number of non-empty cells.
func (g *Grid) CellCount() int { return len(g.cells) }

// QueryRadius appends to buf every tracked, active entity within radius of
// center whose kind passes filter. Candidates come from the inclusive cell
// range covering [center-radius, center+radius]; each one is then checked with
// an exact squared-distance test.
func (g *Grid) QueryRadius(center Vec3, radius float64, filter KindSet, buf []*Entity) []*Entity {
	if radius < 0 || math.IsNaN(radius) {
		return buf
	}
	start := g.now()
	g.queries++

	lo := g.WorldToCell(center.Sub(Splat(radius)))
	hi := g.WorldToCell(center.Add(Splat(radius)))
	r2 := radius * radius

	accept := func(_ uint32, e *Entity) {
		if !e.registered || !e.active || !filter.Matches(e.kind) {
			return
		}
		if e.pos.DistSq(center) <= r2 {
			buf = append(buf, e)
		}
	}

	span := float64(int64(hi.X)-int64(lo.X)+1) * float64(int64(hi.Y)-int64(lo.Y)+1) * float64(int64(hi.Z)-int64(lo.Z)+1)
	if span > float64(len(g.cells)) {
		// the range covers more cells than exist; walk the occupied ones instead
		for k, cell := range g.cells {
			if k.X >= lo.X && k.X <= hi.X && k.Y >= lo.Y && k.Y <= hi.Y && k.Z >= lo.Z && k.Z <= hi.Z {
				cell.Each(accept)
			}
		}
	} else {
		for x := int64(lo.X); x <= int64(hi.X); x++ {
			for y := int64(lo.Y); y <= int64(hi.Y); y++ {
				for z := int64(lo.Z); z <= int64(hi.Z); z++ {
					if cell := g.cells[CellKey{int32(x), int32(y), int32(z)}]; cell != nil {
						cell.Each(accept)
					}
				}
			}
		}
	}

	if elapsed := g.now().Sub(start); g.budget > 0 && elapsed > g.budget {
		g.slow++
		g.log.Warn("radius query over budget",
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", g.budget),
			zap.Float64("radius", radius),
			zap.Float64("cells", span))
		event.Emit(g.bus, event.PerformanceWarning{
			Source:  "query",
			Elapsed: elapsed,
			Budget:  g.budget,
		})
	}
	return buf
}

// GridStats is the grid part of the statistics surface.
type GridStats struct {
	Cells       int
	Queries     uint64
	SlowQueries uint64
	Moves       uint64
}

func (g *Grid) Stats() GridStats {
	return GridStats{
		Cells:       len(g.cells),
		Queries:     g.queries,
		SlowQueries: g.slow,
		Moves:       g.moves,
	}
}
