package world

import (
	"math"

	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/core/ecs"
	"github.com/driftyard/simcore/internal/core/event"
)

// QueryID identifies a deferred radius query.
type QueryID uint64

// PendingQuery is a deferred radius query awaiting resolution.
type PendingQuery struct {
	ID         QueryID
	Center     Vec3
	Radius     float64
	Filter     KindSet
	EnqueuedAt uint64 // scheduler tick at submit
}

// QueryProcessor answers radius queries synchronously or on a later tick.
// Deferred queries are resolved in submission order by ResolvePending, which
// the query system calls once per tick; there is no cancellation.
type QueryProcessor struct {
	grid    *Grid
	reg     *Registry
	spatial bool

	bus *event.Bus
	log *zap.Logger

	tick   func() uint64
	before func() // re-bucketing hook for the "query" policy

	pending []PendingQuery
	head    int
	nextID  QueryID
	scratch []*Entity

	sync     uint64
	resolved uint64
}

func newQueryProcessor(grid *Grid, reg *Registry, spatial bool, bus *event.Bus, log *zap.Logger, tick func() uint64) *QueryProcessor {
	return &QueryProcessor{
		grid:    grid,
		reg:     reg,
		spatial: spatial,
		bus:     bus,
		log:     log,
		tick:    tick,
		pending: make([]PendingQuery, 0, 64),
		scratch: make([]*Entity, 0, 64),
	}
}

// Spatial reports whether queries go through the grid.
func (q *QueryProcessor) Spatial() bool { return q.spatial }

// Radius returns a snapshot of every live, active entity within radius of
// center matching filter. The result order is unspecified.
func (q *QueryProcessor) Radius(center Vec3, radius float64, filter KindSet) []*Entity {
	q.sync++
	return q.radius(center, radius, filter, nil)
}

func (q *QueryProcessor) radius(center Vec3, radius float64, filter KindSet, buf []*Entity) []*Entity {
	if q.before != nil {
		q.before()
	}
	if !q.spatial {
		return q.linear(center, radius, filter, buf)
	}
	return q.grid.QueryRadius(center, radius, filter, buf)
}

// RadiusLinear scans the whole registry. It is the fallback when spatial
// indexing is disabled and the baseline the grid is tested against.
func (q *QueryProcessor) RadiusLinear(center Vec3, radius float64, filter KindSet) []*Entity {
	q.sync++
	return q.linear(center, radius, filter, nil)
}

func (q *QueryProcessor) linear(center Vec3, radius float64, filter KindSet, buf []*Entity) []*Entity {
	if radius < 0 || math.IsNaN(radius) {
		return buf
	}
	r2 := radius * radius
	q.reg.Each(func(e *Entity) bool {
		if e.active && filter.Matches(e.kind) && e.pos.DistSq(center) <= r2 {
			buf = append(buf, e)
		}
		return true
	})
	return buf
}

// Submit enqueues a deferred query and returns its id immediately. The result
// arrives as an event.QueryReady once a later tick resolves it.
func (q *QueryProcessor) Submit(center Vec3, radius float64, filter KindSet) QueryID {
	q.nextID++
	q.pending = append(q.pending, PendingQuery{
		ID:         q.nextID,
		Center:     center,
		Radius:     radius,
		Filter:     filter,
		EnqueuedAt: q.tick(),
	})
	return q.nextID
}

// Pending is the number of submitted, unresolved queries.
func (q *QueryProcessor) Pending() int { return len(q.pending) - q.head }

// ResolvePending resolves up to max queued queries (all when max <= 0) in FIFO
// order, emitting one QueryReady per query. A query is only resolved once the
// scheduler has advanced past the tick it was submitted on.
func (q *QueryProcessor) ResolvePending(max int) int {
	now := q.tick()
	n := 0
	for q.head < len(q.pending) && (max <= 0 || n < max) {
		pq := q.pending[q.head]
		if pq.EnqueuedAt >= now {
			break
		}
		n++
		q.pending[q.head] = PendingQuery{}
		q.head++

		q.scratch = q.radius(pq.Center, pq.Radius, pq.Filter, q.scratch[:0])
		ids := make([]ecs.EntityID, len(q.scratch))
		for j, e := range q.scratch {
			ids[j] = e.Handle()
		}
		clear(q.scratch)

		q.resolved++
		event.Emit(q.bus, event.QueryReady{
			QueryID: uint64(pq.ID),
			Results: ids,
			Latency: int(now - pq.EnqueuedAt),
		})
		q.log.Debug("deferred query resolved",
			zap.Uint64("query", uint64(pq.ID)),
			zap.Int("results", len(ids)),
			zap.Uint64("latency_ticks", now-pq.EnqueuedAt))
	}
	if q.head == len(q.pending) {
		q.pending = q.pending[:0]
		q.head = 0
	} else if q.head > cap(q.pending)/2 {
		q.pending = append(q.pending[:0], q.pending[q.head:]...)
		q.head = 0
	}
	return n
}

// QueryStats is the query part of the statistics surface.
type QueryStats struct {
	Pending  int
	Sync     uint64
	Resolved uint64
	Spatial  bool
}

func (q *QueryProcessor) Stats() QueryStats {
	return QueryStats{
		Pending:  q.Pending(),
		Sync:     q.sync,
		Resolved: q.resolved,
		Spatial:  q.spatial,
	}
}
