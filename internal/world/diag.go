package world

import (
	"fmt"
	"time"
)

// ViolationKind classifies a consistency failure found by Controller.Validate.
type ViolationKind int

const (
	// ViolationRegistry is a nil, mis-keyed or untracked registry entry.
	ViolationRegistry ViolationKind = iota + 1
	// ViolationTier is an entity in zero or several tier groups.
	ViolationTier
	// ViolationKindIndex is an entity filed under the wrong kind.
	ViolationKindIndex
	// ViolationPooledLive is a pooled instance that is still registered.
	ViolationPooledLive
	// ViolationGrid is an entity missing from, or stale in, its grid cell.
	ViolationGrid
)

var violationNames = [...]string{
	ViolationRegistry:   "registry",
	ViolationTier:       "tier",
	ViolationKindIndex:  "kind-index",
	ViolationPooledLive: "pooled-live",
	ViolationGrid:       "grid",
}

func (v ViolationKind) String() string {
	if v > 0 && int(v) < len(violationNames) {
		return violationNames[v]
	}
	return fmt.Sprintf("violation(%d)", int(v))
}

// Violation is one broken invariant.
type Violation struct {
	Kind   ViolationKind
	Serial uint32
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: entity %d: %s", v.Kind, v.Serial, v.Detail)
}

// Validate cross-checks the registry, type map, tier groups, pools and grid.
// It returns nil when everything agrees. Stale grid cells are only reported
// under eager re-bucketing, where every live entity must sit in its cell.
func (c *Controller) Validate() []Violation {
	var out []Violation
	add := func(k ViolationKind, serial uint32, format string, args ...any) {
		out = append(out, Violation{Kind: k, Serial: serial, Detail: fmt.Sprintf(format, args...)})
	}

	c.reg.byID.ForEach(func(serial uint32, e *Entity) bool {
		switch {
		case e == nil:
			add(ViolationRegistry, serial, "nil entry")
			return true
		case e.serial != serial:
			add(ViolationRegistry, serial, "filed under serial %d but carries %d", serial, e.serial)
		case !e.registered:
			add(ViolationRegistry, serial, "registered flag is clear")
		}
		if e.pooled {
			add(ViolationPooledLive, serial, "%s is registered and pooled", e.kind)
		}

		groups := 0
		for _, t := range Tiers() {
			if c.sched.InGroup(t, e) {
				groups++
				if t != e.tier {
					add(ViolationTier, serial, "in %s group but tier is %s", t, e.tier)
				}
			}
		}
		if groups != 1 {
			add(ViolationTier, serial, "in %d tier groups", groups)
		}

		if !e.kind.Valid() {
			add(ViolationKindIndex, serial, "invalid kind %d", e.kind)
		} else if cur, ok := c.reg.byKind[e.kind].Get(serial); !ok || cur != e {
			add(ViolationKindIndex, serial, "missing from %s type map", e.kind)
		}

		if !e.bucketed {
			add(ViolationGrid, serial, "not bucketed")
		} else if !c.grid.Contains(e.cell, e) {
			add(ViolationGrid, serial, "missing from cell %v", e.cell)
		} else if c.opts.Rebucket == RebucketEager && c.grid.WorldToCell(e.pos) != e.cell {
			add(ViolationGrid, serial, "in cell %v but position maps to %v", e.cell, c.grid.WorldToCell(e.pos))
		}
		return true
	})

	for k := range c.reg.byKind {
		c.reg.byKind[k].Each(func(serial uint32, e *Entity) {
			if e.kind != Kind(k) {
				add(ViolationKindIndex, serial, "%s filed in %s type map", e.kind, Kind(k))
			}
			if cur, ok := c.reg.byID.Get(serial); !ok || cur != e {
				add(ViolationRegistry, serial, "in %s type map but not in registry", Kind(k))
			}
		})
	}

	c.pool.each(func(filed Kind, e *Entity) {
		if e.kind != filed {
			add(ViolationKindIndex, e.serial, "%s pooled as %s", e.kind, filed)
		}
		if e.registered {
			add(ViolationPooledLive, e.serial, "pooled %s is still registered", e.kind)
		}
	})
	return out
}

// Stats is a point-in-time snapshot of the subsystem.
type Stats struct {
	Tick        uint64
	Live        int
	MaxEntities int
	MintedIDs   uint32

	LiveByKind map[Kind]int
	PoolSizes  map[Kind]int
	PoolHits   uint64
	PoolMisses uint64

	TierSizes       map[Tier]int
	TierInvocations map[Tier]uint64

	GridCells       int
	GridMoves       uint64
	GridQueries     uint64
	SyncQueries     uint64
	SlowQueries     uint64
	PendingQueries  int
	QueriesResolved uint64

	LastTick time.Duration
	MaxTick  time.Duration
	AvgTick  time.Duration
	Overruns uint64

	Created        uint64
	Destroyed      uint64
	Rejected       uint64
	QueuedDestroys int
}

func (c *Controller) Stats() Stats {
	ss := c.sched.Stats()
	gs := c.grid.Stats()
	qs := c.queries.Stats()

	live := make(map[Kind]int)
	for _, k := range Kinds() {
		if n := c.reg.KindCount(k); n > 0 {
			live[k] = n
		}
	}
	return Stats{
		Tick:        ss.Ticks,
		Live:        c.reg.Len(),
		MaxEntities: c.opts.MaxEntities,
		MintedIDs:   c.seq.Last(),

		LiveByKind: live,
		PoolSizes:  c.pool.Sizes(),
		PoolHits:   c.pool.Hits(),
		PoolMisses: c.pool.Misses(),

		TierSizes:       ss.GroupSizes,
		TierInvocations: ss.Invocations,

		GridCells:       gs.Cells,
		GridMoves:       gs.Moves,
		GridQueries:     gs.Queries,
		SyncQueries:     qs.Sync,
		SlowQueries:     gs.SlowQueries,
		PendingQueries:  qs.Pending,
		QueriesResolved: qs.Resolved,

		LastTick: ss.LastTick,
		MaxTick:  ss.MaxTick,
		AvgTick:  ss.AvgTick,
		Overruns: ss.Overruns,

		Created:        c.created,
		Destroyed:      c.destroyed,
		Rejected:       c.rejected,
		QueuedDestroys: c.destroy.Len(),
	}
}
