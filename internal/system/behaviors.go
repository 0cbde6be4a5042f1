package system

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/core/ecs"
	"github.com/driftyard/simcore/internal/core/event"
	"github.com/driftyard/simcore/internal/world"
)

// Lifetime counts an entity's TTL down and queues it for destruction once it
// runs out. Entities with TTL 0 live until destroyed. next, if set, runs first.
func Lifetime(ctrl *world.Controller, next world.Behavior) world.Behavior {
	return world.BehaviorFunc(func(e *world.Entity, dt float64) {
		if next != nil {
			next.Update(e, dt)
		}
		if e.TTL <= 0 {
			return
		}
		e.TTL -= dt
		if e.TTL <= 0 {
			ctrl.MarkForDestruction(e.Handle())
		}
	})
}

// TargetState is the per-entity state of the Targeting behavior, kept in
// Entity.Data.
type TargetState struct {
	Target   ecs.EntityID
	Query    world.QueryID
	Cooldown float64 // seconds until the next scan
	Reload   float64 // seconds until the next shot
	Shots    int
}

// Targeting scans for the nearest entity of a kind with deferred radius
// queries, steers toward it and fires projectiles at it.
type Targeting struct {
	ctrl *world.Controller
	log  *zap.Logger

	Radius     float64
	ScanEvery  float64 // seconds
	FireEvery  float64 // seconds; 0 disables firing
	Speed      float64 // cruise speed, units/s
	ShotSpeed  float64
	ShotTTL    float64
	Filter     world.KindSet
	Projectile world.Kind

	waiting map[world.QueryID]ecs.EntityID
}

func NewTargeting(ctrl *world.Controller, bus *event.Bus, log *zap.Logger) *Targeting {
	t := &Targeting{
		ctrl:       ctrl,
		log:        log,
		Radius:     400,
		ScanEvery:  1,
		FireEvery:  0.5,
		Speed:      40,
		ShotSpeed:  600,
		ShotTTL:    1.5,
		Filter:     world.KindSetOf(world.KindShip),
		Projectile: world.KindProjectile,
		waiting:    make(map[world.QueryID]ecs.EntityID),
	}
	event.Subscribe(bus, t.onReady)
	return t
}

func (t *Targeting) Update(e *world.Entity, dt float64) {
	st, ok := e.Data.(*TargetState)
	if !ok {
		st = &TargetState{}
		e.Data = st
	}

	if st.Target != 0 {
		if target, ok := t.ctrl.Get(st.Target); ok && target.Active() {
			t.pursue(e, st, target, dt)
		} else {
			st.Target = 0
		}
	}

	st.Cooldown -= dt
	if st.Cooldown <= 0 && st.Query == 0 {
		st.Query = t.ctrl.Queries().Submit(e.Position(), t.Radius, t.Filter)
		t.waiting[st.Query] = e.Handle()
		st.Cooldown = t.ScanEvery
	}

	e.SetPos(e.Position().Add(e.Vel.Scale(dt)))
}

func (t *Targeting) pursue(e *world.Entity, st *TargetState, target *world.Entity, dt float64) {
	dir, dist := unit(target.Position().Sub(e.Position()))
	if dist == 0 {
		return
	}
	e.Vel = dir.Scale(t.Speed)

	if t.FireEvery <= 0 {
		return
	}
	st.Reload -= dt
	if st.Reload > 0 {
		return
	}
	st.Reload = t.FireEvery
	_, err := t.ctrl.Create(t.Projectile, world.Spawn{
		Pos:   e.Position(),
		Vel:   dir.Scale(t.ShotSpeed),
		Owner: e.Handle(),
		TTL:   t.ShotTTL,
	})
	switch {
	case err == nil:
		st.Shots++
	case errors.Is(err, world.ErrCapacityExceeded):
		t.log.Debug("shot dropped at capacity", zap.Uint32("id", e.ID()))
	default:
		t.log.Warn("fire failed", zap.Uint32("id", e.ID()), zap.Error(err))
	}
}

// onReady picks the nearest hit other than the scanner itself.
func (t *Targeting) onReady(ev event.QueryReady) {
	id := world.QueryID(ev.QueryID)
	h, ok := t.waiting[id]
	if !ok {
		return
	}
	delete(t.waiting, id)

	e, ok := t.ctrl.Get(h)
	if !ok {
		return
	}
	st, ok := e.Data.(*TargetState)
	if !ok {
		return
	}
	st.Query = 0

	best, bestD := ecs.EntityID(0), math.Inf(1)
	for _, cand := range ev.Results {
		if cand == h {
			continue
		}
		other, ok := t.ctrl.Get(cand)
		if !ok {
			continue
		}
		if d := other.Position().DistSq(e.Position()); d < bestD {
			best, bestD = cand, d
		}
	}
	st.Target = best
}

// Waiting is the number of scans whose results have not arrived yet.
func (t *Targeting) Waiting() int { return len(t.waiting) }

func unit(v world.Vec3) (world.Vec3, float64) {
	l := math.Sqrt(v.LenSq())
	if l == 0 {
		return world.Vec3{}, 0
	}
	return v.Scale(1 / l), l
}
