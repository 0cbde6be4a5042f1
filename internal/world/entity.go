package world

import "github.com/driftyard/simcore/internal/core/ecs"

// Updatable is the capability set the scheduler and queries rely on.
type Updatable interface {
	Update(dt float64)
	Position() Vec3
	Active() bool
}

// Behavior is the per-kind update hook (physics, AI, lifetime). Behaviors are
// shared between entities and must keep their state on the Entity.
type Behavior interface {
	Update(e *Entity, dt float64)
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(e *Entity, dt float64)

func (f BehaviorFunc) Update(e *Entity, dt float64) { f(e, dt) }

// Kinematic integrates velocity into position.
var Kinematic Behavior = BehaviorFunc(func(e *Entity, dt float64) {
	e.SetPos(e.pos.Add(e.Vel.Scale(dt)))
})

// Spawn is the initial state of an entity handed to Controller.Create.
type Spawn struct {
	Pos      Vec3
	Vel      Vec3
	Player   bool
	Owner    ecs.EntityID
	TTL      float64 // seconds to live; 0 = until destroyed
	Tier     Tier    // TierAuto lets the tier policy decide
	Behavior Behavior
	Data     any
}

// Entity is a tracked simulated object. While alive it is owned by the
// Controller; once destroyed it may be recycled for another object of the same
// kind, so code outside this package must hold a Handle, not a pointer.
// Accessed only from the simulation goroutine.
type Entity struct {
	serial uint32
	gen    uint32
	kind   Kind
	tier   Tier
	active bool

	cell     CellKey
	bucketed bool

	registered bool
	pooled     bool
	ranAt      uint64 // scheduler counter+1 of the last update

	pos    Vec3
	Vel    Vec3
	Player bool
	Owner  ecs.EntityID
	TTL    float64
	Flags  uint32 // visual/gameplay flags owned by behaviors
	Data   any

	behavior Behavior
	onMove   func(*Entity) // set while tracked under eager re-bucketing
}

// NewEntity builds an untracked entity, e.g. for Controller.Register.
func NewEntity(kind Kind, s Spawn) *Entity {
	e := &Entity{kind: kind}
	e.init(s)
	return e
}

func (e *Entity) init(s Spawn) {
	e.pos = s.Pos
	e.Vel = s.Vel
	e.Player = s.Player
	e.Owner = s.Owner
	e.TTL = s.TTL
	e.Data = s.Data
	e.tier = s.Tier
	e.behavior = s.Behavior
	e.active = true
}

// reset clears every transient field before the instance is pooled.
// Serial and generation are identity bookkeeping and are handled by the caller.
func (e *Entity) reset() {
	e.tier = TierAuto
	e.active = false
	e.cell = CellKey{}
	e.bucketed = false
	e.pos = Vec3{}
	e.ranAt = 0
	e.onMove = nil
	e.Vel = Vec3{}
	e.Player = false
	e.Owner = 0
	e.TTL = 0
	e.Flags = 0
	e.Data = nil
	e.behavior = nil
}

// Handle returns the generation-counted reference for e. It is zero for an
// entity that was never registered.
func (e *Entity) Handle() ecs.EntityID {
	if e.serial == 0 {
		return 0
	}
	return ecs.NewEntityID(e.serial, e.gen)
}

func (e *Entity) ID() uint32     { return e.serial }
func (e *Entity) Kind() Kind     { return e.kind }
func (e *Entity) Tier() Tier     { return e.tier }
func (e *Entity) Position() Vec3 { return e.pos }

// SetPos is the only way to move a tracked entity. Under eager re-bucketing the
// grid follows at once; under the periodic and query policies the entity is
// re-filed by the next re-bucketing pass.
func (e *Entity) SetPos(p Vec3) {
	e.pos = p
	if e.onMove != nil {
		e.onMove(e)
	}
}

// Active reports whether e is live and not switched off by its behavior.
func (e *Entity) Active() bool { return e.active && e.registered }

// SetActive toggles participation in updates and queries without destroying e.
func (e *Entity) SetActive(on bool) { e.active = on }

// Tracked reports whether e is currently in the registry.
func (e *Entity) Tracked() bool { return e.registered }

// Behavior returns the update hook, or nil for a static entity.
func (e *Entity) Behavior() Behavior { return e.behavior }

func (e *Entity) SetBehavior(b Behavior) { e.behavior = b }

// Update runs the behavior hook with an already tier-scaled delta.
func (e *Entity) Update(dt float64) {
	if e.behavior != nil {
		e.behavior.Update(e, dt)
	}
}

var _ Updatable = (*Entity)(nil)
