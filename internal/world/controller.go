package world

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/core/ecs"
	"github.com/driftyard/simcore/internal/core/event"
)

// RebucketPolicy decides when moving entities are re-filed in the grid.
type RebucketPolicy int

const (
	// RebucketEager re-files every entity right after its update hook runs.
	RebucketEager RebucketPolicy = iota
	// RebucketPeriodic re-files every live entity once per RebucketInterval ticks.
	RebucketPeriodic
	// RebucketOnQuery re-files every live entity before each radius query.
	RebucketOnQuery
)

func ParseRebucketPolicy(s string) (RebucketPolicy, error) {
	switch s {
	case "", "eager":
		return RebucketEager, nil
	case "periodic":
		return RebucketPeriodic, nil
	case "query":
		return RebucketOnQuery, nil
	}
	return 0, fmt.Errorf("%w: unknown rebucket policy %q", ErrConfiguration, s)
}

// Factory allocates a fresh, untracked instance of a kind when its pool is empty.
type Factory func(kind Kind) *Entity

// Options configures a Controller.
type Options struct {
	MaxEntities      int
	Pooling          bool
	Intervals        [TierCount]int
	FrameBudget      time.Duration
	CellSize         float64
	Spatial          bool
	QueryBudget      time.Duration
	Rebucket         RebucketPolicy
	RebucketInterval int

	TierPolicy TierPolicy        // nil = DefaultTierPolicy
	Behaviors  map[Kind]Behavior // default hook when Spawn.Behavior is nil
	Factories  map[Kind]Factory  // nil entry = NewEntity
}

// DefaultOptions returns the options the shipped config defaults map to.
func DefaultOptions() Options {
	return Options{
		MaxEntities:      4096,
		Pooling:          true,
		Intervals:        [TierCount]int{1, 2, 6, 60},
		FrameBudget:      8 * time.Millisecond,
		CellSize:         100,
		Spatial:          true,
		QueryBudget:      time.Millisecond,
		Rebucket:         RebucketEager,
		RebucketInterval: 10,
	}
}

func (o Options) validate() error {
	var errs []error
	if o.MaxEntities <= 0 {
		errs = append(errs, fmt.Errorf("%w: max entities must be positive, got %d", ErrConfiguration, o.MaxEntities))
	}
	if !(o.CellSize > 0) || math.IsInf(o.CellSize, 0) {
		errs = append(errs, fmt.Errorf("%w: cell size must be positive and finite, got %g", ErrConfiguration, o.CellSize))
	}
	for i, n := range o.Intervals {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%w: tier %s interval must be positive, got %d", ErrConfiguration, Tier(i+1), n))
		}
	}
	if o.Rebucket == RebucketPeriodic && o.RebucketInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: rebucket interval must be positive, got %d", ErrConfiguration, o.RebucketInterval))
	}
	return errors.Join(errs...)
}

// Controller owns entity identity and orchestrates creation, destruction and
// tracking across the registry, pool, scheduler and grid. It is constructed
// once per simulation session and passed to every subsystem that needs it.
// Single-goroutine access only.
type Controller struct {
	opts Options

	seq     *ecs.Sequence
	reg     *Registry
	pool    *TypePool
	sched   *Scheduler
	grid    *Grid
	queries *QueryProcessor
	destroy *ecs.DestroyQueue

	bus *event.Bus
	log *zap.Logger

	rebucket func(*Entity)

	created   uint64
	destroyed uint64
	rejected  uint64
}

// NewController validates opts and builds the subsystem. On a configuration
// error it logs, publishes event.CriticalError synchronously and refuses to start.
func NewController(opts Options, bus *event.Bus, log *zap.Logger) (*Controller, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := opts.validate(); err != nil {
		log.Error("entity subsystem refused to start", zap.Error(err))
		event.Publish(bus, event.CriticalError{Component: "world", Err: err})
		return nil, err
	}
	if opts.TierPolicy == nil {
		opts.TierPolicy = DefaultTierPolicy
	}
	opts.Behaviors = maps.Clone(opts.Behaviors)

	c := &Controller{
		opts:    opts,
		seq:     ecs.NewSequence(),
		reg:     NewRegistry(opts.MaxEntities),
		pool:    NewTypePool(),
		destroy: ecs.NewDestroyQueue(),
		bus:     bus,
		log:     log,
	}
	var err error
	if c.sched, err = NewScheduler(opts.Intervals, opts.FrameBudget, bus, log.Named("scheduler")); err != nil {
		return nil, err
	}
	if c.grid, err = NewGrid(opts.CellSize, opts.QueryBudget, bus, log.Named("grid")); err != nil {
		return nil, err
	}
	c.queries = newQueryProcessor(c.grid, c.reg, opts.Spatial, bus, log.Named("query"), c.sched.Counter)

	switch opts.Rebucket {
	case RebucketEager:
		c.rebucket = func(e *Entity) { c.grid.Move(e) }
	case RebucketOnQuery:
		c.queries.before = func() { c.RebucketAll() }
	}
	return c, nil
}

func (c *Controller) Options() Options         { return c.opts }
func (c *Controller) Registry() *Registry      { return c.reg }
func (c *Controller) Pool() *TypePool          { return c.pool }
func (c *Controller) Scheduler() *Scheduler    { return c.sched }
func (c *Controller) Grid() *Grid              { return c.grid }
func (c *Controller) Queries() *QueryProcessor { return c.queries }
func (c *Controller) Bus() *event.Bus          { return c.bus }

// SetDefaultBehavior sets the hook given to entities of kind spawned without
// one. Behaviors that need the controller are installed this way.
func (c *Controller) SetDefaultBehavior(kind Kind, b Behavior) {
	if c.opts.Behaviors == nil {
		c.opts.Behaviors = make(map[Kind]Behavior)
	}
	c.opts.Behaviors[kind] = b
}

// Count is the number of live entities.
func (c *Controller) Count() int { return c.reg.Len() }

// Full reports whether the live-entity ceiling has been reached.
func (c *Controller) Full() bool { return c.reg.Len() >= c.opts.MaxEntities }

// Create spawns an entity of kind, reusing a pooled instance when one exists.
func (c *Controller) Create(kind Kind, s Spawn) (ecs.EntityID, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("create %s: %w", kind, ErrInvalidKind)
	}
	if c.Full() {
		c.rejected++
		c.log.Debug("create rejected at capacity", zap.Stringer("kind", kind), zap.Int("max", c.opts.MaxEntities))
		return 0, fmt.Errorf("create %s: %w (max %d)", kind, ErrCapacityExceeded, c.opts.MaxEntities)
	}
	if c.seq.Exhausted() {
		c.rejected++
		return 0, fmt.Errorf("create %s: %w", kind, ErrSerialsExhausted)
	}

	reused := false
	var e *Entity
	if c.opts.Pooling {
		e = c.pool.Acquire(kind)
		reused = e != nil
	}
	if e == nil {
		e = c.allocate(kind)
	}
	e.init(s)
	if e.behavior == nil {
		e.behavior = c.opts.Behaviors[kind]
	}

	h := c.track(e)
	c.created++
	event.Emit(c.bus, event.EntityCreated{ID: h, Kind: kind.String(), Reused: reused})
	return h, nil
}

func (c *Controller) allocate(kind Kind) *Entity {
	if f := c.opts.Factories[kind]; f != nil {
		if e := f(kind); e != nil {
			e.kind = kind
			return e
		}
	}
	return &Entity{kind: kind}
}

// track mints a serial for e and files it in the registry, its tier group and
// its grid cell. Callers check seq.Exhausted first.
func (c *Controller) track(e *Entity) ecs.EntityID {
	e.serial, _ = c.seq.Next()
	// registry.add cannot fail: the serial is fresh and e is untracked
	_ = c.reg.add(e)
	tier := e.tier
	if !tier.Valid() {
		tier = c.opts.TierPolicy.AssignTier(e)
	}
	c.sched.Assign(e, tier)
	c.sched.markFresh(e)
	c.grid.Insert(e)
	e.onMove = c.rebucket
	return e.Handle()
}

// untrack removes e from every index. It reports false if e was not tracked.
func (c *Controller) untrack(e *Entity) bool {
	if !c.reg.remove(e) {
		return false
	}
	c.sched.Remove(e)
	c.grid.Remove(e)
	e.active = false
	e.onMove = nil
	return true
}

// Destroy removes the entity behind h from every index and pools or releases
// it. Invalid handles are a no-op and report false.
func (c *Controller) Destroy(h ecs.EntityID) bool {
	e, ok := c.reg.Resolve(h)
	if !ok {
		return false
	}
	c.untrack(e)
	pooled := false
	if c.opts.Pooling {
		c.pool.Release(e)
		pooled = true
	} else {
		e.reset()
		e.gen++
	}
	c.destroyed++
	event.Emit(c.bus, event.EntityDestroyed{ID: h, Kind: e.kind.String(), Pooled: pooled})
	return true
}

// MarkForDestruction queues h for destruction at the end of the tick.
func (c *Controller) MarkForDestruction(h ecs.EntityID) {
	c.destroy.Mark(h)
}

// FlushDestroyQueue destroys every queued handle. Called by the cleanup system.
func (c *Controller) FlushDestroyQueue() int {
	n := 0
	c.destroy.Flush(func(h ecs.EntityID) {
		if c.Destroy(h) {
			n++
		}
	})
	return n
}

// QueuedDestroys is the number of handles awaiting FlushDestroyQueue.
func (c *Controller) QueuedDestroys() int { return c.destroy.Len() }

// Register tracks an externally constructed entity (see NewEntity). The entity
// gets a fresh serial like any created one.
func (c *Controller) Register(e *Entity) (ecs.EntityID, error) {
	if e == nil || !e.kind.Valid() {
		return 0, fmt.Errorf("register: %w", ErrInvalidKind)
	}
	if e.registered || e.pooled {
		return 0, fmt.Errorf("register %s %d: %w", e.kind, e.serial, ErrAlreadyRegistered)
	}
	if c.Full() {
		c.rejected++
		return 0, fmt.Errorf("register %s: %w (max %d)", e.kind, ErrCapacityExceeded, c.opts.MaxEntities)
	}
	if c.seq.Exhausted() {
		c.rejected++
		return 0, fmt.Errorf("register %s: %w", e.kind, ErrSerialsExhausted)
	}
	e.active = true
	h := c.track(e)
	c.created++
	event.Emit(c.bus, event.EntityCreated{ID: h, Kind: e.kind.String()})
	return h, nil
}

// Unregister stops tracking the entity behind h without pooling it; the caller
// keeps ownership of the instance. Invalid handles report false.
func (c *Controller) Unregister(h ecs.EntityID) bool {
	e, ok := c.reg.Resolve(h)
	if !ok {
		return false
	}
	c.untrack(e)
	e.gen++
	c.destroyed++
	event.Emit(c.bus, event.EntityDestroyed{ID: h, Kind: e.kind.String()})
	return true
}

// Get resolves a handle, returning false for stale or destroyed handles.
func (c *Controller) Get(h ecs.EntityID) (*Entity, bool) {
	return c.reg.Resolve(h)
}

// GetByID looks a live entity up by serial alone.
func (c *Controller) GetByID(id uint32) (*Entity, bool) {
	return c.reg.Get(id)
}

// ByKind returns every live entity of kind.
func (c *Controller) ByKind(kind Kind) []*Entity {
	return c.reg.ByKind(kind, nil)
}

// Move sets the position of the entity behind h and re-files it in the grid.
func (c *Controller) Move(h ecs.EntityID, pos Vec3) bool {
	e, ok := c.reg.Resolve(h)
	if !ok {
		return false
	}
	e.pos = pos
	c.grid.Move(e)
	return true
}

// Reassign moves the entity behind h to another tier. TierAuto re-runs the
// tier policy.
func (c *Controller) Reassign(h ecs.EntityID, tier Tier) bool {
	e, ok := c.reg.Resolve(h)
	if !ok {
		return false
	}
	if !tier.Valid() {
		tier = c.opts.TierPolicy.AssignTier(e)
	}
	c.sched.Assign(e, tier)
	return true
}

// Prewarm fills kind's pool with n fresh instances. It is a no-op when
// pooling is disabled.
func (c *Controller) Prewarm(kind Kind, n int) int {
	if !c.opts.Pooling || !kind.Valid() {
		return 0
	}
	for i := 0; i < n; i++ {
		c.pool.Release(c.allocate(kind))
	}
	return n
}

// Tick runs one scheduler tick with a per-tick delta of dt seconds.
func (c *Controller) Tick(dt float64) TickReport {
	return c.sched.Tick(dt)
}

// RebucketAll re-files every live entity whose position left its cell.
func (c *Controller) RebucketAll() int {
	moved := 0
	c.reg.Each(func(e *Entity) bool {
		if c.grid.Move(e) {
			moved++
		}
		return true
	})
	return moved
}

// Nearby is shorthand for Queries().Radius.
func (c *Controller) Nearby(center Vec3, radius float64, filter KindSet) []*Entity {
	return c.queries.Radius(center, radius, filter)
}
