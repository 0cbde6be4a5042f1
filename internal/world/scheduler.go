package world

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/core/ecs"
	"github.com/driftyard/simcore/internal/core/event"
)

// Scheduler groups live entities by cadence tier and decides, per tick, which
// tiers fire. A tier with interval N fires when counter%N == 0 and hands its
// entities a delta of dt*N, so slow tiers advance as if the skipped ticks had
// been simulated in aggregate.
type Scheduler struct {
	intervals [TierCount]uint64
	groups    [TierCount]*ecs.Set[Entity]
	counter   uint64
	budget    time.Duration
	running   bool

	bus *event.Bus
	log *zap.Logger
	now func() time.Time

	scratch []scheduled

	fired       [TierCount]uint64
	invocations [TierCount]uint64
	lastTick    time.Duration
	maxTick     time.Duration
	totalTick   time.Duration
	overruns    uint64
}

type scheduled struct {
	e *Entity
	h ecs.EntityID
}

// TickReport summarizes one Scheduler.Tick.
type TickReport struct {
	Tick    uint64
	Fired   []Tier
	Updated int
	Elapsed time.Duration
	Overrun bool
}

// NewScheduler builds a scheduler with intervals[i] ticks between firings of
// tier i+1 (realtime, high, normal, idle).
func NewScheduler(intervals [TierCount]int, budget time.Duration, bus *event.Bus, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		budget:  budget,
		bus:     bus,
		log:     log,
		now:     time.Now,
		scratch: make([]scheduled, 0, 256),
	}
	for i, n := range intervals {
		if n <= 0 {
			return nil, fmt.Errorf("%w: tier %s interval must be positive, got %d", ErrConfiguration, Tier(i+1), n)
		}
		s.intervals[i] = uint64(n)
		s.groups[i] = ecs.NewSet[Entity](256)
	}
	return s, nil
}

// Assign files e under tier, leaving any previous group.
func (s *Scheduler) Assign(e *Entity, tier Tier) {
	if !tier.Valid() {
		tier = TierNormal
	}
	if e.tier.Valid() {
		s.groups[e.tier.index()].Remove(e.serial)
	}
	e.tier = tier
	s.groups[tier.index()].Put(e.serial, e)
}

// Remove takes e out of its tier group.
func (s *Scheduler) Remove(e *Entity) {
	if e.tier.Valid() {
		s.groups[e.tier.index()].Remove(e.serial)
	}
}

// Interval returns the firing interval of tier in ticks (0 for TierAuto).
func (s *Scheduler) Interval(tier Tier) int {
	if !tier.Valid() {
		return 0
	}
	return int(s.intervals[tier.index()])
}

// Fires reports whether tier fires on the current tick.
func (s *Scheduler) Fires(tier Tier) bool {
	if !tier.Valid() {
		return false
	}
	return s.counter%s.intervals[tier.index()] == 0
}

// Counter is the number of ticks run so far.
func (s *Scheduler) Counter() uint64 { return s.counter }

func (s *Scheduler) GroupSize(tier Tier) int {
	if !tier.Valid() {
		return 0
	}
	return s.groups[tier.index()].Len()
}

// InGroup reports whether the tier group holds e.
func (s *Scheduler) InGroup(tier Tier, e *Entity) bool {
	if !tier.Valid() {
		return false
	}
	cur, ok := s.groups[tier.index()].Get(e.serial)
	return ok && cur == e
}

// markFresh excludes an entity tracked mid-tick from the rest of that tick.
func (s *Scheduler) markFresh(e *Entity) {
	if s.running {
		e.ranAt = s.counter + 1
	}
}

// Tick runs every firing tier. Hooks may create, destroy or reassign entities:
// an entity destroyed earlier in the same tick is skipped, one created during
// the tick waits for the next, and none is updated twice in one tick even if
// it moved to a later tier that also fires.
func (s *Scheduler) Tick(dt float64) TickReport {
	start := s.now()
	rep := TickReport{Tick: s.counter}
	stamp := s.counter + 1
	s.running = true

	for i := range s.groups {
		if s.counter%s.intervals[i] != 0 {
			continue
		}
		tier := Tier(i + 1)
		rep.Fired = append(rep.Fired, tier)
		s.fired[i]++

		s.scratch = s.scratch[:0]
		s.groups[i].Each(func(_ uint32, e *Entity) {
			s.scratch = append(s.scratch, scheduled{e: e, h: e.Handle()})
		})
		scaled := dt * float64(s.intervals[i])
		updated := 0
		for _, it := range s.scratch {
			// stale: destroyed, recycled or moved to another tier mid-tick
			if !it.e.registered || it.e.Handle() != it.h || it.e.tier != tier || !it.e.active || it.e.ranAt == stamp {
				continue
			}
			it.e.ranAt = stamp
			it.e.Update(scaled)
			updated++
		}
		s.invocations[i] += uint64(updated)
		rep.Updated += updated
	}
	// drop pointers so pooled instances are not pinned by the scratch buffer
	clear(s.scratch)
	s.scratch = s.scratch[:0]
	s.running = false

	rep.Elapsed = s.now().Sub(start)
	s.lastTick = rep.Elapsed
	s.totalTick += rep.Elapsed
	if rep.Elapsed > s.maxTick {
		s.maxTick = rep.Elapsed
	}
	if s.budget > 0 && rep.Elapsed > s.budget {
		rep.Overrun = true
		s.overruns++
		s.log.Warn("frame budget exceeded",
			zap.Uint64("tick", s.counter),
			zap.Duration("elapsed", rep.Elapsed),
			zap.Duration("budget", s.budget),
			zap.Int("updated", rep.Updated))
		event.Emit(s.bus, event.PerformanceWarning{
			Source:  "scheduler",
			Elapsed: rep.Elapsed,
			Budget:  s.budget,
			Tick:    s.counter,
		})
	}
	s.counter++
	return rep
}

// SchedulerStats is the scheduler part of the statistics surface.
type SchedulerStats struct {
	Ticks       uint64
	GroupSizes  map[Tier]int
	Fired       map[Tier]uint64
	Invocations map[Tier]uint64
	LastTick    time.Duration
	MaxTick     time.Duration
	AvgTick     time.Duration
	Overruns    uint64
}

func (s *Scheduler) Stats() SchedulerStats {
	st := SchedulerStats{
		Ticks:       s.counter,
		GroupSizes:  make(map[Tier]int, TierCount),
		Fired:       make(map[Tier]uint64, TierCount),
		Invocations: make(map[Tier]uint64, TierCount),
		LastTick:    s.lastTick,
		MaxTick:     s.maxTick,
		Overruns:    s.overruns,
	}
	if s.counter > 0 {
		st.AvgTick = s.totalTick / time.Duration(s.counter)
	}
	for i := range s.groups {
		t := Tier(i + 1)
		st.GroupSizes[t] = s.groups[i].Len()
		st.Fired[t] = s.fired[i]
		st.Invocations[t] = s.invocations[i]
	}
	return st
}
