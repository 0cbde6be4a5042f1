package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick.
type Runner struct {
	systems []System
	sorted  bool
	ticks   uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(dt)
	}
	r.ticks++
}

// TickPhase runs only the systems registered for phase. Used by tests and by
// the binary to drain events before the first full tick.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

// Ticks returns the number of completed full ticks.
func (r *Runner) Ticks() uint64 { return r.ticks }

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
