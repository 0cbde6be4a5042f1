package system

import (
	"time"

	"github.com/driftyard/simcore/internal/core/event"
	coresys "github.com/driftyard/simcore/internal/core/system"
)

// DispatchSystem rotates the event bus and delivers last tick's events.
// Phase 0 (Dispatch).
type DispatchSystem struct {
	bus *event.Bus
}

func NewDispatchSystem(bus *event.Bus) *DispatchSystem {
	return &DispatchSystem{bus: bus}
}

func (s *DispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *DispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
