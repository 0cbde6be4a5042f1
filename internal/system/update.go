package system

import (
	"time"

	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/world"
)

// UpdateSystem runs one scheduler tick: every firing cadence tier has its
// entities' update hooks invoked with a tier-scaled delta. Phase 2 (Update).
type UpdateSystem struct {
	ctrl *world.Controller
	last world.TickReport
}

func NewUpdateSystem(ctrl *world.Controller) *UpdateSystem {
	return &UpdateSystem{ctrl: ctrl}
}

func (s *UpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UpdateSystem) Update(dt time.Duration) {
	s.last = s.ctrl.Tick(dt.Seconds())
}

// Last returns the report of the most recent tick.
func (s *UpdateSystem) Last() world.TickReport { return s.last }
