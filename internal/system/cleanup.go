package system

import (
	"time"

	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/world"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	ctrl *world.Controller
}

func NewCleanupSystem(ctrl *world.Controller) *CleanupSystem {
	return &CleanupSystem{ctrl: ctrl}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.ctrl.FlushDestroyQueue()
}
