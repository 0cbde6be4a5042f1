package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/world"
)

// RebucketSystem re-files every live entity in the grid once per interval
// ticks. Only registered under the periodic re-bucketing policy.
// Phase 3 (PostUpdate).
type RebucketSystem struct {
	ctrl      *world.Controller
	log       *zap.Logger
	interval  int
	tickCount int
}

func NewRebucketSystem(ctrl *world.Controller, intervalTicks int, log *zap.Logger) *RebucketSystem {
	return &RebucketSystem{ctrl: ctrl, log: log, interval: intervalTicks}
}

func (s *RebucketSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *RebucketSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	moved := s.ctrl.RebucketAll()
	s.log.Debug("periodic rebucket", zap.Int("moved", moved))
}
