package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/world"
)

// DiagnosticsSystem runs the integrity validator every interval ticks and
// logs each violation. Violations are advisory; nothing is repaired.
// Phase 4 (Diagnostics).
type DiagnosticsSystem struct {
	ctrl      *world.Controller
	log       *zap.Logger
	interval  int
	tickCount int

	runs       int
	violations int
}

func NewDiagnosticsSystem(ctrl *world.Controller, intervalTicks int, log *zap.Logger) *DiagnosticsSystem {
	return &DiagnosticsSystem{ctrl: ctrl, log: log, interval: intervalTicks}
}

func (s *DiagnosticsSystem) Phase() coresys.Phase { return coresys.PhaseDiagnostics }

func (s *DiagnosticsSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Check()
}

// Check validates immediately and returns the number of violations found.
func (s *DiagnosticsSystem) Check() int {
	vs := s.ctrl.Validate()
	s.runs++
	s.violations += len(vs)
	for _, v := range vs {
		s.log.Warn("integrity violation",
			zap.Stringer("kind", v.Kind),
			zap.Uint32("id", v.Serial),
			zap.String("detail", v.Detail))
	}
	if len(vs) == 0 {
		s.log.Debug("integrity check passed", zap.Int("live", s.ctrl.Count()))
	}
	return len(vs)
}

// Totals returns the number of checks run and violations reported so far.
func (s *DiagnosticsSystem) Totals() (runs, violations int) {
	return s.runs, s.violations
}

// Drawer renders a statistics snapshot, e.g. the terminal overlay.
type Drawer interface {
	Draw(st world.Stats)
}

// OverlaySystem hands a Stats snapshot to a Drawer every interval ticks.
// Phase 4 (Diagnostics).
type OverlaySystem struct {
	ctrl      *world.Controller
	drawer    Drawer
	interval  int
	tickCount int
}

func NewOverlaySystem(ctrl *world.Controller, drawer Drawer, intervalTicks int) *OverlaySystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &OverlaySystem{ctrl: ctrl, drawer: drawer, interval: intervalTicks}
}

func (s *OverlaySystem) Phase() coresys.Phase { return coresys.PhaseDiagnostics }

func (s *OverlaySystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.drawer.Draw(s.ctrl.Stats())
}
