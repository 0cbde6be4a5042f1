package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/persist"
	"github.com/driftyard/simcore/internal/world"
)

// TelemetrySystem periodically writes the statistics surface to the telemetry
// store. Phase 5 (Persist).
type TelemetrySystem struct {
	ctrl      *world.Controller
	repo      *persist.StatsRepo
	runID     int64
	log       *zap.Logger
	tickCount int
	interval  int // snapshot every N ticks

	saved  int
	failed int
}

func NewTelemetrySystem(ctrl *world.Controller, repo *persist.StatsRepo, runID int64, log *zap.Logger, intervalTicks int) *TelemetrySystem {
	return &TelemetrySystem{
		ctrl:     ctrl,
		repo:     repo,
		runID:    runID,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *TelemetrySystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *TelemetrySystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush writes a snapshot immediately. Called for graceful shutdown so the
// final state of the run is recorded.
func (s *TelemetrySystem) Flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := s.ctrl.Stats()
	if err := s.repo.SaveSnapshot(ctx, s.runID, st); err != nil {
		s.failed++
		s.log.Error("telemetry snapshot failed", zap.Uint64("tick", st.Tick), zap.Error(err))
		return
	}
	s.saved++
	s.log.Debug("telemetry snapshot saved", zap.Uint64("tick", st.Tick), zap.Int("live", st.Live))
}

// Saved returns the number of snapshots written and failed.
func (s *TelemetrySystem) Saved() (saved, failed int) {
	return s.saved, s.failed
}
