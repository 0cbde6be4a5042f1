package system_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/config"
	"github.com/driftyard/simcore/internal/system"
)

// testConfig runs at 10 ticks per second so one tick is 0.1s of simulated time.
func testConfig(mutate ...func(*config.Config)) *config.Config {
	cfg := config.Defaults()
	cfg.Simulation.BaseRate = 10
	cfg.Simulation.MaxEntities = 512
	cfg.Simulation.FrameBudget = 0
	cfg.Spatial.QueryBudget = 0
	cfg.Diagnostics.ValidateInterval = 1
	for _, m := range mutate {
		m(cfg)
	}
	return cfg
}

func newSession(t *testing.T, cfg *config.Config, deps system.Deps) *system.Session {
	t.Helper()
	s, err := system.NewSession(cfg, deps, zap.NewNop())
	require.NoError(t, err)
	return s
}

func tickN(s *system.Session, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}
