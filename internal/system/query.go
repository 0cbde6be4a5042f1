package system

import (
	"time"

	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/world"
)

// QuerySystem resolves deferred radius queries submitted on earlier ticks,
// at most maxPerTick per tick (all when <= 0). Phase 3 (PostUpdate).
type QuerySystem struct {
	queries    *world.QueryProcessor
	maxPerTick int
}

func NewQuerySystem(queries *world.QueryProcessor, maxPerTick int) *QuerySystem {
	return &QuerySystem{queries: queries, maxPerTick: maxPerTick}
}

func (s *QuerySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *QuerySystem) Update(_ time.Duration) {
	s.queries.ResolvePending(s.maxPerTick)
}
