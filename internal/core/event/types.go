package event

import (
	"time"

	"github.com/driftyard/simcore/internal/core/ecs"
)

// EntityCreated is emitted after an entity is registered into every index.
type EntityCreated struct {
	ID     ecs.EntityID
	Kind   string
	Reused bool // instance came from the kind's pool
}

// EntityDestroyed is emitted after an entity left every index.
type EntityDestroyed struct {
	ID     ecs.EntityID
	Kind   string
	Pooled bool
}

// QueryReady carries the result of a deferred radius query.
type QueryReady struct {
	QueryID uint64
	Results []ecs.EntityID
	Latency int // ticks between submit and resolve
}

// PerformanceWarning is emitted when a tick or query overruns its budget.
type PerformanceWarning struct {
	Source  string // "scheduler" or "query"
	Elapsed time.Duration
	Budget  time.Duration
	Tick    uint64
}

// CriticalError is published synchronously when the subsystem refuses to start.
type CriticalError struct {
	Component string
	Err       error
}
