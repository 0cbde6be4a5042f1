package system

import "time"

// Phase defines execution ordering within a single simulation tick.
type Phase int

const (
	PhaseDispatch    Phase = iota // 0: deliver last tick's events
	PhasePreUpdate                // 1: gameplay input, spawn requests
	PhaseUpdate                   // 2: cadence-tier update hooks
	PhasePostUpdate               // 3: grid re-bucketing, deferred queries
	PhaseDiagnostics              // 4: integrity checks, overlay
	PhasePersist                  // 5: telemetry flush
	PhaseCleanup                  // 6: destroy queued entities
)

var phaseNames = [...]string{"dispatch", "pre_update", "update", "post_update", "diagnostics", "persist", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
