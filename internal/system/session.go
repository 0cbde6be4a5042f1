package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/config"
	"github.com/driftyard/simcore/internal/core/event"
	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/data"
	"github.com/driftyard/simcore/internal/persist"
	"github.com/driftyard/simcore/internal/world"
)

// Deps are the optional collaborators of a Session.
type Deps struct {
	Kinds  *data.KindTable    // nil = no prewarm, no tier overrides
	Policy world.TierPolicy   // base tier policy (e.g. the Lua engine); nil = built-in
	Stats  *persist.StatsRepo // nil = telemetry off
	RunID  int64
	Drawer Drawer // nil = no overlay
}

// Session is one simulation run: the entity subsystem, its event bus and the
// runner executing every tick system in phase order.
type Session struct {
	Ctrl      *world.Controller
	Bus       *event.Bus
	Runner    *coresys.Runner
	Updates   *UpdateSystem
	Diag      *DiagnosticsSystem
	Telemetry *TelemetrySystem

	tick time.Duration
	log  *zap.Logger
}

// ControllerOptions maps the configuration onto controller options.
func ControllerOptions(cfg *config.Config, deps Deps) (world.Options, error) {
	if cfg.Simulation.BaseRate <= 0 {
		return world.Options{}, fmt.Errorf("%w: base rate must be positive, got %d", world.ErrConfiguration, cfg.Simulation.BaseRate)
	}
	policy, err := world.ParseRebucketPolicy(cfg.Spatial.Rebucket)
	if err != nil {
		return world.Options{}, err
	}
	budget := cfg.Simulation.FrameBudget
	if budget == 0 {
		budget = cfg.Simulation.TickInterval()
	}
	opts := world.Options{
		MaxEntities: cfg.Simulation.MaxEntities,
		Pooling:     cfg.Simulation.Pooling,
		Intervals: [world.TierCount]int{
			cfg.Scheduler.Realtime,
			cfg.Scheduler.High,
			cfg.Scheduler.Normal,
			cfg.Scheduler.Idle,
		},
		FrameBudget:      budget,
		CellSize:         cfg.Spatial.CellSize,
		Spatial:          cfg.Spatial.Enabled,
		QueryBudget:      cfg.Spatial.QueryBudget,
		Rebucket:         policy,
		RebucketInterval: cfg.Spatial.RebucketInterval,
		TierPolicy:       deps.Policy,
	}
	if deps.Kinds != nil {
		opts.TierPolicy = deps.Kinds.TierPolicy(deps.Policy)
	}
	return opts, nil
}

func NewSession(cfg *config.Config, deps Deps, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	bus := event.NewBus()
	event.Subscribe(bus, func(e event.CriticalError) {
		log.Error("critical error", zap.String("component", e.Component), zap.Error(e.Err))
	})

	opts, err := ControllerOptions(cfg, deps)
	if err != nil {
		event.Publish(bus, event.CriticalError{Component: "config", Err: err})
		return nil, err
	}
	ctrl, err := world.NewController(opts, bus, log.Named("world"))
	if err != nil {
		return nil, fmt.Errorf("entity subsystem: %w", err)
	}

	// moving kinds drift and expire; stations stay put
	for _, k := range world.Kinds() {
		if k != world.KindStation {
			ctrl.SetDefaultBehavior(k, Lifetime(ctrl, world.Kinematic))
		}
	}
	if deps.Kinds != nil {
		deps.Kinds.Each(func(d *data.KindDef) {
			if n := ctrl.Prewarm(d.Kind(), d.Prewarm); n > 0 {
				log.Debug("pool prewarmed", zap.Stringer("kind", d.Kind()), zap.Int("count", n))
			}
		})
	}

	s := &Session{
		Ctrl:    ctrl,
		Bus:     bus,
		Runner:  coresys.NewRunner(),
		Updates: NewUpdateSystem(ctrl),
		tick:    cfg.Simulation.TickInterval(),
		log:     log,
	}
	s.Runner.Register(NewDispatchSystem(bus))
	s.Runner.Register(s.Updates)
	if opts.Rebucket == world.RebucketPeriodic {
		s.Runner.Register(NewRebucketSystem(ctrl, opts.RebucketInterval, log.Named("rebucket")))
	}
	s.Runner.Register(NewQuerySystem(ctrl.Queries(), cfg.Queries.MaxPerTick))
	if n := cfg.Diagnostics.ValidateInterval; n > 0 {
		s.Diag = NewDiagnosticsSystem(ctrl, n, log.Named("diag"))
		s.Runner.Register(s.Diag)
	}
	if deps.Drawer != nil {
		// redraw four times per simulated second
		s.Runner.Register(NewOverlaySystem(ctrl, deps.Drawer, cfg.Simulation.BaseRate/4))
	}
	if deps.Stats != nil {
		s.Telemetry = NewTelemetrySystem(ctrl, deps.Stats, deps.RunID, log.Named("telemetry"), cfg.Telemetry.IntervalTicks)
		s.Runner.Register(s.Telemetry)
	}
	s.Runner.Register(NewCleanupSystem(ctrl))
	return s, nil
}

// TickInterval is the simulated duration of one tick.
func (s *Session) TickInterval() time.Duration { return s.tick }

// Tick runs every system once.
func (s *Session) Tick() {
	s.Runner.Tick(s.tick)
}

// Register adds an extra system, e.g. the demo scenario.
func (s *Session) Register(sys coresys.System) {
	s.Runner.Register(sys)
}

// Shutdown flushes the telemetry and runs a final integrity check.
func (s *Session) Shutdown() {
	if s.Telemetry != nil {
		s.Telemetry.Flush()
	}
	if s.Diag != nil {
		s.Diag.Check()
	}
	st := s.Ctrl.Stats()
	s.log.Info("session stopped",
		zap.Uint64("ticks", st.Tick),
		zap.Int("live", st.Live),
		zap.Uint64("created", st.Created),
		zap.Uint64("destroyed", st.Destroyed))
}
