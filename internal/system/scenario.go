package system

import (
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	coresys "github.com/driftyard/simcore/internal/core/system"
	"github.com/driftyard/simcore/internal/data"
	"github.com/driftyard/simcore/internal/world"
)

// ScenarioSystem drives the demo: it seeds ships and debris, keeps the debris
// field topped up and gives every kind its behavior. Phase 1 (PreUpdate).
type ScenarioSystem struct {
	ctrl      *world.Controller
	kinds     *data.KindTable
	targeting *Targeting
	rng       *rand.Rand
	log       *zap.Logger

	Extent float64 // half-width of the spawn cube
	ships  int
	debris int

	tickCount int
	refill    int // ticks between debris top-ups
}

func NewScenarioSystem(s *Session, kinds *data.KindTable, seed int64, ships, debris int, log *zap.Logger) *ScenarioSystem {
	if log == nil {
		log = zap.NewNop()
	}
	sc := &ScenarioSystem{
		ctrl:      s.Ctrl,
		kinds:     kinds,
		targeting: NewTargeting(s.Ctrl, s.Bus, log),
		rng:       rand.New(rand.NewSource(seed)),
		log:       log,
		Extent:    1000,
		ships:     ships,
		debris:    debris,
		refill:    60,
	}
	if d := sc.def(world.KindShip); d != nil {
		if d.Speed > 0 {
			sc.targeting.Speed = d.Speed
		}
		if d.Sensor > 0 {
			sc.targeting.Radius = d.Sensor
		}
	}
	if d := sc.def(world.KindProjectile); d != nil {
		if d.Speed > 0 {
			sc.targeting.ShotSpeed = d.Speed
		}
		sc.targeting.ShotTTL = d.TTL
	}
	return sc
}

func (sc *ScenarioSystem) def(k world.Kind) *data.KindDef {
	if sc.kinds == nil {
		return nil
	}
	return sc.kinds.Get(k)
}

// Targeting exposes the ship behavior for inspection.
func (sc *ScenarioSystem) Targeting() *Targeting { return sc.targeting }

// Behavior returns the update hook the demo gives kind; nil leaves the
// session default in place.
func (sc *ScenarioSystem) Behavior(kind world.Kind) world.Behavior {
	if kind == world.KindShip {
		return sc.targeting
	}
	return nil
}

// Populate spawns the initial ships and debris. One ship is player controlled.
func (sc *ScenarioSystem) Populate() error {
	for i := 0; i < sc.ships; i++ {
		if err := sc.spawn(world.KindShip, i == 0); err != nil {
			return err
		}
	}
	for i := 0; i < sc.debris; i++ {
		if err := sc.spawn(world.KindDebris, false); err != nil {
			return err
		}
	}
	return nil
}

func (sc *ScenarioSystem) spawn(kind world.Kind, player bool) error {
	speed, ttl := 0.0, 0.0
	if d := sc.def(kind); d != nil {
		speed, ttl = d.Speed, d.TTL
	}
	_, err := sc.ctrl.Create(kind, world.Spawn{
		Pos:      sc.randomPoint(sc.Extent),
		Vel:      sc.randomPoint(1).Scale(speed),
		Player:   player,
		TTL:      ttl,
		Behavior: sc.Behavior(kind),
	})
	return err
}

func (sc *ScenarioSystem) randomPoint(extent float64) world.Vec3 {
	return world.Vec3{
		X: (sc.rng.Float64()*2 - 1) * extent,
		Y: (sc.rng.Float64()*2 - 1) * extent,
		Z: (sc.rng.Float64()*2 - 1) * extent / 10,
	}
}

func (sc *ScenarioSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (sc *ScenarioSystem) Update(_ time.Duration) {
	sc.tickCount++
	if sc.tickCount < sc.refill {
		return
	}
	sc.tickCount = 0

	missing := sc.debris - sc.ctrl.Registry().KindCount(world.KindDebris)
	for i := 0; i < missing; i++ {
		if err := sc.spawn(world.KindDebris, false); err != nil {
			if !errors.Is(err, world.ErrCapacityExceeded) {
				sc.log.Warn("debris refill failed", zap.Error(err))
			}
			return
		}
	}
}
