package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/system"
	"github.com/driftyard/simcore/internal/world"
)

func TestLifetimeExpiresThroughCleanup(t *testing.T) {
	s := newSession(t, testConfig(), system.Deps{})
	h, err := s.Ctrl.Create(world.KindProjectile, world.Spawn{
		Vel: world.Vec3{X: 10},
		TTL: 0.25,
	})
	require.NoError(t, err)

	tickN(s, 2)
	e, ok := s.Ctrl.Get(h)
	require.True(t, ok, "still alive with 0.05s left")
	assert.InDelta(t, 2.0, e.Position().X, 1e-9)
	assert.InDelta(t, 0.05, e.TTL, 1e-9)

	s.Tick()
	_, ok = s.Ctrl.Get(h)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Ctrl.QueuedDestroys())
	assert.Equal(t, 1, s.Ctrl.Pool().Size(world.KindProjectile))

	_, violations := s.Diag.Totals()
	assert.Zero(t, violations)
}

func TestLifetimeZeroTTLLivesOn(t *testing.T) {
	s := newSession(t, testConfig(), system.Deps{})
	h, err := s.Ctrl.Create(world.KindDebris, world.Spawn{Vel: world.Vec3{Y: 1}})
	require.NoError(t, err)

	tickN(s, 12)
	e, ok := s.Ctrl.Get(h)
	require.True(t, ok)
	// normal tier: fires on ticks 0 and 6 with a 0.6s delta each
	assert.InDelta(t, 1.2, e.Position().Y, 1e-9)
}

func TestStationHasNoDefaultBehavior(t *testing.T) {
	s := newSession(t, testConfig(), system.Deps{})
	h, err := s.Ctrl.Create(world.KindStation, world.Spawn{Vel: world.Vec3{X: 5}})
	require.NoError(t, err)
	e, _ := s.Ctrl.Get(h)
	assert.Nil(t, e.Behavior())
}

func TestTargetingAcquiresAndFires(t *testing.T) {
	s := newSession(t, testConfig(), system.Deps{})
	tg := system.NewTargeting(s.Ctrl, s.Bus, zap.NewNop())

	a, err := s.Ctrl.Create(world.KindShip, world.Spawn{Tier: world.TierRealtime, Behavior: tg})
	require.NoError(t, err)
	b, err := s.Ctrl.Create(world.KindShip, world.Spawn{
		Pos:      world.Vec3{X: 100},
		Tier:     world.TierRealtime,
		Behavior: tg,
	})
	require.NoError(t, err)

	// tick 1: both ships submit a scan, resolved after the scheduler advanced
	s.Tick()
	assert.Equal(t, 2, tg.Waiting())
	assert.Zero(t, s.Ctrl.Queries().Pending())

	// tick 2: results dispatched, ships lock on and fire
	s.Tick()
	assert.Zero(t, tg.Waiting())

	ea, _ := s.Ctrl.Get(a)
	st, ok := ea.Data.(*system.TargetState)
	require.True(t, ok)
	assert.Equal(t, b, st.Target)
	assert.Equal(t, 1, st.Shots)
	assert.InDelta(t, tg.Speed, ea.Vel.X, 1e-9)

	eb, _ := s.Ctrl.Get(b)
	assert.Equal(t, a, eb.Data.(*system.TargetState).Target)

	shots := s.Ctrl.ByKind(world.KindProjectile)
	require.Len(t, shots, 2)
	owners := []any{shots[0].Owner, shots[1].Owner}
	assert.ElementsMatch(t, []any{a, b}, owners)
	for _, p := range shots {
		assert.Equal(t, world.TierRealtime, p.Tier())
		assert.InDelta(t, tg.ShotTTL, p.TTL, 1e-9)
	}

	_, violations := s.Diag.Totals()
	assert.Zero(t, violations)
}

func TestTargetingDropsVanishedTarget(t *testing.T) {
	s := newSession(t, testConfig(), system.Deps{})
	tg := system.NewTargeting(s.Ctrl, s.Bus, zap.NewNop())
	tg.FireEvery = 0

	a, err := s.Ctrl.Create(world.KindShip, world.Spawn{Tier: world.TierRealtime, Behavior: tg})
	require.NoError(t, err)
	b, err := s.Ctrl.Create(world.KindShip, world.Spawn{Pos: world.Vec3{X: 50}})
	require.NoError(t, err)

	tickN(s, 2)
	ea, _ := s.Ctrl.Get(a)
	st := ea.Data.(*system.TargetState)
	require.Equal(t, b, st.Target)

	require.True(t, s.Ctrl.Destroy(b))
	s.Tick()
	assert.Zero(t, st.Target)
	assert.Zero(t, st.Shots)
	assert.Empty(t, s.Ctrl.ByKind(world.KindProjectile))
}

func TestTargetingIgnoresLoneScanner(t *testing.T) {
	s := newSession(t, testConfig(), system.Deps{})
	tg := system.NewTargeting(s.Ctrl, s.Bus, zap.NewNop())
	a, err := s.Ctrl.Create(world.KindShip, world.Spawn{Tier: world.TierRealtime, Behavior: tg})
	require.NoError(t, err)

	tickN(s, 3)
	ea, _ := s.Ctrl.Get(a)
	assert.Zero(t, ea.Data.(*system.TargetState).Target)
}
