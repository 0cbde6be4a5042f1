package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftyard/simcore/internal/world"
)

type counter struct {
	calls int
	dts   []float64
}

func (c *counter) Update(_ *world.Entity, dt float64) {
	c.calls++
	c.dts = append(c.dts, dt)
}

func TestIdleTierFiresOncePerSixtyTicks(t *testing.T) {
	c, _ := newController(t)
	hook := &counter{}
	_, err := c.Create(world.KindEffect, world.Spawn{Tier: world.TierIdle, Behavior: hook})
	require.NoError(t, err)

	const dt = 1.0 / 60
	for i := 0; i < 60; i++ {
		c.Tick(dt)
	}
	assert.Equal(t, 1, hook.calls)
	require.Len(t, hook.dts, 1)
	assert.InDelta(t, 1.0, hook.dts[0], 1e-9, "delta is scaled by the tier interval")

	for i := 0; i < 60; i++ {
		c.Tick(dt)
	}
	assert.Equal(t, 2, hook.calls)
}

func TestTierCadences(t *testing.T) {
	c, _ := newController(t)
	hooks := map[world.Tier]*counter{}
	for _, tier := range world.Tiers() {
		hooks[tier] = &counter{}
		_, err := c.Create(world.KindDebris, world.Spawn{Tier: tier, Behavior: hooks[tier]})
		require.NoError(t, err)
	}
	for i := 0; i < 120; i++ {
		c.Tick(1.0 / 60)
	}
	assert.Equal(t, 120, hooks[world.TierRealtime].calls)
	assert.Equal(t, 60, hooks[world.TierHigh].calls)
	assert.Equal(t, 20, hooks[world.TierNormal].calls)
	assert.Equal(t, 2, hooks[world.TierIdle].calls)

	st := c.Scheduler().Stats()
	assert.Equal(t, uint64(120), st.Ticks)
	assert.Equal(t, uint64(60), st.Fired[world.TierHigh])
	assert.Equal(t, uint64(20), st.Invocations[world.TierNormal])
}

func TestTickReport(t *testing.T) {
	c, _ := newController(t)
	_, _ = c.Create(world.KindShip, world.Spawn{})
	_, _ = c.Create(world.KindProjectile, world.Spawn{})

	rep := c.Tick(1.0 / 60)
	assert.Equal(t, uint64(0), rep.Tick)
	assert.Equal(t, world.Tiers(), rep.Fired)
	assert.Equal(t, 2, rep.Updated)
	assert.False(t, rep.Overrun)

	rep = c.Tick(1.0 / 60)
	assert.Equal(t, []world.Tier{world.TierRealtime}, rep.Fired)
	assert.Equal(t, 1, rep.Updated)
}

func TestInactiveEntitiesAreSkipped(t *testing.T) {
	c, _ := newController(t)
	hook := &counter{}
	h, _ := c.Create(world.KindProjectile, world.Spawn{Behavior: hook})
	e, _ := c.Get(h)

	e.SetActive(false)
	c.Tick(1.0 / 60)
	assert.Equal(t, 0, hook.calls)

	e.SetActive(true)
	c.Tick(1.0 / 60)
	assert.Equal(t, 1, hook.calls)
}

func TestEveryLiveEntityIsInExactlyOneTier(t *testing.T) {
	c, _ := newController(t)
	h, _ := c.Create(world.KindShip, world.Spawn{})
	e, _ := c.Get(h)
	sched := c.Scheduler()

	for _, tier := range world.Tiers() {
		c.Reassign(h, tier)
		n := 0
		for _, other := range world.Tiers() {
			if sched.InGroup(other, e) {
				n++
			}
		}
		assert.Equal(t, 1, n)
		assert.True(t, sched.InGroup(tier, e))
	}

	c.Destroy(h)
	for _, tier := range world.Tiers() {
		assert.Equal(t, 0, sched.GroupSize(tier))
	}
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	_, err := world.NewScheduler([world.TierCount]int{1, 2, 0, 60}, 0, nil, nil)
	assert.ErrorIs(t, err, world.ErrConfiguration)
}

func TestSchedulerIntervals(t *testing.T) {
	s, err := world.NewScheduler([world.TierCount]int{1, 2, 6, 60}, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 60, s.Interval(world.TierIdle))
	assert.Equal(t, 0, s.Interval(world.TierAuto))
	assert.True(t, s.Fires(world.TierIdle), "every tier fires on tick 0")
	assert.False(t, s.Fires(world.TierAuto))
}

func TestReassignMidTickUpdatesOnce(t *testing.T) {
	c, _ := newController(t)
	calls := 0
	demote := world.BehaviorFunc(func(e *world.Entity, _ float64) {
		calls++
		c.Reassign(e.Handle(), world.TierIdle)
	})
	h, err := c.Create(world.KindProjectile, world.Spawn{Tier: world.TierRealtime, Behavior: demote})
	require.NoError(t, err)
	e, _ := c.Get(h)

	const dt = 1.0 / 60
	rep := c.Tick(dt)
	assert.Equal(t, 1, calls, "idle also fires on tick 0 but the entity already ran")
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, world.TierIdle, e.Tier())

	for i := 0; i < 59; i++ {
		c.Tick(dt)
	}
	assert.Equal(t, 1, calls)
	c.Tick(dt)
	assert.Equal(t, 2, calls)
}

func TestEntityCreatedMidTickInLaterTierWaits(t *testing.T) {
	c, _ := newController(t)
	hook := &counter{}
	spawned := false
	spawner := world.BehaviorFunc(func(_ *world.Entity, _ float64) {
		if spawned {
			return
		}
		spawned = true
		_, err := c.Create(world.KindEffect, world.Spawn{Tier: world.TierIdle, Behavior: hook})
		require.NoError(t, err)
	})
	_, err := c.Create(world.KindShip, world.Spawn{Tier: world.TierRealtime, Behavior: spawner})
	require.NoError(t, err)

	const dt = 1.0 / 60
	c.Tick(dt)
	assert.Equal(t, 0, hook.calls, "not updated in the tick that created it")
	for i := 0; i < 59; i++ {
		c.Tick(dt)
	}
	assert.Equal(t, 0, hook.calls)
	c.Tick(dt)
	assert.Equal(t, 1, hook.calls)
}
