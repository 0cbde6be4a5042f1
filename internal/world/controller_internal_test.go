package world

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftyard/simcore/internal/core/ecs"
)

func TestCreateFailsOnceSerialsRunOut(t *testing.T) {
	c := newTestController(t)
	c.seq = ecs.NewSequenceFrom(math.MaxUint32 - 1)

	h, err := c.Create(KindShip, Spawn{})
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), h.Serial())

	_, err = c.Create(KindShip, Spawn{})
	assert.ErrorIs(t, err, ErrSerialsExhausted)
	_, err = c.Register(NewEntity(KindDebris, Spawn{}))
	assert.ErrorIs(t, err, ErrSerialsExhausted)

	assert.Equal(t, 1, c.Count())
	assert.Equal(t, uint64(2), c.Stats().Rejected)
	e, ok := c.Get(h)
	require.True(t, ok, "the last serial still resolves")
	assert.Equal(t, KindShip, e.Kind())
}
