package ecs_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftyard/simcore/internal/core/ecs"
)

func TestEntityIDPacking(t *testing.T) {
	id := ecs.NewEntityID(42, 7)
	assert.Equal(t, uint32(42), id.Serial())
	assert.Equal(t, uint32(7), id.Generation())
	assert.False(t, id.IsZero())
	assert.True(t, ecs.EntityID(0).IsZero())

	// same serial, different generation
	assert.NotEqual(t, id, ecs.NewEntityID(42, 8))
}

func TestSequenceStrictlyIncreasing(t *testing.T) {
	seq := ecs.NewSequence()
	assert.Equal(t, uint32(0), seq.Last())

	prev := uint32(0)
	for i := 0; i < 1000; i++ {
		n, ok := seq.Next()
		require.True(t, ok)
		require.Greater(t, n, prev)
		prev = n
	}
	assert.Equal(t, uint32(1000), seq.Last())
}

func TestSequenceSaturates(t *testing.T) {
	seq := ecs.NewSequenceFrom(math.MaxUint32 - 1)
	assert.False(t, seq.Exhausted())

	n, ok := seq.Next()
	require.True(t, ok)
	assert.Equal(t, uint32(math.MaxUint32), n)
	assert.True(t, seq.Exhausted())

	n, ok = seq.Next()
	assert.False(t, ok, "never wraps back to the reserved serial")
	assert.Zero(t, n)
	assert.Equal(t, uint32(math.MaxUint32), seq.Last())
}

type thing struct{ n int }

func TestSet(t *testing.T) {
	s := ecs.NewSet[thing](4)
	a, b := &thing{1}, &thing{2}
	s.Put(1, a)
	s.Put(2, b)

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.True(t, s.Has(2))
	assert.Equal(t, 2, s.Len())

	sum := 0
	s.Each(func(_ uint32, v *thing) { sum += v.n })
	assert.Equal(t, 3, sum)
	assert.ElementsMatch(t, []*thing{a, b}, s.AppendTo(nil))

	s.Remove(1)
	assert.False(t, s.Has(1))
	assert.Equal(t, 1, s.Len())
}

func TestDestroyQueueDedupAndOrder(t *testing.T) {
	q := ecs.NewDestroyQueue()
	a, b := ecs.NewEntityID(1, 0), ecs.NewEntityID(2, 0)
	q.Mark(a)
	q.Mark(b)
	q.Mark(a)
	assert.Equal(t, 2, q.Len())

	var got []ecs.EntityID
	n := q.Flush(func(id ecs.EntityID) { got = append(got, id) })
	assert.Equal(t, 2, n)
	assert.Equal(t, []ecs.EntityID{a, b}, got)
	assert.Equal(t, 0, q.Len())

	// a handle can be marked again after its flush
	q.Mark(a)
	assert.Equal(t, 1, q.Len())
}

func TestDestroyQueueFlushesMarksMadeDuringFlush(t *testing.T) {
	q := ecs.NewDestroyQueue()
	first, second := ecs.NewEntityID(1, 0), ecs.NewEntityID(2, 0)
	q.Mark(first)

	var got []ecs.EntityID
	n := q.Flush(func(id ecs.EntityID) {
		got = append(got, id)
		if id == first {
			q.Mark(second)
		}
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, []ecs.EntityID{first, second}, got)
	assert.Equal(t, 0, q.Len())
}
