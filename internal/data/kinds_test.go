package data_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftyard/simcore/internal/data"
	"github.com/driftyard/simcore/internal/world"
)

const sample = `
kinds:
  - name: ship
    prewarm: 4
    sensor: 300
  - name: Projectile
    tier: realtime
    ttl: 1.5
  - name: debris
    tier: idle
`

func TestParseKindTable(t *testing.T) {
	tbl, err := data.ParseKindTable([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Count())

	ship := tbl.Get(world.KindShip)
	require.NotNil(t, ship)
	assert.Equal(t, 4, ship.Prewarm)
	assert.Equal(t, 300.0, ship.Sensor)
	assert.Equal(t, world.TierAuto, ship.TierOverride())

	proj := tbl.Get(world.KindProjectile)
	require.NotNil(t, proj)
	assert.Equal(t, world.KindProjectile, proj.Kind())
	assert.Equal(t, world.TierRealtime, proj.TierOverride())
	assert.Nil(t, tbl.Get(world.KindStation))

	var order []world.Kind
	tbl.Each(func(d *data.KindDef) { order = append(order, d.Kind()) })
	assert.Equal(t, []world.Kind{world.KindShip, world.KindProjectile, world.KindDebris}, order)
}

func TestParseKindTableErrors(t *testing.T) {
	cases := map[string]string{
		"unknown kind": "kinds:\n  - name: blimp\n",
		"duplicate":    "kinds:\n  - name: ship\n  - name: ship\n",
		"bad tier":     "kinds:\n  - name: ship\n    tier: sometimes\n",
		"neg prewarm":  "kinds:\n  - name: ship\n    prewarm: -1\n",
		"malformed":    "kinds: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := data.ParseKindTable([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestKindTableTierPolicy(t *testing.T) {
	tbl, err := data.ParseKindTable([]byte(sample))
	require.NoError(t, err)
	policy := tbl.TierPolicy(nil)

	assert.Equal(t, world.TierIdle, policy.AssignTier(world.NewEntity(world.KindDebris, world.Spawn{})))
	assert.Equal(t, world.TierHigh, policy.AssignTier(world.NewEntity(world.KindShip, world.Spawn{})), "falls back when no override")
	assert.Equal(t, world.TierRealtime, policy.AssignTier(world.NewEntity(world.KindDebris, world.Spawn{Player: true})))
}

func TestLoadKindTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	tbl, err := data.LoadKindTable(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Count())

	_, err = data.LoadKindTable(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestShippedKindTable(t *testing.T) {
	tbl, err := data.LoadKindTable(filepath.Join("..", "..", "data", "yaml", "kinds.yaml"))
	require.NoError(t, err)
	assert.Equal(t, len(world.Kinds()), tbl.Count(), "every kind is classified")
}
