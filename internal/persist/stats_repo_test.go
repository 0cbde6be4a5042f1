package persist_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/driftyard/simcore/internal/config"
	"github.com/driftyard/simcore/internal/persist"
	"github.com/driftyard/simcore/internal/world"
)

func openMemory(t *testing.T) *persist.DB {
	t.Helper()
	ctx := context.Background()
	db, err := persist.Open(ctx, config.TelemetryConfig{Driver: persist.DriverSQLite, DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persist.RunMigrations(ctx, db))
	return db
}

func sampleStats(tick uint64) world.Stats {
	return world.Stats{
		Tick:            tick,
		Live:            3,
		MintedIDs:       5,
		LiveByKind:      map[world.Kind]int{world.KindShip: 1, world.KindDebris: 2},
		PoolSizes:       map[world.Kind]int{world.KindProjectile: 2},
		TierSizes:       map[world.Tier]int{world.TierHigh: 1, world.TierNormal: 2},
		TierInvocations: map[world.Tier]uint64{world.TierHigh: 30},
		GridCells:       2,
		PendingQueries:  1,
		Created:         5,
		Destroyed:       2,
		Overruns:        1,
		AvgTick:         250 * time.Microsecond,
		MaxTick:         3 * time.Millisecond,
	}
}

func TestStatsRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := persist.NewStatsRepo(openMemory(t))

	runID, err := repo.StartRun(ctx, persist.RunInfo{
		Name: "test", Started: time.Now(), MaxEntities: 64, BaseRate: 60, CellSize: 100, Rebucket: "eager",
	})
	require.NoError(t, err)
	assert.Positive(t, runID)

	latest, err := repo.Latest(ctx, runID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.SaveSnapshot(ctx, runID, sampleStats(60)))
	require.NoError(t, repo.SaveSnapshot(ctx, runID, sampleStats(120)))

	n, err := repo.CountSnapshots(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	latest, err = repo.Latest(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint64(120), latest.Tick)
	assert.Equal(t, 3, latest.Live)
	assert.Equal(t, uint32(5), latest.Minted)
	assert.Equal(t, 2, latest.PoolTotal)
	assert.Equal(t, uint64(2), latest.Destroyed)
	assert.Equal(t, 250*time.Microsecond, latest.AvgTick)
	assert.Equal(t, 3*time.Millisecond, latest.MaxTick)
	assert.Equal(t, map[string]int{"ship": 1, "debris": 2}, latest.Breakdown.Live)
	assert.Equal(t, map[string]int{"high": 1, "normal": 2}, latest.Breakdown.Tiers)
	assert.Equal(t, uint64(30), latest.Breakdown.Invocations["high"])
}

func TestSnapshotRequiresRun(t *testing.T) {
	repo := persist.NewStatsRepo(openMemory(t))
	err := repo.SaveSnapshot(context.Background(), 999, sampleStats(1))
	assert.Error(t, err, "foreign key to telemetry_runs")
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openMemory(t)
	assert.NoError(t, persist.RunMigrations(context.Background(), db))
}

func TestStoreLogsSetup(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.Background()
	db, err := persist.Open(ctx, config.TelemetryConfig{Driver: persist.DriverSQLite, DSN: ":memory:"}, zap.New(core))
	require.NoError(t, err)
	require.NoError(t, persist.RunMigrations(ctx, db))
	db.Close()

	connected := logs.FilterMessage("telemetry store connected").All()
	require.Len(t, connected, 1)
	fields := connected[0].ContextMap()
	assert.Equal(t, persist.DriverSQLite, fields["driver"])
	assert.Len(t, fields["pragmas"], 2)

	applied := logs.FilterMessage("migrations applied").All()
	require.Len(t, applied, 1)
	assert.Equal(t, "sqlite3", applied[0].ContextMap()["dialect"])
	assert.Equal(t, 1, logs.FilterMessage("telemetry store closed").Len())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := persist.Open(context.Background(), config.TelemetryConfig{Driver: "mysql"}, zap.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestBreakdownEncoding(t *testing.T) {
	b := persist.NewBreakdown(sampleStats(1))
	raw, err := persist.EncodeBreakdown(b)
	require.NoError(t, err)
	got, err := persist.DecodeBreakdown(raw)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = persist.DecodeBreakdown([]byte{0xc1})
	assert.Error(t, err)
}
