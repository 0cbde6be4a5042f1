package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftyard/simcore/internal/world"
)

// RunInfo describes one simulation session.
type RunInfo struct {
	Name        string
	Started     time.Time
	MaxEntities int
	BaseRate    int
	CellSize    float64
	Rebucket    string
}

// SnapshotRow is one persisted statistics sample.
type SnapshotRow struct {
	RunID          int64
	Tick           uint64
	Live           int
	Minted         uint32
	PoolTotal      int
	GridCells      int
	PendingQueries int
	Created        uint64
	Destroyed      uint64
	Rejected       uint64
	Overruns       uint64
	AvgTick        time.Duration
	MaxTick        time.Duration
	Breakdown      Breakdown
	Recorded       time.Time
}

// StatsRepo writes the statistics surface to the telemetry store.
type StatsRepo struct {
	db  *DB
	now func() time.Time
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db, now: time.Now}
}

// StartRun records a session and returns its id.
func (r *StatsRepo) StartRun(ctx context.Context, info RunInfo) (int64, error) {
	var id int64
	err := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO telemetry_runs (name, started_unix, max_entities, base_rate, cell_size, rebucket)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		info.Name, info.Started.Unix(), info.MaxEntities, info.BaseRate, info.CellSize, info.Rebucket,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// SaveSnapshot persists st under runID.
func (r *StatsRepo) SaveSnapshot(ctx context.Context, runID int64, st world.Stats) error {
	blob, err := EncodeBreakdown(NewBreakdown(st))
	if err != nil {
		return err
	}
	poolTotal := 0
	for _, n := range st.PoolSizes {
		poolTotal += n
	}
	_, err = r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO telemetry_snapshots (run_id, tick, live, minted, pool_total, grid_cells, pending_queries,
		     created, destroyed, rejected, overruns, avg_tick_us, max_tick_us, breakdown, recorded_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		runID, int64(st.Tick), st.Live, int64(st.MintedIDs), poolTotal, st.GridCells, st.PendingQueries,
		int64(st.Created), int64(st.Destroyed), int64(st.Rejected), int64(st.Overruns),
		st.AvgTick.Microseconds(), st.MaxTick.Microseconds(), blob, r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot tick %d: %w", st.Tick, err)
	}
	return nil
}

// Latest returns the most recent snapshot of runID, or nil if there is none.
func (r *StatsRepo) Latest(ctx context.Context, runID int64) (*SnapshotRow, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT tick, live, minted, pool_total, grid_cells, pending_queries,
		        created, destroyed, rejected, overruns, avg_tick_us, max_tick_us, breakdown, recorded_unix
		 FROM telemetry_snapshots WHERE run_id = ? ORDER BY tick DESC, id DESC LIMIT 1`), runID)

	var (
		tick, minted, created, destroyed, rejected, overruns int64
		avgUS, maxUS, recorded                               int64
		blob                                                 []byte
	)
	s := SnapshotRow{RunID: runID}
	err := row.Scan(&tick, &s.Live, &minted, &s.PoolTotal, &s.GridCells, &s.PendingQueries,
		&created, &destroyed, &rejected, &overruns, &avgUS, &maxUS, &blob, &recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	if s.Breakdown, err = DecodeBreakdown(blob); err != nil {
		return nil, err
	}
	s.Tick = uint64(tick)
	s.Minted = uint32(minted)
	s.Created = uint64(created)
	s.Destroyed = uint64(destroyed)
	s.Rejected = uint64(rejected)
	s.Overruns = uint64(overruns)
	s.AvgTick = time.Duration(avgUS) * time.Microsecond
	s.MaxTick = time.Duration(maxUS) * time.Microsecond
	s.Recorded = time.Unix(recorded, 0)
	return &s, nil
}

// CountSnapshots returns how many snapshots runID has.
func (r *StatsRepo) CountSnapshots(ctx context.Context, runID int64) (int, error) {
	var n int
	err := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT COUNT(*) FROM telemetry_snapshots WHERE run_id = ?`), runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
