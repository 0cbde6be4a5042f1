package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/driftyard/simcore/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB is the telemetry store handle. Repos go through SQL; Pool is set only for
// the postgres driver.
type DB struct {
	SQL    *sql.DB
	Pool   *pgxpool.Pool
	Driver string
	log    *zap.Logger
}

// Open connects to the configured telemetry backend.
func Open(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Driver {
	case DriverPostgres:
		return NewDB(ctx, cfg, log)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN, log)
	}
	return nil, fmt.Errorf("%w: telemetry driver %q", config.ErrInvalid, cfg.Driver)
}

// NewDB connects a pgx pool and exposes it through database/sql.
func NewDB(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	log.Info("telemetry store connected",
		zap.String("driver", DriverPostgres),
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
		zap.Duration("conn_max_lifetime", poolCfg.MaxConnLifetime))
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Driver: DriverPostgres, log: log}, nil
}

// OpenSQLite opens (or creates) a SQLite telemetry database. SQLite has a
// single writer, so the handle is capped at one connection; this also keeps
// ":memory:" databases alive across statements.
func OpenSQLite(ctx context.Context, dsn string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	log.Info("telemetry store connected",
		zap.String("driver", DriverSQLite),
		zap.String("dsn", dsn),
		zap.Strings("pragmas", pragmas))
	return &DB{SQL: conn, Driver: DriverSQLite, log: log}, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) Close() {
	if err := db.SQL.Close(); err != nil {
		db.log.Warn("telemetry store close", zap.Error(err))
	}
	db.log.Debug("telemetry store closed", zap.String("driver", db.Driver))
	if db.Pool != nil {
		db.Pool.Close()
	}
}
