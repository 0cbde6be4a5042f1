package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// RunMigrations applies all pending migrations for db's driver.
func RunMigrations(ctx context.Context, db *DB) error {
	dialect, dir := "postgres", "migrations/postgres"
	if db.Driver == DriverSQLite {
		dialect, dir = "sqlite3", "migrations/sqlite"
	}

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.SQL, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db.SQL)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	db.log.Info("migrations applied", zap.String("dialect", dialect), zap.Int64("version", version))

	return nil
}
