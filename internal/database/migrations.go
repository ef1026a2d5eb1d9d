package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// schemaVersionSQL is applied before any migration so the current version can be read
const schemaVersionSQL = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`

// migrations are written in the SQL subset shared by sqlite and postgres.
// Each entry holds a single statement.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_ranking_runs_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS ranking_runs (
				id TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				config TEXT NOT NULL,
				top_n INTEGER NOT NULL,
				report TEXT,
				error TEXT,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`,
	},
	{
		Version: 2,
		Name:    "index_ranking_runs_created_at",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_ranking_runs_created_at ON ranking_runs(created_at)`,
	},
	{
		Version: 3,
		Name:    "create_ranked_clips_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS ranked_clips (
				run_id TEXT NOT NULL,
				rank INTEGER NOT NULL,
				start_sec DOUBLE PRECISION NOT NULL,
				end_sec DOUBLE PRECISION NOT NULL,
				score DOUBLE PRECISION NOT NULL,
				text TEXT NOT NULL,
				candidate TEXT NOT NULL,
				PRIMARY KEY (run_id, rank)
			)`,
	},
	{
		Version: 4,
		Name:    "index_ranking_runs_status",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_ranking_runs_status ON ranking_runs(status)`,
	},
}

// Migrate runs all pending migrations
func (db *DB) Migrate(ctx context.Context) error {
	logger := slog.Default().With("component", "database", "driver", db.driver)

	if _, err := db.conn.ExecContext(ctx, schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	logger.Debug("current schema version", "version", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		query, args, err := db.sb.Insert("schema_version").
			Columns("version", "applied_at").
			Values(migration.Version, time.Now().UnixNano()).
			ToSql()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to build version insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		logger.Info("applied migration", "version", migration.Version, "name", migration.Name)
	}

	return nil
}

// SchemaVersion returns the highest applied migration version
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
