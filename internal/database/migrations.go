package database

import (
	"context"
	"strconv"

	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// migrations are applied in order; user_version tracks the last applied index.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS knowledge_items (
		namespace  TEXT NOT NULL,
		account_id TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, account_id, key)
	)`,
	`CREATE TABLE IF NOT EXISTS checkpoints (
		thread_id  TEXT PRIMARY KEY,
		graph_kind TEXT NOT NULL,
		status     TEXT NOT NULL,
		state      TEXT NOT NULL,
		next_nodes TEXT NOT NULL,
		payload    TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS deferred_jobs (
		id         TEXT PRIMARY KEY,
		thread_id  TEXT NOT NULL,
		decision   TEXT NOT NULL,
		run_at     TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deferred_jobs_run_at ON deferred_jobs(run_at)`,
}

// migrate applies all pending migrations inside the open connection.
func (db *DB) migrate(ctx context.Context) error {
	var version int
	if err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return types.WrapError(types.DB_MIGRATION_FAILED, "failed to read schema version", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := db.conn.ExecContext(ctx, migrations[i]); err != nil {
			return types.WrapError(types.DB_MIGRATION_FAILED, "migration failed", err)
		}
	}

	if version < len(migrations) {
		// PRAGMA does not accept bind parameters.
		stmt := "PRAGMA user_version = " + strconv.Itoa(len(migrations))
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return types.WrapError(types.DB_MIGRATION_FAILED, "failed to set schema version", err)
		}
	}

	return nil
}
