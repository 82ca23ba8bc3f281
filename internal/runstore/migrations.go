// SPDX-License-Identifier: AGPL-3.0-or-later

package runstore

import (
	"context"
	"database/sql"
	"fmt"
)

var baseMigrations = [...]string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		job_id INTEGER NOT NULL,
		log_path TEXT NOT NULL,
		exit_code INTEGER,
		request BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);`,
	`CREATE TABLE IF NOT EXISTS run_journal (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		transition TEXT NOT NULL,
		job_id INTEGER NOT NULL,
		ts INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_run_journal_run_ts ON run_journal(run_id, ts);`,
}

func applyMigrations(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range baseMigrations {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
