// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runstore persists run metadata and an append-only journal of
// lifecycle transitions in SQLite.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runq-org/runq/internal/dispatch"
	"github.com/runq-org/runq/internal/paths"
	"github.com/runq-org/runq/internal/types"
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"

	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
	defaultSynchronous = "FULL"
)

// ErrNotFound is returned when no run exists for the requested id.
var ErrNotFound = errors.New("runstore: run not found")

// Run is the persisted metadata for a run.
type Run struct {
	ID        string           `json:"id"`
	Mode      string           `json:"mode"`
	Name      string           `json:"name"`
	Status    types.RunStatus  `json:"status"`
	JobID     int64            `json:"job_id"`
	LogPath   string           `json:"log_path,omitempty"`
	ExitCode  *int             `json:"exit_code,omitempty"`
	Request   types.RunRequest `json:"request"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// JournalEntry is one persisted lifecycle transition.
type JournalEntry struct {
	Seq        int64           `json:"seq"`
	RunID      string          `json:"run_id"`
	Transition types.RunStatus `json:"transition"`
	JobID      int64           `json:"job_id"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Store wraps the SQLite connection used for run persistence.
type Store struct {
	db    *sql.DB
	nowFn func() time.Time
}

// Open initialises the store under dataDir (the platform data dir when
// empty) with required pragmas and schema.
func Open(ctx context.Context, dataDir string) (*Store, error) {
	dir := dataDir
	if dir == "" {
		dir = paths.DataDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "runq.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", filepath.ToSlash(dbPath), int(defaultBusyTimeout/time.Millisecond))

	conn, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := configureConnection(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := applyMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Store{db: conn, nowFn: func() time.Time { return time.Now().UTC() }}, nil
}

// Close shuts down the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func configureConnection(ctx context.Context, conn *sql.DB) error {
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	statements := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s;", defaultJournalMode),
		fmt.Sprintf("PRAGMA synchronous=%s;", defaultSynchronous),
		"PRAGMA foreign_keys=ON;",
	}
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute pragma %q: %w", stmt, err)
		}
	}
	return nil
}

// Create inserts a freshly dispatched run. Implements dispatch.Recorder.
func (s *Store) Create(ctx context.Context, run *dispatch.Run) error {
	payload, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	now := s.nowFn().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, name, status, job_id, log_path, request, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, '', ?, ?, ?)`,
		run.ID, run.Request.Mode, run.Request.Name, string(types.StatusPending), payload, now, now)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return s.appendJournal(ctx, run.ID, types.StatusPending, 0)
}

// Transition updates the run row and journals the state change. Implements
// dispatch.Recorder.
func (s *Store) Transition(ctx context.Context, run *dispatch.Run, status types.RunStatus) error {
	now := s.nowFn().Unix()
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, job_id = ?, log_path = ?, updated_at = ? WHERE id = ?`,
		string(status), run.JobID, run.LogPath, now, run.ID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	return s.appendJournal(ctx, run.ID, status, run.JobID)
}

// Finish records the terminal state and exit code. Implements
// dispatch.Recorder.
func (s *Store) Finish(ctx context.Context, run *dispatch.Run, status types.RunStatus, result types.RunResult) error {
	now := s.nowFn().Unix()
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, job_id = ?, log_path = ?, exit_code = ?, updated_at = ? WHERE id = ?`,
		string(status), result.JobID, result.LogPath, result.ExitCode, now, run.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return s.appendJournal(ctx, run.ID, status, result.JobID)
}

func (s *Store) appendJournal(ctx context.Context, runID string, transition types.RunStatus, jobID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_journal (run_id, transition, job_id, ts) VALUES (?, ?, ?, ?)`,
		runID, string(transition), jobID, s.nowFn().UnixNano())
	if err != nil {
		return fmt.Errorf("journal append %s: %w", runID, err)
	}
	return nil
}

// Get retrieves a run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, name, status, job_id, log_path, exit_code, request, created_at, updated_at
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// List returns all runs, newest first.
func (s *Store) List(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, name, status, job_id, log_path, exit_code, request, created_at, updated_at
		 FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Journal returns the transitions for a run in append order.
func (s *Store) Journal(ctx context.Context, runID string) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, run_id, transition, job_id, ts FROM run_journal WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal read %s: %w", runID, err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var transition string
		var ts int64
		if err := rows.Scan(&entry.Seq, &entry.RunID, &transition, &entry.JobID, &ts); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		entry.Transition = types.RunStatus(transition)
		entry.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var status string
	var exitCode sql.NullInt64
	var payload []byte
	var createdAt, updatedAt int64
	err := row.Scan(&run.ID, &run.Mode, &run.Name, &status, &run.JobID, &run.LogPath,
		&exitCode, &payload, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run row: %w", err)
	}
	run.Status = types.RunStatus(status)
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	if err := json.Unmarshal(payload, &run.Request); err != nil {
		return Run{}, fmt.Errorf("decode request for %s: %w", run.ID, err)
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return run, nil
}
