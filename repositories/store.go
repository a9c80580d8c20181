// Package repositories provides the SQLite-backed persistence gateway for
// the tasks service.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repository methods can
// run standalone or join the transaction of a larger mutation.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides access to the tasks database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at the given path and runs
// migrations.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// WAL for concurrent readers, foreign_keys for the cascade rules the
	// schema relies on.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports a single writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the raw handle for read paths that need no transaction.
func (s *Store) DB() DBTX {
	return s.db
}

// WithTx runs fn inside a single transaction. If fn returns an error the
// transaction is rolled back and the error returned unchanged, so sentinel
// errors survive for the handlers.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		email           TEXT NOT NULL UNIQUE,
		username        TEXT NOT NULL UNIQUE,
		full_name       TEXT NOT NULL DEFAULT '',
		hashed_password TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'member',
		is_active       INTEGER NOT NULL DEFAULT 1,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'todo',
		priority        TEXT NOT NULL DEFAULT 'medium',
		due_date        TEXT,
		creator_id      INTEGER NOT NULL REFERENCES users(id),
		parent_task_id  INTEGER REFERENCES tasks(id) ON DELETE SET NULL,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL,
		completed_at    DATETIME
	);

	CREATE TABLE IF NOT EXISTS task_assignees (
		task_id  INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id  INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS tags (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		created_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_tags (
		task_id  INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		tag_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		blocking_task_id  INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		blocked_task_id   INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		created_at        DATETIME NOT NULL,
		UNIQUE (blocking_task_id, blocked_task_id)
	);

	CREATE TABLE IF NOT EXISTS task_history (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id     INTEGER NOT NULL REFERENCES users(id),
		action      TEXT NOT NULL,
		field_name  TEXT,
		old_value   TEXT,
		new_value   TEXT,
		timestamp   DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_status_priority ON tasks(status, priority);
	CREATE INDEX IF NOT EXISTS idx_task_creator_status ON tasks(creator_id, status);
	CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
	CREATE INDEX IF NOT EXISTS idx_task_assignees_user ON task_assignees(user_id);
	CREATE INDEX IF NOT EXISTS idx_blocking_task ON task_dependencies(blocking_task_id);
	CREATE INDEX IF NOT EXISTS idx_blocked_task ON task_dependencies(blocked_task_id);
	CREATE INDEX IF NOT EXISTS idx_task_history_task_time ON task_history(task_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_task_history_user_time ON task_history(user_id, timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}
