// Package sqlite provides SQLite-based persistent storage for studyquest.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements domain.StatsStore.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/studyquest.db.
// Enables WAL mode and a 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "studyquest.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// One aggregate row per account. Lists and maps are JSON columns;
		// extras carries the session-history aggregates.
		`CREATE TABLE IF NOT EXISTS user_stats (
			account_id       TEXT PRIMARY KEY,
			xp               INTEGER NOT NULL DEFAULT 0,
			level            INTEGER NOT NULL DEFAULT 1,
			prestige_level   INTEGER NOT NULL DEFAULT 0,
			title            TEXT NOT NULL DEFAULT '',
			total_sessions   INTEGER NOT NULL DEFAULT 0,
			total_study_time REAL NOT NULL DEFAULT 0,
			total_xp_earned  INTEGER NOT NULL DEFAULT 0,
			weekly_xp        INTEGER NOT NULL DEFAULT 0,
			current_streak   INTEGER NOT NULL DEFAULT 0,
			longest_streak   INTEGER NOT NULL DEFAULT 0,
			last_study_date  TEXT,
			streak_savers    INTEGER NOT NULL DEFAULT 0,
			subject_mastery  TEXT NOT NULL DEFAULT '{}',
			achievements     TEXT NOT NULL DEFAULT '[]',
			daily_quests     TEXT NOT NULL DEFAULT '[]',
			weekly_quests    TEXT NOT NULL DEFAULT '[]',
			extras           TEXT NOT NULL DEFAULT '{}',
			updated_at       INTEGER NOT NULL
		)`,

		// Append-only session log.
		`CREATE TABLE IF NOT EXISTS session_log (
			id               TEXT PRIMARY KEY,
			account_id       TEXT NOT NULL,
			subject          TEXT NOT NULL,
			duration_minutes REAL NOT NULL,
			difficulty       TEXT NOT NULL DEFAULT '',
			mood             TEXT NOT NULL DEFAULT '',
			started_at       TEXT NOT NULL,
			xp_earned        INTEGER NOT NULL,
			bonuses          TEXT NOT NULL DEFAULT '{}',
			created_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_account ON session_log(account_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
