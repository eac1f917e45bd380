// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite?
// It's a pure-Go translation of SQLite — no CGo, no C compiler, trivial
// cross-compilation. The driver registers itself with database/sql under the
// name "sqlite" via the blank import below.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out per-entity repositories.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// problem surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets concurrent reads proceed while a write is in progress —
	// needed for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Reports, vitals, and shares
	// all reference users; shares also reference reports.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer Close() after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user repository backed by this connection.
func (db *DB) Users() *UserDB { return &UserDB{db: db} }

// Reports returns the report repository backed by this connection.
func (db *DB) Reports() *ReportDB { return &ReportDB{db: db} }

// Shares returns the share repository backed by this connection.
func (db *DB) Shares() *ShareDB { return &ShareDB{db: db} }

// Vitals returns the vitals repository backed by this connection.
func (db *DB) Vitals() *VitalsDB { return &VitalsDB{db: db} }

// migrate creates all tables. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id         TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			type       TEXT NOT NULL,
			date       TEXT NOT NULL,
			vitals     TEXT NOT NULL DEFAULT '',
			owner_id   TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reports_owner_date ON reports(owner_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating reports table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS vitals (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			date       TEXT NOT NULL,
			systolic   INTEGER NOT NULL,
			diastolic  INTEGER NOT NULL,
			heart_rate INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_vitals_user_date ON vitals(user_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating vitals table: %w", err)
	}

	// UNIQUE(report_id, viewer_username) is the duplicate-share guard:
	// re-sharing the same report with the same viewer is a conflict.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS shares (
			id              TEXT PRIMARY KEY,
			report_id       TEXT NOT NULL REFERENCES reports(id),
			owner_id        TEXT NOT NULL REFERENCES users(id),
			viewer_username TEXT NOT NULL,
			role            TEXT NOT NULL DEFAULT 'viewer',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(report_id, viewer_username)
		);
		CREATE INDEX IF NOT EXISTS idx_shares_viewer ON shares(viewer_username);
	`)
	if err != nil {
		return fmt.Errorf("creating shares table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite surfaces these as plain errors carrying the
// constraint name in the message, so string matching is the available check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
