// Package sqlite persists audit runs, their issues and the LLM token ledger.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id                   TEXT PRIMARY KEY,
		presentation         TEXT NOT NULL,
		source_path          TEXT DEFAULT '',
		slides               INTEGER NOT NULL DEFAULT 0,
		total_issues         INTEGER NOT NULL DEFAULT 0,
		fail_count           INTEGER NOT NULL DEFAULT 0,
		warning_count        INTEGER NOT NULL DEFAULT 0,
		manual_reviews       INTEGER NOT NULL DEFAULT 0,
		compliance_rate      REAL NOT NULL DEFAULT 0,
		wcag_compliance_rate REAL NOT NULL DEFAULT 0,
		planned_minutes      REAL NOT NULL DEFAULT 0,
		projected_minutes    REAL NOT NULL DEFAULT 0,
		report_dir           TEXT DEFAULT '',
		created_at           DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_presentation ON runs(presentation);

	CREATE TABLE IF NOT EXISTS issues (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL,
		slide         INTEGER NOT NULL,
		check_name    TEXT NOT NULL,
		shape_name    TEXT DEFAULT '',
		severity      TEXT NOT NULL,
		details       TEXT DEFAULT '',
		ratio         REAL DEFAULT 0,
		foreground    TEXT DEFAULT '',
		background    TEXT DEFAULT '',
		suggested_fix TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id);

	CREATE TABLE IF NOT EXISTS token_ledger (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id                TEXT DEFAULT '',
		agent                 TEXT NOT NULL,
		provider              TEXT NOT NULL,
		model                 TEXT NOT NULL,
		input_tokens          INTEGER NOT NULL DEFAULT 0,
		output_tokens         INTEGER NOT NULL DEFAULT 0,
		cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
		cache_read_tokens     INTEGER NOT NULL DEFAULT 0,
		latency_ms            INTEGER NOT NULL DEFAULT 0,
		status                TEXT NOT NULL,
		error                 TEXT DEFAULT '',
		called_at             DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_called_at ON token_ledger(called_at);

	CREATE TABLE IF NOT EXISTS digests (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		runs    INTEGER NOT NULL DEFAULT 0,
		sent_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}
