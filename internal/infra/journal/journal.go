// Package journal persists a local audit trail of scan and commit
// activity in SQLite. The journal is a client-side troubleshooting
// record only; inventory quantities live behind the remote service.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/partflow-io/partflow/internal/domain"
)

// DB wraps the journal database handle.
type DB struct {
	db *sql.DB
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Every framed token, admitted or suppressed
		`CREATE TABLE IF NOT EXISTS scan_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			raw         TEXT NOT NULL,
			captured_at TEXT NOT NULL,
			admitted    INTEGER NOT NULL DEFAULT 1,
			workflow    TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_raw ON scan_events(raw)`,

		// How each admitted token was dispositioned
		`CREATE TABLE IF NOT EXISTS resolutions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			raw          TEXT NOT NULL,
			disposition  TEXT NOT NULL, -- catalog | manual | cancelled
			line_key     TEXT,
			display_name TEXT,
			quantity     INTEGER,
			recorded_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Per-line commit outcomes, correlated by batch id
		`CREATE TABLE IF NOT EXISTS commit_lines (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id    TEXT NOT NULL,
			line_key    TEXT NOT NULL,
			outcome     TEXT NOT NULL, -- committed | failed
			error       TEXT,
			workflow    TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commit_lines_batch ON commit_lines(batch_id)`,
	}
}

// Open opens (creating if needed) the journal at path and applies
// migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// The journal has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error { return d.db.Close() }

// ─── Write Operations ───────────────────────────────────────────────────────

// RecordScan stores one framed token and whether the debouncer admitted it.
func (d *DB) RecordScan(token domain.ScanToken, admitted bool, workflow domain.Workflow) error {
	admittedInt := 0
	if admitted {
		admittedInt = 1
	}
	_, err := d.db.Exec(`
		INSERT INTO scan_events (raw, captured_at, admitted, workflow)
		VALUES (?, ?, ?, ?)
	`, token.Raw, token.CapturedAt.UTC().Format(time.RFC3339Nano), admittedInt, string(workflow))
	return err
}

// RecordResolution stores how a token left the resolver. line is nil for
// a cancellation.
func (d *DB) RecordResolution(token domain.ScanToken, disposition string, line *domain.CartLine) error {
	var key, name sql.NullString
	var qty sql.NullInt64
	if line != nil {
		key = sql.NullString{String: line.Key, Valid: true}
		name = sql.NullString{String: line.DisplayName, Valid: true}
		qty = sql.NullInt64{Int64: int64(line.Quantity), Valid: true}
	}
	_, err := d.db.Exec(`
		INSERT INTO resolutions (raw, disposition, line_key, display_name, quantity)
		VALUES (?, ?, ?, ?, ?)
	`, token.Raw, disposition, key, name, qty)
	return err
}

// RecordCommitLine stores one line's commit outcome.
func (d *DB) RecordCommitLine(batchID string, outcome domain.LineOutcome, workflow domain.Workflow) error {
	var errText sql.NullString
	if outcome.Error != "" {
		errText = sql.NullString{String: outcome.Error, Valid: true}
	}
	_, err := d.db.Exec(`
		INSERT INTO commit_lines (batch_id, line_key, outcome, error, workflow)
		VALUES (?, ?, ?, ?, ?)
	`, batchID, outcome.Key, string(outcome.Outcome), errText, string(workflow))
	return err
}

// ─── Read Operations ────────────────────────────────────────────────────────

// ScanEvent is one journaled token.
type ScanEvent struct {
	Raw        string
	CapturedAt time.Time
	Admitted   bool
	Workflow   domain.Workflow
}

// RecentScans returns the newest scan events, most recent first.
func (d *DB) RecentScans(limit int) ([]ScanEvent, error) {
	rows, err := d.db.Query(`
		SELECT raw, captured_at, admitted, workflow
		FROM scan_events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanEvent
	for rows.Next() {
		var ev ScanEvent
		var capturedAt string
		var admittedInt int
		var workflow string
		if err := rows.Scan(&ev.Raw, &capturedAt, &admittedInt, &workflow); err != nil {
			return nil, err
		}
		ev.CapturedAt, _ = time.Parse(time.RFC3339Nano, capturedAt)
		ev.Admitted = admittedInt == 1
		ev.Workflow = domain.Workflow(workflow)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// BatchOutcomes returns the per-line outcomes for one commit batch in
// insertion order.
func (d *DB) BatchOutcomes(batchID string) ([]domain.LineOutcome, error) {
	rows, err := d.db.Query(`
		SELECT line_key, outcome, COALESCE(error, '')
		FROM commit_lines WHERE batch_id = ? ORDER BY id
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LineOutcome
	for rows.Next() {
		var lo domain.LineOutcome
		var outcome string
		if err := rows.Scan(&lo.Key, &outcome, &lo.Error); err != nil {
			return nil, err
		}
		lo.Outcome = domain.OutcomeStatus(outcome)
		out = append(out, lo)
	}
	return out, rows.Err()
}
