// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit keeps a local append-only trail of security-relevant
// client events. The trail records that something happened, never the
// sensitive payload: no plaintext record content, no tokens, no codes.
package audit

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is an audit event kind.
type Event string

const (
	EventBootstrap    Event = "session.bootstrap"
	EventLogin        Event = "session.login"
	EventLogout       Event = "session.logout"
	EventOTPFailed    Event = "otp.failed"
	EventOTPExpired   Event = "otp.expired"
	EventDecrypt      Event = "record.decrypt"
	EventDecryptError Event = "record.decrypt_error"
	EventCreateRecord Event = "record.create"
	EventUnlockUser   Event = "user.unlock"
)

// Entry is one row of the trail as read back.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Event     Event
	Actor     string // username, may be empty before login completes
	Subject   string // record id, user id; never content
	Detail    string // short free text, e.g. "signature=invalid"
}

// =============================================================================
// TRAIL
// =============================================================================

// Trail is the SQLite-backed audit log. Logging is best effort: a
// write failure is remembered for diagnostics but never surfaced to
// the calling flow, and a nil *Trail drops events silently, so callers
// log unconditionally.
type Trail struct {
	db *sql.DB

	mu      sync.Mutex
	lastErr error
}

// Open creates or opens the trail database at path.
func Open(path string) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		ts        INTEGER NOT NULL,
		event     TEXT NOT NULL,
		actor     TEXT NOT NULL DEFAULT '',
		subject   TEXT NOT NULL DEFAULT '',
		detail    TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);
	CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_log(event);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &Trail{db: db}, nil
}

// Close releases the database.
func (t *Trail) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

// LastError returns the most recent write failure, if any.
func (t *Trail) LastError() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Record appends one event. Never returns an error; failures are
// swallowed so auditing cannot block or break the flow it observes.
func (t *Trail) Record(event Event, actor, subject, detail string) {
	if t == nil || t.db == nil {
		return
	}
	_, err := t.db.Exec(
		`INSERT INTO audit_log (ts, event, actor, subject, detail) VALUES (?, ?, ?, ?, ?)`,
		time.Now().Unix(), string(event), actor, subject, detail,
	)
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
}

// Recent returns up to limit entries, newest first.
func (t *Trail) Recent(limit int) ([]Entry, error) {
	if t == nil || t.db == nil {
		return nil, errors.New("audit trail not open")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.db.Query(
		`SELECT id, ts, event, actor, subject, detail
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var event string
		if err := rows.Scan(&e.ID, &ts, &event, &e.Actor, &e.Subject, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Event = Event(event)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the total number of entries.
func (t *Trail) Count() (int, error) {
	if t == nil || t.db == nil {
		return 0, errors.New("audit trail not open")
	}
	var n int
	err := t.db.QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&n)
	return n, err
}
