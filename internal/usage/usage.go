// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package usage keeps a durable ledger of token consumption across
// sessions, one row per completed turn. The ledger feeds "/stats all";
// a broken ledger never blocks chatting.
package usage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	model       TEXT NOT NULL,
	tokens      INTEGER NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_model ON turns(model);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
`

// =============================================================================
// LEDGER
// =============================================================================

// ModelTotal is the aggregated consumption of one model.
type ModelTotal struct {
	Model  string
	Tokens int
	Turns  int
}

// Ledger is the SQLite-backed usage store.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating usage directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening usage ledger %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing usage ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record inserts one turn's consumption.
func (l *Ledger) Record(sessionID, model string, tokens int) error {
	_, err := l.db.Exec(
		`INSERT INTO turns (id, session_id, model, tokens, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, model, tokens, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// Totals returns per-model consumption over all recorded sessions,
// largest first.
func (l *Ledger) Totals() ([]ModelTotal, error) {
	rows, err := l.db.Query(`SELECT model, SUM(tokens), COUNT(*) FROM turns GROUP BY model`)
	if err != nil {
		return nil, fmt.Errorf("querying usage totals: %w", err)
	}
	defer rows.Close()

	var out []ModelTotal
	for rows.Next() {
		var t ModelTotal
		if err := rows.Scan(&t.Model, &t.Tokens, &t.Turns); err != nil {
			return nil, fmt.Errorf("scanning usage totals: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading usage totals: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Tokens > out[j].Tokens
	})
	return out, nil
}

// TotalAll returns the grand total across every model and session.
func (l *Ledger) TotalAll() (int, error) {
	var total sql.NullInt64
	if err := l.db.QueryRow(`SELECT SUM(tokens) FROM turns`).Scan(&total); err != nil {
		return 0, fmt.Errorf("querying usage grand total: %w", err)
	}
	return int(total.Int64), nil
}
