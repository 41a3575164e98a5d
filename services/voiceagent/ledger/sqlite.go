// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transfer_attempts (
	call_id     TEXT PRIMARY KEY,
	state       TEXT NOT NULL,
	agent_phone TEXT NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transfer_attempts_recorded_at ON transfer_attempts(recorded_at);
`

// SQLite stores attempts in a single table. Expiry is applied on read and
// rows older than the TTL are pruned on write.
//
// Thread Safety: Safe for concurrent use. The pool is limited to one
// connection because SQLite allows a single writer.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens path (":memory:" for a private in-memory database) and
// creates the schema.
func OpenSQLite(ctx context.Context, path string, ttl time.Duration) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}
	return &SQLite{db: db, ttl: ttlOrDefault(ttl), now: time.Now}, nil
}

// Record implements Ledger.
func (s *SQLite) Record(ctx context.Context, a Attempt) error {
	if err := validate(a); err != nil {
		return err
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = s.now().UTC()
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("ledger: encode attempt: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := s.now().Add(-s.ttl).UnixNano()
	if _, err := tx.ExecContext(ctx, `DELETE FROM transfer_attempts WHERE recorded_at < ?`, cutoff); err != nil {
		return fmt.Errorf("ledger: prune: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO transfer_attempts (call_id, state, agent_phone, recorded_at, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		a.CallID, a.State, a.AgentPhone, a.RecordedAt.UnixNano(), string(payload))
	if err != nil {
		return fmt.Errorf("ledger: save attempt: %w", err)
	}
	return tx.Commit()
}

// Latest implements Ledger.
func (s *SQLite) Latest(ctx context.Context, callID string) (Attempt, error) {
	cutoff := s.now().Add(-s.ttl).UnixNano()
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM transfer_attempts WHERE call_id = ? AND recorded_at >= ?`,
		callID, cutoff).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("ledger: load attempt: %w", err)
	}
	var a Attempt
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return Attempt{}, fmt.Errorf("ledger: decode attempt: %w", err)
	}
	return a, nil
}

// Close implements Ledger.
func (s *SQLite) Close() error { return s.db.Close() }
