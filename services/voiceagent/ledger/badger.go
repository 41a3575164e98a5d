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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/badgerstore"
)

// BadgerKeyPrefix namespaces attempt keys. The version segment changes
// whenever the stored JSON layout does.
const BadgerKeyPrefix = "transfer/attempt/v1/"

// Badger stores attempts in BadgerDB with native TTL.
//
// Description:
//
//	Expired keys are invisible to reads and are reclaimed by Badger's GC,
//	so no application-level expiry check is needed.
//
// Thread Safety: Safe for concurrent use.
type Badger struct {
	db     *badgerstore.DB
	ttl    time.Duration
	owned  bool
	logger *slog.Logger
}

// OpenBadger opens (or creates) a database at path and owns its lifecycle.
func OpenBadger(path string, ttl time.Duration, logger *slog.Logger) (*Badger, error) {
	cfg := badgerstore.DefaultConfig()
	cfg.Path = path
	cfg.Logger = logger
	db, err := badgerstore.OpenDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	b := NewBadger(db, ttl, logger)
	b.owned = true
	return b, nil
}

// NewBadger wraps an already-open database. The caller keeps ownership.
func NewBadger(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *Badger {
	if db == nil {
		panic("ledger.NewBadger: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Badger{db: db, ttl: ttlOrDefault(ttl), logger: logger}
}

// BadgerKey returns the storage key for callID.
func BadgerKey(callID string) []byte {
	return []byte(BadgerKeyPrefix + callID)
}

// Record implements Ledger.
func (b *Badger) Record(ctx context.Context, a Attempt) error {
	if err := validate(a); err != nil {
		return err
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("ledger: encode attempt: %w", err)
	}
	err = b.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.SetEntry(dgbadger.NewEntry(BadgerKey(a.CallID), raw).WithTTL(b.ttl))
	})
	if err != nil {
		return fmt.Errorf("ledger: save attempt: %w", err)
	}
	b.logger.Debug("ledger: attempt saved", slog.String("call_id", a.CallID), slog.String("state", a.State))
	return nil
}

// Latest implements Ledger.
func (b *Badger) Latest(ctx context.Context, callID string) (Attempt, error) {
	var raw []byte
	err := b.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(BadgerKey(callID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("ledger: load attempt: %w", err)
	}
	var a Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return Attempt{}, fmt.Errorf("ledger: decode attempt: %w", err)
	}
	return a, nil
}

// Close implements Ledger. A wrapped database is left open.
func (b *Badger) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}
