// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerstore wraps a BadgerDB handle with context-aware
// transaction helpers and a periodic value-log GC.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrClosed is returned by transaction helpers after Close.
var ErrClosed = errors.New("badgerstore: database closed")

// Config controls how the database is opened.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// GCInterval is how often value-log GC runs. Zero disables it.
	GCInterval time.Duration
	// GCDiscardRatio is passed to RunValueLogGC.
	GCDiscardRatio float64
	// Logger receives lifecycle messages. nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns settings for an on-disk database. Path must be set.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for a throwaway in-memory database.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DB is an open BadgerDB with helpers.
//
// Thread Safety: Safe for concurrent use.
type DB struct {
	db     *badger.DB
	logger *slog.Logger

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// OpenDB opens the database described by cfg.
//
// Outputs:
//   - *DB: Open handle. Caller must Close it.
//   - error: Non-nil if the directory is missing a path or cannot be opened.
func OpenDB(cfg Config) (*DB, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badgerstore: path is required for on-disk database")
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(nil)

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %q: %w", cfg.Path, err)
	}

	d := &DB{
		db:     bdb,
		logger: logger.With("component", "badgerstore"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go d.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	} else {
		close(d.done)
	}
	return d, nil
}

// Badger exposes the underlying handle for iteration.
func (d *DB) Badger() *badger.DB { return d.db }

// WithTxn runs fn in a read-write transaction and commits it.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.db.IsClosed() {
		return ErrClosed
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn in a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.db.IsClosed() {
		return ErrClosed
	}
	return d.db.View(fn)
}

// Close stops GC and closes the database. Safe to call more than once.
func (d *DB) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.stop)
		<-d.done
		err = d.db.Close()
	})
	return err
}

func (d *DB) runGC(interval time.Duration, ratio float64) {
	defer close(d.done)
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			for {
				// RunValueLogGC returns ErrNoRewrite once nothing is left to collect.
				if err := d.db.RunValueLogGC(ratio); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						d.logger.Debug("value log gc stopped", slog.String("error", err.Error()))
					}
					break
				}
			}
		}
	}
}
