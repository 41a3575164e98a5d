// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledger records transfer attempts per call so that later
// call-lifecycle webhooks can tell who the caller was sent to.
//
// Entries expire after a TTL. Four backends share one interface: memory
// for tests and single-process development, badger for a single host,
// redis when several replicas serve the same assistant, and sqlite when an
// inspectable file is wanted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
)

// DefaultTTL is used when a backend is created with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// ErrNotFound means no unexpired attempt exists for the call.
var ErrNotFound = errors.New("ledger: attempt not found")

// Attempt is one finished route_to_agent invocation.
type Attempt struct {
	ID             string    `json:"id"`
	CallID         string    `json:"call_id"`
	LeadID         string    `json:"lead_id"`
	CallerName     string    `json:"caller_name"`
	CallerPhone    string    `json:"caller_phone"`
	RequestedName  string    `json:"requested_name,omitempty"`
	RequestedPhone string    `json:"requested_phone,omitempty"`
	AgentName      string    `json:"agent_name,omitempty"`
	AgentPhone     string    `json:"agent_phone,omitempty"`
	Verified       bool      `json:"verified"`
	Executed       bool      `json:"executed"`
	FallbackUsed   bool      `json:"fallback_used"`
	TestOverride   bool      `json:"test_override"`
	State          string    `json:"state"`
	Reason         string    `json:"reason,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Ledger stores the latest attempt per call.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Ledger interface {
	// Record stores a, replacing any earlier attempt for a.CallID.
	Record(ctx context.Context, a Attempt) error
	// Latest returns the most recent attempt for callID, or ErrNotFound.
	Latest(ctx context.Context, callID string) (Attempt, error)
	// Close releases the backend.
	Close() error
}

// Open creates the backend named by cfg.Backend.
//
// Inputs:
//   - ctx: Bounds connection checks for network backends.
//   - cfg: Validated ledger configuration.
//   - logger: Optional. nil uses slog.Default().
//
// Outputs:
//   - Ledger: Ready to use. Caller must Close it.
//   - error: Non-nil if the backend is unknown or cannot be opened.
func Open(ctx context.Context, cfg config.LedgerConfig, logger *slog.Logger) (Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.TTL), nil
	case "badger":
		return OpenBadger(cfg.Path, cfg.TTL, logger)
	case "redis":
		return OpenRedis(ctx, cfg.RedisURL, cfg.TTL)
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path, cfg.TTL)
	default:
		return nil, fmt.Errorf("ledger: unknown backend %q", cfg.Backend)
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

func validate(a Attempt) error {
	if a.CallID == "" {
		return fmt.Errorf("ledger: attempt has no call id")
	}
	return nil
}
