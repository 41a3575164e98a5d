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
	"sync"
	"time"
)

// Memory keeps attempts in a map.
//
// Thread Safety: Safe for concurrent use.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	attempts map[string]Attempt
}

// NewMemory creates an in-process ledger.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttlOrDefault(ttl),
		now:      time.Now,
		attempts: make(map[string]Attempt),
	}
}

// Record implements Ledger. Expired entries are swept on write.
func (m *Memory) Record(_ context.Context, a Attempt) error {
	if err := validate(a); err != nil {
		return err
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = m.now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	for id, existing := range m.attempts {
		if existing.RecordedAt.Before(cutoff) {
			delete(m.attempts, id)
		}
	}
	m.attempts[a.CallID] = a
	return nil
}

// Latest implements Ledger.
func (m *Memory) Latest(_ context.Context, callID string) (Attempt, error) {
	m.mu.RLock()
	a, ok := m.attempts[callID]
	m.mu.RUnlock()
	if !ok || a.RecordedAt.Before(m.now().Add(-m.ttl)) {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

// Len returns the number of stored attempts, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attempts)
}

// Close implements Ledger.
func (m *Memory) Close() error { return nil }
