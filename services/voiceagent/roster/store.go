// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package roster

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
)

// DefaultPath is the roster location used when none is configured.
const DefaultPath = "data/agent_roster.json"

// Store caches one roster document and answers lookups against it.
//
// Description:
//
//	The document is read lazily on first use. Concurrent first reads are
//	collapsed into one. A missing or corrupt document yields an empty
//	roster and a warning, so every lookup degrades to "no agents" instead
//	of failing.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	source Source
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Roster
	gen    uint64 // bumped by ClearCache
	loads  singleflight.Group
}

// maxLoadAttempts bounds re-reads when the cache keeps being cleared while
// a read is in flight.
const maxLoadAttempts = 3

const loadKey = "roster"

// loadResult is what one shared read produced.
type loadResult struct {
	roster *Roster
	stale  bool // ClearCache ran during the read; roster was not cached
}

// NewStore creates a store over source. A nil logger uses slog.Default().
func NewStore(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source: source,
		logger: logger.With("component", "roster"),
	}
}

// NewFileStore is shorthand for a store over a local file.
func NewFileStore(path string, logger *slog.Logger) *Store {
	return NewStore(FileSource{Path: path}, logger)
}

// Source returns the location the store reads from.
func (s *Store) Source() Source { return s.source }

// Load returns the cached roster, reading it on first use.
//
// Description:
//
//	A read that overlaps ClearCache is discarded rather than cached, since
//	it may hold the previous or a half-written document. The read is then
//	retried, up to maxLoadAttempts; the last result is returned uncached.
//
// Outputs:
//   - *Roster: Never nil. Empty when the document could not be read.
func (s *Store) Load(ctx context.Context) *Roster {
	var last *Roster
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		s.mu.RLock()
		r := s.cached
		s.mu.RUnlock()
		if r != nil {
			return r
		}

		v, _, _ := s.loads.Do(loadKey, func() (any, error) {
			s.mu.RLock()
			if s.cached != nil {
				defer s.mu.RUnlock()
				return loadResult{roster: s.cached}, nil
			}
			gen := s.gen
			s.mu.RUnlock()

			loaded := s.read(ctx)

			s.mu.Lock()
			defer s.mu.Unlock()
			if s.gen != gen {
				return loadResult{roster: loaded, stale: true}, nil
			}
			s.cached = loaded
			return loadResult{roster: loaded}, nil
		})
		res := v.(loadResult)
		if !res.stale {
			return res.roster
		}
		last = res.roster
		s.logger.Debug("roster changed during read, reloading", slog.Int("attempt", attempt+1))
	}
	return last
}

func (s *Store) read(ctx context.Context) *Roster {
	raw, err := s.source.Read(ctx)
	if err != nil {
		s.logger.Warn("roster unavailable, continuing with empty roster",
			slog.String("source", s.source.String()),
			slog.String("error", err.Error()))
		return Empty()
	}
	var r Roster
	if err := json.Unmarshal(raw, &r); err != nil {
		s.logger.Warn("roster unreadable, continuing with empty roster",
			slog.String("source", s.source.String()),
			slog.String("error", err.Error()))
		return Empty()
	}
	s.logger.Info("roster loaded",
		slog.String("source", s.source.String()),
		slog.Int("agents", len(r.Agents)),
		slog.Int("staff", len(r.Staff)))
	return &r
}

// ClearCache drops the cached document so the next lookup re-reads it.
//
// A read already in flight is not cached; callers waiting on it re-read.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
	s.loads.Forget(loadKey)
}

// Transferable returns every agent a call may be sent to, in roster order.
func (s *Store) Transferable(ctx context.Context) []Agent {
	return s.Load(ctx).Transferable()
}

// FindByName searches transferable agents by spoken or typed name.
func (s *Store) FindByName(ctx context.Context, query string) (Agent, bool) {
	m := s.MatchName(ctx, query)
	return m.Agent, m.Pass != PassNone
}

// MatchName is FindByName with the matching pass and score exposed.
func (s *Store) MatchName(ctx context.Context, query string) NameMatch {
	m := matchName(query, s.Transferable(ctx))
	if m.Pass == PassLastName || m.Pass == PassFuzzy {
		s.logger.Info("agent name matched loosely",
			slog.String("query", query),
			slog.String("agent", m.Agent.Name),
			slog.String("pass", m.Pass.String()),
			slog.Float64("score", m.Score))
	}
	return m
}

// FindByPhone matches on the last ten digits. Queries with fewer than ten
// digits never match.
func (s *Store) FindByPhone(ctx context.Context, number string) (Agent, bool) {
	if !phone.IsComplete(number) {
		return Agent{}, false
	}
	for _, a := range s.Transferable(ctx) {
		if phone.Equal(a.ContactPhone(), number) {
			return a, true
		}
	}
	return Agent{}, false
}

// IsAgentInRoster reports whether name and/or number identify a roster agent.
//
// Description:
//
//	With both given, the agent found by name must also own the number.
//	With one given, that one must match. With neither, the answer is false.
func (s *Store) IsAgentInRoster(ctx context.Context, name, number string) bool {
	_, ok := s.Verify(ctx, name, number)
	return ok
}

// Verify is IsAgentInRoster returning the matched agent.
func (s *Store) Verify(ctx context.Context, name, number string) (Agent, bool) {
	switch {
	case name != "" && number != "":
		a, ok := s.FindByName(ctx, name)
		if !ok || !phone.Equal(a.ContactPhone(), number) {
			return Agent{}, false
		}
		return a, true
	case name != "":
		return s.FindByName(ctx, name)
	case number != "":
		return s.FindByPhone(ctx, number)
	default:
		return Agent{}, false
	}
}

// AnyAgent returns the first transferable agent in roster order.
func (s *Store) AnyAgent(ctx context.Context) (Agent, bool) {
	all := s.Transferable(ctx)
	if len(all) == 0 {
		return Agent{}, false
	}
	return all[0], true
}

// RosterPhoneForName returns the roster number for the agent matching name.
func (s *Store) RosterPhoneForName(ctx context.Context, name string) (string, bool) {
	a, ok := s.FindByName(ctx, name)
	if !ok {
		return "", false
	}
	return a.ContactPhone(), true
}

// MainOfficePhone returns the company main line, if listed.
func (s *Store) MainOfficePhone(ctx context.Context) (string, bool) {
	p := s.Load(ctx).Company.MainOfficePhone
	return p, p != ""
}
