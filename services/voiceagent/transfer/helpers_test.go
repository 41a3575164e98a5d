// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/roster"
)

// =============================================================================
// Roster fixture
// =============================================================================

type staticSource struct{ raw []byte }

func (s staticSource) Read(context.Context) ([]byte, error) { return s.raw, nil }
func (s staticSource) String() string                       { return "static" }

func sampleRoster() roster.Roster {
	return roster.Roster{
		Company: roster.Company{Name: "Sally Love Real Estate", MainOfficePhone: "352-290-8023"},
		Agents: []roster.Agent{
			{Name: "Kim Coffer", CellPhone: "352-626-7671"},
			{Name: "Sally Love", CellPhone: "352-430-6960"},
			{Name: "Jeff Beatty", CellPhone: "352-600-0334"},
		},
		Staff: []roster.Agent{
			{Name: "Blerim Prenaj", CellPhone: "352-626-7772"},
		},
	}
}

func newRosterStore(t *testing.T, r roster.Roster) *roster.Store {
	t.Helper()
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	return roster.NewStore(staticSource{raw: raw}, discardLogger())
}

// countingRoster counts every lookup so tests can assert none happened.
type countingRoster struct {
	Roster
	calls atomic.Int32
}

func (c *countingRoster) Verify(ctx context.Context, name, number string) (roster.Agent, bool) {
	c.calls.Add(1)
	return c.Roster.Verify(ctx, name, number)
}

func (c *countingRoster) AnyAgent(ctx context.Context) (roster.Agent, bool) {
	c.calls.Add(1)
	return c.Roster.AnyAgent(ctx)
}

func (c *countingRoster) MainOfficePhone(ctx context.Context) (string, bool) {
	c.calls.Add(1)
	return c.Roster.MainOfficePhone(ctx)
}

func (c *countingRoster) Transferable(ctx context.Context) []roster.Agent {
	c.calls.Add(1)
	return c.Roster.Transferable(ctx)
}

// =============================================================================
// Collaborator fakes
// =============================================================================

type execCall struct {
	controlURL, number, content string
}

// fakeExecutor returns errs[i] for the i-th call, nil once errs runs out.
type fakeExecutor struct {
	mu    sync.Mutex
	calls []execCall
	errs  []error
}

func (f *fakeExecutor) Transfer(_ context.Context, controlURL, number, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, execCall{controlURL, number, content})
	if i < len(f.errs) {
		return f.errs[i]
	}
	return nil
}

type countingEscalator struct {
	mu      sync.Mutex
	notices []notify.FailureNotice
}

func (c *countingEscalator) NotifyFailure(_ context.Context, n notify.FailureNotice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

type fakeDirectory struct {
	name, number string
	err          error
	calls        atomic.Int32
}

func (f *fakeDirectory) AgentContact(context.Context, string) (string, string, error) {
	f.calls.Add(1)
	return f.name, f.number, f.err
}

var errHTTP500 = errors.New("control endpoint returned 500")

// =============================================================================
// Logging
// =============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// auditCapture returns an auditor writing JSON lines into buf.
func auditCapture() (*Auditor, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewAuditor(slog.New(slog.NewJSONHandler(buf, nil)), true), buf
}

// auditEvents decodes every JSON line in buf.
func auditEvents(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func findEvent(events []map[string]any, name string) map[string]any {
	for _, e := range events {
		if e["event"] == name {
			return e
		}
	}
	return nil
}
