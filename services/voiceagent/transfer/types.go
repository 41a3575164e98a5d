// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transfer decides where a live call is sent and carries the
// transfer out.
//
// A transfer runs strictly in order for one call:
//
//	RECEIVED -> GATE_CHECK -> RESOLVE -> EXECUTE -> DONE
//
// A failed gate stops the call before any lookup. A failed resolution or
// execution escalates to a human, and a failed execution gets exactly one
// fallback attempt to the office line or another roster agent.
//
// Every stage returns a typed result. The Pipeline inspects those results,
// never error text, to choose the next step.
//
// Thread Safety:
//
//	Gate, Resolver and Pipeline are safe for concurrent use. Each call's
//	state lives on the stack of Pipeline.Route.
package transfer

import (
	"errors"
	"strings"
	"time"
)

// =============================================================================
// Inputs
// =============================================================================

// Request is the per-call data extracted from the voice platform's
// function-call arguments.
type Request struct {
	LeadID      string `json:"lead_id"`
	AgentID     string `json:"agent_id,omitempty"`
	AgentName   string `json:"agent_name,omitempty"`
	AgentPhone  string `json:"agent_phone,omitempty"`
	CallerName  string `json:"caller_name"`
	CallerPhone string `json:"caller_phone"`
	Reason      string `json:"reason,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (r Request) Trimmed() Request {
	return Request{
		LeadID:      strings.TrimSpace(r.LeadID),
		AgentID:     strings.TrimSpace(r.AgentID),
		AgentName:   strings.TrimSpace(r.AgentName),
		AgentPhone:  strings.TrimSpace(r.AgentPhone),
		CallerName:  strings.TrimSpace(r.CallerName),
		CallerPhone: strings.TrimSpace(r.CallerPhone),
		Reason:      strings.TrimSpace(r.Reason),
	}
}

// Session is the live-call handle supplied with one webhook.
//
// Description:
//
//	ControlURL is valid only while the call is up. A Session is never
//	persisted.
type Session struct {
	ControlURL string
	CallID     string
}

// =============================================================================
// Stage results
// =============================================================================

// State is a node of the per-call transfer state machine.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateGateCheck       State = "GATE_CHECK"
	StateResolve         State = "RESOLVE"
	StateExecute         State = "EXECUTE"
	StateEscalate        State = "ESCALATE"
	StateFallbackExecute State = "FALLBACK_EXECUTE"
	StateDone            State = "DONE"
	StateBlocked         State = "BLOCKED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateBlocked
}

// Source records how a destination was chosen.
type Source string

const (
	// SourceRoster is a requested agent confirmed against the roster.
	SourceRoster Source = "roster"
	// SourceFallbackAgent is a substitute roster agent.
	SourceFallbackAgent Source = "fallback_agent"
	// SourceOffice is the main office line.
	SourceOffice Source = "office"
)

// OfficeLabel is how the office destination is announced to the caller.
const OfficeLabel = "our office"

// Resolution is the destination chosen for a call.
//
// Description:
//
//	AgentPhone is always E.164. When the test-mode override fired,
//	TestOverride is true and OriginalName/OriginalPhone hold what the
//	roster logic chose before the override.
type Resolution struct {
	AgentName      string
	AgentPhone     string
	Verified       bool
	Source         Source
	RequestedName  string
	RequestedPhone string
	TestOverride   bool
	OriginalName   string
	OriginalPhone  string
}

// BlockReason names why a call ended without a live transfer.
type BlockReason string

const (
	BlockNone            BlockReason = ""
	BlockGate            BlockReason = "gate"
	BlockMalformed       BlockReason = "malformed_webhook"
	BlockNoDestination   BlockReason = "no_destination"
	BlockExecutionFailed BlockReason = "execution_failed"
)

// Outcome is the result of one route_to_agent invocation.
type Outcome struct {
	State        State
	Reason       BlockReason
	AgentName    string
	AgentPhone   string
	Verified     bool
	Executed     bool
	FallbackUsed bool
	TestOverride bool
	Escalated    bool
	// Message is the caller-facing line spoken by the assistant.
	Message string
	// Missing lists gate fields that were empty.
	Missing []string
	// Duration is wall time spent in Route.
	Duration time.Duration
}

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNoDestination means neither a roster agent nor an office line exists.
	ErrNoDestination = errors.New("transfer: no destination available")
)
