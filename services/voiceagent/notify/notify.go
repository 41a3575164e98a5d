// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package notify delivers SMS and email to people: escalation alerts to
// the office when a caller could not be connected, and the direct
// messages requested by the voice assistant.
//
// Escalations are queued and delivered by background workers so they
// never delay the caller. Direct sends are synchronous because the
// assistant reports their outcome.
package notify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured means a channel lacks credentials or a sender identity.
var ErrNotConfigured = errors.New("notify: channel not configured")

// Channel names a delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ChannelError wraps a delivery failure on one channel.
type ChannelError struct {
	Channel Channel
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// =============================================================================
// Notices
// =============================================================================

// FailureKind classifies an escalation.
type FailureKind string

const (
	// FailureVerification: the CRM could not confirm the requested agent.
	FailureVerification FailureKind = "verification_failed"
	// FailureExecution: the live transfer instruction failed.
	FailureExecution FailureKind = "execution_failed"
	// FailureNoDestination: nobody could be dialed.
	FailureNoDestination FailureKind = "no_destination"
	// FailureNoAnswer: the transfer connected but nobody picked up.
	FailureNoAnswer FailureKind = "no_answer"
)

// FailureNotice describes a call that needs a human follow-up.
type FailureNotice struct {
	CallID      string
	Kind        FailureKind
	LeadID      string
	AgentName   string
	AgentPhone  string
	CallerName  string
	CallerPhone string
	Reason      string
	// Detail is operator-facing error text. It is never spoken to callers.
	Detail string
}

// NoAnswerNotice describes a transferred call that was not picked up.
type NoAnswerNotice struct {
	CallID              string
	CallerName          string
	CallerPhone         string
	AttemptedAgentName  string
	AttemptedAgentPhone string
	EndedReason         string
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func failureHeadline(kind FailureKind) string {
	switch kind {
	case FailureVerification:
		return "Agent could not be verified in the CRM before a transfer."
	case FailureNoDestination:
		return "No agent or office line was available for a transfer."
	default:
		return "A live call transfer failed."
	}
}

// failureText renders the SMS body and email subject for n.
func failureText(business string, n FailureNotice) (body, subject string) {
	var b strings.Builder
	fmt.Fprintf(&b, "TRANSFER ALERT - %s\n", business)
	b.WriteString(failureHeadline(n.Kind) + "\n\n")
	fmt.Fprintf(&b, "Caller: %s\n", orUnknown(n.CallerName))
	fmt.Fprintf(&b, "Caller Phone: %s\n", orUnknown(n.CallerPhone))
	fmt.Fprintf(&b, "Agent: %s\n", orUnknown(n.AgentName))
	if n.AgentPhone != "" {
		fmt.Fprintf(&b, "Agent Phone: %s\n", n.AgentPhone)
	}
	if n.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", n.Reason)
	}
	if n.LeadID != "" {
		fmt.Fprintf(&b, "Lead ID: %s\n", n.LeadID)
	}
	if n.CallID != "" {
		fmt.Fprintf(&b, "Call ID: %s\n", n.CallID)
	}
	b.WriteString("\nAction: Call the caller back ASAP")
	return b.String(), fmt.Sprintf("Transfer alert: %s needs a callback", orUnknown(n.CallerName))
}

// noAnswerText renders the SMS body and email subject for n.
func noAnswerText(business string, n NoAnswerNotice) (body, subject string) {
	var b strings.Builder
	fmt.Fprintf(&b, "MISSED TRANSFER - %s\n", business)
	b.WriteString("A transferred call was not answered.\n\n")
	fmt.Fprintf(&b, "Caller: %s\n", orUnknown(n.CallerName))
	fmt.Fprintf(&b, "Caller Phone: %s\n", orUnknown(n.CallerPhone))
	fmt.Fprintf(&b, "Attempted Agent: %s\n", orUnknown(n.AttemptedAgentName))
	if n.AttemptedAgentPhone != "" {
		fmt.Fprintf(&b, "Agent Phone: %s\n", n.AttemptedAgentPhone)
	}
	if n.EndedReason != "" {
		fmt.Fprintf(&b, "Ended Reason: %s\n", n.EndedReason)
	}
	if n.CallID != "" {
		fmt.Fprintf(&b, "Call ID: %s\n", n.CallID)
	}
	b.WriteString("\nAction: Call the caller back ASAP")
	return b.String(), fmt.Sprintf("Missed transfer: %s needs a callback", orUnknown(n.CallerName))
}
