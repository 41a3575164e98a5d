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

import "strings"

// GatePrompt is spoken when caller details or the lead reference are missing.
const GatePrompt = "Before I transfer you, I need to make sure I have your name and the best number " +
	"to reach you in case we get disconnected. Could you share those with me?"

// GateResult is the Transfer Gate decision.
type GateResult struct {
	Allowed bool
	// Missing names the empty required fields, in lead_id, caller_name,
	// caller_phone order.
	Missing []string
	// Message is the caller-facing prompt when blocked.
	Message string
}

// CheckGate refuses a transfer unless the lead reference and the caller's
// name and callback number are all present.
//
// Description:
//
//	Pure policy, no I/O. Whitespace-only values count as missing. The agent
//	being requested does not matter: a caller whose contact details are
//	unrecoverable must never be put into a warm transfer.
//
// Inputs:
//   - leadID: CRM lead reference.
//   - callerName: Caller's name.
//   - callerPhone: Caller's callback number. Content is not validated.
//
// Outputs:
//   - GateResult: Allowed, or blocked with the missing fields and a prompt.
func CheckGate(leadID, callerName, callerPhone string) GateResult {
	var missing []string
	if strings.TrimSpace(leadID) == "" {
		missing = append(missing, "lead_id")
	}
	if strings.TrimSpace(callerName) == "" {
		missing = append(missing, "caller_name")
	}
	if strings.TrimSpace(callerPhone) == "" {
		missing = append(missing, "caller_phone")
	}
	if len(missing) > 0 {
		return GateResult{Missing: missing, Message: GatePrompt}
	}
	return GateResult{Allowed: true}
}
