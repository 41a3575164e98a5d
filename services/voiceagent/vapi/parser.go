// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/transfer"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrMalformedBody means the body is not a JSON object.
	ErrMalformedBody = errors.New("vapi: malformed webhook body")

	// ErrMissingWebhookData means the envelope lacks a tool call or, for
	// transfers, the live-call control URL.
	ErrMissingWebhookData = errors.New("vapi: webhook is missing required data")
)

// =============================================================================
// Wire shapes
// =============================================================================

type wireFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireCall struct {
	ID      string `json:"id"`
	Monitor struct {
		ControlURL string `json:"controlUrl"`
	} `json:"monitor"`
}

type wireMessage struct {
	Type                 string `json:"type"`
	ToolWithToolCallList []struct {
		Name     string        `json:"name"`
		ToolCall *wireToolCall `json:"toolCall"`
	} `json:"toolWithToolCallList"`
	ToolCallList []wireToolCall `json:"toolCallList"`
	FunctionCall *struct {
		Name       string          `json:"name"`
		Parameters json.RawMessage `json:"parameters"`
	} `json:"functionCall"`
	Call *wireCall `json:"call"`
}

type wireEnvelope struct {
	Message *wireMessage `json:"message"`
	Call    *wireCall    `json:"call"`
}

// =============================================================================
// Tool calls
// =============================================================================

// Source names which envelope shape a tool call came from.
type Source string

const (
	SourceToolWithToolCallList Source = "toolWithToolCallList"
	SourceToolCallList         Source = "toolCallList"
	SourceFunctionCall         Source = "functionCall"
	SourceFlat                 Source = "flat"
)

// ToolCall is one function invocation extracted from a webhook.
type ToolCall struct {
	// ID is echoed back in the response so the platform can match results.
	ID   string
	Name string
	// Arguments is always a JSON object, "{}" when nothing usable was sent.
	Arguments  json.RawMessage
	ControlURL string
	CallID     string
	Source     Source
}

// Decode unmarshals the arguments into v.
func (tc ToolCall) Decode(v any) error {
	if err := json.Unmarshal(tc.Arguments, v); err != nil {
		return fmt.Errorf("vapi: decode %s arguments: %w", tc.Name, err)
	}
	return nil
}

// ParseToolCall extracts the first tool call from a webhook envelope.
//
// Description:
//
//	Tries, in order:
//	  A. message.toolWithToolCallList[0].toolCall
//	  B. message.toolCallList[0]
//	  C. message.functionCall (legacy, arguments under "parameters")
//	Arguments may be a JSON object or a JSON-encoded string; anything that
//	does not decode to an object becomes "{}". The control URL is read from
//	message.call.monitor.controlUrl, then call.monitor.controlUrl. A missing
//	control URL is not an error here; ParseTransfer enforces it.
//
// Outputs:
//   - ToolCall: The extracted call.
//   - error: ErrMalformedBody or ErrMissingWebhookData.
func ParseToolCall(body []byte) (ToolCall, error) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ToolCall{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if env.Message == nil {
		return ToolCall{}, fmt.Errorf("%w: no message", ErrMissingWebhookData)
	}
	m := env.Message

	var tc ToolCall
	switch {
	case len(m.ToolWithToolCallList) > 0 && m.ToolWithToolCallList[0].ToolCall != nil:
		w := m.ToolWithToolCallList[0].ToolCall
		tc = ToolCall{ID: w.ID, Name: w.Function.Name, Arguments: w.Function.Arguments, Source: SourceToolWithToolCallList}
		if tc.Name == "" {
			tc.Name = m.ToolWithToolCallList[0].Name
		}
	case len(m.ToolCallList) > 0:
		w := m.ToolCallList[0]
		tc = ToolCall{ID: w.ID, Name: w.Function.Name, Arguments: w.Function.Arguments, Source: SourceToolCallList}
	case m.FunctionCall != nil:
		tc = ToolCall{Name: m.FunctionCall.Name, Arguments: m.FunctionCall.Parameters, Source: SourceFunctionCall}
	default:
		return ToolCall{}, fmt.Errorf("%w: no tool call", ErrMissingWebhookData)
	}
	tc.Arguments = normalizeArguments(tc.Arguments)

	if m.Call != nil {
		tc.ControlURL, tc.CallID = m.Call.Monitor.ControlURL, m.Call.ID
	}
	if env.Call != nil {
		if tc.ControlURL == "" {
			tc.ControlURL = env.Call.Monitor.ControlURL
		}
		if tc.CallID == "" {
			tc.CallID = env.Call.ID
		}
	}
	return tc, nil
}

// ParseFunctionRequest accepts either a webhook envelope or a flat JSON
// object of arguments, as sent by manual tests and older assistants.
func ParseFunctionRequest(body []byte) (ToolCall, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return ToolCall{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if _, ok := probe["message"]; ok {
		return ParseToolCall(body)
	}
	return ToolCall{Arguments: normalizeArguments(body), Source: SourceFlat}, nil
}

// normalizeArguments returns raw as a JSON object, unwrapping a
// JSON-encoded string once.
func normalizeArguments(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return json.RawMessage("{}")
		}
		raw = bytes.TrimSpace([]byte(s))
	}
	if len(raw) == 0 || raw[0] != '{' || !json.Valid(raw) {
		return json.RawMessage("{}")
	}
	return raw
}

// =============================================================================
// Transfers
// =============================================================================

// TransferRequest converts tool-call arguments into a transfer request.
//
// Description:
//
//	Each argument is decoded on its own. A field that is not a scalar
//	(an object or array where text was expected) is left empty without
//	discarding the others, so a malformed agent_name does not cost the
//	caller details the gate needs.
func TransferRequest(tc ToolCall) transfer.Request {
	var fields map[string]json.RawMessage
	if err := tc.Decode(&fields); err != nil {
		return transfer.Request{}
	}
	text := func(key string) string {
		raw, ok := fields[key]
		if !ok {
			return ""
		}
		var t Text
		if err := json.Unmarshal(raw, &t); err != nil {
			return ""
		}
		return t.String()
	}

	reason := text("reason")
	if reason == "" {
		reason = text("transfer_reason")
	}
	return transfer.Request{
		LeadID:      text("lead_id"),
		AgentID:     text("agent_id"),
		AgentName:   text("agent_name"),
		AgentPhone:  text("agent_phone"),
		CallerName:  text("caller_name"),
		CallerPhone: text("caller_phone"),
		Reason:      reason,
	}
}

// ParseTransfer extracts the live-call session and transfer request.
//
// Outputs:
//   - transfer.Session: Control URL and call ID. ControlURL is non-empty on success.
//   - transfer.Request: Decoded arguments (may be incomplete; the gate decides).
//   - ToolCall: The raw tool call, for echoing its ID.
//   - error: ErrMalformedBody, or ErrMissingWebhookData when the tool call
//     or control URL is absent.
func ParseTransfer(body []byte) (transfer.Session, transfer.Request, ToolCall, error) {
	tc, err := ParseToolCall(body)
	if err != nil {
		return transfer.Session{}, transfer.Request{}, tc, err
	}
	req := TransferRequest(tc)
	sess := transfer.Session{ControlURL: tc.ControlURL, CallID: tc.CallID}
	if tc.ControlURL == "" {
		return sess, req, tc, fmt.Errorf("%w: no control url", ErrMissingWebhookData)
	}
	return sess, req, tc, nil
}
