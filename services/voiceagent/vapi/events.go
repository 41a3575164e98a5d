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
	"encoding/json"
	"fmt"
	"strconv"
)

// Event types sent to the server URL.
const (
	EventAssistantRequest = "assistant-request"
	EventStatusUpdate     = "status-update"
	EventTranscript       = "transcript"
	EventEndOfCallReport  = "end-of-call-report"
	EventFunctionCall     = "function-call"
	EventToolCalls        = "tool-calls"
)

// noAnswerReasons are end reasons meaning a transfer rang out or hit
// voicemail.
var noAnswerReasons = map[string]bool{
	"call.forwarding.operator-busy": true,
	"voicemail":                     true,
}

// IsNoAnswer reports whether an end reason means nobody picked up a
// transferred call.
func IsNoAnswer(reason string) bool { return noAnswerReasons[reason] }

// Event is a call-lifecycle webhook.
type Event struct {
	Type            string
	CallID          string
	Status          string
	EndedReason     string
	DurationSeconds float64
	Transcript      string
	// CustomVariables carries assistant-set values such as caller_name and
	// attempted_agent_name.
	CustomVariables map[string]string
}

// Var returns a custom variable or "".
func (e Event) Var(key string) string { return e.CustomVariables[key] }

// node is a decoded JSON object with path helpers.
type node map[string]any

func (n node) child(key string) node {
	if n == nil {
		return nil
	}
	m, _ := n[key].(map[string]any)
	return node(m)
}

func (n node) str(key string) string {
	if n == nil {
		return ""
	}
	switch v := n[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (n node) num(key string) float64 {
	if n == nil {
		return 0
	}
	switch v := n[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// firstStr returns the first non-empty value of key across nodes.
func firstStr(key string, nodes ...node) string {
	for _, n := range nodes {
		if s := n.str(key); s != "" {
			return s
		}
	}
	return ""
}

// ParseEvent decodes a call-lifecycle webhook.
//
// Description:
//
//	Every field is looked up under "message" first and then at the top
//	level, since both layouts are delivered. The end reason is the first
//	of endReason, endedReason and call.endedReason. Custom variables come
//	from summary.customVariables (summary may be a string, which carries
//	none) and are completed from call.assistantOverrides.variableValues.
//
// Outputs:
//   - Event: Decoded event. Unknown types are returned, not rejected.
//   - error: ErrMalformedBody if body is not a JSON object.
func ParseEvent(body []byte) (Event, error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	top := node(root)
	msg := top.child("message")
	layers := []node{msg, top}

	var call node
	for _, l := range layers {
		if c := l.child("call"); c != nil {
			call = c
			break
		}
	}

	ev := Event{
		Type:            firstStr("type", layers...),
		CallID:          call.str("id"),
		Status:          firstStr("status", layers...),
		CustomVariables: map[string]string{},
	}
	if ev.Status == "" {
		ev.Status = call.str("status")
	}

	ev.EndedReason = firstStr("endReason", layers...)
	if ev.EndedReason == "" {
		ev.EndedReason = firstStr("endedReason", layers...)
	}
	if ev.EndedReason == "" {
		ev.EndedReason = call.str("endedReason")
	}

	for _, l := range layers {
		if d := l.num("durationSeconds"); d > 0 {
			ev.DurationSeconds = d
			break
		}
	}
	if ev.DurationSeconds == 0 {
		ev.DurationSeconds = call.num("duration")
	}

	for _, l := range layers {
		if t := l.str("transcript"); t != "" {
			ev.Transcript = t
			break
		}
		if t := l.child("transcript").str("text"); t != "" {
			ev.Transcript = t
			break
		}
	}

	for _, l := range layers {
		collectVars(ev.CustomVariables, l.child("summary").child("customVariables"))
	}
	collectVars(ev.CustomVariables, call.child("assistantOverrides").child("variableValues"))
	return ev, nil
}

// collectVars copies scalar values from src into dst without overwriting.
func collectVars(dst map[string]string, src node) {
	for k := range src {
		if _, exists := dst[k]; exists {
			continue
		}
		if v := src.str(k); v != "" {
			dst[k] = v
		}
	}
}
