// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package voiceagent

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/ledger"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/transfer"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/vapi"
)

// =============================================================================
// Voice platform events
// =============================================================================

func TestVapiEvents_SimpleTypes(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":{"type":"assistant-request","call":{"id":"c1"}}}`, "processed"},
		{`{"message":{"type":"status-update","status":"ringing","call":{"id":"c1"}}}`, "processed"},
		{`{"message":{"type":"transcript","transcript":"hello my number is 352-555-0199"}}`, "processed"},
		{`{"message":{"type":"function-call"}}`, "acknowledged"},
		{`{"message":{"type":"tool-calls"}}`, "acknowledged"},
		{`{"message":{"type":"hang"}}`, "unknown_event_type"},
	}
	h := newHarness(t, nil)
	for _, tt := range tests {
		w := h.do(http.MethodPost, "/webhooks/vapi/events", []byte(tt.body), nil)
		require.Equal(t, http.StatusOK, w.Code, tt.body)
		assert.Equal(t, tt.want, decodeMap(t, w)["status"], tt.body)
	}
	assert.Empty(t, h.escalations.notices)
}

func TestVapiEvents_InvalidBody(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodPost, "/webhooks/vapi/events", []byte(`[1,2]`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVapiEvents_EndOfCallAnswered(t *testing.T) {
	h := newHarness(t, nil)
	body := `{"message":{"type":"end-of-call-report","endedReason":"customer-ended-call","durationSeconds":42,"call":{"id":"c1"}}}`
	w := h.do(http.MethodPost, "/webhooks/vapi/events", []byte(body), nil)

	require.Equal(t, http.StatusOK, w.Code)
	m := decodeMap(t, w)
	assert.Equal(t, "processed", m["status"])
	assert.Equal(t, "c1", m["call_id"])
	assert.Equal(t, float64(42), m["duration"])
	assert.Equal(t, false, m["no_answer_notified"])
	assert.Empty(t, h.escalations.notices)
}

func TestVapiEvents_NoAnswerUsesCustomVariables(t *testing.T) {
	h := newHarness(t, nil)
	body := `{"message":{"type":"end-of-call-report","endedReason":"voicemail","call":{"id":"c2"},
		"summary":{"customVariables":{"caller_name":"Pat Buyer","caller_phone":"+13525550199",
		"attempted_agent_name":"Kim Coffer","attempted_agent_phone":"+13526267671"}}}}`
	w := h.do(http.MethodPost, "/webhooks/vapi/events", []byte(body), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeMap(t, w)["no_answer_notified"])
	require.Len(t, h.escalations.notices, 1)
	assert.Equal(t, notify.NoAnswerNotice{
		CallID:              "c2",
		CallerName:          "Pat Buyer",
		CallerPhone:         "+13525550199",
		AttemptedAgentName:  "Kim Coffer",
		AttemptedAgentPhone: "+13526267671",
		EndedReason:         "voicemail",
	}, h.escalations.notices[0])
}

func TestVapiEvents_NoAnswerFillsBlanksFromLedger(t *testing.T) {
	attempts := ledger.NewMemory(time.Hour)
	require.NoError(t, attempts.Record(context.Background(), ledger.Attempt{
		CallID:      "c3",
		CallerName:  "Pat Buyer",
		CallerPhone: "+13525550199",
		AgentName:   "Sally Love",
		AgentPhone:  "+13524306960",
	}))
	h := newHarness(t, func(d *Deps) { d.Attempts = attempts })

	body := `{"message":{"type":"end-of-call-report","endedReason":"call.forwarding.operator-busy","call":{"id":"c3",
		"assistantOverrides":{"variableValues":{"caller_name":"Patricia"}}}}}`
	w := h.do(http.MethodPost, "/webhooks/vapi/events", []byte(body), nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.escalations.notices, 1)
	n := h.escalations.notices[0]
	assert.Equal(t, "Patricia", n.CallerName, "call variables win over the ledger")
	assert.Equal(t, "+13525550199", n.CallerPhone)
	assert.Equal(t, "Sally Love", n.AttemptedAgentName)
	assert.Equal(t, "+13524306960", n.AttemptedAgentPhone)
}

func TestVapiEvents_NoAnswerWithoutLedgerEntry(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Attempts = ledger.NewMemory(time.Hour) })
	body := `{"message":{"type":"end-of-call-report","endedReason":"voicemail","call":{"id":"unknown"}}}`
	w := h.do(http.MethodPost, "/webhooks/vapi/events", []byte(body), nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.escalations.notices, 1)
	assert.Empty(t, h.escalations.notices[0].CallerName)
}

// =============================================================================
// Transfer followed by a no-answer report
// =============================================================================

type failureSink struct {
	mu      sync.Mutex
	notices []notify.FailureNotice
}

func (f *failureSink) NotifyFailure(_ context.Context, n notify.FailureNotice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
}

type controlRequest struct {
	path    string
	payload map[string]any
}

func TestTransferThenNoAnswer(t *testing.T) {
	var (
		mu       sync.Mutex
		received []controlRequest
	)
	control := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var p map[string]any
		_ = json.Unmarshal(raw, &p)
		mu.Lock()
		received = append(received, controlRequest{path: r.URL.Path, payload: p})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer control.Close()

	attempts := ledger.NewMemory(time.Hour)
	failures := &failureSink{}
	h := newHarness(t, func(d *Deps) {
		rosterStore := d.Roster.(transfer.Roster)
		d.Router = transfer.NewPipeline(transfer.Deps{
			Resolver:  transfer.NewResolver(rosterStore, config.TestMode{}, nil, discardLogger()),
			Executor:  vapi.NewControlClient(2*time.Second, discardLogger()),
			Escalator: failures,
			Recorder:  attempts,
			Logger:    discardLogger(),
		})
		d.Attempts = attempts
	})

	w := h.do(http.MethodPost, "/functions/route_to_agent", transferBody(t, control.URL+"/call/abc", transferArgs()), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeFunction(t, w.Body.Bytes())

	require.True(t, resp.Success, resp.Results)
	assert.Contains(t, spoken(t, resp), "transferring you to Kim Coffer")
	assert.Equal(t, "+13526267671", resp.Data["agent_phone"])
	assert.Equal(t, true, resp.Data["verified"])
	assert.Empty(t, failures.notices)

	mu.Lock()
	require.Len(t, received, 1)
	assert.Equal(t, "/call/abc/control", received[0].path)
	assert.Equal(t, "transfer", received[0].payload["type"])
	assert.Equal(t, map[string]any{"type": "number", "number": "+13526267671"}, received[0].payload["destination"])
	mu.Unlock()

	body := `{"message":{"type":"end-of-call-report","endedReason":"voicemail","call":{"id":"vapi-call-9"}}}`
	w = h.do(http.MethodPost, "/webhooks/vapi/events", []byte(body), nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, h.escalations.notices, 1)
	n := h.escalations.notices[0]
	assert.Equal(t, "Pat Buyer", n.CallerName)
	assert.Equal(t, "352-555-0199", n.CallerPhone)
	assert.Equal(t, "Kim Coffer", n.AttemptedAgentName)
	assert.Equal(t, "+13526267671", n.AttemptedAgentPhone)
}

func TestTransferGateBlocksIncompleteLead(t *testing.T) {
	failures := &failureSink{}
	h := newHarness(t, func(d *Deps) {
		d.Router = transfer.NewPipeline(transfer.Deps{
			Resolver:  transfer.NewResolver(d.Roster.(transfer.Roster), config.TestMode{}, nil, discardLogger()),
			Executor:  vapi.NewControlClient(time.Second, discardLogger()),
			Escalator: failures,
			Logger:    discardLogger(),
		})
	})

	args := transferArgs()
	delete(args, "lead_id")
	w := h.do(http.MethodPost, "/functions/route_to_agent", transferBody(t, "https://control.invalid/x", args), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeFunction(t, w.Body.Bytes())

	assert.False(t, resp.Success)
	assert.Equal(t, "BLOCKED", resp.Data["state"])
	assert.Equal(t, "gate", resp.Data["reason"])
	assert.Equal(t, []any{"lead_id"}, resp.Data["missing"])
	assert.Empty(t, failures.notices)
}

// =============================================================================
// CRM events
// =============================================================================

func TestCRMEvents(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  string
		idField string
	}{
		{"contact", `{"event":"contact.created","data":{"id":17}}`, "processed", "contact_id"},
		{"lead", `{"event":"lead.created","data":{"id":"L9"}}`, "processed", "lead_id"},
		{"assigned", `{"event":"lead.assigned","data":{"id":"L9","agentId":3}}`, "processed", "lead_id"},
		{"unknown", `{"event":"listing.updated","data":{}}`, "unknown_event_type", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			w := h.do(http.MethodPost, "/webhooks/crm/events", []byte(tt.body), nil)
			require.Equal(t, http.StatusOK, w.Code)
			m := decodeMap(t, w)
			assert.Equal(t, tt.status, m["status"])
			if tt.idField != "" {
				assert.NotEmpty(t, m[tt.idField])
			}
			assert.Empty(t, h.notifier.sms)
		})
	}
}

func TestCRMEvents_AppointmentTexts(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodPost, "/webhooks/crm/events",
		[]byte(`{"event":"appointment.created","data":{"id":"A1","contactPhone":"+13525550199","date":"June 3 at 2pm"}}`), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/webhooks/crm/events",
		[]byte(`{"event":"appointment.reminder","data":{"id":"A1","contactPhone":"+13525550199","date":"June 3 at 2pm","propertyAddress":"1205 Bramble Way"}}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "processed", decodeMap(t, w)["status"])

	require.Len(t, h.notifier.sms, 2)
	assert.Equal(t, "Your appointment has been confirmed for June 3 at 2pm. We'll send you a reminder before the "+
		"appointment. - Sally Love Real Estate", h.notifier.sms[0].body)
	assert.Equal(t, "Reminder: Your showing at 1205 Bramble Way is scheduled for June 3 at 2pm. See you soon! "+
		"- Sally Love Real Estate", h.notifier.sms[1].body)
}

func TestCRMEvents_ReminderFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.smsErr = errCRMDown

	w := h.do(http.MethodPost, "/webhooks/crm/events",
		[]byte(`{"event":"appointment.reminder","data":{"id":"A1","contactPhone":"+13525550199"}}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "error", decodeMap(t, w)["status"])
}

// =============================================================================
// Form provider
// =============================================================================

const formBody = `{"type":"form_submission","contactId":"ghl-1","locationId":"loc-1",
	"contact":{"name":"Pat Buyer","email":"pat@example.com","phone":"352-555-0199"},
	"formData":{"interest":"buying","phone":"352-555-0199"}}`

func TestGHLFormSubmission_PlacesCall(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(formBody), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decodeMap(t, w)
	assert.Equal(t, "success", m["status"])
	assert.Equal(t, "vapi-call-1", m["vapi_call_id"])
	assert.Equal(t, "ghl-1", m["ghl_contact_id"])

	require.Len(t, h.caller.calls, 1)
	oc := h.caller.calls[0]
	assert.Equal(t, vapi.Customer{Number: "352-555-0199", Name: "Pat Buyer", Email: "pat@example.com"}, oc.Customer)
	assert.Equal(t, "ghl_form_submission", oc.Metadata["source"])
	assert.Equal(t, "ghl-1", oc.Metadata["ghl_contact_id"])
	assert.JSONEq(t, `{"interest":"buying","phone":"352-555-0199"}`, oc.Metadata["form_data"])
	assert.NotContains(t, oc.Metadata, "submitted_at")
}

func TestGHLFormSubmission_PhoneFromFormData(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(`{"formData":{"phone":"3525550123"}}`), nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.caller.calls, 1)
	assert.Equal(t, "3525550123", h.caller.calls[0].Customer.Number)
	assert.Equal(t, "Unknown", h.caller.calls[0].Customer.Name)
}

func TestGHLFormSubmission_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"no phone", `{"contact":{"name":"Pat"}}`, http.StatusBadRequest, "MISSING_PARAMETER"},
		{"bad phone", `{"phone":"12"}`, http.StatusBadRequest, "INVALID_PHONE"},
		{"not json", `nope`, http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			w := h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(tt.body), nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeMap(t, w)["code"])
			assert.Empty(t, h.caller.calls)
		})
	}
}

func TestGHLFormSubmission_CallerUnavailable(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.Caller = nil })
		w := h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(formBody), nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("client not configured", func(t *testing.T) {
		h := newHarness(t, nil)
		h.caller.err = vapi.ErrNotConfigured
		w := h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(formBody), nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "OUTBOUND_CALL_FAILED", decodeMap(t, w)["code"])
	})

	t.Run("platform error", func(t *testing.T) {
		h := newHarness(t, nil)
		h.caller.err = &vapi.APIError{StatusCode: 400, Body: "bad assistant"}
		w := h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(formBody), nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGHLFormSubmission_Signature(t *testing.T) {
	const key = "shh"
	sign := func(body string) string {
		mac := hmac.New(sha256.New, []byte(key))
		mac.Write([]byte(body))
		return hex.EncodeToString(mac.Sum(nil))
	}
	h := newHarness(t, func(d *Deps) { d.Secrets = secrets.Static{secrets.GHLWebhookKey: key} })

	w := h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(formBody), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(formBody),
		http.Header{ghlSignatureHeader: {"deadbeef"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, h.caller.calls)

	w = h.do(http.MethodPost, "/webhooks/ghl/form-submission", []byte(formBody),
		http.Header{ghlSignatureHeader: {sign(formBody)}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, h.caller.calls, 1)
}

func TestGHLCallStatusAndTest(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodPost, "/webhooks/ghl/call-status", []byte(`{"callId":"vc-1","status":"ended","duration":31}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := decodeMap(t, w)
	assert.Equal(t, "acknowledged", m["status"])
	assert.Equal(t, "vc-1", m["call_id"])
	assert.Equal(t, "ended", m["call_status"])

	w = h.do(http.MethodPost, "/webhooks/ghl/test", []byte(`{"ping":1}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	m = decodeMap(t, w)
	assert.Equal(t, "success", m["status"])
	assert.Equal(t, map[string]any{"ping": float64(1)}, m["received"])
}
