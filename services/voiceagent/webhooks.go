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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/crm"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/ledger"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/redact"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/vapi"
)

// =============================================================================
// Voice platform events
// =============================================================================

var knownVapiEvents = map[string]bool{
	vapi.EventAssistantRequest: true,
	vapi.EventStatusUpdate:     true,
	vapi.EventTranscript:       true,
	vapi.EventEndOfCallReport:  true,
	vapi.EventFunctionCall:     true,
	vapi.EventToolCalls:        true,
}

// HandleVapiEvents handles POST /webhooks/vapi/events.
//
// Description:
//
//	Dispatches call-lifecycle events by type. An end-of-call report whose
//	end reason means a transfer rang out or reached voicemail alerts the
//	supervisor; caller and agent details come from the call's custom
//	variables and, when those are missing, from the transfer ledger.
//
// Response:
//
//	200 OK: {"status": "processed" | "acknowledged" | "unknown_event_type"}
//	400 Bad Request: Body is not a JSON object
func (h *Handlers) HandleVapiEvents(c *gin.Context) {
	logger := h.requestLogger(c, "HandleVapiEvents")
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read body", Code: "INVALID_BODY"})
		return
	}
	ev, err := vapi.ParseEvent(body)
	if err != nil {
		logger.Warn("unparseable voice platform event", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}
	label := ev.Type
	if !knownVapiEvents[label] {
		label = "unknown"
	}
	recordWebhook("vapi", label)
	logger = logger.With(slog.String("event", ev.Type), slog.String("call_id", ev.CallID))

	switch ev.Type {
	case vapi.EventAssistantRequest:
		logger.Info("assistant requested")
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	case vapi.EventStatusUpdate:
		logger.Info("call status changed", slog.String("status", ev.Status))
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	case vapi.EventTranscript:
		logger.Debug("transcript received", slog.String("text", redact.Truncate(redact.SafeLogString(ev.Transcript), 200)))
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	case vapi.EventEndOfCallReport:
		notified := h.handleEndOfCall(c.Request.Context(), ev, logger)
		c.JSON(http.StatusOK, gin.H{
			"status":             "processed",
			"call_id":            ev.CallID,
			"duration":           ev.DurationSeconds,
			"no_answer_notified": notified,
		})
	case vapi.EventFunctionCall, vapi.EventToolCalls:
		// Functions are served on their own endpoints.
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
	default:
		logger.Warn("unknown voice platform event type")
		c.JSON(http.StatusOK, gin.H{"status": "unknown_event_type", "type": ev.Type})
	}
}

// handleEndOfCall alerts the supervisor when a transferred call was not
// picked up. It reports whether an alert was queued.
func (h *Handlers) handleEndOfCall(ctx context.Context, ev vapi.Event, logger *slog.Logger) bool {
	logger.Info("call ended",
		slog.Float64("duration_seconds", ev.DurationSeconds),
		slog.String("ended_reason", ev.EndedReason))
	if !vapi.IsNoAnswer(ev.EndedReason) {
		return false
	}
	noAnswerTotal.Inc()

	n := notify.NoAnswerNotice{
		CallID:              ev.CallID,
		CallerName:          ev.Var("caller_name"),
		CallerPhone:         ev.Var("caller_phone"),
		AttemptedAgentName:  ev.Var("attempted_agent_name"),
		AttemptedAgentPhone: ev.Var("attempted_agent_phone"),
		EndedReason:         ev.EndedReason,
	}
	incomplete := n.CallerName == "" || n.CallerPhone == "" || n.AttemptedAgentName == "" || n.AttemptedAgentPhone == ""
	if incomplete && h.attempts != nil && ev.CallID != "" {
		a, err := h.attempts.Latest(ctx, ev.CallID)
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			logger.Info("no recorded transfer for call")
		case err != nil:
			logger.Warn("transfer ledger lookup failed", slog.String("error", err.Error()))
		default:
			n.CallerName = orDefault(n.CallerName, a.CallerName)
			n.CallerPhone = orDefault(n.CallerPhone, a.CallerPhone)
			n.AttemptedAgentName = orDefault(n.AttemptedAgentName, a.AgentName)
			n.AttemptedAgentPhone = orDefault(n.AttemptedAgentPhone, a.AgentPhone)
		}
	}
	if h.escalations == nil {
		logger.Warn("transfer not answered but no escalator configured")
		return false
	}
	logger.Info("transfer not answered, alerting supervisor")
	h.escalations.NotifyNoAnswer(ctx, n)
	return true
}

// HandleVapiHealth handles GET /webhooks/vapi/health.
func (h *Handlers) HandleVapiHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "vapi_webhooks"})
}

// =============================================================================
// CRM events
// =============================================================================

type crmEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID              crm.ID `json:"id"`
		AgentID         crm.ID `json:"agentId"`
		ContactPhone    string `json:"contactPhone"`
		Date            string `json:"date"`
		PropertyAddress string `json:"propertyAddress"`
	} `json:"data"`
}

// HandleCRMEvents handles POST /webhooks/crm/events.
//
// Description:
//
//	Contact and lead events are logged. Appointment events text the
//	contact a confirmation or reminder.
func (h *Handlers) HandleCRMEvents(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCRMEvents")
	var ev crmEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}
	id := string(ev.Data.ID)
	logger = logger.With(slog.String("event", ev.Event), slog.String("id", id))
	ctx := c.Request.Context()

	switch ev.Event {
	case "contact.created", "contact.updated":
		recordWebhook("crm", ev.Event)
		logger.Info("crm contact event")
		c.JSON(http.StatusOK, gin.H{"status": "processed", "contact_id": id})
	case "lead.created":
		recordWebhook("crm", ev.Event)
		logger.Info("crm lead created")
		c.JSON(http.StatusOK, gin.H{"status": "processed", "lead_id": id})
	case "lead.assigned":
		recordWebhook("crm", ev.Event)
		logger.Info("crm lead assigned", slog.String("agent_id", string(ev.Data.AgentID)))
		c.JSON(http.StatusOK, gin.H{"status": "processed", "lead_id": id, "agent_id": ev.Data.AgentID})
	case "appointment.created":
		recordWebhook("crm", ev.Event)
		if ev.Data.ContactPhone != "" {
			msg := fmt.Sprintf("Your appointment has been confirmed for %s. We'll send you a reminder before the "+
				"appointment. - %s", ev.Data.Date, h.businessName())
			if err := h.notifier.SendSMS(ctx, ev.Data.ContactPhone, msg); err != nil {
				logger.Warn("appointment confirmation failed", slog.String("error", err.Error()))
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "processed", "appointment_id": id})
	case "appointment.reminder":
		recordWebhook("crm", ev.Event)
		if ev.Data.ContactPhone != "" {
			msg := fmt.Sprintf("Reminder: Your showing at %s is scheduled for %s. See you soon! - %s",
				orDefault(ev.Data.PropertyAddress, "your appointment"), ev.Data.Date, h.businessName())
			if err := h.notifier.SendSMS(ctx, ev.Data.ContactPhone, msg); err != nil {
				logger.Error("appointment reminder failed", slog.String("error", err.Error()))
				c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "processed", "appointment_id": id})
	default:
		recordWebhook("crm", "unknown")
		logger.Warn("unknown crm event type")
		c.JSON(http.StatusOK, gin.H{"status": "unknown_event_type", "type": ev.Event})
	}
}

// HandleCRMHealth handles GET /webhooks/crm/health.
func (h *Handlers) HandleCRMHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "crm_webhooks"})
}

// =============================================================================
// Form provider (GoHighLevel)
// =============================================================================

const ghlSignatureHeader = "X-GHL-Signature"

type ghlFormSubmission struct {
	Type        string `json:"type"`
	ContactID   string `json:"contactId"`
	LocationID  string `json:"locationId"`
	SubmittedAt string `json:"submittedAt"`
	Phone       string `json:"phone"`
	Contact     struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contact"`
	FormData map[string]any `json:"formData"`
}

func (f ghlFormSubmission) phone() string {
	if f.Contact.Phone != "" {
		return f.Contact.Phone
	}
	if p, ok := f.FormData["phone"].(string); ok && p != "" {
		return p
	}
	return f.Phone
}

// verifySignature checks the hex HMAC-SHA256 of body. With no secret
// configured every request passes.
func (h *Handlers) verifySignature(c *gin.Context, body []byte) bool {
	if h.secrets == nil || !h.secrets.Has(secrets.GHLWebhookKey) {
		return true
	}
	key, err := h.secrets.Secret(c.Request.Context(), secrets.GHLWebhookKey)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	got := strings.ToLower(strings.TrimSpace(c.GetHeader(ghlSignatureHeader)))
	return hmac.Equal([]byte(got), []byte(want))
}

// HandleGHLFormSubmission handles POST /webhooks/ghl/form-submission.
//
// Description:
//
//	A website form lead gets an immediate outbound call from the assistant.
//	The phone is read from contact.phone, formData.phone, then phone.
//
// Response:
//
//	200 OK: {"status": "success", "vapi_call_id": ...}
//	400 Bad Request: Body unreadable or no usable phone number
//	401 Unauthorized: Signature mismatch (only when a secret is configured)
//	503 Service Unavailable: Outbound calling not configured
//	500 Internal Server Error: The voice platform refused the call
func (h *Handlers) HandleGHLFormSubmission(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGHLFormSubmission")
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read body", Code: "INVALID_BODY"})
		return
	}
	if !h.verifySignature(c, body) {
		logger.Warn("form submission signature mismatch")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature", Code: "INVALID_SIGNATURE"})
		return
	}
	var form ghlFormSubmission
	if err := json.Unmarshal(body, &form); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}
	recordWebhook("ghl", "form_submission")

	userPhone := strings.TrimSpace(form.phone())
	if userPhone == "" {
		logger.Error("form submission without phone number")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing phone number in form submission", Code: "MISSING_PARAMETER"})
		return
	}
	if _, ok := phone.ToE164(userPhone); !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Phone number is not a valid US number", Code: "INVALID_PHONE"})
		return
	}
	name := orDefault(form.Contact.Name, "Unknown")
	if h.caller == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "outbound calling not configured", Code: "NOT_CONFIGURED"})
		return
	}

	meta := map[string]string{
		"source":    "ghl_form_submission",
		"call_type": "outbound",
		"trigger":   "form_submission",
	}
	for k, v := range map[string]string{
		"ghl_contact_id":  form.ContactID,
		"ghl_location_id": form.LocationID,
		"submitted_at":    form.SubmittedAt,
	} {
		if v != "" {
			meta[k] = v
		}
	}
	if len(form.FormData) > 0 {
		if b, err := json.Marshal(form.FormData); err == nil {
			meta["form_data"] = string(b)
		}
	}

	call, err := h.caller.CreatePhoneCall(c.Request.Context(), vapi.OutboundCall{
		Customer: vapi.Customer{Number: userPhone, Name: name, Email: form.Contact.Email},
		Metadata: meta,
	})
	if err != nil {
		logger.Error("outbound call failed", slog.String("error", err.Error()))
		status := http.StatusInternalServerError
		if errors.Is(err, vapi.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, ErrorResponse{Error: "Failed to trigger voice agent: " + err.Error(), Code: "OUTBOUND_CALL_FAILED"})
		return
	}
	logger.Info("outbound call placed for form lead", slog.String("vapi_call_id", call.ID))

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"message":        "Outbound call initiated - user will receive a call shortly",
		"ghl_contact_id": form.ContactID,
		"vapi_call_id":   call.ID,
		"user":           gin.H{"phone": userPhone, "name": name, "email": form.Contact.Email},
		"form_data":      form.FormData,
	})
}

// HandleGHLCallStatus handles POST /webhooks/ghl/call-status.
func (h *Handlers) HandleGHLCallStatus(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGHLCallStatus")
	var body struct {
		CallID       string  `json:"callId"`
		Status       string  `json:"status"`
		Duration     float64 `json:"duration"`
		RecordingURL string  `json:"recordingUrl"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}
	recordWebhook("ghl", "call_status")
	logger.Info("form-lead call status",
		slog.String("call_id", body.CallID),
		slog.String("status", body.Status),
		slog.Float64("duration", body.Duration))
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "call_id": body.CallID, "call_status": body.Status})
}

// HandleGHLTest handles POST /webhooks/ghl/test for webhook setup checks.
func (h *Handlers) HandleGHLTest(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     "GHL webhook test successful",
		"received":    payload,
		"webhook_url": c.Request.URL.String(),
	})
}
