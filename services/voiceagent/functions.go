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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/transfer"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/vapi"
)

// maxBodyBytes bounds every webhook and function body.
const maxBodyBytes = 1 << 20

// Function names, used as metric labels and in logs.
const (
	fnCheckProperty    = "check_property"
	fnGetAgentInfo     = "get_agent_info"
	fnRouteToAgent     = "route_to_agent"
	fnCreateBuyerLead  = "create_buyer_lead"
	fnCreateSellerLead = "create_seller_lead"
	fnSendNotification = "send_notification"
)

// readBody reads a bounded request body.
func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
}

// parseFunction extracts the tool call from a function request. On failure
// it writes a 400 and returns false.
func (h *Handlers) parseFunction(c *gin.Context, logger *slog.Logger) (vapi.ToolCall, bool) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read body", Code: "INVALID_BODY"})
		return vapi.ToolCall{}, false
	}
	tc, err := vapi.ParseFunctionRequest(body)
	if err != nil {
		logger.Warn("unparseable function request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return vapi.ToolCall{}, false
	}
	return tc, true
}

// reply writes resp with the spoken line keyed to the tool call.
func (h *Handlers) reply(c *gin.Context, function string, tc vapi.ToolCall, resp FunctionResponse) {
	resp.Results = []ToolResult{{ToolCallID: tc.ID, Result: resp.spokenText()}}
	recordFunction(function, resp.Success)
	c.JSON(http.StatusOK, resp)
}

// missingFields lists the JSON names of fields that failed validation.
func missingFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}

// spokenFieldList turns ["first_name", "phone"] into "first name and phone".
func spokenFieldList(fields []string) string {
	words := make([]string, len(fields))
	for i, f := range fields {
		words[i] = strings.ReplaceAll(f, "_", " ")
	}
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}

// =============================================================================
// route_to_agent
// =============================================================================

// HandleRouteToAgent handles POST /functions/route_to_agent.
//
// Description:
//
//	Runs the transfer pipeline for the live call named in the webhook. A
//	body without a usable tool call or control URL is rejected through the
//	pipeline so the caller still hears an apology and the office is told.
//
// Response:
//
//	200 OK: FunctionResponse. Success is true only when a transfer was
//	executed. The spoken line is always the pipeline's message.
func (h *Handlers) HandleRouteToAgent(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRouteToAgent")
	ctx := c.Request.Context()

	var (
		sess transfer.Session
		req  transfer.Request
		tc   vapi.ToolCall
		out  transfer.Outcome
	)
	body, err := readBody(c)
	if err == nil {
		sess, req, tc, err = vapi.ParseTransfer(body)
	} else {
		err = errors.Join(vapi.ErrMalformedBody, err)
	}
	if err != nil {
		logger.Error("transfer webhook unusable", slog.String("error", err.Error()), slog.String("call_id", sess.CallID))
		out = h.router.Reject(ctx, sess, req, err)
	} else {
		out = h.router.Route(ctx, sess, req)
	}

	logger.Info("route_to_agent finished",
		slog.String("call_id", sess.CallID),
		slog.String("state", string(out.State)),
		slog.String("reason", string(out.Reason)),
		slog.Duration("duration", out.Duration))

	h.reply(c, fnRouteToAgent, tc, FunctionResponse{
		Success: out.State == transfer.StateDone && out.Executed,
		Message: out.Message,
		Data: map[string]any{
			"state":         out.State,
			"reason":        out.Reason,
			"agent_name":    out.AgentName,
			"agent_phone":   out.AgentPhone,
			"verified":      out.Verified,
			"executed":      out.Executed,
			"fallback_used": out.FallbackUsed,
			"test_mode":     out.TestOverride,
			"escalated":     out.Escalated,
			"missing":       out.Missing,
		},
		spoken: out.Message,
	})
}

// =============================================================================
// send_notification
// =============================================================================

type sendNotificationArgs struct {
	RecipientPhone   vapi.Text `json:"recipient_phone"`
	RecipientEmail   vapi.Text `json:"recipient_email"`
	Message          vapi.Text `json:"message"`
	NotificationType vapi.Text `json:"notification_type"`
	Subject          vapi.Text `json:"subject"`
}

// HandleSendNotification handles POST /functions/send_notification.
//
// Description:
//
//	Sends a text, an email or both. Success means at least one channel
//	delivered; failed channels are listed either way. Test mode redirects
//	the recipients inside the dispatcher.
func (h *Handlers) HandleSendNotification(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSendNotification")
	tc, ok := h.parseFunction(c, logger)
	if !ok {
		return
	}

	var args sendNotificationArgs
	if err := tc.Decode(&args); err != nil {
		h.reply(c, fnSendNotification, tc, FunctionResponse{
			Error:   "Failed to send notification: " + err.Error(),
			Message: "Notification delivery failed",
		})
		return
	}

	rawType := args.NotificationType.String()
	typ, err := notify.ParseType(rawType)
	if err != nil {
		logger.Warn("invalid notification type", slog.String("type", rawType))
		h.reply(c, fnSendNotification, tc, FunctionResponse{
			Error:   "Failed to send notification: Invalid notification_type '" + rawType + "'. Must be 'sms', 'email', or 'both'.",
			Message: "Notification delivery failed",
		})
		return
	}
	if args.Message.String() == "" {
		h.reply(c, fnSendNotification, tc, FunctionResponse{
			Error:   "Failed to send notification: message is required",
			Message: "Notification delivery failed",
		})
		return
	}

	to := args.RecipientPhone.String()
	if e164, ok := phone.ToE164(to); ok {
		to = e164
	}
	res := h.notifier.Send(c.Request.Context(), notify.Message{
		Type:    typ,
		Phone:   to,
		Email:   args.RecipientEmail.String(),
		Subject: args.Subject.String(),
		Body:    args.Message.String(),
	})

	channels := make([]string, len(res.Channels))
	for i, ch := range res.Channels {
		channels[i] = string(ch)
	}
	if !res.Success() {
		h.reply(c, fnSendNotification, tc, FunctionResponse{
			Error:   "Failed to send notification: " + strings.Join(res.Errors, "; "),
			Message: "Notification delivery failed",
		})
		return
	}

	msg := "Notification sent successfully via " + strings.Join(channels, ", ") + "."
	if len(res.Errors) > 0 {
		msg += " However, some channels failed: " + strings.Join(res.Errors, "; ")
	}
	data := map[string]any{
		"recipient_phone":   res.Phone,
		"recipient_email":   res.Email,
		"channels":          channels,
		"notification_type": string(typ),
		"test_mode":         res.TestOverride,
	}
	if len(res.Errors) > 0 {
		data["errors"] = res.Errors
	}
	h.reply(c, fnSendNotification, tc, FunctionResponse{Success: true, Message: msg, Data: data})
}
