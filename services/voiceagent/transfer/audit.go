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
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
)

// Auditor writes the transfer audit trail.
//
// Description:
//
//	One structured entry per decision: resolution, substitution, test
//	override, execution, block and escalation. Entries carry trace_id and
//	span_id when the context holds a span. Caller numbers are masked to
//	their last four digits; agent and office numbers are business lines
//	and are logged in full.
//
// Thread Safety: Safe for concurrent use (slog.Logger is concurrent-safe).
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates an auditor. A nil logger uses slog.Default().
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{logger: logger.With("audit", "transfer"), enabled: enabled}
}

// LogResolved records a destination confirmed against the roster.
func (a *Auditor) LogResolved(ctx context.Context, callID string, res Resolution) {
	if a == nil || !a.enabled {
		return
	}
	a.loggerWithTrace(ctx).Info("transfer destination resolved",
		slog.String("event", "transfer_resolved"),
		slog.String("call_id", callID),
		slog.String("source", string(res.Source)),
		slog.String("agent_name", res.AgentName),
		slog.String("agent_phone", res.AgentPhone),
		slog.Bool("verified", res.Verified),
		slog.Int64("timestamp", time.Now().UnixMilli()),
	)
}

// LogSubstituted records that the requested agent could not be validated
// and another destination was used in its place.
func (a *Auditor) LogSubstituted(ctx context.Context, callID string, res Resolution) {
	if a == nil || !a.enabled {
		return
	}
	a.loggerWithTrace(ctx).Warn("requested agent not in roster, substituting",
		slog.String("event", "transfer_substituted"),
		slog.String("call_id", callID),
		slog.String("requested_name", res.RequestedName),
		slog.String("requested_phone", res.RequestedPhone),
		slog.String("substituted_name", res.AgentName),
		slog.String("substituted_phone", res.AgentPhone),
		slog.String("source", string(res.Source)),
		slog.Int64("timestamp", time.Now().UnixMilli()),
	)
}

// LogTestOverride records that test mode replaced the real destination.
func (a *Auditor) LogTestOverride(ctx context.Context, callID string, res Resolution) {
	if a == nil || !a.enabled {
		return
	}
	a.loggerWithTrace(ctx).Warn("TEST MODE: transfer destination overridden",
		slog.String("event", "transfer_test_override"),
		slog.Bool("test_mode", true),
		slog.String("call_id", callID),
		slog.String("original_name", res.OriginalName),
		slog.String("original_phone", res.OriginalPhone),
		slog.String("test_name", res.AgentName),
		slog.String("test_phone", res.AgentPhone),
	)
}

// LogExecuted records the outcome of one control-endpoint POST.
func (a *Auditor) LogExecuted(ctx context.Context, callID string, res Resolution, fallback bool, err error) {
	if a == nil || !a.enabled {
		return
	}
	attrs := []any{
		slog.String("call_id", callID),
		slog.String("agent_name", res.AgentName),
		slog.String("agent_phone", res.AgentPhone),
		slog.Bool("verified", res.Verified),
		slog.Bool("fallback", fallback),
		slog.Bool("test_mode", res.TestOverride),
		slog.Int64("timestamp", time.Now().UnixMilli()),
	}
	logger := a.loggerWithTrace(ctx)
	if err != nil {
		attrs = append(attrs, slog.String("event", "transfer_failed"), slog.String("error", err.Error()))
		logger.Error("transfer execution failed", attrs...)
		return
	}
	attrs = append(attrs, slog.String("event", "transfer_executed"))
	logger.Info("transfer executed", attrs...)
}

// LogBlocked records a call that ended without a live transfer.
func (a *Auditor) LogBlocked(ctx context.Context, callID string, req Request, reason BlockReason, missing []string) {
	if a == nil || !a.enabled {
		return
	}
	a.loggerWithTrace(ctx).Warn("transfer blocked",
		slog.String("event", "transfer_blocked"),
		slog.String("call_id", callID),
		slog.String("reason", string(reason)),
		slog.Any("missing", missing),
		slog.String("lead_id", req.LeadID),
		slog.String("caller_phone", maskPhone(req.CallerPhone)),
		slog.String("requested_agent", req.AgentName),
	)
}

// LogEscalated records that a human was alerted about this call.
func (a *Auditor) LogEscalated(ctx context.Context, callID string, kind string) {
	if a == nil || !a.enabled {
		return
	}
	a.loggerWithTrace(ctx).Info("transfer escalated",
		slog.String("event", "transfer_escalated"),
		slog.String("call_id", callID),
		slog.String("kind", kind),
	)
}

// loggerWithTrace enriches the logger with trace_id and span_id from ctx.
func (a *Auditor) loggerWithTrace(ctx context.Context) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return a.logger
	}
	return a.logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// maskPhone keeps the last four digits of a caller number.
func maskPhone(s string) string {
	d := phone.Digits(s)
	if len(d) <= 4 {
		return d
	}
	return "***" + d[len(d)-4:]
}
