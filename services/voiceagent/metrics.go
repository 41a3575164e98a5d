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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Functions and Webhooks
// =============================================================================

var (
	// functionCallsTotal counts function endpoint invocations.
	// Labels: function, success (true, false)
	functionCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "functions",
		Name:      "calls_total",
		Help:      "Function endpoint invocations by outcome",
	}, []string{"function", "success"})

	// webhookEventsTotal counts inbound webhook events.
	// Labels: source (vapi, crm, ghl), event
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "webhooks",
		Name:      "events_total",
		Help:      "Inbound webhook events by source and type",
	}, []string{"source", "event"})

	// noAnswerTotal counts transferred calls that rang out.
	noAnswerTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "webhooks",
		Name:      "transfer_no_answer_total",
		Help:      "End-of-call reports whose end reason means the transfer was not picked up",
	})
)

func recordFunction(name string, ok bool) {
	success := "false"
	if ok {
		success = "true"
	}
	functionCallsTotal.WithLabelValues(name, success).Inc()
}

func recordWebhook(source, event string) {
	if event == "" {
		event = "unknown"
	}
	webhookEventsTotal.WithLabelValues(source, event).Inc()
}
