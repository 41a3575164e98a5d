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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Call Transfers
// =============================================================================

var (
	// transferOutcomesTotal counts finished route_to_agent invocations.
	// Labels: state (DONE, BLOCKED), reason (gate, malformed_webhook, no_destination, execution_failed, "")
	transferOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "transfer",
		Name:      "outcomes_total",
		Help:      "Finished transfer requests by terminal state and block reason",
	}, []string{"state", "reason"})

	// transferResolutionsTotal counts destinations by how they were chosen.
	// Labels: source (roster, fallback_agent, office), test_mode (true, false)
	transferResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "transfer",
		Name:      "resolutions_total",
		Help:      "Resolved transfer destinations by source",
	}, []string{"source", "test_mode"})

	// transferExecutionsTotal counts control-endpoint POSTs.
	// Labels: attempt (primary, fallback), status (success, error)
	transferExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "transfer",
		Name:      "executions_total",
		Help:      "Transfer instructions sent to the live call control endpoint",
	}, []string{"attempt", "status"})

	// transferDurationSeconds measures time spent in Pipeline.Route.
	transferDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voiceagent",
		Subsystem: "transfer",
		Name:      "route_duration_seconds",
		Help:      "End-to-end route_to_agent latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	})
)

// recordOutcome records a terminal outcome.
func recordOutcome(o Outcome) {
	transferOutcomesTotal.WithLabelValues(string(o.State), string(o.Reason)).Inc()
	transferDurationSeconds.Observe(o.Duration.Seconds())
}

// recordResolution records how a destination was chosen.
func recordResolution(res Resolution) {
	testMode := "false"
	if res.TestOverride {
		testMode = "true"
	}
	transferResolutionsTotal.WithLabelValues(string(res.Source), testMode).Inc()
}

// recordExecution records one control-endpoint POST.
func recordExecution(fallback bool, err error) {
	attempt := "primary"
	if fallback {
		attempt = "fallback"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	transferExecutionsTotal.WithLabelValues(attempt, status).Inc()
}
