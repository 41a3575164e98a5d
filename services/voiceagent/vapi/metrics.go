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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// controlDuration measures control-endpoint POSTs.
	// Labels: result (ok, bad_url, network, timeout, http_status)
	controlDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voiceagent",
		Subsystem: "vapi",
		Name:      "control_request_duration_seconds",
		Help:      "Latency of live-call control requests",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"result"})

	// apiRequestsTotal counts account REST API calls.
	// Labels: operation (create_phone_call, get_call), status (success, error)
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "vapi",
		Name:      "api_requests_total",
		Help:      "Voice platform REST API calls",
	}, []string{"operation", "status"})
)
