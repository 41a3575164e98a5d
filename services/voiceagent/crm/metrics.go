// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts CRM requests.
	// Labels: operation, status (success, error)
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "crm",
		Name:      "requests_total",
		Help:      "CRM API requests by operation and outcome",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voiceagent",
		Subsystem: "crm",
		Name:      "request_duration_seconds",
		Help:      "CRM API request latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})
)
