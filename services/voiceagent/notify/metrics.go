// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// notificationsTotal counts delivery attempts per channel.
	// Labels: kind (failure kinds, no_answer, direct), channel (sms, email), status (sent, failed, skipped)
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "notify",
		Name:      "deliveries_total",
		Help:      "Notification deliveries by kind, channel and status",
	}, []string{"kind", "channel", "status"})

	// notificationsDroppedTotal counts escalations that were never delivered.
	// Labels: reason (disabled, queue_full, closed)
	notificationsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceagent",
		Subsystem: "notify",
		Name:      "dropped_total",
		Help:      "Escalation notices dropped before delivery",
	}, []string{"reason"})

	notifyQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voiceagent",
		Subsystem: "notify",
		Name:      "queue_depth",
		Help:      "Escalation notices waiting for a worker",
	})
)

func recordDelivery(kind string, ch Channel, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	notificationsTotal.WithLabelValues(kind, string(ch), status).Inc()
}

func recordSkipped(kind string, ch Channel) {
	notificationsTotal.WithLabelValues(kind, string(ch), "skipped").Inc()
}
