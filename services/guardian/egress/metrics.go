// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package egress

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: provider, purpose (routing, elaboration), status (allowed, blocked)
	egressAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "egress",
		Name:      "attempts_total",
		Help:      "Outbound cloud attempts by provider, purpose and status",
	}, []string{"provider", "purpose", "status"})

	// Labels: provider, blocked_by
	egressBlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "egress",
		Name:      "blocked_total",
		Help:      "Blocked outbound attempts by provider and blocking check",
	}, []string{"provider", "blocked_by"})

	egressWordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "egress",
		Name:      "words_total",
		Help:      "Words sent to cloud providers",
	}, []string{"provider"})

	egressCostCentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "egress",
		Name:      "cost_cents_total",
		Help:      "Estimated cumulative cost in US cents",
	}, []string{"provider"})

	egressCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "guardian",
		Subsystem: "egress",
		Name:      "call_seconds",
		Help:      "Duration of allowed outbound calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"provider", "purpose"})
)

func recordBlocked(d *Decision) {
	egressAttemptsTotal.WithLabelValues(d.Provider, d.Purpose, "blocked").Inc()
	egressBlockedTotal.WithLabelValues(d.Provider, d.BlockedBy).Inc()
}

func recordAllowed(d *Decision) {
	egressAttemptsTotal.WithLabelValues(d.Provider, d.Purpose, "allowed").Inc()
}

func recordCompleted(d *Decision, elapsed time.Duration, costCents float64) {
	egressCallSeconds.WithLabelValues(d.Provider, d.Purpose).Observe(elapsed.Seconds())
	egressWordsTotal.WithLabelValues(d.Provider).Add(float64(d.Words))
	egressCostCentsTotal.WithLabelValues(d.Provider).Add(costCents)
}
