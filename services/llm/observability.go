// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "guardian.llm"

var llmCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "guardian",
	Subsystem: "llm",
	Name:      "call_duration_seconds",
	Help:      "Wall time of inference engine HTTP calls by provider, method and outcome",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
}, []string{"provider", "method", "outcome"})

// startCall opens a client span and returns a finisher that records the
// duration metric and span status.
func startCall(ctx context.Context, provider, method, model string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm."+provider+"."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
		),
	)
	start := time.Now()

	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, SafeLogString(err.Error()))
		}
		llmCallDuration.WithLabelValues(provider, method, outcome).Observe(time.Since(start).Seconds())
		span.End()
	}
}
