// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "guardian.assistant"

// recordAnswer reports one answered query on the global meter provider.
// Instrument creation errors only mean a no-op instrument, so they are
// dropped.
func recordAnswer(ctx context.Context, ans *Answer) {
	meter := otel.Meter(meterName)
	attrs := metric.WithAttributes(
		attribute.String("source", ans.Source),
		attribute.String("tool", ans.ToolCalled),
	)

	if answers, err := meter.Int64Counter("guardian.assistant.answers",
		metric.WithDescription("Answered queries by provenance and tool")); err == nil {
		answers.Add(ctx, 1, attrs)
	}
	if latency, err := meter.Float64Histogram("guardian.assistant.latency",
		metric.WithDescription("End-to-end query latency"),
		metric.WithUnit("ms")); err == nil {
		latency.Record(ctx, ans.LatencyMS, attrs)
	}
	if ans.WordsSentToCloud > 0 {
		if words, err := meter.Int64Counter("guardian.assistant.words_disclosed",
			metric.WithDescription("Words of clause content sent to the cloud")); err == nil {
			words.Add(ctx, int64(ans.WordsSentToCloud), attrs)
		}
	}
}
