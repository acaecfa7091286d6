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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// Auditor writes one structured log entry per egress event. Entries carry
// the request ID, provider, purpose, sensitivity and an optional SHA256 of
// the content. The content itself is never logged.
//
// Thread Safety: Safe for concurrent use.
type Auditor struct {
	logger      *slog.Logger
	enabled     bool
	hashContent bool
}

// NewAuditor creates an auditor. A nil logger uses slog.Default().
func NewAuditor(logger *slog.Logger, enabled, hashContent bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{logger: logger, enabled: enabled, hashContent: hashContent}
}

// LogAllowed records an attempt that passed every check.
func (a *Auditor) LogAllowed(ctx context.Context, d *Decision) {
	if !a.enabled || d == nil {
		return
	}
	attrs := []any{
		slog.String("event", "egress_allowed"),
		slog.String("request_id", d.RequestID),
		slog.String("provider", d.Provider),
		slog.String("purpose", d.Purpose),
		slog.String("sensitivity", d.Sensitivity.String()),
		slog.Int("words", d.Words),
		slog.Float64("estimated_cost_cents", d.EstimatedCents),
	}
	if a.hashContent && d.ContentHash != "" {
		attrs = append(attrs, slog.String("content_hash", d.ContentHash))
	}
	a.withTrace(ctx).Info("egress request", attrs...)
}

// LogBlocked records a refused attempt.
func (a *Auditor) LogBlocked(ctx context.Context, d *Decision) {
	if !a.enabled || d == nil {
		return
	}
	a.withTrace(ctx).Warn("egress blocked",
		slog.String("event", "egress_blocked"),
		slog.String("request_id", d.RequestID),
		slog.String("provider", d.Provider),
		slog.String("purpose", d.Purpose),
		slog.String("blocked_by", d.BlockedBy),
		slog.String("reason", d.BlockReason),
		slog.Int64("duration_us", d.Duration.Microseconds()),
	)
}

// LogCompleted records the outcome of an allowed call. callErr is redacted
// before logging.
func (a *Auditor) LogCompleted(ctx context.Context, d *Decision, elapsed time.Duration, callErr error) {
	if !a.enabled || d == nil {
		return
	}
	status := "success"
	attrs := []any{
		slog.String("event", "egress_completed"),
		slog.String("request_id", d.RequestID),
		slog.String("provider", d.Provider),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if callErr != nil {
		status = "error"
		attrs = append(attrs, slog.String("error", llm.SafeLogString(callErr.Error())))
	}
	attrs = append(attrs, slog.String("status", status))
	a.withTrace(ctx).Info("egress response", attrs...)
}

func (a *Auditor) withTrace(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return a.logger
	}
	return a.logger.With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}

// HashContent returns the hex SHA256 of content, or "" when it is empty.
func HashContent(content string) string {
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
