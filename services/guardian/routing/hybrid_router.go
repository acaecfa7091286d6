// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routing decides, per query, whether the on-device engine's tool
// call is used or the query is escalated to the remote engine.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/config"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	routerDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "router",
		Name:      "decision_total",
		Help:      "Routing decisions by provenance label",
	}, []string{"provenance"})

	routerEscalationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "router",
		Name:      "escalation_total",
		Help:      "Escalation attempts by outcome: success, timeout, error, unavailable",
	}, []string{"outcome"})

	routerEscalationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "guardian",
		Subsystem: "router",
		Name:      "escalation_latency_seconds",
		Help:      "Latency of remote routing calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})
)

const tracerName = "guardian.routing"

// ErrNoLocalEngine is returned by NewHybridRouter when local is nil.
var ErrNoLocalEngine = errors.New("routing: local generator is required")

// Decision is the outcome of the pure routing rules.
type Decision struct {
	Escalate   bool
	Provenance string
}

// HybridRouter runs the on-device engine first and escalates when policy
// says so.
//
// Description:
//
//	Rules are evaluated in order and the first that fires wins:
//	  1. the engine asked for a handoff;
//	  2. a proposed call names a cloud-required tool;
//	  3. confidence is strictly below the threshold.
//	Otherwise the local result is used as-is. On escalation the remote
//	calls replace the local ones. If the remote call fails or times out
//	the local result is returned with provenance
//	"on-device (escalation failed)".
//
// Thread Safety: Safe for concurrent use. The router holds no per-query
// state.
type HybridRouter struct {
	local             engine.Generator
	remote            engine.Generator
	threshold         float64
	cloudRequired     map[string]bool
	escalationTimeout time.Duration
	logger            *slog.Logger
}

// NewHybridRouter creates a HybridRouter.
//
// Inputs:
//
//	local - On-device generator. Must not be nil.
//	remote - Remote generator. Nil makes every escalation fall back.
//	policy - Threshold, cloud-required tools and timeout. Nil uses the
//	         embedded policy.
//	logger - Logger instance. Nil uses slog.Default().
//
// Outputs:
//
//	*HybridRouter - The router.
//	error - ErrNoLocalEngine if local is nil.
func NewHybridRouter(local, remote engine.Generator, policy *config.RoutingPolicy, logger *slog.Logger) (*HybridRouter, error) {
	if local == nil {
		return nil, ErrNoLocalEngine
	}
	if policy == nil {
		policy = config.MustGetRoutingPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := policy.EscalationTimeout
	if timeout <= 0 {
		timeout = config.DefaultEscalationTimeout
	}
	return &HybridRouter{
		local:             local,
		remote:            remote,
		threshold:         policy.ConfidenceThreshold,
		cloudRequired:     policy.CloudRequiredSet(),
		escalationTimeout: timeout,
		logger:            logger,
	}, nil
}

// Threshold returns the confidence threshold in use.
func (r *HybridRouter) Threshold() float64 { return r.threshold }

// Decide applies the routing rules to a local result without side effects.
func (r *HybridRouter) Decide(local *engine.RoutingResult) Decision {
	if local.Handoff {
		return Decision{Escalate: true, Provenance: engine.ProvenanceHandoff}
	}
	for _, c := range local.FunctionCalls {
		if r.cloudRequired[c.Name] {
			return Decision{Escalate: true, Provenance: engine.ProvenanceExternalKnowledge}
		}
	}
	if local.ConfidenceValue() < r.threshold {
		return Decision{Escalate: true, Provenance: engine.ProvenanceLowConfidence}
	}
	return Decision{Provenance: engine.ProvenanceOnDevice}
}

// Route produces the final routing result for one query.
//
// Description:
//
//	A local engine error is logged and treated as a zero-confidence
//	result with no calls. Escalation is bounded by the policy's
//	escalation timeout.
//
// Outputs:
//
//	*engine.RoutingResult - Never nil when error is nil.
//	error - Non-nil only when ctx itself is cancelled or expired.
func (r *HybridRouter) Route(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDef) (*engine.RoutingResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "routing.HybridRouter.Route",
		trace.WithAttributes(
			attribute.Int("messages", len(messages)),
			attribute.Int("tools", len(tools)),
			attribute.Float64("threshold", r.threshold),
			attribute.Bool("remote_configured", r.remote != nil),
		),
	)
	defer span.End()

	local, err := r.local.Generate(ctx, messages, tools)
	if err != nil || local == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, "cancelled")
			return nil, ctxErr
		}
		r.logger.Warn("local generation failed, treating as zero confidence",
			slog.String("error", llm.SafeLogString(fmt.Sprint(err))),
		)
		local = &engine.RoutingResult{FunctionCalls: []engine.ToolCall{}, Confidence: engine.Float(0)}
	}

	span.SetAttributes(
		attribute.Float64("local_confidence", local.ConfidenceValue()),
		attribute.Int("local_calls", len(local.FunctionCalls)),
		attribute.Bool("handoff", local.Handoff),
	)

	d := r.Decide(local)
	if !d.Escalate {
		local.Provenance = d.Provenance
		routerDecisionTotal.WithLabelValues(d.Provenance).Inc()
		span.SetAttributes(attribute.String("provenance", d.Provenance))
		return local, nil
	}

	res, err := r.escalate(ctx, messages, tools, local, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled during escalation")
		return nil, err
	}
	routerDecisionTotal.WithLabelValues(res.Provenance).Inc()
	span.SetAttributes(attribute.String("provenance", res.Provenance))
	return res, nil
}

// escalate calls the remote generator and merges its result with the local
// one. Remote failures degrade to the local result.
func (r *HybridRouter) escalate(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDef,
	local *engine.RoutingResult, d Decision) (*engine.RoutingResult, error) {

	span := trace.SpanFromContext(ctx)
	localConf := local.ConfidenceValue()

	r.logger.Info("router escalation triggered",
		slog.String("reason", d.Provenance),
		slog.Float64("local_confidence", localConf),
		slog.Float64("threshold", r.threshold),
	)

	if r.remote == nil {
		routerEscalationTotal.WithLabelValues("unavailable").Inc()
		span.SetAttributes(attribute.String("escalation_outcome", "unavailable"))
		return fallback(local, 0, "no remote engine configured"), nil
	}

	escStart := time.Now()
	escCtx, cancel := context.WithTimeout(ctx, r.escalationTimeout)
	defer cancel()

	remote, escErr := r.remote.Generate(escCtx, messages, tools)
	escDuration := time.Since(escStart)
	routerEscalationLatency.Observe(escDuration.Seconds())

	if escErr == nil && remote == nil {
		escErr = errors.New("remote engine returned no result")
	}
	if escErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		outcome := "error"
		if errors.Is(escErr, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		r.logger.Warn("router escalation failed, using local result",
			slog.String("outcome", outcome),
			slog.String("error", llm.SafeLogString(escErr.Error())),
			slog.Duration("duration", escDuration),
		)
		routerEscalationTotal.WithLabelValues(outcome).Inc()
		span.SetAttributes(attribute.String("escalation_outcome", outcome))
		return fallback(local, escDuration, llm.SafeLogString(escErr.Error())), nil
	}

	routerEscalationTotal.WithLabelValues("success").Inc()
	span.SetAttributes(
		attribute.String("escalation_outcome", "success"),
		attribute.Int("remote_calls", len(remote.FunctionCalls)),
	)
	r.logger.Info("router escalation succeeded",
		slog.Int("remote_calls", len(remote.FunctionCalls)),
		slog.Duration("duration", escDuration),
	)

	if remote.FunctionCalls == nil {
		remote.FunctionCalls = []engine.ToolCall{}
	}
	remote.Provenance = d.Provenance
	remote.LocalConfidence = engine.Float(localConf)
	remote.Elapsed += local.Elapsed
	return remote, nil
}

func fallback(local *engine.RoutingResult, spent time.Duration, reason string) *engine.RoutingResult {
	out := *local
	out.Provenance = engine.ProvenanceEscalationFailed
	out.LocalConfidence = engine.Float(local.ConfidenceValue())
	out.Elapsed = local.Elapsed + spent
	out.EscalationError = reason
	return &out
}
