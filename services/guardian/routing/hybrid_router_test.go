// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/config"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// =============================================================================
// Test doubles
// =============================================================================

// fixedGen returns the same result every call, or blocks until ctx is done
// when block is set.
type fixedGen struct {
	res   *engine.RoutingResult
	err   error
	block bool
	calls int
}

func (g *fixedGen) Generate(ctx context.Context, _ []llm.ChatMessage, _ []llm.ToolDef) (*engine.RoutingResult, error) {
	g.calls++
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	cp := *g.res
	return &cp, nil
}

func localResult(conf float64, handoff bool, tools ...string) *engine.RoutingResult {
	calls := make([]engine.ToolCall, 0, len(tools))
	for _, name := range tools {
		calls = append(calls, engine.ToolCall{Name: name, Arguments: map[string]string{"clause_type": "non_compete"}})
	}
	return &engine.RoutingResult{
		FunctionCalls: calls,
		Confidence:    engine.Float(conf),
		Handoff:       handoff,
		Elapsed:       400 * time.Millisecond,
	}
}

func remoteResult(tool string) *engine.RoutingResult {
	return &engine.RoutingResult{
		FunctionCalls: []engine.ToolCall{{Name: tool, Arguments: map[string]string{"clause_type": "ip_assignment"}}},
		Elapsed:       600 * time.Millisecond,
	}
}

func newRouter(t *testing.T, local, remote engine.Generator, mutate func(*config.RoutingPolicy)) *HybridRouter {
	t.Helper()
	p := *config.MustGetRoutingPolicy()
	if mutate != nil {
		mutate(&p)
	}
	r, err := NewHybridRouter(local, remote, &p, nil)
	require.NoError(t, err)
	return r
}

var userQuery = []llm.ChatMessage{{Role: "user", Content: "What is the non-compete duration?"}}

// =============================================================================
// Decide
// =============================================================================

func TestDecide(t *testing.T) {
	r := newRouter(t, &fixedGen{}, nil, nil)

	tests := []struct {
		name  string
		local *engine.RoutingResult
		want  Decision
	}{
		{"confident device tool", localResult(0.91, false, "extract_parties"), Decision{false, engine.ProvenanceOnDevice}},
		{"exactly at threshold stays local", localResult(0.72, false, "get_clause_info"), Decision{false, engine.ProvenanceOnDevice}},
		{"just below threshold", localResult(0.7199, false, "get_clause_info"), Decision{true, engine.ProvenanceLowConfidence}},
		{"low confidence", localResult(0.70, false, "get_clause_info"), Decision{true, engine.ProvenanceLowConfidence}},
		{"cloud tool at full confidence", localResult(1.0, false, "check_enforceability"), Decision{true, engine.ProvenanceExternalKnowledge}},
		{"cloud tool as second call", localResult(0.99, false, "summarize_clause", "benchmark_clause"), Decision{true, engine.ProvenanceExternalKnowledge}},
		{"handoff beats everything", localResult(1.0, true, "check_enforceability"), Decision{true, engine.ProvenanceHandoff}},
		{"handoff with device tool", localResult(0.95, true, "extract_parties"), Decision{true, engine.ProvenanceHandoff}},
		{"cloud tool beats low confidence", localResult(0.1, false, "benchmark_clause"), Decision{true, engine.ProvenanceExternalKnowledge}},
		{"no calls zero confidence", localResult(0, false), Decision{true, engine.ProvenanceLowConfidence}},
		{"absent confidence", &engine.RoutingResult{}, Decision{true, engine.ProvenanceLowConfidence}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Decide(tt.local))
		})
	}
}

func TestDecide_CustomThreshold(t *testing.T) {
	r := newRouter(t, &fixedGen{}, nil, func(p *config.RoutingPolicy) { p.ConfidenceThreshold = 0.5 })
	assert.False(t, r.Decide(localResult(0.6, false, "get_clause_info")).Escalate)
	assert.Equal(t, 0.5, r.Threshold())
}

// =============================================================================
// Route
// =============================================================================

func TestRoute_OnDevice(t *testing.T) {
	remote := &fixedGen{res: remoteResult("extract_parties")}
	r := newRouter(t, &fixedGen{res: localResult(0.87, false, "get_clause_info")}, remote, nil)

	res, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ProvenanceOnDevice, res.Provenance)
	assert.Equal(t, "get_clause_info", res.FunctionCalls[0].Name)
	assert.Nil(t, res.LocalConfidence)
	assert.Zero(t, remote.calls)
}

func TestRoute_EscalationReplacesCalls(t *testing.T) {
	remote := &fixedGen{res: remoteResult("benchmark_clause")}
	r := newRouter(t, &fixedGen{res: localResult(0.70, false, "get_clause_info")}, remote, nil)

	res, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)

	assert.Equal(t, engine.ProvenanceLowConfidence, res.Provenance)
	require.Len(t, res.FunctionCalls, 1)
	assert.Equal(t, "benchmark_clause", res.FunctionCalls[0].Name)
	assert.Equal(t, 1000*time.Millisecond, res.Elapsed, "local + remote elapsed")
	require.NotNil(t, res.LocalConfidence)
	assert.InDelta(t, 0.70, *res.LocalConfidence, 1e-9)
	assert.Nil(t, res.Confidence, "remote reports no confidence")
	assert.Empty(t, res.EscalationError)
}

func TestRoute_MalformedLocalOutputEscalates(t *testing.T) {
	remote := &fixedGen{res: remoteResult("extract_parties")}
	r := newRouter(t, &fixedGen{res: engine.ParseLocalOutput([]byte("garbage"))}, remote, nil)

	res, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ProvenanceLowConfidence, res.Provenance)
	assert.Equal(t, 1, remote.calls)
}

func TestRoute_LocalErrorDegrades(t *testing.T) {
	remote := &fixedGen{res: remoteResult("extract_parties")}
	r := newRouter(t, &fixedGen{err: errors.New("engine crashed")}, remote, nil)

	res, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ProvenanceLowConfidence, res.Provenance)
	assert.InDelta(t, 0, *res.LocalConfidence, 1e-9)
}

func TestRoute_RemoteFailureFallsBack(t *testing.T) {
	r := newRouter(t,
		&fixedGen{res: localResult(0.99, false, "check_enforceability")},
		&fixedGen{err: errors.New("503 from gemini key=abcdefghij1234567890")}, nil)

	res, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ProvenanceEscalationFailed, res.Provenance)
	assert.Equal(t, "check_enforceability", res.FunctionCalls[0].Name)
	assert.Contains(t, res.EscalationError, "503")
	assert.NotContains(t, res.EscalationError, "abcdefghij1234567890")
}

func TestRoute_RemoteTimeoutFallsBack(t *testing.T) {
	r := newRouter(t,
		&fixedGen{res: localResult(0.5, false, "get_clause_info")},
		&fixedGen{block: true},
		func(p *config.RoutingPolicy) { p.EscalationTimeout = 20 * time.Millisecond })

	start := time.Now()
	res, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, engine.ProvenanceEscalationFailed, res.Provenance)
	assert.Contains(t, res.EscalationError, "deadline")
}

func TestRoute_NoRemoteConfigured(t *testing.T) {
	r := newRouter(t, &fixedGen{res: localResult(0.9, true, "extract_parties")}, nil, nil)

	res, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ProvenanceEscalationFailed, res.Provenance)
	assert.Equal(t, "no remote engine configured", res.EscalationError)
}

func TestRoute_CallerCancellation(t *testing.T) {
	r := newRouter(t, &fixedGen{res: localResult(0.1, false)}, &fixedGen{block: true}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Route(ctx, userQuery, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHybridRouter_RequiresLocal(t *testing.T) {
	_, err := NewHybridRouter(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoLocalEngine)
}

func TestRoute_Span(t *testing.T) {
	r := newRouter(t, &fixedGen{res: localResult(0.95, false, "check_enforceability")},
		&fixedGen{res: remoteResult("check_enforceability")}, nil)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	_, err := r.Route(context.Background(), userQuery, nil)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "routing.HybridRouter.Route", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, engine.ProvenanceExternalKnowledge, attrs["provenance"])
	assert.Equal(t, "success", attrs["escalation_outcome"])
}
