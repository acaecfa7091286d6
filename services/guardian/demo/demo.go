// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package demo carries the sample agreement, the five walkthrough
// questions, and scripted engine tables for running without a model.
package demo

import (
	_ "embed"
	"time"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
)

//go:embed sample_nda.txt
var sampleNDA string

// SampleNDA returns the bundled agreement text.
func SampleNDA() string { return sampleNDA }

// Walkthrough questions, in presentation order.
const (
	QueryParties        = "Who are the parties to this agreement?"
	QueryNonCompete     = "What is the non-compete duration?"
	QueryIPSummary      = "Summarize the IP assignment clause."
	QueryEnforceability = "Is this non-compete enforceable in California?"
	QueryBenchmark      = "Is this IP clause unusually broad?"
)

// Queries returns the walkthrough questions.
func Queries() []string {
	return []string{QueryParties, QueryNonCompete, QueryIPSummary, QueryEnforceability, QueryBenchmark}
}

type scripted struct {
	query      string
	call       engine.ToolCall
	confidence float64
	elapsed    time.Duration
}

var script = []scripted{
	{QueryParties, engine.ToolCall{Name: tools.ExtractParties, Arguments: map[string]string{}}, 0.91, 380 * time.Millisecond},
	{QueryNonCompete, engine.ToolCall{Name: tools.GetClauseInfo, Arguments: map[string]string{
		tools.ArgClauseType: "non_compete", tools.ArgField: "duration",
	}}, 0.87, 410 * time.Millisecond},
	{QueryIPSummary, engine.ToolCall{Name: tools.SummarizeClause, Arguments: map[string]string{
		tools.ArgClauseType: "ip_assignment",
	}}, 0.83, 450 * time.Millisecond},
	{QueryEnforceability, engine.ToolCall{Name: tools.CheckEnforceability, Arguments: map[string]string{
		tools.ArgClauseType: "non_compete", tools.ArgJurisdiction: "California",
	}}, 0.79, 420 * time.Millisecond},
	{QueryBenchmark, engine.ToolCall{Name: tools.BenchmarkClause, Arguments: map[string]string{
		tools.ArgClauseType: "ip_assignment",
	}}, 0.76, 440 * time.Millisecond},
}

// LocalTable is the on-device engine's scripted output for each question.
func LocalTable() map[string]engine.RoutingResult {
	out := make(map[string]engine.RoutingResult, len(script))
	for _, s := range script {
		out[s.query] = engine.RoutingResult{
			FunctionCalls: []engine.ToolCall{s.call},
			Confidence:    engine.Float(s.confidence),
			Elapsed:       s.elapsed,
		}
	}
	return out
}

// RemoteTable is the scripted cloud engine. It proposes the same calls
// and, like a real remote engine, reports no confidence.
func RemoteTable() map[string]engine.RoutingResult {
	out := make(map[string]engine.RoutingResult, len(script))
	for _, s := range script {
		out[s.query] = engine.RoutingResult{
			FunctionCalls: []engine.ToolCall{s.call},
			Elapsed:       250 * time.Millisecond,
		}
	}
	return out
}

// NewLocalGenerator returns a scripted on-device engine.
func NewLocalGenerator() *engine.ScriptedGenerator {
	return engine.NewScriptedGenerator(LocalTable())
}

// NewRemoteGenerator returns a scripted cloud engine.
func NewRemoteGenerator() *engine.ScriptedGenerator {
	return engine.NewScriptedGenerator(RemoteTable())
}

// StubElaboration is the canned reply used when no cloud key is set.
const StubElaboration = "[GEMINI_API_KEY not set; cloud elaboration skipped]"

// NewStubElaborator returns an elaborator that always answers
// StubElaboration.
func NewStubElaborator() *engine.StaticElaborator {
	return &engine.StaticElaborator{Text: StubElaboration}
}
