// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine defines the capability interfaces the router and the query
// pipeline use to talk to inference engines, plus adapters for the on-device
// engine, Gemini, and deterministic stand-ins.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// Provenance labels. Only the router assigns them.
const (
	ProvenanceOnDevice          = "on-device"
	ProvenanceHandoff           = "cloud (handoff)"
	ProvenanceExternalKnowledge = "cloud (external-knowledge required)"
	ProvenanceLowConfidence     = "cloud (low-confidence)"
	ProvenanceEscalationFailed  = "on-device (escalation failed)"
)

// ToolCall is one tool invocation proposed by an engine.
type ToolCall struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

// RoutingResult is what a Generator returns and what the router hands back
// after deciding.
//
// Confidence is nil when the engine does not report one, which is always
// the case for the remote engine. LocalConfidence is filled by the router
// on escalation so the on-device score survives the swap.
type RoutingResult struct {
	FunctionCalls   []ToolCall    `json:"function_calls"`
	Confidence      *float64      `json:"confidence,omitempty"`
	LocalConfidence *float64      `json:"local_confidence,omitempty"`
	Elapsed         time.Duration `json:"-"`
	Handoff         bool          `json:"cloud_handoff"`
	Provenance      string        `json:"source,omitempty"`

	// EscalationError is set when escalation was attempted and failed.
	EscalationError string `json:"escalation_error,omitempty"`
}

// ConfidenceValue returns Confidence, or 0 when absent.
func (r *RoutingResult) ConfidenceValue() float64 {
	if r == nil || r.Confidence == nil {
		return 0
	}
	return *r.Confidence
}

// First returns the first proposed call. Later calls are never acted on.
func (r *RoutingResult) First() (ToolCall, bool) {
	if r == nil || len(r.FunctionCalls) == 0 {
		return ToolCall{}, false
	}
	return r.FunctionCalls[0], true
}

// ElapsedMS returns Elapsed in fractional milliseconds.
func (r *RoutingResult) ElapsedMS() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// Generator proposes tool calls for a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDef) (*RoutingResult, error)
}

// Elaborator produces free text from a disclosed context and a task.
type Elaborator interface {
	Elaborate(ctx context.Context, disclosed, task string) (string, error)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// NormalizeArguments flattens engine-supplied JSON arguments to strings.
//
// Strings pass through. Numbers and booleans are formatted. Nested values
// are re-encoded as JSON. Nulls are dropped so they read as absent.
func NormalizeArguments(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func callsFromResponses(responses []llm.ToolCallResponse) []ToolCall {
	calls := make([]ToolCall, 0, len(responses))
	for i := range responses {
		calls = append(calls, ToolCall{
			Name:      responses[i].Name,
			Arguments: NormalizeArguments(responses[i].ArgumentsMap()),
		})
	}
	return calls
}
