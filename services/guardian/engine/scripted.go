// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// ScriptedGenerator answers from a fixed table keyed by the last user
// message, compared case-insensitively after trimming.
//
// Unknown queries get a zero-confidence result with no calls. Err, when
// set, is returned for every call instead.
//
// Thread Safety: Safe for concurrent use after construction.
type ScriptedGenerator struct {
	table map[string]RoutingResult
	Err   error

	mu    sync.Mutex
	calls int
}

// NewScriptedGenerator builds a generator from query -> result pairs.
func NewScriptedGenerator(table map[string]RoutingResult) *ScriptedGenerator {
	norm := make(map[string]RoutingResult, len(table))
	for q, r := range table {
		norm[scriptKey(q)] = r
	}
	return &ScriptedGenerator{table: norm}
}

// Calls reports how many times Generate ran.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Generate implements Generator. The returned result is a copy.
func (g *ScriptedGenerator) Generate(ctx context.Context, messages []llm.ChatMessage, _ []llm.ToolDef) (*RoutingResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Err != nil {
		return nil, g.Err
	}

	var query string
	for _, m := range messages {
		if m.Role == "user" {
			query = m.Content
		}
	}
	r, ok := g.table[scriptKey(query)]
	if !ok {
		return degraded(), nil
	}
	return cloneResult(r), nil
}

func scriptKey(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func cloneResult(r RoutingResult) *RoutingResult {
	out := r
	out.FunctionCalls = make([]ToolCall, len(r.FunctionCalls))
	for i, c := range r.FunctionCalls {
		out.FunctionCalls[i] = ToolCall{Name: c.Name, Arguments: maps.Clone(c.Arguments)}
	}
	if r.Confidence != nil {
		out.Confidence = Float(*r.Confidence)
	}
	if r.LocalConfidence != nil {
		out.LocalConfidence = Float(*r.LocalConfidence)
	}
	return &out
}

// StaticElaborator returns canned text and remembers what it was given.
type StaticElaborator struct {
	Text string
	Err  error

	mu        sync.Mutex
	disclosed []string
}

// Elaborate implements Elaborator.
func (e *StaticElaborator) Elaborate(ctx context.Context, disclosed, _ string) (string, error) {
	e.mu.Lock()
	e.disclosed = append(e.disclosed, disclosed)
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.Err != nil {
		return "", e.Err
	}
	return e.Text, nil
}

// Model implements the cache's model-naming hook.
func (e *StaticElaborator) Model() string { return "static" }

// Disclosed returns every context passed to Elaborate, in order.
func (e *StaticElaborator) Disclosed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.disclosed...)
}
