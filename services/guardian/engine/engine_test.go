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
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// =============================================================================
// ParseLocalOutput
// =============================================================================

func TestParseLocalOutput(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		raw := `{"function_calls":[{"name":"get_clause_info","arguments":{"clause_type":"non_compete","field":"duration"}}],
			"confidence":0.87,"cloud_handoff":false,"total_time_ms":410}`
		res := ParseLocalOutput([]byte(raw))

		require.Len(t, res.FunctionCalls, 1)
		assert.Equal(t, "get_clause_info", res.FunctionCalls[0].Name)
		assert.Equal(t, map[string]string{"clause_type": "non_compete", "field": "duration"}, res.FunctionCalls[0].Arguments)
		assert.InDelta(t, 0.87, res.ConfidenceValue(), 1e-9)
		assert.False(t, res.Handoff)
		assert.Equal(t, 410*time.Millisecond, res.Elapsed)
		assert.Empty(t, res.Provenance, "engines never set provenance")
	})

	t.Run("malformed degrades to zero confidence", func(t *testing.T) {
		for _, raw := range []string{"", "not json", `{"function_calls": [`, `[]`} {
			res := ParseLocalOutput([]byte(raw))
			require.NotNil(t, res.Confidence, raw)
			assert.Zero(t, *res.Confidence, raw)
			assert.Empty(t, res.FunctionCalls, raw)
			assert.False(t, res.Handoff, raw)
		}
	})

	t.Run("missing confidence reads as zero", func(t *testing.T) {
		res := ParseLocalOutput([]byte(`{"function_calls":[{"name":"extract_parties"}]}`))
		assert.Zero(t, res.ConfidenceValue())
		require.Len(t, res.FunctionCalls, 1)
		assert.Empty(t, res.FunctionCalls[0].Arguments)
	})

	t.Run("handoff and nameless calls", func(t *testing.T) {
		res := ParseLocalOutput([]byte(`{"function_calls":[{"arguments":{}},{"name":"benchmark_clause","arguments":"{\"clause_type\":\"ip\"}"}],
			"confidence":0.95,"cloud_handoff":true}`))
		assert.True(t, res.Handoff)
		require.Len(t, res.FunctionCalls, 1)
		assert.Equal(t, "ip", res.FunctionCalls[0].Arguments["clause_type"])
	})
}

func TestNormalizeArguments(t *testing.T) {
	got := NormalizeArguments(map[string]any{
		"clause_type": "term",
		"years":       float64(2),
		"ratio":       0.5,
		"strict":      true,
		"skip":        nil,
		"nested":      map[string]any{"a": "b"},
	})
	assert.Equal(t, map[string]string{
		"clause_type": "term",
		"years":       "2",
		"ratio":       "0.5",
		"strict":      "true",
		"nested":      `{"a":"b"}`,
	}, got)
}

func TestRoutingResult_First(t *testing.T) {
	var nilRes *RoutingResult
	_, ok := nilRes.First()
	assert.False(t, ok)

	res := &RoutingResult{FunctionCalls: []ToolCall{{Name: "a"}, {Name: "b"}}}
	call, ok := res.First()
	require.True(t, ok)
	assert.Equal(t, "a", call.Name)
}

// =============================================================================
// LocalGenerator
// =============================================================================

type fakeCompleter struct {
	body []byte
	err  error
	got  llm.LocalCompleteRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.LocalCompleteRequest) ([]byte, error) {
	f.got = req
	return f.body, f.err
}

func TestLocalGenerator_BuildsForcedRequest(t *testing.T) {
	fc := &fakeCompleter{body: []byte(`{"function_calls":[],"confidence":0.9}`)}
	gen := NewLocalGenerator(fc, nil)

	res, err := gen.Generate(context.Background(),
		[]llm.ChatMessage{{Role: "user", Content: "Who are the parties?"}}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.ConfidenceValue(), 1e-9)

	require.Len(t, fc.got.Messages, 2)
	assert.Equal(t, "system", fc.got.Messages[0].Role)
	assert.Equal(t, LocalSystemPrompt, fc.got.Messages[0].Content)
	assert.True(t, fc.got.ForceTools)
	assert.Equal(t, 256, fc.got.MaxTokens)
	assert.Equal(t, []string{"<|im_end|>", "<end_of_turn>"}, fc.got.StopSequences)
}

func TestLocalGenerator_TransportFailureDegrades(t *testing.T) {
	gen := NewLocalGenerator(&fakeCompleter{err: errors.New("connection refused")}, nil)

	res, err := gen.Generate(context.Background(), []llm.ChatMessage{{Role: "user", Content: "q"}}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.ConfidenceValue())
	assert.Empty(t, res.FunctionCalls)
}

// =============================================================================
// Remote adapters
// =============================================================================

type fakeGemini struct {
	result   *llm.ChatWithToolsResult
	text     string
	err      error
	messages []llm.ChatMessage
	prompt   string
	params   llm.GenerationParams
}

func (f *fakeGemini) ChatWithTools(_ context.Context, messages []llm.ChatMessage, _ llm.GenerationParams, _ []llm.ToolDef) (*llm.ChatWithToolsResult, error) {
	f.messages = messages
	return f.result, f.err
}

func (f *fakeGemini) Generate(_ context.Context, prompt string, params llm.GenerationParams) (string, error) {
	f.prompt = prompt
	f.params = params
	return f.text, f.err
}

func (f *fakeGemini) Model() string { return "gemini-2.0-flash" }

func TestRemoteGenerator_SendsOnlyUserTurns(t *testing.T) {
	fg := &fakeGemini{result: &llm.ChatWithToolsResult{ToolCalls: []llm.ToolCallResponse{{
		ID: "gemini-call-0", Name: "check_enforceability",
		Arguments: json.RawMessage(`{"clause_type":"non_compete","jurisdiction":"California"}`),
	}}}}
	gen := NewRemoteGenerator(fg)

	res, err := gen.Generate(context.Background(), []llm.ChatMessage{
		{Role: "system", Content: "secret system prompt"},
		{Role: "user", Content: "Is this enforceable in California?"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, fg.messages, 1)
	assert.Equal(t, "user", fg.messages[0].Role)
	assert.Nil(t, res.Confidence)
	require.Len(t, res.FunctionCalls, 1)
	assert.Equal(t, "California", res.FunctionCalls[0].Arguments["jurisdiction"])
}

func TestRemoteGenerator_Errors(t *testing.T) {
	gen := NewRemoteGenerator(&fakeGemini{err: errors.New("quota")})
	_, err := gen.Generate(context.Background(), []llm.ChatMessage{{Role: "user", Content: "q"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")

	_, err = gen.Generate(context.Background(), []llm.ChatMessage{{Role: "system", Content: "only"}}, nil)
	require.Error(t, err)
}

func TestRemoteElaborator_PromptAndBudget(t *testing.T) {
	fg := &fakeGemini{text: "  Likely unenforceable under Cal. Bus. & Prof. Code 16600.  "}
	el := NewRemoteElaborator(fg, 0)

	out, err := el.Elaborate(context.Background(), "Clause type: non_compete", "Assess it.")
	require.NoError(t, err)
	assert.Equal(t, "Likely unenforceable under Cal. Bus. & Prof. Code 16600.", out)
	assert.Equal(t, "Assess it.\n\nClause type: non_compete", fg.prompt)
	require.NotNil(t, fg.params.MaxTokens)
	assert.Equal(t, 512, *fg.params.MaxTokens)
	assert.Equal(t, "gemini-2.0-flash", el.Model())
}

// =============================================================================
// Scripted stand-ins
// =============================================================================

func TestScriptedGenerator(t *testing.T) {
	gen := NewScriptedGenerator(map[string]RoutingResult{
		"Who are the parties?": {
			FunctionCalls: []ToolCall{{Name: "extract_parties", Arguments: map[string]string{}}},
			Confidence:    Float(0.91),
		},
	})

	res, err := gen.Generate(context.Background(), []llm.ChatMessage{{Role: "user", Content: "  who are the PARTIES? "}}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.91, res.ConfidenceValue(), 1e-9)

	res.FunctionCalls[0].Arguments["x"] = "mutated"
	again, _ := gen.Generate(context.Background(), []llm.ChatMessage{{Role: "user", Content: "Who are the parties?"}}, nil)
	assert.NotContains(t, again.FunctionCalls[0].Arguments, "x", "results must be copies")

	unknown, err := gen.Generate(context.Background(), []llm.ChatMessage{{Role: "user", Content: "other"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, unknown.FunctionCalls)
	assert.Equal(t, 3, gen.Calls())

	gen.Err = errors.New("down")
	_, err = gen.Generate(context.Background(), nil, nil)
	assert.EqualError(t, err, "down")
}

func TestStaticElaborator(t *testing.T) {
	el := &StaticElaborator{Text: "Standard."}
	out, err := el.Elaborate(context.Background(), "ctx-1", "task")
	require.NoError(t, err)
	assert.Equal(t, "Standard.", out)
	assert.Equal(t, []string{"ctx-1"}, el.Disclosed())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = el.Elaborate(ctx, "ctx-2", "task")
	assert.ErrorIs(t, err, context.Canceled)
}
