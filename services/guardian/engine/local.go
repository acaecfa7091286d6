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
	"log/slog"
	"time"

	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// Request settings for the on-device engine.
const (
	LocalSystemPrompt = "You are a helpful assistant that can use tools."
	LocalMaxTokens    = 256
)

// LocalStopSequences end generation for the supported chat templates.
var LocalStopSequences = []string{"<|im_end|>", "<end_of_turn>"}

// localCompleter is the slice of llm.LocalEngineClient the adapter needs.
type localCompleter interface {
	Complete(ctx context.Context, req llm.LocalCompleteRequest) ([]byte, error)
}

// LocalGenerator adapts the on-device engine to Generator.
//
// Description:
//
//	Prepends the fixed system prompt, forces tool use and parses the raw
//	reply with ParseLocalOutput. A transport failure is treated like
//	malformed output: the result has confidence 0 and no calls, which makes
//	the router escalate. Generate therefore never returns an error.
//
// Thread Safety: Safe for concurrent use.
type LocalGenerator struct {
	client localCompleter
	logger *slog.Logger
}

// NewLocalGenerator wraps client. A nil logger uses slog.Default().
func NewLocalGenerator(client localCompleter, logger *slog.Logger) *LocalGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalGenerator{client: client, logger: logger}
}

// Generate implements Generator.
func (g *LocalGenerator) Generate(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDef) (*RoutingResult, error) {
	msgs := make([]llm.ChatMessage, 0, len(messages)+1)
	msgs = append(msgs, llm.ChatMessage{Role: "system", Content: LocalSystemPrompt})
	msgs = append(msgs, messages...)

	start := time.Now()
	raw, err := g.client.Complete(ctx, llm.LocalCompleteRequest{
		Messages:      msgs,
		Tools:         tools,
		ForceTools:    true,
		MaxTokens:     LocalMaxTokens,
		StopSequences: LocalStopSequences,
	})
	if err != nil {
		g.logger.Warn("local engine unavailable, degrading to zero confidence",
			slog.String("error", llm.SafeLogString(err.Error())),
			slog.Duration("duration", time.Since(start)),
		)
		return degraded(), nil
	}
	return ParseLocalOutput(raw), nil
}

type localOutput struct {
	FunctionCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function_calls"`
	Confidence   *float64 `json:"confidence"`
	CloudHandoff bool     `json:"cloud_handoff"`
	TotalTimeMS  float64  `json:"total_time_ms"`
}

// ParseLocalOutput converts the engine's raw JSON into a RoutingResult.
//
// Description:
//
//	Unparseable input yields confidence 0 and no calls. A missing
//	confidence also reads as 0. Calls without a name are dropped.
//	Arguments are flattened with NormalizeArguments.
func ParseLocalOutput(raw []byte) *RoutingResult {
	var out localOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return degraded()
	}

	res := &RoutingResult{
		FunctionCalls: make([]ToolCall, 0, len(out.FunctionCalls)),
		Confidence:    Float(0),
		Handoff:       out.CloudHandoff,
		Elapsed:       time.Duration(out.TotalTimeMS * float64(time.Millisecond)),
	}
	if out.Confidence != nil {
		res.Confidence = Float(*out.Confidence)
	}
	for _, fc := range out.FunctionCalls {
		if fc.Name == "" {
			continue
		}
		resp := llm.ToolCallResponse{Name: fc.Name, Arguments: fc.Arguments}
		res.FunctionCalls = append(res.FunctionCalls, ToolCall{
			Name:      fc.Name,
			Arguments: NormalizeArguments(resp.ArgumentsMap()),
		})
	}
	return res
}

func degraded() *RoutingResult {
	return &RoutingResult{FunctionCalls: []ToolCall{}, Confidence: Float(0)}
}
