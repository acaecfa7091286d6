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
	"fmt"
	"strings"
	"time"

	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// toolChatter is the slice of llm.GeminiClient used for remote routing.
type toolChatter interface {
	ChatWithTools(ctx context.Context, messages []llm.ChatMessage, params llm.GenerationParams, tools []llm.ToolDef) (*llm.ChatWithToolsResult, error)
}

// textGenerator is the slice of llm.GeminiClient used for elaboration.
type textGenerator interface {
	Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error)
	Model() string
}

// RemoteGenerator adapts a function-calling cloud model to Generator.
//
// Only user turns are forwarded. The remote engine reports no confidence,
// so Confidence stays nil; Elapsed is measured here.
//
// Thread Safety: Safe for concurrent use.
type RemoteGenerator struct {
	client toolChatter
}

// NewRemoteGenerator wraps client, normally an *llm.GeminiClient.
func NewRemoteGenerator(client toolChatter) *RemoteGenerator {
	return &RemoteGenerator{client: client}
}

// Generate implements Generator.
func (g *RemoteGenerator) Generate(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDef) (*RoutingResult, error) {
	userOnly := make([]llm.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "user" {
			userOnly = append(userOnly, llm.ChatMessage{Role: "user", Content: m.Content})
		}
	}
	if len(userOnly) == 0 {
		return nil, fmt.Errorf("remote generate: no user message to send")
	}

	start := time.Now()
	resp, err := g.client.ChatWithTools(ctx, userOnly, llm.GenerationParams{}, tools)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("remote generate: %w", err)
	}

	return &RoutingResult{
		FunctionCalls: callsFromResponses(resp.ToolCalls),
		Elapsed:       elapsed,
	}, nil
}

// RemoteElaborator adapts a text-generation cloud model to Elaborator.
//
// The prompt is the task followed by a blank line and the context.
type RemoteElaborator struct {
	client    textGenerator
	maxTokens int
}

// NewRemoteElaborator wraps client. maxTokens <= 0 uses 512.
func NewRemoteElaborator(client textGenerator, maxTokens int) *RemoteElaborator {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &RemoteElaborator{client: client, maxTokens: maxTokens}
}

// Model reports the underlying model, used for cache keys.
func (e *RemoteElaborator) Model() string { return e.client.Model() }

// Elaborate implements Elaborator.
func (e *RemoteElaborator) Elaborate(ctx context.Context, disclosed, task string) (string, error) {
	prompt := task + "\n\n" + disclosed
	text, err := e.client.Generate(ctx, prompt, llm.GenerationParams{MaxTokens: llm.IntPtr(e.maxTokens)})
	if err != nil {
		return "", fmt.Errorf("elaborate: %w", err)
	}
	return strings.TrimSpace(text), nil
}
