// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "encoding/json"

// ToolDef describes one callable tool in the OpenAI-style function schema.
//
// Description:
//
//	Both engines receive the same catalog. The local engine takes ToolDef
//	as-is in its JSON body; GeminiClient converts it to functionDeclarations.
//
// Thread Safety: ToolDef is immutable and safe for concurrent read access.
type ToolDef struct {
	// Type is always "function".
	Type string `json:"type"`

	Function ToolFunction `json:"function"`
}

// ToolFunction contains the function name, description, and parameter schema.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is the JSON Schema object for a tool's arguments.
type ToolParameters struct {
	// Type is always "object".
	Type       string                  `json:"type"`
	Properties map[string]ToolParamDef `json:"properties,omitempty"`
	Required   []string                `json:"required,omitempty"`
}

// ToolParamDef defines a single parameter in JSON Schema format.
type ToolParamDef struct {
	// Type is the JSON Schema type (string, integer, boolean, number).
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// ChatMessage is one turn of a conversation sent to an engine.
//
// Description:
//
//	Plain turns use Role and Content. Assistant turns may carry ToolCalls;
//	tool results carry ToolCallID and ToolName, the latter being what
//	Gemini's functionResponse keys on.
//
// Thread Safety: ChatMessage is safe for concurrent read access.
type ChatMessage struct {
	// Role is "system", "user", "assistant", or "tool".
	Role       string             `json:"role"`
	Content    string             `json:"content,omitempty"`
	ToolCalls  []ToolCallResponse `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	ToolName   string             `json:"tool_name,omitempty"`
}

// ToolCallResponse is one tool call proposed by an engine.
//
// Thread Safety: ToolCallResponse is safe for concurrent read access.
type ToolCallResponse struct {
	// ID identifies the call. Gemini issues none, so GeminiClient
	// synthesizes "gemini-call-N".
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ArgumentsString returns the arguments as a JSON string.
//
// Description:
//
//	Some engines double-encode arguments as a JSON string value. That case
//	is unquoted; any other JSON value is returned raw. Empty becomes "{}".
//
// Thread Safety: This method is safe for concurrent use.
func (t *ToolCallResponse) ArgumentsString() string {
	if len(t.Arguments) == 0 {
		return "{}"
	}
	if t.Arguments[0] == '"' {
		var s string
		if err := json.Unmarshal(t.Arguments, &s); err == nil {
			return s
		}
	}
	return string(t.Arguments)
}

// ArgumentsMap decodes the arguments into a generic map. Anything that is
// not a JSON object, including malformed input, yields an empty map.
func (t *ToolCallResponse) ArgumentsMap() map[string]any {
	out := map[string]any{}
	if err := json.Unmarshal([]byte(t.ArgumentsString()), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// ChatWithToolsResult is what GeminiClient.ChatWithTools returns.
type ChatWithToolsResult struct {
	// Content is any text the model produced alongside or instead of calls.
	Content   string
	ToolCalls []ToolCallResponse

	// StopReason is "end" or "tool_use".
	StopReason string
}
