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

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestToolCallResponse_ArgumentsString(t *testing.T) {
	tests := []struct {
		name string
		args json.RawMessage
		want string
	}{
		{"object", json.RawMessage(`{"clause_type":"non_compete"}`), `{"clause_type":"non_compete"}`},
		{"double encoded", json.RawMessage(`"{\"field\":\"duration\"}"`), `{"field":"duration"}`},
		{"nil", nil, "{}"},
		{"array", json.RawMessage(`[1,2]`), `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := ToolCallResponse{Name: "get_clause_info", Arguments: tt.args}
			if got := tc.ArgumentsString(); got != tt.want {
				t.Errorf("ArgumentsString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolCallResponse_ArgumentsMap(t *testing.T) {
	tests := []struct {
		name string
		args json.RawMessage
		want map[string]any
	}{
		{"object", json.RawMessage(`{"clause_type":"ip_assignment"}`), map[string]any{"clause_type": "ip_assignment"}},
		{"double encoded", json.RawMessage(`"{\"jurisdiction\":\"California\"}"`), map[string]any{"jurisdiction": "California"}},
		{"array is not an object", json.RawMessage(`[1,2]`), map[string]any{}},
		{"malformed", json.RawMessage(`{"clause_type":`), map[string]any{}},
		{"null", json.RawMessage(`null`), map[string]any{}},
		{"empty", nil, map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := ToolCallResponse{Arguments: tt.args}
			if got := tc.ArgumentsMap(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ArgumentsMap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToolDef_WireShape(t *testing.T) {
	def := ToolDef{
		Type: "function",
		Function: ToolFunction{
			Name:        "check_enforceability",
			Description: "Assess whether a clause is enforceable",
			Parameters: ToolParameters{
				Type: "object",
				Properties: map[string]ToolParamDef{
					"clause_type":  {Type: "string"},
					"jurisdiction": {Type: "string"},
				},
				Required: []string{"clause_type", "jurisdiction"},
			},
		},
	}

	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	fn, ok := generic["function"].(map[string]any)
	if !ok {
		t.Fatalf("function key missing: %s", data)
	}
	params := fn["parameters"].(map[string]any)
	if params["type"] != "object" {
		t.Errorf("parameters.type = %v, want object", params["type"])
	}
	if req := params["required"].([]any); len(req) != 2 {
		t.Errorf("required = %v, want two entries", req)
	}
}

func TestChatMessage_OmitsEmptyToolFields(t *testing.T) {
	data, err := json.Marshal(ChatMessage{Role: "user", Content: "Who are the parties?"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got := string(data); got != `{"role":"user","content":"Who are the parties?"}` {
		t.Errorf("Marshal = %s", got)
	}
}
