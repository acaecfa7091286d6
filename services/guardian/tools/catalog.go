// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools defines the closed NDA tool catalog and executes tool calls
// against a clause Store.
package tools

import (
	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// Tool names. The catalog is closed; these are the only names Dispatch
// accepts.
const (
	ExtractParties      = "extract_parties"
	GetClauseInfo       = "get_clause_info"
	SummarizeClause     = "summarize_clause"
	CheckEnforceability = "check_enforceability"
	BenchmarkClause     = "benchmark_clause"
)

// Argument names.
const (
	ArgClauseType   = "clause_type"
	ArgField        = "field"
	ArgJurisdiction = "jurisdiction"
)

// Catalog returns the tool definitions offered to inference engines, in
// their fixed order. The returned slice is a fresh copy.
func Catalog() []llm.ToolDef {
	return []llm.ToolDef{
		function(ExtractParties,
			"Extract the full legal names of all parties to this NDA",
			nil, nil),
		function(GetClauseInfo,
			"Retrieve specific information from a named clause (duration, scope, amount, etc.)",
			map[string]llm.ToolParamDef{
				ArgClauseType: {
					Type: "string",
					Description: "Clause name: non_compete | confidentiality | ip_assignment | " +
						"indemnification | liability_cap | term | governing_law",
				},
				ArgField: {
					Type:        "string",
					Description: "Field to extract: duration | scope | amount | parties | definition",
				},
			},
			[]string{ArgClauseType}),
		function(SummarizeClause,
			"Produce a brief summary of a named clause",
			map[string]llm.ToolParamDef{
				ArgClauseType: {Type: "string", Description: "Clause name to summarize"},
			},
			[]string{ArgClauseType}),
		function(CheckEnforceability,
			"Assess whether a clause is legally enforceable in a jurisdiction (requires external legal knowledge)",
			map[string]llm.ToolParamDef{
				ArgClauseType:   {Type: "string", Description: "Clause to assess enforceability for"},
				ArgJurisdiction: {Type: "string", Description: "e.g. California, New York, Texas"},
			},
			[]string{ArgClauseType, ArgJurisdiction}),
		function(BenchmarkClause,
			"Compare a clause to market standards: is it unusually broad, narrow, or standard?",
			map[string]llm.ToolParamDef{
				ArgClauseType: {Type: "string", Description: "Clause to benchmark against market norms"},
			},
			[]string{ArgClauseType}),
	}
}

// Names returns the catalog tool names in order.
func Names() []string {
	defs := Catalog()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Function.Name
	}
	return out
}

func function(name, description string, props map[string]llm.ToolParamDef, required []string) llm.ToolDef {
	if props == nil {
		props = map[string]llm.ToolParamDef{}
	}
	return llm.ToolDef{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        name,
			Description: description,
			Parameters: llm.ToolParameters{
				Type:       "object",
				Properties: props,
				Required:   required,
			},
		},
	}
}
