// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/clauses"
)

func testStore() *clauses.Store {
	return clauses.NewStore(clauses.DefaultRules(), []clauses.Clause{
		{Key: "parties", Text: "This Agreement is between Acme Corp, a Delaware corporation (\"the Company\"), and Jane Doe, an individual (\"the Employee\")."},
		{Key: "non_compete", Text: "2. NON-COMPETE\nFor 24 months after leaving, the Employee shall not work for any competitor of Acme Corp within a 50 mile radius of the office. The restriction applies worldwide to every product line."},
		{Key: "ip_assignment", Text: "3. INTELLECTUAL PROPERTY\nThe Employee assigns to the Company all inventions made during the engagement. Short. The Employee shall sign all documents needed to perfect the assignment. A third qualifying sentence exists here too for the test."},
		{Key: "term", Text: "Brief term."},
	})
}

func TestCatalog(t *testing.T) {
	assert.Equal(t,
		[]string{ExtractParties, GetClauseInfo, SummarizeClause, CheckEnforceability, BenchmarkClause},
		Names())

	for _, def := range Catalog() {
		_, ok := handlers[def.Function.Name]
		assert.True(t, ok, "catalog tool %q has no handler", def.Function.Name)
		assert.Equal(t, "function", def.Type)
		assert.Equal(t, "object", def.Function.Parameters.Type)
	}
	assert.Len(t, handlers, len(Catalog()))

	enforce := Catalog()[3]
	assert.Equal(t, []string{ArgClauseType, ArgJurisdiction}, enforce.Function.Parameters.Required)
}

func TestIsCloudRequired(t *testing.T) {
	assert.True(t, IsCloudRequired(CheckEnforceability))
	assert.True(t, IsCloudRequired(BenchmarkClause))
	assert.False(t, IsCloudRequired(GetClauseInfo))
	assert.False(t, IsCloudRequired("nope"))
}

func TestExecute(t *testing.T) {
	d := NewDispatcher(80, nil)
	store := testStore()
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args map[string]string
		want string
	}{
		{"parties", ExtractParties, nil, "Company: Acme Corp; Individual: Jane Doe"},
		{"duration", GetClauseInfo, map[string]string{"clause_type": "non-compete", "field": "duration"}, "24 months"},
		{"missing clause_type", GetClauseInfo, map[string]string{"field": "duration"}, "Error: clause_type is required."},
		{"blank clause_type", SummarizeClause, map[string]string{"clause_type": "  "}, "Error: clause_type is required."},
		{"missing jurisdiction", CheckEnforceability, map[string]string{"clause_type": "non_compete"}, "Error: jurisdiction is required."},
		{"clause not found", GetClauseInfo, map[string]string{"clause_type": "made_up_clause", "field": "duration"}, "Clause 'made_up_clause' not found in document."},
		{"field not found", GetClauseInfo, map[string]string{"clause_type": "term", "field": "amount"}, "No monetary amount found."},
		{"summary fallback excerpt", SummarizeClause, map[string]string{"clause_type": "term"}, "Brief term."},
		{"unknown tool", "delete_everything", nil, "unknown tool: delete_everything"},
		{"benchmark missing clause", BenchmarkClause, map[string]string{"clause_type": "indemnity"}, "Clause 'indemnity' not found in document."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Execute(ctx, tt.tool, tt.args, store))
		})
	}
}

func TestExecute_FieldDefaultsToDefinition(t *testing.T) {
	d := NewDispatcher(80, nil)
	got := d.Execute(context.Background(), GetClauseInfo, map[string]string{"clause_type": "ip"}, testStore())
	assert.True(t, strings.HasPrefix(got, "INTELLECTUAL PROPERTY\nThe Employee assigns"), "got %q", got)
}

func TestSummarizeClause_TwoLongSentences(t *testing.T) {
	d := NewDispatcher(80, nil)
	got := d.Execute(context.Background(), SummarizeClause, map[string]string{"clause_type": "ip_assignment"}, testStore())

	sentences := clauses.SplitSentences(got)
	require.Len(t, sentences, 2)
	for _, s := range sentences {
		assert.Greater(t, clauses.WordCount(s), 8, "sentence %q", s)
	}
	assert.NotContains(t, got, "third qualifying")
}

func TestInvoke_CheckEnforceabilityDisclosure(t *testing.T) {
	d := NewDispatcher(80, nil)

	out, err := d.Invoke(context.Background(), CheckEnforceability,
		map[string]string{"clause_type": "non_compete", "jurisdiction": "California"}, testStore())
	require.NoError(t, err)
	require.NotNil(t, out.Disclosure)

	assert.True(t, strings.HasPrefix(out.Text,
		"Clause type: non_compete\nJurisdiction: California\nClause summary (anonymized): "))
	assert.Equal(t, out.Text, out.Disclosure.Context)
	assert.Equal(t, clauses.WordCount(out.Text), out.Disclosure.Words)
	assert.Equal(t, "California", out.Disclosure.Jurisdiction)
	assert.NotContains(t, out.Text, "Acme Corp")
	assert.NotContains(t, out.Text, "NON-COMPETE")
	assert.Contains(t, out.Text, "Party A")
}

func TestInvoke_BenchmarkDisclosure(t *testing.T) {
	d := NewDispatcher(80, nil)

	out, err := d.Invoke(context.Background(), BenchmarkClause,
		map[string]string{"clause_type": "ip_assignment"}, testStore())
	require.NoError(t, err)
	require.NotNil(t, out.Disclosure)
	assert.True(t, strings.HasPrefix(out.Text, "Clause type: ip_assignment\nClause summary (anonymized): "))
	assert.NotContains(t, out.Text, "Jurisdiction:")
}

func TestInvoke_SummaryBudget(t *testing.T) {
	d := NewDispatcher(5, nil)

	out, err := d.Invoke(context.Background(), BenchmarkClause,
		map[string]string{"clause_type": "non_compete"}, testStore())
	require.NoError(t, err)

	summary := strings.TrimPrefix(out.Text, "Clause type: non_compete\nClause summary (anonymized): ")
	assert.LessOrEqual(t, clauses.WordCount(summary), 5)
}

func TestInvoke_DeviceToolHasNoDisclosure(t *testing.T) {
	d := NewDispatcher(80, nil)
	out, err := d.Invoke(context.Background(), ExtractParties, nil, testStore())
	require.NoError(t, err)
	assert.Nil(t, out.Disclosure)
}

func TestInvoke_TypedErrors(t *testing.T) {
	d := NewDispatcher(80, nil)
	ctx := context.Background()

	_, err := d.Invoke(ctx, "nope", nil, testStore())
	var unknown *UnknownToolError
	assert.True(t, errors.As(err, &unknown))

	_, err = d.Invoke(ctx, SummarizeClause, nil, testStore())
	var missing *MissingArgumentError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, ArgClauseType, missing.Argument)

	_, err = d.Invoke(ctx, SummarizeClause, map[string]string{"clause_type": "x"}, nil)
	assert.ErrorIs(t, err, ErrNoStore)

	empty := clauses.NewStore(clauses.DefaultRules(), nil)
	_, err = d.Invoke(ctx, ExtractParties, nil, empty)
	var fnf *clauses.FieldNotFoundError
	require.True(t, errors.As(err, &fnf))
	assert.Equal(t, "Parties not found.", Render(err))
}

func TestRender(t *testing.T) {
	assert.Equal(t, "", Render(nil))
	assert.Equal(t, "Error: boom", Render(errors.New("boom")))
}
