// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/clauses"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

func TestSampleNDA_Segments(t *testing.T) {
	store := clauses.Segment(SampleNDA(), clauses.DefaultRules())
	keys := store.Keys()
	for _, want := range []string{"parties", "confidentiality", "non_compete", "ip_assignment", "governing_law"} {
		assert.Contains(t, keys, want)
	}
	assert.Equal(t, "Acme Corp", store.Parties().Company)
	assert.Equal(t, "Jane Doe", store.Parties().Individual)
}

func TestTablesCoverEveryQuery(t *testing.T) {
	local, remote := LocalTable(), RemoteTable()
	require.Len(t, Queries(), 5)
	for _, q := range Queries() {
		l, ok := local[q]
		require.True(t, ok, q)
		require.NotNil(t, l.Confidence)
		require.Len(t, l.FunctionCalls, 1)
		assert.Contains(t, tools.Names(), l.FunctionCalls[0].Name)

		r, ok := remote[q]
		require.True(t, ok, q)
		assert.Nil(t, r.Confidence)
		assert.Equal(t, l.FunctionCalls[0].Name, r.FunctionCalls[0].Name)
	}
}

func TestLocalGenerator_MatchesCaseInsensitively(t *testing.T) {
	res, err := NewLocalGenerator().Generate(context.Background(),
		[]llm.ChatMessage{{Role: "user", Content: "  what is the NON-COMPETE duration?  "}}, nil)
	require.NoError(t, err)
	first, ok := res.First()
	require.True(t, ok)
	assert.Equal(t, tools.GetClauseInfo, first.Name)
	assert.Equal(t, "duration", first.Arguments[tools.ArgField])
	assert.InDelta(t, 0.87, res.ConfidenceValue(), 1e-9)
}

func TestStubElaborator(t *testing.T) {
	text, err := NewStubElaborator().Elaborate(context.Background(), "ctx", "task")
	require.NoError(t, err)
	assert.Equal(t, StubElaboration, text)
}
