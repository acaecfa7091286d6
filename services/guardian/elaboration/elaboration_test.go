// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package elaboration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	badgerstore "github.com/shudhatma1995/NDA-Guardian/services/guardian/storage/badger"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
)

func TestTask(t *testing.T) {
	task, ok := Task(&tools.Disclosure{Tool: tools.CheckEnforceability, ClauseType: "non_compete", Jurisdiction: "California"})
	require.True(t, ok)
	assert.Equal(t, "As a legal expert, assess whether the following non compete clause is legally "+
		"enforceable in California. Cite relevant laws or precedents if applicable. Be concise (3-4 sentences).", task)

	task, ok = Task(&tools.Disclosure{Tool: tools.BenchmarkClause, ClauseType: "ip_assignment"})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(task, "As a legal expert, assess whether the following ip assignment clause is standard"))
	assert.True(t, strings.HasSuffix(task, "compared to typical NDAs. Be concise (3-4 sentences)."))

	_, ok = Task(&tools.Disclosure{Tool: tools.SummarizeClause})
	assert.False(t, ok)
	_, ok = Task(nil)
	assert.False(t, ok)
}

func TestKey_DependsOnEveryPart(t *testing.T) {
	base := Key("m", "task", "ctx")
	assert.True(t, strings.HasPrefix(base, KeyPrefix))
	assert.Len(t, base, len(KeyPrefix)+64)
	assert.Equal(t, base, Key("m", "task", "ctx"))
	assert.NotEqual(t, base, Key("m2", "task", "ctx"))
	assert.NotEqual(t, base, Key("m", "task2", "ctx"))
	assert.NotEqual(t, base, Key("m", "task", "ctx2"))
}

func TestEntryRoundTrip(t *testing.T) {
	in := Entry{Text: "Likely unenforceable.", Model: "gemini-2.0-flash", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	raw, err := EncodeEntry(in)
	require.NoError(t, err)
	out, err := DecodeEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeEntry([]byte("garbage"))
	assert.Error(t, err)
}

func openMemDB(t *testing.T) *badgerstore.DB {
	t.Helper()
	db, err := badgerstore.OpenDB(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCachingElaborator_HitAfterMiss(t *testing.T) {
	inner := &engine.StaticElaborator{Text: "Standard scope."}
	c := NewCachingElaborator(inner, openMemDB(t), "", 0, nil)
	assert.Equal(t, "static", c.Model())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		text, err := c.Elaborate(ctx, "Clause type: ip_assignment", "benchmark")
		require.NoError(t, err)
		assert.Equal(t, "Standard scope.", text)
	}
	assert.Len(t, inner.Disclosed(), 1)

	_, err := c.Elaborate(ctx, "Clause type: non_compete", "benchmark")
	require.NoError(t, err)
	assert.Len(t, inner.Disclosed(), 2)
}

func TestCachingElaborator_OutcomeReportsCacheHits(t *testing.T) {
	inner := &engine.StaticElaborator{Text: "Standard scope."}
	c := NewCachingElaborator(inner, openMemDB(t), "", 0, nil)

	ctx, first := WithOutcome(context.Background())
	_, err := c.Elaborate(ctx, "Clause type: ip_assignment", "benchmark")
	require.NoError(t, err)
	assert.False(t, first.FromCache())

	ctx, second := WithOutcome(context.Background())
	_, err = c.Elaborate(ctx, "Clause type: ip_assignment", "benchmark")
	require.NoError(t, err)
	assert.True(t, second.FromCache())
	assert.Len(t, inner.Disclosed(), 1)

	var none *Outcome
	assert.False(t, none.FromCache())

	// Without a store every call reaches the engine.
	direct := NewCachingElaborator(inner, nil, "m", 0, nil)
	ctx, third := WithOutcome(context.Background())
	_, err = direct.Elaborate(ctx, "Clause type: ip_assignment", "benchmark")
	require.NoError(t, err)
	assert.False(t, third.FromCache())
}

func TestCachingElaborator_ErrorsAreNotCached(t *testing.T) {
	inner := &engine.StaticElaborator{Err: errors.New("upstream down")}
	c := NewCachingElaborator(inner, openMemDB(t), "m", time.Hour, nil)

	_, err := c.Elaborate(context.Background(), "ctx", "task")
	require.Error(t, err)

	inner.Err = nil
	inner.Text = "ok"
	text, err := c.Elaborate(context.Background(), "ctx", "task")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Len(t, inner.Disclosed(), 2)
}

func TestCachingElaborator_NilDBPassesThrough(t *testing.T) {
	inner := &engine.StaticElaborator{Text: "x"}
	c := NewCachingElaborator(inner, nil, "m", 0, nil)
	for i := 0; i < 2; i++ {
		_, err := c.Elaborate(context.Background(), "ctx", "task")
		require.NoError(t, err)
	}
	assert.Len(t, inner.Disclosed(), 2)
}

func TestCachingElaborator_ClosedDBDoesNotFailQuery(t *testing.T) {
	db, err := badgerstore.OpenDB(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c := NewCachingElaborator(&engine.StaticElaborator{Text: "still works"}, db, "m", 0, nil)
	text, err := c.Elaborate(context.Background(), "ctx", "task")
	require.NoError(t, err)
	assert.Equal(t, "still works", text)
}

type slowElaborator struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowElaborator) Elaborate(ctx context.Context, _, _ string) (string, error) {
	s.calls.Add(1)
	select {
	case <-s.release:
		return "shared", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestCachingElaborator_CoalescesConcurrentRequests(t *testing.T) {
	inner := &slowElaborator{release: make(chan struct{})}
	c := NewCachingElaborator(inner, nil, "m", 0, nil)

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	outcomes := make([]*Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, o := WithOutcome(context.Background())
			outcomes[i] = o
			results[i], _ = c.Elaborate(ctx, "ctx", "task")
		}(i)
	}

	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	engineCalls := 0
	for _, o := range outcomes {
		if !o.FromCache() {
			engineCalls++
		}
	}
	assert.Equal(t, 1, engineCalls, "only the caller that ran the engine call disclosed anything")
}

func TestCachingElaborator_CallerCancellation(t *testing.T) {
	inner := &slowElaborator{release: make(chan struct{})}
	defer close(inner.release)
	c := NewCachingElaborator(inner, nil, "m", 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Elaborate(ctx, "ctx", "task")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
