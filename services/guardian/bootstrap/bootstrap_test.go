// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/demo"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/egress"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
)

// clearEnv isolates a test from the developer's cloud settings.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "GUARDIAN_LOCAL_ONLY", "GUARDIAN_EGRESS_ENABLED",
		"GUARDIAN_CONSENT_GEMINI", "GUARDIAN_COST_LIMIT_CENTS", CacheDirEnv,
	} {
		t.Setenv(k, "")
	}
}

func TestBuild_MockWalkthrough(t *testing.T) {
	clearEnv(t)

	app, err := Build(Options{Mock: true})
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, ModeMock, app.Mode)
	assert.Equal(t, ProviderScripted, app.Provider)
	assert.False(t, app.PersistentCache())

	_, err = app.Session.Load(demo.SampleNDA())
	require.NoError(t, err)

	ctx := context.Background()
	sources := make(map[string]string)
	for _, q := range demo.Queries() {
		ans, err := app.Service.Ask(ctx, q)
		require.NoError(t, err, q)
		sources[q] = ans.Source
	}

	assert.Equal(t, engine.ProvenanceOnDevice, sources[demo.QueryParties])
	assert.Equal(t, engine.ProvenanceExternalKnowledge, sources[demo.QueryEnforceability])
	assert.Equal(t, engine.ProvenanceExternalKnowledge, sources[demo.QueryBenchmark])

	ans, err := app.Service.Ask(ctx, demo.QueryEnforceability)
	require.NoError(t, err)
	assert.Equal(t, demo.StubElaboration, ans.Answer)
	assert.Positive(t, ans.WordsSentToCloud)
}

func TestBuild_MockLocalOnlyFallsBack(t *testing.T) {
	clearEnv(t)

	app, err := Build(Options{Mock: true, LocalOnly: true})
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Session.Load(demo.SampleNDA())
	require.NoError(t, err)

	ans, err := app.Service.Ask(context.Background(), demo.QueryEnforceability)
	require.NoError(t, err)
	assert.Equal(t, engine.ProvenanceEscalationFailed, ans.Source)
	assert.Zero(t, ans.WordsSentToCloud)
	assert.True(t, app.Guard.Config().LocalOnly)
}

func TestBuild_ThresholdOverride(t *testing.T) {
	clearEnv(t)

	app, err := Build(Options{Mock: true, Threshold: 0.95})
	require.NoError(t, err)
	defer app.Close()
	assert.InDelta(t, 0.95, app.Router.Threshold(), 1e-9)

	_, err = Build(Options{Mock: true, Threshold: 1.5})
	assert.Error(t, err)
	_, err = Build(Options{Mock: true, Threshold: -0.1})
	assert.Error(t, err)
}

func TestBuild_GeminiWithPersistentCache(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	dir := filepath.Join(t.TempDir(), "elaboration")
	app, err := Build(Options{GrantConsent: true, CacheDir: dir})
	require.NoError(t, err)

	assert.Equal(t, ModeLive, app.Mode)
	assert.Equal(t, egress.ProviderGemini, app.Provider)
	assert.True(t, app.PersistentCache())
	assert.True(t, app.Guard.Config().Consent[egress.ProviderGemini])

	require.NoError(t, app.Close())
	assert.DirExists(t, dir)
}

func TestBuild_NoProvider(t *testing.T) {
	clearEnv(t)

	app, err := Build(Options{CacheDir: t.TempDir()})
	require.NoError(t, err)
	defer app.Close()

	assert.Empty(t, app.Provider)
	assert.False(t, app.PersistentCache(), "no elaborator means nothing to cache")
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv(CacheDirEnv, "/tmp/guardian-cache")
	assert.Equal(t, "/tmp/guardian-cache", DefaultCacheDir())

	t.Setenv(CacheDirEnv, "")
	t.Setenv("HOME", "/home/someone")
	assert.Equal(t, filepath.Join("/home/someone", ".nda-guardian", "cache", "elaboration"), DefaultCacheDir())
}
