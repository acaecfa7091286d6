// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bootstrap assembles the NDA Guardian query stack for the server
// and the CLI.
//
// Wiring, outermost first:
//
//	assistant.Service
//	  ├─ routing.HybridRouter(local, egress.Guard(remote))
//	  ├─ tools.Dispatcher
//	  └─ elaboration.CachingElaborator(egress.Guard(remote elaborator), badger)
//
// A cache hit never reaches the guard, so nothing leaves the device for a
// repeated elaboration.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/assistant"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/clauses"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/config"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/demo"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/egress"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/elaboration"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/routing"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/session"
	badgerstore "github.com/shudhatma1995/NDA-Guardian/services/guardian/storage/badger"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// ProviderScripted labels the in-process scripted remote used in mock
// mode. Nothing sent to it leaves the process, so it is consented
// automatically.
const ProviderScripted = "scripted"

// CacheDirEnv overrides the on-disk elaboration cache location.
const CacheDirEnv = "GUARDIAN_CACHE_DIR"

// Options selects how the stack is built.
type Options struct {
	// Mock replaces the local engine with the scripted demo table. Without
	// GEMINI_API_KEY the remote side is scripted as well and elaboration
	// returns a fixed stub.
	Mock bool

	// Threshold overrides the routing policy's confidence threshold when
	// in (0, 1].
	Threshold float64

	// GrantConsent consents to the Gemini provider for this process, on
	// top of GUARDIAN_CONSENT_GEMINI.
	GrantConsent bool

	// LocalOnly forces every cloud call to be blocked.
	LocalOnly bool

	// CacheDir is where elaboration results persist. Empty keeps the cache
	// in coalescing-only mode.
	CacheDir string

	Logger *slog.Logger
}

// App is an assembled stack.
type App struct {
	Service  *assistant.Service
	Session  *session.Session
	Router   *routing.HybridRouter
	Guard    *egress.Guard
	Policy   config.RoutingPolicy
	Mode     string
	Provider string

	cacheDB *badgerstore.DB
}

// Modes reported by App.Mode.
const (
	ModeLive = "live"
	ModeMock = "mock"
)

// DefaultCacheDir returns GUARDIAN_CACHE_DIR, falling back to
// ~/.nda-guardian/cache/elaboration. It returns "" when no home directory
// can be found.
func DefaultCacheDir() string {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nda-guardian", "cache", "elaboration")
}

// Build assembles the stack described by opts.
//
// Description:
//
//	The local engine is the on-device HTTP client, or the scripted demo
//	table in mock mode. The remote side is Gemini when GEMINI_API_KEY is
//	set, the scripted demo remote in mock mode, and absent otherwise (the
//	router then falls back to the local result on escalation). Both remote
//	paths go through one egress.Guard. A cache directory that cannot be
//	opened is logged and skipped.
//
// Outputs:
//
//	*App - Call Close when done.
//	error - Non-nil for an invalid threshold or a broken policy file.
func Build(opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("bootstrap: threshold %.2f outside [0,1]", opts.Threshold)
	}

	policy := *config.MustGetRoutingPolicy()
	if opts.Threshold > 0 {
		policy.ConfidenceThreshold = opts.Threshold
	}

	app := &App{Policy: policy, Mode: ModeLive}

	var local engine.Generator
	if opts.Mock {
		app.Mode = ModeMock
		local = demo.NewLocalGenerator()
	} else {
		local = engine.NewLocalGenerator(llm.NewLocalEngineClient(), logger)
	}

	var (
		remote     engine.Generator
		elaborator engine.Elaborator
	)
	gemini, err := llm.NewGeminiClient()
	switch {
	case err == nil:
		app.Provider = egress.ProviderGemini
		remote = engine.NewRemoteGenerator(gemini)
		elaborator = engine.NewRemoteElaborator(gemini, policy.ElaborationMaxTokens)
	case opts.Mock:
		app.Provider = ProviderScripted
		remote = demo.NewRemoteGenerator()
		elaborator = demo.NewStubElaborator()
	default:
		logger.Warn("no cloud provider configured; escalations fall back to on-device results",
			slog.String("reason", llm.SafeLogString(err.Error())))
	}

	egressCfg := egress.LoadConfig()
	if opts.GrantConsent {
		egressCfg = egressCfg.WithConsent(egress.ProviderGemini)
	}
	if opts.LocalOnly {
		egressCfg.LocalOnly = true
	}
	if app.Provider == ProviderScripted {
		egressCfg = egressCfg.WithConsent(ProviderScripted)
	}
	app.Guard = egress.NewGuard(egressCfg, logger)

	if remote != nil {
		remote = app.Guard.GuardGenerator(app.Provider, remote)
	}
	if elaborator != nil {
		var db *badgerstore.DB
		if app.Provider == egress.ProviderGemini && opts.CacheDir != "" {
			cfg := badgerstore.DefaultConfig(opts.CacheDir)
			cfg.Logger = logger
			db, err = badgerstore.OpenDB(cfg)
			if err != nil {
				logger.Warn("elaboration cache unavailable, continuing without persistence",
					slog.String("path", opts.CacheDir),
					slog.String("error", err.Error()))
				db = nil
			}
		}
		app.cacheDB = db
		elaborator = elaboration.NewCachingElaborator(
			app.Guard.GuardElaborator(app.Provider, elaborator), db, "", elaboration.DefaultTTL, logger)
	}

	app.Router, err = routing.NewHybridRouter(local, remote, &app.Policy, logger)
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.Session = session.New(clauses.DefaultRules(), logger)
	app.Service, err = assistant.NewService(assistant.Config{
		Session:            app.Session,
		Router:             app.Router,
		Dispatcher:         tools.NewDispatcher(policy.SummaryMaxWords, logger),
		Elaborator:         elaborator,
		ElaborationTimeout: policy.ElaborationTimeout,
		Logger:             logger,
	})
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	logger.Info("guardian stack assembled",
		slog.String("mode", app.Mode),
		slog.String("provider", app.Provider),
		slog.Float64("threshold", policy.ConfidenceThreshold),
		slog.Bool("local_only", egressCfg.LocalOnly),
		slog.Bool("persistent_cache", app.cacheDB != nil),
	)
	return app, nil
}

// PersistentCache reports whether elaborations are stored on disk.
func (a *App) PersistentCache() bool { return a.cacheDB != nil }

// Close releases the elaboration cache.
func (a *App) Close() error {
	return a.closeDB()
}

func (a *App) closeDB() error {
	if a.cacheDB == nil {
		return nil
	}
	err := a.cacheDB.Close()
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close elaboration cache: %w", err)
	}
	return nil
}
