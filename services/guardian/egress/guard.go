// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package egress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

// Purposes recorded in audit entries.
const (
	PurposeRouting     = "routing"
	PurposeElaboration = "elaboration"
)

// Guard runs the pre-flight checks for every outbound call.
//
// Description:
//
//	Checks run in a fixed order and the first failure wins:
//	kill switch, local-only mode, consent, leak classification,
//	rate limit, cost ceiling. A blocked attempt returns an error wrapping
//	one of the package sentinels and is audited with the blocking check.
//
// Thread Safety: Safe for concurrent use.
type Guard struct {
	cfg        Config
	classifier Classifier
	limiter    *RateLimiter
	cost       *CostMeter
	auditor    *Auditor
	now        func() time.Time
}

// NewGuard builds a guard from cfg. A nil logger uses slog.Default().
func NewGuard(cfg Config, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		cfg:        cfg,
		classifier: LeakClassifier{},
		limiter:    NewRateLimiter(cfg.RatePerMin),
		cost:       NewCostMeter(cfg.CostLimitCents, cfg.CentsPerWord),
		auditor:    NewAuditor(logger.With(slog.String("component", "egress")), cfg.AuditEnabled, cfg.AuditHashContent),
		now:        time.Now,
	}
}

// Config returns the settings the guard was built with.
func (g *Guard) Config() Config { return g.cfg }

// SpentCents returns the estimated spend so far.
func (g *Guard) SpentCents() float64 { return g.cost.SpentCents() }

// Check decides whether content may be sent to provider.
//
// Inputs:
//   - ctx: Carries protected terms (see WithProtectedTerms) and trace info.
//   - provider: Cloud provider name, e.g. ProviderGemini.
//   - purpose: PurposeRouting or PurposeElaboration.
//   - content: The exact text that would leave the device.
//
// Outputs:
//   - *Decision: Always non-nil, for the caller's Complete call.
//   - error: nil when allowed; otherwise wraps the blocking sentinel.
func (g *Guard) Check(ctx context.Context, provider, purpose, content string) (*Decision, error) {
	start := g.now()
	d := &Decision{
		RequestID: uuid.NewString(),
		Provider:  provider,
		Purpose:   purpose,
		Words:     len(strings.Fields(content)),
		Timestamp: start,
	}

	blockedBy, reason := g.runChecks(ctx, d, content)
	d.Duration = g.now().Sub(start)
	if blockedBy != "" {
		d.BlockedBy = blockedBy
		d.BlockReason = reason
		g.auditor.LogBlocked(ctx, d)
		recordBlocked(d)
		return d, fmt.Errorf("%s: %w", reason, sentinelFor(blockedBy))
	}

	d.Allowed = true
	d.ContentHash = HashContent(content)
	g.auditor.LogAllowed(ctx, d)
	recordAllowed(d)
	return d, nil
}

func (g *Guard) runChecks(ctx context.Context, d *Decision, content string) (string, string) {
	if !g.cfg.Enabled {
		return blockedKillSwitch, "egress disabled"
	}
	if g.cfg.LocalOnly {
		return blockedLocalOnly, "local-only mode is on"
	}
	if !g.cfg.Consent[d.Provider] {
		return blockedConsent, fmt.Sprintf("no consent for %s", d.Provider)
	}

	sens, found := g.classifier.Classify(ctx, content)
	d.Sensitivity = sens
	if !sens.AllowsExternalSend() {
		return blockedSensitive, fmt.Sprintf("%s content (%s)", sens, found)
	}

	if ok, wait := g.limiter.Allow(d.Provider); !ok {
		return blockedRateLimit, fmt.Sprintf("retry in %s", wait.Round(time.Millisecond))
	}

	ok, cost := g.cost.CanAfford(d.Words)
	d.EstimatedCents = cost
	if !ok {
		return blockedCost, fmt.Sprintf("estimated %.4f cents exceeds limit %.4f", cost, g.cfg.CostLimitCents)
	}
	return "", ""
}

// Complete records the outcome of an allowed call. Cost is charged only
// when the call succeeded.
func (g *Guard) Complete(ctx context.Context, d *Decision, elapsed time.Duration, callErr error) {
	if d == nil || !d.Allowed {
		return
	}
	var cost float64
	if callErr == nil {
		cost = g.cost.Record(d.Words)
	}
	recordCompleted(d, elapsed, cost)
	g.auditor.LogCompleted(ctx, d, elapsed, callErr)
}

// =============================================================================
// Guarded engines
// =============================================================================

// GuardGenerator wraps inner so every Generate call is checked first. The
// checked content is the user turns, which is all the remote generator
// sends.
func (g *Guard) GuardGenerator(provider string, inner engine.Generator) engine.Generator {
	return &guardedGenerator{guard: g, provider: provider, inner: inner}
}

type guardedGenerator struct {
	guard    *Guard
	provider string
	inner    engine.Generator
}

func (gg *guardedGenerator) Generate(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDef) (*engine.RoutingResult, error) {
	var parts []string
	for _, m := range messages {
		if m.Role == "user" {
			parts = append(parts, m.Content)
		}
	}
	d, err := gg.guard.Check(ctx, gg.provider, PurposeRouting, strings.Join(parts, "\n"))
	if err != nil {
		return nil, err
	}
	start := gg.guard.now()
	res, err := gg.inner.Generate(ctx, messages, tools)
	gg.guard.Complete(ctx, d, gg.guard.now().Sub(start), err)
	return res, err
}

// GuardElaborator wraps inner so every Elaborate call is checked first.
// The checked content is the prompt as sent: task, blank line, context.
func (g *Guard) GuardElaborator(provider string, inner engine.Elaborator) engine.Elaborator {
	return &guardedElaborator{guard: g, provider: provider, inner: inner}
}

type guardedElaborator struct {
	guard    *Guard
	provider string
	inner    engine.Elaborator
}

func (ge *guardedElaborator) Elaborate(ctx context.Context, disclosed, task string) (string, error) {
	d, err := ge.guard.Check(ctx, ge.provider, PurposeElaboration, task+"\n\n"+disclosed)
	if err != nil {
		return "", err
	}
	start := ge.guard.now()
	text, err := ge.inner.Elaborate(ctx, disclosed, task)
	ge.guard.Complete(ctx, d, ge.guard.now().Sub(start), err)
	return text, err
}

// Model passes through the wrapped elaborator's model name, if it has one.
func (ge *guardedElaborator) Model() string {
	if m, ok := ge.inner.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
