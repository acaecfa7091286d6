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
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/clauses"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/config"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "guardian",
	Subsystem: "tools",
	Name:      "dispatch_total",
	Help:      "Tool dispatches by tool and outcome: ok, not_found, missing_argument, unknown_tool, error",
}, []string{"tool", "outcome"})

const tracerName = "guardian.tools"

// ErrNoStore is returned when Invoke is called without a loaded document.
var ErrNoStore = errors.New("no document loaded")

// =============================================================================
// Types
// =============================================================================

// Disclosure is the text a cloud-required tool prepares for elaboration.
//
// Context is the only document-derived content allowed off the device. It
// contains the clause type, the jurisdiction when relevant, and an
// anonymized summary.
type Disclosure struct {
	Tool         string `json:"tool"`
	ClauseType   string `json:"clause_type"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Context      string `json:"context"`
	Words        int    `json:"words"`
}

// Outcome is the successful result of a tool call.
type Outcome struct {
	// Text is the tool's answer. For cloud-required tools it equals
	// Disclosure.Context.
	Text string

	// Disclosure is set only for cloud-required tools.
	Disclosure *Disclosure
}

type handler func(d *Dispatcher, args map[string]string, store *clauses.Store) (Outcome, error)

// handlers is the closed strategy table. Every catalog name has exactly
// one entry.
var handlers = map[string]handler{
	ExtractParties:      (*Dispatcher).extractParties,
	GetClauseInfo:       (*Dispatcher).getClauseInfo,
	SummarizeClause:     (*Dispatcher).summarizeClause,
	CheckEnforceability: (*Dispatcher).checkEnforceability,
	BenchmarkClause:     (*Dispatcher).benchmarkClause,
}

// IsCloudRequired reports whether name needs knowledge beyond the document,
// according to the embedded routing policy.
func IsCloudRequired(name string) bool {
	return slices.Contains(config.MustGetRoutingPolicy().CloudRequiredTools, name)
}

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher executes tool calls against a clause Store.
//
// Description:
//
//	Looks the tool name up in a fixed strategy table and runs its handler.
//	Handlers report failures as typed errors; Execute converts them to
//	display strings so callers that need a plain answer never see an error.
//
// Thread Safety: Safe for concurrent use. The Store is read only.
type Dispatcher struct {
	summaryWords int
	logger       *slog.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Inputs:
//
//	summaryWords - Word budget for anonymized summaries. Zero uses 80.
//	logger - Logger instance. Nil uses slog.Default().
func NewDispatcher(summaryWords int, logger *slog.Logger) *Dispatcher {
	if summaryWords <= 0 {
		summaryWords = config.DefaultSummaryMaxWords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{summaryWords: summaryWords, logger: logger}
}

// Invoke runs one tool call.
//
// Inputs:
//
//	ctx - Context for tracing.
//	name - Tool name from the catalog.
//	args - String arguments; missing keys are treated as absent.
//	store - The pinned document. Nil yields ErrNoStore.
//
// Outputs:
//
//	Outcome - The tool result on success.
//	error - *UnknownToolError, *MissingArgumentError,
//	        *clauses.ClauseNotFoundError, *clauses.FieldNotFoundError,
//	        or ErrNoStore.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]string, store *clauses.Store) (Outcome, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "tools.Dispatcher.Invoke",
		trace.WithAttributes(
			attribute.String("tool", name),
			attribute.Int("arg_count", len(args)),
		),
	)
	defer span.End()

	h, ok := handlers[name]
	if !ok {
		dispatchTotal.WithLabelValues("unknown", "unknown_tool").Inc()
		err := &UnknownToolError{Name: name}
		span.SetStatus(codes.Error, "unknown tool")
		return Outcome{}, err
	}
	if store == nil {
		dispatchTotal.WithLabelValues(name, "error").Inc()
		span.SetStatus(codes.Error, "no store")
		return Outcome{}, ErrNoStore
	}

	out, err := h(d, args, store)
	outcome := classify(err)
	dispatchTotal.WithLabelValues(name, outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		d.logger.Debug("tool dispatch returned error",
			slog.String("tool", name),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return Outcome{}, err
	}

	if out.Disclosure != nil {
		span.SetAttributes(attribute.Int("disclosure_words", out.Disclosure.Words))
	}
	return out, nil
}

// Execute runs one tool call and always returns an answer string.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]string, store *clauses.Store) string {
	out, err := d.Invoke(ctx, name, args, store)
	if err != nil {
		return Render(err)
	}
	return out.Text
}

func classify(err error) string {
	var (
		missing *MissingArgumentError
		cnf     *clauses.ClauseNotFoundError
		fnf     *clauses.FieldNotFoundError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &missing):
		return "missing_argument"
	case errors.As(err, &cnf), errors.As(err, &fnf):
		return "not_found"
	default:
		return "error"
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (d *Dispatcher) extractParties(_ map[string]string, store *clauses.Store) (Outcome, error) {
	p := store.Parties()
	if p.Empty() {
		return Outcome{}, &clauses.FieldNotFoundError{Clause: "parties", Field: clauses.FieldParties}
	}
	return Outcome{Text: p.String()}, nil
}

func (d *Dispatcher) getClauseInfo(args map[string]string, store *clauses.Store) (Outcome, error) {
	clauseType, err := required(GetClauseInfo, args, ArgClauseType)
	if err != nil {
		return Outcome{}, err
	}
	field := strings.TrimSpace(args[ArgField])
	if field == "" {
		field = string(clauses.FieldDefinition)
	}

	value, err := store.Field(clauseType, clauses.ParseFieldKind(field))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Text: value}, nil
}

func (d *Dispatcher) summarizeClause(args map[string]string, store *clauses.Store) (Outcome, error) {
	clauseType, err := required(SummarizeClause, args, ArgClauseType)
	if err != nil {
		return Outcome{}, err
	}
	text, err := store.Clause(clauseType)
	if err != nil {
		return Outcome{}, err
	}

	var picked []string
	for _, s := range clauses.SplitSentences(strings.TrimSpace(text)) {
		if clauses.WordCount(s) > 8 {
			picked = append(picked, s)
			if len(picked) == 2 {
				break
			}
		}
	}
	if len(picked) == 0 {
		return Outcome{Text: clauses.Excerpt(text)}, nil
	}
	return Outcome{Text: strings.Join(picked, " ")}, nil
}

func (d *Dispatcher) checkEnforceability(args map[string]string, store *clauses.Store) (Outcome, error) {
	clauseType, err := required(CheckEnforceability, args, ArgClauseType)
	if err != nil {
		return Outcome{}, err
	}
	jurisdiction, err := required(CheckEnforceability, args, ArgJurisdiction)
	if err != nil {
		return Outcome{}, err
	}

	summary := store.Summarize(clauseType, d.summaryWords)
	if summary == "" {
		return Outcome{}, &clauses.ClauseNotFoundError{Name: clauseType}
	}

	ctxText := fmt.Sprintf("Clause type: %s\nJurisdiction: %s\nClause summary (anonymized): %s",
		clauseType, jurisdiction, summary)
	return disclose(CheckEnforceability, clauseType, jurisdiction, ctxText), nil
}

func (d *Dispatcher) benchmarkClause(args map[string]string, store *clauses.Store) (Outcome, error) {
	clauseType, err := required(BenchmarkClause, args, ArgClauseType)
	if err != nil {
		return Outcome{}, err
	}

	summary := store.Summarize(clauseType, d.summaryWords)
	if summary == "" {
		return Outcome{}, &clauses.ClauseNotFoundError{Name: clauseType}
	}

	ctxText := fmt.Sprintf("Clause type: %s\nClause summary (anonymized): %s", clauseType, summary)
	return disclose(BenchmarkClause, clauseType, "", ctxText), nil
}

func disclose(tool, clauseType, jurisdiction, ctxText string) Outcome {
	return Outcome{
		Text: ctxText,
		Disclosure: &Disclosure{
			Tool:         tool,
			ClauseType:   clauseType,
			Jurisdiction: jurisdiction,
			Context:      ctxText,
			Words:        clauses.WordCount(ctxText),
		},
	}
}

func required(tool string, args map[string]string, name string) (string, error) {
	v := strings.TrimSpace(args[name])
	if v == "" {
		return "", &MissingArgumentError{Tool: tool, Argument: name}
	}
	return v, nil
}
