// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant answers one question about the loaded NDA.
//
// A query is routed to a tool call, the first call is run against the
// pinned clause store, cloud-required results are elaborated, and the
// answer is returned with its provenance and a privacy note.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/config"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/egress"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/elaboration"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/session"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

const tracerName = "guardian.assistant"

// ErrEmptyQuery is returned for a blank question.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Fixed answer texts.
const (
	NoCallAnswer        = "No tool call was generated for this query. Please rephrase your question."
	NoCallPrivacyNote   = "No data sent to cloud."
	OnDevicePrivacyNote = "All processing done on-device. No data sent to cloud."
	CachedPrivacyNote   = "Cloud elaboration served from local cache. No data sent to cloud."
	ToolNone            = "none"
)

// Router is the routing capability the service needs.
type Router interface {
	Route(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDef) (*engine.RoutingResult, error)
}

// Answer is the result of one query.
type Answer struct {
	Query              string            `json:"query"`
	Answer             string            `json:"answer"`
	ToolCalled         string            `json:"tool_called"`
	ToolArguments      map[string]string `json:"tool_arguments"`
	Source             string            `json:"source"`
	Confidence         *float64          `json:"confidence"`
	LatencyMS          float64           `json:"latency_ms"`
	RoutingMS          float64           `json:"routing_ms"`
	WordsSentToCloud   int               `json:"words_sent_to_cloud"`
	PrivacyNote        string            `json:"privacy_note"`
	DocumentGeneration uint64            `json:"document_generation"`
	IgnoredCalls       []engine.ToolCall `json:"ignored_calls,omitempty"`
	EscalationError    string            `json:"escalation_error,omitempty"`
}

// Config wires a Service.
type Config struct {
	Session    *session.Session
	Router     Router
	Dispatcher *tools.Dispatcher

	// Elaborator may be nil; cloud-required answers then report that
	// elaboration is unavailable.
	Elaborator engine.Elaborator

	// ElaborationTimeout bounds each elaboration. 0 uses the routing
	// policy's value.
	ElaborationTimeout time.Duration

	Logger *slog.Logger
}

// Service runs the query pipeline.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	session            *session.Session
	router             Router
	dispatcher         *tools.Dispatcher
	elaborator         engine.Elaborator
	elaborationTimeout time.Duration
	catalog            []llm.ToolDef
	logger             *slog.Logger
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Session == nil {
		return nil, errors.New("assistant: session is required")
	}
	if cfg.Router == nil {
		return nil, errors.New("assistant: router is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = tools.NewDispatcher(0, cfg.Logger)
	}
	if cfg.ElaborationTimeout <= 0 {
		cfg.ElaborationTimeout = config.MustGetRoutingPolicy().ElaborationTimeout
	}
	return &Service{
		session:            cfg.Session,
		router:             cfg.Router,
		dispatcher:         cfg.Dispatcher,
		elaborator:         cfg.Elaborator,
		elaborationTimeout: cfg.ElaborationTimeout,
		catalog:            tools.Catalog(),
		logger:             cfg.Logger,
	}, nil
}

// Session returns the session the service answers from.
func (s *Service) Session() *session.Session { return s.session }

// Ask answers one question.
//
// Description:
//
//	Pins the current document, routes the query, runs only the first
//	proposed call and elaborates it when the tool needs outside
//	knowledge. Statistics are recorded for every answered query.
//
// Outputs:
//   - *Answer: Never nil on success.
//   - error: ErrEmptyQuery, session.ErrNoDocument, or the caller's
//     context error.
func (s *Service) Ask(ctx context.Context, query string) (*Answer, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assistant.Service.Ask")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		span.SetStatus(codes.Error, "empty query")
		return nil, ErrEmptyQuery
	}
	snap, err := s.session.Current()
	if err != nil {
		span.SetStatus(codes.Error, "no document")
		return nil, err
	}

	start := time.Now()
	ctx = egress.WithProtectedTerms(ctx, snap.Store.Parties().Names()...)

	routed, err := s.router.Route(ctx, []llm.ChatMessage{{Role: "user", Content: query}}, s.catalog)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "route failed")
		return nil, fmt.Errorf("route: %w", err)
	}

	ans := &Answer{
		Query:              query,
		ToolArguments:      map[string]string{},
		Source:             routed.Provenance,
		Confidence:         confidenceOf(routed),
		RoutingMS:          round1(routed.ElapsedMS()),
		DocumentGeneration: snap.Generation,
		EscalationError:    routed.EscalationError,
	}

	call, ok := routed.First()
	if !ok {
		ans.Answer = NoCallAnswer
		ans.ToolCalled = ToolNone
		ans.PrivacyNote = NoCallPrivacyNote
		return s.finish(ctx, ans, start), nil
	}
	if len(routed.FunctionCalls) > 1 {
		ans.IgnoredCalls = routed.FunctionCalls[1:]
		s.logger.Info("ignoring extra tool calls",
			slog.String("tool", call.Name),
			slog.Int("ignored", len(ans.IgnoredCalls)),
		)
	}

	ans.ToolCalled = call.Name
	if call.Arguments != nil {
		ans.ToolArguments = call.Arguments
	}
	ans.PrivacyNote = OnDevicePrivacyNote

	out, err := s.dispatcher.Invoke(ctx, call.Name, call.Arguments, snap.Store)
	switch {
	case err != nil:
		ans.Answer = formatAnswer(call, tools.Render(err))
	case out.Disclosure != nil:
		var cached bool
		ans.Answer, ans.WordsSentToCloud, cached = s.elaborate(ctx, out.Disclosure)
		switch {
		case cached:
			ans.PrivacyNote = CachedPrivacyNote
		case ans.WordsSentToCloud > 0:
			ans.PrivacyNote = fmt.Sprintf("Anonymized clause summary (%d words) sent to Gemini. "+
				"Raw document never left your device.", ans.WordsSentToCloud)
		}
	default:
		ans.Answer = formatAnswer(call, out.Text)
	}

	span.SetAttributes(
		attribute.String("tool", call.Name),
		attribute.String("source", ans.Source),
		attribute.Int("words_sent", ans.WordsSentToCloud),
	)
	return s.finish(ctx, ans, start), nil
}

func (s *Service) finish(ctx context.Context, ans *Answer, start time.Time) *Answer {
	latency := time.Since(start)
	ans.LatencyMS = round1(float64(latency) / float64(time.Millisecond))
	s.session.Record(ans.Source, latency, ans.WordsSentToCloud)
	recordAnswer(ctx, ans)
	s.logger.InfoContext(ctx, "query answered",
		slog.String("tool", ans.ToolCalled),
		slog.String("source", ans.Source),
		slog.Float64("latency_ms", ans.LatencyMS),
		slog.Int("words_sent", ans.WordsSentToCloud),
	)
	return ans
}

// elaborate returns the answer text, the number of words disclosed and
// whether the reply came from the elaboration cache. Failures and cache
// hits disclose nothing.
func (s *Service) elaborate(ctx context.Context, d *tools.Disclosure) (string, int, bool) {
	task, ok := elaboration.Task(d)
	if !ok {
		return d.Context, 0, false
	}
	if s.elaborator == nil {
		return unavailable("no elaboration engine configured"), 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.elaborationTimeout)
	defer cancel()
	ctx, outcome := elaboration.WithOutcome(ctx)

	text, err := s.elaborator.Elaborate(ctx, d.Context, task)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty elaboration")
	}
	if err != nil {
		reason := llm.SafeLogString(err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("timed out after %s", s.elaborationTimeout)
		}
		s.logger.Warn("elaboration failed",
			slog.String("tool", d.Tool),
			slog.String("error", reason),
		)
		return unavailable(reason), 0, false
	}
	if outcome.FromCache() {
		s.logger.Debug("elaboration served from cache", slog.String("tool", d.Tool))
		return text, 0, true
	}
	return text, d.Words, false
}

func unavailable(reason string) string {
	return "Cloud elaboration unavailable: " + reason
}

func confidenceOf(r *engine.RoutingResult) *float64 {
	c := r.Confidence
	if c == nil {
		c = r.LocalConfidence
	}
	if c == nil {
		return nil
	}
	return engine.Float(math.Round(*c*1e4) / 1e4)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
