// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the loaded document and the per-process query
// statistics.
//
// Loading a document segments it into a new clause store and swaps it in
// atomically. Queries pin the snapshot current when they start, so a reload
// never changes the store under an in-flight query. Each load increments a
// generation counter that is echoed back in answers.
package session

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/clauses"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
)

var (
	// ErrNoDocument is returned when a query arrives before any load.
	ErrNoDocument = errors.New("no document loaded")

	// ErrEmptyDocument is returned when Load is given blank text.
	ErrEmptyDocument = errors.New("document text cannot be empty")
)

// CostPerWordUSD approximates the cloud price of one disclosed word.
const CostPerWordUSD = 0.00001

// Snapshot is an immutable view of one loaded document.
type Snapshot struct {
	Store      *clauses.Store
	Generation uint64
	LoadedAt   time.Time
}

// Stats is the session summary returned by the stats endpoint.
type Stats struct {
	QueryCount            int     `json:"query_count"`
	LocalCount            int     `json:"local_count"`
	CloudCount            int     `json:"cloud_count"`
	LocalPct              int     `json:"local_pct"`
	CloudPct              int     `json:"cloud_pct"`
	AvgLatencyMS          float64 `json:"avg_latency_ms"`
	TotalWordsSentToCloud int     `json:"total_words_sent_to_cloud"`
	TotalCostUSD          float64 `json:"total_cost_usd"`
}

// Session holds the current document and statistics.
//
// Thread Safety: Safe for concurrent use. Document swaps are lock-free;
// statistics are guarded by a mutex.
type Session struct {
	id         string
	rules      *clauses.Rules
	logger     *slog.Logger
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64

	mu             sync.Mutex
	queryCount     int
	localCount     int
	cloudCount     int
	totalLatencyMS float64
	wordsSent      int
}

// New creates an empty session. A nil rules uses clauses.DefaultRules().
func New(rules *clauses.Rules, logger *slog.Logger) *Session {
	if rules == nil {
		rules = clauses.DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		rules:  rules,
		logger: logger.With(slog.String("session_id", id)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Load segments text and makes it the current document.
//
// Outputs:
//   - *Snapshot: The new snapshot, never nil on success.
//   - error: ErrEmptyDocument for blank text.
func (s *Session) Load(text string) (*Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	snap := &Snapshot{
		Store:      clauses.Segment(text, s.rules),
		Generation: s.generation.Add(1),
		LoadedAt:   time.Now(),
	}
	s.current.Store(snap)
	s.logger.Info("document loaded",
		slog.Uint64("generation", snap.Generation),
		slog.Int("clauses", snap.Store.Len()),
		slog.Int("words", snap.Store.WordCount()),
	)
	return snap, nil
}

// Current returns the pinned snapshot for a new query.
func (s *Session) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoDocument
	}
	return snap, nil
}

// Loaded reports whether a document is present.
func (s *Session) Loaded() bool { return s.current.Load() != nil }

// Generation returns the number of loads so far. It is not reset by Reset.
func (s *Session) Generation() uint64 { return s.generation.Load() }

// Record adds one completed query. Answers produced on the device count
// as local, including a failed escalation that fell back to the local
// calls; every cloud provenance counts as cloud.
func (s *Session) Record(provenance string, latency time.Duration, wordsSent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCount++
	s.totalLatencyMS += float64(latency) / float64(time.Millisecond)
	if answeredOnDevice(provenance) {
		s.localCount++
	} else {
		s.cloudCount++
	}
	s.wordsSent += wordsSent
}

// Stats returns a summary of recorded queries.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		QueryCount:            s.queryCount,
		LocalCount:            s.localCount,
		CloudCount:            s.cloudCount,
		TotalWordsSentToCloud: s.wordsSent,
		TotalCostUSD:          roundTo(float64(s.wordsSent)*CostPerWordUSD, 6),
	}
	if s.queryCount > 0 {
		// Half to even keeps the two shares summing to 100 (1 of 8 is 12/88).
		n := float64(s.queryCount)
		st.LocalPct = int(math.RoundToEven(100 * float64(s.localCount) / n))
		st.CloudPct = int(math.RoundToEven(100 * float64(s.cloudCount) / n))
		st.AvgLatencyMS = roundTo(s.totalLatencyMS/n, 1)
	}
	return st
}

// Reset clears the document and the statistics.
func (s *Session) Reset() {
	s.current.Store(nil)
	s.mu.Lock()
	s.queryCount, s.localCount, s.cloudCount = 0, 0, 0
	s.totalLatencyMS = 0
	s.wordsSent = 0
	s.mu.Unlock()
	s.logger.Info("session reset")
}

func answeredOnDevice(provenance string) bool {
	return provenance == engine.ProvenanceOnDevice || provenance == engine.ProvenanceEscalationFailed
}

// roundTo rounds half to even, matching the percentages above.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}
