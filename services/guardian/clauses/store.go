// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package clauses

import (
	"regexp"
	"strings"
)

// Clause is one keyed entry of a Store.
type Clause struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Store is the clause map of one loaded document.
//
// Description:
//
//	Maps clause keys to clause text in discovery order. A Store is built once
//	by Segment (or NewStore) and never mutated afterwards; reloading a
//	document produces a new Store. Party names are extracted eagerly at
//	construction so lookups and redaction see one consistent result.
//
// Thread Safety: Immutable; safe for concurrent use.
type Store struct {
	rules   *Rules
	keys    []string
	text    map[string]string
	parties Parties
}

// NewStore builds a Store from pre-segmented clauses.
//
// Duplicate keys are merged with a blank line, as Segment does. Clauses with
// empty text are skipped.
func NewStore(rules *Rules, entries []Clause) *Store {
	s := &Store{
		rules: rules,
		text:  make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		body := strings.TrimSpace(e.Text)
		if e.Key == "" || body == "" {
			continue
		}
		s.append(e.Key, body)
	}
	s.parties = extractParties(s.fullText())
	return s
}

func (s *Store) append(key, body string) {
	existing, ok := s.text[key]
	if !ok {
		s.keys = append(s.keys, key)
		s.text[key] = body
		return
	}
	s.text[key] = existing + "\n\n" + body
}

// Rules returns the taxonomy this Store was built with.
func (s *Store) Rules() *Rules { return s.rules }

// Len returns the number of clause keys.
func (s *Store) Len() int { return len(s.keys) }

// Keys returns the clause keys in discovery order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Clauses returns every entry in discovery order.
func (s *Store) Clauses() []Clause {
	out := make([]Clause, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, Clause{Key: k, Text: s.text[k]})
	}
	return out
}

// Resolve normalizes a clause name using the Store's rules.
func (s *Store) Resolve(name string) string {
	return s.rules.Resolve(name)
}

// Clause returns the text stored under the resolved form of name.
//
// Outputs:
//
//	string - Clause text.
//	error - *ClauseNotFoundError carrying name as supplied.
func (s *Store) Clause(name string) (string, error) {
	text, ok := s.text[s.rules.Resolve(name)]
	if !ok || text == "" {
		return "", &ClauseNotFoundError{Name: name}
	}
	return text, nil
}

// Parties returns the party names found across the whole document.
func (s *Store) Parties() Parties { return s.parties }

// WordCount returns the total word count over all clause text.
func (s *Store) WordCount() int {
	n := 0
	for _, k := range s.keys {
		n += WordCount(s.text[k])
	}
	return n
}

func (s *Store) fullText() string {
	parts := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		parts = append(parts, s.text[k])
	}
	return strings.Join(parts, "\n")
}

// =============================================================================
// Segmentation
// =============================================================================

var (
	sectionBreak   = regexp.MustCompile(`\n\s*[-=]{3,}\s*\n`)
	numberedHeader = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.\s+([A-Z][A-Z \t,()&/'-]{3,})`)
)

// Segment splits raw NDA text into a Store.
//
// Description:
//
//	Sections are separated by lines made of three or more '-' or '='. Each
//	trimmed section is handled in order:
//	  - A numbered heading ("7. GOVERNING LAW") classifies the section via
//	    the ordered rules; same-key sections are joined with a blank line.
//	  - Otherwise, if the text matches the party indicator, it is appended
//	    to "parties".
//	  - Otherwise it is discarded.
//
//	The heading title is read from the heading line only.
//
// Inputs:
//
//	text - Raw document text. May be empty.
//	rules - Compiled taxonomy. Must not be nil.
//
// Outputs:
//
//	*Store - The segmented document. Never nil; empty input yields an
//	         empty Store.
func Segment(text string, rules *Rules) *Store {
	s := &Store{
		rules: rules,
		text:  make(map[string]string),
	}

	for _, raw := range sectionBreak.Split(text, -1) {
		section := strings.TrimSpace(raw)
		if section == "" {
			continue
		}

		if m := numberedHeader.FindStringSubmatch(section); m != nil {
			s.append(rules.Classify(strings.TrimSpace(m[2])), section)
			continue
		}

		if rules.partyIndicator.MatchString(section) {
			s.append("parties", section)
		}
	}

	s.parties = extractParties(s.fullText())
	return s
}
