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

// Placeholders substituted for party names in disclosed text.
const (
	CompanyPlaceholder    = "Party A"
	IndividualPlaceholder = "Party B"
)

var (
	numberedLine = regexp.MustCompile(`^\s*\d+(?:\.\d+)*\.?\s+[A-Z]`)
	capsLine     = regexp.MustCompile(`^\s*[A-Z][A-Z\s,()&/'-]{6,}\s*$`)

	companyRole    = regexp.MustCompile(`\bthe Company\b`)
	individualRole = regexp.MustCompile(`\bthe Employee\b`)
)

// Summarize produces the anonymized summary of a clause.
//
// Description:
//
//	This is the only text derived from the document that may leave the
//	device. Heading lines are dropped, party names and role phrases are
//	replaced with placeholders, and the result is cut to maxWords words,
//	preferring a sentence boundary in the last three quarters.
//
// Inputs:
//
//	clauseName - Any alias or key; resolved first.
//	maxWords - Word budget. Values <= 0 mean 80.
//
// Outputs:
//
//	string - The summary, or "" when the clause is absent.
//
// Limitations:
//
//	Names are only those found by the party-extraction patterns. Other
//	identifying text in the clause passes through.
func (s *Store) Summarize(clauseName string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = 80
	}

	text, err := s.Clause(clauseName)
	if err != nil {
		return ""
	}

	body := strings.TrimSpace(stripHeadings(text))
	if body == "" {
		body = text
	}

	sanitized := s.Redact(body)

	words := strings.Fields(sanitized)
	if len(words) <= maxWords {
		return strings.TrimSpace(sanitized)
	}

	truncated := strings.Join(words[:maxWords], " ")
	last := max(
		strings.LastIndex(truncated, ". "),
		strings.LastIndex(truncated, "! "),
		strings.LastIndex(truncated, "? "),
	)
	if last > len(truncated)/4 {
		return strings.TrimSpace(truncated[:last+1])
	}
	return strings.TrimSpace(truncated) + "..."
}

// Redact replaces the document's party names and role phrases with the
// Party A / Party B placeholders.
func (s *Store) Redact(text string) string {
	if s.parties.Company != "" {
		text = strings.ReplaceAll(text, s.parties.Company, CompanyPlaceholder)
	}
	if s.parties.Individual != "" {
		text = strings.ReplaceAll(text, s.parties.Individual, IndividualPlaceholder)
	}
	text = companyRole.ReplaceAllString(text, CompanyPlaceholder)
	return individualRole.ReplaceAllString(text, IndividualPlaceholder)
}

func stripHeadings(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if numberedLine.MatchString(line) || capsLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
