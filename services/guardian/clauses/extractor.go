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

// FieldKind names a structured fact that can be pulled from a clause.
type FieldKind string

const (
	FieldDuration   FieldKind = "duration"
	FieldScope      FieldKind = "scope"
	FieldAmount     FieldKind = "amount"
	FieldParties    FieldKind = "parties"
	FieldDefinition FieldKind = "definition"
)

// ParseFieldKind lower-cases and trims a field name. Unrecognised names are
// returned as-is and answered with a clause excerpt.
func ParseFieldKind(s string) FieldKind {
	return FieldKind(strings.ToLower(strings.TrimSpace(s)))
}

var (
	// Tried in order; spelled-out numbers first.
	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(twenty-four|twenty four|twelve|six|thirty-six|thirty six|two|three)\s*(?:\(\d+\)\s*)?(months?|years?|days?)`),
		regexp.MustCompile(`(?i)(\d+)\s*(months?|years?|days?)`),
	}

	radiusPattern = regexp.MustCompile(`(?i)(\d+)\s*mile\s*radius[^.]+\.`)
	regionPattern = regexp.MustCompile(`(?:State of|in)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	amountPattern = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?(?:\s*USD)?`)
)

// Field extracts one structured fact from a clause.
//
// Description:
//
//	Resolves the clause name, then applies the extraction rule for field:
//	  - duration: first match of the spelled-out then numeric patterns.
//	  - scope: a mile-radius sentence, else "Geographic scope: <region>".
//	  - amount: first dollar figure.
//	  - parties: the document-wide party names.
//	  - definition: first sentence longer than ten words.
//	  - anything else: the first 300 characters of the clause.
//
// Outputs:
//
//	string - The extracted value.
//	error - *ClauseNotFoundError or *FieldNotFoundError.
func (s *Store) Field(clauseName string, field FieldKind) (string, error) {
	text, err := s.Clause(clauseName)
	if err != nil {
		return "", err
	}

	notFound := &FieldNotFoundError{Clause: s.rules.Resolve(clauseName), Field: field}

	switch field {
	case FieldDuration:
		for _, re := range durationPatterns {
			if m := re.FindString(text); m != "" {
				return strings.TrimSpace(m), nil
			}
		}
		return "", notFound

	case FieldScope:
		if m := radiusPattern.FindString(text); m != "" {
			return strings.TrimSpace(m), nil
		}
		if m := regionPattern.FindString(text); m != "" {
			return "Geographic scope: " + strings.TrimSpace(m), nil
		}
		return "", notFound

	case FieldAmount:
		if m := amountPattern.FindString(text); m != "" {
			return strings.TrimSpace(m), nil
		}
		return "", notFound

	case FieldParties:
		if s.parties.Empty() {
			return "", notFound
		}
		return s.parties.String(), nil

	case FieldDefinition:
		for _, sentence := range SplitSentences(strings.TrimSpace(text)) {
			if WordCount(sentence) > 10 {
				return strings.TrimSpace(sentence), nil
			}
		}
		return Excerpt(text), nil

	default:
		return Excerpt(text), nil
	}
}
