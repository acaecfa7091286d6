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

// Parties holds the contracting party names found in a document.
// Either field may be empty.
type Parties struct {
	Company    string `json:"company,omitempty"`
	Individual string `json:"individual,omitempty"`
}

// Empty reports whether neither party was found.
func (p Parties) Empty() bool {
	return p.Company == "" && p.Individual == ""
}

// Names returns the non-empty names, company first.
func (p Parties) Names() []string {
	var out []string
	if p.Company != "" {
		out = append(out, p.Company)
	}
	if p.Individual != "" {
		out = append(out, p.Individual)
	}
	return out
}

// String renders "Company: X; Individual: Y", omitting absent parts.
func (p Parties) String() string {
	var parts []string
	if p.Company != "" {
		parts = append(parts, "Company: "+p.Company)
	}
	if p.Individual != "" {
		parts = append(parts, "Individual: "+p.Individual)
	}
	return strings.Join(parts, "; ")
}

var (
	// Every word of the name is capitalized and on one line, so a preamble
	// sentence is never swallowed into the name. The longer suffix is
	// listed first so "Acme Corporation" is not cut to "Acme Corp".
	companyPattern    = regexp.MustCompile(`\b([A-Z][a-zA-Z&]*(?:[ \t]+[A-Z][a-zA-Z&]*)*[ \t]+(?:Corporation|Corp|Inc|LLC|Ltd|Limited))\b[,.]?`)
	individualPattern = regexp.MustCompile(`([A-Z][a-z]+ [A-Z][a-z]+),? an individual`)
)

func extractParties(fullText string) Parties {
	var p Parties
	if m := companyPattern.FindStringSubmatch(fullText); m != nil {
		p.Company = strings.TrimSpace(m[1])
	}
	if m := individualPattern.FindStringSubmatch(fullText); m != nil {
		p.Individual = m[1]
	}
	return p
}
