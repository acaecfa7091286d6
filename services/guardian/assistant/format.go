// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"strings"
	"unicode"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
)

// formatAnswer labels device-tool results with the clause they came from.
func formatAnswer(call engine.ToolCall, result string) string {
	clause := TitleCase(strings.ReplaceAll(call.Arguments[tools.ArgClauseType], "_", " "))
	switch call.Name {
	case tools.GetClauseInfo:
		if field := call.Arguments[tools.ArgField]; field != "" {
			return TitleCase(field) + " of " + clause + " clause: " + result
		}
		return clause + " clause: " + result
	case tools.SummarizeClause:
		return clause + " Clause Summary: " + result
	default:
		return result
	}
}

// TitleCase upper-cases the first letter of every letter run and
// lower-cases the rest, so "non compete" reads "Non Compete".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
