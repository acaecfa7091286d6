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
	"strings"
	"unicode"
)

// ExcerptRunes is the length of the fallback excerpt returned when no
// sentence qualifies.
const ExcerptRunes = 300

// SplitSentences splits text after '.', '!' or '?' wherever that mark is
// followed by whitespace. The whitespace run is consumed and the mark stays
// with the preceding sentence. Empty pieces are dropped.
func SplitSentences(text string) []string {
	var (
		out   []string
		runes = []rune(text)
		start = 0
	)
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		if piece := string(runes[start : i+1]); piece != "" {
			out = append(out, piece)
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Excerpt returns the first ExcerptRunes characters of text, trimmed.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) > ExcerptRunes {
		runes = runes[:ExcerptRunes]
	}
	return strings.TrimSpace(string(runes))
}
