// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"regexp"
)

// redactionPattern pairs a compiled regex with a replacement label.
//
// Kind names the class of sensitive value so callers can report what was
// found without echoing it.
//
// Thread Safety: This type is immutable after construction.
type redactionPattern struct {
	Kind        string
	Pattern     *regexp.Regexp
	Replacement string
}

// redactionPatterns is the ordered list of sensitive patterns.
//
// IMPORTANT: Order matters. More specific patterns must appear before less
// specific ones: "sk-ant-api03-..." must hit the Anthropic rule, not the
// generic "sk-" rule, and the connection-string rule runs after password=.
//
// Thread Safety: Initialized once and never modified.
var redactionPatterns = []redactionPattern{
	{
		Kind:        "anthropic_key",
		Pattern:     regexp.MustCompile(`sk-ant-api03-[A-Za-z0-9_-]{20,}`),
		Replacement: "[REDACTED:anthropic_key]",
	},
	{
		Kind:        "openai_key",
		Pattern:     regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		Replacement: "[REDACTED:openai_key]",
	},
	{
		Kind:        "gemini_key",
		Pattern:     regexp.MustCompile(`AIza[A-Za-z0-9_-]{30,}`),
		Replacement: "[REDACTED:gemini_key]",
	},
	{
		Kind:        "bearer_token",
		Pattern:     regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]{10,}`),
		Replacement: "[REDACTED:bearer_token]",
	},
	{
		Kind:        "url_key",
		Pattern:     regexp.MustCompile(`key=[A-Za-z0-9._-]{10,}`),
		Replacement: "key=[REDACTED]",
	},
	{
		Kind:        "password",
		Pattern:     regexp.MustCompile(`password=[^\s&]{3,}`),
		Replacement: "password=[REDACTED]",
	},
	{
		Kind:        "connection_string",
		Pattern:     regexp.MustCompile(`(postgres|mysql|mongodb)://[^\s]+@`),
		Replacement: "${1}://[REDACTED]@",
	},
	// US social security number. Contracts occasionally carry one in a
	// signature block.
	{
		Kind:        "ssn",
		Pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Replacement: "[REDACTED:ssn]",
	},
	{
		Kind:        "email",
		Pattern:     regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		Replacement: "[REDACTED:email]",
	},
}

// SensitiveKinds lists the kinds of sensitive values present in s, in
// pattern order, without modifying it.
//
// Thread Safety: This function is safe for concurrent use.
func SensitiveKinds(s string) []string {
	if s == "" {
		return nil
	}
	var kinds []string
	for _, p := range redactionPatterns {
		if p.Pattern.MatchString(s) {
			kinds = append(kinds, p.Kind)
			s = p.Pattern.ReplaceAllString(s, p.Replacement)
		}
	}
	return kinds
}

// SafeLogString redacts known secret patterns from a string before logging.
//
// Description:
//
//	Applies the ordered pattern list: API keys, bearer tokens, passwords,
//	connection strings, SSNs and email addresses. Each match becomes a
//	labeled placeholder such as [REDACTED:gemini_key] so the reader knows
//	what was removed without seeing it. Provider error bodies pass through
//	here before they are logged or wrapped into errors.
//
// Inputs:
//   - s: The string to redact. May contain zero or more secrets.
//     Empty string is valid and returns empty string.
//
// Outputs:
//   - string: The input with all matched secret patterns replaced.
//     If no patterns match, returns the original string unchanged.
//
// Examples:
//
//	SafeLogString("error: sk-ant-REDACTED returned 401")
//	// Returns: "error: [REDACTED:anthropic_key] returned 401"
//
//	SafeLogString("normal log message with no secrets")
//	// Returns: "normal log message with no secrets"
//
//	SafeLogString("contact jane@example.com")
//	// Returns: "contact [REDACTED:email]"
//
// Limitations:
//   - Pattern-based detection only. Cannot detect secrets that do not match
//     known formats (e.g., custom API keys with non-standard prefixes).
//   - A secret that spans multiple lines will not be matched (single-line regex).
//
// Assumptions:
//   - The input string is a single log line or error message.
//   - Patterns are ordered most-specific-first (see redactionPatterns comment).
//   - The caller does not rely on the exact redacted output format for parsing.
//
// Thread Safety: This function is safe for concurrent use.
func SafeLogString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range redactionPatterns {
		s = p.Pattern.ReplaceAllString(s, p.Replacement)
	}
	return s
}
