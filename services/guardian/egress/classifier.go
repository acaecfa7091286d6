// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package egress

import (
	"context"
	"strings"

	"github.com/shudhatma1995/NDA-Guardian/services/llm"
)

type protectedTermsKey struct{}

// WithProtectedTerms returns a context carrying names that must never leave
// the device, typically the parties of the pinned document. Terms are
// matched case-insensitively. Blank terms are ignored.
func WithProtectedTerms(ctx context.Context, terms ...string) context.Context {
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, strings.ToLower(t))
		}
	}
	if prev, ok := ctx.Value(protectedTermsKey{}).([]string); ok {
		kept = append(append([]string(nil), prev...), kept...)
	}
	return context.WithValue(ctx, protectedTermsKey{}, kept)
}

// ProtectedTerms returns the lower-cased terms attached to ctx.
func ProtectedTerms(ctx context.Context) []string {
	terms, _ := ctx.Value(protectedTermsKey{}).([]string)
	return terms
}

// Classifier labels outbound content.
type Classifier interface {
	Classify(ctx context.Context, content string) (Sensitivity, string)
}

// LeakClassifier flags protected terms as PII and anything SafeLogString
// would redact as Secret. Secret wins over PII.
type LeakClassifier struct{}

// Classify implements Classifier. The second return value names what was
// found, without echoing it.
func (LeakClassifier) Classify(ctx context.Context, content string) (Sensitivity, string) {
	if kinds := llm.SensitiveKinds(content); len(kinds) > 0 {
		return SensitivitySecret, strings.Join(kinds, ",")
	}
	lower := strings.ToLower(content)
	for _, term := range ProtectedTerms(ctx) {
		if strings.Contains(lower, term) {
			return SensitivityPII, "party_name"
		}
	}
	return SensitivityPublic, ""
}
