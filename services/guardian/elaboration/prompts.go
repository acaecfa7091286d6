// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package elaboration turns a disclosure prepared by a cloud-required tool
// into the task sent to the elaboration engine, and caches the replies.
package elaboration

import (
	"fmt"
	"strings"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
)

const (
	enforceabilityTask = "As a legal expert, assess whether the following %s clause is legally " +
		"enforceable in %s. Cite relevant laws or precedents if applicable. Be concise (3-4 sentences)."

	benchmarkTask = "As a legal expert, assess whether the following %s clause is standard, " +
		"unusually broad, or unusually narrow compared to typical NDAs. Be concise (3-4 sentences)."
)

// Task returns the task description for a disclosure. The second return is
// false for tools that are never elaborated.
func Task(d *tools.Disclosure) (string, bool) {
	if d == nil {
		return "", false
	}
	clause := strings.ReplaceAll(d.ClauseType, "_", " ")
	switch d.Tool {
	case tools.CheckEnforceability:
		return fmt.Sprintf(enforceabilityTask, clause, d.Jurisdiction), true
	case tools.BenchmarkClause:
		return fmt.Sprintf(benchmarkTask, clause), true
	default:
		return "", false
	}
}
