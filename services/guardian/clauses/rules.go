// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package clauses segments an NDA into canonical clause buckets and extracts
// structured facts and privacy-safe summaries from them.
//
// Everything hangs off two immutable values: Rules (the compiled taxonomy)
// and Store (one segmented document). There is no package-level document
// state; callers own a Store and replace it wholesale on reload.
package clauses

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/config"
)

// sectionRule is one compiled (pattern, key) pair.
type sectionRule struct {
	pattern *regexp.Regexp
	key     string
}

// Rules is the compiled clause taxonomy.
//
// Description:
//
//	Holds the ordered section classification list, the party indicator
//	pattern, and the flattened alias table (lower-case name -> canonical
//	key, including each canonical key mapped to itself).
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Rules struct {
	sections       []sectionRule
	partyIndicator *regexp.Regexp
	aliases        map[string]string
	canonical      map[string]bool
}

// NewRules compiles a validated ClauseRules table.
//
// Inputs:
//
//	cfg - Clause rules loaded through the config package. Must not be nil.
//
// Outputs:
//
//	*Rules - The compiled taxonomy.
//	error - Non-nil if a pattern fails to compile.
func NewRules(cfg *config.ClauseRules) (*Rules, error) {
	if cfg == nil {
		return nil, fmt.Errorf("NewRules: cfg must not be nil")
	}

	r := &Rules{
		sections:  make([]sectionRule, 0, len(cfg.SectionRules)),
		aliases:   make(map[string]string),
		canonical: make(map[string]bool, len(cfg.CanonicalKeys)),
	}

	for _, key := range cfg.CanonicalKeys {
		r.canonical[key] = true
		r.aliases[key] = key
	}

	for i, sr := range cfg.SectionRules {
		re, err := regexp.Compile(sr.Pattern)
		if err != nil {
			return nil, fmt.Errorf("NewRules: section rule %d (%s): %w", i, sr.Key, err)
		}
		r.sections = append(r.sections, sectionRule{pattern: re, key: sr.Key})
	}

	re, err := regexp.Compile(cfg.PartyIndicator)
	if err != nil {
		return nil, fmt.Errorf("NewRules: party indicator: %w", err)
	}
	r.partyIndicator = re

	for key, names := range cfg.Aliases {
		for _, name := range names {
			r.aliases[strings.ToLower(strings.TrimSpace(name))] = key
		}
	}

	return r, nil
}

var defaultRules = sync.OnceValues(func() (*Rules, error) {
	cfg, err := config.GetClauseRules(context.Background())
	if err != nil {
		return nil, err
	}
	return NewRules(cfg)
})

// DefaultRules returns the rules compiled from the embedded clause table.
//
// It panics if the embedded table is invalid, which is a build defect
// rather than a runtime condition.
func DefaultRules() *Rules {
	r, err := defaultRules()
	if err != nil {
		panic(fmt.Sprintf("clauses: embedded rules: %v", err))
	}
	return r
}

// Classify maps a heading title to a clause key.
//
// Description:
//
//	Tests the title against the section rules strictly in order and returns
//	the key of the first match. Titles matching no rule get a slug: lower
//	case, runs of non-alphanumerics collapsed to "_", outer "_" trimmed.
func (r *Rules) Classify(title string) string {
	for _, sr := range r.sections {
		if sr.pattern.MatchString(title) {
			return sr.key
		}
	}
	return slugify(title)
}

// Resolve normalizes a user- or tool-supplied clause name to a key.
//
// Description:
//
//	Lower-cases and trims the name, then consults the alias table. Unknown
//	names fall back to the same text with hyphens and spaces replaced by
//	underscores, so "made-up clause" resolves to "made_up_clause".
func (r *Rules) Resolve(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if key, ok := r.aliases[lowered]; ok {
		return key
	}
	return strings.NewReplacer("-", "_", " ", "_").Replace(lowered)
}

// IsCanonical reports whether key belongs to the fixed canonical set.
func (r *Rules) IsCanonical(key string) bool {
	return r.canonical[key]
}

// Aliases returns a copy of the flattened alias table.
func (r *Rules) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

var slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	return strings.Trim(slugSeparator.ReplaceAllString(lowered, "_"), "_")
}
