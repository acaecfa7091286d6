// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the embedded rule tables for the NDA guardian:
// clause taxonomy, aliases, and the routing policy.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// configTracerName is the OTel tracer name for config loading.
const configTracerName = "guardian.config"

// MaxYAMLSize bounds embedded or user-supplied rule files.
const MaxYAMLSize = 256 * 1024

// =============================================================================
// Embedded Default Clause Rules
// =============================================================================

//go:embed clause_rules.yaml
var defaultClauseRulesYAML []byte

// =============================================================================
// Clause Rule Types
// =============================================================================

// ClauseRules is the clause taxonomy used by segmentation and name resolution.
//
// Description:
//
//	SectionRules is evaluated strictly in order; the first matching pattern
//	wins. Aliases maps each canonical key to the free-form names that
//	resolve to it.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ClauseRules struct {
	// CanonicalKeys is the fixed set of clause keys.
	CanonicalKeys []string `yaml:"canonical_keys"`

	// SectionRules classify numbered heading titles. Order is significant.
	SectionRules []SectionRule `yaml:"section_rules"`

	// PartyIndicator matches unnumbered sections that describe the parties.
	PartyIndicator string `yaml:"party_indicator"`

	// Aliases maps canonical key -> accepted alternative names.
	Aliases map[string][]string `yaml:"aliases"`
}

// SectionRule maps a heading pattern to a canonical clause key.
type SectionRule struct {
	// Key is the canonical clause key produced on match.
	Key string `yaml:"key"`

	// Pattern is an RE2 expression tested against the heading title.
	Pattern string `yaml:"pattern"`
}

// IsCanonical reports whether key is one of the fixed canonical keys.
func (r *ClauseRules) IsCanonical(key string) bool {
	for _, k := range r.CanonicalKeys {
		if k == key {
			return true
		}
	}
	return false
}

// =============================================================================
// Cached Clause Rules
// =============================================================================

var (
	clauseRulesMu      sync.RWMutex
	clauseRulesOnce    sync.Once
	cachedClauseRules  *ClauseRules
	clauseRulesLoadErr error
)

// GetClauseRules returns the cached embedded clause rules.
//
// Description:
//
//	Loads the embedded clause_rules.yaml on first call and caches the
//	result (or the error) for subsequent calls.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//
// Outputs:
//
//	*ClauseRules - The loaded rules. Never nil on success.
//	error - Non-nil if parsing or validation failed.
//
// Thread Safety: Safe for concurrent use.
func GetClauseRules(ctx context.Context) (*ClauseRules, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetClauseRules: ctx must not be nil")
	}

	clauseRulesMu.RLock()
	if cachedClauseRules != nil || clauseRulesLoadErr != nil {
		rules, err := cachedClauseRules, clauseRulesLoadErr
		clauseRulesMu.RUnlock()
		return rules, err
	}
	clauseRulesMu.RUnlock()

	clauseRulesMu.Lock()
	defer clauseRulesMu.Unlock()

	if cachedClauseRules != nil || clauseRulesLoadErr != nil {
		return cachedClauseRules, clauseRulesLoadErr
	}

	clauseRulesOnce.Do(func() {
		cachedClauseRules, clauseRulesLoadErr = LoadClauseRules(ctx, defaultClauseRulesYAML)
	})

	return cachedClauseRules, clauseRulesLoadErr
}

// MustGetClauseRules is GetClauseRules for process start-up paths.
// It panics if the embedded table is invalid.
func MustGetClauseRules() *ClauseRules {
	rules, err := GetClauseRules(context.Background())
	if err != nil {
		panic(fmt.Sprintf("embedded clause rules are invalid: %v", err))
	}
	return rules
}

// ResetClauseRules clears the cached rules so tests can reload.
//
// Thread Safety: Safe for concurrent use.
func ResetClauseRules() {
	clauseRulesMu.Lock()
	defer clauseRulesMu.Unlock()
	cachedClauseRules = nil
	clauseRulesLoadErr = nil
	clauseRulesOnce = sync.Once{}
}

// LoadClauseRules parses and validates clause rules from YAML bytes.
//
// Description:
//
//	Parses the YAML, normalizes alias spellings to lower case, and
//	validates that every pattern compiles and every rule and alias targets
//	a canonical key.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*ClauseRules - The validated rules.
//	error - Non-nil if parsing or validation fails.
func LoadClauseRules(ctx context.Context, data []byte) (*ClauseRules, error) {
	_, span := otel.Tracer(configTracerName).Start(ctx, "config.LoadClauseRules")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadClauseRules: empty YAML data")
	}
	if len(data) > MaxYAMLSize {
		return nil, fmt.Errorf("LoadClauseRules: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLSize)
	}

	var rules ClauseRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("LoadClauseRules: parsing YAML: %w", err)
	}

	for key, names := range rules.Aliases {
		for i, name := range names {
			names[i] = strings.ToLower(strings.TrimSpace(name))
		}
		rules.Aliases[key] = names
	}

	if err := validateClauseRules(&rules); err != nil {
		return nil, fmt.Errorf("LoadClauseRules: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Int("canonical_keys", len(rules.CanonicalKeys)),
		attribute.Int("section_rules", len(rules.SectionRules)),
		attribute.Int("alias_groups", len(rules.Aliases)),
	)

	slog.Debug("clause rules loaded",
		slog.Int("section_rules", len(rules.SectionRules)),
		slog.Int("alias_groups", len(rules.Aliases)),
	)

	return &rules, nil
}

// validateClauseRules checks the taxonomy for consistency.
func validateClauseRules(rules *ClauseRules) error {
	if len(rules.CanonicalKeys) == 0 {
		return fmt.Errorf("canonical_keys must not be empty")
	}
	if len(rules.SectionRules) == 0 {
		return fmt.Errorf("section_rules must not be empty")
	}

	for i, sr := range rules.SectionRules {
		if !rules.IsCanonical(sr.Key) {
			return fmt.Errorf("section_rule[%d]: key %q is not canonical", i, sr.Key)
		}
		if sr.Pattern == "" {
			return fmt.Errorf("section_rule[%d] (%s): pattern must not be empty", i, sr.Key)
		}
		if _, err := regexp.Compile(sr.Pattern); err != nil {
			return fmt.Errorf("section_rule[%d] (%s): %w", i, sr.Key, err)
		}
	}

	if rules.PartyIndicator == "" {
		return fmt.Errorf("party_indicator must not be empty")
	}
	if _, err := regexp.Compile(rules.PartyIndicator); err != nil {
		return fmt.Errorf("party_indicator: %w", err)
	}

	seen := make(map[string]string)
	for key, names := range rules.Aliases {
		if !rules.IsCanonical(key) {
			return fmt.Errorf("aliases: %q is not a canonical key", key)
		}
		for _, name := range names {
			if name == "" {
				return fmt.Errorf("aliases[%s]: empty alias", key)
			}
			if prev, dup := seen[name]; dup && prev != key {
				return fmt.Errorf("aliases: %q maps to both %s and %s", name, prev, key)
			}
			seen[name] = key
		}
	}

	return nil
}
