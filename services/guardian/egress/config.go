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
	"os"
	"strconv"
	"strings"
)

// ProviderGemini is the only cloud provider NDA Guardian talks to.
const ProviderGemini = "gemini"

// DefaultCentsPerWord matches the session cost estimate of 0.00001 USD per
// disclosed word.
const DefaultCentsPerWord = 0.001

// Config holds the egress guard settings.
//
// Thread Safety: Value type. Safe to copy and share after loading.
type Config struct {
	// Enabled is the global kill switch. Env: GUARDIAN_EGRESS_ENABLED (default true).
	Enabled bool

	// LocalOnly blocks every cloud call. Env: GUARDIAN_LOCAL_ONLY (default false).
	LocalOnly bool

	// Consent per provider. Env: GUARDIAN_CONSENT_<PROVIDER> (default false).
	Consent map[string]bool

	// RatePerMin per provider; 0 means unlimited.
	// Env: GUARDIAN_RATE_<PROVIDER>_PER_MIN (default 60).
	RatePerMin map[string]int

	// CostLimitCents caps estimated spend per process; 0 means unlimited.
	// Env: GUARDIAN_COST_LIMIT_CENTS.
	CostLimitCents float64

	// CentsPerWord prices outbound words for the cost ceiling.
	CentsPerWord float64

	// AuditEnabled and AuditHashContent control the audit log.
	// Env: GUARDIAN_AUDIT_ENABLED, GUARDIAN_AUDIT_HASH_CONTENT (default true).
	AuditEnabled     bool
	AuditHashContent bool
}

// LoadConfig reads the egress settings from the environment.
func LoadConfig() Config {
	cfg := Config{
		Enabled:          envBool("GUARDIAN_EGRESS_ENABLED", true),
		LocalOnly:        envBool("GUARDIAN_LOCAL_ONLY", false),
		CostLimitCents:   envFloat("GUARDIAN_COST_LIMIT_CENTS", 0),
		CentsPerWord:     DefaultCentsPerWord,
		AuditEnabled:     envBool("GUARDIAN_AUDIT_ENABLED", true),
		AuditHashContent: envBool("GUARDIAN_AUDIT_HASH_CONTENT", true),
		Consent:          map[string]bool{},
		RatePerMin:       map[string]int{},
	}
	for _, p := range []string{ProviderGemini} {
		upper := strings.ToUpper(p)
		cfg.Consent[p] = envBool("GUARDIAN_CONSENT_"+upper, false)
		cfg.RatePerMin[p] = envInt("GUARDIAN_RATE_"+upper+"_PER_MIN", 60)
	}
	return cfg
}

// WithConsent returns a copy of c with consent granted for provider.
func (c Config) WithConsent(provider string) Config {
	consent := make(map[string]bool, len(c.Consent)+1)
	for k, v := range c.Consent {
		consent[k] = v
	}
	consent[provider] = true
	c.Consent = consent
	return c
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
