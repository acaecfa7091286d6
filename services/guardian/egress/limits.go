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
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter holds one token bucket per provider.
//
// A provider without a configured limit, or with a limit of 0, is never
// limited. Bursts are allowed up to the per-minute limit.
//
// Thread Safety: Safe for concurrent use.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter from per-minute limits.
func NewRateLimiter(perMin map[string]int) *RateLimiter {
	limiters := make(map[string]*rate.Limiter, len(perMin))
	for provider, n := range perMin {
		if n > 0 {
			limiters[provider] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
	return &RateLimiter{limiters: limiters}
}

// Allow consumes one token for provider. When refused, the returned
// duration is how long until the next token.
func (r *RateLimiter) Allow(provider string) (bool, time.Duration) {
	lim, ok := r.limiters[provider]
	if !ok {
		return true, 0
	}
	res := lim.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

// CostMeter tracks estimated spend against a ceiling.
//
// Thread Safety: Safe for concurrent use.
type CostMeter struct {
	mu           sync.Mutex
	limitCents   float64
	centsPerWord float64
	spentCents   float64
}

// NewCostMeter creates a meter. limitCents <= 0 means unlimited.
func NewCostMeter(limitCents, centsPerWord float64) *CostMeter {
	if centsPerWord <= 0 {
		centsPerWord = DefaultCentsPerWord
	}
	return &CostMeter{limitCents: limitCents, centsPerWord: centsPerWord}
}

// Estimate returns the cost of sending words.
func (m *CostMeter) Estimate(words int) float64 {
	return float64(words) * m.centsPerWord
}

// CanAfford reports whether sending words stays within the ceiling.
func (m *CostMeter) CanAfford(words int) (bool, float64) {
	cost := m.Estimate(words)
	if m.limitCents <= 0 {
		return true, cost
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spentCents+cost <= m.limitCents, cost
}

// Record adds the cost of words actually sent.
func (m *CostMeter) Record(words int) float64 {
	cost := m.Estimate(words)
	m.mu.Lock()
	m.spentCents += cost
	m.mu.Unlock()
	return cost
}

// SpentCents returns the running total.
func (m *CostMeter) SpentCents() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spentCents
}
