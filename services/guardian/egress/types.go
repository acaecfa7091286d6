// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package egress guards every byte of document-derived content that leaves
// the device. It wraps the remote routing generator and the elaborator with
// pre-flight checks (kill switch, local-only mode, consent, leak
// classification, rate limit, cost ceiling) and writes an audit entry for
// each attempt without recording the content itself.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use unless documented otherwise.
package egress

import (
	"errors"
	"fmt"
	"time"
)

// Sensitivity is the classification of outbound content.
type Sensitivity int

const (
	// SensitivityPublic may be sent.
	SensitivityPublic Sensitivity = iota

	// SensitivityPII names a party of the loaded document.
	SensitivityPII

	// SensitivitySecret contains a credential, SSN, or email address.
	SensitivitySecret
)

// String returns the label used in logs and metrics.
func (s Sensitivity) String() string {
	switch s {
	case SensitivityPublic:
		return "public"
	case SensitivityPII:
		return "pii"
	case SensitivitySecret:
		return "secret"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// AllowsExternalSend reports whether content at this level may leave.
func (s Sensitivity) AllowsExternalSend() bool {
	return s == SensitivityPublic
}

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrProviderDisabled is returned when the kill switch is off.
	ErrProviderDisabled = errors.New("egress: provider disabled by kill switch")

	// ErrLocalOnly is returned when the process runs in local-only mode.
	ErrLocalOnly = errors.New("egress: local-only mode")

	// ErrNoConsent is returned when the user has not consented to a provider.
	ErrNoConsent = errors.New("egress: no user consent for provider")

	// ErrSensitiveData is returned when outbound content contains party
	// names or secrets.
	ErrSensitiveData = errors.New("egress: sensitive data detected")

	// ErrRateLimited is returned when the provider's rate limit is hit.
	ErrRateLimited = errors.New("egress: rate limited")

	// ErrCostLimitReached is returned when the estimated cost would exceed
	// the configured ceiling.
	ErrCostLimitReached = errors.New("egress: cost limit reached")
)

// Blocker names used in audit entries and metrics.
const (
	blockedKillSwitch = "kill_switch"
	blockedLocalOnly  = "local_only"
	blockedConsent    = "consent"
	blockedSensitive  = "sensitive_data"
	blockedRateLimit  = "rate_limit"
	blockedCost       = "cost"
)

func sentinelFor(blockedBy string) error {
	switch blockedBy {
	case blockedLocalOnly:
		return ErrLocalOnly
	case blockedConsent:
		return ErrNoConsent
	case blockedSensitive:
		return ErrSensitiveData
	case blockedRateLimit:
		return ErrRateLimited
	case blockedCost:
		return ErrCostLimitReached
	default:
		return ErrProviderDisabled
	}
}

// Decision records one egress attempt for the audit trail.
type Decision struct {
	RequestID      string
	SessionID      string
	Provider       string
	Purpose        string
	Allowed        bool
	BlockedBy      string
	BlockReason    string
	Sensitivity    Sensitivity
	ContentHash    string
	Words          int
	EstimatedCents float64
	Timestamp      time.Time
	Duration       time.Duration
}
