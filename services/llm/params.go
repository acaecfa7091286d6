// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm contains the wire clients for the inference engines NDA
// Guardian talks to: the on-device function-calling engine and the Gemini
// REST API. It also holds the provider-agnostic tool and message types and
// the secret redaction used before logging provider output.
package llm

// GenerationParams tunes a single generation call. Nil fields are omitted
// from the request so the provider default applies.
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
	TopK        *int
	MaxTokens   *int
	Stop        []string

	// ModelOverride replaces the client's configured model for one call.
	ModelOverride string
}

// IntPtr returns a pointer to v, for populating GenerationParams.
func IntPtr(v int) *int { return &v }

// Float32Ptr returns a pointer to v, for populating GenerationParams.
func Float32Ptr(v float32) *float32 { return &v }
