// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guardian exposes NDA Guardian over HTTP.
package guardian

// ServiceName and ServiceVersion are reported by GET /.
const (
	ServiceName    = "NDA Guardian API"
	ServiceVersion = "1.0.0"
)

// LoadRequest is the body of POST /api/load.
type LoadRequest struct {
	Text string `json:"text"`
}

// LoadResponse is returned by POST /api/load.
type LoadResponse struct {
	Success      bool     `json:"success"`
	ClausesFound []string `json:"clauses_found"`
	Message      string   `json:"message"`
	Generation   uint64   `json:"document_generation"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// ResetResponse is returned by POST /api/reset.
type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClausesResponse is returned by GET /api/clauses.
type ClausesResponse struct {
	Clauses    []ClauseInfo `json:"clauses"`
	Generation uint64       `json:"document_generation"`
}

// ClauseInfo describes one segmented clause without its text.
type ClauseInfo struct {
	Key   string `json:"key"`
	Words int    `json:"words"`
}

// InfoResponse is returned by GET /.
type InfoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	DocumentLoaded bool   `json:"document_loaded"`
	Generation     uint64 `json:"document_generation"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	// Error is the user-facing message.
	Error string `json:"error"`

	// Code is a stable machine-readable identifier.
	Code string `json:"code,omitempty"`
}
