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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultLocalEngineURL is where the on-device engine bridge listens.
const DefaultLocalEngineURL = "http://localhost:8765"

// LocalEngineClient talks to the on-device function-calling engine.
//
// Description:
//
//	The engine runs a small function-calling model next to the document
//	and exposes POST /v1/complete. It answers with a JSON object carrying
//	function_calls, confidence, cloud_handoff and total_time_ms. This
//	client returns the body verbatim; interpreting it (including tolerating
//	malformed output) is the caller's job.
//
// Thread Safety: LocalEngineClient is safe for concurrent use.
type LocalEngineClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// LocalCompleteRequest is the body posted to the engine.
type LocalCompleteRequest struct {
	Model         string        `json:"model,omitempty"`
	Messages      []ChatMessage `json:"messages"`
	Tools         []ToolDef     `json:"tools"`
	ForceTools    bool          `json:"force_tools"`
	MaxTokens     int           `json:"max_tokens"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
}

// NewLocalEngineClient reads GUARDIAN_LOCAL_ENGINE_URL and
// GUARDIAN_LOCAL_MODEL from the environment.
func NewLocalEngineClient() *LocalEngineClient {
	baseURL := os.Getenv("GUARDIAN_LOCAL_ENGINE_URL")
	if baseURL == "" {
		baseURL = DefaultLocalEngineURL
	}
	return NewLocalEngineClientWithConfig(baseURL, os.Getenv("GUARDIAN_LOCAL_MODEL"), 30*time.Second)
}

// NewLocalEngineClientWithConfig creates a client with explicit settings.
// A zero timeout means 30s.
func NewLocalEngineClientWithConfig(baseURL, model string, timeout time.Duration) *LocalEngineClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LocalEngineClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
	}
}

// Model returns the configured model name, which may be empty.
func (c *LocalEngineClient) Model() string { return c.model }

// Complete posts one request and returns the raw response body.
//
// Outputs:
//   - []byte: The engine's response body on HTTP 200.
//   - error: Non-nil on transport failure or non-200 status.
func (c *LocalEngineClient) Complete(ctx context.Context, req LocalCompleteRequest) (body []byte, err error) {
	ctx, finish := startCall(ctx, "local", "complete", c.model)
	defer func() { finish(err) }()

	if req.Model == "" {
		req.Model = c.model
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("local engine: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/complete", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("local engine: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("local engine: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("local engine: reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("local engine: returned status %d: %s", resp.StatusCode, SafeLogString(string(body)))
	}

	slog.Debug("Local engine responded",
		slog.Int("messages", len(req.Messages)),
		slog.Int("response_len", len(body)),
	)
	return body, nil
}
