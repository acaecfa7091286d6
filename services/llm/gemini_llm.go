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

// Gemini defaults.
const (
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiClient talks to the Gemini generateContent REST API.
//
// Description:
//
//	Used for two things: remote tool selection when the router escalates
//	(ChatWithTools) and free-text elaboration of anonymized clause
//	summaries (Generate). The API key travels in the x-goog-api-key header,
//	never in the URL.
//
// Thread Safety: GeminiClient is safe for concurrent use.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewGeminiClient creates a GeminiClient from environment variables.
//
// Description:
//
//	Reads GEMINI_API_KEY (required), GEMINI_MODEL (default
//	gemini-2.0-flash) and GEMINI_BASE_URL (default public endpoint).
//
// Outputs:
//   - *GeminiClient: The configured client.
//   - error: Non-nil if GEMINI_API_KEY is missing.
func NewGeminiClient() (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is missing (GEMINI_API_KEY)")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = DefaultGeminiModel
		slog.Info("GEMINI_MODEL not set, using default", slog.String("model", model))
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}

	slog.Info("Initializing Gemini client", slog.String("model", model))
	return NewGeminiClientWithConfig(apiKey, model, baseURL), nil
}

// NewGeminiClientWithConfig creates a GeminiClient without reading the
// environment. Tests point baseURL at an httptest server.
func NewGeminiClientWithConfig(apiKey, model, baseURL string) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Model returns the configured model name.
func (g *GeminiClient) Model() string { return g.model }

// =============================================================================
// Wire types
// =============================================================================

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiToolDeclaration `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResp `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

type geminiToolDeclaration struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
	Error         *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// =============================================================================
// Text generation
// =============================================================================

// Generate sends a single user prompt and returns the text reply.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return g.Chat(ctx, []ChatMessage{{Role: "user", Content: prompt}}, params)
}

// Chat sends a conversation and returns the concatenated text parts of the
// first candidate.
//
// Outputs:
//   - string: Non-empty reply text.
//   - error: Non-nil on transport, HTTP status, API error, or empty reply.
func (g *GeminiClient) Chat(ctx context.Context, messages []ChatMessage, params GenerationParams) (result string, err error) {
	model := g.modelFor(params)
	ctx, finish := startCall(ctx, "gemini", "chat", model)
	defer func() { finish(err) }()

	apiResp, err := g.send(ctx, model, g.buildRequest(messages, params, nil))
	if err != nil {
		return "", err
	}

	var textParts []string
	for _, part := range apiResp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}

	result = strings.Join(textParts, "")
	if result == "" {
		return "", fmt.Errorf("gemini: returned empty text content")
	}

	slog.Debug("Received Gemini response",
		slog.String("model", model),
		slog.Int("response_len", len(result)),
		slog.String("finish_reason", apiResp.Candidates[0].FinishReason),
	)
	return result, nil
}

// =============================================================================
// Function calling
// =============================================================================

// ChatWithTools sends a conversation with function declarations and returns
// any functionCall parts as tool calls.
//
// Description:
//
//	Gemini does not issue call IDs, so synthetic ones ("gemini-call-N") are
//	assigned in response order. System messages become systemInstruction;
//	tool results become functionResponse parts.
//
// Thread Safety: This method is safe for concurrent use.
func (g *GeminiClient) ChatWithTools(ctx context.Context, messages []ChatMessage,
	params GenerationParams, tools []ToolDef) (result *ChatWithToolsResult, err error) {

	model := g.modelFor(params)
	ctx, finish := startCall(ctx, "gemini", "chat_with_tools", model)
	defer func() { finish(err) }()

	slog.Debug("ChatWithTools via Gemini",
		slog.String("model", model),
		slog.Int("messages", len(messages)),
		slog.Int("tools", len(tools)),
	)

	apiResp, err := g.send(ctx, model, g.buildRequest(messages, params, tools))
	if err != nil {
		return nil, err
	}

	result = &ChatWithToolsResult{}
	var textParts []string
	for _, part := range apiResp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
		if part.FunctionCall == nil {
			continue
		}
		argsJSON, mErr := json.Marshal(part.FunctionCall.Args)
		if mErr != nil || part.FunctionCall.Args == nil {
			argsJSON = []byte(`{}`)
		}
		result.ToolCalls = append(result.ToolCalls, ToolCallResponse{
			ID:        fmt.Sprintf("gemini-call-%d", len(result.ToolCalls)),
			Name:      part.FunctionCall.Name,
			Arguments: json.RawMessage(argsJSON),
		})
	}

	result.Content = strings.Join(textParts, "")
	result.StopReason = "end"
	if len(result.ToolCalls) > 0 {
		result.StopReason = "tool_use"
	}
	return result, nil
}

// =============================================================================
// Request plumbing
// =============================================================================

func (g *GeminiClient) modelFor(params GenerationParams) string {
	if params.ModelOverride != "" {
		return params.ModelOverride
	}
	return g.model
}

// send posts req and returns a response with at least one candidate.
func (g *GeminiClient) send(ctx context.Context, model string, req geminiRequest) (*geminiResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	slog.Debug("Sending request to Gemini",
		slog.String("model", model),
		slog.Int("content_count", len(req.Contents)),
		slog.Int("tool_count", len(req.Tools)),
	)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: API returned status %d: %s", resp.StatusCode, SafeLogString(string(bodyBytes)))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("gemini: parsing response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("gemini: API error [%d] %s: %s",
			apiResp.Error.Code, apiResp.Error.Status, SafeLogString(apiResp.Error.Message))
	}
	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: returned no candidates")
	}
	return &apiResp, nil
}

func (g *GeminiClient) buildRequest(messages []ChatMessage, params GenerationParams, tools []ToolDef) geminiRequest {
	req := geminiRequest{GenerationConfig: buildGenConfig(params)}

	if len(tools) > 0 {
		decls := make([]geminiFunctionDeclaration, 0, len(tools))
		for _, td := range tools {
			decls = append(decls, geminiFunctionDeclaration{
				Name:        td.Function.Name,
				Description: td.Function.Description,
				Parameters:  td.Function.Parameters,
			})
		}
		req.Tools = []geminiToolDeclaration{{FunctionDeclarations: decls}}
	}

	for _, msg := range messages {
		switch role := strings.ToLower(msg.Role); {
		case role == "system":
			req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}

		case role == "tool" && msg.ToolName != "":
			var respData map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &respData); err != nil {
				respData = map[string]any{"result": msg.Content}
			}
			req.Contents = append(req.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{FunctionResponse: &geminiFunctionResp{Name: msg.ToolName, Response: respData}}},
			})

		case role == "assistant":
			var parts []geminiPart
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				parts = append(parts, geminiPart{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal(tc.Arguments, &args); err != nil {
					args = map[string]any{}
				}
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{Name: tc.Name, Args: args}})
			}
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: parts})

		default:
			req.Contents = append(req.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}
	return req
}

func buildGenConfig(params GenerationParams) *geminiGenerationConfig {
	if params.Temperature == nil && params.TopP == nil && params.TopK == nil &&
		params.MaxTokens == nil && len(params.Stop) == 0 {
		return nil
	}
	return &geminiGenerationConfig{
		Temperature:     params.Temperature,
		TopP:            params.TopP,
		TopK:            params.TopK,
		MaxOutputTokens: params.MaxTokens,
		StopSequences:   params.Stop,
	}
}
