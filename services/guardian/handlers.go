// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardian

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/assistant"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/clauses"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/session"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
)

// Handlers holds the HTTP handlers.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	svc    *assistant.Service
	logger *slog.Logger
}

// NewHandlers creates handlers for svc. A nil logger uses slog.Default().
func NewHandlers(svc *assistant.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// getOrCreateRequestID honours an incoming X-Request-ID and echoes it back.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With(
		slog.String("request_id", getOrCreateRequestID(c)),
		slog.String("handler", handler),
	)
}

// HandleLoad handles POST /api/load.
//
// Description:
//
//	Segments the posted text and makes it the current document. Queries
//	already in flight keep answering from the previous document.
//
// Response:
//
//	200 OK: LoadResponse
//	400 Bad Request: malformed body or blank text
func (h *Handlers) HandleLoad(c *gin.Context) {
	logger := h.requestLogger(c, "HandleLoad")

	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	snap, err := h.svc.Session().Load(req.Text)
	if errors.Is(err, session.ErrEmptyDocument) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Document text cannot be empty.", Code: "EMPTY_DOCUMENT"})
		return
	}
	if err != nil {
		logger.Error("load failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load document", Code: "LOAD_FAILED"})
		return
	}

	keys := snap.Store.Keys()
	c.JSON(http.StatusOK, LoadResponse{
		Success:      true,
		ClausesFound: keys,
		Message:      fmt.Sprintf("Document loaded successfully. Found %d clause(s).", len(keys)),
		Generation:   snap.Generation,
	})
}

// HandleQuery handles POST /api/query.
//
// Response:
//
//	200 OK: assistant.Answer
//	400 Bad Request: malformed body, blank query or no document loaded
//	500 Internal Server Error: the request was cancelled mid-query
func (h *Handlers) HandleQuery(c *gin.Context) {
	logger := h.requestLogger(c, "HandleQuery")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	ans, err := h.svc.Ask(c.Request.Context(), req.Query)
	switch {
	case errors.Is(err, session.ErrNoDocument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No document loaded. POST /api/load first.", Code: "NO_DOCUMENT"})
	case errors.Is(err, assistant.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Query cannot be empty.", Code: "EMPTY_QUERY"})
	case err != nil:
		logger.Error("query failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Query failed", Code: "QUERY_FAILED"})
	default:
		c.JSON(http.StatusOK, ans)
	}
}

// HandleStats handles GET /api/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Session().Stats())
}

// HandleReset handles POST /api/reset.
func (h *Handlers) HandleReset(c *gin.Context) {
	h.requestLogger(c, "HandleReset").Info("resetting session")
	h.svc.Session().Reset()
	c.JSON(http.StatusOK, ResetResponse{Success: true, Message: "Session reset."})
}

// HandleTools handles GET /api/tools.
func (h *Handlers) HandleTools(c *gin.Context) {
	c.JSON(http.StatusOK, tools.Catalog())
}

// HandleClauses handles GET /api/clauses.
//
// Response:
//
//	200 OK: ClausesResponse
//	400 Bad Request: no document loaded
func (h *Handlers) HandleClauses(c *gin.Context) {
	snap, err := h.svc.Session().Current()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No document loaded. POST /api/load first.", Code: "NO_DOCUMENT"})
		return
	}
	resp := ClausesResponse{Clauses: make([]ClauseInfo, 0, snap.Store.Len()), Generation: snap.Generation}
	for _, cl := range snap.Store.Clauses() {
		resp.Clauses = append(resp.Clauses, ClauseInfo{Key: cl.Key, Words: clauses.WordCount(cl.Text)})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleInfo handles GET /.
func (h *Handlers) HandleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		Name:    ServiceName,
		Version: ServiceVersion,
		Endpoints: []string{
			"POST /api/load",
			"POST /api/query",
			"GET  /api/stats",
			"POST /api/reset",
			"GET  /api/tools",
			"GET  /api/clauses",
			"GET  /health",
			"GET  /metrics",
		},
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	sess := h.svc.Session()
	c.JSON(http.StatusOK, HealthResponse{
		Status:         "healthy",
		DocumentLoaded: sess.Loaded(),
		Generation:     sess.Generation(),
	})
}
