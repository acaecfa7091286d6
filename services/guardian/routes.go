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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers every NDA Guardian endpoint.
//
// Endpoints:
//
//	GET  /         - Service info
//	GET  /health   - Liveness and document status
//	GET  /metrics  - Prometheus metrics
//
//	POST /api/load    - Load and segment a document
//	POST /api/query   - Ask a question
//	GET  /api/stats   - Session statistics
//	POST /api/reset   - Clear document and statistics
//	GET  /api/tools   - Tool catalog
//	GET  /api/clauses - Clause keys of the loaded document
//
// Example:
//
//	router := gin.New()
//	guardian.RegisterRoutes(router, guardian.NewHandlers(svc, logger))
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	r.GET("/", h.HandleInfo)
	r.GET("/health", h.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/load", h.HandleLoad)
		api.POST("/query", h.HandleQuery)
		api.GET("/stats", h.HandleStats)
		api.POST("/reset", h.HandleReset)
		api.GET("/tools", h.HandleTools)
		api.GET("/clauses", h.HandleClauses)
	}
}
