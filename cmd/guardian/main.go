// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command guardian starts the NDA Guardian API server.
//
// Questions about a loaded NDA are routed by an on-device model. Factual
// lookups are answered from the document locally; enforceability and
// benchmarking questions send an anonymized clause summary to Gemini.
//
// Usage:
//
//	go run ./cmd/guardian
//	go run ./cmd/guardian -port 9090 -threshold 0.8
//	go run ./cmd/guardian -mock            # scripted local engine, no model needed
//
// With Gemini elaboration (consent is off by default):
//
//	GEMINI_API_KEY=... GUARDIAN_CONSENT_GEMINI=true go run ./cmd/guardian
//
// Example requests:
//
//	curl -X POST http://localhost:8080/api/load \
//	  -H "Content-Type: application/json" \
//	  -d "{\"text\": $(jq -Rs . < services/guardian/demo/sample_nda.txt)}"
//
//	curl -X POST http://localhost:8080/api/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "What is the non-compete duration?"}'
//
//	curl http://localhost:8080/api/stats
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/bootstrap"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	threshold := flag.Float64("threshold", 0, "Confidence threshold override in (0,1]; 0 uses the routing policy")
	mock := flag.Bool("mock", false, "Use the scripted on-device engine instead of the local model server")
	localOnly := flag.Bool("local-only", false, "Block every cloud call")
	traceExporter := flag.String("trace-exporter", "", "Span exporter: none, stdout or otlp (default $OTEL_TRACES_EXPORTER or none)")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*port, *debug, *threshold, *mock, *localOnly, *traceExporter, logger); err != nil {
		logger.Error("NDA Guardian server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(port int, debug bool, threshold float64, mock, localOnly bool, traceExporter string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.DefaultConfig("nda-guardian", guardian.ServiceVersion)
	if traceExporter != "" {
		telCfg.TraceExporter = traceExporter
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	app, err := bootstrap.Build(bootstrap.Options{
		Mock:      mock,
		Threshold: threshold,
		LocalOnly: localOnly,
		CacheDir:  bootstrap.DefaultCacheDir(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Closing elaboration cache failed", slog.String("error", err.Error()))
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("nda-guardian"))
	if debug {
		router.Use(gin.Logger())
	}
	guardian.RegisterRoutes(router, guardian.NewHandlers(app.Service, logger))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting NDA Guardian server",
			slog.String("address", srv.Addr),
			slog.String("mode", app.Mode),
			slog.String("provider", app.Provider),
			slog.Float64("threshold", app.Router.Threshold()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down NDA Guardian server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
