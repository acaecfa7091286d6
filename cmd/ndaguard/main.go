// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command ndaguard is the NDA Guardian command-line tool.
//
// Usage:
//
//	ndaguard demo --mock                 # five-question walkthrough, no model needed
//	ndaguard demo --file contract.txt    # walkthrough against your own NDA
//	ndaguard segment contract.txt        # show detected clauses
//	ndaguard ask contract.txt "What is the non-compete duration?"
//	ndaguard tools                       # tool catalog as JSON
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/bootstrap"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	debug     bool
	threshold float64
	localOnly bool
	consent   bool
	noCache   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "ndaguard",
		Short: "Privacy-first NDA question answering",
		Long: `NDA Guardian answers questions about a non-disclosure agreement.

Factual questions (parties, durations, clause summaries) are answered on
your device. Legal-knowledge questions (enforceability, market comparison)
send only an anonymized clause summary to Gemini, and only with consent.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&o.debug, "debug", false, "Verbose logging on stderr")
	pf.Float64Var(&o.threshold, "threshold", 0, "Confidence threshold override in (0,1]")
	pf.BoolVar(&o.localOnly, "local-only", false, "Block every cloud call")
	pf.BoolVar(&o.consent, "consent", false, "Allow anonymized clause summaries to be sent to Gemini for this run")
	pf.BoolVar(&o.noCache, "no-cache", false, "Do not persist cloud elaborations on disk")

	root.AddCommand(
		newDemoCmd(o),
		newSegmentCmd(),
		newAskCmd(o),
		newToolsCmd(),
	)
	return root
}

// logger writes to stderr so command output stays machine-readable.
func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) build(cmd *cobra.Command, mock bool) (*bootstrap.App, error) {
	logger := o.logger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	cacheDir := ""
	if !o.noCache {
		cacheDir = bootstrap.DefaultCacheDir()
	}
	app, err := bootstrap.Build(bootstrap.Options{
		Mock:         mock,
		Threshold:    o.threshold,
		GrantConsent: o.consent,
		LocalOnly:    o.localOnly,
		CacheDir:     cacheDir,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build guardian: %w", err)
	}
	return app, nil
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}
