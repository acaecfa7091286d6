// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/demo"
)

func newDemoCmd(o *rootOptions) *cobra.Command {
	var (
		mock bool
		file string
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the five-question hybrid routing walkthrough",
		Long: `Loads the bundled sample NDA (or --file) and asks the five walkthrough
questions, showing where each one was answered and what left the device.

--mock replaces the on-device model with a scripted routing table. Without
GEMINI_API_KEY the cloud side is scripted too and elaboration is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, o, mock, file)
		},
	}
	cmd.Flags().BoolVar(&mock, "mock", false, "Use the scripted on-device engine")
	cmd.Flags().StringVar(&file, "file", "", "NDA text file to load instead of the sample")
	return cmd
}

func runDemo(cmd *cobra.Command, o *rootOptions, mock bool, file string) error {
	text := demo.SampleNDA()
	if file != "" {
		var err error
		if text, err = readDocument(file); err != nil {
			return err
		}
	}

	app, err := o.build(cmd, mock)
	if err != nil {
		return err
	}
	defer app.Close()

	snap, err := app.Session.Load(text)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	w := cmd.OutOrStdout()
	p := newPalette(w)

	p.rule(w, "=")
	fmt.Fprintln(w, p.paint(p.header, "  NDA GUARDIAN: Hybrid Routing Demo"))
	fmt.Fprintf(w, "  mode=%s provider=%s threshold=%.2f\n", app.Mode, providerLabel(app.Provider), app.Router.Threshold())
	p.rule(w, "=")
	fmt.Fprintf(w, "\nDocument loaded: %d clauses detected\n", snap.Store.Len())
	fmt.Fprintf(w, "Clauses: %s\n", strings.Join(snap.Store.Keys(), ", "))

	for i, q := range demo.Queries() {
		fmt.Fprintln(w)
		p.rule(w, "-")
		fmt.Fprintf(w, "Query %d: %q\n", i+1, q)
		p.rule(w, "-")

		ans, err := app.Service.Ask(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("query %d: %w", i+1, err)
		}
		printAnswer(w, p, ans)
	}

	printScorecard(w, p, app.Session.Stats())
	return nil
}

func providerLabel(provider string) string {
	if provider == "" {
		return "none"
	}
	return provider
}
