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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(o *rootOptions) *cobra.Command {
	var (
		mock   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask <file> <question...>",
		Short: "Ask one question about an NDA",
		Example: `  ndaguard ask contract.txt "Who are the parties to this agreement?"
  ndaguard ask --consent contract.txt Is this non-compete enforceable in Texas?`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, o, args[0], strings.Join(args[1:], " "), mock, asJSON)
		},
	}
	cmd.Flags().BoolVar(&mock, "mock", false, "Use the scripted on-device engine")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full answer as JSON")
	return cmd
}

func runAsk(cmd *cobra.Command, o *rootOptions, path, question string, mock, asJSON bool) error {
	text, err := readDocument(path)
	if err != nil {
		return err
	}

	app, err := o.build(cmd, mock)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Session.Load(text); err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	ans, err := app.Service.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}
	printAnswer(w, newPalette(w), ans)
	return nil
}
