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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/clauses"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/tools"
)

func newSegmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segment <file>",
		Short: "Show the clauses detected in an NDA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(args[0])
			if err != nil {
				return err
			}
			store := clauses.Segment(text, clauses.DefaultRules())

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Found %d clause(s), %d words\n", store.Len(), store.WordCount())
			if parties := store.Parties(); !parties.Empty() {
				fmt.Fprintf(w, "Parties: %s\n", parties.String())
			}
			fmt.Fprintln(w)

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CLAUSE\tWORDS\tEXCERPT")
			for _, c := range store.Clauses() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Key, clauses.WordCount(c.Text), strings.Join(strings.Fields(clauses.Excerpt(c.Text)), " "))
			}
			return tw.Flush()
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog offered to the routing models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tools.Catalog())
		},
	}
}
