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
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/assistant"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/session"
)

const ruleWidth = 65

// palette styles terminal output. Styling is off for pipes, files and
// NO_COLOR so captured output stays plain.
type palette struct {
	on     bool
	header lipgloss.Style
	local  lipgloss.Style
	cloud  lipgloss.Style
	label  lipgloss.Style
	dim    lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	on := false
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		on = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	r := lipgloss.NewRenderer(w)
	return &palette{
		on:     on,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		local:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		cloud:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		label:  r.NewStyle().Faint(true),
		dim:    r.NewStyle().Faint(true),
	}
}

func (p *palette) paint(s lipgloss.Style, text string) string {
	if !p.on {
		return text
	}
	return s.Render(text)
}

func (p *palette) rule(w io.Writer, ch string) {
	fmt.Fprintln(w, p.paint(p.dim, strings.Repeat(ch, ruleWidth)))
}

func (p *palette) field(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %s: %s\n", p.paint(p.label, fmt.Sprintf("%-13s", name)), value)
}

// formatCall renders a call as name(k='v', ...) with sorted keys.
func formatCall(name string, args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s='%s'", k, args[k]))
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func (p *palette) route(source string) string {
	switch {
	case source == engine.ProvenanceOnDevice:
		return p.paint(p.local, "On-Device")
	case strings.HasPrefix(source, "cloud"):
		return p.paint(p.cloud, "Cloud (Gemini)") + ": " + source
	default:
		return p.paint(p.local, "On-Device") + ": " + source
	}
}

func printAnswer(w io.Writer, p *palette, ans *assistant.Answer) {
	if ans.ToolCalled == assistant.ToolNone {
		p.field(w, "Tool selected", assistant.ToolNone)
	} else {
		p.field(w, "Tool selected", formatCall(ans.ToolCalled, ans.ToolArguments))
	}
	p.field(w, "Route", p.route(ans.Source))
	if ans.Confidence != nil {
		p.field(w, "Confidence", fmt.Sprintf("%.2f", *ans.Confidence))
	}
	if ans.EscalationError != "" {
		p.field(w, "Escalation", ans.EscalationError)
	}
	if n := len(ans.IgnoredCalls); n > 0 {
		p.field(w, "Ignored", fmt.Sprintf("%d additional call(s)", n))
	}
	fmt.Fprintln(w)
	p.field(w, "Answer", ans.Answer)
	fmt.Fprintln(w)
	p.field(w, "Latency", fmt.Sprintf("%.0fms total (%.0fms routing)", ans.LatencyMS, ans.RoutingMS))
	if ans.WordsSentToCloud > 0 {
		p.field(w, "Words sent", fmt.Sprintf("%d (anonymized clause summary only)", ans.WordsSentToCloud))
	} else {
		p.field(w, "Words sent", "0 (fully private)")
	}
	p.field(w, "Privacy", ans.PrivacyNote)
}

func printScorecard(w io.Writer, p *palette, st session.Stats) {
	fmt.Fprintln(w)
	p.rule(w, "=")
	fmt.Fprintln(w, p.paint(p.header, "  SESSION SCORECARD"))
	p.rule(w, "=")
	p.field(w, "Queries", fmt.Sprintf("%d total | %d local (%d%%) | %d cloud (%d%%)",
		st.QueryCount, st.LocalCount, st.LocalPct, st.CloudCount, st.CloudPct))
	p.field(w, "Privacy", fmt.Sprintf("%d words sent to cloud | 0 raw document bytes", st.TotalWordsSentToCloud))
	p.field(w, "Est. cost", fmt.Sprintf("~$%.4f", st.TotalCostUSD))
	p.field(w, "Avg latency", fmt.Sprintf("%.1fms", st.AvgLatencyMS))
	p.rule(w, "=")
}
