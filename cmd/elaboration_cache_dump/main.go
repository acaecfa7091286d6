// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// elaboration_cache_dump inspects the on-disk cache of cloud elaborations.
//
// Each entry is one Gemini answer for an anonymized clause summary, keyed by
// a hash of model, task and summary. This tool opens the cache read-only and
// prints every entry: key, model, age, TTL remaining and a preview of the
// cached text. Nothing in the cache names a party; the dump is safe to share.
//
// Usage:
//
//	elaboration_cache_dump [--path /path/to/cache] [--preview 120]
//
// If --path is not given, reads GUARDIAN_CACHE_DIR from the environment,
// falling back to ~/.nda-guardian/cache/elaboration/.
//
// Exit codes:
//
//	0 - success (including a missing or empty cache)
//	1 - error opening or reading the database
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/bootstrap"
	"github.com/shudhatma1995/NDA-Guardian/services/guardian/elaboration"
	badgerstore "github.com/shudhatma1995/NDA-Guardian/services/guardian/storage/badger"
)

func main() {
	pathFlag := flag.String("path", "", "Path to the elaboration BadgerDB directory (overrides GUARDIAN_CACHE_DIR)")
	preview := flag.Int("preview", 120, "Characters of cached text to show per entry (0 hides the text)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = bootstrap.DefaultCacheDir()
	}
	if dbPath == "" {
		fatalf("cannot resolve cache directory; pass --path")
	}

	if err := dump(context.Background(), os.Stdout, dbPath, *preview, time.Now()); err != nil {
		fatalf("%v", err)
	}
}

type entry struct {
	key       string
	expiresAt time.Time
	rawSize   int
	value     elaboration.Entry
	decodeErr error
}

// dump writes a report of the cache at dbPath to w.
func dump(ctx context.Context, w io.Writer, dbPath string, preview int, now time.Time) error {
	fmt.Fprintf(w, "Elaboration cache path: %s\n", dbPath)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(w, "Cache directory does not exist. No cloud elaboration has been cached yet.")
		fmt.Fprintln(w, "Run the server or `ndaguard demo` with GEMINI_API_KEY and consent to populate it.")
		return nil
	}

	cfg := badgerstore.DefaultConfig(dbPath)
	cfg.ReadOnly = true
	db, err := badgerstore.OpenDB(cfg)
	if err != nil {
		return fmt.Errorf("open BadgerDB at %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	var entries []entry
	err = db.Scan(ctx, elaboration.KeyPrefix, func(it badgerstore.Item) error {
		e := entry{key: it.Key, expiresAt: it.ExpiresAt, rawSize: len(it.Value)}
		e.value, e.decodeErr = elaboration.DecodeEntry(it.Value)
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return fmt.Errorf("read BadgerDB: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "\nNo elaboration cache entries found.")
		return nil
	}

	fmt.Fprintf(w, "\nFound %d elaboration cache entr%s:\n", len(entries), plural(len(entries), "y", "ies"))
	fmt.Fprintln(w, strings.Repeat("-", 80))

	models := make(map[string]int)
	total := 0
	for i, e := range entries {
		total += e.rawSize
		fmt.Fprintf(w, "\n[%d] Key:      %s\n", i+1, e.key)
		fmt.Fprintf(w, "    TTL:      %s\n", describeTTL(e.expiresAt, now))
		fmt.Fprintf(w, "    Raw size: %s\n", formatBytes(e.rawSize))

		if e.decodeErr != nil {
			fmt.Fprintf(w, "    DECODE ERROR: %v\n", e.decodeErr)
			continue
		}
		models[e.value.Model]++
		fmt.Fprintf(w, "    Model:    %s\n", e.value.Model)
		fmt.Fprintf(w, "    Cached:   %s (%s ago)\n",
			e.value.CreatedAt.Format("2006-01-02 15:04:05 MST"),
			now.Sub(e.value.CreatedAt).Round(time.Second))
		if preview > 0 {
			fmt.Fprintf(w, "    Text:     %s\n", truncate(e.value.Text, preview))
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 80))
	fmt.Fprintf(w, "Summary: %d entr%s, %s, %d model%s, cache path: %s\n",
		len(entries), plural(len(entries), "y", "ies"),
		formatBytes(total),
		len(models), plural(len(models), "", "s"),
		dbPath)
	return nil
}

func describeTTL(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return "no expiry set"
	}
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		return fmt.Sprintf("EXPIRED (%s ago)", (-remaining).Round(time.Second))
	}
	return fmt.Sprintf("%s remaining (expires %s)",
		remaining.Round(time.Second), expiresAt.Format("2006-01-02 15:04:05 MST"))
}

// truncate flattens whitespace and cuts text to n runes.
func truncate(text string, n int) string {
	flat := []rune(strings.Join(strings.Fields(text), " "))
	if len(flat) <= n {
		return string(flat)
	}
	return string(flat[:n]) + "..."
}

func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB (%d bytes)", float64(n)/1024/1024, n)
	case n >= 1024:
		return fmt.Sprintf("%.1f KB (%d bytes)", float64(n)/1024, n)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "elaboration_cache_dump: "+format+"\n", args...)
	os.Exit(1)
}
