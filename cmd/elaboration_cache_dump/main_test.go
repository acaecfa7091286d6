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
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/elaboration"
	badgerstore "github.com/shudhatma1995/NDA-Guardian/services/guardian/storage/badger"
)

func seedCache(t *testing.T, dir string, entries map[string]elaboration.Entry, raw map[string][]byte) {
	t.Helper()
	db, err := badgerstore.OpenDB(badgerstore.DefaultConfig(dir))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		for key, e := range entries {
			val, err := elaboration.EncodeEntry(e)
			if err != nil {
				return err
			}
			if err := txn.SetEntry(badger.NewEntry([]byte(key), val).WithTTL(time.Hour)); err != nil {
				return err
			}
		}
		for key, v := range raw {
			if err := txn.Set([]byte(key), v); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestDump_MissingDirectory(t *testing.T) {
	var out bytes.Buffer
	err := dump(context.Background(), &out, filepath.Join(t.TempDir(), "absent"), 80, time.Now())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Cache directory does not exist")
}

func TestDump_Entries(t *testing.T) {
	dir := t.TempDir()
	created := time.Now().Add(-time.Minute)
	key := elaboration.Key("gemini-2.0-flash", "task", "Clause type: non_compete")
	seedCache(t, dir,
		map[string]elaboration.Entry{
			key: {Text: "Likely unenforceable in California\nunder Section 16600.", Model: "gemini-2.0-flash", CreatedAt: created},
		},
		map[string][]byte{
			elaboration.KeyPrefix + "corrupt": []byte("not gob"),
			"other/ignored":                   []byte("x"),
		},
	)

	var out bytes.Buffer
	require.NoError(t, dump(context.Background(), &out, dir, 20, time.Now()))
	s := out.String()

	assert.Contains(t, s, "Found 2 elaboration cache entries")
	assert.Contains(t, s, key)
	assert.Contains(t, s, "Model:    gemini-2.0-flash")
	assert.Contains(t, s, "Text:     Likely unenforceable...")
	assert.Contains(t, s, "remaining")
	assert.Contains(t, s, "DECODE ERROR")
	assert.NotContains(t, s, "other/ignored")
	assert.Contains(t, s, "1 model,")
}

func TestDump_Empty(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir, nil, map[string][]byte{"other/x": []byte("1")})

	var out bytes.Buffer
	require.NoError(t, dump(context.Background(), &out, dir, 80, time.Now()))
	assert.Contains(t, out.String(), "No elaboration cache entries found.")
}

func TestDescribeTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "no expiry set", describeTTL(time.Time{}, now))
	assert.Equal(t, "EXPIRED (1m0s ago)", describeTTL(now.Add(-time.Minute), now))
	assert.Contains(t, describeTTL(now.Add(time.Hour), now), "1h0m0s remaining")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b", truncate("a\n b", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
