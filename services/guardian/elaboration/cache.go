// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package elaboration

// =============================================================================
// Elaboration cache
// =============================================================================
//
// Storage layout:
//
//	elaboration/v1/{sha256(model|task|context)}  →  gob-encoded Entry
//	                                                 TTL: 7 days
//
// Expired keys read as ErrKeyNotFound and count as a miss. Cache failures are
// logged and the call goes through to the engine.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/shudhatma1995/NDA-Guardian/services/guardian/engine"
	badgerstore "github.com/shudhatma1995/NDA-Guardian/services/guardian/storage/badger"
)

// KeyPrefix is the versioned prefix of every cache key.
const KeyPrefix = "elaboration/v1/"

// DefaultTTL is how long a cached reply lives.
const DefaultTTL = 7 * 24 * time.Hour

const tracerName = "guardian.elaboration"

var errCacheMiss = errors.New("cache miss")

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "guardian",
	Subsystem: "elaboration",
	Name:      "cache_lookups_total",
	Help:      "Elaboration cache lookups by result (hit, miss, error)",
}, []string{"result"})

// Entry is the cached value.
type Entry struct {
	Text      string
	Model     string
	CreatedAt time.Time
}

// Key returns the cache key for one elaboration.
func Key(model, task, disclosed string) string {
	sum := sha256.Sum256([]byte(model + "|" + task + "|" + disclosed))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// EncodeEntry gob-encodes e.
func EncodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEntry reverses EncodeEntry.
func DecodeEntry(raw []byte) (Entry, error) {
	var e Entry
	err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e)
	return e, err
}

// CachingElaborator wraps an Elaborator with a BadgerDB cache and
// collapses concurrent identical requests into one engine call.
//
// Description:
//
//	A nil DB disables persistence but keeps request coalescing. Only
//	successful, non-empty replies are stored.
//
// Thread Safety: Safe for concurrent use.
type CachingElaborator struct {
	inner  engine.Elaborator
	db     *badgerstore.DB
	model  string
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewCachingElaborator creates the cache wrapper.
//
// Inputs:
//   - inner: The engine to call on a miss. Must not be nil.
//   - db: Opened cache DB, owned by the caller. May be nil.
//   - model: Model name folded into the key. When empty, inner's Model()
//     is used if it has one.
//   - ttl: Entry lifetime. 0 uses DefaultTTL.
//   - logger: May be nil.
func NewCachingElaborator(inner engine.Elaborator, db *badgerstore.DB, model string, ttl time.Duration, logger *slog.Logger) *CachingElaborator {
	if inner == nil {
		panic("NewCachingElaborator: inner must not be nil")
	}
	if model == "" {
		if m, ok := inner.(interface{ Model() string }); ok {
			model = m.Model()
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingElaborator{inner: inner, db: db, model: model, ttl: ttl, logger: logger, now: time.Now}
}

// Model returns the model name used in cache keys.
func (c *CachingElaborator) Model() string { return c.model }

// Outcome reports how one Elaborate call was satisfied. Attach it with
// WithOutcome before the call and read it after the call returns.
type Outcome struct {
	fromCache bool
}

// FromCache reports whether the reply was served without calling the
// wrapped engine, either from the store or from a concurrent identical call.
func (o *Outcome) FromCache() bool { return o != nil && o.fromCache }

type outcomeKey struct{}

// WithOutcome returns a context that records the outcome of the next
// Elaborate call made with it.
func WithOutcome(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

func markFromCache(ctx context.Context) {
	if o, ok := ctx.Value(outcomeKey{}).(*Outcome); ok {
		o.fromCache = true
	}
}

// Elaborate implements engine.Elaborator.
func (c *CachingElaborator) Elaborate(ctx context.Context, disclosed, task string) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "elaboration.CachingElaborator.Elaborate")
	defer span.End()

	key := Key(c.model, task, disclosed)

	if text, ok := c.load(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		markFromCache(ctx)
		return text, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	// led is only written by the goroutine that runs the engine call, and
	// is read after the result is received from ch.
	var led bool
	ch := c.group.DoChan(key, func() (any, error) {
		led = true
		text, err := c.inner.Elaborate(ctx, disclosed, task)
		if err != nil {
			return "", err
		}
		c.save(ctx, key, text)
		return text, nil
	})

	select {
	case <-ctx.Done():
		span.SetStatus(codes.Error, "cancelled")
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "elaboration failed")
			return "", res.Err
		}
		span.SetAttributes(attribute.Bool("shared", res.Shared))
		if !led {
			markFromCache(ctx)
		}
		return res.Val.(string), nil
	}
}

func (c *CachingElaborator) load(ctx context.Context, key string) (string, bool) {
	if c.db == nil {
		return "", false
	}
	var raw []byte
	err := c.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, errCacheMiss) {
		cacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("elaboration cache: load failed", slog.String("error", err.Error()))
		return "", false
	}
	entry, err := DecodeEntry(raw)
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("elaboration cache: decode failed", slog.String("error", err.Error()))
		return "", false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	c.logger.Debug("elaboration cache: hit", slog.String("key", key[len(KeyPrefix):len(KeyPrefix)+12]))
	return entry.Text, true
}

func (c *CachingElaborator) save(ctx context.Context, key, text string) {
	if c.db == nil || text == "" {
		return
	}
	raw, err := EncodeEntry(Entry{Text: text, Model: c.model, CreatedAt: c.now().UTC()})
	if err != nil {
		c.logger.Warn("elaboration cache: encode failed", slog.String("error", err.Error()))
		return
	}
	err = c.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.SetEntry(dgbadger.NewEntry([]byte(key), raw).WithTTL(c.ttl))
	})
	if err != nil {
		c.logger.Warn("elaboration cache: save failed", slog.String("error", err.Error()))
	}
}
