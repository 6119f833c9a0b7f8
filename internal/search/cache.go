package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes Search results keyed by (query, routing, tier_filter),
// collapsing concurrent identical requests with singleflight and expiring
// entries after a fixed TTL. Constructed once by cmd/zantara-rag and
// dependency-injected into Service — never a package-level singleton, so
// tests and multiple Service instances never share cached state implicitly.
type Cache struct {
	lru *lru.Cache[string, cacheEntry]
	sf  singleflight.Group
	ttl time.Duration
}

type cacheEntry struct {
	results   []vectorstore.SearchResult
	expiresAt time.Time
}

// NewCache builds a Cache with the given entry capacity and TTL. maxEntries
// and ttl of zero fall back to the spec's defaults (5000 entries, 300s).
func NewCache(maxEntries int, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 5000
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}

	l, err := lru.New[string, cacheEntry](maxEntries)
	if err != nil {
		return nil, err
	}

	return &Cache{lru: l, ttl: ttl}, nil
}

// Key builds the cache key for a query against a given routing decision and
// tier filter. Two requests that resolve to the same primary collection,
// fallback chain, and tier filter collapse to the same key regardless of how
// the decision was produced (classification vs collection_override).
func Key(query string, primary string, fallback []string, tierFilter string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	h.Write([]byte{0})
	h.Write([]byte(primary))
	h.Write([]byte{0})
	sorted := append([]string(nil), fallback...)
	sort.Strings(sorted)
	for _, f := range sorted {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	h.Write([]byte(tierFilter))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached results for key if present and unexpired;
// otherwise it invokes compute exactly once even under concurrent callers
// sharing the same key (singleflight), caches the result, and returns it.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]vectorstore.SearchResult, error)) ([]vectorstore.SearchResult, error) {
	if entry, ok := c.lru.Get(key); ok && time.Now().Before(entry.expiresAt) {
		return entry.results, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		results, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, cacheEntry{results: results, expiresAt: time.Now().Add(c.ttl)})
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]vectorstore.SearchResult), nil
}

// Len reports the number of entries currently cached, for metrics/tests.
func (c *Cache) Len() int {
	return c.lru.Len()
}
