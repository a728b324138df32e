// Package cache stores serialized upstream responses so read traffic does
// not consume the upstream's rate budget. Entries are written only after
// a successful fetch (errors are never cached) and served byte-identical
// until their TTL elapses.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/nightfallstudio/bugboard/internal/kvstore"
	"github.com/nightfallstudio/bugboard/internal/logging"
)

const keyPrefix = "cache:"

// Logical key namespaces. Issue listings and stats are invalidated after
// any write that could change them; static entries only expire.
const (
	NSIssues = "issues"
	NSStats  = "stats"
	NSStatic = "static"
)

// Cache is the gateway's response cache.
type Cache struct {
	kv kvstore.Store
}

// New wraps a kvstore as a response cache.
func New(kv kvstore.Store) *Cache {
	return &Cache{kv: kv}
}

// Key builds a canonical cache key from a namespace and a request
// description (normalized query string or fixed logical name).
func Key(namespace, desc string) string {
	if desc == "" {
		return namespace
	}
	return namespace + ":" + desc
}

// Get returns the cached response for key, or found=false on a miss. A
// store failure is reported as a miss; the caller falls through to the
// upstream fetch.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, found, err := c.kv.Get(ctx, keyPrefix+key)
	if err != nil {
		logging.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return raw, found
}

// Put stores a response under key for ttl. Failures are logged and
// swallowed; the response was already composed and caching is best-effort.
func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.kv.Put(ctx, keyPrefix+key, value, ttl); err != nil {
		logging.Warn("cache write failed", "key", key, "error", err)
	}
}

// InvalidateIssues clears every issue-listing and stats entry. Called
// after each successful write so the next read reflects it. Patch-notes
// and other static entries are left alone; writes cannot change them.
func (c *Cache) InvalidateIssues(ctx context.Context) {
	err := c.kv.DeleteFunc(ctx, func(key string) bool {
		return strings.HasPrefix(key, keyPrefix+NSIssues) ||
			strings.HasPrefix(key, keyPrefix+NSStats)
	})
	if err != nil {
		logging.Warn("cache invalidation failed", "error", err)
	}
}
