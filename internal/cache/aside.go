package cache

import (
	"context"
	"encoding/json"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/observability"
)

// Aside loads key from store into dest. On a miss it calls fetch, stores the
// JSON-encoded result for ttl and decodes it into dest. Store failures are
// logged and treated as misses. It reports whether dest came from the cache.
func Aside(ctx context.Context, store Store, key string, ttl time.Duration, dest any, fetch func() (any, error)) (bool, error) {
	if Load(ctx, store, key, dest) {
		return true, nil
	}

	val, err := fetch()
	if err != nil {
		return false, err
	}
	raw, err := Save(ctx, store, key, ttl, val)
	if err != nil {
		return false, err
	}
	return false, json.Unmarshal(raw, dest)
}

// Load decodes the entry under key into dest and reports a hit. Read errors
// and undecodable entries count as misses.
func Load(ctx context.Context, store Store, key string, dest any) bool {
	if store != nil {
		raw, found, err := store.Get(ctx, key)
		switch {
		case err != nil:
			observability.FeedCacheRequests.WithLabelValues(observability.CacheError).Inc()
			middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		case found:
			if err := json.Unmarshal(raw, dest); err == nil {
				observability.FeedCacheRequests.WithLabelValues(observability.CacheHit).Inc()
				return true
			}
			middleware.Logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
		}
	}
	observability.FeedCacheRequests.WithLabelValues(observability.CacheMiss).Inc()
	return false
}

// Save JSON-encodes val and stores it under key for ttl. Write failures are
// logged only; the encoded bytes are returned either way.
func Save(ctx context.Context, store Store, key string, ttl time.Duration, val any) ([]byte, error) {
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.Set(ctx, key, raw, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		}
	}
	return raw, nil
}
