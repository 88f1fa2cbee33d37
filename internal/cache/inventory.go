package cache

import (
	"fmt"
	"time"
)

const (
	// IndexPagePrefix namespaces every cached page of the global feed.
	IndexPagePrefix = "index_page"
	// TokenBlacklistPrefix marks revoked token IDs.
	TokenBlacklistPrefix = "blacklist:"
)

// IndexPageTTL is how long a cached index page is served before it is rebuilt.
const IndexPageTTL = 20 * time.Second

// IndexPageKey is the key for one page of the global feed. It does not vary by viewer.
func IndexPageKey(page int) string {
	return fmt.Sprintf("%s:%d", IndexPagePrefix, page)
}

// BlacklistKey is the key recording a revoked token.
func BlacklistKey(jti string) string {
	return TokenBlacklistPrefix + jti
}
