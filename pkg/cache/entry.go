package cache

import (
	"encoding/json"
	"time"
)

// CacheEntry represents a cached ranking response.
type CacheEntry struct {
	// Data is the JSON-encoded response
	Data json.RawMessage `json:"data"`

	// Expires is when the entry stops being served (write time + TTL)
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return e.isExpiredAt(time.Now())
}

func (e *CacheEntry) isExpiredAt(now time.Time) bool {
	return !now.Before(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	return e.ttlAt(time.Now())
}

func (e *CacheEntry) ttlAt(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
