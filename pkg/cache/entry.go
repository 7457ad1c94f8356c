package cache

import (
	"encoding/json"
	"time"
)

// Entry represents a cached ETG API payload.
type Entry struct {
	// Payload is the upstream response payload, stored verbatim.
	Payload json.RawMessage `json:"payload"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time `json:"expires_at"`

	// Version tags the source API version the payload was fetched from.
	Version string `json:"version"`
}

// IsExpired returns true if the entry has passed its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
