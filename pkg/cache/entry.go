// Package cache keeps upstream page responses in Redis so that repeated page
// requests can be revalidated with If-None-Match / If-Modified-Since instead
// of transferring the full body again.
//
// Every page request still reaches upstream; an entry only turns a full
// response into a 304. Entries live in Redis for their freshness lifetime
// plus a retention window during which they remain usable for revalidation.
package cache

import (
	"net/http"
	"time"
)

// Entry is a cached upstream response.
type Entry struct {
	// Body is the raw response body.
	Body []byte `json:"body"`

	// ETag sent back as If-None-Match.
	ETag string `json:"etag"`

	// Expires is when the entry stops being fresh.
	Expires time.Time `json:"expires"`

	// LastModified sent back as If-Modified-Since when no ETag exists.
	LastModified time.Time `json:"last_modified"`

	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`
}

// IsExpired reports whether the entry is past its freshness lifetime.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the remaining freshness lifetime, 0 once expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether the entry carries a validator.
func (e *Entry) CanRevalidate() bool {
	if e == nil {
		return false
	}
	return e.ETag != "" || !e.LastModified.IsZero()
}
