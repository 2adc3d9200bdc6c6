package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is the freshness lifetime used when upstream sends no Expires
// or Cache-Control max-age.
const DefaultTTL = 5 * time.Minute

// FromResponse builds an Entry from a 200 response. The body is read and
// restored so the caller can still consume it.
func FromResponse(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		Body:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		StoredAt:   time.Now(),
		Expires:    ExpiresAt(resp.Header),
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			entry.LastModified = t
		}
	}

	return entry, nil
}

// ExpiresAt derives the freshness deadline from response headers.
// Cache-Control max-age wins over Expires; neither yields now + DefaultTTL.
func ExpiresAt(headers http.Header) time.Time {
	now := time.Now()

	if maxAge, ok := parseMaxAge(headers.Get("Cache-Control")); ok {
		return now.Add(maxAge)
	}

	raw := headers.Get("Expires")
	if raw == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(raw)
	if err != nil {
		return now.Add(DefaultTTL)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}

// parseMaxAge extracts max-age from a Cache-Control value.
func parseMaxAge(cc string) (time.Duration, bool) {
	var seconds int
	for _, directive := range strings.Split(cc, ",") {
		directive = strings.TrimSpace(directive)
		if _, err := fmt.Sscanf(directive, "max-age=%d", &seconds); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second, true
		}
	}
	return 0, false
}

// AddValidators sets If-None-Match, or If-Modified-Since when no ETag is
// known, on req.
func AddValidators(req *http.Request, entry *Entry) bool {
	if req == nil || !entry.CanRevalidate() {
		return false
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
	Revalidations.Inc()
	return true
}
