// Package ratelimit gates page requests after upstream answers 429 Too Many
// Requests. The cooldown honours Retry-After and, when Redis is configured,
// is shared by every client talking to the same host.
package ratelimit

import (
	"time"
)

// KeyPrefix namespaces cooldown keys in Redis; the upstream host is appended.
const KeyPrefix = "artic:rate_limit"

// DefaultCooldown applies when a 429 carries no usable Retry-After.
const DefaultCooldown = 60 * time.Second

// MaxCooldown caps what a Retry-After header can impose.
const MaxCooldown = 10 * time.Minute

// State is the cooldown state for one upstream host.
type State struct {
	// BlockedUntil is when requests may resume. Zero means not blocked.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when the last 429 was recorded.
	LastUpdate time.Time `json:"last_update"`
}

// Blocked reports whether requests are held back at now.
func (s *State) Blocked(now time.Time) bool {
	return s != nil && now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the remaining cooldown, or 0 once it has passed.
func (s *State) TimeUntilReset() time.Duration {
	if s == nil {
		return 0
	}
	return max(time.Until(s.BlockedUntil), 0)
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
