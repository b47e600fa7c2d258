// Package ratelimit tracks the upstream provider's rate limit and paces
// outgoing requests. A 429 response puts every client sharing the same
// Redis into a cooldown until the Retry-After deadline passes.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyBlockedUntil = "cryptomark:rate_limit:blocked_until"
	RedisKeyLastStatus   = "cryptomark:rate_limit:last_status"
	RedisKeyLastUpdate   = "cryptomark:rate_limit:last_update"
)

// DefaultCooldown applies when a 429 response carries no usable Retry-After.
const DefaultCooldown = 60 * time.Second

// State is the shared upstream rate limit state.
type State struct {
	// BlockedUntil is the end of the current cooldown. Zero when none was
	// ever recorded.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastStatus is the status code of the last tracked response.
	LastStatus int `json:"last_status"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether the cooldown is still running at now.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the remaining cooldown, or 0 if none.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
