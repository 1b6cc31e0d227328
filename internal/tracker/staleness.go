package tracker

import "time"

// IsStale reports whether a position last seen at lastSeenAt is older than maxAge at now.
// A zero lastSeenAt means no position exists and is always stale.
func IsStale(now, lastSeenAt time.Time, maxAge time.Duration) bool {
	if lastSeenAt.IsZero() {
		return true
	}
	return now.Sub(lastSeenAt) > maxAge
}
