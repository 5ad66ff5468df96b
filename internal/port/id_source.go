package port

import "time"

type IDSource interface {
	// NextID returns a fresh order identifier. Identifiers are strictly
	// increasing across calls with non-decreasing timestamps; ties within
	// the same millisecond are broken by an internal sequence.
	NextID(now time.Time) string
}
