// Package idgen provides the process-wide order identifier source.
package idgen

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Source mints order identifiers of the form
//
//	0001756400000000-000000000042
//
// a zero-padded millisecond timestamp followed by a process-wide counter.
// For non-decreasing timestamps the identifiers are strictly increasing,
// lexicographically and chronologically; identifiers minted within the same
// millisecond are ordered by the counter. Both fields are padded wide enough
// that they never outgrow their columns, so string order never inverts.
type Source struct {
	seq atomic.Uint64
}

func New() *Source {
	return &Source{}
}

func (s *Source) NextID(now time.Time) string {
	return fmt.Sprintf("%016d-%012d", now.UnixMilli(), s.seq.Add(1))
}
