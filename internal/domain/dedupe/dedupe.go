// Package dedupe tracks item keys already handled in a crawl run so that
// nested collection loops never process the same team or player twice.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// Set is an unbounded in-memory Deduper. It lives for one run.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

var _ Deduper = (*Set)(nil)

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (s *Set) SeenAndRecord(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = struct{}{}
	return false
}

// Size returns the number of recorded keys.
func (s *Set) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.seen))
}
