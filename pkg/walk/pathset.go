package walk

import (
	"slices"
	"sync"
)

// PathSet is a set of absolute resolved paths.
// It is safe for concurrent use.
type PathSet struct {
	mu sync.Mutex
	m  map[string]struct{}
}

// NewPathSet returns an empty set seeded with paths.
func NewPathSet(paths ...string) *PathSet {
	s := &PathSet{m: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.m[p] = struct{}{}
	}
	return s
}

// Add inserts p and reports whether it was not already present.
func (s *PathSet) Add(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[p]; ok {
		return false
	}
	s.m[p] = struct{}{}
	return true
}

// Has reports whether p is in the set. A nil set contains nothing.
func (s *PathSet) Has(p string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[p]
	return ok
}

// Len returns the number of paths in the set.
func (s *PathSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Paths returns the members in sorted order.
func (s *PathSet) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.m))
	for p := range s.m {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
