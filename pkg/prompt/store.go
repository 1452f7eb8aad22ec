// Package prompt holds the set of active text prompts queried against each
// frame. The store is a versioned value: replacements are atomic and readers
// always see one consistent list, never a partial update.
package prompt

import (
	"strings"
	"sync"
)

// Delimiter separates prompts in a single raw input line.
const Delimiter = "|"

// Store is the single-writer, snapshot-per-tick prompt holder.
type Store struct {
	mu      sync.RWMutex
	prompts []string
	version uint64
}

// NewStore creates a store with the given initial prompts.
// An empty set is valid and means no active query.
func NewStore(initial []string) *Store {
	s := &Store{}
	s.Replace(initial)
	return s
}

// Replace installs a new prompt list. The slice is copied, so the caller may
// reuse it. Takes effect for the next snapshot; an in-flight snapshot is
// unaffected.
func (s *Store) Replace(prompts []string) {
	cp := make([]string, len(prompts))
	copy(cp, prompts)

	s.mu.Lock()
	s.prompts = cp
	s.version++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current prompt list.
func (s *Store) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]string, len(s.prompts))
	copy(cp, s.prompts)
	return cp
}

// Version returns a counter incremented on every Replace.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of active prompts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prompts)
}

// Parse splits a raw input line into prompts on the delimiter, trimming
// whitespace and dropping empty entries. Splitting is the caller's job, not
// the store's, so Replace never re-interprets its input.
func Parse(line string) []string {
	var prompts []string
	for _, part := range strings.Split(line, Delimiter) {
		if p := strings.TrimSpace(part); p != "" {
			prompts = append(prompts, p)
		}
	}
	return prompts
}
