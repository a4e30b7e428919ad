// Package processed tracks which elements have already been perturbed.
package processed

import (
	"sync"
	"sync/atomic"
)

// Set is an identity-keyed record of processed elements. It holds only the
// stable identifiers assigned to elements, never the elements themselves,
// so it does not extend their lifetime. Entries are never removed: an
// element whose text changes after processing stays processed.
//
// Set is safe for concurrent use.
type Set struct {
	store sync.Map // element id (string) -> struct{}
	size  atomic.Int64
}

// New creates an empty Set.
func New() *Set {
	return &Set{}
}

// ShouldProcess reports whether id is eligible for perturbation. Elements
// without an identity cannot be tracked and are never eligible.
func (s *Set) ShouldProcess(id string) bool {
	if id == "" {
		return false
	}
	_, seen := s.store.Load(id)
	return !seen
}

// MarkProcessed records id. It reports whether id was newly added.
func (s *Set) MarkProcessed(id string) bool {
	if id == "" {
		return false
	}
	if _, loaded := s.store.LoadOrStore(id, struct{}{}); loaded {
		return false
	}
	s.size.Add(1)
	return true
}

// Len returns the number of recorded identities.
func (s *Set) Len() int {
	return int(s.size.Load())
}
