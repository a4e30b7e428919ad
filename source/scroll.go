// Package source adapts raw document signals into the deltas and batches
// the trigger scheduler consumes.
package source

import (
	"math"
	"sync"
)

// ScrollTracker turns absolute scroll positions into deltas measured from
// the last position that produced a qualifying delta. Small movements do
// not move the reference point, so slow drift accumulates until it crosses
// the threshold.
type ScrollTracker struct {
	mu        sync.Mutex
	threshold float64
	last      float64
}

// NewScrollTracker starts tracking at position start.
func NewScrollTracker(threshold, start float64) *ScrollTracker {
	return &ScrollTracker{threshold: threshold, last: start}
}

// Observe records position and returns the delta from the reference point.
// ok is true when |delta| exceeds the threshold; the reference point then
// moves to position.
func (t *ScrollTracker) Observe(position float64) (delta float64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delta = position - t.last
	if math.Abs(delta) > t.threshold {
		t.last = position
		return delta, true
	}
	return delta, false
}

// Reset moves the reference point, e.g. after a navigation.
func (t *ScrollTracker) Reset(position float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = position
}
