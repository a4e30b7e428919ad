package source

import "github.com/garyohosu/translate-nudge/trigger"

// Sink receives filtered signals. *trigger.Scheduler implements it.
type Sink interface {
	OnScroll(delta float64) bool
	OnMutation(batch trigger.MutationBatch) bool
}

// Event is one raw observation from a document: either a scroll position
// or a mutation batch.
type Event struct {
	Kind     trigger.Kind
	Position float64
	Batch    trigger.MutationBatch
}

// Router forwards raw events to a Sink, converting scroll positions into
// deltas with a ScrollTracker.
type Router struct {
	sink   Sink
	scroll *ScrollTracker
}

// NewRouter creates a Router that tracks scroll positions against threshold.
func NewRouter(sink Sink, threshold, startPosition float64) *Router {
	return &Router{sink: sink, scroll: NewScrollTracker(threshold, startPosition)}
}

// Route delivers ev and reports whether the sink accepted it.
func (r *Router) Route(ev Event) bool {
	switch ev.Kind {
	case trigger.KindScroll:
		delta, ok := r.scroll.Observe(ev.Position)
		if !ok {
			return false
		}
		return r.sink.OnScroll(delta)
	case trigger.KindMutation:
		if ev.Batch.AddedElements == 0 {
			return false
		}
		return r.sink.OnMutation(ev.Batch)
	default:
		return false
	}
}

// ResetScroll moves the scroll reference point.
func (r *Router) ResetScroll(position float64) {
	r.scroll.Reset(position)
}
