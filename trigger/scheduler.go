// Package trigger turns noisy scroll and mutation signals into rate-limited
// action fires.
//
// A Scheduler debounces qualifying signals into a single pending trigger,
// then gates the fire on a cooldown and an in-flight flag:
//
//	Idle   --qualifying signal-->             Armed
//	Armed  --qualifying signal-->             Armed (timer reset)
//	Armed  --debounce elapses, gate passes--> Firing
//	Armed  --debounce elapses, gate fails-->  Idle (no state change)
//	Firing --dispatch returns-->              Idle (cooldown set)
//
// Signals arriving while Firing arm a new trigger as usual; if that trigger
// comes due before the dispatch returns, it is suppressed, not queued.
package trigger

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/garyohosu/translate-nudge/clock"
)

// Dispatcher runs the perturbation action sequence for a kind. Dispatch is
// synchronous; anything it defers (reversals) must not hold up its return.
type Dispatcher interface {
	Dispatch(kind Kind) error
}

// DispatchFunc adapts a plain function to Dispatcher.
type DispatchFunc func(kind Kind) error

func (f DispatchFunc) Dispatch(kind Kind) error { return f(kind) }

// Config controls thresholds and timing.
type Config struct {
	// DebounceDelay is how long a trigger stays armed without new signals.
	DebounceDelay time.Duration

	// Cooldown is the minimum time between two fires.
	Cooldown time.Duration

	// ScrollThreshold is the scroll delta (px) a signal must exceed.
	ScrollThreshold float64

	// MutationMinAdded is the minimum number of added elements in a batch.
	// Values below 1 are treated as 1.
	MutationMinAdded int

	// SplitCooldown keeps a separate cooldown and in-flight flag per kind
	// instead of one shared gate.
	SplitCooldown bool
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	State              State     `json:"-"`
	StateName          string    `json:"state"`
	PendingKind        string    `json:"pending_kind,omitempty"`
	Signals            uint64    `json:"signals"`
	Ignored            uint64    `json:"ignored"`
	Armed              uint64    `json:"armed"`
	Fired              uint64    `json:"fired"`
	SuppressedCooldown uint64    `json:"suppressed_cooldown"`
	SuppressedInFlight uint64    `json:"suppressed_in_flight"`
	Failed             uint64    `json:"failed"`
	LastFiredAt        time.Time `json:"last_fired_at,omitzero"`
	Stopped            bool      `json:"stopped"`
}

// gate is the cooldown state guarding fires.
type gate struct {
	lastFiredAt time.Time
	fired       bool
	inFlight    bool
}

// Scheduler is the signal-to-action scheduler. It is safe for concurrent
// use; all state sits behind one mutex and the dispatcher runs outside it.
type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	clock    clock.Clock
	dispatch Dispatcher
	log      *slog.Logger

	pending     clock.Timer
	pendingKind Kind
	generation  uint64
	stopped     bool

	gates map[Kind]*gate
	stats Stats
}

// New creates a Scheduler. A nil clock means the real clock; a nil logger
// means slog.Default().
func New(cfg Config, clk clock.Clock, d Dispatcher, logger *slog.Logger) *Scheduler {
	if cfg.DebounceDelay < 0 {
		cfg.DebounceDelay = 0
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.MutationMinAdded < 1 {
		cfg.MutationMinAdded = 1
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		clock:    clk,
		dispatch: d,
		log:      logger.With("component", "trigger"),
		gates:    make(map[Kind]*gate),
	}
}

// OnScroll reports a scroll delta in pixels. Each delta is judged on its
// own: it qualifies only if |delta| exceeds ScrollThreshold.
func (s *Scheduler) OnScroll(delta float64) bool {
	return s.OnSignal(KindScroll, math.Abs(delta))
}

// OnMutation reports one subtree-mutation batch. Only added elements count.
func (s *Scheduler) OnMutation(batch MutationBatch) bool {
	return s.OnSignal(KindMutation, float64(batch.AddedElements))
}

// OnSignal arms (or re-arms) the debounce timer if magnitude passes the
// threshold for kind. It reports whether the signal qualified.
func (s *Scheduler) OnSignal(kind Kind, magnitude float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Signals++
	if s.stopped || !s.qualifies(kind, magnitude) {
		s.stats.Ignored++
		s.log.Debug("signal ignored", "kind", kind, "magnitude", magnitude)
		return false
	}

	if s.pending != nil {
		s.pending.Stop()
	}
	s.generation++
	gen := s.generation
	s.pendingKind = kind
	s.pending = s.clock.AfterFunc(s.cfg.DebounceDelay, func() { s.fire(gen) })
	s.stats.Armed++

	s.log.Debug("trigger armed", "kind", kind, "magnitude", magnitude,
		"fireAt", s.clock.Now().Add(s.cfg.DebounceDelay))
	return true
}

// qualifies applies the per-kind noise threshold.
func (s *Scheduler) qualifies(kind Kind, magnitude float64) bool {
	switch kind {
	case KindScroll:
		return magnitude > s.cfg.ScrollThreshold
	case KindMutation:
		return magnitude >= float64(s.cfg.MutationMinAdded)
	default:
		return false
	}
}

// fire is the debounce callback. A callback whose generation was superseded
// (its Stop lost the race against the timer) does nothing.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.pending == nil {
		s.mu.Unlock()
		return
	}
	kind := s.pendingKind
	s.pending = nil
	s.pendingKind = 0
	s.mu.Unlock()

	s.TryFire(kind)
}

// TryFire runs the rate-limit gate for kind immediately and, if it passes,
// dispatches the actions synchronously. An armed trigger is left armed.
// It reports whether the actions ran.
func (s *Scheduler) TryFire(kind Kind) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	g := s.gateFor(kind)
	now := s.clock.Now()
	if g.inFlight {
		s.stats.SuppressedInFlight++
		s.mu.Unlock()
		s.log.Debug("fire suppressed", "kind", kind, "reason", "in_flight")
		return false
	}
	if g.fired && now.Sub(g.lastFiredAt) < s.cfg.Cooldown {
		s.stats.SuppressedCooldown++
		s.mu.Unlock()
		s.log.Debug("fire suppressed", "kind", kind, "reason", "cooldown",
			"sinceLast", now.Sub(g.lastFiredAt))
		return false
	}
	g.inFlight = true
	g.fired = true
	g.lastFiredAt = now
	s.stats.Fired++
	s.stats.LastFiredAt = now
	s.mu.Unlock()

	err := s.run(kind)

	s.mu.Lock()
	g.inFlight = false
	if err != nil {
		s.stats.Failed++
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("action dispatch failed", "kind", kind, "error", err)
	}
	return true
}

// run invokes the dispatcher, converting a panic into an error so the
// caller always clears the in-flight flag.
func (s *Scheduler) run(kind Kind) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trigger: dispatch %s panicked: %v", kind, r)
		}
	}()
	if s.dispatch == nil {
		return nil
	}
	return s.dispatch.Dispatch(kind)
}

// gateFor returns the gate for kind. Caller must hold s.mu.
func (s *Scheduler) gateFor(kind Kind) *gate {
	key := Kind(0)
	if s.cfg.SplitCooldown {
		key = kind
	}
	g, ok := s.gates[key]
	if !ok {
		g = &gate{}
		s.gates[key] = g
	}
	return g
}

// State reports the current lifecycle position.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scheduler) stateLocked() State {
	for _, g := range s.gates {
		if g.inFlight {
			return StateFiring
		}
	}
	if s.pending != nil {
		return StateArmed
	}
	return StateIdle
}

// InFlight reports whether a dispatch for kind is running.
func (s *Scheduler) InFlight(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gateFor(kind).inFlight
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.State = s.stateLocked()
	st.StateName = st.State.String()
	st.Stopped = s.stopped
	if s.pending != nil {
		st.PendingKind = s.pendingKind.String()
	}
	return st
}

// Stop cancels any armed trigger and ignores all later signals.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
		s.pendingKind = 0
	}
	s.stopped = true
}
