package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garyohosu/translate-nudge/document"
	"github.com/garyohosu/translate-nudge/processed"
	"github.com/garyohosu/translate-nudge/trigger"
)

// RunnerConfig controls candidate selection and which actions run per kind.
type RunnerConfig struct {
	// CandidateSelector picks elements that may need re-translation.
	CandidateSelector string

	// Qualifies filters candidates by content; nil accepts all text.
	Qualifies Qualifier

	// Profiles maps each signal kind to its ordered actions.
	Profiles map[trigger.Kind][]Action

	// OpTimeout bounds the synchronous dispatch.
	OpTimeout time.Duration // default: 5s
}

// RunnerStats is a snapshot of runner counters.
type RunnerStats struct {
	Runs         uint64 `json:"runs"`
	EmptyRuns    uint64 `json:"empty_runs"`
	Candidates   uint64 `json:"candidates"`
	Perturbed    uint64 `json:"perturbed"`
	ActionErrors uint64 `json:"action_errors"`
	Processed    int    `json:"processed"`
}

// Runner applies action profiles to fresh candidates. It implements
// trigger.Dispatcher.
type Runner struct {
	doc  document.Document
	seen *processed.Set
	cfg  RunnerConfig
	log  *slog.Logger

	mu    sync.Mutex
	stats RunnerStats
}

// NewRunner creates a Runner. A nil set gets a fresh processed.Set.
func NewRunner(doc document.Document, seen *processed.Set, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if seen == nil {
		seen = processed.New()
	}
	if cfg.Qualifies == nil {
		cfg.Qualifies = AnyText
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		doc:  doc,
		seen: seen,
		cfg:  cfg,
		log:  logger.With("component", "runner"),
	}
}

// Dispatch runs the profile for kind against candidates not processed yet,
// then marks processed the ones at least one action handled. Candidates
// every action left alone stay fresh for the next fire. Action failures are
// logged and swallowed; only a failure to read the document is returned.
func (r *Runner) Dispatch(kind trigger.Kind) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.OpTimeout)
	defer cancel()

	fresh, err := r.Candidates(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.stats.Runs++
	r.stats.Candidates += uint64(len(fresh))
	if len(fresh) == 0 {
		r.stats.EmptyRuns++
	}
	r.mu.Unlock()

	if len(fresh) == 0 {
		r.log.Debug("no fresh candidates", "kind", kind)
		return nil
	}

	actions := r.cfg.Profiles[kind]
	failed := 0
	handled := make(map[string]struct{}, len(fresh))
	for _, a := range actions {
		done, err := r.apply(ctx, a, fresh)
		if err != nil {
			failed++
			r.log.Warn("action failed", "kind", kind, "action", a.Name(), "error", err)
		}
		for _, el := range done {
			handled[el.ID] = struct{}{}
		}
	}

	for id := range handled {
		r.seen.MarkProcessed(id)
	}

	r.mu.Lock()
	r.stats.Perturbed += uint64(len(handled))
	r.stats.ActionErrors += uint64(failed)
	r.mu.Unlock()

	r.log.Info("actions dispatched",
		"kind", kind,
		"actions", len(actions),
		"failed", failed,
		"elements", len(handled),
		"deferred", len(fresh)-len(handled),
	)
	return nil
}

// apply runs one action, turning a panic into an error. A panicking action
// handled nothing.
func (r *Runner) apply(ctx context.Context, a Action, targets []document.Element) (done []document.Element, err error) {
	defer func() {
		if p := recover(); p != nil {
			done = nil
			err = fmt.Errorf("action %s panicked: %v", a.Name(), p)
		}
	}()
	return a.Apply(ctx, r.doc, targets)
}

// Candidates returns the elements matching the selector that look
// untranslated and have not been processed.
func (r *Runner) Candidates(ctx context.Context) ([]document.Element, error) {
	all, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}
	fresh := all[:0]
	for _, el := range all {
		if r.seen.ShouldProcess(el.ID) {
			fresh = append(fresh, el)
		}
	}
	return fresh, nil
}

// Pending returns the elements matching the selector that look
// untranslated, processed or not.
func (r *Runner) Pending(ctx context.Context) ([]document.Element, error) {
	els, err := r.doc.Query(ctx, r.cfg.CandidateSelector)
	if err != nil {
		return nil, fmt.Errorf("runner: query candidates: %w", err)
	}
	out := els[:0]
	for _, el := range els {
		if r.cfg.Qualifies(el.Text) {
			out = append(out, el)
		}
	}
	return out, nil
}

// Stats returns a snapshot of the counters.
func (r *Runner) Stats() RunnerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.stats
	st.Processed = r.seen.Len()
	return st
}
