package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/garyohosu/translate-nudge/clock"
	"github.com/garyohosu/translate-nudge/document"
)

// LangToggle flips the document's language attribute and restores it after
// a short delay. The restore writes the value read before the flip, so an
// external write in between is overwritten (last write wins). While a
// restore is pending, further toggles are skipped; otherwise a second flip
// would read the flipped value as the original and restore to it.
type LangToggle struct {
	clock    clock.Clock
	delay    time.Duration
	attr     string
	target   string
	fallback string
	log      *slog.Logger

	restoring atomic.Bool
}

func (t *LangToggle) Name() string { return NameLangToggle }

func (t *LangToggle) Apply(ctx context.Context, doc document.Document, targets []document.Element) ([]document.Element, error) {
	if !t.restoring.CompareAndSwap(false, true) {
		t.log.Debug("lang toggle skipped, restore pending", "attr", t.attr)
		return nil, nil
	}

	orig, ok, err := doc.RootAttr(ctx, t.attr)
	if err != nil {
		t.restoring.Store(false)
		return targets, fmt.Errorf("lang_toggle: read %s: %w", t.attr, err)
	}
	if !ok || orig == "" {
		orig = t.fallback
	}

	flipped := t.target
	if orig == t.target {
		flipped = t.fallback
	}
	if err := doc.SetRootAttr(ctx, t.attr, flipped); err != nil {
		t.restoring.Store(false)
		return targets, fmt.Errorf("lang_toggle: set %s: %w", t.attr, err)
	}

	afterDelay(t.clock, t.delay, t.log, NameLangToggle, func(ctx context.Context) error {
		defer t.restoring.Store(false)
		return doc.SetRootAttr(ctx, t.attr, orig)
	})
	return targets, nil
}

// Marker inserts an invisible marker inside each target and removes all of
// them after a short delay. Targets past the per-fire limit are left for a
// later fire.
type Marker struct {
	clock clock.Clock
	delay time.Duration
	limit int
	log   *slog.Logger
}

func (m *Marker) Name() string { return NameMarker }

func (m *Marker) Apply(ctx context.Context, doc document.Document, targets []document.Element) ([]document.Element, error) {
	if m.limit > 0 && len(targets) > m.limit {
		targets = targets[:m.limit]
	}
	var (
		inserted []string
		errs     []error
	)
	for _, el := range targets {
		id, err := doc.InsertMarker(ctx, el.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("marker: insert into %s: %w", el.ID, err))
			continue
		}
		inserted = append(inserted, id)
	}

	if len(inserted) > 0 {
		afterDelay(m.clock, m.delay, m.log, NameMarker, func(ctx context.Context) error {
			var rerrs []error
			for _, id := range inserted {
				if err := doc.RemoveMarker(ctx, id); err != nil {
					rerrs = append(rerrs, err)
				}
			}
			return errors.Join(rerrs...)
		})
	}
	return targets, errors.Join(errs...)
}

// Events dispatches synthetic window events. They need no reversal.
type Events struct {
	names []string
}

func (e *Events) Name() string { return NameEvents }

func (e *Events) Apply(ctx context.Context, doc document.Document, targets []document.Element) ([]document.Element, error) {
	var errs []error
	for _, n := range e.names {
		if err := doc.DispatchEvent(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("events: %s: %w", n, err))
		}
	}
	return targets, errors.Join(errs...)
}
