// Package action holds the perturbations that coax a page translator into
// re-scanning new content, and the Runner that applies them when the
// trigger scheduler fires.
//
// Every perturbation is best-effort and transient: it changes the document,
// then schedules its own reversal on the clock. The Runner returns as soon
// as the synchronous part of each action is done; reversals run later and
// their failures are only logged.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyohosu/translate-nudge/clock"
	"github.com/garyohosu/translate-nudge/document"
)

// Action names accepted in profiles.
const (
	NameLangToggle = "lang_toggle"
	NameMarker     = "marker"
	NameEvents     = "events"
)

// reversalTimeout bounds each delayed reversal step.
const reversalTimeout = 5 * time.Second

// Action is one named perturbation.
type Action interface {
	Name() string

	// Apply performs the synchronous part of the perturbation against
	// targets (fresh candidates) and schedules any reversal. It returns the
	// targets it handled, failed attempts included; targets it left alone
	// (skipped or past a cap) are not returned and stay fresh.
	Apply(ctx context.Context, doc document.Document, targets []document.Element) ([]document.Element, error)
}

// Options configure the built-in actions.
type Options struct {
	Clock         clock.Clock
	ReversalDelay time.Duration // default: 50ms

	// LangAttr is the root attribute flipped by lang_toggle.
	LangAttr string // default: "lang"

	// TargetLang and FallbackLang are the two values lang_toggle flips
	// between. A missing attribute counts as FallbackLang.
	TargetLang   string // default: "ja"
	FallbackLang string // default: "en"

	// MaxMarkers caps markers per fire; 0 means one per target.
	MaxMarkers int

	// Events are the synthetic window events dispatched by events.
	Events []string // default: ["resize"]

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.ReversalDelay <= 0 {
		o.ReversalDelay = 50 * time.Millisecond
	}
	if o.LangAttr == "" {
		o.LangAttr = "lang"
	}
	if o.TargetLang == "" {
		o.TargetLang = "ja"
	}
	if o.FallbackLang == "" {
		o.FallbackLang = "en"
	}
	if len(o.Events) == 0 {
		o.Events = []string{"resize"}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Catalog holds one instance of each built-in action. Profiles share these
// instances so that, for example, two profiles never toggle the same
// attribute on top of each other.
type Catalog map[string]Action

// NewCatalog builds the built-in actions.
func NewCatalog(opts Options) Catalog {
	opts.defaults()
	log := opts.Logger.With("component", "action")
	return Catalog{
		NameLangToggle: &LangToggle{
			clock:    opts.Clock,
			delay:    opts.ReversalDelay,
			attr:     opts.LangAttr,
			target:   opts.TargetLang,
			fallback: opts.FallbackLang,
			log:      log,
		},
		NameMarker: &Marker{
			clock: opts.Clock,
			delay: opts.ReversalDelay,
			limit: opts.MaxMarkers,
			log:   log,
		},
		NameEvents: &Events{names: opts.Events},
	}
}

// Profile resolves an ordered list of action names.
func (c Catalog) Profile(names []string) ([]Action, error) {
	out := make([]Action, 0, len(names))
	for _, n := range names {
		a, ok := c[n]
		if !ok {
			return nil, fmt.Errorf("action: unknown action %q", n)
		}
		out = append(out, a)
	}
	return out, nil
}

// IsKnown reports whether name is a built-in action.
func IsKnown(name string) bool {
	switch name {
	case NameLangToggle, NameMarker, NameEvents:
		return true
	}
	return false
}

// afterDelay schedules a reversal step. The step gets its own context, and
// its errors and panics are logged and dropped.
func afterDelay(clk clock.Clock, d time.Duration, log *slog.Logger, name string, step func(ctx context.Context) error) {
	clk.AfterFunc(d, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn("reversal panicked", "action", name, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), reversalTimeout)
		defer cancel()
		if err := step(ctx); err != nil {
			log.Debug("reversal failed", "action", name, "error", err)
		}
	})
}
