package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"github.com/garyohosu/translate-nudge/document"
	"github.com/garyohosu/translate-nudge/models"
	"github.com/garyohosu/translate-nudge/source"
	"github.com/garyohosu/translate-nudge/trigger"
)

// maxQueued caps the in-page signal queue between two drains.
const maxQueued = 1000

// installJS sets up the scroll listener and the mutation observer, both
// pushing into window.__nudgeSignals. It returns false when already
// installed. The observer waits for DOMContentLoaded if there is no body
// yet, and skips added nodes that are our own markers.
const installJS = `(attr, max) => {
	if (window.__nudgeSignals) return false;
	const q = window.__nudgeSignals = [];
	const push = (s) => {
		if (q.length >= max) q.shift();
		q.push(s);
	};
	window.addEventListener('scroll', () => push({ k: 'scroll', y: window.scrollY }), { passive: true });
	const observe = () => {
		new MutationObserver((records) => {
			let nodes = 0, elements = 0;
			for (const r of records) {
				for (const n of r.addedNodes) {
					if (n.nodeType === 1 && n.hasAttribute(attr)) continue;
					nodes++;
					if (n.nodeType === 1) elements++;
				}
			}
			if (nodes > 0) push({ k: 'mutation', n: nodes, e: elements });
		}).observe(document.body, { childList: true, subtree: true });
	};
	if (document.body) observe();
	else document.addEventListener('DOMContentLoaded', observe, { once: true });
	return true;
}`

// drainJS empties the queue. It yields null when the queue is gone, which
// means the page navigated and the listeners must be installed again.
const drainJS = `() => {
	const q = window.__nudgeSignals;
	if (!q) return null;
	return q.splice(0, q.length);
}`

const scrollYJS = `() => window.scrollY`

// Watcher polls a page for signals and routes them to a sink.
type Watcher struct {
	page     *rod.Page
	router   *source.Router
	interval time.Duration
	log      *slog.Logger
}

// NewWatcher creates a Watcher. threshold is the scroll distance a position
// must move from the last triggering position.
func NewWatcher(page *rod.Page, sink source.Sink, threshold float64, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Watcher{
		page:     page,
		router:   source.NewRouter(sink, threshold, 0),
		interval: interval,
		log:      logger.With("component", "watcher"),
	}
}

// Install adds the in-page listeners if they are missing and resets the
// scroll reference to the current position.
func (w *Watcher) Install(ctx context.Context) error {
	p := w.page.Context(ctx)
	res, err := p.Eval(installJS, document.MarkerAttr, maxQueued)
	if err != nil {
		return categorizeError(models.OpWatch, err, "installing signal listeners failed")
	}
	if res.Value.Bool() {
		if y, err := p.Eval(scrollYJS); err == nil {
			w.router.ResetScroll(y.Value.Num())
		}
		w.log.Debug("signal listeners installed")
	}
	return nil
}

// Run installs the listeners and drains them every interval until ctx is
// done. Eval failures are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Install(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("signal poll failed", "error", err)
		}
	}
}

// poll drains one batch of queued signals.
func (w *Watcher) poll(ctx context.Context) error {
	res, err := w.page.Context(ctx).Eval(drainJS)
	if err != nil {
		return err
	}
	if res.Value.Nil() {
		w.log.Info("signal queue missing, reinstalling listeners")
		return w.Install(ctx)
	}

	accepted := 0
	events, bad := decodeSignals(res.Value)
	for _, ev := range events {
		if w.router.Route(ev) {
			accepted++
		}
	}
	if bad > 0 {
		w.log.Debug("skipped malformed signals", "count", bad)
	}
	if accepted > 0 {
		w.log.Debug("signals accepted", "accepted", accepted, "received", len(events))
	}
	return nil
}

// errMalformed marks a queue entry that is not a known signal.
var errMalformed = errors.New("malformed signal")

// decodeSignals converts the drained queue into events and reports how many
// entries were skipped.
func decodeSignals(v gson.JSON) (events []source.Event, bad int) {
	arr := v.Arr()
	events = make([]source.Event, 0, len(arr))
	for _, item := range arr {
		ev, err := decodeSignal(item)
		if err != nil {
			bad++
			continue
		}
		events = append(events, ev)
	}
	return events, bad
}

func decodeSignal(item gson.JSON) (source.Event, error) {
	kind, err := trigger.ParseKind(item.Get("k").Str())
	if err != nil {
		return source.Event{}, errMalformed
	}
	switch kind {
	case trigger.KindScroll:
		if !item.Has("y") {
			return source.Event{}, errMalformed
		}
		return source.Event{Kind: kind, Position: item.Get("y").Num()}, nil
	case trigger.KindMutation:
		return source.Event{Kind: kind, Batch: trigger.MutationBatch{
			AddedNodes:    item.Get("n").Int(),
			AddedElements: item.Get("e").Int(),
		}}, nil
	}
	return source.Event{}, errMalformed
}
