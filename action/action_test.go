package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyohosu/translate-nudge/clock"
	"github.com/garyohosu/translate-nudge/document"
	"github.com/garyohosu/translate-nudge/processed"
	"github.com/garyohosu/translate-nudge/trigger"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const feed = `<html lang="en"><body><div id="feed">
<article><p class="post">Just shipped a new release</p></article>
<article><p class="post">Weekend plans anyone</p></article>
<article><p class="post">今日はいい天気</p></article>
</div></body></html>`

func newFixture(t *testing.T, page string) (*document.HTMLDocument, *clock.Manual, Catalog) {
	t.Helper()
	doc, err := document.ParseHTML(page)
	require.NoError(t, err)
	clk := clock.NewManual(epoch)
	cat := NewCatalog(Options{Clock: clk, ReversalDelay: 50 * time.Millisecond})
	return doc, clk, cat
}

func mustApply(t *testing.T, a Action, ctx context.Context, doc document.Document, targets []document.Element) []document.Element {
	t.Helper()
	done, err := a.Apply(ctx, doc, targets)
	require.NoError(t, err)
	return done
}

func lang(t *testing.T, doc document.Document) string {
	t.Helper()
	v, _, err := doc.RootAttr(context.Background(), "lang")
	require.NoError(t, err)
	return v
}

func TestLangToggle_FlipAndRestore(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		flipped string
		restore string
	}{
		{"english page", `<html lang="en"><body></body></html>`, "ja", "en"},
		{"japanese page", `<html lang="ja"><body></body></html>`, "en", "ja"},
		{"other language", `<html lang="fr"><body></body></html>`, "ja", "fr"},
		{"missing attribute", `<html><body></body></html>`, "ja", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, clk, cat := newFixture(t, tt.page)

			mustApply(t, cat[NameLangToggle], context.Background(), doc, nil)
			assert.Equal(t, tt.flipped, lang(t, doc))

			clk.Advance(49 * time.Millisecond)
			assert.Equal(t, tt.flipped, lang(t, doc))

			clk.Advance(time.Millisecond)
			assert.Equal(t, tt.restore, lang(t, doc))
		})
	}
}

func TestLangToggle_RestoreIsLastWriteWins(t *testing.T) {
	doc, clk, cat := newFixture(t, `<html lang="en"><body></body></html>`)
	ctx := context.Background()

	mustApply(t, cat[NameLangToggle], ctx, doc, nil)
	assert.Equal(t, "ja", lang(t, doc))

	clk.Advance(25 * time.Millisecond)
	require.NoError(t, doc.SetRootAttr(ctx, "lang", "de"))

	clk.Advance(25 * time.Millisecond)
	assert.Equal(t, "en", lang(t, doc), "restore overwrites the external write")
}

func TestLangToggle_SkipsWhileRestorePending(t *testing.T) {
	doc, clk, cat := newFixture(t, `<html lang="en"><body></body></html>`)
	ctx := context.Background()
	toggle := cat[NameLangToggle]

	els := []document.Element{{ID: "n1"}}
	assert.Len(t, mustApply(t, toggle, ctx, doc, els), 1)
	clk.Advance(10 * time.Millisecond)
	assert.Empty(t, mustApply(t, toggle, ctx, doc, els), "skipped toggle handled nothing")
	assert.Equal(t, "ja", lang(t, doc), "second toggle did not flip back")

	clk.Advance(40 * time.Millisecond)
	assert.Equal(t, "en", lang(t, doc))
	assert.Zero(t, clk.Pending())

	mustApply(t, toggle, ctx, doc, nil)
	assert.Equal(t, "ja", lang(t, doc), "toggles again once restored")
}

func TestMarker_InsertAndRemove(t *testing.T) {
	doc, clk, cat := newFixture(t, feed)
	ctx := context.Background()

	els, err := doc.Query(ctx, "p.post")
	require.NoError(t, err)

	mustApply(t, cat[NameMarker], ctx, doc, els)
	assert.Equal(t, 3, doc.Markers())

	clk.Advance(50 * time.Millisecond)
	assert.Zero(t, doc.Markers())
}

func TestMarker_ParentRemovedBeforeReversal(t *testing.T) {
	doc, clk, cat := newFixture(t, feed)
	ctx := context.Background()

	els, _ := doc.Query(ctx, "p.post")
	mustApply(t, cat[NameMarker], ctx, doc, els)

	_, err := doc.Remove("article")
	require.NoError(t, err)

	assert.NotPanics(t, func() { clk.Advance(50 * time.Millisecond) })
	assert.Zero(t, doc.Markers())
}

func TestMarker_ReportsMissingTargetsAndContinues(t *testing.T) {
	doc, clk, cat := newFixture(t, feed)
	ctx := context.Background()

	els, _ := doc.Query(ctx, "p.post")
	targets := append([]document.Element{{ID: "gone"}}, els...)

	done, err := cat[NameMarker].Apply(ctx, doc, targets)
	assert.True(t, errors.Is(err, document.ErrNotFound))
	assert.Len(t, done, 4, "failed insertions still count as handled")
	assert.Equal(t, 3, doc.Markers())

	clk.Advance(50 * time.Millisecond)
	assert.Zero(t, doc.Markers())
}

func TestMarker_Limit(t *testing.T) {
	doc, err := document.ParseHTML(feed)
	require.NoError(t, err)
	clk := clock.NewManual(epoch)
	cat := NewCatalog(Options{Clock: clk, MaxMarkers: 1})

	els, _ := doc.Query(context.Background(), "p.post")
	done := mustApply(t, cat[NameMarker], context.Background(), doc, els)
	assert.Equal(t, 1, doc.Markers())
	require.Len(t, done, 1)
	assert.Equal(t, els[0].ID, done[0].ID)
}

func TestEvents_Dispatch(t *testing.T) {
	doc, err := document.ParseHTML(feed)
	require.NoError(t, err)
	cat := NewCatalog(Options{Events: []string{"resize", "visibilitychange"}})

	mustApply(t, cat[NameEvents], context.Background(), doc, nil)
	assert.Equal(t, []string{"resize", "visibilitychange"}, doc.Events())
}

func TestCatalog_Profile(t *testing.T) {
	cat := NewCatalog(Options{})

	p, err := cat.Profile([]string{NameLangToggle, NameMarker})
	require.NoError(t, err)
	require.Len(t, p, 2)
	assert.Equal(t, NameLangToggle, p[0].Name())
	assert.Equal(t, NameMarker, p[1].Name())

	_, err = cat.Profile([]string{"reload"})
	assert.Error(t, err)

	assert.True(t, IsKnown(NameEvents))
	assert.False(t, IsKnown("reload"))
}

func TestScriptRun(t *testing.T) {
	q, err := ScriptRun("Latin", 3)
	require.NoError(t, err)

	assert.True(t, q("Just shipped"))
	assert.True(t, q("新しい release です"))
	assert.False(t, q("今日はいい天気"))
	assert.False(t, q("ok 12"), "two letters are below the run")

	_, err = ScriptRun("Klingon", 3)
	assert.Error(t, err)
}

// recordingAction remembers the targets it was given and handles the first
// limit of them (all when limit is 0).
type recordingAction struct {
	name  string
	calls [][]string
	err   error
	panic bool
	limit int
}

func (a *recordingAction) Name() string { return a.name }

func (a *recordingAction) Apply(_ context.Context, _ document.Document, targets []document.Element) ([]document.Element, error) {
	ids := make([]string, len(targets))
	for i, el := range targets {
		ids[i] = el.ID
	}
	a.calls = append(a.calls, ids)
	if a.panic {
		panic("exploded")
	}
	if a.limit > 0 && len(targets) > a.limit {
		targets = targets[:a.limit]
	}
	return targets, a.err
}

func newLatinRunner(t *testing.T, doc document.Document, actions ...Action) *Runner {
	t.Helper()
	q, err := ScriptRun("Latin", 3)
	require.NoError(t, err)
	return NewRunner(doc, processed.New(), RunnerConfig{
		CandidateSelector: "p.post",
		Qualifies:         q,
		Profiles: map[trigger.Kind][]Action{
			trigger.KindMutation: actions,
			trigger.KindScroll:   actions,
		},
	}, nil)
}

func TestRunner_NeverRepeatsProcessedElements(t *testing.T) {
	doc, err := document.ParseHTML(feed)
	require.NoError(t, err)
	rec := &recordingAction{name: "rec"}
	r := newLatinRunner(t, doc, rec)

	require.NoError(t, r.Dispatch(trigger.KindMutation))
	require.Len(t, rec.calls, 1)
	assert.Len(t, rec.calls[0], 2, "japanese post does not qualify")

	_, _, err = doc.Append("#feed", `<article><p class="post">Fresh content arrives</p></article>`)
	require.NoError(t, err)
	// Text changes on processed elements are accepted staleness.
	require.NoError(t, doc.SetText("article:first-child p", "Edited text still english"))

	require.NoError(t, r.Dispatch(trigger.KindMutation))
	require.Len(t, rec.calls, 2)
	require.Len(t, rec.calls[1], 1)
	assert.NotContains(t, rec.calls[0], rec.calls[1][0])

	require.NoError(t, r.Dispatch(trigger.KindScroll))
	assert.Len(t, rec.calls, 2, "nothing fresh, actions not called")

	st := r.Stats()
	assert.EqualValues(t, 3, st.Runs)
	assert.EqualValues(t, 1, st.EmptyRuns)
	assert.EqualValues(t, 3, st.Perturbed)
	assert.Equal(t, 3, st.Processed)
}

func TestRunner_SwallowsActionFailures(t *testing.T) {
	doc, err := document.ParseHTML(feed)
	require.NoError(t, err)
	failing := &recordingAction{name: "failing", err: errors.New("detached")}
	panicking := &recordingAction{name: "panicking", panic: true}
	last := &recordingAction{name: "last"}
	r := newLatinRunner(t, doc, failing, panicking, last)

	require.NoError(t, r.Dispatch(trigger.KindMutation))
	assert.Len(t, last.calls, 1, "later actions still run")
	assert.EqualValues(t, 2, r.Stats().ActionErrors)
	assert.Equal(t, 2, r.Stats().Processed)
}

type brokenDoc struct{ document.Document }

func (brokenDoc) Query(context.Context, string) ([]document.Element, error) {
	return nil, errors.New("page closed")
}

func TestRunner_QueryFailure(t *testing.T) {
	r := newLatinRunner(t, brokenDoc{})
	assert.Error(t, r.Dispatch(trigger.KindScroll))
}

func TestRunner_WithScheduler(t *testing.T) {
	doc, clk, cat := newFixture(t, feed)
	profile, err := cat.Profile([]string{NameLangToggle, NameMarker})
	require.NoError(t, err)
	q, err := ScriptRun("Latin", 3)
	require.NoError(t, err)

	r := NewRunner(doc, nil, RunnerConfig{
		CandidateSelector: "p.post",
		Qualifies:         q,
		Profiles:          map[trigger.Kind][]Action{trigger.KindMutation: profile},
	}, nil)
	s := trigger.New(trigger.Config{
		DebounceDelay:    800 * time.Millisecond,
		Cooldown:         2 * time.Second,
		ScrollThreshold:  150,
		MutationMinAdded: 1,
	}, clk, r, nil)

	s.OnMutation(trigger.MutationBatch{AddedNodes: 1, AddedElements: 1})
	clk.Advance(800 * time.Millisecond)

	// Dispatch returned: in-flight is clear while reversals are still pending.
	assert.False(t, s.InFlight(trigger.KindMutation))
	assert.Equal(t, "ja", lang(t, doc))
	assert.Equal(t, 2, doc.Markers())

	clk.Advance(50 * time.Millisecond)
	assert.Equal(t, "en", lang(t, doc))
	assert.Zero(t, doc.Markers())
	assert.EqualValues(t, 1, s.Stats().Fired)
	assert.Equal(t, 2, r.Stats().Processed)
}

const longFeed = `<html lang="en"><body><div id="feed">
<p class="post">First english post</p>
<p class="post">Second english post</p>
<p class="post">Third english post</p>
<p class="post">Fourth english post</p>
<p class="post">Fifth english post</p>
</div></body></html>`

func TestRunner_MarkerCapDefersRemainder(t *testing.T) {
	doc, err := document.ParseHTML(longFeed)
	require.NoError(t, err)
	clk := clock.NewManual(epoch)
	cat := NewCatalog(Options{Clock: clk, MaxMarkers: 2})
	profile, err := cat.Profile([]string{NameMarker})
	require.NoError(t, err)
	r := newLatinRunner(t, doc, profile...)
	ctx := context.Background()

	require.NoError(t, r.Dispatch(trigger.KindMutation))
	assert.Equal(t, 2, doc.Markers())
	assert.Equal(t, 2, r.Stats().Processed)

	fresh, err := r.Candidates(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3, "capped elements stay fresh")

	clk.Advance(50 * time.Millisecond)
	require.NoError(t, r.Dispatch(trigger.KindMutation))
	require.NoError(t, r.Dispatch(trigger.KindMutation))
	assert.Equal(t, 5, r.Stats().Processed)
	assert.EqualValues(t, 5, r.Stats().Perturbed)

	fresh, err = r.Candidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestRunner_SkippedToggleLeavesCandidatesFresh(t *testing.T) {
	doc, clk, cat := newFixture(t, feed)
	profile, err := cat.Profile([]string{NameLangToggle})
	require.NoError(t, err)
	r := newLatinRunner(t, doc, profile...)

	require.NoError(t, r.Dispatch(trigger.KindScroll))
	assert.Equal(t, 2, r.Stats().Processed)

	_, _, err = doc.Append("#feed", `<article><p class="post">Fresh content arrives</p></article>`)
	require.NoError(t, err)

	// Restore still pending: the toggle skips and the new post waits.
	require.NoError(t, r.Dispatch(trigger.KindScroll))
	assert.Equal(t, 2, r.Stats().Processed)

	clk.Advance(50 * time.Millisecond)
	require.NoError(t, r.Dispatch(trigger.KindScroll))
	assert.Equal(t, 3, r.Stats().Processed)
}

func TestRunner_UnionOfHandledTargets(t *testing.T) {
	doc, err := document.ParseHTML(longFeed)
	require.NoError(t, err)
	first := &recordingAction{name: "first", limit: 1}
	second := &recordingAction{name: "second", limit: 3}
	r := newLatinRunner(t, doc, first, second)

	require.NoError(t, r.Dispatch(trigger.KindMutation))
	assert.Equal(t, 3, r.Stats().Processed)
	assert.EqualValues(t, 3, r.Stats().Perturbed)
}
