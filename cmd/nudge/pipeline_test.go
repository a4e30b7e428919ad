package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyohosu/translate-nudge/clock"
	"github.com/garyohosu/translate-nudge/config"
	"github.com/garyohosu/translate-nudge/document"
	"github.com/garyohosu/translate-nudge/source"
	"github.com/garyohosu/translate-nudge/trigger"
)

const timeline = `<html lang="en"><body><main>
<div data-testid="tweetText">Shipping the new build tonight</div>
<div data-testid="tweetText">明日は雨</div>
</main></body></html>`

func TestBuildPipeline_ScrollToPerturbation(t *testing.T) {
	doc, err := document.ParseHTML(timeline)
	require.NoError(t, err)
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	n := config.Load().Nudge
	n.CandidateSelector = `[data-testid="tweetText"]`
	p, err := buildPipeline(n, doc, clk, nil, nil)
	require.NoError(t, err)
	t.Cleanup(p.scheduler.Stop)

	router := source.NewRouter(p.scheduler, n.ScrollThreshold, 0)
	for _, y := range []float64{60, 120, 180} {
		router.Route(source.Event{Kind: trigger.KindScroll, Position: y})
	}
	assert.Equal(t, trigger.StateArmed, p.scheduler.State())

	clk.Advance(n.DebounceDelay)
	lang, _, err := doc.RootAttr(context.Background(), "lang")
	require.NoError(t, err)
	assert.Equal(t, "ja", lang)
	assert.Equal(t, 1, doc.Markers())
	assert.Equal(t, 1, p.seen.Len())

	clk.Advance(n.ReversalDelay)
	lang, _, _ = doc.RootAttr(context.Background(), "lang")
	assert.Equal(t, "en", lang)
	assert.Zero(t, doc.Markers())
}

func TestBuildPipeline_UnknownAction(t *testing.T) {
	doc, err := document.ParseHTML(timeline)
	require.NoError(t, err)

	n := config.Load().Nudge
	n.MutationActions = []string{"reload"}
	_, err = buildPipeline(n, doc, clock.NewManual(time.Now()), nil, nil)
	assert.Error(t, err)
}

func TestApplyProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sites:\n  - host: x.com\n    candidate_selector: '[data-testid=\"tweetText\"]'\n"), 0o600))

	cfg := config.Load()
	cfg.Target.URL = "https://x.com/home"
	cfg.Target.ProfilesPath = path
	require.NoError(t, applyProfile(cfg))
	assert.Equal(t, `[data-testid="tweetText"]`, cfg.Nudge.CandidateSelector)

	cfg.Target.ProfilesPath = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, applyProfile(cfg))
}
