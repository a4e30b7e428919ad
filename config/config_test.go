package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 800*time.Millisecond, cfg.Nudge.DebounceDelay)
	assert.Equal(t, 150.0, cfg.Nudge.ScrollThreshold)
	assert.Equal(t, 2*time.Second, cfg.Nudge.Cooldown)
	assert.Equal(t, 50*time.Millisecond, cfg.Nudge.ReversalDelay)
	assert.Equal(t, 1, cfg.Nudge.MutationMinAdded)
	assert.Equal(t, []string{"lang_toggle", "marker"}, cfg.Nudge.ScrollActions)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Nudge.Validate())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("NUDGE_DEBOUNCE", "1s")
	t.Setenv("NUDGE_SCROLL_THRESHOLD", "80.5")
	t.Setenv("NUDGE_SPLIT_COOLDOWN", "true")
	t.Setenv("NUDGE_MUTATION_ACTIONS", " events , marker ,")
	t.Setenv("NUDGE_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, time.Second, cfg.Nudge.DebounceDelay)
	assert.Equal(t, 80.5, cfg.Nudge.ScrollThreshold)
	assert.True(t, cfg.Nudge.SplitCooldown)
	assert.Equal(t, []string{"events", "marker"}, cfg.Nudge.MutationActions)
	assert.Equal(t, 8787, cfg.Server.Port, "unparsable values fall back")
}

func TestNudgeConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(n *NudgeConfig)
		ok     bool
	}{
		{"defaults", func(*NudgeConfig) {}, true},
		{"zero debounce", func(n *NudgeConfig) { n.DebounceDelay = 0 }, true},
		{"negative cooldown", func(n *NudgeConfig) { n.Cooldown = -time.Second }, false},
		{"zero reversal", func(n *NudgeConfig) { n.ReversalDelay = 0 }, false},
		{"bad selector", func(n *NudgeConfig) { n.CandidateSelector = "p[" }, false},
		{"empty selector", func(n *NudgeConfig) { n.CandidateSelector = " " }, false},
		{"unknown script", func(n *NudgeConfig) { n.SourceScript = "Klingon" }, false},
		{"cyrillic", func(n *NudgeConfig) { n.SourceScript = "Cyrillic" }, true},
		{"alpha run too large", func(n *NudgeConfig) { n.MinAlphaRun = 5000 }, false},
		{"unknown action", func(n *NudgeConfig) { n.ScrollActions = []string{"reload"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Load().Nudge
			tt.mutate(&n)
			err := n.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

const profileYAML = `
sites:
  - host: x.com
    candidate_selector: '[data-testid="tweetText"]'
    mutation_actions: [lang_toggle]
  - host: news.example.org
    source_script: Cyrillic
    min_alpha_run: 5
`

func TestProfiles_MatchAndApply(t *testing.T) {
	p, err := ParseProfiles([]byte(profileYAML))
	require.NoError(t, err)
	require.Len(t, p.Sites, 2)

	assert.Nil(t, p.Match("https://example.org/feed"))
	assert.Nil(t, p.Match("https://notx.com/"))

	sp := p.Match("https://mobile.x.com/home")
	require.NotNil(t, sp)
	assert.Equal(t, "x.com", sp.Host)

	n := Load().Nudge
	sp.Apply(&n)
	assert.Equal(t, `[data-testid="tweetText"]`, n.CandidateSelector)
	assert.Equal(t, []string{"lang_toggle"}, n.MutationActions)
	assert.Equal(t, []string{"lang_toggle", "marker"}, n.ScrollActions, "unset fields keep defaults")
	assert.Equal(t, "Latin", n.SourceScript)

	sp = p.Match("https://NEWS.example.org/a")
	require.NotNil(t, sp)
	sp.Apply(&n)
	assert.Equal(t, "Cyrillic", n.SourceScript)
	assert.Equal(t, 5, n.MinAlphaRun)
	assert.NoError(t, n.Validate())
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profileYAML), 0o600))

	p, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Len(t, p.Sites, 2)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseProfiles([]byte("sites:\n  - candidate_selector: p\n"))
	assert.Error(t, err, "host is required")

	_, err = ParseProfiles([]byte("sites: [unterminated"))
	assert.Error(t, err)
}

func TestSiteProfile_NilIsNoop(t *testing.T) {
	var sp *SiteProfile
	n := Load().Nudge
	before := n.CandidateSelector
	sp.Apply(&n)
	assert.Equal(t, before, n.CandidateSelector)

	var p *Profiles
	assert.Nil(t, p.Match("https://x.com"))
}
