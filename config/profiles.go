package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SiteProfile overrides nudge settings for one site. Zero fields keep the
// environment defaults.
type SiteProfile struct {
	Host              string   `yaml:"host"`
	CandidateSelector string   `yaml:"candidate_selector"`
	SourceScript      string   `yaml:"source_script"`
	MinAlphaRun       int      `yaml:"min_alpha_run"`
	ScrollActions     []string `yaml:"scroll_actions"`
	MutationActions   []string `yaml:"mutation_actions"`
}

// Profiles is the YAML site-profile file:
//
//	sites:
//	  - host: x.com
//	    candidate_selector: '[data-testid="tweetText"]'
type Profiles struct {
	Sites []SiteProfile `yaml:"sites"`
}

// LoadProfiles reads a profile file.
func LoadProfiles(path string) (*Profiles, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profiles: %w", err)
	}
	return ParseProfiles(raw)
}

// ParseProfiles decodes profile YAML.
func ParseProfiles(raw []byte) (*Profiles, error) {
	var p Profiles
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("config: parse profiles: %w", err)
	}
	for i, s := range p.Sites {
		if strings.TrimSpace(s.Host) == "" {
			return nil, fmt.Errorf("config: profile %d has no host", i)
		}
	}
	return &p, nil
}

// Match returns the profile for rawURL's host. A profile host matches the
// host itself and any subdomain of it. Nil if none matches.
func (p *Profiles) Match(rawURL string) *SiteProfile {
	if p == nil {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for i := range p.Sites {
		want := strings.ToLower(p.Sites[i].Host)
		if host == want || strings.HasSuffix(host, "."+want) {
			return &p.Sites[i]
		}
	}
	return nil
}

// Apply overlays the profile's non-zero fields onto n.
func (s *SiteProfile) Apply(n *NudgeConfig) {
	if s == nil {
		return
	}
	if s.CandidateSelector != "" {
		n.CandidateSelector = s.CandidateSelector
	}
	if s.SourceScript != "" {
		n.SourceScript = s.SourceScript
	}
	if s.MinAlphaRun > 0 {
		n.MinAlphaRun = s.MinAlphaRun
	}
	if len(s.ScrollActions) > 0 {
		n.ScrollActions = s.ScrollActions
	}
	if len(s.MutationActions) > 0 {
		n.MutationActions = s.MutationActions
	}
}
